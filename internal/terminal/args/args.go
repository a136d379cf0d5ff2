// Package args is the shared positional+flag grammar for terminal lines:
// whitespace-separated positionals up to the first "--" token, then flags in
// --name=value or bare --name form. Unknown flags are ignored by callers,
// never an error.
package args

import "strings"

type Parsed struct {
	Positionals []string
	flags       map[string]string
}

// Split tokenizes a raw line on whitespace.
func Split(line string) []string {
	return strings.Fields(line)
}

// Parse separates fields into positionals and flags. Once the first flag
// token appears, the positional section is closed.
func Parse(fields []string) Parsed {
	out := Parsed{flags: map[string]string{}}
	inFlags := false
	for _, field := range fields {
		if strings.HasPrefix(field, "--") {
			inFlags = true
			name, value, ok := strings.Cut(strings.TrimPrefix(field, "--"), "=")
			if name == "" {
				continue
			}
			if !ok {
				value = "true"
			}
			out.flags[strings.ToLower(name)] = value
			continue
		}
		if !inFlags {
			out.Positionals = append(out.Positionals, field)
		}
	}
	return out
}

// Flag returns the named flag's value.
func (p Parsed) Flag(name string) (string, bool) {
	v, ok := p.flags[strings.ToLower(name)]
	return v, ok
}

// Bool reports whether the named flag is present with a truthy value.
func (p Parsed) Bool(name string) bool {
	v, ok := p.flags[strings.ToLower(name)]
	if !ok {
		return false
	}
	return v != "false" && v != "0"
}
