package id

import (
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/solterm/solterm/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// IsPositiveDecimal reports whether raw is a decimal literal greater than
// zero, without knowing any asset's precision yet.
func IsPositiveDecimal(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !decimalPattern.MatchString(raw) {
		return false
	}
	return strings.Trim(strings.ReplaceAll(raw, ".", ""), "0") != ""
}

// ParseAmount converts a positive decimal string into integer base units for
// an asset with the given decimals. Amounts cross every collaborator boundary
// as base units; decimal form exists only at the display edge.
func ParseAmount(decimal string, decimals int) (uint64, error) {
	decimal = strings.TrimSpace(decimal)
	if !decimalPattern.MatchString(decimal) {
		return 0, clierr.Newf(clierr.CodeInvalidAmount, "invalid amount: %s", decimal)
	}
	base, err := decimalToBaseUnits(decimal, decimals)
	if err != nil {
		return 0, err
	}
	n, ok := new(big.Int).SetString(base, 10)
	if !ok || !n.IsUint64() {
		return 0, clierr.Newf(clierr.CodeInvalidAmount, "amount out of range: %s", decimal)
	}
	v := n.Uint64()
	if v == 0 {
		return 0, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	return v, nil
}

// FormatAmount renders base units as a fixed-precision decimal string, e.g.
// 950000000 with 6 decimals -> "950.000000".
func FormatAmount(baseUnits uint64, decimals int) string {
	s := new(big.Int).SetUint64(baseUnits).String()
	if decimals == 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	return s[:len(s)-decimals] + "." + s[len(s)-decimals:]
}

// FormatAmountTrim is FormatAmount with trailing fraction zeros removed.
func FormatAmountTrim(baseUnits uint64, decimals int) string {
	s := FormatAmount(baseUnits, decimals)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// AmountToFloat converts base units to display units. Used only for derived
// ratios (prices, impact); never for accounting.
func AmountToFloat(baseUnits uint64, decimals int) float64 {
	f := float64(baseUnits)
	for i := 0; i < decimals; i++ {
		f /= 10
	}
	return f
}

func decimalToBaseUnits(decimal string, decimals int) (string, error) {
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", clierr.Newf(clierr.CodeInvalidAmount, "decimal precision exceeds token decimals (%d)", decimals)
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", clierr.New(clierr.CodeInvalidAmount, "invalid decimal amount")
	}
	return combined, nil
}
