// Package out renders CommandResults for the terminal session or for JSON
// consumers.
package out

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/solterm/solterm/internal/model"
)

// Render writes one result. In text mode failures go out as a single
// "Error:" line; JSON mode emits the whole envelope.
func Render(w io.Writer, result model.CommandResult, mode string) error {
	if mode == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if !result.Success {
		_, err := fmt.Fprintf(w, "Error: %s\n", result.Error)
		return err
	}
	if result.Output == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, result.Output)
	return err
}
