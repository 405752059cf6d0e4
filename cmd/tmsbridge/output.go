package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// emit writes v as indented JSON when --json is set and otherwise hands the
// command's stdout to render.
func (c *commandContext) emit(cmd *cobra.Command, v any, render func(io.Writer) error) error {
	if c.jsonOutput() {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return render(cmd.OutOrStdout())
}
