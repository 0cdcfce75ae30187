package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alucardeht/coffeeidx/internal/definition"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeDefinitions prints one definition per line as
// file:line:col  kind  scope  name  parent.
func writeDefinitions(out io.Writer, defs []definition.Definition) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range defs {
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\t%s\t%s\n",
			d.File, d.Position.Line, d.Position.Column, d.Kind, d.Scope, d.Name, d.ParentID)
	}
	return tw.Flush()
}
