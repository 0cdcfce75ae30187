package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/query"
)

var jsonFlag bool

type fileOperation func(*query.Index, context.Context, string) []definition.Definition

var operations = map[string]fileOperation{
	"fields":        (*query.Index).FieldsInFile,
	"classes":       (*query.Index).ClassesInFile,
	"class-fields":  (*query.Index).ClassFields,
	"class-methods": (*query.Index).ClassMethods,
	"class-members": (*query.Index).ClassMembers,
	"methods":       (*query.Index).MethodsInFile,
	"root-methods":  (*query.Index).RootMethodsFromOtherFiles,
	"root-fields":   (*query.Index).RootFieldsFromOtherFiles,
	"other-classes": (*query.Index).ClassesFromOtherFiles,
	"outline":       (*query.Index).Outline,
	"search":        (*query.Index).Search,
}

func operationNames() string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var queryCmd = &cobra.Command{
	Use:   "query <operation> <file|prefix>",
	Short: "Query the index",
	Long: `Query answers one question from the index.

Operations taking a file: fields, classes, class-fields, class-methods,
class-members, methods, outline. The root-methods, root-fields and
other-classes operations answer for every file except the given one.
search takes a name prefix.

Examples:
  coffeeidx query classes src/models/user.coffee
  coffeeidx query root-methods src/app.coffee --json
  coffeeidx query search Us
`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&jsonFlag, "json", false, "print JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	op, ok := operations[args[0]]
	if !ok {
		return fmt.Errorf("unknown operation %q (want one of %s)", args[0], operationNames())
	}

	e, _, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	arg := args[1]
	if args[0] != "search" {
		arg = e.Rel(arg)
	}
	defs := op(e.Index(), cmd.Context(), arg)

	if jsonFlag {
		if defs == nil {
			defs = []definition.Definition{}
		}
		return writeJSON(cmd.OutOrStdout(), defs)
	}
	return writeDefinitions(cmd.OutOrStdout(), defs)
}
