package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/lexer"
)

var (
	chromaFlag bool
	triviaFlag bool
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "Print the token stream of a file",
	Long: `Tokens prints every token of a CoffeeScript file with its byte span,
category and type. With --chroma the file is tokenized by chroma's
CoffeeScript lexer instead, for comparison.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().BoolVar(&chromaFlag, "chroma", false, "use chroma's lexer")
	tokensCmd.Flags().BoolVar(&triviaFlag, "trivia", false, "include whitespace and comments")
}

func runTokens(cmd *cobra.Command, args []string) error {
	src, _, err := index.ReadFileAsUTF8(args[0])
	if err != nil {
		return err
	}

	var toks []lexer.Token
	if chromaFlag {
		if toks, err = lexer.Chroma(src); err != nil {
			return err
		}
	} else {
		toks = lexer.All(src)
	}

	lines := lexer.NewLineIndex(src)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, t := range toks {
		if t.IsTrivia() && !triviaFlag {
			continue
		}
		line, col := lines.Position(t.Start)
		fmt.Fprintf(tw, "%d:%d\t%d-%d\t%s\t%s\t%q\n", line, col, t.Start, t.End, t.Category, t.Type, t.Text)
	}
	return tw.Flush()
}
