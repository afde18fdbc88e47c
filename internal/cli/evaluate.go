package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixbrock/crayon/internal/domain"
	"github.com/felixbrock/crayon/internal/scoring"
)

type evaluation struct {
	Flags []domain.TextFlag `json:"flags"`
	Score int               `json:"score"`
}

func EvaluateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "evaluate [text...]",
		Short: "Score a prompt, reading stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				content, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(content)
			}

			flags, score := scoring.Evaluate(text)
			if flags == nil {
				flags = []domain.TextFlag{}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(evaluation{Flags: flags, Score: score})
			}

			for _, f := range flags {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", f.Position, f.Severity, f.Token, f.Message)
			}
			fmt.Fprintf(out, "score: %d/100\n", score)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the flags and score as JSON")
	return cmd
}
