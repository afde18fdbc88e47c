package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/felixbrock/crayon/internal/app"
	"github.com/felixbrock/crayon/internal/domain"
	"github.com/felixbrock/crayon/internal/persistence"
)

const cliUserAgent = "crayon-cli"

type generateFlags struct {
	purpose     string
	selected    []int
	objectives  []string
	sessionFile string
}

func GenerateCmd(root *rootFlags) *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Extract objectives for a purpose and compose an agent prompt",
		Long: "Without --select or --objective only the extracted objectives are listed. " +
			"Pick them by their number with --select and add own ones with --objective \"name: explanation\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.purpose, "purpose", "p", "", "What the agent should do")
	cmd.Flags().IntSliceVarP(&flags.selected, "select", "s", nil, "Numbers of the extracted objectives to use")
	cmd.Flags().StringArrayVarP(&flags.objectives, "objective", "o", nil, "Own objective as \"name: explanation\"")
	cmd.Flags().StringVar(&flags.sessionFile, "session-file", "", "File keeping the session id, defaults to the user config dir")
	_ = cmd.MarkFlagRequired("purpose")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootFlags, flags *generateFlags) error {
	purpose := strings.TrimSpace(flags.purpose)
	if utf8.RuneCountInString(purpose) <= app.MinPurposeLen {
		return fmt.Errorf("please describe the agent's purpose in more than %d characters", app.MinPurposeLen)
	}

	added, err := parseObjectives(flags.objectives)
	if err != nil {
		return err
	}

	config, err := loadConfig(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	sessionId, err := sessionStore(flags.sessionFile).SessionId()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}

	ctx := cmd.Context()
	store, release, err := recordStore(ctx, config)
	if err != nil {
		return err
	}
	defer release()

	logger := app.NewInteractionLogger(store)
	defer logger.Wait()

	workflow := app.NewWorkflow(assistant(config), logger, domain.Session{Id: sessionId, UserAgent: cliUserAgent}, config.CompletionTimeout)
	slog.Debug("generating agent prompt", "session", workflow.Session().Id)
	out := cmd.OutOrStdout()

	if err := workflow.Submit(ctx, purpose); err != nil {
		return failure(workflow, err)
	}

	printObjectives(out, workflow.Snapshot().Objectives)
	if len(flags.selected) == 0 && len(added) == 0 {
		return nil
	}

	seen := map[int]bool{}
	for _, n := range flags.selected {
		if seen[n] {
			continue
		}
		seen[n] = true
		if err := workflow.Toggle(n - 1); err != nil {
			return fmt.Errorf("objective %d: %w", n, err)
		}
	}
	for _, o := range added {
		if err := workflow.AddObjective(o.Name, o.Explanation); err != nil {
			return err
		}
	}

	if err := workflow.Generate(ctx); err != nil {
		return failure(workflow, err)
	}

	fmt.Fprintln(out)
	printPrompt(out, workflow.Snapshot().Prompt)
	return nil
}

// failure prefers the message the workflow shows its users over the raw error.
func failure(w *app.Workflow, err error) error {
	if msg := w.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}

func sessionStore(path string) persistence.FileSessionStore {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		path = filepath.Join(dir, "crayon", "session.yaml")
	}
	return persistence.FileSessionStore{Path: path}
}

func parseObjectives(values []string) ([]domain.Objective, error) {
	objectives := make([]domain.Objective, 0, len(values))
	for _, v := range values {
		name, explanation, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(explanation) == "" {
			return nil, fmt.Errorf("objective %q must look like \"name: explanation\"", v)
		}
		objectives = append(objectives, domain.Objective{Name: strings.TrimSpace(name), Explanation: strings.TrimSpace(explanation)})
	}
	return objectives, nil
}

func printObjectives(w io.Writer, objectives []domain.Objective) {
	for i, o := range objectives {
		fmt.Fprintf(w, "%d. %s: %s\n", i+1, o.Name, o.Explanation)
	}
}

func printPrompt(w io.Writer, p *domain.GeneratedAgentPrompt) {
	if p == nil {
		return
	}
	fmt.Fprintln(w, p.Role)
	fmt.Fprintln(w, p.Instruction)
	for _, o := range p.Objectives {
		fmt.Fprintf(w, "- %s\n", o)
	}
	fmt.Fprintln(w, p.GuardrailIntro)
	for _, g := range p.Guidelines {
		fmt.Fprintf(w, "- %s\n", g)
	}
	fmt.Fprintln(w, "Your response here:")
}
