package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

type CompileOptions struct {
	IntentFile  string
	Intent      string
	AnswersFile string
	GraphOut    string
}

func NewCompileCommand(cli *CLI) *cobra.Command {
	var opts CompileOptions

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile an intent, answering questions from a script",
		Long: Highlight("blueprintc compile --intent <file> [--answers <file>]") + "\n\n" +
			"Run a full compilation without a server. The intent starts the session and\n" +
			"each entry of the answers file is fed in turn while the compiler asks\n" +
			"for input. Entries are plain text or structured answer documents.\n\n" +
			"Examples:\n" +
			"  # Compile with scripted answers\n" +
			"  blueprintc compile --intent intent.yaml --answers answers.yaml\n\n" +
			"  # Inline intent, keep the final graph\n" +
			"  blueprintc compile --text '{\"entities\": [...]}' --graph-out graph.yaml\n",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunCompile(cmd.Context(), cli, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.IntentFile, "intent", "f", "", "File holding the opening message")
	cmd.Flags().StringVar(&opts.Intent, "text", "", "Opening message given inline")
	cmd.Flags().StringVarP(&opts.AnswersFile, "answers", "a", "", "YAML or JSON list of answers")
	cmd.Flags().StringVar(&opts.GraphOut, "graph-out", "", "Write the final graph to this file")
	cmd.MarkFlagsMutuallyExclusive("intent", "text")
	cmd.MarkFlagsOneRequired("intent", "text")
	return cmd
}

func RunCompile(ctx context.Context, cli *CLI, opts CompileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := cli.format()
	if err != nil {
		return err
	}
	intent := opts.Intent
	if opts.IntentFile != "" {
		data, err := os.ReadFile(opts.IntentFile)
		if err != nil {
			return fmt.Errorf("failed to read intent: %w", err)
		}
		intent = string(data)
	}
	var answers []string
	if opts.AnswersFile != "" {
		if answers, err = loadAnswers(opts.AnswersFile); err != nil {
			return err
		}
	}

	c := cli.app.NewCompiler()
	maxRounds := cli.Config.Compiler.MaxRounds

	resp, err := c.Process(ctx, intent)
	if err != nil {
		return err
	}
	for next := 0; resp.State == compiler.StateNeedsInput && next < len(answers); next++ {
		if c.Rounds() >= maxRounds {
			return fmt.Errorf("round limit of %d reached", maxRounds)
		}
		fmt.Fprintln(cli.Err, Highlight("?"), resp.Question)
		fmt.Fprintln(cli.Err, dimColor.Sprint(">"), answers[next])
		if resp, err = c.Process(ctx, answers[next]); err != nil {
			return err
		}
	}

	if opts.GraphOut != "" {
		data, err := blueprint.EncodeGraph(c.Graph(), blueprint.FormatFromPath(opts.GraphOut))
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.GraphOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write graph: %w", err)
		}
	}

	if resp.State != compiler.StateYAMLRendered {
		fmt.Fprintln(cli.Err, errorColor.Sprint("Stopped"), "in state", resp.State.String(), "after", pluralize(c.Rounds(), "round"))
		if resp.Question != "" {
			fmt.Fprintln(cli.Err, Highlight("?"), resp.Question)
		}
		renderFindings(cli.Err, c.Findings())
		return errIncomplete
	}

	data, err := c.Document().Encode(format)
	if err != nil {
		return err
	}
	cli.write(data)
	return nil
}

// loadAnswers reads a list of answers. Non-text entries are passed on as
// JSON documents.
func loadAnswers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: answers must be a list: %w", path, err)
	}
	answers := make([]string, 0, len(raw))
	for i, entry := range raw {
		switch v := entry.(type) {
		case string:
			answers = append(answers, strings.TrimSpace(v))
		case nil:
			return nil, fmt.Errorf("%s: answer %d is empty", path, i+1)
		default:
			doc, err := sonic.MarshalString(v)
			if err != nil {
				return nil, fmt.Errorf("%s: answer %d: %w", path, i+1, err)
			}
			answers = append(answers, doc)
		}
	}
	return answers, nil
}
