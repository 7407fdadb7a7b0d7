package command

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/app"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/shared/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is reported by --version.
const Version = "0.1.0"

// CLI holds state shared by every subcommand.
type CLI struct {
	Out io.Writer
	Err io.Writer

	Config   *config.Config
	LogLevel string
	Output   string

	app    *app.App
	logger *logging.Logger
}

// Highlight applies the heading colour.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	cli := &CLI{Out: out, Err: errOut, Config: config.LoadOrDefault()}
	cfg := cli.Config

	cmd := &cobra.Command{
		Use:   "blueprintc",
		Short: Highlight("blueprintc [global options] <command> [args]"),
		Long: Highlight("Usage: blueprintc [global options] <command> [args]") + "\n\n" +
			"blueprintc checks, completes and renders environment blueprint graphs.\n" +
			"It runs the same validator, resolver and renderer as the EnvForge server,\n" +
			"and can replay a whole compilation from an intent and scripted answers.\n",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return cli.close()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cli.Output, "output", "o", "yaml", "Output format. One of: (yaml | json)")
	flags.StringVar(&cli.LogLevel, "log-level", "warn", "Log level written to stderr")
	flags.StringVar(&cfg.Knowledge.Path, "knowledge", cfg.Knowledge.Path, "Catalogue file or directory merged over the built-in catalogue")
	flags.StringVar(&cfg.Knowledge.Pattern, "pattern", cfg.Knowledge.Pattern, "Glob for catalogue files inside a --knowledge directory")
	flags.StringVar(&cfg.Compiler.BlueprintName, "name", cfg.Compiler.BlueprintName, "Name of the rendered blueprint")
	flags.StringVar(&cfg.Compiler.OutputStrictness, "strictness", cfg.Compiler.OutputStrictness, "Dependency output checks. One of: (structural | outputs)")
	flags.BoolVar(&cfg.Compiler.AutoWire, "autowire", cfg.Compiler.AutoWire, "Wire unambiguous dependency outputs into missing bindings")

	cmd.AddCommand(
		NewValidateCommand(cli),
		NewResolveCommand(cli),
		NewRenderCommand(cli),
		NewCompileCommand(cli),
	)
	return cmd
}

func (c *CLI) setup() error {
	if _, err := c.format(); err != nil {
		return err
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(logging.CLIConfig(c.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	c.logger = logger
	a, err := app.New(c.Config, app.Options{Logger: logger.Logger})
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *CLI) close() error {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

func (c *CLI) format() (blueprint.Format, error) {
	return utils.ParseFormat(c.Output)
}

// readGraph loads a graph file; "-" reads stdin.
func readGraph(path string, stdin io.Reader) (*blueprint.Graph, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, utils.MaxGraphSize+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	if err := utils.ValidateGraphSize(data); err != nil {
		return nil, err
	}
	g, err := blueprint.DecodeGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (c *CLI) write(data []byte) {
	fmt.Fprint(c.Out, string(data))
	if !strings.HasSuffix(string(data), "\n") {
		fmt.Fprintln(c.Out)
	}
}
