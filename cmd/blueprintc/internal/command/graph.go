package command

import (
	"errors"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/spf13/cobra"
)

// errIncomplete is returned after findings have been printed.
var errIncomplete = errors.New("blueprint not complete")

func NewValidateCommand(cli *CLI) *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "validate <graph>",
		Short: "Report the missing requirements of a graph file",
		Long: Highlight("blueprintc validate <graph>") + "\n\n" +
			"Validate a graph file against the backend contracts and the knowledge base.\n" +
			"Use - to read the graph from stdin.\n\n" +
			"Examples:\n" +
			"  # Validate a graph as written\n" +
			"  blueprintc validate graph.yaml\n\n" +
			"  # Validate after filling resolvable bindings\n" +
			"  blueprintc validate --resolve graph.yaml\n",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if resolve {
				g = cli.app.Compiler.Resolver.Resolve(g)
			}
			findings := cli.app.Compiler.Validator.Validate(g)
			renderFindings(cli.Out, findings)
			if len(findings) > 0 {
				return errIncomplete
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve bindings before validating")
	return cmd
}

func NewResolveCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <graph>",
		Short: "Fill resolvable bindings and print the graph",
		Long: Highlight("blueprintc resolve <graph>") + "\n\n" +
			"Wire dependency outputs and infrastructure bindings into a graph file\n" +
			"and print the result in the --output format.\n",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.format()
			if err != nil {
				return err
			}
			g, err := readGraph(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			data, err := blueprint.EncodeGraph(cli.app.Compiler.Resolver.Resolve(g), format)
			if err != nil {
				return err
			}
			cli.write(data)
			return nil
		},
	}
}

func NewRenderCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "render <graph>",
		Short: "Resolve, validate and render a graph file",
		Long: Highlight("blueprintc render <graph>") + "\n\n" +
			"Render the blueprint document for a graph file. A graph that still has\n" +
			"missing requirements after resolving is reported instead.\n",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.format()
			if err != nil {
				return err
			}
			g, err := readGraph(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			opts := cli.app.Compiler
			resolved := opts.Resolver.Resolve(g)
			if findings := opts.Validator.Validate(resolved); len(findings) > 0 {
				renderFindings(cli.Err, findings)
				return errIncomplete
			}
			data, err := opts.Renderer.Render(resolved).Encode(format)
			if err != nil {
				return err
			}
			cli.write(data)
			return nil
		},
	}
}
