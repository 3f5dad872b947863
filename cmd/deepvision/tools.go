package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/tool"
	"github.com/nao1215/deepvision/internal/tui"
)

// NewToolsCmd creates the tools command.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List analysis tools and whether they are installed",
		Long: `Tools lists every enabled analysis tool in execution order, the executable it
resolves to and its timeout. Tools that are not installed still appear in
reports with the status "Not Installed".

Tool paths, arguments and timeouts are set in the configuration file
(see "deepvision init").`,
		Args: cobra.NoArgs,
		RunE: runToolsCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	return cmd
}

// runToolsCmd executes the tools command.
func runToolsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	registry, err := tool.NewRegistry(
		cfg.Adapters(tool.OSRunner{}),
		append(cfg.RegistryOptions(), tool.WithRegistryLogger(logger))...,
	)
	if err != nil {
		return err
	}

	tools := registry.Availability(cmd.Context())
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSONValue(cmd.OutOrStdout(), map[string]any{"tools": tools})
	}

	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTools(tools))
	missing := 0
	for _, t := range tools {
		if !t.Installed {
			missing++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d tools installed\n", len(tools)-missing, len(tools))
	return nil
}
