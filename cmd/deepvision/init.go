package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new DeepVision configuration file",
		Long: `Initialize creates a new .deepvision configuration file in the current directory.

The generated file includes:
- Default tool timeout and per-tool overrides
- Scoring weights and LSB thresholds
- Bit-plane channel and bit selection

Examples:
  # Create .deepvision in current directory
  deepvision init

  # Create the user-wide config in the XDG config directory
  deepvision init --global

  # Create config file at a specific path
  deepvision init -o myconfig.yaml

  # Force overwrite existing file
  deepvision init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().BoolP("global", "g", false,
		"Write to the XDG config directory instead of the current directory")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	global, err := cmd.Flags().GetBool("global")
	if err != nil {
		return err
	}
	if global {
		if changed(cmd, "output") {
			return fmt.Errorf("--global and --output are mutually exclusive")
		}
		outputPath = filepath.Join(config.XDGConfigDir(), "config.yaml")
	}

	if err := config.WriteTemplate(outputPath, force); err != nil {
		return fmt.Errorf("failed to write configuration file: %w (use -f to overwrite)", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - Tool paths, extra arguments and timeouts")
	fmt.Fprintln(out, "  - Scoring weights per tool")
	fmt.Fprintln(out, "  - LSB thresholds and rendered bit planes")
	return nil
}
