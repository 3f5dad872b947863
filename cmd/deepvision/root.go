// Package main provides the entry point for the DeepVision CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for DeepVision.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepvision",
		Short: "Forensic steganalysis for images",
		Long: `DeepVision inspects images for hidden data. Each image is run through a set of
external steganalysis tools, in-process metadata and LSB statistics, and a
bit-plane renderer. The findings are weighed into a suspicion score and a
Safe or Suspicious verdict.

Use "deepvision analyze" for files on disk and "deepvision serve" for the
HTTP service. Missing external tools are reported, never fatal.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .deepvision in current directory, XDG config or home)")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewToolsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
