// Package cmd holds the admissionsctl commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var verbose bool

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admissionsctl",
		Short:         "Admissions ranking CLI",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotenv(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newRankCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadDotenv reads .env so ADMISSIONS_* variables can fill flag defaults.
func loadDotenv(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), "no .env file, using environment variables")
			}
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "admissionsctl", Version)
		},
	}
}
