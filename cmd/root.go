// Package cmd wires the CLI surface: scan, gate, diff, checks, badge, and
// version subcommands over the analysis and policy engines.
package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/logging"
	"github.com/quantracode/VibeCheck-sub003/internal/version"
)

// exitState carries the process exit code out of commands whose outcome is
// not an error. The gate command sets 1 on a failing verdict.
type exitState struct {
	code int
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string) (int, error) {
	st := &exitState{}
	root := newRootCmd(st)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1, err
	}
	return st.code, nil
}

func newRootCmd(st *exitState) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "vibecheck",
		Short:         "vibecheck - static scanner for hallucinated protections in web app code",
		Long:          "vibecheck maps routes, middleware, and security-intent claims in a JS/TS source tree,\nthen reports protections that are claimed or implied but not actually proven in code.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logs")

	root.AddCommand(newScanCmd(&verbose))
	root.AddCommand(newGateCmd(st))
	root.AddCommand(newDiffCmd())
	root.AddCommand(newChecksCmd(st))
	root.AddCommand(newBadgeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// stdoutIsTTY reports whether stdout is an interactive terminal with color
// output not disabled via NO_COLOR.
func stdoutIsTTY() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
