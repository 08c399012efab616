package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/checks"
)

func newChecksCmd(st *exitState) *cobra.Command {
	var checksDir string

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Manage custom check definitions",
	}
	cmd.PersistentFlags().StringVar(&checksDir, "checks-dir", "", "custom checks directory (default ./.vibecheck/checks)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List custom checks that load cleanly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := checks.LoadDir(resolveChecksDir(checksDir))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Definitions) == 0 {
				fmt.Fprintln(out, "No custom checks found.")
			}
			for _, def := range res.Definitions {
				fmt.Fprintf(out, "%-20s %-8s %s\n", def.ID, def.Severity, def.Title)
			}
			if res.Skipped > 0 {
				fmt.Fprintf(out, "\n%d definition(s) skipped due to errors, run 'vibecheck checks validate' for details\n", res.Skipped)
			}
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate custom check definitions and report broken ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := resolveChecksDir(checksDir)
			res, err := checks.LoadDir(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d valid definition(s) in %s\n", len(res.Definitions), dir)
			if res.Skipped > 0 {
				fmt.Fprintf(out, "%d invalid definition(s) skipped, re-run with --verbose for parse errors\n", res.Skipped)
				st.code = 1
			}
			return nil
		},
	}

	cmd.AddCommand(list, validate)
	return cmd
}

func resolveChecksDir(dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(".", ".vibecheck", "checks")
}
