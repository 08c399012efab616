package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/artifact"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/policy"
)

func newDiffCmd() *cobra.Command {
	var (
		artifactPath string
		baselinePath string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a scan artifact against a baseline artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := artifact.LoadScan(artifactPath)
			if err != nil {
				return err
			}
			baseline, err := artifact.LoadScan(baselinePath)
			if err != nil {
				return fmt.Errorf("load baseline: %w", err)
			}

			reg := policy.ComputeRegression(&baseline, current.Findings)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Baseline: %s (%d findings, generated %s)\n",
				baselinePath, reg.BaselineFindingCount, reg.BaselineGeneratedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Current:  %s (%d findings)\n\n", artifactPath, len(current.Findings))

			printFindingGroup(cmd, "New", reg.New)
			printFindingGroup(cmd, "Resolved", reg.Resolved)
			if len(reg.SeverityRegressions) > 0 {
				fmt.Fprintf(out, "Severity regressions (%d):\n", len(reg.SeverityRegressions))
				for _, sr := range reg.SeverityRegressions {
					fmt.Fprintf(out, "  %s %s: %s -> %s\n", sr.RuleID, sr.Fingerprint, sr.Previous, sr.Current)
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Persisting: %d\n", len(reg.Persisting))
			fmt.Fprintf(out, "Net change: %+d\n", reg.NetChange)
			return nil
		},
	}

	cmd.Flags().StringVarP(&artifactPath, "artifact", "a", "", "current scan artifact path")
	cmd.Flags().StringVarP(&baselinePath, "baseline", "b", "", "baseline scan artifact path")
	cmd.MarkFlagRequired("artifact")
	cmd.MarkFlagRequired("baseline")

	return cmd
}

func printFindingGroup(cmd *cobra.Command, label string, findings []model.Finding) {
	out := cmd.OutOrStdout()
	if len(findings) == 0 {
		fmt.Fprintf(out, "%s: none\n\n", label)
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", label, len(findings))
	for _, f := range findings {
		loc := ""
		if len(f.Evidence) > 0 {
			loc = fmt.Sprintf(" at %s:%d", f.Evidence[0].File, f.Evidence[0].Line)
		}
		fmt.Fprintf(out, "  [%s] %s %s%s\n", f.Severity, f.RuleID, f.Fingerprint, loc)
	}
	fmt.Fprintln(out)
}
