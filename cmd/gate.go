package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/artifact"
	"github.com/quantracode/VibeCheck-sub003/internal/config"
	"github.com/quantracode/VibeCheck-sub003/internal/model"
	"github.com/quantracode/VibeCheck-sub003/internal/policy"
	"github.com/quantracode/VibeCheck-sub003/internal/report"
)

func newGateCmd(st *exitState) *cobra.Command {
	var (
		artifactPath string
		reportPath   string
		markdownPath string
		profileName  string
		policyPath   string
		waiversPath  string
		baselinePath string
	)

	cmd := &cobra.Command{
		Use:   "gate [path]",
		Short: "Evaluate a scan artifact against policy and emit a pass/warn/fail verdict",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("profile") && cfg.Profile != "" {
				profileName = cfg.Profile
			}
			if !cmd.Flags().Changed("policy") && cfg.Policy != "" {
				policyPath = cfg.Policy
			}
			if !cmd.Flags().Changed("waivers") && cfg.Waivers != "" {
				waiversPath = cfg.Waivers
			}
			if !cmd.Flags().Changed("baseline") && cfg.Baseline != "" {
				baselinePath = cfg.Baseline
			}
			if artifactPath == "" {
				artifactPath = filepath.Join(root, ".vibecheck", "scan.json")
			}
			if reportPath == "" {
				reportPath = filepath.Join(root, ".vibecheck", "report.json")
			}

			art, err := artifact.LoadScan(artifactPath)
			if err != nil {
				return err
			}

			pcfg, usedProfile, err := resolvePolicy(root, policyPath, profileName)
			if err != nil {
				return err
			}

			var waivers []model.Waiver
			if waiversPath == "" {
				def := filepath.Join(root, ".vibecheck", "waivers.yaml")
				if _, statErr := os.Stat(def); statErr == nil {
					waiversPath = def
				}
			}
			if waiversPath != "" {
				wf, err := artifact.LoadWaivers(waiversPath)
				if err != nil {
					return err
				}
				waivers = wf.Waivers
			}

			var baseline *model.ScanArtifact
			if baselinePath != "" {
				b, err := artifact.LoadScan(baselinePath)
				if err != nil {
					return fmt.Errorf("load baseline: %w", err)
				}
				baseline = &b
			}

			rep := policy.Evaluate(policy.Input{
				Findings:    art.Findings,
				Waivers:     waivers,
				Config:      pcfg,
				ProfileName: usedProfile,
				Baseline:    baseline,
				Artifact: policy.ArtifactRef{
					Path:        artifactPath,
					GeneratedAt: art.GeneratedAt,
					RepoName:    art.Repo,
				},
			})

			if err := artifact.SaveReport(reportPath, rep); err != nil {
				return err
			}
			if markdownPath != "" {
				if err := report.WriteMarkdown(markdownPath, art, &rep); err != nil {
					return err
				}
			}

			printVerdict(cmd, rep, reportPath)
			st.code = rep.ExitCode
			return nil
		},
	}

	cmd.Flags().StringVarP(&artifactPath, "artifact", "a", "", "scan artifact path (default <path>/.vibecheck/scan.json)")
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "report output path (default <path>/.vibecheck/report.json)")
	cmd.Flags().StringVar(&markdownPath, "markdown", "", "also write a markdown report to this path")
	cmd.Flags().StringVarP(&profileName, "profile", "p", "startup", "policy profile: startup|strict|compliance-lite")
	cmd.Flags().StringVar(&policyPath, "policy", "", "policy config path (default <path>/.vibecheck/policy.yaml if present)")
	cmd.Flags().StringVarP(&waiversPath, "waivers", "w", "", "waivers file path (default <path>/.vibecheck/waivers.yaml if present)")
	cmd.Flags().StringVarP(&baselinePath, "baseline", "b", "", "baseline scan artifact for regression comparison")

	return cmd
}

// resolvePolicy picks the policy source: an explicit config file wins, then a
// repo-local policy.yaml, then the named profile.
func resolvePolicy(root, policyPath, profileName string) (policy.PolicyConfig, string, error) {
	if policyPath != "" {
		cfg, err := policy.Load(policyPath)
		return cfg, "", err
	}
	def := policy.DefaultPath(root)
	if _, err := os.Stat(def); err == nil {
		cfg, err := policy.Load(def)
		return cfg, "", err
	}
	cfg, err := policy.Profile(profileName)
	return cfg, profileName, err
}

func printVerdict(cmd *cobra.Command, rep policy.PolicyReport, reportPath string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verdict: %s\n", strings.ToUpper(rep.Status))
	if rep.ProfileName != "" {
		fmt.Fprintf(out, "Profile: %s\n", rep.ProfileName)
	}
	for _, r := range rep.Reasons {
		fmt.Fprintf(out, "  [%s] %s: %s\n", r.Status, r.Code, r.Message)
	}
	if n := len(rep.WaivedFindings); n > 0 {
		fmt.Fprintf(out, "Waived: %d finding(s)\n", n)
	}
	if n := len(rep.ExpiredWaivers); n > 0 {
		fmt.Fprintf(out, "Expired waivers: %d (no longer suppressing)\n", n)
	}
	if rep.Regression != nil {
		fmt.Fprintf(out, "Regression: %d new, %d resolved, net %+d\n",
			len(rep.Regression.New), len(rep.Regression.Resolved), rep.Regression.NetChange)
	}
	fmt.Fprintf(out, "Active findings: %d\n", len(rep.ActiveFindings))
	fmt.Fprintf(out, "Report written to %s\n", reportPath)
}
