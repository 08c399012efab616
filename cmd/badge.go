package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/artifact"
	"github.com/quantracode/VibeCheck-sub003/internal/badge"
	"github.com/quantracode/VibeCheck-sub003/internal/safefile"
)

func newBadgeCmd() *cobra.Command {
	var (
		artifactPath string
		out          string
		format       string
		style        string
		label        string
	)

	cmd := &cobra.Command{
		Use:   "badge",
		Short: "Generate a posture badge from a scan artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := artifact.LoadScan(artifactPath)
			if err != nil {
				return err
			}

			grade, color := badge.Grade(art.Summary, art.Metrics)

			var rendered string
			switch format {
			case "svg":
				rendered = badge.RenderSVG(label, grade, color, badge.ParseStyle(style))
			case "shields":
				rendered = badge.ShieldsJSON(label, grade, color)
			default:
				return fmt.Errorf("--format must be svg or shields, got %q", format)
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), rendered)
				return nil
			}
			if err := safefile.WriteFileAtomic(out, []byte(rendered+"\n"), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Badge (%s) written to %s\n", grade, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&artifactPath, "artifact", "a", "", "scan artifact path")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "badge format: svg|shields")
	cmd.Flags().StringVar(&style, "style", "flat", "svg style: flat|flat-square")
	cmd.Flags().StringVar(&label, "label", "vibecheck", "badge label text")
	cmd.MarkFlagRequired("artifact")

	return cmd
}
