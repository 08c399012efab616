package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantracode/VibeCheck-sub003/internal/artifact"
	"github.com/quantracode/VibeCheck-sub003/internal/config"
	"github.com/quantracode/VibeCheck-sub003/internal/progress"
	"github.com/quantracode/VibeCheck-sub003/internal/report"
	"github.com/quantracode/VibeCheck-sub003/internal/scan"
	"github.com/quantracode/VibeCheck-sub003/internal/tui"
)

func newScanCmd(verbose *bool) *cobra.Command {
	var (
		out            string
		format         string
		sarifPath      string
		markdownPath   string
		checksDir      string
		noCustomChecks bool
		workers        int
		enableTUI      bool
		disableTUI     bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a source tree and write a scan artifact",
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
			if !cmd.Flags().Changed("checks-dir") && cfg.ChecksDir != "" {
				checksDir = cfg.ChecksDir
			}
			if !cmd.Flags().Changed("no-custom-checks") && cfg.NoCustom != nil {
				noCustomChecks = *cfg.NoCustom
			}
			if !cmd.Flags().Changed("workers") && cfg.Workers != nil {
				workers = *cfg.Workers
			}
			if !cmd.Flags().Changed("format") && cfg.Format != "" {
				format = cfg.Format
			}
			if workers < 1 {
				return fmt.Errorf("--workers must be >= 1")
			}
			switch format {
			case "human", "json":
			default:
				return fmt.Errorf("--format must be human or json, got %q", format)
			}
			if out == "" {
				out = filepath.Join(root, ".vibecheck", "scan.json")
			}

			opts := scan.Options{
				Root:           root,
				ChecksDir:      checksDir,
				NoCustomChecks: noCustomChecks,
				MaxParallel:    workers,
			}

			useTUI := enableTUI && !disableTUI && format == "human" && stdoutIsTTY()

			var result scan.Result
			var scanErr error
			if useTUI {
				events := make(chan progress.Event, 256)
				opts.Sink = progress.NewChannelSink(events)
				done := make(chan struct{})
				go func() {
					defer close(done)
					defer close(events)
					result, scanErr = scan.Run(cmd.Context(), opts)
				}()
				if err := tui.Run(tui.Options{Events: events}); err != nil {
					return err
				}
				<-done
			} else {
				if *verbose {
					opts.Sink = progress.NewPlainSink(cmd.ErrOrStderr())
				}
				result, scanErr = scan.Run(cmd.Context(), opts)
			}
			if scanErr != nil {
				return scanErr
			}
			art := result.Artifact

			if err := artifact.SaveScan(out, art); err != nil {
				return err
			}
			if sarifPath != "" {
				if err := report.WriteSARIF(sarifPath, art); err != nil {
					return err
				}
			}
			if markdownPath != "" {
				if err := report.WriteMarkdown(markdownPath, art, nil); err != nil {
					return err
				}
			}

			switch format {
			case "json":
				s, err := scan.FormatJSON(art)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
			default:
				fmt.Fprint(cmd.OutOrStdout(), scan.FormatHuman(art, stdoutIsTTY()))
				fmt.Fprintf(cmd.OutOrStdout(), "\nArtifact written to %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact output path (default <path>/.vibecheck/scan.json)")
	cmd.Flags().StringVarP(&format, "format", "f", "human", "output format: human|json")
	cmd.Flags().StringVar(&sarifPath, "sarif", "", "also write a SARIF 2.1.0 report to this path")
	cmd.Flags().StringVar(&markdownPath, "markdown", "", "also write a markdown report to this path")
	cmd.Flags().StringVar(&checksDir, "checks-dir", "", "custom checks directory (default <path>/.vibecheck/checks)")
	cmd.Flags().BoolVar(&noCustomChecks, "no-custom-checks", false, "run built-in detectors only")
	cmd.Flags().IntVar(&workers, "workers", 4, "max concurrent detectors")
	cmd.Flags().BoolVar(&enableTUI, "tui", false, "enable interactive terminal UI")
	cmd.Flags().BoolVar(&disableTUI, "no-tui", false, "disable interactive terminal UI")

	return cmd
}
