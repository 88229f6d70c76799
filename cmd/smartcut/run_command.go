package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"smartcut/internal/services"
	"smartcut/internal/session"
	"smartcut/internal/workflow"
)

type runSummary struct {
	Source      string   `json:"source"`
	Session     string   `json:"session,omitempty"`
	Status      string   `json:"status,omitempty"`
	Stage       string   `json:"stage,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Failed      int      `json:"failed_segments"`
	AlreadyDone bool     `json:"already_done,omitempty"`
	Incomplete  bool     `json:"incomplete,omitempty"`
	TrashedTo   string   `json:"trashed_to,omitempty"`
	Error       string   `json:"error,omitempty"`
	ErrorKind   string   `json:"error_kind,omitempty"`
	Hint        string   `json:"hint,omitempty"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var preflightFlag bool
	var jsonOutput bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run <video>...",
		Short: "Segment, analyse, harmonize, and cut videos",
		Long: "Run the pipeline over each video. Interrupted runs resume from the last\n" +
			"checkpoint; finished sessions are reported without reprocessing.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			opts := []workflow.ManagerOption{workflow.WithPreflight(preflightFlag)}
			var progress *stageProgress
			if !noProgress && !jsonOutput && shouldColorize(os.Stderr) {
				progress = &stageProgress{out: os.Stderr}
				opts = append(opts, workflow.WithProgress(progress.update))
			}
			p, err := buildPipeline(cfg, store, logger, opts...)
			if err != nil {
				return err
			}

			runCtx := commandContextOf(cmd)
			summaries := make([]runSummary, 0, len(args))
			var failures int
			for _, path := range args {
				res, runErr := p.manager.Run(runCtx, path)
				if progress != nil {
					progress.finish()
				}
				summary := summarizeRun(path, res, runErr)
				summaries = append(summaries, summary)
				if runErr != nil {
					failures++
					if errors.Is(runErr, context.Canceled) {
						break
					}
				}
				if !jsonOutput {
					printRunSummary(cmd.OutOrStdout(), summary)
				}
			}
			if jsonOutput {
				if err := writeJSON(cmd, summaries); err != nil {
					return err
				}
			}
			if err := runCtx.Err(); err != nil {
				return err
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d videos failed", failures, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&preflightFlag, "preflight", true, "Check directories and binaries before each video")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print run summaries as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	return cmd
}

func summarizeRun(path string, res workflow.Result, err error) runSummary {
	summary := runSummary{
		Source:      path,
		Stage:       string(res.Stage),
		Outputs:     res.Outputs,
		Failed:      res.Failed,
		AlreadyDone: res.AlreadyDone,
		Incomplete:  res.Incomplete,
		TrashedTo:   res.TrashedTo,
	}
	if res.Session != nil {
		summary.Session = res.Session.UID
		summary.Status = string(res.Session.Status)
	}
	if err != nil {
		details := services.Details(err)
		summary.Error = err.Error()
		summary.ErrorKind = details.Kind
		summary.Hint = details.Hint
	}
	return summary
}

func printRunSummary(out io.Writer, s runSummary) {
	name := filepath.Base(s.Source)
	switch {
	case s.Error != "":
		fmt.Fprintf(out, "%s: failed: %s\n", name, s.Error)
		if s.Hint != "" {
			fmt.Fprintf(out, "  hint: %s\n", s.Hint)
		}
	case s.AlreadyDone:
		fmt.Fprintf(out, "%s: already complete (%d segments)\n", name, len(s.Outputs))
	case s.Incomplete:
		fmt.Fprintf(out, "%s: paused in %s with segments pending; run again to resume\n", name, s.Stage)
	default:
		fmt.Fprintf(out, "%s: %d segments written", name, len(s.Outputs))
		if s.Failed > 0 {
			fmt.Fprintf(out, ", %d failed (see `smartcut failed`)", s.Failed)
		}
		fmt.Fprintln(out)
		if s.TrashedTo != "" {
			fmt.Fprintf(out, "  source moved to %s\n", s.TrashedTo)
		}
	}
}

// stageProgress renders one progress bar per per-segment stage.
type stageProgress struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	stage session.Stage
}

func (p *stageProgress) update(stage session.Stage, done, total int) {
	if p.bar == nil || stage != p.stage {
		p.finish()
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(fmt.Sprintf("%-10s", stage)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
		)
	}
	_ = p.bar.Set(done)
}

func (p *stageProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
	p.stage = ""
}
