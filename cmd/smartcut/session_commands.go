package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"smartcut/internal/services"
	"smartcut/internal/session"
	"smartcut/internal/workflow"
)

// manager builds a workflow manager for session maintenance. It carries no
// stage handlers, so it must not be used to Run.
func (c *commandContext) manager() (*workflow.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return workflow.NewManager(cfg, store, nil, nil, logger), nil
}

func (c *commandContext) loadSession(cmd *cobra.Command, path string) (*session.Session, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	key, err := workflow.SessionKey(path)
	if err != nil {
		return nil, err
	}
	sess, err := store.Load(commandContextOf(cmd), key)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("no session for %s", key)
	}
	return sess, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			summaries, err := store.List(commandContextOf(cmd))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summaries)
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No sessions")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					shortUID(s.UID),
					s.Name,
					string(s.Status),
					fmt.Sprintf("%d", s.Segments),
					fmt.Sprintf("%d", s.Failed),
					formatSeconds(s.Duration),
					s.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				left("Session"), clipped("Name", 32), left("Status"), right("Segments"),
				right("Failed"), right("Duration"), left("Updated"),
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print sessions as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <video>",
		Short: "Show a session and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession(cmd, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, sess)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:    %s\n", sess.UID)
			fmt.Fprintf(out, "Source:     %s\n", sess.VideoPath)
			failed := len(sess.FailedSegments())
			status := string(sess.Status)
			if failed > 0 {
				status = fmt.Sprintf("%s, %d failed", status, failed)
			}
			if shouldColorize(out) {
				status = statusColors[sessionStatusKind(sess.Status, failed)].Sprint(status)
			}
			fmt.Fprintf(out, "Status:     %s\n", status)
			fmt.Fprintf(out, "Duration:   %ss\n", formatSeconds(sess.Duration))
			if sess.Resolution != "" {
				fmt.Fprintf(out, "Video:      %s %s @ %.3g fps\n", sess.Codec, sess.Resolution, sess.FPS)
			}
			fmt.Fprintf(out, "Audio:      %s\n", yesNo(sess.HasAudio))
			fmt.Fprintf(out, "Coverage:   %.1f%%\n", sess.Coverage()*100)
			if len(sess.Segments) == 0 {
				fmt.Fprintln(out, "No segments")
				return nil
			}
			fmt.Fprintln(out, renderSegmentTable(sess.Segments))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the session as JSON")
	return cmd
}

func renderSegmentTable(segments []*session.Segment) string {
	rows := make([][]string, 0, len(segments))
	for _, seg := range segments {
		merged := ""
		if seg.Merged() {
			merged = fmt.Sprintf("%d", len(seg.MergedFrom))
		}
		rows = append(rows, []string{
			seg.ShortUID(),
			formatSeconds(seg.Start),
			formatSeconds(seg.End),
			string(seg.Status),
			fmt.Sprintf("%.3f", seg.Confidence),
			merged,
			strings.Join(seg.Keywords, ", "),
		})
	}
	return renderTable([]column{
		left("Segment"), right("Start"), right("End"), left("Status"),
		right("Confidence"), right("Merged"), clipped("Keywords", 48),
	}, rows)
}

func newFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failed <video>",
		Short: "List failed segments and the session error log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.loadSession(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := sess.FailedSegments()
			if len(failed) == 0 {
				fmt.Fprintln(out, "No failed segments")
			} else {
				rows := make([][]string, 0, len(failed))
				for _, seg := range failed {
					rows = append(rows, []string{
						seg.ShortUID(),
						formatSeconds(seg.Start),
						formatSeconds(seg.End),
						string(seg.FailedStage),
						fmt.Sprintf("%d", seg.Attempts),
						seg.Error,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					left("Segment"), right("Start"), right("End"), left("Stage"),
					right("Attempts"), clipped("Error", 60),
				}, rows))
			}
			if len(sess.Errors) > 0 {
				fmt.Fprintln(out, "Error log:")
				for _, entry := range sess.Errors {
					target := "session"
					if entry.SegmentUID != "" {
						target = shortUID(entry.SegmentUID)
					}
					fmt.Fprintf(out, "  %s [%s] %s: %s\n", entry.CreatedAt.Local().Format(time.DateTime), entry.Stage, target, entry.Message)
				}
			}
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <video> [segment-uid...]",
		Short: "Reset failed segments so the next run processes them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.manager()
			if err != nil {
				return err
			}
			reset, err := manager.Retry(commandContextOf(cmd), args[0], args[1:]...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(reset) == 0 {
				fmt.Fprintln(out, "No failed segments to retry")
				return nil
			}
			for _, seg := range reset {
				fmt.Fprintf(out, "Reset segment %s (%s-%s)\n", seg.ShortUID(), formatSeconds(seg.Start), formatSeconds(seg.End))
			}
			fmt.Fprintf(out, "Run `smartcut run %s` to process them\n", args[0])
			return nil
		},
	}
}

func newDropCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <video> <segment-uid>",
		Short: "Remove a segment from a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.manager()
			if err != nil {
				return err
			}
			seg, err := manager.Drop(commandContextOf(cmd), args[0], args[1])
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("segment %q not found in %s", args[1], args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped segment %s (%s-%s)\n", seg.ShortUID(), formatSeconds(seg.Start), formatSeconds(seg.End))
			return nil
		},
	}
}

func newForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <video>",
		Short: "Delete the stored session for a video; output files are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.manager()
			if err != nil {
				return err
			}
			removed, err := manager.Forget(commandContextOf(cmd), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "No session stored")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session removed")
			return nil
		},
	}
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}
