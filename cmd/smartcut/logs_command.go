package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smartcut/internal/logging"
	"smartcut/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var day string

	cmd := &cobra.Command{
		Use:   "logs [video]",
		Short: "Print recent log lines, optionally for one video",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			when := time.Now()
			if day != "" {
				when, err = time.ParseInLocation("2006-01-02", day, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", day)
				}
			}
			path := logging.LogFilePath(cfg.Paths.LogDir, when)

			var filter logs.Filter
			if len(args) == 1 {
				sess, err := ctx.loadSession(cmd, args[0])
				if err != nil {
					return err
				}
				filter = logs.Contains(sess.UID)
			}

			tail, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(commandContextOf(cmd), path, offset, 500*time.Millisecond, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&day, "day", "", "Read the log for a past day (YYYY-MM-DD)")
	return cmd
}
