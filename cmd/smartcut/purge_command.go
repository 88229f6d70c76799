package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"smartcut/internal/logging"
	"smartcut/internal/quarantine"
)

// staleWorkAge is how long a scratch directory may sit in the work dir
// before purge treats it as abandoned.
const staleWorkAge = 24 * time.Hour

func newPurgeCommand(ctx *commandContext) *cobra.Command {
	var days int
	var list bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove old trash and error directories, stale scratch files, and old logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				for _, root := range []struct{ label, dir string }{
					{"Trash", cfg.Paths.TrashDir},
					{"Error", cfg.Paths.ErrorDir},
				} {
					if err := listQuarantine(out, root.label, root.dir); err != nil {
						return err
					}
				}
				return nil
			}

			if !cmd.Flags().Changed("days") {
				days = cfg.Cleanup.PurgeDays
			}
			runCtx := commandContextOf(cmd)
			trash := quarantine.Purge(runCtx, cfg.Paths.TrashDir, days, logger)
			errored := quarantine.Purge(runCtx, cfg.Paths.ErrorDir, days, logger)
			work := quarantine.CleanStale(runCtx, cfg.Paths.WorkDir, staleWorkAge, logger)
			logs := logging.PruneDailyLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())

			fmt.Fprintf(out, "Trash directories removed:   %d\n", len(trash.Removed))
			fmt.Fprintf(out, "Error directories removed:   %d\n", len(errored.Removed))
			fmt.Fprintf(out, "Stale scratch dirs removed:  %d\n", len(work.Removed))
			fmt.Fprintf(out, "Old log files removed:       %d\n", logs)

			var failed int
			for _, res := range []quarantine.CleanupResult{trash, errored, work} {
				for _, e := range res.Errors {
					failed++
					fmt.Fprintf(out, "  could not remove %s: %v\n", e.Path, e.Error)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d directories could not be removed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Remove dated directories older than this many days (default from config)")
	cmd.Flags().BoolVar(&list, "list", false, "List trash and error directories instead of purging")
	return cmd
}

func listQuarantine(out io.Writer, label, root string) error {
	dirs, err := quarantine.ListDirectories(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s)\n", label, root)
	if len(dirs) == 0 {
		fmt.Fprintln(out, "  empty")
		return nil
	}
	rows := make([][]string, 0, len(dirs))
	for _, d := range dirs {
		rows = append(rows, []string{d.Name, fmt.Sprintf("%d", d.Files), humanize.IBytes(uint64(max(d.Size, 0))), d.ModTime.Local().Format(time.DateTime)})
	}
	fmt.Fprintln(out, renderTable([]column{left("Directory"), right("Files"), right("Size"), left("Modified")}, rows))
	return nil
}
