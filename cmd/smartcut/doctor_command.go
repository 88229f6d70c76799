package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"smartcut/internal/deps"
	"smartcut/internal/notifications"
	"smartcut/internal/preflight"
	"smartcut/internal/session"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var notify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and stored sessions",
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
			p, err := buildPipeline(cfg, store, logger)
			if err != nil {
				return err
			}
			runCtx := commandContextOf(cmd)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var failures int
			report := func(label string, kind statusKind, detail string) {
				if kind == statusError {
					failures++
				}
				fmt.Fprintln(out, renderStatusLine(label, kind, detail, colorize))
			}

			section(out, "Directories", colorize)
			for _, check := range []preflight.Result{
				preflight.CheckDirectoryAccess("State", cfg.Paths.StateDir),
				preflight.CheckDirectoryAccess("Work", cfg.Paths.WorkDir),
				preflight.CheckDirectoryAccess("Output", cfg.Paths.OutputDir),
				preflight.CheckDirectoryAccess("Error", cfg.Paths.ErrorDir),
				preflight.CheckDirectoryAccess("Trash", cfg.Paths.TrashDir),
			} {
				report(check.Name, resultKind(check, false), check.Detail)
			}

			section(out, "Dependencies", colorize)
			for _, status := range preflight.CheckSystemDeps(runCtx, cfg) {
				report(status.Name, dependencyKind(status), dependencyDetail(status))
			}

			section(out, "Accelerator", colorize)
			accelCheck := preflight.CheckAccelerator(runCtx, cfg, p.memory)
			report(accelCheck.Name, resultKind(accelCheck, true), accelCheck.Detail)

			section(out, "LLM", colorize)
			if offline {
				report("LLM endpoint", statusInfo, "skipped (--offline)")
			} else {
				llmCheck := preflight.CheckLLM(runCtx, cfg.LLM)
				report(llmCheck.Name, resultKind(llmCheck, false), llmCheck.Detail)
			}

			section(out, "Notifications", colorize)
			notifier := notifications.NewService(cfg.Notifications)
			switch {
			case !notifications.Enabled(notifier):
				report("ntfy", statusInfo, "disabled (notifications.ntfy_topic not set)")
			case notify && !offline:
				if err := notifier.Test(runCtx); err != nil {
					report("ntfy", statusWarn, err.Error())
				} else {
					report("ntfy", statusOK, "test message sent to "+cfg.Notifications.NtfyTopic)
				}
			default:
				report("ntfy", statusInfo, cfg.Notifications.NtfyTopic)
			}

			section(out, "Stages", colorize)
			for _, health := range p.manager.Health(runCtx) {
				kind := statusOK
				detail := health.Detail
				if !health.Ready {
					kind = statusError
				}
				if detail == "" {
					detail = "ready"
				}
				report(health.Name, kind, detail)
			}

			section(out, "Sessions", colorize)
			summaries, err := store.List(runCtx)
			if err != nil {
				report("Session store", statusError, err.Error())
			} else {
				for _, line := range sessionCounts(summaries) {
					report(line[0], statusInfo, line[1])
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d checks failed", failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the LLM endpoint and notification checks")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification")
	return cmd
}

func section(out io.Writer, title string, colorize bool) {
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func resultKind(r preflight.Result, optional bool) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyDetail(status deps.Status) string {
	if status.Available {
		if status.Path != "" {
			return status.Path
		}
		return status.Description
	}
	return fmt.Sprintf("%s (%s)", status.Detail, status.Description)
}

func sessionCounts(summaries []session.Summary) [][2]string {
	if len(summaries) == 0 {
		return [][2]string{{"Sessions", "none stored"}}
	}
	counts := make(map[session.Status]int)
	for _, s := range summaries {
		counts[s.Status]++
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	lines := make([][2]string, 0, len(statuses))
	for _, status := range statuses {
		lines = append(lines, [2]string{status, fmt.Sprintf("%d", counts[session.Status(status)])})
	}
	return lines
}
