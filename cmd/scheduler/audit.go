package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/workforce-scheduler/internal/audit"
	"github.com/example/workforce-scheduler/internal/scheduler"
)

func newAuditCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-validate committed schedules",
	}
	cmd.AddCommand(newAuditDayCommand(logger))
	cmd.AddCommand(newAuditWeekCommand(logger))
	return cmd
}

func newAuditDayCommand(logger *slog.Logger) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Audit one committed day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := scheduler.ParseDate(dateFlag)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.LoadSnapshot(cmd.Context(), scheduler.Window{From: day, To: day})
			if err != nil {
				return err
			}
			issues := audit.New(cfg.Scheduling, logger).AuditDay(day, snap)
			renderIssues(fmt.Sprintf("Audit %s", day), issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "day to audit (2006-01-02)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newAuditWeekCommand(logger *slog.Logger) *cobra.Command {
	var startFlag string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Audit one committed ISO week",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := scheduler.ParseDate(startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.LoadSnapshot(cmd.Context(), scheduler.Window{From: start, To: start.AddDays(6)})
			if err != nil {
				return err
			}
			issues := audit.New(cfg.Scheduling, logger).AuditWeek(start, snap)
			renderIssues(fmt.Sprintf("Audit week of %s", start), issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&startFlag, "start", "", "Monday of the week to audit (2006-01-02)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func renderIssues(title string, issues []audit.Issue) {
	color.New(color.Bold).Fprintln(os.Stdout, title)
	severityColors := map[audit.Severity]*color.Color{
		audit.SeverityCritical: color.New(color.FgRed),
		audit.SeverityWarning:  color.New(color.FgYellow),
		audit.SeverityInfo:     color.New(color.FgCyan),
	}
	for _, issue := range issues {
		c := severityColors[issue.Severity]
		c.Fprintf(os.Stdout, "  [%s] %s: %s\n", issue.Severity, issue.Rule, issue.Message)
	}
	score := audit.HealthScore(issues)
	scoreColor := color.New(color.FgGreen)
	switch {
	case score < 50:
		scoreColor = color.New(color.FgRed)
	case score < 80:
		scoreColor = color.New(color.FgYellow)
	}
	scoreColor.Fprintf(os.Stdout, "Health score: %d\n", score)
}
