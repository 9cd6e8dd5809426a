package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

func newRunCommand(logger *slog.Logger) *cobra.Command {
	var (
		fromFlag string
		days     int
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduling run over a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := scheduler.ParseDate(fromFlag)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			window := scheduler.Window{From: from, To: from.AddDays(days - 1)}

			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.LoadSnapshot(cmd.Context(), window)
			if err != nil {
				return err
			}

			// One-shot invocation: nothing serves a metrics endpoint, so no
			// recorder is wired. The serve command registers one.
			orch := scheduler.New(cfg.Scheduling, scheduler.WithLogger(logger))
			rec, err := orch.Run(cmd.Context(), window, snap)
			if err != nil {
				return err
			}

			renderRunRecord(rec)

			if save {
				if err := store.SaveRunRecord(cmd.Context(), rec); err != nil {
					return fmt.Errorf("save run record: %w", err)
				}
				logger.Info("run record saved", "run_id", rec.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "first day of the window (2006-01-02)")
	cmd.Flags().IntVar(&days, "days", 3, "window length in days")
	cmd.Flags().BoolVar(&save, "save", true, "persist the run record for approval")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func renderRunRecord(rec *scheduler.RunRecord) {
	header := color.New(color.Bold)
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)

	header.Fprintf(os.Stdout, "Run %s (%s .. %s) %s\n", rec.ID, rec.Window.From, rec.Window.To, rec.Status)
	for _, wc := range rec.WaveCounts {
		fmt.Fprintf(os.Stdout, "  wave %-10s attempted %3d  scheduled %3d\n", wc.Wave, wc.Attempted, wc.Scheduled)
	}
	ok.Fprintf(os.Stdout, "Proposals: %d\n", len(rec.Proposals))
	for _, p := range rec.Proposals {
		fmt.Fprintf(os.Stdout, "  %-12s %s -> %s slot %d (%s)\n", p.EventID, p.EventType, p.EmployeeID, p.Slot, p.Date)
	}
	if len(rec.Relocations) > 0 {
		warn.Fprintf(os.Stdout, "Relocations: %d\n", len(rec.Relocations))
		for _, r := range rec.Relocations {
			fmt.Fprintf(os.Stdout, "  %-12s %s slot %d -> %s slot %d\n", r.EventID, r.From.Date, r.From.Slot, r.To.Date, r.To.Slot)
		}
	}
	if len(rec.Unscheduled) > 0 {
		bad.Fprintf(os.Stdout, "Unscheduled: %d\n", len(rec.Unscheduled))
		for _, u := range rec.Unscheduled {
			fmt.Fprintf(os.Stdout, "  %-12s due %s  %s\n", u.Event.ID, u.Event.DueDate, u.Reason)
		}
	}
}
