package main

import (
	"bidmaster/internal/database"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

const (
	statusCommand         = "status"
	statusDeadLetterLimit = 20
	statusErrorMaxRunes   = 80
)

type ledgerReader interface {
	LastJobRun(ctx context.Context, job string) (*database.JobRun, error)
	DeadLetters(ctx context.Context, job string, limit uint64) ([]database.DeadLetter, error)
}

// printStatus writes the last run of every job and the newest dead letters.
// A non-empty job narrows both sections to that job.
func printStatus(ctx context.Context, w io.Writer, ledger ledgerReader, jobs []string, job string) error {
	if job != "" {
		jobs = []string{job}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "JOB\tSTATUS\tSTARTED\tDURATION\tSUMMARY\tERROR")
	for _, name := range jobs {
		run, err := ledger.LastJobRun(ctx, name)
		if err != nil {
			return fmt.Errorf("read last run (job = %s): %w", name, err)
		}

		if run == nil {
			fmt.Fprintf(tw, "%s\tnever\t-\t-\t-\t-\n", name)
			continue
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.Job,
			run.Status,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt),
			orDash(run.Summary),
			orDash(shorten(run.Error, statusErrorMaxRunes)))
	}

	deadLetters, err := ledger.DeadLetters(ctx, job, statusDeadLetterLimit)
	if err != nil {
		return fmt.Errorf("read dead letters: %w", err)
	}

	fmt.Fprintf(tw, "\nDEAD LETTERS (newest %d)\n", statusDeadLetterLimit)
	fmt.Fprintln(tw, "CREATED\tJOB\tREASON\tITEM\tERROR")
	for _, dl := range deadLetters {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			dl.CreatedAt.Format(time.RFC3339),
			dl.Job,
			dl.Reason,
			dl.ItemKey,
			shorten(dl.Error, statusErrorMaxRunes))
	}

	if err = tw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// shorten keeps one line of at most maxRunes runes.
func shorten(s string, maxRunes int) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")

	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}

	return string(runes[:maxRunes]) + "..."
}
