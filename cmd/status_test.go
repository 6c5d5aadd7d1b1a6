package main

import (
	"bidmaster/internal/database"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubLedger struct {
	runs        map[string]*database.JobRun
	deadLetters []database.DeadLetter
	gotJob      string
	gotLimit    uint64
	err         error
}

func (l *stubLedger) LastJobRun(_ context.Context, job string) (*database.JobRun, error) {
	return l.runs[job], l.err
}

func (l *stubLedger) DeadLetters(_ context.Context, job string, limit uint64) ([]database.DeadLetter, error) {
	l.gotJob = job
	l.gotLimit = limit

	return l.deadLetters, nil
}

func TestPrintStatus(t *testing.T) {
	started := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	ledger := &stubLedger{
		runs: map[string]*database.JobRun{
			"radar": {
				Job:        "radar",
				Status:     database.JobStatusFailed,
				Error:      "topic \"https://broken\": draft: malformed draft\nsecond line",
				Summary:    "entries=2 matched=1",
				StartedAt:  started,
				FinishedAt: started.Add(90 * time.Second),
			},
		},
		deadLetters: []database.DeadLetter{{
			Job:       "radar",
			ItemKey:   "https://broken",
			Reason:    "draft",
			Error:     "malformed draft",
			CreatedAt: started,
		}},
	}

	var out bytes.Buffer
	if err := printStatus(context.Background(), &out, ledger, []string{"radar", "crier"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"2026-10-18T06:00:00Z",
		"1m30s",
		"entries=2 matched=1",
		"crier  never",
		"DEAD LETTERS (newest 20)",
		"https://broken",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, text)
		}
	}

	if strings.Contains(text, "second line") {
		t.Errorf("expected run error to be cut to one line, got:\n%s", text)
	}

	if ledger.gotJob != "" || ledger.gotLimit != statusDeadLetterLimit {
		t.Fatalf("unexpected dead letter query: job=%q limit=%d", ledger.gotJob, ledger.gotLimit)
	}
}

func TestPrintStatusNarrowsToJob(t *testing.T) {
	ledger := &stubLedger{}

	var out bytes.Buffer
	if err := printStatus(context.Background(), &out, ledger, []string{"radar", "crier", "scout"}, "scout"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ledger.gotJob != "scout" {
		t.Fatalf("expected dead letters for scout, got %q", ledger.gotJob)
	}

	if strings.Contains(out.String(), "radar") {
		t.Fatalf("expected only scout in output, got:\n%s", out.String())
	}
}

func TestPrintStatusReturnsLedgerError(t *testing.T) {
	ledger := &stubLedger{err: errors.New("database is locked")}

	var out bytes.Buffer
	if err := printStatus(context.Background(), &out, ledger, []string{"radar"}, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := shorten(" ok ", 5); got != "ok" {
		t.Fatalf("unexpected result: %q", got)
	}
}
