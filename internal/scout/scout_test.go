package scout_test

import (
	"bidmaster/internal/database"
	"bidmaster/internal/domain"
	"bidmaster/internal/keyword"
	"bidmaster/internal/llm"
	"bidmaster/internal/scout"
	"bidmaster/internal/writer"
	"context"
	"errors"
	"log/slog"
	"testing"
)

type stubForum struct {
	threads    []domain.Thread
	err        error
	subreddits []string
	limit      int
}

func (f *stubForum) Newest(_ context.Context, subreddits []string, limit int) ([]domain.Thread, error) {
	f.subreddits = subreddits
	f.limit = limit
	return f.threads, f.err
}

type stubGenerator struct {
	calls int
	text  string
	err   error
}

func (g *stubGenerator) Generate(context.Context, llm.Request) (string, error) {
	g.calls++
	return g.text, g.err
}

type recordingNotifier struct {
	drafts []domain.ReplyDraft
	err    error
}

func (n *recordingNotifier) NotifyLead(_ context.Context, draft domain.ReplyDraft) error {
	if n.err != nil {
		return n.err
	}
	n.drafts = append(n.drafts, draft)
	return nil
}

type memoryLedger struct {
	seen        map[string]bool
	deadLetters []database.DeadLetter
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{seen: map[string]bool{}}
}

func (l *memoryLedger) IsThreadSeen(_ context.Context, id string) (bool, error) {
	return l.seen[id], nil
}

func (l *memoryLedger) MarkThreadSeen(_ context.Context, id string, _ string, _ string) error {
	l.seen[id] = true
	return nil
}

func (l *memoryLedger) AddDeadLetter(_ context.Context, dl database.DeadLetter) error {
	l.deadLetters = append(l.deadLetters, dl)
	return nil
}

func testThreads() []domain.Thread {
	return []domain.Thread{
		{ID: "a", Title: "Anyone registered on SAM.gov recently?", Author: "u1", Source: "GovCon", URL: "https://r/a"},
		{ID: "b", Title: "Best coffee for the office", SelfText: "Need beans", Source: "smallbusiness"},
		{ID: "c", Title: "Need help", SelfText: "Is our 8(a) application worth it?", Source: "smallbusiness"},
	}
}

func scoutKeywords() *keyword.Matcher {
	return keyword.NewMatcher([]string{"set-aside", "8(a)", "SAM.gov", "GovCon", "proposal writing", "compliance"})
}

func TestWhisperModeNotifiesInsteadOfPosting(t *testing.T) {
	forum := &stubForum{threads: testThreads()}
	gen := &stubGenerator{text: "Check the SBA size standards first."}
	notifier := &recordingNotifier{}

	s := scout.New(forum, scoutKeywords(), writer.NewReplier(gen, slog.Default()), notifier, newMemoryLedger(),
		scout.Options{Subreddits: []string{"GovCon", "smallbusiness"}, Limit: 10}, slog.Default())

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Threads != 3 || report.Matched != 2 || report.Notified != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	if gen.calls != 2 {
		t.Fatalf("expected generator only for matching threads, got %d", gen.calls)
	}

	if len(notifier.drafts) != 2 || notifier.drafts[0].Thread.ID != "a" || notifier.drafts[1].Thread.ID != "c" {
		t.Fatalf("unexpected notifications: %+v", notifier.drafts)
	}

	if forum.limit != 10 || len(forum.subreddits) != 2 {
		t.Fatalf("unexpected forum query: %v %d", forum.subreddits, forum.limit)
	}
}

func TestSeenThreadsAreNotDraftedAgain(t *testing.T) {
	forum := &stubForum{threads: testThreads()}
	gen := &stubGenerator{text: "reply"}
	notifier := &recordingNotifier{}
	ledger := newMemoryLedger()

	s := scout.New(forum, scoutKeywords(), writer.NewReplier(gen, slog.Default()), notifier, ledger,
		scout.Options{Subreddits: []string{"GovCon"}}, slog.Default())

	for range 2 {
		if _, err := s.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if gen.calls != 2 || len(notifier.drafts) != 2 {
		t.Fatalf("expected each thread once, got %d generations and %d notifications", gen.calls, len(notifier.drafts))
	}
}

func TestNotifyFailureIsRetriedNextRun(t *testing.T) {
	forum := &stubForum{threads: testThreads()[:1]}
	notifier := &recordingNotifier{err: errors.New("resend down")}
	ledger := newMemoryLedger()

	s := scout.New(forum, scoutKeywords(), writer.NewReplier(&stubGenerator{text: "reply"}, slog.Default()),
		notifier, ledger, scout.Options{Subreddits: []string{"GovCon"}}, slog.Default())

	report, err := s.Run(context.Background())
	if err == nil {
		t.Fatalf("expected notify error")
	}
	if report.Drafted != 1 || report.Notified != 0 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if ledger.seen["a"] {
		t.Fatalf("expected undelivered thread to stay unseen")
	}
	if len(ledger.deadLetters) != 1 || ledger.deadLetters[0].Reason != "notify" {
		t.Fatalf("unexpected dead letters: %+v", ledger.deadLetters)
	}
}

func TestDraftFailureDoesNotStopOtherThreads(t *testing.T) {
	forum := &stubForum{threads: []domain.Thread{
		{ID: "empty", Title: "GovCon question", SelfText: ""},
		{ID: "ok", Title: "GovCon question two"},
	}}
	gen := &stubGenerator{text: "   "}
	notifier := &recordingNotifier{}

	s := scout.New(forum, scoutKeywords(), writer.NewReplier(gen, slog.Default()), notifier, nil,
		scout.Options{Subreddits: []string{"GovCon"}}, slog.Default())

	report, err := s.Run(context.Background())
	if !errors.Is(err, writer.ErrMalformedDraft) {
		t.Fatalf("expected malformed draft error, got %v", err)
	}
	if report.Failed != 2 || gen.calls != 2 {
		t.Fatalf("expected both threads to be attempted, report %+v calls %d", report, gen.calls)
	}
}

func TestMissingNotifierOnlyLogs(t *testing.T) {
	forum := &stubForum{threads: testThreads()[:1]}
	ledger := newMemoryLedger()

	s := scout.New(forum, scoutKeywords(), writer.NewReplier(&stubGenerator{text: "reply"}, slog.Default()), nil,
		ledger, scout.Options{Subreddits: []string{"GovCon"}}, slog.Default())

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Drafted != 1 || report.Notified != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestUnconfiguredScoutIsNoop(t *testing.T) {
	s := scout.New(nil, scoutKeywords(), nil, nil, nil, scout.Options{}, slog.Default())

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestForumErrorIsReturned(t *testing.T) {
	s := scout.New(&stubForum{err: errors.New("429")}, scoutKeywords(),
		writer.NewReplier(&stubGenerator{}, slog.Default()), nil, nil, scout.Options{}, slog.Default())

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
