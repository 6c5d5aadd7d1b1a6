package scout

import (
	"bidmaster/internal/database"
	"bidmaster/internal/domain"
	"bidmaster/internal/keyword"
	"bidmaster/internal/notify"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const JobName = "scout"

type Forum interface {
	Newest(ctx context.Context, subreddits []string, limit int) ([]domain.Thread, error)
}

type Replier interface {
	Reply(ctx context.Context, thread domain.Thread) (*domain.ReplyDraft, error)
}

type Ledger interface {
	IsThreadSeen(ctx context.Context, threadID string) (bool, error)
	MarkThreadSeen(ctx context.Context, threadID string, source string, title string) error
	AddDeadLetter(ctx context.Context, dl database.DeadLetter) error
}

type Options struct {
	Subreddits []string
	Limit      int
}

type Report struct {
	Threads  int
	Matched  int
	Seen     int
	Drafted  int
	Notified int
	Failed   int
}

func (r Report) String() string {
	return fmt.Sprintf("threads=%d matched=%d seen=%d drafted=%d notified=%d failed=%d",
		r.Threads, r.Matched, r.Seen, r.Drafted, r.Notified, r.Failed)
}

// Scout finds forum threads worth answering and hands reply drafts to an operator.
// It has no way to post a reply itself.
type Scout struct {
	forum    Forum
	matcher  *keyword.Matcher
	replier  Replier
	notifier notify.Notifier
	ledger   Ledger
	opts     Options
	log      *slog.Logger
}

// New builds a scout. notifier and ledger may be nil.
func New(
	forum Forum,
	matcher *keyword.Matcher,
	replier Replier,
	notifier notify.Notifier,
	ledger Ledger,
	opts Options,
	log *slog.Logger,
) *Scout {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	return &Scout{
		forum:    forum,
		matcher:  matcher,
		replier:  replier,
		notifier: notifier,
		ledger:   ledger,
		opts:     opts,
		log:      log,
	}
}

func (s *Scout) Run(ctx context.Context) (Report, error) {
	var report Report

	if s.forum == nil || s.replier == nil {
		s.log.WarnContext(ctx, "Scout is not configured so run is skipped",
			"hasForum", s.forum != nil,
			"hasReplier", s.replier != nil)

		return report, nil
	}

	threads, err := s.forum.Newest(ctx, s.opts.Subreddits, s.opts.Limit)
	if err != nil {
		return report, fmt.Errorf("fetch threads: %w", err)
	}

	var errs []error

	for _, thread := range threads {
		if err = ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report.Threads++

		kw, ok := s.matcher.Match(thread.Title, thread.SelfText)
		if !ok {
			continue
		}
		report.Matched++

		if err = s.process(ctx, thread, kw, &report); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("thread %s: %w", thread.ID, err))
		}
	}

	s.log.InfoContext(ctx, "Scout run is done",
		"threads", report.Threads,
		"matched", report.Matched,
		"seen", report.Seen,
		"drafted", report.Drafted,
		"notified", report.Notified,
		"failed", report.Failed)

	return report, errors.Join(errs...)
}

func (s *Scout) process(ctx context.Context, thread domain.Thread, kw string, report *Report) error {
	if s.ledger != nil {
		seen, err := s.ledger.IsThreadSeen(ctx, thread.ID)
		if err != nil {
			return fmt.Errorf("check thread: %w", err)
		}
		if seen {
			report.Seen++
			return nil
		}
	}

	s.log.InfoContext(ctx, "Relevant thread is found",
		"threadID", thread.ID,
		"title", thread.Title,
		"source", thread.Source,
		"keyword", kw)

	draft, err := s.replier.Reply(ctx, thread)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to draft reply so thread is skipped",
			"error", err,
			"threadID", thread.ID)
		s.deadLetter(ctx, thread.ID, "draft", err)

		return fmt.Errorf("draft reply: %w", err)
	}
	report.Drafted++

	if s.notifier == nil {
		s.log.WarnContext(ctx, "Notifier is not configured so reply draft is only logged",
			"threadID", thread.ID,
			"url", thread.URL,
			"draft", draft.Text)
	} else {
		if err = s.notifier.NotifyLead(ctx, *draft); err != nil {
			s.log.ErrorContext(ctx, "Failed to notify operator",
				"error", err,
				"threadID", thread.ID)
			s.deadLetter(ctx, thread.ID, "notify", err)

			return fmt.Errorf("notify operator: %w", err)
		}

		report.Notified++

		s.log.InfoContext(ctx, "Reply draft is sent to operator",
			"threadID", thread.ID,
			"url", thread.URL)
	}

	if s.ledger != nil {
		if err = s.ledger.MarkThreadSeen(ctx, thread.ID, thread.Source, thread.Title); err != nil {
			s.log.WarnContext(ctx, "Failed to mark thread as seen",
				"error", err,
				"threadID", thread.ID)
		}
	}

	return nil
}

func (s *Scout) deadLetter(ctx context.Context, key string, reason string, cause error) {
	if s.ledger == nil {
		return
	}

	err := s.ledger.AddDeadLetter(ctx, database.DeadLetter{
		Job:     JobName,
		ItemKey: key,
		Reason:  reason,
		Error:   cause.Error(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to record dead letter",
			"error", err,
			"itemKey", key,
			"reason", reason)
	}
}
