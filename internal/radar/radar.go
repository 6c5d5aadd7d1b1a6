package radar

import (
	"bidmaster/internal/cms"
	"bidmaster/internal/database"
	"bidmaster/internal/domain"
	"bidmaster/internal/keyword"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const JobName = "radar"

// TopicSource yields feed entries.
type TopicSource interface {
	Fetch(ctx context.Context) ([]domain.Topic, error)
}

type Drafter interface {
	Draft(ctx context.Context, topic domain.Topic) (*domain.DraftArticle, error)
}

// Store is the content store; Publish must check existence before creating.
type Store interface {
	Exists(ctx context.Context, slug string) (bool, error)
	Publish(ctx context.Context, draft domain.DraftArticle) (cms.Outcome, error)
}

type Ledger interface {
	TopicSlug(ctx context.Context, link string) (string, bool, error)
	RememberTopic(ctx context.Context, link string, slug string) error
	AddDeadLetter(ctx context.Context, dl database.DeadLetter) error
}

type Report struct {
	Entries    int
	Matched    int
	Skipped    int
	Drafted    int
	Created    int
	Duplicates int
	Failed     int
}

func (r Report) String() string {
	return fmt.Sprintf("entries=%d matched=%d skipped=%d drafted=%d created=%d duplicates=%d failed=%d",
		r.Entries, r.Matched, r.Skipped, r.Drafted, r.Created, r.Duplicates, r.Failed)
}

// Radar turns relevant feed entries into draft posts.
type Radar struct {
	source  TopicSource
	matcher *keyword.Matcher
	drafter Drafter
	store   Store
	ledger  Ledger
	log     *slog.Logger
}

// New builds a radar. A nil ledger disables the topic memo and dead letters.
func New(
	source TopicSource,
	matcher *keyword.Matcher,
	drafter Drafter,
	store Store,
	ledger Ledger,
	log *slog.Logger,
) *Radar {
	return &Radar{
		source:  source,
		matcher: matcher,
		drafter: drafter,
		store:   store,
		ledger:  ledger,
		log:     log,
	}
}

// Scan processes every feed entry once. A failing entry never stops the others;
// all failures are returned joined.
func (r *Radar) Scan(ctx context.Context) (Report, error) {
	var report Report

	if r.store == nil || r.drafter == nil {
		r.log.WarnContext(ctx, "Radar is not configured so scan is skipped",
			"hasStore", r.store != nil,
			"hasDrafter", r.drafter != nil)

		return report, nil
	}

	topics, fetchErr := r.source.Fetch(ctx)
	if fetchErr != nil {
		r.log.ErrorContext(ctx, "Failed to fetch some feeds",
			"error", fetchErr,
			"topicCount", len(topics))
	}

	errs := []error{fetchErr}
	seen := make(map[string]struct{}, len(topics))

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		key := topicKey(topic)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		report.Entries++

		kw, ok := r.matcher.Match(topic.Title, topic.Summary)
		if !ok {
			continue
		}
		report.Matched++

		if err := r.process(ctx, topic, kw, &report); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("topic %q: %w", key, err))
		}
	}

	r.log.InfoContext(ctx, "Radar scan is done",
		"entries", report.Entries,
		"matched", report.Matched,
		"skipped", report.Skipped,
		"drafted", report.Drafted,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"failed", report.Failed)

	return report, errors.Join(errs...)
}

func (r *Radar) process(ctx context.Context, topic domain.Topic, kw string, report *Report) error {
	key := topicKey(topic)

	known, err := r.stillStored(ctx, topic)
	if err != nil {
		r.deadLetter(ctx, key, "memo check", err)
		return err
	}
	if known {
		report.Skipped++
		return nil
	}

	r.log.InfoContext(ctx, "Relevant topic is found",
		"title", topic.Title,
		"link", topic.Link,
		"keyword", kw)

	draft, err := r.drafter.Draft(ctx, topic)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to draft topic so it is skipped",
			"error", err,
			"title", topic.Title,
			"link", topic.Link)
		r.deadLetter(ctx, key, "draft", err)

		return fmt.Errorf("draft: %w", err)
	}
	report.Drafted++

	outcome, err := r.store.Publish(ctx, *draft)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to publish draft so it is skipped",
			"error", err,
			"slug", draft.Slug,
			"link", topic.Link)
		r.deadLetter(ctx, key, "publish", err)

		return fmt.Errorf("publish: %w", err)
	}

	switch outcome {
	case cms.OutcomeCreated:
		report.Created++
	case cms.OutcomeDuplicate:
		report.Duplicates++
	}

	if r.ledger != nil && strings.TrimSpace(topic.Link) != "" {
		if err = r.ledger.RememberTopic(ctx, topic.Link, draft.Slug); err != nil {
			r.log.WarnContext(ctx, "Failed to remember topic",
				"error", err,
				"link", topic.Link,
				"slug", draft.Slug)
		}
	}

	return nil
}

// stillStored reports whether the topic was drafted before and its post still exists.
func (r *Radar) stillStored(ctx context.Context, topic domain.Topic) (bool, error) {
	if r.ledger == nil || strings.TrimSpace(topic.Link) == "" {
		return false, nil
	}

	slug, ok, err := r.ledger.TopicSlug(ctx, topic.Link)
	if err != nil {
		return false, fmt.Errorf("read topic memo: %w", err)
	}
	if !ok {
		return false, nil
	}

	exists, err := r.store.Exists(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("check memo slug: %w", err)
	}

	if !exists {
		r.log.InfoContext(ctx, "Remembered post is gone so topic is drafted again",
			"link", topic.Link,
			"slug", slug)
	}

	return exists, nil
}

func (r *Radar) deadLetter(ctx context.Context, key string, reason string, cause error) {
	if r.ledger == nil {
		return
	}

	err := r.ledger.AddDeadLetter(ctx, database.DeadLetter{
		Job:     JobName,
		ItemKey: key,
		Reason:  reason,
		Error:   cause.Error(),
	})
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to record dead letter",
			"error", err,
			"itemKey", key,
			"reason", reason)
	}
}

func topicKey(topic domain.Topic) string {
	if link := strings.TrimSpace(topic.Link); link != "" {
		return link
	}
	return strings.TrimSpace(topic.Title)
}
