package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	JobStatusOK     = "ok"
	JobStatusFailed = "failed"
)

type DeadLetter struct {
	Job       string
	ItemKey   string
	Reason    string
	Error     string
	CreatedAt time.Time
}

type JobRun struct {
	Job        string
	Status     string
	Error      string
	Summary    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// AddDeadLetter records an item a job skipped so an operator can review it.
func (d *Database) AddDeadLetter(ctx context.Context, dl DeadLetter) error {
	job := strings.TrimSpace(dl.Job)
	if job == "" {
		return errors.New("dead letter job is empty")
	}

	createdAt := dl.CreatedAt
	if createdAt.IsZero() {
		createdAt = d.now()
	}

	query, args, err := sq.Insert("dead_letters").
		Columns("job", "item_key", "reason", "error", "created_at").
		Values(job, strings.TrimSpace(dl.ItemKey), strings.TrimSpace(dl.Reason), dl.Error, createdAt.Unix()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query, args...)

	return err
}

// DeadLetters returns the newest dead letters, optionally limited to one job.
func (d *Database) DeadLetters(ctx context.Context, job string, limit uint64) ([]DeadLetter, error) {
	b := sq.Select("job", "item_key", "reason", "error", "created_at").
		From("dead_letters").
		OrderBy("created_at desc", "id desc").
		Limit(limit)

	if job = strings.TrimSpace(job); job != "" {
		b = b.Where(sq.Eq{"job": job})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"job", job,
				"operation", "DeadLetters")
		}
	}()

	var letters []DeadLetter
	for rows.Next() {
		var (
			dl        DeadLetter
			createdAt int64
		)
		if err = rows.Scan(&dl.Job, &dl.ItemKey, &dl.Reason, &dl.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		dl.CreatedAt = time.Unix(createdAt, 0).UTC()
		letters = append(letters, dl)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return letters, nil
}

func (d *Database) RecordJobRun(ctx context.Context, run JobRun) error {
	query, args, err := sq.Insert("job_runs").
		Columns("job", "status", "error", "summary", "started_at", "finished_at").
		Values(run.Job, run.Status, run.Error, run.Summary, run.StartedAt.Unix(), run.FinishedAt.Unix()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query, args...)

	return err
}

// LastJobRun returns nil when the job has never run.
func (d *Database) LastJobRun(ctx context.Context, job string) (*JobRun, error) {
	query, args, err := sq.Select("job", "status", "error", "summary", "started_at", "finished_at").
		From("job_runs").
		Where(sq.Eq{"job": job}).
		OrderBy("started_at desc", "id desc").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		run                   JobRun
		startedAt, finishedAt int64
	)

	err = d.db.QueryRowContext(ctx, query, args...).
		Scan(&run.Job, &run.Status, &run.Error, &run.Summary, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Absent run is not an error.
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	run.StartedAt = time.Unix(startedAt, 0).UTC()
	run.FinishedAt = time.Unix(finishedAt, 0).UTC()

	return &run, nil
}

// TopicSlug returns the slug remembered for a feed link.
func (d *Database) TopicSlug(ctx context.Context, link string) (string, bool, error) {
	query, args, err := sq.Select("slug").
		From("topic_memo").
		Where(sq.Eq{"link": strings.TrimSpace(link)}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var slug string
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to scan row: %w", err)
	}

	return slug, true, nil
}

func (d *Database) RememberTopic(ctx context.Context, link string, slug string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("topic link is empty")
	}

	query, args, err := sq.Insert("topic_memo").
		Columns("link", "slug", "created_at").
		Values(link, slug, d.now().Unix()).
		Suffix("on conflict (link) do update set slug = excluded.slug").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query, args...)

	return err
}

func (d *Database) IsPromoted(ctx context.Context, slug string) (bool, error) {
	return d.exists(ctx, "promotions", sq.Eq{"slug": slug})
}

func (d *Database) RecordPromotion(ctx context.Context, slug string, url string) error {
	query, args, err := sq.Insert("promotions").
		Columns("slug", "url", "submitted_at").
		Values(slug, url, d.now().Unix()).
		Options("or ignore").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query, args...)

	return err
}

func (d *Database) IsThreadSeen(ctx context.Context, threadID string) (bool, error) {
	return d.exists(ctx, "scouted_threads", sq.Eq{"thread_id": threadID})
}

func (d *Database) MarkThreadSeen(ctx context.Context, threadID string, source string, title string) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return errors.New("thread ID is empty")
	}

	query, args, err := sq.Insert("scouted_threads").
		Columns("thread_id", "source", "title", "notified_at").
		Values(threadID, source, title, d.now().Unix()).
		Options("or ignore").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = d.db.ExecContext(ctx, query, args...)

	return err
}

func (d *Database) exists(ctx context.Context, table string, where sq.Eq) (bool, error) {
	query, args, err := sq.Select("1").
		From(table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to scan row (table = %s): %w", table, err)
	}

	return true, nil
}
