package notify

import (
	"bidmaster/internal/domain"
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("no notification channel is configured")

// Notifier delivers a reply draft to a human operator.
type Notifier interface {
	NotifyLead(ctx context.Context, draft domain.ReplyDraft) error
}

// Multi fans out to every channel; one failing channel does not stop the rest.
type Multi []Notifier

func (m Multi) NotifyLead(ctx context.Context, draft domain.ReplyDraft) error {
	if len(m) == 0 {
		return ErrNotConfigured
	}

	var errs []error
	delivered := 0

	for _, n := range m {
		if err := n.NotifyLead(ctx, draft); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
			continue
		}
		delivered++
	}

	// Delivery through any one channel is enough for the operator to act.
	if delivered > 0 {
		return nil
	}

	return errors.Join(errs...)
}

func subjectTitle(title string, maxRunes int) string {
	runes := []rune(title)
	if len(runes) <= maxRunes {
		return title
	}

	return string(runes[:maxRunes]) + "..."
}
