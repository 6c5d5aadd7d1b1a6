package notify

import (
	"bidmaster/internal/domain"
	"bidmaster/internal/markdown"
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MessageSender is satisfied by ratelimiter.RateLimiter.
type MessageSender interface {
	Send(ctx context.Context, message tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	sender MessageSender
	chatID int64
}

func NewTelegram(sender MessageSender, chatID int64) (*Telegram, error) {
	if sender == nil {
		return nil, errors.New("message sender is nil")
	}
	if chatID == 0 {
		return nil, errors.New("chat ID is empty")
	}

	return &Telegram{sender: sender, chatID: chatID}, nil
}

func (t *Telegram) NotifyLead(ctx context.Context, draft domain.ReplyDraft) error {
	msg := tgbotapi.NewMessage(t.chatID, leadMessage(draft))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := t.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func leadMessage(draft domain.ReplyDraft) string {
	var b strings.Builder

	b.WriteString(markdown.Bold("New lead on r/" + draft.Thread.Source))
	b.WriteString("\n\n")

	if draft.Thread.URL != "" {
		b.WriteString(markdown.Link(draft.Thread.Title, draft.Thread.URL))
	} else {
		b.WriteString(markdown.EscapeV2(draft.Thread.Title))
	}
	b.WriteString("\n")
	b.WriteString(markdown.EscapeV2("by u/" + draft.Thread.Author))
	b.WriteString("\n\n")
	b.WriteString(markdown.Bold("Draft reply"))
	b.WriteString("\n")
	b.WriteString(markdown.Pre(draft.Text))

	return b.String()
}
