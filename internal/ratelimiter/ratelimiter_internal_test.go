package ratelimiter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubSender struct {
	mu    sync.Mutex
	sent  []tgbotapi.Chattable
	times []time.Time
	err   error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, c)
	s.times = append(s.times, time.Now())

	return tgbotapi.Message{MessageID: len(s.sent)}, s.err
}

func TestGetDelay(t *testing.T) {
	tests := []struct {
		name     string
		chatID   int64
		elapsed  time.Duration
		wantZero bool
	}{
		{"Private chat - no delay needed", 123456789, 2 * time.Second, true},
		{"Private chat - delay needed", 123456789, 500 * time.Millisecond, false},
		{"Group chat - no delay needed", -123456789, 4 * time.Second, true},
		{"Group chat - delay needed", -123456789, time.Second, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := getDelay(test.chatID, test.elapsed)

			if test.wantZero && got > 0 {
				t.Errorf("Expected zero delay, got %v", got)
			}

			if !test.wantZero && got <= 0 {
				t.Errorf("Expected positive delay, got %v", got)
			}
		})
	}
}

func TestGetChatID(t *testing.T) {
	tests := []struct {
		name    string
		message tgbotapi.Chattable
		want    int64
	}{
		{"MessageConfig", tgbotapi.NewMessage(12345, "test"), 12345},
		{"ChatActionConfig", tgbotapi.NewChatAction(67890, tgbotapi.ChatTyping), 67890},
		{"Unknown", tgbotapi.NewDeleteMessage(1, 2), 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := getChatID(test.message); got != test.want {
				t.Errorf("Expected %d, got %d", test.want, got)
			}
		})
	}
}

func TestSendSpacesMessagesPerChat(t *testing.T) {
	sender := &stubSender{}
	rl := New(sender, slog.Default())
	defer rl.Stop()

	for range 2 {
		if _, err := rl.Send(context.Background(), tgbotapi.NewMessage(42, "hi")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(sender.times) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(sender.times))
	}

	if gap := sender.times[1].Sub(sender.times[0]); gap < privateChatRate-50*time.Millisecond {
		t.Fatalf("expected sends to be spaced, got %v", gap)
	}
}

func TestSendReturnsSenderError(t *testing.T) {
	sender := &stubSender{err: errors.New("forbidden")}
	rl := New(sender, slog.Default())
	defer rl.Stop()

	if _, err := rl.Send(context.Background(), tgbotapi.NewMessage(1, "x")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSendAfterStopFailsFast(t *testing.T) {
	sender := &stubSender{}
	rl := New(sender, slog.Default())
	rl.Stop()

	for range 50 {
		done := make(chan error, 1)
		go func() {
			_, err := rl.Send(context.Background(), tgbotapi.NewMessage(1, "x"))
			done <- err
		}()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("send after stop hangs")
		}
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing to be sent after stop, got %d", len(sender.sent))
	}
}

func TestStopReleasesWaitingSend(t *testing.T) {
	rl := New(&stubSender{}, slog.Default())

	if _, err := rl.Send(context.Background(), tgbotapi.NewMessage(-7, "first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := rl.Send(context.Background(), tgbotapi.NewMessage(-7, "second"))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	rl.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("stop did not release the waiting send")
	}
}
