package messages

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultLifetime = 10 * time.Second

// Class is the severity of a user-visible message.
type Class string

const (
	ClassSuccess Class = "success"
	ClassInfo    Class = "info"
	ClassWarning Class = "warning"
	ClassDanger  Class = "danger"
)

// Notifier accepts user-visible messages.
type Notifier interface {
	Add(cls Class, message string) string
}

// Message is a single floating message.
type Message struct {
	Id      string
	Class   Class
	Text    string
	Created time.Time
}

// Board keeps floating messages until they are removed or expire.
type Board struct {
	mu       sync.Mutex
	msgs     map[string]Message
	lifetime time.Duration
	now      func() time.Time
}

type BoardOpt func(*Board)

// WithLifetime sets how long a message stays on the board.
func WithLifetime(d time.Duration) BoardOpt {
	return func(b *Board) {
		b.lifetime = d
	}
}

// WithClock replaces the board's time source.
func WithClock(now func() time.Time) BoardOpt {
	return func(b *Board) {
		b.now = now
	}
}

func NewBoard(opts ...BoardOpt) *Board {
	b := &Board{
		msgs:     map[string]Message{},
		lifetime: DefaultLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add posts a message and returns its id.
func (b *Board) Add(cls Class, text string) string {
	m := Message{
		Id:      uuid.New().String(),
		Class:   cls,
		Text:    text,
		Created: b.now(),
	}

	b.mu.Lock()
	b.msgs[m.Id] = m
	b.mu.Unlock()

	switch cls {
	case ClassDanger:
		slog.Error("message", "class", cls, "text", text)
	case ClassWarning:
		slog.Warn("message", "class", cls, "text", text)
	default:
		slog.Info("message", "class", cls, "text", text)
	}

	return m.Id
}

// Remove drops a message before it expires.
func (b *Board) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.msgs, id)
}

// List returns the current messages, oldest first.
func (b *Board) List() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Message, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m)
	}
	slices.SortFunc(out, func(x, y Message) int {
		if c := x.Created.Compare(y.Created); c != 0 {
			return c
		}
		if x.Id < y.Id {
			return -1
		}
		if x.Id > y.Id {
			return 1
		}
		return 0
	})
	return out
}

// Tick removes expired messages.
func (b *Board) Tick(ctx context.Context) error {
	cutoff := b.now().Add(-b.lifetime)

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, m := range b.msgs {
		if !m.Created.After(cutoff) {
			delete(b.msgs, id)
		}
	}
	return nil
}
