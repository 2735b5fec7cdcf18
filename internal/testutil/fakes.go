package testutil

import (
	"context"
	"sync"

	"github.com/oggyb/gymbro-match/internal/db"
	"github.com/oggyb/gymbro-match/internal/events"
)

// Notifier records every notification by recipient telegram id.
type Notifier struct {
	mu      sync.Mutex
	Likes   []string
	Matches []string
	Sent    map[string][]string
	// FailFor makes Send fail for these chat ids.
	FailFor map[string]error
}

func (n *Notifier) NotifyLike(_ context.Context, recipient *db.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Likes = append(n.Likes, recipient.TelegramID)
	return nil
}

func (n *Notifier) NotifyMatch(_ context.Context, recipient, _ *db.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Matches = append(n.Matches, recipient.TelegramID)
	return nil
}

func (n *Notifier) Send(_ context.Context, chatID string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.FailFor[chatID]; ok {
		return err
	}
	if n.Sent == nil {
		n.Sent = map[string][]string{}
	}
	n.Sent[chatID] = append(n.Sent[chatID], text)
	return nil
}

// Snapshot returns copies of the recorded likes and matches.
func (n *Notifier) Snapshot() (likes, matches []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Likes...), append([]string(nil), n.Matches...)
}

// SentTo returns the messages delivered to chatID.
func (n *Notifier) SentTo(chatID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Sent[chatID]...)
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, e)
	return nil
}

func (p *Publisher) Close() error { return nil }

// Types returns the recorded event types in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Type
	}
	return out
}
