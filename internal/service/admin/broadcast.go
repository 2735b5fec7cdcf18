package admin

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/gymbro-match/internal/db"
	svcErr "github.com/oggyb/gymbro-match/internal/errors"
	"github.com/oggyb/gymbro-match/internal/metrics"
	"github.com/oggyb/gymbro-match/internal/notify"
)

type BroadcastStatus string

const (
	BroadcastRunning   BroadcastStatus = "running"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastCanceled  BroadcastStatus = "canceled"
	BroadcastFailed    BroadcastStatus = "failed"
)

// BroadcastStats is the live progress of one broadcast.
// Failed does not include Blocked.
type BroadcastStats struct {
	ID         string          `json:"task_id"`
	Status     BroadcastStatus `json:"status"`
	Total      int64           `json:"total"`
	Sent       int64           `json:"sent"`
	Failed     int64           `json:"failed"`
	Blocked    int64           `json:"blocked"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// BroadcastOptions paces delivery to stay under Telegram's rate limits.
type BroadcastOptions struct {
	BatchSize    int
	MessageDelay time.Duration
	BatchDelay   time.Duration
}

// DefaultBroadcastOptions sends 50 messages per batch, 100ms apart, with a
// one second pause between batches.
var DefaultBroadcastOptions = BroadcastOptions{
	BatchSize:    50,
	MessageDelay: 100 * time.Millisecond,
	BatchDelay:   time.Second,
}

type recipientSource interface {
	ListNotBanned(ctx context.Context, afterID uint64, limit int) ([]db.User, error)
	CountNotBanned(ctx context.Context) (int64, error)
}

type broadcastTask struct {
	id     string
	mu     sync.Mutex
	stats  BroadcastStats
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *broadcastTask) snapshot() BroadcastStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *broadcastTask) update(fn func(s *BroadcastStats)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.stats)
}

// Broadcaster runs broadcasts in the background, one goroutine each.
type Broadcaster struct {
	users    recipientSource
	notifier notify.Notifier
	log      *slog.Logger
	opts     BroadcastOptions

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]*broadcastTask
}

func NewBroadcaster(users recipientSource, notifier notify.Notifier, log *slog.Logger, opts BroadcastOptions) *Broadcaster {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBroadcastOptions.BatchSize
	}
	base, stop := context.WithCancel(context.Background())
	return &Broadcaster{
		users:    users,
		notifier: notifier,
		log:      log,
		opts:     opts,
		base:     base,
		stop:     stop,
		tasks:    make(map[string]*broadcastTask),
	}
}

// Start launches a broadcast of text to every non-banned user and returns its
// task id. When adminChatID is set, a summary is sent there at the end.
func (b *Broadcaster) Start(adminChatID, text string) string {
	ctx, cancel := context.WithCancel(b.base)
	id := uuid.NewString()
	task := &broadcastTask{
		id: id,
		stats: BroadcastStats{
			ID:        id,
			Status:    BroadcastRunning,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.tasks[id] = task
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(task.done)
		defer cancel()
		b.run(ctx, task, adminChatID, text)
	}()

	b.log.Info("broadcast started", "task_id", id)
	return id
}

// Get returns the current stats of a broadcast.
func (b *Broadcaster) Get(id string) (BroadcastStats, error) {
	task, err := b.task(id)
	if err != nil {
		return BroadcastStats{}, err
	}
	return task.snapshot(), nil
}

// Cancel stops a running broadcast and waits for it to settle. Cancelling a
// finished broadcast is a no-op.
func (b *Broadcaster) Cancel(id string) (BroadcastStats, error) {
	task, err := b.task(id)
	if err != nil {
		return BroadcastStats{}, err
	}
	task.cancel()
	<-task.done
	return task.snapshot(), nil
}

// Wait blocks until the broadcast finishes or ctx is done.
func (b *Broadcaster) Wait(ctx context.Context, id string) (BroadcastStats, error) {
	task, err := b.task(id)
	if err != nil {
		return BroadcastStats{}, err
	}
	select {
	case <-task.done:
		return task.snapshot(), nil
	case <-ctx.Done():
		return task.snapshot(), ctx.Err()
	}
}

// Shutdown cancels every running broadcast and waits for them.
func (b *Broadcaster) Shutdown() {
	b.stop()
	b.wg.Wait()
}

func (b *Broadcaster) task(id string) (*broadcastTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	task, ok := b.tasks[id]
	if !ok {
		return nil, svcErr.ErrBroadcastNotFound
	}
	return task, nil
}

func (b *Broadcaster) run(ctx context.Context, task *broadcastTask, adminChatID, text string) {
	log := b.log.With("task_id", task.id)

	total, err := b.users.CountNotBanned(ctx)
	if err != nil {
		if ctx.Err() != nil {
			b.finish(task, BroadcastCanceled)
			return
		}
		b.finish(task, BroadcastFailed)
		log.Error("count broadcast recipients failed", "err", err)
		return
	}
	task.update(func(s *BroadcastStats) { s.Total = total })

	status := b.deliver(ctx, log, task, text)
	b.finish(task, status)

	stats := task.snapshot()
	log.Info("broadcast finished", "status", stats.Status,
		"total", stats.Total, "sent", stats.Sent, "failed", stats.Failed, "blocked", stats.Blocked)

	if adminChatID != "" {
		// the task context may already be cancelled
		sumCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.notifier.Send(sumCtx, adminChatID, summary(stats, text)); err != nil {
			log.Warn("send broadcast summary failed", "err", err)
		}
	}
}

func (b *Broadcaster) deliver(ctx context.Context, log *slog.Logger, task *broadcastTask, text string) BroadcastStatus {
	var afterID uint64
	for {
		users, err := b.users.ListNotBanned(ctx, afterID, b.opts.BatchSize)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return BroadcastCanceled
		}
		if err != nil {
			log.Error("load broadcast recipients failed", "err", err)
			return BroadcastFailed
		}
		if len(users) == 0 {
			return BroadcastCompleted
		}

		for _, u := range users {
			if ctx.Err() != nil {
				return BroadcastCanceled
			}
			b.sendOne(ctx, log, task, u, text)
			if !sleep(ctx, b.opts.MessageDelay) {
				return BroadcastCanceled
			}
		}

		afterID = users[len(users)-1].ID
		if len(users) < b.opts.BatchSize {
			return BroadcastCompleted
		}
		if !sleep(ctx, b.opts.BatchDelay) {
			return BroadcastCanceled
		}
	}
}

func (b *Broadcaster) sendOne(ctx context.Context, log *slog.Logger, task *broadcastTask, u db.User, text string) {
	err := b.notifier.Send(ctx, u.TelegramID, text)
	switch {
	case err == nil:
		metrics.BroadcastMessages.WithLabelValues("sent").Inc()
		task.update(func(s *BroadcastStats) { s.Sent++ })
	case notify.IsBlocked(err):
		metrics.BroadcastMessages.WithLabelValues("blocked").Inc()
		task.update(func(s *BroadcastStats) { s.Blocked++ })
	default:
		metrics.BroadcastMessages.WithLabelValues("failed").Inc()
		task.update(func(s *BroadcastStats) { s.Failed++ })
		log.Warn("broadcast delivery failed", "user_id", u.ID, "err", err)
	}
}

func (b *Broadcaster) finish(task *broadcastTask, status BroadcastStatus) {
	now := time.Now().UTC()
	task.update(func(s *BroadcastStats) {
		s.Status = status
		s.FinishedAt = &now
	})
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func summary(s BroadcastStats, text string) string {
	var rate float64
	if s.Total > 0 {
		rate = float64(s.Sent) / float64(s.Total) * 100
	}
	preview := []rune(text)
	if len(preview) > 100 {
		preview = append(preview[:100], '…')
	}
	return fmt.Sprintf(
		"📢 <b>Broadcast %s</b>\n\n"+
			"🆔 Task: <code>%s</code>\n"+
			"📝 Message: <i>%s</i>\n\n"+
			"📊 <b>Stats:</b>\n"+
			"• Total users: %d\n"+
			"• ✅ Delivered: %d (%.1f%%)\n"+
			"• ❌ Errors: %d\n"+
			"• 🚫 Blocked the bot: %d\n",
		s.Status, s.ID, html.EscapeString(string(preview)),
		s.Total, s.Sent, rate, s.Failed, s.Blocked,
	)
}
