// Package events publishes domain events (swipes, matches, bans) to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oggyb/gymbro-match/internal/config"
	"github.com/oggyb/gymbro-match/internal/metrics"
)

const (
	TypeActionRecorded = "action.recorded"
	TypeMatchCreated   = "match.created"
	TypeUserBanned     = "user.banned"
)

// Event is the JSON envelope written to the topic.
type Event struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

type ActionRecorded struct {
	FromUserID uint64 `json:"from_user_id"`
	ToUserID   uint64 `json:"to_user_id"`
	ActionType string `json:"action_type"`
	IsMatch    bool   `json:"is_match"`
}

type MatchCreated struct {
	MatchID uint64 `json:"match_id"`
	User1ID uint64 `json:"user1_id"`
	User2ID uint64 `json:"user2_id"`
}

type UserBanned struct {
	ByAdmin string `json:"by_admin"`
}

// Publisher emits domain events. Publishing is best effort: callers log the
// error and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured, a no-op otherwise.
func New(cfg *config.Config, log *slog.Logger) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return Noop{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{}, // same user, same partition
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("kafka writer", "msg", msg, "args", args)
		}),
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				metrics.EventPublishErrors.Add(float64(len(messages)))
			}
		},
	}
	return NewKafkaPublisher(w)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(e.UserID, 10)),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Emit publishes e and only logs a failure.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, e Event) {
	if err := p.Publish(ctx, e); err != nil {
		metrics.EventPublishErrors.Inc()
		log.Warn("publish event failed", "type", e.Type, "user_id", e.UserID, "err", err)
	}
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
