// Package publish hands resolved words to downstream displays over Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON payload written for every resolution.
type Event struct {
	ID          string    `json:"id"`
	PuzzleDate  string    `json:"puzzleDate"`
	TargetDate  string    `json:"targetDate"`
	Word        string    `json:"word"`
	Unknown     bool      `json:"unknown"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Publisher writes resolution events keyed by target date.
type Publisher struct {
	writer   MessageWriter
	log      *slog.Logger
	attempts int
	backoff  time.Duration
	now      func() time.Time
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithRetry sets the attempt count and the initial backoff, doubled after each failure.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(p *Publisher) {
		p.attempts = attempts
		p.backoff = backoff
	}
}

// NewKafka builds a publisher for topic on brokers.
func NewKafka(brokers []string, topic string, log *slog.Logger, opts ...Option) *Publisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     brokers,
		Topic:       topic,
		MaxAttempts: 3,
	})
	return NewWithWriter(w, log, opts...)
}

// NewWithWriter builds a publisher over an existing writer.
func NewWithWriter(w MessageWriter, log *slog.Logger, opts ...Option) *Publisher {
	log = logger.OrDiscard(log)
	p := &Publisher{
		writer:   w,
		log:      log,
		attempts: 5,
		backoff:  time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts <= 0 {
		p.attempts = 1
	}
	return p
}

// Publish writes res, retrying with exponential backoff.
func (p *Publisher) Publish(ctx context.Context, res models.Resolution) error {
	ev := Event{
		ID:          res.ID,
		PuzzleDate:  res.PuzzleDate,
		TargetDate:  res.TargetDate,
		Word:        res.Display(),
		Unknown:     res.Unknown,
		Source:      res.SourceURL,
		PublishedAt: p.now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(res.TargetDate),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "resolution_id", Value: []byte(res.ID)},
			{Key: "timestamp", Value: []byte(ev.PublishedAt.Format(time.RFC3339))},
		},
	}

	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if lastErr = p.writer.WriteMessages(ctx, msg); lastErr == nil {
			p.log.Info("resolution published",
				slog.String("id", res.ID),
				slog.String("target_date", res.TargetDate),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}
		if attempt == p.attempts-1 {
			break
		}

		backoff := p.backoff * time.Duration(1<<uint(attempt))
		p.log.Warn("publish failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("publish resolution %s: %w", res.ID, lastErr)
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
