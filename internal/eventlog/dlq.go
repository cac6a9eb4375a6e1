package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskhub/internal/events"
)

// DLQ retry policy: exponential backoff between attempts on the same
// message, bounded attempt count, then park it with a critical log.
const (
	dlqGroup         = "recurring-task-service-dlq-group"
	dlqBaseDelay     = 5 * time.Second
	dlqBackoffFactor = 2
	dlqMaxDelay      = 60 * time.Second
	dlqMaxAttempts   = 3
	dlqBlockTimeout  = 5 * time.Second
)

// DLQConsumer drains the dead letter stream, retrying each message with
// exponential backoff. Messages that still fail after the attempt
// budget stay acknowledged on the DLQ and are only retried again
// through a manual Reprocess, which resets the attempt counter by
// re-enqueuing onto the original stream.
type DLQConsumer struct {
	rdb     redis.UniversalClient
	name    string
	handler Handler

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

// NewDLQConsumer creates a dead letter consumer.
func NewDLQConsumer(rdb redis.UniversalClient, name string, handler Handler) *DLQConsumer {
	return &DLQConsumer{
		rdb:         rdb,
		name:        name,
		handler:     handler,
		baseDelay:   dlqBaseDelay,
		maxDelay:    dlqMaxDelay,
		maxAttempts: dlqMaxAttempts,
	}
}

// Init creates the DLQ consumer group if it does not exist.
func (d *DLQConsumer) Init(ctx context.Context) error {
	err := d.rdb.XGroupCreateMkStream(ctx, DLQStream, dlqGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Run processes dead lettered messages until the context is cancelled.
func (d *DLQConsumer) Run(ctx context.Context) error {
	if err := d.Init(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := d.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    dlqGroup,
			Consumer: d.name,
			Streams:  []string{DLQStream, ">"},
			Count:    1,
			Block:    dlqBlockTimeout,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "dlq read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				d.process(ctx, msg)
			}
		}
	}
}

// process retries one dead lettered message with backoff. The message
// is always acknowledged afterwards: either it succeeded, or it burned
// its attempts and is parked pending manual reprocessing.
func (d *DLQConsumer) process(ctx context.Context, msg redis.XMessage) {
	defer func() {
		if err := d.rdb.XAck(ctx, DLQStream, dlqGroup, msg.ID).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to ack dlq message",
				"message_id", msg.ID, "error", err)
		}
	}()

	raw, _ := msg.Values["event"].(string)
	var envelope events.Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		slog.ErrorContext(ctx, "undecodable dlq message, dropping",
			"message_id", msg.ID, "error", err)
		return
	}

	delay := d.baseDelay
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if d.handler.Handle(ctx, envelope) == VerdictAck {
			slog.InfoContext(ctx, "dlq message recovered",
				"event_id", envelope.ID, "attempt", attempt)
			return
		}

		if attempt == d.maxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}

		delay *= dlqBackoffFactor
		if delay > d.maxDelay {
			delay = d.maxDelay
		}
	}

	slog.ErrorContext(ctx, "dlq message exhausted retries, parking",
		"event_id", envelope.ID, "event_type", envelope.Type,
		"original_stream", msg.Values["original_stream"],
		"attempts", d.maxAttempts)
}

// Reprocess re-enqueues a parked message onto its original stream,
// which resets the delivery counter for a fresh round of attempts.
func (d *DLQConsumer) Reprocess(ctx context.Context, msg redis.XMessage) error {
	stream, _ := msg.Values["original_stream"].(string)
	if stream == "" {
		stream = StreamKey(0)
	}

	values := map[string]any{}
	for k, v := range msg.Values {
		if k == "original_stream" || k == "original_id" || k == "dead_lettered_at" {
			continue
		}
		values[k] = v
	}

	return d.rdb.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err()
}
