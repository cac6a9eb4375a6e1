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

// Verdict is a handler's disposition for a delivered event.
type Verdict int

const (
	// VerdictAck acknowledges the message; it will not be redelivered.
	VerdictAck Verdict = iota

	// VerdictRetry leaves the message pending. The reclaimer redelivers
	// it after the idle timeout, and after MaxDeliveries attempts it
	// moves to the dead letter stream.
	VerdictRetry
)

// Handler processes one decoded CloudEvent.
type Handler interface {
	Handle(ctx context.Context, envelope events.Envelope) Verdict
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope events.Envelope) Verdict

func (f HandlerFunc) Handle(ctx context.Context, envelope events.Envelope) Verdict {
	return f(ctx, envelope)
}

// ConsumerConfig tunes the stream consumer.
type ConsumerConfig struct {
	BlockTimeout    time.Duration
	ReclaimInterval time.Duration
	IdleTimeout     time.Duration
	MaxDeliveries   int
	Prefetch        int64
}

// DefaultConsumerConfig returns the production defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BlockTimeout:    5 * time.Second,
		ReclaimInterval: 30 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxDeliveries:   5,
		Prefetch:        10,
	}
}

// Consumer reads the partitioned task operation streams through a
// consumer group. Messages within a partition are processed in order;
// failed messages stay pending until reclaimed or dead lettered.
type Consumer struct {
	rdb     redis.UniversalClient
	group   string
	name    string
	handler Handler
	config  ConsumerConfig
	streams []string
	dlq     string
}

// NewConsumer creates a consumer over all partition streams.
// name identifies this worker instance within the group.
func NewConsumer(rdb redis.UniversalClient, name string, handler Handler, config ConsumerConfig) *Consumer {
	if config.BlockTimeout <= 0 {
		config = DefaultConsumerConfig()
	}

	return &Consumer{
		rdb:     rdb,
		group:   ConsumerGroup,
		name:    name,
		handler: handler,
		config:  config,
		streams: PartitionStreams(),
		dlq:     DLQStream,
	}
}

// Init creates the consumer group on every partition stream. Existing
// groups are left untouched.
func (c *Consumer) Init(ctx context.Context) error {
	for _, stream := range c.streams {
		err := c.rdb.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return err
		}
	}
	return nil
}

// Run processes messages until the context is cancelled. The reclaimer
// runs alongside, redelivering stalled messages and dead lettering
// those that exhausted their deliveries.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Init(ctx); err != nil {
		return err
	}

	go c.runReclaimer(ctx)

	// XReadGroup wants all stream names followed by one ">" per stream.
	args := make([]string, 0, 2*len(c.streams))
	args = append(args, c.streams...)
	for range c.streams {
		args = append(args, ">")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  args,
			Count:    c.config.Prefetch,
			Block:    c.config.BlockTimeout,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "stream read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range result {
			for _, msg := range stream.Messages {
				c.handleMessage(ctx, stream.Stream, msg)
			}
		}
	}
}

// handleMessage decodes and dispatches one message. Undecodable
// payloads are poison: they go straight to the dead letter stream.
func (c *Consumer) handleMessage(ctx context.Context, stream string, msg redis.XMessage) {
	raw, _ := msg.Values["event"].(string)

	var envelope events.Envelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		slog.ErrorContext(ctx, "undecodable event, dead lettering",
			"stream", stream, "message_id", msg.ID, "error", err)
		c.moveToDeadLetter(ctx, stream, msg)
		return
	}

	switch c.handler.Handle(ctx, envelope) {
	case VerdictAck:
		c.ack(ctx, stream, msg.ID)
	case VerdictRetry:
		// Leave pending; the reclaimer redelivers after IdleTimeout.
		slog.WarnContext(ctx, "event left pending for redelivery",
			"stream", stream, "message_id", msg.ID, "event_id", envelope.ID)
	}
}

func (c *Consumer) ack(ctx context.Context, stream, id string) {
	if err := c.rdb.XAck(ctx, stream, c.group, id).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to ack message",
			"stream", stream, "message_id", id, "error", err)
	}
}

func (c *Consumer) runReclaimer(ctx context.Context) {
	ticker := time.NewTicker(c.config.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.reclaimIdle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// reclaimIdle takes over messages another consumer left pending. A
// message past MaxDeliveries is dead lettered instead of reprocessed.
func (c *Consumer) reclaimIdle(ctx context.Context) {
	for _, stream := range c.streams {
		pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  c.group,
			Idle:   c.config.IdleTimeout,
			Start:  "-",
			End:    "+",
			Count:  c.config.Prefetch,
		}).Result()
		if err != nil {
			continue
		}

		for _, p := range pending {
			claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
				Stream:   stream,
				Group:    c.group,
				Consumer: c.name,
				MinIdle:  c.config.IdleTimeout,
				Messages: []string{p.ID},
			}).Result()
			if err != nil || len(claimed) == 0 {
				continue
			}

			if p.RetryCount > int64(c.config.MaxDeliveries) {
				c.moveToDeadLetter(ctx, stream, claimed[0])
				continue
			}
			c.handleMessage(ctx, stream, claimed[0])
		}
	}
}

// moveToDeadLetter copies the message onto the DLQ stream with its
// provenance and acknowledges the original.
func (c *Consumer) moveToDeadLetter(ctx context.Context, stream string, msg redis.XMessage) {
	values := map[string]any{
		"original_stream":  stream,
		"original_id":      msg.ID,
		"dead_lettered_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range msg.Values {
		values[k] = v
	}

	if err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.dlq,
		Values: values,
	}).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to dead letter message",
			"stream", stream, "message_id", msg.ID, "error", err)
		return
	}

	c.ack(ctx, stream, msg.ID)
}
