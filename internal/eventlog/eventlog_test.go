package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.TaskEvent
	fail   error
}

func (r *recordingAudit) RecordEvent(_ context.Context, event *domain.TaskEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, *event)
	return nil
}

func testEnvelope(t *testing.T, eventType string) events.Envelope {
	t.Helper()
	envelope, err := events.New(eventType, events.TaskCreatedData{
		TaskID: "task-1",
		UserID: "user-1",
		Title:  "test",
	}, time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return envelope
}

func TestPartitionFor_StableAndBounded(t *testing.T) {
	first := PartitionFor("user-1")
	assert.Equal(t, first, PartitionFor("user-1"))
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, NumPartitions)

	// Different users spread over more than one partition.
	seen := map[int]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		seen[PartitionFor(id)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestPublisher_RoutesToUserPartition(t *testing.T) {
	_, client := newTestRedis(t)
	audit := &recordingAudit{}
	pub := NewPublisher(client, audit)
	ctx := context.Background()

	envelope := testEnvelope(t, events.TypeTaskCreated)
	require.NoError(t, pub.Publish(ctx, "user-1", envelope))

	second := testEnvelope(t, events.TypeTaskCompleted)
	require.NoError(t, pub.Publish(ctx, "user-1", second))

	stream := StreamKey(PartitionFor("user-1"))
	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var decoded events.Envelope
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["event"].(string)), &decoded))
	assert.Equal(t, envelope.ID, decoded.ID)
	assert.Equal(t, events.TypeTaskCreated, decoded.Type)
	assert.Equal(t, "backend-api", decoded.Source)
	assert.Equal(t, "user-1", msgs[0].Values["user_id"])

	// Audit rows mirror the acknowledged publishes.
	require.Len(t, audit.events, 2)
	assert.Equal(t, envelope.ID, audit.events[0].ID)
	require.NotNil(t, audit.events[0].TaskID)
	assert.Equal(t, "task-1", *audit.events[0].TaskID)
}

func TestPublisher_AuditFailureDoesNotFailPublish(t *testing.T) {
	_, client := newTestRedis(t)
	audit := &recordingAudit{fail: assert.AnError}
	pub := NewPublisher(client, audit)

	err := pub.Publish(context.Background(), "user-1", testEnvelope(t, events.TypeTaskCreated))
	assert.NoError(t, err)
}

func TestDedupStore_FirstMarkerWins(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewDedupStore(client)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)

	first, err := store.MarkProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	// Entries expire on their own.
	assert.Greater(t, mr.TTL(dedupKeyPrefix+"evt-1"), time.Duration(0))
	mr.FastForward(DedupTTL + time.Minute)
	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

type recordingHandler struct {
	mu       sync.Mutex
	seen     []events.Envelope
	verdicts []Verdict
}

func (r *recordingHandler) Handle(_ context.Context, envelope events.Envelope) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, envelope)
	if len(r.verdicts) == 0 {
		return VerdictAck
	}
	v := r.verdicts[0]
	r.verdicts = r.verdicts[1:]
	return v
}

func TestConsumer_DispatchAndAck(t *testing.T) {
	_, client := newTestRedis(t)
	handler := &recordingHandler{}
	consumer := NewConsumer(client, "worker-1", handler, DefaultConsumerConfig())
	ctx := context.Background()

	require.NoError(t, consumer.Init(ctx))

	pub := NewPublisher(client, nil)
	envelope := testEnvelope(t, events.TypeTaskCompleted)
	require.NoError(t, pub.Publish(ctx, "user-1", envelope))

	stream := StreamKey(PartitionFor("user-1"))
	msgs, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	consumer.handleMessage(ctx, stream, msgs[0])

	require.Len(t, handler.seen, 1)
	assert.Equal(t, envelope.ID, handler.seen[0].ID)
}

func TestConsumer_PoisonMessageDeadLettered(t *testing.T) {
	_, client := newTestRedis(t)
	handler := &recordingHandler{}
	consumer := NewConsumer(client, "worker-1", handler, DefaultConsumerConfig())
	ctx := context.Background()

	require.NoError(t, consumer.Init(ctx))

	stream := StreamKey(0)
	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": "not json"},
	}).Result()
	require.NoError(t, err)

	consumer.handleMessage(ctx, stream, redis.XMessage{
		ID:     id,
		Values: map[string]any{"event": "not json"},
	})

	// The handler never saw it; the DLQ did.
	assert.Empty(t, handler.seen)
	dlq, err := client.XRange(ctx, DLQStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Equal(t, stream, dlq[0].Values["original_stream"])
	assert.Equal(t, id, dlq[0].Values["original_id"])
}

func TestDLQConsumer_RetriesThenRecovers(t *testing.T) {
	_, client := newTestRedis(t)
	handler := &recordingHandler{verdicts: []Verdict{VerdictRetry, VerdictAck}}
	dlq := NewDLQConsumer(client, "dlq-worker", handler)
	dlq.baseDelay = time.Millisecond
	dlq.maxDelay = time.Millisecond
	ctx := context.Background()

	require.NoError(t, dlq.Init(ctx))

	payload, err := json.Marshal(testEnvelope(t, events.TypeTaskCompleted))
	require.NoError(t, err)
	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: DLQStream,
		Values: map[string]any{"event": string(payload)},
	}).Result()
	require.NoError(t, err)

	dlq.process(ctx, redis.XMessage{ID: id, Values: map[string]any{"event": string(payload)}})

	// One failed attempt, one successful retry.
	assert.Len(t, handler.seen, 2)
}

func TestDLQConsumer_ExhaustsAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	handler := &recordingHandler{verdicts: []Verdict{VerdictRetry, VerdictRetry, VerdictRetry}}
	dlq := NewDLQConsumer(client, "dlq-worker", handler)
	dlq.baseDelay = time.Millisecond
	dlq.maxDelay = time.Millisecond
	ctx := context.Background()

	require.NoError(t, dlq.Init(ctx))

	payload, err := json.Marshal(testEnvelope(t, events.TypeTaskCompleted))
	require.NoError(t, err)

	dlq.process(ctx, redis.XMessage{ID: "1-1", Values: map[string]any{"event": string(payload)}})

	assert.Len(t, handler.seen, dlqMaxAttempts)
}

func TestDLQConsumer_ReprocessRestoresOriginalStream(t *testing.T) {
	_, client := newTestRedis(t)
	dlq := NewDLQConsumer(client, "dlq-worker", &recordingHandler{})
	ctx := context.Background()

	payload, err := json.Marshal(testEnvelope(t, events.TypeTaskCompleted))
	require.NoError(t, err)

	msg := redis.XMessage{
		ID: "1-1",
		Values: map[string]any{
			"event":            string(payload),
			"event_type":       events.TypeTaskCompleted,
			"original_stream":  StreamKey(3),
			"original_id":      "0-1",
			"dead_lettered_at": "2026-01-14T10:00:00Z",
		},
	}
	require.NoError(t, dlq.Reprocess(ctx, msg))

	restored, err := client.XRange(ctx, StreamKey(3), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, string(payload), restored[0].Values["event"])
	assert.NotContains(t, restored[0].Values, "original_stream")
}
