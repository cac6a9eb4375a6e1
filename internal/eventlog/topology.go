package eventlog

import (
	"fmt"
	"hash/fnv"
)

// Stream topology. Task operation events are spread over a fixed set of
// partition streams so events for one user always land on the same
// partition and replay in order.
const (
	// StreamPrefix is the base name for the task operation streams.
	StreamPrefix = "task-operations"

	// NumPartitions is the fixed partition count. Changing it
	// reshuffles user-to-partition assignment, so it is part of the
	// wire contract.
	NumPartitions = 12

	// DLQStream receives messages that exhausted their deliveries.
	DLQStream = "task-operations-dlq"

	// RemindersStream and AlertsStream are declared for the reminder
	// surface. The scheduler currently writes notification rows
	// directly and produces nothing here.
	RemindersStream = "reminders"
	AlertsStream    = "alerts"

	// ConsumerGroup is the recurring-task generator's group name.
	ConsumerGroup = "recurring-task-service-group"
)

// PartitionFor maps a user id onto a partition with FNV-1a 32. All of a
// user's events share one partition, giving per-user ordering.
func PartitionFor(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % NumPartitions)
}

// StreamKey returns the stream name for a partition.
func StreamKey(partition int) string {
	return fmt.Sprintf("%s:%d", StreamPrefix, partition)
}

// PartitionStreams returns all partition stream names in order.
func PartitionStreams() []string {
	streams := make([]string, NumPartitions)
	for i := range streams {
		streams[i] = StreamKey(i)
	}
	return streams
}
