package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/ports"
)

func outboxEventFor(eventType, partitionKey string, payload []byte, at time.Time) ports.OutboxEvent {
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   at,
	}
}
