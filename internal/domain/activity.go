package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one entry of the family activity feed. It doubles as the audit
// trail for permission-sensitive operations.
type Activity struct {
	ActivityID uuid.UUID
	FamilyID   uuid.UUID
	ActorID    uuid.UUID
	Action     string
	TargetID   string
	Metadata   map[string]string
	OccurredAt time.Time
}
