package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/ports"
)

// LockoutStore mirrors the Redis lockout semantics without TTL expiry; tests
// drive time explicitly through the passed-in now.
type LockoutStore struct {
	mu    sync.Mutex
	state map[string]lockoutEntry
}

type lockoutEntry struct {
	count       int
	windowEnd   time.Time
	lockedUntil *time.Time
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{state: map[string]lockoutEntry{}}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.state[key]
	if !ok {
		return ports.LockoutState{}, nil
	}
	return ports.LockoutState{FailedCount: entry.count, LockedUntil: entry.lockedUntil}, nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window, lockout time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.state[key]
	if !ok || now.After(entry.windowEnd) {
		entry = lockoutEntry{windowEnd: now.Add(window)}
	}
	entry.count++
	if entry.count >= threshold {
		until := now.Add(lockout)
		entry.lockedUntil = &until
	}
	s.state[key] = entry
	return ports.LockoutState{FailedCount: entry.count, LockedUntil: entry.lockedUntil}, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}

type SessionRevocationStore struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]struct{}
}

func NewSessionRevocationStore() *SessionRevocationStore {
	return &SessionRevocationStore{revoked: map[uuid.UUID]struct{}{}}
}

func (s *SessionRevocationStore) MarkRevoked(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = struct{}{}
	return nil
}

func (s *SessionRevocationStore) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok, nil
}

// EventPublisher records published events for assertions.
type EventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	EventType    string
	Payload      []byte
	PartitionKey string
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{
		EventType:    eventType,
		Payload:      append([]byte(nil), payload...),
		PartitionKey: partitionKey,
	})
	return nil
}

func (p *EventPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
