package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

func (s *Service) logger() *slog.Logger {
	return slog.Default().With(
		"service", s.cfg.ServiceName,
		"module", "application",
		"layer", "application",
	)
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashRequest computes a deterministic request fingerprint for idempotency
// conflict detection.
func hashRequest(v any) string {
	raw, _ := json.Marshal(v)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// failureDelay sleeps a random interval inside the configured bounds.
// Uniform response timing on credential failures blunts timing probes.
func (s *Service) failureDelay() {
	span := s.cfg.FailureDelayMax - s.cfg.FailureDelayMin
	raw := make([]byte, 8)
	_, _ = rand.Read(raw)
	n := int64(raw[0])<<24 | int64(raw[1])<<16 | int64(raw[2])<<8 | int64(raw[3])
	if n < 0 {
		n = -n
	}
	s.sleepFn(s.cfg.FailureDelayMin + time.Duration(n)%span)
}

// requireMember loads the actor's user row and verifies it belongs to familyID.
// Reading the row (instead of trusting claims) also triggers healing of dangling
// family references on every guarded call.
func (s *Service) requireMember(ctx context.Context, actor Actor, familyID uuid.UUID) (domain.User, error) {
	if actor.UserID == uuid.Nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	user, err = s.healFamilyReference(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	if user.FamilyID == nil || *user.FamilyID != familyID {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

func (s *Service) requireParent(ctx context.Context, actor Actor, familyID uuid.UUID) (domain.User, error) {
	user, err := s.requireMember(ctx, actor, familyID)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsParent() {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

// healFamilyReference clears a family_id that points at a family row that no
// longer exists. The cleared user continues as family-less rather than failing
// every subsequent request.
func (s *Service) healFamilyReference(ctx context.Context, user domain.User) (domain.User, error) {
	if user.FamilyID == nil {
		return user, nil
	}
	_, err := s.families.GetByID(ctx, *user.FamilyID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}
	staleID := *user.FamilyID
	now := s.nowFn()
	if err := s.users.ClearFamily(ctx, user.UserID, now); err != nil {
		return domain.User{}, err
	}
	s.logger().WarnContext(ctx, "healed dangling family reference",
		"operation", "heal_family_reference",
		"outcome", "success",
		"user_id", user.UserID,
		"stale_family_id", staleID,
	)
	s.appendActivity(ctx, staleID, user.UserID, "family.reference.healed", user.UserID.String(), map[string]string{
		"stale_family_id": staleID.String(),
	})
	s.enqueueEvent(ctx, domain.EventFamilyHealed, staleID.String(), map[string]any{
		"user_id":         user.UserID.String(),
		"stale_family_id": staleID.String(),
	})
	user.FamilyID = nil
	return user, nil
}

// appendActivity records a feed entry; failures are logged, never propagated,
// because the primary mutation already committed.
func (s *Service) appendActivity(ctx context.Context, familyID, actorID uuid.UUID, action, targetID string, meta map[string]string) {
	if s.activities == nil {
		return
	}
	clean := map[string]string{}
	for k, v := range meta {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		clean[k] = v
	}
	if err := s.activities.Create(ctx, domain.Activity{
		ActivityID: uuid.New(),
		FamilyID:   familyID,
		ActorID:    actorID,
		Action:     action,
		TargetID:   targetID,
		Metadata:   clean,
		OccurredAt: s.nowFn(),
	}); err != nil {
		s.logger().WarnContext(ctx, "failed to append activity",
			"operation", "append_activity",
			"outcome", "failure",
			"action", action,
			"error", err,
		)
	}
}

// enqueueEvent writes a domain event to the outbox for asynchronous publishing.
func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload map[string]any) {
	if s.outbox == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["occurred_at"] = s.nowFn().Format(time.RFC3339)
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, outboxEventFor(eventType, partitionKey, raw, s.nowFn())); err != nil {
		s.logger().WarnContext(ctx, "failed to enqueue outbox event",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}

// pushNotification writes an in-app feed entry, honoring the recipient's
// preferences and using DedupKey for machine-generated entries.
func (s *Service) pushNotification(ctx context.Context, row domain.Notification) error {
	if s.notifications == nil {
		return nil
	}
	if s.prefs != nil {
		p, err := s.prefs.Get(ctx, row.UserID)
		if err == nil && p != nil && !p.InAppEnabled {
			return nil
		}
	}
	if row.NotificationID == uuid.Nil {
		row.NotificationID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.nowFn()
	}
	err := s.notifications.Create(ctx, row)
	if errors.Is(err, domain.ErrConflict) {
		// Duplicate dedup key: another writer already delivered this one.
		return nil
	}
	return err
}

func (s *Service) preferencesFor(ctx context.Context, userID uuid.UUID) domain.Preferences {
	if s.prefs != nil {
		if p, err := s.prefs.Get(ctx, userID); err == nil && p != nil {
			return *p
		}
	}
	return domain.DefaultPreferences(userID, s.nowFn())
}

// getIdempotentBody returns a cached response body when the mutation was already
// completed under the same key and payload.
func (s *Service) getIdempotentBody(ctx context.Context, key, requestHash string) ([]byte, bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil, false, nil
	}
	rec, err := s.idempotency.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, false, err
	}
	if rec.ExpiresAt.Before(s.nowFn()) {
		return nil, false, nil
	}
	if rec.RequestHash != requestHash {
		return nil, false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return nil, false, nil
	}
	return append([]byte(nil), rec.ResponseBody...), true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}
