package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
)

func (s *Service) ListNotifications(ctx context.Context, actor Actor, input ListNotificationsInput) ([]domain.Notification, int, error) {
	if actor.UserID == uuid.Nil {
		return nil, 0, domain.ErrUnauthorized
	}
	filter := domain.NotificationFilter{
		Type:     input.Type,
		Status:   input.Status,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	switch filter.Status {
	case "", "unread", "read", "archived":
	default:
		return nil, 0, fmt.Errorf("%w: status must be unread, read or archived", domain.ErrInvalidInput)
	}
	return s.notifications.ListByUserID(ctx, actor.UserID, filter)
}

func (s *Service) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	if actor.UserID == uuid.Nil {
		return 0, domain.ErrUnauthorized
	}
	return s.notifications.CountUnread(ctx, actor.UserID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, actor Actor, notificationID uuid.UUID) (domain.Notification, error) {
	row, err := s.ownNotification(ctx, actor, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	row.MarkRead(s.nowFn())
	if err := s.notifications.Update(ctx, row); err != nil {
		return domain.Notification{}, err
	}
	return row, nil
}

func (s *Service) ArchiveNotification(ctx context.Context, actor Actor, notificationID uuid.UUID) (domain.Notification, error) {
	row, err := s.ownNotification(ctx, actor, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	now := s.nowFn()
	row.MarkRead(now)
	row.Archive(now)
	if err := s.notifications.Update(ctx, row); err != nil {
		return domain.Notification{}, err
	}
	return row, nil
}

func (s *Service) GetPreferences(ctx context.Context, actor Actor) (domain.Preferences, error) {
	if actor.UserID == uuid.Nil {
		return domain.Preferences{}, domain.ErrUnauthorized
	}
	return s.preferencesFor(ctx, actor.UserID), nil
}

// UpdatePreferences validates and persists the full preference document.
// Quiet-hours bounds are wall-clock "HH:MM" in the given IANA timezone.
func (s *Service) UpdatePreferences(ctx context.Context, actor Actor, input UpdatePreferencesInput) (domain.Preferences, error) {
	if actor.UserID == uuid.Nil {
		return domain.Preferences{}, domain.ErrUnauthorized
	}
	prefs := domain.Preferences{
		UserID:            actor.UserID,
		PushEnabled:       input.PushEnabled,
		InAppEnabled:      input.InAppEnabled,
		QuietHoursEnabled: input.QuietHoursEnabled,
		QuietHoursStart:   input.QuietHoursStart,
		QuietHoursEnd:     input.QuietHoursEnd,
		QuietHoursTZ:      input.QuietHoursTZ,
		UpdatedAt:         s.nowFn(),
	}
	if prefs.QuietHoursTZ == "" {
		prefs.QuietHoursTZ = "UTC"
	}
	if _, err := time.LoadLocation(prefs.QuietHoursTZ); err != nil {
		return domain.Preferences{}, fmt.Errorf("%w: unknown timezone %q", domain.ErrInvalidInput, prefs.QuietHoursTZ)
	}
	if prefs.QuietHoursEnabled {
		for _, v := range []string{prefs.QuietHoursStart, prefs.QuietHoursEnd} {
			if _, err := time.Parse("15:04", v); err != nil {
				return domain.Preferences{}, fmt.Errorf("%w: quiet hours must be HH:MM", domain.ErrInvalidInput)
			}
		}
	}
	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return domain.Preferences{}, err
	}
	return prefs, nil
}

func (s *Service) ownNotification(ctx context.Context, actor Actor, notificationID uuid.UUID) (domain.Notification, error) {
	if actor.UserID == uuid.Nil {
		return domain.Notification{}, domain.ErrUnauthorized
	}
	row, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if row.UserID != actor.UserID {
		return domain.Notification{}, domain.ErrNotFound
	}
	return row, nil
}
