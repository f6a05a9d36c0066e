package http

import (
	"net/http"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "list_notifications")
		return
	}

	input := application.ListNotificationsInput{
		Type:     r.URL.Query().Get("type"),
		Status:   r.URL.Query().Get("status"),
		Page:     parseIntDefault(r.URL.Query().Get("page"), 1),
		PageSize: parseIntDefault(r.URL.Query().Get("page_size"), 20),
	}
	items, total, err := h.service.ListNotifications(r.Context(), actor, input)
	if err != nil {
		writeMappedError(r.Context(), w, "list_notifications", err)
		return
	}
	notifications := make([]contracts.NotificationDTO, 0, len(items))
	for _, item := range items {
		notifications = append(notifications, toNotificationDTO(item))
	}
	writeSuccess(w, http.StatusOK, contracts.NotificationListResponse{
		Notifications: notifications,
		Total:         total,
	})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "unread_count")
		return
	}
	count, err := h.service.UnreadCount(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "unread_count", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"unread": count})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "mark_notification_read")
		return
	}
	notificationID, err := uuidParam(r, "notification_id")
	if err != nil {
		writeValidationError(r.Context(), w, "mark_notification_read", err)
		return
	}

	row, err := h.service.MarkNotificationRead(r.Context(), actor, notificationID)
	if err != nil {
		writeMappedError(r.Context(), w, "mark_notification_read", err)
		return
	}
	writeSuccess(w, http.StatusOK, toNotificationDTO(row))
}

func (h *Handler) archiveNotification(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "archive_notification")
		return
	}
	notificationID, err := uuidParam(r, "notification_id")
	if err != nil {
		writeValidationError(r.Context(), w, "archive_notification", err)
		return
	}

	row, err := h.service.ArchiveNotification(r.Context(), actor, notificationID)
	if err != nil {
		writeMappedError(r.Context(), w, "archive_notification", err)
		return
	}
	writeSuccess(w, http.StatusOK, toNotificationDTO(row))
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "get_preferences")
		return
	}
	prefs, err := h.service.GetPreferences(r.Context(), actor)
	if err != nil {
		writeMappedError(r.Context(), w, "get_preferences", err)
		return
	}
	writeSuccess(w, http.StatusOK, toPreferencesDTO(prefs))
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "update_preferences")
		return
	}
	var body contracts.PreferencesDTO
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "update_preferences", err)
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), actor, application.UpdatePreferencesInput{
		PushEnabled:       body.PushEnabled,
		InAppEnabled:      body.InAppEnabled,
		QuietHoursEnabled: body.QuietHoursEnabled,
		QuietHoursStart:   body.QuietHoursStart,
		QuietHoursEnd:     body.QuietHoursEnd,
		QuietHoursTZ:      body.QuietHoursTZ,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "update_preferences", err)
		return
	}
	writeSuccess(w, http.StatusOK, toPreferencesDTO(prefs))
}
