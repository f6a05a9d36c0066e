package postgres

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:       row.UserID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		DisplayName:  row.DisplayName,
		Role:         row.Role,
		FamilyID:     row.FamilyID,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainFamily(row familyModel) domain.Family {
	return domain.Family{
		FamilyID:     row.FamilyID,
		Name:         row.Name,
		InviteCode:   row.InviteCode,
		Plan:         row.Plan,
		PremiumUntil: row.PremiumUntil,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toDomainTask(row taskModel) domain.Task {
	categoryID := uuid.Nil
	if row.CategoryID != nil {
		categoryID = *row.CategoryID
	}
	photoURL := ""
	if row.PhotoURL != nil {
		photoURL = *row.PhotoURL
	}
	return domain.Task{
		TaskID:          row.TaskID,
		FamilyID:        row.FamilyID,
		Title:           row.Title,
		Notes:           row.Notes,
		CategoryID:      categoryID,
		AssignedTo:      row.AssignedTo,
		CreatedBy:       row.CreatedBy,
		DueAt:           row.DueAt,
		Status:          row.Status,
		Recurrence:      row.Recurrence,
		RequiresPhoto:   row.RequiresPhoto,
		PhotoURL:        photoURL,
		ReminderEnabled: row.ReminderEnabled,
		ReminderLevel:   row.ReminderLevel,
		LastReminderAt:  row.LastReminderAt,
		CompletedAt:     row.CompletedAt,
		ReviewedBy:      row.ReviewedBy,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toTaskModel(task domain.Task) taskModel {
	return taskModel{
		TaskID:          task.TaskID,
		FamilyID:        task.FamilyID,
		Title:           task.Title,
		Notes:           task.Notes,
		CategoryID:      nullableUUID(task.CategoryID),
		AssignedTo:      task.AssignedTo,
		CreatedBy:       task.CreatedBy,
		DueAt:           task.DueAt,
		Status:          task.Status,
		Recurrence:      task.Recurrence,
		RequiresPhoto:   task.RequiresPhoto,
		PhotoURL:        nullableString(task.PhotoURL),
		ReminderEnabled: task.ReminderEnabled,
		ReminderLevel:   task.ReminderLevel,
		LastReminderAt:  task.LastReminderAt,
		CompletedAt:     task.CompletedAt,
		ReviewedBy:      task.ReviewedBy,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}
}

func toDomainCategory(row categoryModel) domain.TaskCategory {
	return domain.TaskCategory{
		CategoryID: row.CategoryID,
		FamilyID:   row.FamilyID,
		Name:       row.Name,
		Color:      row.Color,
		CreatedAt:  row.CreatedAt,
	}
}

func toDomainNotification(row notificationModel) domain.Notification {
	dedup := ""
	if row.DedupKey != nil {
		dedup = *row.DedupKey
	}
	return domain.Notification{
		NotificationID: row.NotificationID,
		UserID:         row.UserID,
		Type:           row.Type,
		Title:          row.Title,
		Body:           row.Body,
		Metadata:       decodeMetadata(row.Metadata),
		DedupKey:       dedup,
		CreatedAt:      row.CreatedAt,
		ReadAt:         row.ReadAt,
		ArchivedAt:     row.ArchivedAt,
	}
}

func toDomainPreferences(row preferenceModel) domain.Preferences {
	return domain.Preferences{
		UserID:            row.UserID,
		PushEnabled:       row.PushEnabled,
		InAppEnabled:      row.InAppEnabled,
		QuietHoursEnabled: row.QuietHoursEnabled,
		QuietHoursStart:   row.QuietHoursStart,
		QuietHoursEnd:     row.QuietHoursEnd,
		QuietHoursTZ:      row.QuietHoursTZ,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toDomainActivity(row activityModel) domain.Activity {
	return domain.Activity{
		ActivityID: row.ActivityID,
		FamilyID:   row.FamilyID,
		ActorID:    row.ActorID,
		Action:     row.Action,
		TargetID:   row.TargetID,
		Metadata:   decodeMetadata(row.Metadata),
		OccurredAt: row.OccurredAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		SessionID:      row.SessionID,
		UserID:         row.UserID,
		DeviceName:     row.DeviceName,
		DeviceOS:       row.DeviceOS,
		IPAddress:      ip,
		UserAgent:      row.UserAgent,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		ExpiresAt:      row.ExpiresAt,
		RevokedAt:      row.RevokedAt,
	}
}

func toDomainLoginAttempt(row loginAttemptModel) domain.LoginAttempt {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.LoginAttempt{
		ID:            row.ID,
		UserID:        row.UserID,
		AttemptAt:     row.AttemptAt,
		IPAddress:     ip,
		Status:        row.Status,
		FailureReason: row.FailureReason,
		DeviceName:    row.DeviceName,
		DeviceOS:      row.DeviceOS,
		UserAgent:     row.UserAgent,
	}
}

func encodeMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || len(meta) == 0 {
		return nil
	}
	return meta
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableUUID(v uuid.UUID) *uuid.UUID {
	if v == uuid.Nil {
		return nil
	}
	out := v
	return &out
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
