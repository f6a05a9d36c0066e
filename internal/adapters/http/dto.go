package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
	"github.com/typeb/familyhub/internal/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func toUserDTO(u domain.User) contracts.UserDTO {
	dto := contracts.UserDTO{
		UserID:      u.UserID.String(),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
	if u.FamilyID != nil {
		dto.FamilyID = u.FamilyID.String()
	}
	return dto
}

func toFamilyResponse(f domain.Family, members []domain.User) contracts.FamilyResponse {
	resp := contracts.FamilyResponse{
		FamilyID:   f.FamilyID.String(),
		Name:       f.Name,
		InviteCode: f.InviteCode,
		Plan:       f.Plan,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, contracts.FamilyMemberDTO{
			UserID:      m.UserID.String(),
			DisplayName: m.DisplayName,
			Role:        m.Role,
		})
	}
	return resp
}

func toTaskDTO(t domain.Task) contracts.TaskDTO {
	categoryID := ""
	if t.CategoryID != uuid.Nil {
		categoryID = t.CategoryID.String()
	}
	return contracts.TaskDTO{
		TaskID:          t.TaskID.String(),
		FamilyID:        t.FamilyID.String(),
		Title:           t.Title,
		Notes:           t.Notes,
		CategoryID:      categoryID,
		AssignedTo:      t.AssignedTo.String(),
		CreatedBy:       t.CreatedBy.String(),
		DueAt:           formatTime(t.DueAt),
		Status:          t.Status,
		Recurrence:      t.Recurrence,
		RequiresPhoto:   t.RequiresPhoto,
		PhotoURL:        t.PhotoURL,
		ReminderEnabled: t.ReminderEnabled,
		ReminderLevel:   t.ReminderLevel,
		CompletedAt:     formatTimePtr(t.CompletedAt),
	}
}

func toCategoryDTO(c domain.TaskCategory) contracts.CategoryDTO {
	return contracts.CategoryDTO{
		CategoryID: c.CategoryID.String(),
		Name:       c.Name,
		Color:      c.Color,
		Default:    c.FamilyID == nil,
	}
}

func toNotificationDTO(n domain.Notification) contracts.NotificationDTO {
	return contracts.NotificationDTO{
		NotificationID: n.NotificationID.String(),
		Type:           n.Type,
		Title:          n.Title,
		Body:           n.Body,
		Metadata:       n.Metadata,
		CreatedAt:      formatTime(n.CreatedAt),
		Read:           n.ReadAt != nil,
		Archived:       n.ArchivedAt != nil,
	}
}

func toPreferencesDTO(p domain.Preferences) contracts.PreferencesDTO {
	return contracts.PreferencesDTO{
		PushEnabled:       p.PushEnabled,
		InAppEnabled:      p.InAppEnabled,
		QuietHoursEnabled: p.QuietHoursEnabled,
		QuietHoursStart:   p.QuietHoursStart,
		QuietHoursEnd:     p.QuietHoursEnd,
		QuietHoursTZ:      p.QuietHoursTZ,
	}
}

func toActivityDTO(a domain.Activity) contracts.ActivityDTO {
	return contracts.ActivityDTO{
		ActivityID: a.ActivityID.String(),
		ActorID:    a.ActorID.String(),
		Action:     a.Action,
		TargetID:   a.TargetID,
		Metadata:   a.Metadata,
		OccurredAt: formatTime(a.OccurredAt),
	}
}

func toSessionDTO(s application.SessionItem) contracts.SessionDTO {
	return contracts.SessionDTO{
		SessionID:      s.SessionID.String(),
		DeviceName:     s.DeviceName,
		DeviceOS:       s.DeviceOS,
		CreatedAt:      formatTime(s.CreatedAt),
		LastActivityAt: formatTime(s.LastActivityAt),
		Current:        s.Current,
		Revoked:        s.Revoked,
	}
}

func toLoginHistoryDTO(a domain.LoginAttempt) contracts.LoginHistoryItemDTO {
	return contracts.LoginHistoryItemDTO{
		Timestamp:     formatTime(a.AttemptAt),
		Status:        a.Status,
		FailureReason: a.FailureReason,
		IPAddress:     a.IPAddress,
		DeviceName:    a.DeviceName,
	}
}

func toSubscriptionResponse(info application.SubscriptionInfo) contracts.SubscriptionResponse {
	return contracts.SubscriptionResponse{
		Plan:         info.Plan,
		PremiumUntil: formatTimePtr(info.PremiumUntil),
		MaxMembers:   info.Entitlements.MaxMembers,
	}
}
