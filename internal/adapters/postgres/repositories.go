package postgres

import (
	"github.com/typeb/familyhub/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users         ports.UserRepository
	Families      ports.FamilyRepository
	Tasks         ports.TaskRepository
	Categories    ports.CategoryRepository
	Notifications ports.NotificationRepository
	Preferences   ports.PreferenceRepository
	Activities    ports.ActivityRepository
	Sessions      ports.SessionRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Idempotency   ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:         &userRepository{db: db},
		Families:      &familyRepository{db: db},
		Tasks:         &taskRepository{db: db},
		Categories:    &categoryRepository{db: db},
		Notifications: &notificationRepository{db: db},
		Preferences:   &preferenceRepository{db: db},
		Activities:    &activityRepository{db: db},
		Sessions:      &sessionRepository{db: db},
		LoginAttempts: &loginAttemptRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		Idempotency:   &idempotencyRepository{db: db},
	}
}
