package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/typeb/familyhub/internal/domain"
	"github.com/typeb/familyhub/internal/ports"
)

// Repositories is the in-memory counterpart of the postgres adapter. It backs
// unit tests and broker-less local runs with the same port semantics, including
// invite-code and dedup-key unique violations.
type Repositories struct {
	Users         *UserRepository
	Families      *FamilyRepository
	Tasks         *TaskRepository
	Categories    *CategoryRepository
	Notifications *NotificationRepository
	Preferences   *PreferenceRepository
	Activities    *ActivityRepository
	Sessions      *SessionRepository
	LoginAttempts *LoginAttemptRepository
	Outbox        *OutboxRepository
	Idempotency   *IdempotencyRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Users:         &UserRepository{rows: map[uuid.UUID]domain.User{}},
		Families:      &FamilyRepository{rows: map[uuid.UUID]domain.Family{}},
		Tasks:         &TaskRepository{rows: map[uuid.UUID]domain.Task{}},
		Categories:    &CategoryRepository{rows: map[uuid.UUID]domain.TaskCategory{}},
		Notifications: &NotificationRepository{rows: map[uuid.UUID]domain.Notification{}},
		Preferences:   &PreferenceRepository{rows: map[uuid.UUID]domain.Preferences{}},
		Activities:    &ActivityRepository{},
		Sessions:      &SessionRepository{rows: map[uuid.UUID]domain.Session{}},
		LoginAttempts: &LoginAttemptRepository{},
		Outbox:        &OutboxRepository{rows: map[uuid.UUID]*ports.OutboxRecord{}},
		Idempotency:   &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
	}
}

type UserRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.User
}

func (r *UserRepository) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if strings.EqualFold(row.Email, user.Email) {
			return domain.ErrConflict
		}
	}
	r.rows[user.UserID] = user
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if strings.EqualFold(row.Email, email) {
			return row, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *UserRepository) SetFamily(_ context.Context, userID, familyID uuid.UUID, role string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return domain.ErrNotFound
	}
	fid := familyID
	row.FamilyID = &fid
	row.Role = role
	row.UpdatedAt = at
	r.rows[userID] = row
	return nil
}

func (r *UserRepository) ClearFamily(_ context.Context, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return domain.ErrNotFound
	}
	row.FamilyID = nil
	row.UpdatedAt = at
	r.rows[userID] = row
	return nil
}

// SetActive exists for tests that simulate an operator-deactivated account.
func (r *UserRepository) SetActive(userID uuid.UUID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return
	}
	row.IsActive = active
	r.rows[userID] = row
}

func (r *UserRepository) SetRole(_ context.Context, userID uuid.UUID, role string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return domain.ErrNotFound
	}
	row.Role = role
	row.UpdatedAt = at
	r.rows[userID] = row
	return nil
}

func (r *UserRepository) ListByFamilyID(_ context.Context, familyID uuid.UUID) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.User
	for _, row := range r.rows {
		if row.FamilyID != nil && *row.FamilyID == familyID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) CountByFamilyID(ctx context.Context, familyID uuid.UUID) (int, error) {
	rows, err := r.ListByFamilyID(ctx, familyID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

type FamilyRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Family

	// ForceCodeConflicts makes the next N inserts fail with ErrConflict so the
	// invite-code retry loop can be exercised.
	ForceCodeConflicts int
}

func (r *FamilyRepository) Create(_ context.Context, family domain.Family) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForceCodeConflicts > 0 {
		r.ForceCodeConflicts--
		return domain.ErrConflict
	}
	for _, row := range r.rows {
		if row.InviteCode == family.InviteCode {
			return domain.ErrConflict
		}
	}
	r.rows[family.FamilyID] = family
	return nil
}

func (r *FamilyRepository) GetByID(_ context.Context, familyID uuid.UUID) (domain.Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[familyID]
	if !ok {
		return domain.Family{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *FamilyRepository) GetByInviteCode(_ context.Context, code string) (domain.Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.InviteCode == code {
			return row, nil
		}
	}
	return domain.Family{}, domain.ErrNotFound
}

func (r *FamilyRepository) UpdateInviteCode(_ context.Context, familyID uuid.UUID, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if id != familyID && row.InviteCode == code {
			return domain.ErrConflict
		}
	}
	row, ok := r.rows[familyID]
	if !ok {
		return domain.ErrNotFound
	}
	row.InviteCode = code
	row.UpdatedAt = at
	r.rows[familyID] = row
	return nil
}

func (r *FamilyRepository) UpdatePlan(_ context.Context, familyID uuid.UUID, plan string, premiumUntil *time.Time, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[familyID]
	if !ok {
		return domain.ErrNotFound
	}
	row.Plan = plan
	row.PremiumUntil = premiumUntil
	row.UpdatedAt = at
	r.rows[familyID] = row
	return nil
}

// Delete exists for tests that simulate a dangling family reference.
func (r *FamilyRepository) Delete(familyID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, familyID)
}

type TaskRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Task
}

func (r *TaskRepository) Create(_ context.Context, task domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[task.TaskID] = task
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, taskID uuid.UUID) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[taskID]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *TaskRepository) ListByFamilyID(_ context.Context, familyID uuid.UUID, filter domain.TaskFilter) ([]domain.Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Task
	for _, row := range r.rows {
		if row.FamilyID != familyID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != nil && row.AssignedTo != *filter.AssignedTo {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DueAt.Before(matched[j].DueAt) })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *TaskRepository) Update(_ context.Context, task domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[task.TaskID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[task.TaskID] = task
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, taskID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[taskID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, taskID)
	return nil
}

func (r *TaskRepository) ListDueForReminder(_ context.Context, now time.Time, horizon time.Duration, limit int) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := now.Add(horizon)
	var out []domain.Task
	for _, row := range r.rows {
		if row.Status != domain.TaskStatusPending || !row.ReminderEnabled {
			continue
		}
		if row.ReminderLevel >= domain.ReminderMaxLevel {
			continue
		}
		if row.DueAt.After(cutoff) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TaskRepository) AdvanceReminderLevel(_ context.Context, taskID uuid.UUID, fromLevel, toLevel int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[taskID]
	if !ok {
		return false, nil
	}
	if row.ReminderLevel != fromLevel || row.Status != domain.TaskStatusPending {
		return false, nil
	}
	row.ReminderLevel = toLevel
	t := at
	row.LastReminderAt = &t
	row.UpdatedAt = at
	r.rows[taskID] = row
	return true, nil
}

type CategoryRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.TaskCategory
}

func (r *CategoryRepository) Create(_ context.Context, category domain.TaskCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		sameScope := (row.FamilyID == nil && category.FamilyID == nil) ||
			(row.FamilyID != nil && category.FamilyID != nil && *row.FamilyID == *category.FamilyID)
		if sameScope && strings.EqualFold(row.Name, category.Name) {
			return domain.ErrConflict
		}
	}
	r.rows[category.CategoryID] = category
	return nil
}

func (r *CategoryRepository) GetByID(_ context.Context, categoryID uuid.UUID) (domain.TaskCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[categoryID]
	if !ok {
		return domain.TaskCategory{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *CategoryRepository) ListForFamily(_ context.Context, familyID uuid.UUID) ([]domain.TaskCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TaskCategory
	for _, row := range r.rows {
		if row.FamilyID == nil || *row.FamilyID == familyID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].FamilyID == nil) != (out[j].FamilyID == nil) {
			return out[i].FamilyID == nil
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type NotificationRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Notification
}

func (r *NotificationRepository) Create(_ context.Context, row domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row.DedupKey != "" {
		for _, existing := range r.rows {
			if existing.DedupKey == row.DedupKey {
				return domain.ErrConflict
			}
		}
	}
	r.rows[row.NotificationID] = row
	return nil
}

func (r *NotificationRepository) GetByID(_ context.Context, notificationID uuid.UUID) (domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[notificationID]
	if !ok {
		return domain.Notification{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *NotificationRepository) ListByUserID(_ context.Context, userID uuid.UUID, filter domain.NotificationFilter) ([]domain.Notification, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Notification
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if filter.Type != "" && row.Type != filter.Type {
			continue
		}
		switch filter.Status {
		case "unread":
			if row.ReadAt != nil || row.ArchivedAt != nil {
				continue
			}
		case "read":
			if row.ReadAt == nil || row.ArchivedAt != nil {
				continue
			}
		case "archived":
			if row.ArchivedAt == nil {
				continue
			}
		default:
			if row.ArchivedAt != nil {
				continue
			}
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.ReadAt == nil && row.ArchivedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) Update(_ context.Context, row domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[row.NotificationID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.ReadAt = row.ReadAt
	existing.ArchivedAt = row.ArchivedAt
	r.rows[row.NotificationID] = existing
	return nil
}

// All returns every stored notification, newest first. Test helper.
func (r *NotificationRepository) All() []domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Notification, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type PreferenceRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Preferences
}

func (r *PreferenceRepository) Get(_ context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	out := row
	return &out, nil
}

func (r *PreferenceRepository) Upsert(_ context.Context, prefs domain.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[prefs.UserID] = prefs
	return nil
}

type ActivityRepository struct {
	mu   sync.RWMutex
	rows []domain.Activity
}

func (r *ActivityRepository) Create(_ context.Context, row domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

func (r *ActivityRepository) ListByFamilyID(_ context.Context, familyID uuid.UUID, limit, offset int) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.Activity
	for _, row := range r.rows {
		if row.FamilyID == familyID {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].OccurredAt.After(matched[j].OccurredAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type SessionRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]domain.Session
}

func (r *SessionRepository) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := domain.Session{
		SessionID:      uuid.New(),
		UserID:         params.UserID,
		DeviceName:     params.DeviceName,
		DeviceOS:       params.DeviceOS,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		CreatedAt:      params.LastActivityAt,
		LastActivityAt: params.LastActivityAt,
		ExpiresAt:      params.ExpiresAt,
	}
	r.rows[row.SessionID] = row
	return row, nil
}

func (r *SessionRepository) GetByID(_ context.Context, sessionID uuid.UUID) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Session
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SessionRepository) TouchActivity(_ context.Context, sessionID uuid.UUID, touchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	row.LastActivityAt = touchedAt
	r.rows[sessionID] = row
	return nil
}

func (r *SessionRepository) RevokeByID(_ context.Context, sessionID uuid.UUID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if row.RevokedAt == nil {
		t := revokedAt
		row.RevokedAt = &t
		r.rows[sessionID] = row
	}
	return nil
}

func (r *SessionRepository) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			t := revokedAt
			row.RevokedAt = &t
			r.rows[id] = row
		}
	}
	return nil
}

type LoginAttemptRepository struct {
	mu   sync.RWMutex
	rows []domain.LoginAttempt
}

func (r *LoginAttemptRepository) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, attempt)
	return nil
}

func (r *LoginAttemptRepository) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []domain.LoginAttempt
	for _, row := range r.rows {
		if row.UserID == nil || *row.UserID != userID {
			continue
		}
		if since != nil && row.AttemptAt.Before(*since) {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].AttemptAt.After(matched[j].AttemptAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type OutboxRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*ports.OutboxRecord
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[event.EventID] = &ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		CreatedAt:    event.OccurredAt,
	}
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []ports.OutboxRecord
	for _, row := range r.rows {
		if row.PublishedAt != nil || row.DeadLetteredAt != nil {
			continue
		}
		if row.ClaimUntil != nil && row.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		row.ClaimToken = &token
		row.ClaimUntil = &until
		out = append(out, *row)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[outboxID]
	if !ok || row.ClaimToken == nil || *row.ClaimToken != claimToken {
		return nil
	}
	t := at
	row.PublishedAt = &t
	row.ClaimToken = nil
	row.ClaimUntil = nil
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[outboxID]
	if !ok || row.ClaimToken == nil || *row.ClaimToken != claimToken {
		return nil
	}
	row.RetryCount++
	msg := errMsg
	t := at
	row.LastError = &msg
	row.LastErrorAt = &t
	row.ClaimToken = nil
	row.ClaimUntil = nil
	return nil
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[outboxID]
	if !ok || row.ClaimToken == nil || *row.ClaimToken != claimToken {
		return nil
	}
	row.RetryCount++
	msg := errMsg
	t := at
	row.LastError = &msg
	row.LastErrorAt = &t
	row.DeadLetteredAt = &t
	row.ClaimToken = nil
	row.ClaimUntil = nil
	return nil
}

// Pending returns unpublished records, oldest first. Test helper.
func (r *OutboxRepository) Pending() []ports.OutboxRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ports.OutboxRecord
	for _, row := range r.rows {
		if row.PublishedAt == nil && row.DeadLetteredAt == nil {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type IdempotencyRepository struct {
	mu   sync.RWMutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	out := row
	return &out, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; ok {
		return domain.ErrConflict
	}
	now := time.Now().UTC()
	r.rows[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      "PENDING",
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.Status = "COMPLETED"
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	row.UpdatedAt = at
	r.rows[key] = row
	return nil
}
