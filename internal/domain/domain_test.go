package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidatePassword(t *testing.T) {
	valid := []string{"CorrectHorse1", "a1b2c3d4", strings.Repeat("x", 120) + "9abcdefg"}
	for _, p := range valid {
		if err := ValidatePassword(p); err != nil {
			t.Fatalf("ValidatePassword(%q) = %v", p, err)
		}
	}

	invalid := []string{
		"abc1",
		strings.Repeat("a", 129) + "1",
		"onlyletters",
		"12345678",
		"MyPassword1",
		"Qwerty99x",
		"xx123456xx",
		"LetMeIn77",
	}
	for _, p := range invalid {
		if err := ValidatePassword(p); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ValidatePassword(%q) should fail with ErrInvalidInput, got %v", p, err)
		}
	}
}

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := NewInviteCode()
		if len(code) != InviteCodeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(inviteCodeAlphabet, r) {
				t.Fatalf("code %q uses %q outside the alphabet", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("codes do not look random: %v", seen)
	}
}

func TestEffectivePlan(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name   string
		family Family
		want   string
	}{
		{"free", Family{Plan: PlanFree}, PlanFree},
		{"premium open ended", Family{Plan: PlanPremium}, PlanPremium},
		{"premium active", Family{Plan: PlanPremium, PremiumUntil: &future}, PlanPremium},
		{"premium lapsed", Family{Plan: PlanPremium, PremiumUntil: &past}, PlanFree},
	}
	for _, tc := range cases {
		if got := tc.family.EffectivePlan(now); got != tc.want {
			t.Fatalf("%s: EffectivePlan = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestEntitlementsForPlan(t *testing.T) {
	free := EntitlementsForPlan(PlanFree)
	if free.MaxMembers != 5 || free.CustomCategories || free.ReminderPush {
		t.Fatalf("free entitlements: %+v", free)
	}
	premium := EntitlementsForPlan(PlanPremium)
	if premium.MaxMembers != 10 || !premium.CustomCategories || !premium.ReminderPush {
		t.Fatalf("premium entitlements: %+v", premium)
	}
}

func TestNextOccurrence(t *testing.T) {
	due := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)

	if next, ok := (Task{Recurrence: RecurrenceDaily, DueAt: due}).NextOccurrence(); !ok || !next.Equal(due.Add(24*time.Hour)) {
		t.Fatalf("daily: next=%v ok=%v", next, ok)
	}
	if next, ok := (Task{Recurrence: RecurrenceWeekly, DueAt: due}).NextOccurrence(); !ok || !next.Equal(due.Add(7*24*time.Hour)) {
		t.Fatalf("weekly: next=%v ok=%v", next, ok)
	}
	if _, ok := (Task{Recurrence: RecurrenceNone, DueAt: due}).NextOccurrence(); ok {
		t.Fatalf("one-shot tasks should not recur")
	}
}

func TestInQuietHours(t *testing.T) {
	base := Preferences{
		QuietHoursEnabled: true,
		QuietHoursStart:   "21:00",
		QuietHoursEnd:     "07:00",
		QuietHoursTZ:      "UTC",
	}
	at := func(h, m int) time.Time {
		return time.Date(2026, 4, 1, h, m, 0, 0, time.UTC)
	}

	// Window crossing midnight.
	if !base.InQuietHours(at(23, 30)) {
		t.Fatalf("23:30 should be quiet")
	}
	if !base.InQuietHours(at(2, 0)) {
		t.Fatalf("02:00 should be quiet")
	}
	if base.InQuietHours(at(7, 0)) {
		t.Fatalf("end bound is exclusive")
	}
	if base.InQuietHours(at(12, 0)) {
		t.Fatalf("midday should not be quiet")
	}

	// Same-day window.
	day := base
	day.QuietHoursStart = "13:00"
	day.QuietHoursEnd = "15:00"
	if !day.InQuietHours(at(14, 0)) || day.InQuietHours(at(15, 0)) {
		t.Fatalf("same-day window bounds wrong")
	}

	// Timezone shifts the wall clock.
	berlin := base
	berlin.QuietHoursTZ = "Europe/Berlin"
	if berlin.InQuietHours(at(12, 0)) {
		t.Fatalf("noon UTC is early afternoon in Berlin, not quiet")
	}
	if !berlin.InQuietHours(at(20, 30)) {
		t.Fatalf("20:30 UTC is past 21:00 in Berlin")
	}

	// Disabled or malformed settings never defer.
	off := base
	off.QuietHoursEnabled = false
	if off.InQuietHours(at(23, 0)) {
		t.Fatalf("disabled quiet hours should never match")
	}
	broken := base
	broken.QuietHoursStart = "9pm"
	if broken.InQuietHours(at(23, 0)) {
		t.Fatalf("unparseable bounds should never match")
	}
}

func TestNotificationStateTransitions(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	n := Notification{NotificationID: uuid.New()}
	if !n.IsUnread() {
		t.Fatalf("fresh notification should be unread")
	}

	n.MarkRead(now)
	if n.ReadAt == nil || n.IsUnread() {
		t.Fatalf("mark read did not stick")
	}
	first := *n.ReadAt
	n.MarkRead(now.Add(time.Hour))
	if !n.ReadAt.Equal(first) {
		t.Fatalf("second mark read should not move the timestamp")
	}

	n.Archive(now.Add(2 * time.Hour))
	if n.ArchivedAt == nil {
		t.Fatalf("archive did not stick")
	}
}

func TestReminderDedupKey(t *testing.T) {
	id := uuid.MustParse("6b1e8f1a-93a1-4e2c-9b52-0f4f6a3d7e01")
	got := ReminderDedupKey(id, 2)
	want := "reminder:6b1e8f1a-93a1-4e2c-9b52-0f4f6a3d7e01:2"
	if got != want {
		t.Fatalf("ReminderDedupKey = %q, want %q", got, want)
	}
}
