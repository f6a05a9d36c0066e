package domain

const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

const (
	BillingEventActivated = "activated"
	BillingEventExpired   = "expired"
)

// Entitlements captures what a family's plan allows. Checks happen at the point of
// use (join, category creation, reminder dispatch) so a downgrade takes effect
// without mutating existing data.
type Entitlements struct {
	MaxMembers       int
	CustomCategories bool
	ReminderPush     bool
}

func EntitlementsForPlan(plan string) Entitlements {
	if plan == PlanPremium {
		return Entitlements{
			MaxMembers:       10,
			CustomCategories: true,
			ReminderPush:     true,
		}
	}
	return Entitlements{
		MaxMembers:       5,
		CustomCategories: false,
		ReminderPush:     false,
	}
}

func IsValidBillingEvent(v string) bool {
	switch v {
	case BillingEventActivated, BillingEventExpired:
		return true
	default:
		return false
	}
}
