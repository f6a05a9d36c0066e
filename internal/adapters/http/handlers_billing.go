package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
)

// billingWebhook receives subscription lifecycle callbacks from the billing
// provider integration. Gated by a shared secret rather than user auth.
func (h *Handler) billingWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billingSecret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.billingSecret)) != 1 {
			writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook secret")
			return
		}
	}

	var body contracts.BillingEventRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "billing_webhook", err)
		return
	}

	input := application.BillingEventInput{Event: body.Event}
	familyID, err := uuid.Parse(body.FamilyID)
	if err != nil {
		writeValidationError(r.Context(), w, "billing_webhook", errors.New("invalid family_id"))
		return
	}
	input.FamilyID = familyID
	if body.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, body.ExpiresAt)
		if err != nil {
			writeValidationError(r.Context(), w, "billing_webhook", errors.New("invalid expires_at, expected RFC3339"))
			return
		}
		utc := t.UTC()
		input.ExpiresAt = &utc
	}

	info, err := h.service.ApplyBillingEvent(r.Context(), input)
	if err != nil {
		writeMappedError(r.Context(), w, "billing_webhook", err)
		return
	}
	writeSuccess(w, http.StatusOK, toSubscriptionResponse(info))
}
