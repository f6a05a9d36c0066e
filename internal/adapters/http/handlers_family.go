package http

import (
	"net/http"

	"github.com/typeb/familyhub/internal/application"
	"github.com/typeb/familyhub/internal/contracts"
)

func (h *Handler) createFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "create_family")
		return
	}
	var body contracts.CreateFamilyRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "create_family", err)
		return
	}

	family, err := h.service.CreateFamily(r.Context(), actor, application.CreateFamilyInput{Name: body.Name})
	if err != nil {
		writeMappedError(r.Context(), w, "create_family", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toFamilyResponse(family, nil))
}

func (h *Handler) getFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "get_family")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_family", err)
		return
	}

	details, err := h.service.GetFamily(r.Context(), actor, familyID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_family", err)
		return
	}
	writeSuccess(w, http.StatusOK, toFamilyResponse(details.Family, details.Members))
}

func (h *Handler) joinFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "join_family")
		return
	}
	var body contracts.JoinFamilyRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "join_family", err)
		return
	}

	family, err := h.service.JoinFamily(r.Context(), actor, body.InviteCode)
	if err != nil {
		writeMappedError(r.Context(), w, "join_family", err)
		return
	}
	writeSuccess(w, http.StatusOK, toFamilyResponse(family, nil))
}

func (h *Handler) leaveFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "leave_family")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "leave_family", err)
		return
	}

	if err := h.service.LeaveFamily(r.Context(), actor, familyID); err != nil {
		writeMappedError(r.Context(), w, "leave_family", err)
		return
	}
	writeMessage(w, http.StatusOK, "Left family successfully")
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "remove_member")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_member", err)
		return
	}
	memberID, err := uuidParam(r, "user_id")
	if err != nil {
		writeValidationError(r.Context(), w, "remove_member", err)
		return
	}

	if err := h.service.RemoveMember(r.Context(), actor, familyID, memberID); err != nil {
		writeMappedError(r.Context(), w, "remove_member", err)
		return
	}
	writeMessage(w, http.StatusOK, "Member removed successfully")
}

func (h *Handler) changeMemberRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "change_member_role")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "change_member_role", err)
		return
	}
	memberID, err := uuidParam(r, "user_id")
	if err != nil {
		writeValidationError(r.Context(), w, "change_member_role", err)
		return
	}
	var body contracts.ChangeRoleRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "change_member_role", err)
		return
	}

	if err := h.service.ChangeMemberRole(r.Context(), actor, familyID, memberID, body.Role); err != nil {
		writeMappedError(r.Context(), w, "change_member_role", err)
		return
	}
	writeMessage(w, http.StatusOK, "Role updated successfully")
}

func (h *Handler) rotateInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "rotate_invite_code")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "rotate_invite_code", err)
		return
	}

	code, err := h.service.RotateInviteCode(r.Context(), actor, familyID)
	if err != nil {
		writeMappedError(r.Context(), w, "rotate_invite_code", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"invite_code": code})
}

func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "list_activity")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "list_activity", err)
		return
	}

	page := parseIntDefault(r.URL.Query().Get("page"), 1)
	pageSize := parseIntDefault(r.URL.Query().Get("page_size"), 20)
	items, err := h.service.ListActivity(r.Context(), actor, familyID, page, pageSize)
	if err != nil {
		writeMappedError(r.Context(), w, "list_activity", err)
		return
	}
	activity := make([]contracts.ActivityDTO, 0, len(items))
	for _, item := range items {
		activity = append(activity, toActivityDTO(item))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"activity": activity})
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingActorError(r.Context(), w, "get_subscription")
		return
	}
	familyID, err := uuidParam(r, "family_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_subscription", err)
		return
	}

	info, err := h.service.GetSubscription(r.Context(), actor, familyID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_subscription", err)
		return
	}
	writeSuccess(w, http.StatusOK, toSubscriptionResponse(info))
}
