// internal/app/features/auditlog/revert.go
package auditlog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/brigadetools/paradebook/internal/app/store/audit"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

// applyInverse undoes the action an audit entry recorded, using its stored
// revert payload. Each action type has its own inverse; an entry without
// the payload its inverse needs cannot be reverted.
func (h *Handler) applyInverse(ctx context.Context, e *audit.Entry) error {
	switch e.Action {
	case audit.ActionMemberCreated:
		return h.revertMemberCreated(ctx, e)
	case audit.ActionMemberUpdated, audit.ActionMemberDeleted:
		return h.revertMemberSnapshot(ctx, e)
	case audit.ActionSettingsUpdated:
		return h.revertSettings(ctx, e)
	case audit.ActionInviteGenerated:
		return h.revertInviteGenerated(ctx, e)
	case audit.ActionInviteRevoked:
		return h.revertInviteRevoked(ctx, e)
	case audit.ActionRoleUpdated:
		return h.revertRoleUpdated(ctx, e)
	case audit.ActionRoleDeleted:
		return h.revertRoleDeleted(ctx, e)
	default:
		return faults.Validation("action %q has no revert", e.Action)
	}
}

// revertMemberCreated deletes the member the entry created.
func (h *Handler) revertMemberCreated(ctx context.Context, e *audit.Entry) error {
	if e.EntityID == nil {
		return faults.Validation("entry carries no member id")
	}
	if _, err := h.Members.Delete(ctx, *e.EntityID); err != nil {
		return faults.Infra(err, "could not remove created member")
	}
	return nil
}

// revertMemberSnapshot restores the member document stored in the entry.
// Updates and deletions share the inverse: put the snapshot back.
func (h *Handler) revertMemberSnapshot(ctx context.Context, e *audit.Entry) error {
	var prior models.Member
	if err := decodePayload(e, &prior); err != nil {
		return err
	}
	if prior.ID.IsZero() && e.EntityID != nil {
		prior.ID = *e.EntityID
	}
	if prior.ID.IsZero() {
		return faults.Validation("snapshot carries no member id")
	}
	if err := h.Members.Replace(ctx, &prior); err != nil {
		return faults.Infra(err, "could not restore member snapshot")
	}
	return nil
}

func (h *Handler) revertSettings(ctx context.Context, e *audit.Entry) error {
	var prior models.SectionSettings
	if err := decodePayload(e, &prior); err != nil {
		return err
	}
	if !prior.Section.Valid() {
		return faults.Validation("snapshot carries no section")
	}
	if err := h.Settings.Save(ctx, prior.Section, prior); err != nil {
		return faults.Infra(err, "could not restore settings")
	}
	return nil
}

// revertInviteGenerated revokes the issued code. A code already claimed
// cannot be un-issued; the conflict is surfaced rather than papered over.
func (h *Handler) revertInviteGenerated(ctx context.Context, e *audit.Entry) error {
	if e.EntityID == nil {
		return faults.Validation("entry carries no invite id")
	}
	inv, err := h.Invites.GetByID(ctx, *e.EntityID)
	if err != nil {
		return faults.Infra(err, "could not load invite")
	}
	if inv == nil {
		return faults.NotFound("invite no longer exists")
	}
	if inv.Used {
		return faults.Conflict("invite has already been claimed")
	}
	if inv.Revoked {
		return nil
	}
	if _, err := h.Invites.Revoke(ctx, inv.ID); err != nil {
		return faults.Infra(err, "could not revoke invite")
	}
	return nil
}

func (h *Handler) revertInviteRevoked(ctx context.Context, e *audit.Entry) error {
	if e.EntityID == nil {
		return faults.Validation("entry carries no invite id")
	}
	ok, err := h.Invites.Unrevoke(ctx, *e.EntityID)
	if err != nil {
		return faults.Infra(err, "could not restore invite")
	}
	if !ok {
		return faults.Conflict("invite cannot be restored")
	}
	return nil
}

func (h *Handler) revertRoleUpdated(ctx context.Context, e *audit.Entry) error {
	var prior models.RoleAssignment
	if err := decodePayload(e, &prior); err != nil {
		return err
	}
	if prior.ID.IsZero() {
		return faults.Validation("snapshot carries no assignment id")
	}
	ok, err := h.Roles.UpdateRole(ctx, prior.ID, prior.Role, e.ActorID)
	if err != nil {
		return faults.Infra(err, "could not restore role")
	}
	if !ok {
		return faults.NotFound("role assignment no longer exists")
	}
	return nil
}

func (h *Handler) revertRoleDeleted(ctx context.Context, e *audit.Entry) error {
	var prior models.RoleAssignment
	if err := decodePayload(e, &prior); err != nil {
		return err
	}
	if prior.UserID.IsZero() {
		return faults.Validation("snapshot carries no user id")
	}
	// Recreate under a fresh document ID; the user may meanwhile have
	// gained a different assignment, which the unique index rejects.
	prior.ID = primitive.NilObjectID
	if err := h.Roles.Create(ctx, &prior); err != nil {
		return faults.Conflict("user already holds a role assignment")
	}
	return nil
}

func decodePayload(e *audit.Entry, dst any) error {
	if len(e.RevertData) == 0 {
		return faults.Validation("entry carries no revert data")
	}
	if err := bson.Unmarshal(e.RevertData, dst); err != nil {
		return faults.Infra(err, "could not decode revert data")
	}
	return nil
}
