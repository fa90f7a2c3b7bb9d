// internal/app/system/auditlog/recorder.go
package auditlog

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/store/audit"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
)

// Config holds audit recording configuration.
type Config struct {
	// Mode controls where audit entries go.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Mode string
}

// Recorder writes audit entries for every mutating operation. Entries go
// to MongoDB (via audit.Store) so they can be queried and reverted, and to
// structured logs (via zap) for operational visibility, per config.
type Recorder struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Recorder.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Recorder {
	return &Recorder{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (r *Recorder) logToZap(e audit.Entry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("entity_type", e.EntityType),
		zap.String("actor_id", e.ActorID.Hex()),
		zap.String("actor_email", e.ActorEmail),
	}
	if e.EntityID != nil {
		fields = append(fields, zap.String("entity_id", e.EntityID.Hex()))
	}
	if e.RevertOf != nil {
		fields = append(fields, zap.String("revert_of", e.RevertOf.Hex()))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	r.zapLog.Info("audit entry", fields...)
}

// Record writes one audit entry according to configuration and returns its
// ID. When the database is skipped by config, the returned ID is zero. A
// nil Recorder is a no-op so tests can omit auditing.
func (r *Recorder) Record(ctx context.Context, e audit.Entry) (primitive.ObjectID, error) {
	if r == nil || r.config.Mode == "off" {
		return primitive.NilObjectID, nil
	}

	if r.config.Mode == "all" || r.config.Mode == "log" {
		r.logToZap(e)
	}

	if r.config.Mode == "all" || r.config.Mode == "db" {
		id, err := r.store.Record(ctx, e)
		if err != nil {
			r.zapLog.Error("failed to store audit entry",
				zap.Error(err),
				zap.String("action", e.Action),
			)
			return primitive.NilObjectID, faults.Infra(err, "recording audit entry")
		}
		return id, nil
	}
	return primitive.NilObjectID, nil
}

// entry assembles the common fields of an audit entry.
func entry(actor authz.Actor, action, entityType string, entityID *primitive.ObjectID, details map[string]string) audit.Entry {
	return audit.Entry{
		Action:     action,
		ActorID:    actor.UserID,
		ActorEmail: actor.Email,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
}

// withRevertData marshals the undo payload into the entry. A payload that
// cannot be marshaled is a programming error surfaced as infrastructure.
func withRevertData(e audit.Entry, payload any) (audit.Entry, error) {
	if payload == nil {
		return e, nil
	}
	raw, err := bson.Marshal(payload)
	if err != nil {
		return e, faults.Infra(err, "encoding revert data")
	}
	e.RevertData = raw
	return e, nil
}

// MemberCreated records a member creation. Undo state is the member's ID.
func (r *Recorder) MemberCreated(ctx context.Context, actor authz.Actor, memberID primitive.ObjectID, name string, section string) (primitive.ObjectID, error) {
	e := entry(actor, audit.ActionMemberCreated, audit.EntityMember, &memberID, map[string]string{
		"name":    name,
		"section": section,
	})
	return r.Record(ctx, e)
}

// MemberUpdated records a member update with the prior document as undo
// state.
func (r *Recorder) MemberUpdated(ctx context.Context, actor authz.Actor, memberID primitive.ObjectID, prior any, details map[string]string) (primitive.ObjectID, error) {
	e, err := withRevertData(entry(actor, audit.ActionMemberUpdated, audit.EntityMember, &memberID, details), prior)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.Record(ctx, e)
}

// MemberDeleted records a member deletion with the full deleted document
// as undo state.
func (r *Recorder) MemberDeleted(ctx context.Context, actor authz.Actor, memberID primitive.ObjectID, deleted any, details map[string]string) (primitive.ObjectID, error) {
	e, err := withRevertData(entry(actor, audit.ActionMemberDeleted, audit.EntityMember, &memberID, details), deleted)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.Record(ctx, e)
}

// SettingsUpdated records a section settings change with the prior
// settings as undo state.
func (r *Recorder) SettingsUpdated(ctx context.Context, actor authz.Actor, section string, prior any) (primitive.ObjectID, error) {
	e, err := withRevertData(entry(actor, audit.ActionSettingsUpdated, audit.EntitySettings, nil, map[string]string{
		"section": section,
	}), prior)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.Record(ctx, e)
}

// InviteGenerated records issuance of an invite code. The code string
// itself stays out of details; only its ID and target role are recorded.
func (r *Recorder) InviteGenerated(ctx context.Context, actor authz.Actor, inviteID primitive.ObjectID, targetRole string) (primitive.ObjectID, error) {
	e := entry(actor, audit.ActionInviteGenerated, audit.EntityInvite, &inviteID, map[string]string{
		"target_role": targetRole,
	})
	return r.Record(ctx, e)
}

// InviteRevoked records revocation of an invite code.
func (r *Recorder) InviteRevoked(ctx context.Context, actor authz.Actor, inviteID primitive.ObjectID, targetRole string) (primitive.ObjectID, error) {
	e := entry(actor, audit.ActionInviteRevoked, audit.EntityInvite, &inviteID, map[string]string{
		"target_role": targetRole,
	})
	return r.Record(ctx, e)
}

// RoleUpdated records a role change with the prior assignment as undo
// state.
func (r *Recorder) RoleUpdated(ctx context.Context, actor authz.Actor, assignmentID primitive.ObjectID, prior any, oldRole, newRole string) (primitive.ObjectID, error) {
	e, err := withRevertData(entry(actor, audit.ActionRoleUpdated, audit.EntityRole, &assignmentID, map[string]string{
		"old_role": oldRole,
		"new_role": newRole,
	}), prior)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.Record(ctx, e)
}

// RoleDeleted records removal of a role assignment with the deleted
// assignment as undo state.
func (r *Recorder) RoleDeleted(ctx context.Context, actor authz.Actor, assignmentID primitive.ObjectID, deleted any, role string) (primitive.ObjectID, error) {
	e, err := withRevertData(entry(actor, audit.ActionRoleDeleted, audit.EntityRole, &assignmentID, map[string]string{
		"role": role,
	}), deleted)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.Record(ctx, e)
}

// Reverted records the execution of a revert as a new entry pointing back
// at the reverted one. The actor's role is checked here again: only
// admins may put revert entries in the log, no matter what the caller
// already verified.
func (r *Recorder) Reverted(ctx context.Context, actor authz.Actor, revertOf primitive.ObjectID, revertedAction string) (primitive.ObjectID, error) {
	if actor.Role != authz.Admin {
		return primitive.NilObjectID, faults.Denied("insufficient_role", "revert entries require admin")
	}
	e := entry(actor, audit.ActionRevert, audit.EntityAudit, nil, map[string]string{
		"reverted_action": revertedAction,
	})
	e.RevertOf = &revertOf
	return r.Record(ctx, e)
}
