// Package accesspolicy is the single authorization decision point. Every
// entity/operation pair an actor can request is decided here, by one
// enumerable rule set, so HTTP gates, store filters, and the audit revert
// path cannot drift apart.
//
// Authorization rules:
//   - Members and marks: any role-bearing actor (officer and up) may
//     create, read, update, and delete, in either section. Section is a
//     data-partitioning dimension, never an authorization axis.
//   - Section settings: everyone reads; captains and admins write.
//   - Role assignments: everyone reads their own row. Captains see and
//     manage officer-level rows only; admins see officer and captain rows
//     and manage them. Nobody touches their own row, and no admin touches
//     another admin's row.
//   - Invite codes: captains issue, see, and revoke officer-targeted codes
//     only; admins handle all codes and may target captain-level invites.
//   - Audit log: captains and admins read redacted entries; only admins
//     read revert payloads, execute reverts, or record revert entries.
package accesspolicy

import (
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entity is a protected entity type.
type Entity string

const (
	EntityMember   Entity = "member"
	EntitySettings Entity = "section_settings"
	EntityRole     Entity = "role_assignment"
	EntityInvite   Entity = "invite_code"
	EntityAudit    Entity = "audit_log"
)

// Operation is a requested action on an entity.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"

	// Invite-specific operations.
	OpIssue  Operation = "issue"
	OpRevoke Operation = "revoke"

	// Audit-specific operations. OpRead on EntityAudit is the redacted
	// read; OpReadRevertData exposes revert payloads; OpRevert both
	// executes a revert and gates recording a revert-type entry.
	OpReadRevertData Operation = "read_revert_data"
	OpRevert         Operation = "revert"
)

// Deny reasons. Every refusal names the rule that fired so callers can
// produce an actionable message and tests can pin the exact rule.
const (
	ReasonInsufficientRole   = "insufficient_role"
	ReasonHierarchyViolation = "hierarchy_violation"
	ReasonSelfAction         = "self_action_forbidden"
	ReasonTargetRoleMismatch = "target_role_mismatch"
	ReasonAdminProtection    = "admin_protection"
)

// Target carries the attributes of the row an operation acts on, where the
// decision depends on them. Section is deliberately absent: it must never
// influence an authorization outcome.
type Target struct {
	// UserID is the subject of a role-assignment row (for self checks).
	UserID primitive.ObjectID
	// Role is the role currently held by a role-assignment target, or the
	// target role of an invite code.
	Role authz.Role
	// NewRole is the role a role-update would assign, when applicable.
	NewRole authz.Role
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
	Detail  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason, detail string) Decision {
	return Decision{Allowed: false, Reason: reason, Detail: detail}
}

// Err converts a deny decision into a typed fault. Calling Err on an allow
// decision returns nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return faults.Denied(d.Reason, d.Detail)
}

// Authorize decides whether actor may perform op on entity. target is
// required for role-assignment mutations and per-code invite operations,
// and ignored elsewhere. A refusal never degrades to a partial success;
// the caller gets the full deny with its reason.
func Authorize(actor authz.Actor, entity Entity, op Operation, target *Target) Decision {
	if !actor.Role.Valid() {
		return deny(ReasonInsufficientRole, "no role assigned")
	}

	switch entity {
	case EntityMember:
		return memberDecision(actor, op)
	case EntitySettings:
		return settingsDecision(actor, op)
	case EntityRole:
		return roleDecision(actor, op, target)
	case EntityInvite:
		return inviteDecision(actor, op, target)
	case EntityAudit:
		return auditDecision(actor, op)
	default:
		return deny(ReasonInsufficientRole, "unknown entity")
	}
}

// memberDecision: full CRUD for every role-bearing actor, both sections.
func memberDecision(actor authz.Actor, op Operation) Decision {
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
		return allow()
	default:
		return deny(ReasonInsufficientRole, "unsupported member operation")
	}
}

func settingsDecision(actor authz.Actor, op Operation) Decision {
	switch op {
	case OpRead:
		return allow()
	case OpUpdate:
		if !actor.Role.AtLeast(authz.Captain) {
			return deny(ReasonInsufficientRole, "section settings are writable by captains and admins only")
		}
		return allow()
	default:
		return deny(ReasonInsufficientRole, "unsupported settings operation")
	}
}

func roleDecision(actor authz.Actor, op Operation, target *Target) Decision {
	if target == nil {
		return deny(ReasonInsufficientRole, "role operation requires a target")
	}
	self := target.UserID == actor.UserID

	switch op {
	case OpRead:
		if self {
			return allow()
		}
		switch actor.Role {
		case authz.Captain:
			if target.Role != authz.Officer {
				return deny(ReasonHierarchyViolation, "captains may view officer-level assignments only")
			}
			return allow()
		case authz.Admin:
			if target.Role == authz.Admin {
				return deny(ReasonHierarchyViolation, "admin assignments are visible only to their owner")
			}
			return allow()
		default:
			return deny(ReasonInsufficientRole, "officers may view only their own assignment")
		}

	case OpUpdate, OpDelete:
		// Self-lockout prevention comes first: it applies to every role,
		// including admins, before any hierarchy question.
		if self {
			return deny(ReasonSelfAction, "cannot change or remove your own role assignment")
		}
		switch actor.Role {
		case authz.Captain:
			if target.Role != authz.Officer {
				return deny(ReasonHierarchyViolation, "captains may manage officer-level assignments only")
			}
			if op == OpUpdate && target.NewRole != "" && target.NewRole != authz.Officer {
				return deny(ReasonTargetRoleMismatch, "captains may assign the officer role only")
			}
			return allow()
		case authz.Admin:
			if target.Role == authz.Admin {
				return deny(ReasonAdminProtection, "admin assignments cannot be changed by another admin")
			}
			if op == OpUpdate && target.NewRole == authz.Admin {
				return deny(ReasonTargetRoleMismatch, "role updates cannot grant admin")
			}
			return allow()
		default:
			return deny(ReasonInsufficientRole, "role management requires captain or admin")
		}

	default:
		return deny(ReasonInsufficientRole, "unsupported role operation")
	}
}

func inviteDecision(actor authz.Actor, op Operation, target *Target) Decision {
	targetRole := authz.Role("")
	if target != nil {
		targetRole = target.Role
	}

	switch op {
	case OpIssue:
		switch actor.Role {
		case authz.Captain:
			if targetRole != authz.Officer {
				return deny(ReasonTargetRoleMismatch, "captains may issue officer invites only")
			}
			return allow()
		case authz.Admin:
			if targetRole != authz.Officer && targetRole != authz.Captain {
				return deny(ReasonTargetRoleMismatch, "invites may target officer or captain only")
			}
			return allow()
		default:
			return deny(ReasonInsufficientRole, "invite issuance requires captain or admin")
		}

	case OpRead, OpRevoke:
		switch actor.Role {
		case authz.Captain:
			if targetRole != "" && targetRole != authz.Officer {
				return deny(ReasonTargetRoleMismatch, "captains may access officer-targeted invites only")
			}
			return allow()
		case authz.Admin:
			return allow()
		default:
			return deny(ReasonInsufficientRole, "invite access requires captain or admin")
		}

	default:
		return deny(ReasonInsufficientRole, "unsupported invite operation")
	}
}

func auditDecision(actor authz.Actor, op Operation) Decision {
	switch op {
	case OpRead:
		if !actor.Role.AtLeast(authz.Captain) {
			return deny(ReasonInsufficientRole, "audit log is visible to captains and admins only")
		}
		return allow()
	case OpReadRevertData, OpRevert:
		if actor.Role != authz.Admin {
			return deny(ReasonInsufficientRole, "revert operations require admin")
		}
		return allow()
	default:
		return deny(ReasonInsufficientRole, "unsupported audit operation")
	}
}
