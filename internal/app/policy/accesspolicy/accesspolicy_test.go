package accesspolicy

import (
	"testing"

	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func actorWith(role authz.Role) authz.Actor {
	return authz.Actor{UserID: primitive.NewObjectID(), Email: string(role) + "@example.org", Role: role}
}

func TestAuthorizeMemberCRUD(t *testing.T) {
	ops := []Operation{OpCreate, OpRead, OpUpdate, OpDelete}
	for _, role := range authz.All() {
		actor := actorWith(role)
		for _, op := range ops {
			d := Authorize(actor, EntityMember, op, nil)
			if !d.Allowed {
				t.Errorf("%s %s member: denied (%s), want allowed", role, op, d.Reason)
			}
		}
	}
}

func TestAuthorizeNoRole(t *testing.T) {
	actor := authz.Actor{UserID: primitive.NewObjectID()}
	d := Authorize(actor, EntityMember, OpRead, nil)
	if d.Allowed {
		t.Fatal("actor without a role was allowed")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonInsufficientRole)
	}
}

func TestAuthorizeSettings(t *testing.T) {
	tests := []struct {
		role authz.Role
		op   Operation
		want bool
	}{
		{authz.Officer, OpRead, true},
		{authz.Officer, OpUpdate, false},
		{authz.Captain, OpUpdate, true},
		{authz.Admin, OpUpdate, true},
	}
	for _, tt := range tests {
		d := Authorize(actorWith(tt.role), EntitySettings, tt.op, nil)
		if d.Allowed != tt.want {
			t.Errorf("%s %s settings: allowed=%v, want %v (%s)", tt.role, tt.op, d.Allowed, tt.want, d.Reason)
		}
	}
}

func TestAuthorizeRoleRead(t *testing.T) {
	officer := actorWith(authz.Officer)
	captain := actorWith(authz.Captain)
	admin := actorWith(authz.Admin)

	// Everyone reads their own row.
	for _, a := range []authz.Actor{officer, captain, admin} {
		d := Authorize(a, EntityRole, OpRead, &Target{UserID: a.UserID, Role: a.Role})
		if !d.Allowed {
			t.Errorf("%s reading own assignment: denied (%s)", a.Role, d.Reason)
		}
	}

	tests := []struct {
		name       string
		actor      authz.Actor
		targetRole authz.Role
		want       bool
		reason     string
	}{
		{"officer reads other", officer, authz.Officer, false, ReasonInsufficientRole},
		{"captain reads officer", captain, authz.Officer, true, ""},
		{"captain reads captain", captain, authz.Captain, false, ReasonHierarchyViolation},
		{"admin reads captain", admin, authz.Captain, true, ""},
		{"admin reads other admin", admin, authz.Admin, false, ReasonHierarchyViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.actor, EntityRole, OpRead, &Target{UserID: primitive.NewObjectID(), Role: tt.targetRole})
			if d.Allowed != tt.want {
				t.Fatalf("allowed=%v, want %v (%s)", d.Allowed, tt.want, d.Reason)
			}
			if !tt.want && d.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestAuthorizeRoleSelfLockout(t *testing.T) {
	// Self checks fire before hierarchy for every role, admins included.
	for _, op := range []Operation{OpUpdate, OpDelete} {
		for _, role := range authz.All() {
			a := actorWith(role)
			d := Authorize(a, EntityRole, op, &Target{UserID: a.UserID, Role: a.Role})
			if d.Allowed {
				t.Errorf("%s %s own assignment: allowed, want denied", role, op)
				continue
			}
			if d.Reason != ReasonSelfAction {
				t.Errorf("%s %s own assignment: reason = %q, want %q", role, op, d.Reason, ReasonSelfAction)
			}
		}
	}
}

func TestAuthorizeRoleMutation(t *testing.T) {
	other := primitive.NewObjectID()
	tests := []struct {
		name   string
		actor  authz.Role
		op     Operation
		target Target
		want   bool
		reason string
	}{
		{"officer deletes officer", authz.Officer, OpDelete, Target{UserID: other, Role: authz.Officer}, false, ReasonInsufficientRole},
		{"captain deletes officer", authz.Captain, OpDelete, Target{UserID: other, Role: authz.Officer}, true, ""},
		{"captain deletes captain", authz.Captain, OpDelete, Target{UserID: other, Role: authz.Captain}, false, ReasonHierarchyViolation},
		{"captain promotes to captain", authz.Captain, OpUpdate, Target{UserID: other, Role: authz.Officer, NewRole: authz.Captain}, false, ReasonTargetRoleMismatch},
		{"admin updates captain", authz.Admin, OpUpdate, Target{UserID: other, Role: authz.Captain, NewRole: authz.Officer}, true, ""},
		{"admin deletes admin", authz.Admin, OpDelete, Target{UserID: other, Role: authz.Admin}, false, ReasonAdminProtection},
		{"admin updates admin", authz.Admin, OpUpdate, Target{UserID: other, Role: authz.Admin, NewRole: authz.Captain}, false, ReasonAdminProtection},
		{"admin grants admin", authz.Admin, OpUpdate, Target{UserID: other, Role: authz.Captain, NewRole: authz.Admin}, false, ReasonTargetRoleMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(actorWith(tt.actor), EntityRole, tt.op, &tt.target)
			if d.Allowed != tt.want {
				t.Fatalf("allowed=%v, want %v (%s)", d.Allowed, tt.want, d.Reason)
			}
			if !tt.want && d.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestAuthorizeInviteIssue(t *testing.T) {
	tests := []struct {
		name   string
		actor  authz.Role
		target authz.Role
		want   bool
		reason string
	}{
		{"officer issues", authz.Officer, authz.Officer, false, ReasonInsufficientRole},
		{"captain issues officer", authz.Captain, authz.Officer, true, ""},
		{"captain issues captain", authz.Captain, authz.Captain, false, ReasonTargetRoleMismatch},
		{"admin issues captain", authz.Admin, authz.Captain, true, ""},
		{"admin issues admin", authz.Admin, authz.Admin, false, ReasonTargetRoleMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(actorWith(tt.actor), EntityInvite, OpIssue, &Target{Role: tt.target})
			if d.Allowed != tt.want {
				t.Fatalf("allowed=%v, want %v (%s)", d.Allowed, tt.want, d.Reason)
			}
			if !tt.want && d.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestAuthorizeInviteRevoke(t *testing.T) {
	if d := Authorize(actorWith(authz.Captain), EntityInvite, OpRevoke, &Target{Role: authz.Captain}); d.Allowed {
		t.Error("captain revoking captain-targeted invite was allowed")
	}
	if d := Authorize(actorWith(authz.Captain), EntityInvite, OpRevoke, &Target{Role: authz.Officer}); !d.Allowed {
		t.Errorf("captain revoking officer-targeted invite denied (%s)", d.Reason)
	}
	if d := Authorize(actorWith(authz.Admin), EntityInvite, OpRevoke, &Target{Role: authz.Captain}); !d.Allowed {
		t.Errorf("admin revoking captain-targeted invite denied (%s)", d.Reason)
	}
}

func TestAuthorizeAudit(t *testing.T) {
	tests := []struct {
		role authz.Role
		op   Operation
		want bool
	}{
		{authz.Officer, OpRead, false},
		{authz.Captain, OpRead, true},
		{authz.Captain, OpReadRevertData, false},
		{authz.Captain, OpRevert, false},
		{authz.Admin, OpReadRevertData, true},
		{authz.Admin, OpRevert, true},
	}
	for _, tt := range tests {
		d := Authorize(actorWith(tt.role), EntityAudit, tt.op, nil)
		if d.Allowed != tt.want {
			t.Errorf("%s %s audit: allowed=%v, want %v (%s)", tt.role, tt.op, d.Allowed, tt.want, d.Reason)
		}
	}
}

func TestAuthorizeMonotonicity(t *testing.T) {
	// Whatever a lower role may do without a target, every higher role may
	// do too.
	ops := []struct {
		entity Entity
		op     Operation
	}{
		{EntityMember, OpCreate},
		{EntityMember, OpUpdate},
		{EntitySettings, OpRead},
		{EntitySettings, OpUpdate},
		{EntityAudit, OpRead},
	}
	roles := authz.All()
	for _, o := range ops {
		for i, lower := range roles {
			if !Authorize(actorWith(lower), o.entity, o.op, nil).Allowed {
				continue
			}
			for _, higher := range roles[i+1:] {
				if d := Authorize(actorWith(higher), o.entity, o.op, nil); !d.Allowed {
					t.Errorf("%s allowed %s %s but %s denied (%s)", lower, o.op, o.entity, higher, d.Reason)
				}
			}
		}
	}
}

func TestDecisionErr(t *testing.T) {
	if err := allow().Err(); err != nil {
		t.Fatalf("allow().Err() = %v, want nil", err)
	}
	err := deny(ReasonSelfAction, "x").Err()
	if err == nil {
		t.Fatal("deny().Err() = nil")
	}
	if faults.KindOf(err) != faults.KindDenied {
		t.Fatalf("kind = %q, want denied", faults.KindOf(err))
	}
}
