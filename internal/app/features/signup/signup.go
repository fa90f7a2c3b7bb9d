// internal/app/features/signup/signup.go
package signup

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/brigadetools/paradebook/internal/app/store/users"
	"github.com/brigadetools/paradebook/internal/app/system/auth"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/htmlsanitize"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

const minPasswordLength = 8

// MountRoutes mounts the signup endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.HandleSignup)
}

type signupRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	AssignedRole string `json:"assigned_role"`
	Section      string `json:"section,omitempty"`
}

// HandleSignup redeems an invite code: it claims the code, creates the
// account, and grants the code's target role, signing the new user in on
// success. The claim is the atomic step; when a later step fails the code
// is released again so the invite is not burned by a transient failure.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid signup payload"))
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = htmlsanitize.PlainText(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Code == "":
		httpjson.Error(w, faults.Validation("invite code is required"))
		return
	case req.Name == "":
		httpjson.Error(w, faults.Validation("name is required"))
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		httpjson.Error(w, faults.Validation("a valid email is required"))
		return
	case len(req.Password) < minPasswordLength:
		httpjson.Error(w, faults.Validation("password must be at least %d characters", minPasswordLength))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpjson.Error(w, faults.Infra(err, "could not hash password"))
		return
	}

	// Claim first. The compare-and-set on the code row is the only
	// synchronization between concurrent signups with the same code.
	inv, err := h.Invites.Claim(ctx, req.Code, primitive.NilObjectID, time.Now())
	if err != nil {
		h.Log.Error("signup: claim failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not redeem invite"))
		return
	}
	if inv == nil {
		httpjson.Error(w, h.classifyClaimFailure(ctx, req.Code))
		return
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.Name,
		PasswordHash: string(hash),
	}
	if err := h.Users.Create(ctx, user); err != nil {
		h.release(ctx, inv.ID)
		if users.IsDuplicate(err) {
			httpjson.Error(w, faults.Conflict("an account with that email already exists"))
			return
		}
		h.Log.Error("signup: user create failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not create account"))
		return
	}

	role := &models.RoleAssignment{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      inv.TargetRole,
		GrantedBy: &inv.IssuerID,
	}
	if err := h.Roles.Create(ctx, role); err != nil {
		h.release(ctx, inv.ID)
		if _, derr := h.Users.Delete(ctx, user.ID); derr != nil {
			h.Log.Error("signup: orphaned account after role failure",
				zap.Error(derr), zap.String("user_id", user.ID.Hex()))
		}
		h.Log.Error("signup: role create failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not assign role"))
		return
	}

	// Stamp the actual claimant now that the account exists.
	if err := h.Invites.SetClaimant(ctx, inv.ID, user.ID); err != nil {
		h.Log.Error("signup: recording claimant failed", zap.Error(err),
			zap.String("invite_id", inv.ID.Hex()))
	}

	su := auth.SessionUser{ID: user.ID.Hex(), Name: user.FullName, Email: user.Email}
	if err := h.Sessions.SignIn(w, r, su); err != nil {
		h.Log.Error("signup: session write failed", zap.Error(err))
	}

	h.Log.Info("signup success",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", inv.TargetRole),
		zap.String("invite_id", inv.ID.Hex()))

	httpjson.Created(w, signupResponse{
		AssignedRole: inv.TargetRole,
		Section:      string(inv.Section),
	})
}

// classifyClaimFailure decides what to tell a claimant whose compare-and-set
// matched nothing. A spent code is a definite conflict (the concurrent-claim
// loser must hear "already used"); everything else collapses to not-found so
// codes cannot be enumerated by distinguishing expired from revoked from
// never-issued.
func (h *Handler) classifyClaimFailure(ctx context.Context, code string) error {
	inv, err := h.Invites.GetByCode(ctx, code)
	if err != nil {
		return faults.Infra(err, "could not redeem invite")
	}
	if inv == nil {
		return faults.NotFound("invite code is not valid")
	}
	if inv.Used {
		return faults.Conflict("invite code has already been used")
	}
	if inv.Expired(time.Now()) && !inv.Revoked {
		// Lazy expiry: flip the row on this touch.
		if _, err := h.Invites.Revoke(ctx, inv.ID); err != nil {
			h.Log.Error("signup: lazy expiry flip failed", zap.Error(err),
				zap.String("invite_id", inv.ID.Hex()))
		}
	}
	return faults.NotFound("invite code is not valid")
}

// release un-claims a code after a failed signup so it remains redeemable.
func (h *Handler) release(ctx context.Context, inviteID primitive.ObjectID) {
	if err := h.Invites.Unclaim(ctx, inviteID); err != nil {
		h.Log.Error("signup: releasing claimed invite failed", zap.Error(err))
	}
}
