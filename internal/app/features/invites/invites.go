// internal/app/features/invites/invites.go
package invites

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/policy/accesspolicy"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/gates"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

// MountRoutes mounts the authenticated invite management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleIssue)
	r.Post("/{id}/revoke", h.HandleRevoke)
}

type issueRequest struct {
	TargetRole string     `json:"target_role"`
	Section    string     `json:"section,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// validateResponse is the public probe's entire vocabulary: validity and
// what the code would grant. Issuer identity and usage history stay
// private, and every invalid state looks the same.
type validateResponse struct {
	Valid      bool       `json:"valid"`
	Section    string     `json:"section,omitempty"`
	TargetRole string     `json:"target_role,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ServeValidate handles GET /api/invites/{code}, callable without a
// session. Not-found, expired, and revoked codes are indistinguishable.
func (h *Handler) ServeValidate(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.Invites.GetByCode(ctx, code)
	if err != nil {
		h.Log.Error("invite validate: lookup failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not check invite"))
		return
	}
	if inv == nil || !inv.Usable(time.Now()) {
		httpjson.OK(w, validateResponse{Valid: false})
		return
	}

	expires := inv.ExpiresAt
	httpjson.OK(w, validateResponse{
		Valid:      true,
		Section:    string(inv.Section),
		TargetRole: inv.TargetRole,
		ExpiresAt:  &expires,
	})
}

// ServeList handles GET /api/invites. Captains see officer-targeted codes
// only; admins see everything. Listing is a write-touching read for lazy
// expiry: overdue codes are flipped to revoked first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntityInvite, accesspolicy.OpRead, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Invites.RevokeExpired(ctx, time.Now()); err != nil {
		h.Log.Error("invite list: expiry sweep failed", zap.Error(err))
	}

	var targetRoles []string
	if res.Actor.Role == authz.Captain {
		targetRoles = []string{string(authz.Officer)}
	}
	list, err := h.Invites.List(ctx, targetRoles)
	if err != nil {
		h.Log.Error("invite list failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not list invites"))
		return
	}
	httpjson.OK(w, list)
}

// HandleIssue handles POST /api/invites. Eligibility is the access
// policy's issue row; the expiry may not exceed the 7-day horizon.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	var req issueRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid invite payload"))
		return
	}

	targetRole, err := authz.Parse(req.TargetRole)
	if err != nil {
		httpjson.Error(w, faults.Validation("unknown target role %q", req.TargetRole))
		return
	}
	if derr := accesspolicy.Authorize(res.Actor, accesspolicy.EntityInvite, accesspolicy.OpIssue, &accesspolicy.Target{Role: targetRole}).Err(); derr != nil {
		httpjson.Error(w, derr)
		return
	}

	section := models.Section(strings.ToLower(strings.TrimSpace(req.Section)))
	if section != "" && !section.Valid() {
		httpjson.Error(w, faults.Validation("unknown section %q", req.Section))
		return
	}

	now := time.Now().UTC()
	expiresAt := now.Add(models.InviteMaxTTL)
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
		if !expiresAt.After(now) {
			httpjson.Error(w, faults.Validation("expiry must be in the future"))
			return
		}
		if expiresAt.After(now.Add(models.InviteMaxTTL)) {
			httpjson.Error(w, faults.Validation("expiry may not exceed %d days from issuance", int(models.InviteMaxTTL.Hours()/24)))
			return
		}
	}

	inv := &models.InviteCode{
		Code:        newCode(),
		IssuerID:    res.Actor.UserID,
		IssuerEmail: res.Actor.Email,
		Section:     section,
		TargetRole:  string(targetRole),
		ExpiresAt:   expiresAt,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Invites.Create(ctx, inv); err != nil {
		h.Log.Error("invite create failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not issue invite"))
		return
	}

	if _, err := h.Recorder.InviteGenerated(ctx, res.Actor, inv.ID, inv.TargetRole); err != nil {
		h.Log.Error("invite issue: audit failed", zap.Error(err))
	}
	httpjson.Created(w, inv)
}

// HandleRevoke handles POST /api/invites/{id}/revoke. A spent code cannot
// be revoked; captains may only touch officer-targeted codes.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, faults.Validation("invalid invite id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.Invites.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("invite fetch failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load invite"))
		return
	}
	if inv == nil {
		httpjson.Error(w, faults.NotFound("invite not found"))
		return
	}

	targetRole, _ := authz.Parse(inv.TargetRole)
	if derr := accesspolicy.Authorize(res.Actor, accesspolicy.EntityInvite, accesspolicy.OpRevoke, &accesspolicy.Target{Role: targetRole}).Err(); derr != nil {
		httpjson.Error(w, derr)
		return
	}

	if inv.Used {
		httpjson.Error(w, faults.Conflict("invite has already been used"))
		return
	}

	ok, err := h.Invites.Revoke(ctx, id)
	if err != nil {
		h.Log.Error("invite revoke failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not revoke invite"))
		return
	}
	if !ok {
		httpjson.Error(w, faults.Conflict("invite has already been used"))
		return
	}

	if _, err := h.Recorder.InviteRevoked(ctx, res.Actor, id, inv.TargetRole); err != nil {
		h.Log.Error("invite revoke: audit failed", zap.Error(err))
	}
	httpjson.NoContent(w)
}

// newCode mints an opaque invite code. UUIDv4 gives enough entropy that
// codes cannot be guessed; dashes are dropped for friendlier copy/paste.
func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
