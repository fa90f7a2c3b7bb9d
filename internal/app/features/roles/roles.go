// internal/app/features/roles/roles.go
package roles

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/policy/accesspolicy"
	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	"github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/gates"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Handler owns role-assignment management.
type Handler struct {
	Roles    *rolestore.Store
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs a roles Handler.
func NewHandler(store *rolestore.Store, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Roles: store, Recorder: recorder, Log: logger}
}

// MountRoutes mounts the role-assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeList)
	r.Get("/me", h.ServeMe)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

// ServeMe handles GET /api/roles/me, returning the caller's own
// assignment row.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	own, err := h.Roles.GetByUser(ctx, res.Actor.UserID)
	if err != nil {
		h.Log.Error("role lookup failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not look up role"))
		return
	}
	if own == nil {
		httpjson.Error(w, faults.NotFound("no role assignment"))
		return
	}
	httpjson.OK(w, own)
}

type updateRequest struct {
	Role string `json:"role"`
}

// ServeList handles GET /api/roles. Every actor sees their own row;
// captains additionally see officer-level rows and admins see officer and
// captain rows. Other admins' rows are invisible even to admins.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var visible []string
	switch res.Actor.Role {
	case authz.Captain:
		visible = []string{string(authz.Officer)}
	case authz.Admin:
		visible = []string{string(authz.Officer), string(authz.Captain)}
	}

	out := make([]models.RoleAssignment, 0, 8)
	own, err := h.Roles.GetByUser(ctx, res.Actor.UserID)
	if err != nil {
		h.Log.Error("role list: own lookup failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not list roles"))
		return
	}
	if own != nil {
		out = append(out, *own)
	}

	if len(visible) > 0 {
		list, err := h.Roles.ListByRoles(ctx, visible)
		if err != nil {
			h.Log.Error("role list failed", zap.Error(err))
			httpjson.Error(w, faults.Infra(err, "could not list roles"))
			return
		}
		for _, ra := range list {
			if ra.UserID != res.Actor.UserID {
				out = append(out, ra)
			}
		}
	}
	httpjson.OK(w, out)
}

// HandleUpdate handles PUT /api/roles/{id}. The self-lockout, hierarchy,
// and admin-protection rules live in the access policy; the prior
// assignment goes into the audit entry for revert.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid role payload"))
		return
	}
	newRole, err := authz.Parse(req.Role)
	if err != nil {
		httpjson.Error(w, faults.Validation("unknown role %q", req.Role))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, target, ferr := h.fetchTarget(ctx, w, r)
	if prior == nil || ferr != nil {
		return
	}
	target.NewRole = newRole

	if derr := accesspolicy.Authorize(res.Actor, accesspolicy.EntityRole, accesspolicy.OpUpdate, target).Err(); derr != nil {
		httpjson.Error(w, derr)
		return
	}

	if _, err := h.Roles.UpdateRole(ctx, prior.ID, string(newRole), res.Actor.UserID); err != nil {
		h.Log.Error("role update failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not update role"))
		return
	}

	if _, err := h.Recorder.RoleUpdated(ctx, res.Actor, prior.ID, prior, prior.Role, string(newRole)); err != nil {
		h.Log.Error("role update: audit failed", zap.Error(err))
	}

	updated, err := h.Roles.GetByID(ctx, prior.ID)
	if err != nil || updated == nil {
		httpjson.NoContent(w)
		return
	}
	httpjson.OK(w, updated)
}

// HandleDelete handles DELETE /api/roles/{id}. The deleted assignment goes
// into the audit entry so it can be restored.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, target, ferr := h.fetchTarget(ctx, w, r)
	if prior == nil || ferr != nil {
		return
	}

	if derr := accesspolicy.Authorize(res.Actor, accesspolicy.EntityRole, accesspolicy.OpDelete, target).Err(); derr != nil {
		httpjson.Error(w, derr)
		return
	}

	if _, err := h.Roles.Delete(ctx, prior.ID); err != nil {
		h.Log.Error("role delete failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not delete role"))
		return
	}

	if _, err := h.Recorder.RoleDeleted(ctx, res.Actor, prior.ID, prior, prior.Role); err != nil {
		h.Log.Error("role delete: audit failed", zap.Error(err))
	}
	httpjson.NoContent(w)
}

// fetchTarget loads the assignment addressed by {id} and builds the policy
// target from it, writing the error response itself on failure.
func (h *Handler) fetchTarget(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.RoleAssignment, *accesspolicy.Target, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, faults.Validation("invalid assignment id"))
		return nil, nil, err
	}
	ra, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("role fetch failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load assignment"))
		return nil, nil, err
	}
	if ra == nil {
		httpjson.Error(w, faults.NotFound("role assignment not found"))
		return nil, nil, nil
	}
	role, _ := authz.Parse(ra.Role)
	return ra, &accesspolicy.Target{UserID: ra.UserID, Role: role}, nil
}
