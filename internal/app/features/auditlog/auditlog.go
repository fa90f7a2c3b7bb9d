// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/policy/accesspolicy"
	"github.com/brigadetools/paradebook/internal/app/store/audit"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/gates"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
)

// MountRoutes mounts the audit log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeEntry)
	r.Post("/{id}/revert", h.HandleRevert)
}

// ServeList handles GET /api/audit. Captains and admins browse entries;
// revert payloads never appear here regardless of role (the projection
// drops them at the database).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntityAudit, accesspolicy.OpRead, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	filter := audit.QueryFilter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entity_type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpjson.Error(w, faults.Validation("invalid from timestamp; want RFC 3339"))
			return
		}
		filter.StartTime = &ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpjson.Error(w, faults.Validation("invalid to timestamp; want RFC 3339"))
			return
		}
		filter.EndTime = &ts
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	entries, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.Log.Error("audit query failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not query audit log"))
		return
	}
	httpjson.OK(w, entries)
}

// ServeEntry handles GET /api/audit/{id}, returning one entry including
// its revert payload. Admin only: the payload holds prior state (full
// member documents, role rows) that redacted browsing must not expose.
func (h *Handler) ServeEntry(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntityAudit, accesspolicy.OpReadRevertData, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, faults.Validation("invalid entry id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	entry, err := h.Audit.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("audit fetch failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load audit entry"))
		return
	}
	if entry == nil {
		httpjson.Error(w, faults.NotFound("audit entry not found"))
		return
	}
	httpjson.OK(w, entry)
}

// HandleRevert handles POST /api/audit/{id}/revert. The admin check runs
// here at execution time, not at entry creation, because the actor's role
// may have changed in between. Claiming the entry (the one-shot reverted
// flag) happens before the inverse payload is applied, so two concurrent
// reverts cannot both run; the loser gets Conflict.
func (h *Handler) HandleRevert(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntityAudit, accesspolicy.OpRevert, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, faults.Validation("invalid entry id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	entry, err := h.Audit.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("revert: audit fetch failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load audit entry"))
		return
	}
	if entry == nil {
		httpjson.Error(w, faults.NotFound("audit entry not found"))
		return
	}
	if entry.Action == audit.ActionRevert {
		httpjson.Error(w, faults.Validation("revert entries cannot themselves be reverted"))
		return
	}
	if entry.Reverted {
		httpjson.Error(w, faults.Conflict("entry has already been reverted"))
		return
	}

	ok, err := h.Audit.MarkReverted(ctx, entry.ID, res.Actor.UserID)
	if err != nil {
		h.Log.Error("revert: claiming entry failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not revert entry"))
		return
	}
	if !ok {
		httpjson.Error(w, faults.Conflict("entry has already been reverted"))
		return
	}

	if err := h.applyInverse(ctx, entry); err != nil {
		// Release the claim so the revert can be retried once the
		// underlying problem is fixed.
		if cerr := h.Audit.ClearReverted(ctx, entry.ID); cerr != nil {
			h.Log.Error("revert: releasing claimed entry failed", zap.Error(cerr),
				zap.String("entry_id", entry.ID.Hex()))
		}
		httpjson.Error(w, err)
		return
	}

	revertID, err := h.Recorder.Reverted(ctx, res.Actor, entry.ID, entry.Action)
	if err != nil {
		h.Log.Error("revert: recording revert entry failed", zap.Error(err))
	}

	h.Log.Info("audit entry reverted",
		zap.String("entry_id", entry.ID.Hex()),
		zap.String("action", entry.Action),
		zap.String("actor_id", res.Actor.UserID.Hex()))

	httpjson.OK(w, map[string]string{
		"reverted_entry": entry.ID.Hex(),
		"revert_entry":   revertID.Hex(),
		"reverted_at":    time.Now().UTC().Format(time.RFC3339),
	})
}
