// internal/app/features/settings/settings.go
package settings

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/policy/accesspolicy"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	"github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/gates"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Handler owns the per-section settings endpoints.
type Handler struct {
	Settings *settingsstore.Store
	Recorder *auditlog.Recorder
	Log      *zap.Logger
}

// NewHandler constructs a settings Handler.
func NewHandler(store *settingsstore.Store, recorder *auditlog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{Settings: store, Recorder: recorder, Log: logger}
}

// MountRoutes mounts the settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{section}", h.ServeSettings)
	r.Put("/{section}", h.HandleUpdate)
}

type updateRequest struct {
	MeetingDay int `json:"meeting_day"`
}

// ServeSettings handles GET /api/settings/{section}. Readable by every
// role-bearing actor.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntitySettings, accesspolicy.OpRead, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	section := models.Section(chi.URLParam(r, "section"))
	if !section.Valid() {
		httpjson.Error(w, faults.Validation("unknown section %q", section))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	settings, err := h.Settings.Get(ctx, section)
	if err != nil {
		h.Log.Error("settings load failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load settings"))
		return
	}
	httpjson.OK(w, settings)
}

// HandleUpdate handles PUT /api/settings/{section}. Writable by captains
// and admins; the prior settings go into the audit entry for revert.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := accesspolicy.Authorize(res.Actor, accesspolicy.EntitySettings, accesspolicy.OpUpdate, nil).Err(); err != nil {
		httpjson.Error(w, err)
		return
	}

	section := models.Section(chi.URLParam(r, "section"))
	if !section.Valid() {
		httpjson.Error(w, faults.Validation("unknown section %q", section))
		return
	}

	var req updateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid settings payload"))
		return
	}
	if req.MeetingDay < 0 || req.MeetingDay > 6 {
		httpjson.Error(w, faults.Validation("meeting_day must be 0 (Sunday) through 6 (Saturday)"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, err := h.Settings.Get(ctx, section)
	if err != nil {
		h.Log.Error("settings load failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load settings"))
		return
	}

	next := models.SectionSettings{
		Section:        section,
		MeetingDay:     req.MeetingDay,
		UpdatedByID:    &res.Actor.UserID,
		UpdatedByEmail: res.Actor.Email,
	}
	if err := h.Settings.Save(ctx, section, next); err != nil {
		h.Log.Error("settings save failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not save settings"))
		return
	}

	if _, err := h.Recorder.SettingsUpdated(ctx, res.Actor, string(section), prior); err != nil {
		h.Log.Error("settings: audit failed", zap.Error(err))
	}

	now := time.Now().UTC()
	next.UpdatedAt = &now
	httpjson.OK(w, next)
}
