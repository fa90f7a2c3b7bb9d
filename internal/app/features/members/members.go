// internal/app/features/members/members.go
package members

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/policy/accesspolicy"
	"github.com/brigadetools/paradebook/internal/app/store/members"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/app/system/gates"
	"github.com/brigadetools/paradebook/internal/app/system/htmlsanitize"
	"github.com/brigadetools/paradebook/internal/app/system/httpjson"
	"github.com/brigadetools/paradebook/internal/app/system/markval"
	"github.com/brigadetools/paradebook/internal/app/system/timeouts"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

type memberRequest struct {
	Name          string        `json:"name"`
	Section       string        `json:"section"`
	Squad         string        `json:"squad"`
	Year          string        `json:"year"`
	IsSquadLeader bool          `json:"is_squad_leader"`
	Marks         []models.Mark `json:"marks,omitempty"`
}

type marksRequest struct {
	Marks []models.Mark `json:"marks"`
}

// ServeList handles GET /api/members with optional section, squad, and
// year filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpRead); err != nil {
		httpjson.Error(w, err)
		return
	}

	filter := members.ListFilter{
		Section: models.Section(r.URL.Query().Get("section")),
		Squad:   r.URL.Query().Get("squad"),
		Year:    r.URL.Query().Get("year"),
	}
	if filter.Section != "" && !filter.Section.Valid() {
		httpjson.Error(w, faults.Validation("unknown section %q", filter.Section))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Members.List(ctx, filter)
	if err != nil {
		h.Log.Error("member list failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not list members"))
		return
	}
	httpjson.OK(w, list)
}

// ServeMember handles GET /api/members/{id}.
func (h *Handler) ServeMember(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpRead); err != nil {
		httpjson.Error(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.fetch(ctx, w, r)
	if m == nil || err != nil {
		return
	}
	httpjson.OK(w, m)
}

// HandleCreate handles POST /api/members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpCreate); err != nil {
		httpjson.Error(w, err)
		return
	}

	var req memberRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid member payload"))
		return
	}

	m, err := h.buildMember(&req)
	if err != nil {
		httpjson.Error(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Members.Create(ctx, m); err != nil {
		h.Log.Error("member create failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not create member"))
		return
	}

	if _, err := h.Recorder.MemberCreated(ctx, res.Actor, m.ID, m.Name, string(m.Section)); err != nil {
		h.Log.Error("member create: audit failed", zap.Error(err))
	}
	httpjson.Created(w, m)
}

// HandleUpdate handles PUT /api/members/{id}. The member's section is
// fixed at creation; a mark history recorded under one shape cannot be
// reinterpreted under the other.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpUpdate); err != nil {
		httpjson.Error(w, err)
		return
	}

	var req memberRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid member payload"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, err := h.fetch(ctx, w, r)
	if prior == nil || err != nil {
		return
	}
	if req.Section != "" && models.Section(req.Section) != prior.Section {
		httpjson.Error(w, faults.Validation("section cannot be changed after creation"))
		return
	}
	req.Section = string(prior.Section)

	m, verr := h.buildMember(&req)
	if verr != nil {
		httpjson.Error(w, verr)
		return
	}
	m.ID = prior.ID

	if _, err := h.Members.UpdateProfile(ctx, prior.ID, m); err != nil {
		h.Log.Error("member update failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not update member"))
		return
	}

	if _, err := h.Recorder.MemberUpdated(ctx, res.Actor, prior.ID, prior, map[string]string{
		"name": m.Name,
	}); err != nil {
		h.Log.Error("member update: audit failed", zap.Error(err))
	}

	updated, err := h.Members.GetByID(ctx, prior.ID)
	if err != nil || updated == nil {
		httpjson.NoContent(w)
		return
	}
	httpjson.OK(w, updated)
}

// HandleDelete handles DELETE /api/members/{id}. The full document goes
// into the audit entry so the deletion can be reverted.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpDelete); err != nil {
		httpjson.Error(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, err := h.fetch(ctx, w, r)
	if prior == nil || err != nil {
		return
	}

	if _, err := h.Members.Delete(ctx, prior.ID); err != nil {
		h.Log.Error("member delete failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not delete member"))
		return
	}

	if _, err := h.Recorder.MemberDeleted(ctx, res.Actor, prior.ID, prior, map[string]string{
		"name":    prior.Name,
		"section": string(prior.Section),
	}); err != nil {
		h.Log.Error("member delete: audit failed", zap.Error(err))
	}
	httpjson.NoContent(w)
}

// HandleSetMarks handles PUT /api/members/{id}/marks. Marks are validated
// as a batch before any write: one bad mark rejects the whole submission.
// A mark whose date already exists replaces the stored one.
func (h *Handler) HandleSetMarks(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpUpdate); err != nil {
		httpjson.Error(w, err)
		return
	}

	var req marksRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, faults.Validation("invalid marks payload"))
		return
	}
	if len(req.Marks) == 0 {
		httpjson.Error(w, faults.Validation("no marks submitted"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	prior, err := h.fetch(ctx, w, r)
	if prior == nil || err != nil {
		return
	}

	if err := markval.Validate(prior.Section, prior.Name, req.Marks); err != nil {
		httpjson.Error(w, err)
		return
	}

	dates := make([]string, 0, len(req.Marks))
	for _, mark := range req.Marks {
		if _, err := h.Members.SetMark(ctx, prior.ID, mark); err != nil {
			h.Log.Error("mark write failed", zap.Error(err),
				zap.String("member_id", prior.ID.Hex()), zap.String("date", mark.Date))
			httpjson.Error(w, faults.Infra(err, "could not record marks"))
			return
		}
		dates = append(dates, mark.Date)
	}

	if _, err := h.Recorder.MemberUpdated(ctx, res.Actor, prior.ID, prior, map[string]string{
		"name":       prior.Name,
		"mark_dates": strings.Join(dates, ","),
	}); err != nil {
		h.Log.Error("marks: audit failed", zap.Error(err))
	}

	updated, err := h.Members.GetByID(ctx, prior.ID)
	if err != nil || updated == nil {
		httpjson.NoContent(w)
		return
	}
	httpjson.OK(w, updated)
}

// HandleRemoveMark handles DELETE /api/members/{id}/marks/{date}.
func (h *Handler) HandleRemoveMark(w http.ResponseWriter, r *http.Request) {
	res := gates.RequireActor(w, r)
	if !res.OK {
		return
	}
	if err := authorize(res.Actor, accesspolicy.OpUpdate); err != nil {
		httpjson.Error(w, err)
		return
	}

	date := chi.URLParam(r, "date")
	if !markval.ValidDate(date) {
		httpjson.Error(w, faults.Validation("invalid date %q", date))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	prior, err := h.fetch(ctx, w, r)
	if prior == nil || err != nil {
		return
	}

	if _, err := h.Members.RemoveMark(ctx, prior.ID, date); err != nil {
		h.Log.Error("mark remove failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not remove mark"))
		return
	}

	if _, err := h.Recorder.MemberUpdated(ctx, res.Actor, prior.ID, prior, map[string]string{
		"name":         prior.Name,
		"removed_date": date,
	}); err != nil {
		h.Log.Error("mark remove: audit failed", zap.Error(err))
	}
	httpjson.NoContent(w)
}

// fetch loads the member addressed by the {id} URL param, writing the error
// response itself when the ID is bad or the member is missing.
func (h *Handler) fetch(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Member, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.Error(w, faults.Validation("invalid member id"))
		return nil, err
	}
	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("member fetch failed", zap.Error(err))
		httpjson.Error(w, faults.Infra(err, "could not load member"))
		return nil, err
	}
	if m == nil {
		httpjson.Error(w, faults.NotFound("member not found"))
		return nil, nil
	}
	return m, nil
}

// buildMember validates a member payload and returns the model to store,
// including any initial marks (validated against the section).
func (h *Handler) buildMember(req *memberRequest) (*models.Member, error) {
	name := htmlsanitize.PlainText(req.Name)
	if name == "" {
		return nil, faults.Validation("member name is required")
	}

	section := models.Section(strings.ToLower(strings.TrimSpace(req.Section)))
	if !section.Valid() {
		return nil, faults.Validation("section must be %q or %q", models.SectionCompany, models.SectionJunior)
	}

	squad := strings.ToLower(strings.TrimSpace(req.Squad))
	year := strings.ToLower(strings.TrimSpace(req.Year))
	switch section {
	case models.SectionCompany:
		if n, err := strconv.Atoi(squad); err != nil || n < models.CompanySquadMin || n > models.CompanySquadMax {
			return nil, faults.Validation("company squad must be %d-%d", models.CompanySquadMin, models.CompanySquadMax)
		}
		if n, err := strconv.Atoi(year); err != nil || n < models.CompanyYearMin || n > models.CompanyYearMax {
			return nil, faults.Validation("company year must be %d-%d", models.CompanyYearMin, models.CompanyYearMax)
		}
	case models.SectionJunior:
		if !contains(models.JuniorSquads, squad) {
			return nil, faults.Validation("junior squad must be one of %s", strings.Join(models.JuniorSquads, ", "))
		}
		if !contains(models.JuniorYears, year) {
			return nil, faults.Validation("junior year must be one of %s", strings.Join(models.JuniorYears, ", "))
		}
	}

	if err := markval.Validate(section, name, req.Marks); err != nil {
		return nil, err
	}

	return &models.Member{
		Name:          name,
		Section:       section,
		Squad:         squad,
		Year:          year,
		IsSquadLeader: req.IsSquadLeader,
		Marks:         req.Marks,
	}, nil
}

func authorize(actor authz.Actor, op accesspolicy.Operation) error {
	return accesspolicy.Authorize(actor, accesspolicy.EntityMember, op, nil).Err()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
