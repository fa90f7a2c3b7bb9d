package auditlog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	auditfeature "github.com/brigadetools/paradebook/internal/app/features/auditlog"
	auditstore "github.com/brigadetools/paradebook/internal/app/store/audit"
	invitestore "github.com/brigadetools/paradebook/internal/app/store/invites"
	memberstore "github.com/brigadetools/paradebook/internal/app/store/members"
	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	settingsstore "github.com/brigadetools/paradebook/internal/app/store/settings"
	sysauditlog "github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"github.com/brigadetools/paradebook/internal/domain/models"
	"github.com/brigadetools/paradebook/internal/testutil"
)

type testEnv struct {
	router   chi.Router
	fixtures *testutil.Fixtures
	audits   *auditstore.Store
	members  *memberstore.Store
	settings *settingsstore.Store
	roles    *rolestore.Store
	invites  *invitestore.Store
	recorder *sysauditlog.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	env := &testEnv{
		fixtures: testutil.NewFixtures(t, db),
		audits:   auditstore.New(db),
		members:  memberstore.New(db),
		settings: settingsstore.New(db),
		roles:    rolestore.New(db),
		invites:  invitestore.New(db),
	}
	env.recorder = sysauditlog.New(env.audits, logger, sysauditlog.Config{Mode: "db"})

	h := auditfeature.NewHandler(env.audits, env.members, env.settings, env.roles, env.invites, env.recorder, logger)
	env.router = chi.NewRouter()
	h.MountRoutes(env.router)
	return env
}

func TestListDeniedForOfficer(t *testing.T) {
	env := newTestEnv(t)

	req := testutil.ActorRequest(t, http.MethodGet, "/", testutil.OfficerActor(), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}

func TestListNeverExposesRevertData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fixtures.CreateMember(ctx, "John Doe", models.SectionCompany, "1", "8")

	admin := testutil.AdminActor()
	if _, err := env.recorder.MemberDeleted(ctx, admin, m.ID, m, map[string]string{"name": m.Name}); err != nil {
		t.Fatalf("record: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodGet, "/", testutil.CaptainActor(), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	var list []auditstore.Entry
	testutil.DecodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("entries: got %d, want 1", len(list))
	}
	if len(list[0].RevertData) != 0 {
		t.Error("revert payload leaked into the browse listing")
	}
}

func TestEntryDetailAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fixtures.CreateMember(ctx, "John Doe", models.SectionCompany, "1", "8")

	admin := testutil.AdminActor()
	id, err := env.recorder.MemberDeleted(ctx, admin, m.ID, m, map[string]string{"name": m.Name})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	capReq := testutil.ActorRequest(t, http.MethodGet, "/"+id.Hex(), testutil.CaptainActor(), nil)
	capRec := httptest.NewRecorder()
	env.router.ServeHTTP(capRec, capReq)
	if capRec.Code != http.StatusForbidden {
		t.Errorf("captain: got %d, want 403", capRec.Code)
	}

	admReq := testutil.ActorRequest(t, http.MethodGet, "/"+id.Hex(), admin, nil)
	admRec := httptest.NewRecorder()
	env.router.ServeHTTP(admRec, admReq)
	if admRec.Code != http.StatusOK {
		t.Fatalf("admin: got %d, want 200", admRec.Code)
	}
	var entry auditstore.Entry
	testutil.DecodeBody(t, admRec, &entry)
	if len(entry.RevertData) == 0 {
		t.Error("admin detail view missing revert payload")
	}
}

func TestRevertDeniedForCaptain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fixtures.CreateMember(ctx, "John Doe", models.SectionCompany, "1", "8")

	id, err := env.recorder.MemberDeleted(ctx, testutil.AdminActor(), m.ID, m, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", testutil.CaptainActor(), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}

func TestRevertMemberDeletionRestoresDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fixtures.CreateMember(ctx, "John Doe", models.SectionCompany, "1", "8")

	admin := testutil.AdminActor()
	id, err := env.recorder.MemberDeleted(ctx, admin, m.ID, m, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := env.members.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete member: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	restored, err := env.members.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if restored == nil || restored.Name != "John Doe" {
		t.Errorf("member not restored: %+v", restored)
	}

	// The revert itself is audited, with a backlink.
	entries, err := env.audits.Query(ctx, auditstore.QueryFilter{Action: auditstore.ActionRevert})
	if err != nil {
		t.Fatalf("audit query: %v", err)
	}
	if len(entries) != 1 || entries[0].RevertOf == nil || *entries[0].RevertOf != id {
		t.Errorf("revert entry missing or unlinked: %+v", entries)
	}
}

func TestRevertIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fixtures.CreateMember(ctx, "John Doe", models.SectionCompany, "1", "8")

	admin := testutil.AdminActor()
	id, err := env.recorder.MemberDeleted(ctx, admin, m.ID, m, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	first := httptest.NewRecorder()
	env.router.ServeHTTP(first, testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first revert: got %d, want 200: %s", first.Code, first.Body.String())
	}

	second := httptest.NewRecorder()
	env.router.ServeHTTP(second, testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil))
	if second.Code != http.StatusConflict {
		t.Fatalf("second revert: got %d, want 409", second.Code)
	}
}

func TestRevertEntriesCannotBeReverted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.AdminActor()

	id, err := env.recorder.Reverted(ctx, admin, primitive.NewObjectID(), auditstore.ActionMemberDeleted)
	if err != nil {
		t.Fatalf("record revert entry: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestRevertClaimedInviteConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.AdminActor()

	inv := env.fixtures.CreateInvite(ctx, "CLAIMEDCODE1", admin.UserID, "officer", time.Now().Add(time.Hour))
	id, err := env.recorder.InviteGenerated(ctx, admin, inv.ID, inv.TargetRole)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := env.invites.Claim(ctx, inv.Code, primitive.NewObjectID(), time.Now()); err != nil {
		t.Fatalf("claim: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("got %d, want 409: %s", rec.Code, rec.Body.String())
	}

	// A failed revert releases the claim so it can be retried.
	entry, err := env.audits.GetByID(ctx, id)
	if err != nil || entry == nil {
		t.Fatalf("reload entry: %v", err)
	}
	if entry.Reverted {
		t.Error("failed revert left the entry claimed")
	}
}

func TestRevertSettingsRestoresPrior(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.AdminActor()

	prior := models.SectionSettings{Section: models.SectionCompany, MeetingDay: 5}
	if err := env.settings.Save(ctx, models.SectionCompany, prior); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	id, err := env.recorder.SettingsUpdated(ctx, admin, string(models.SectionCompany), prior)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	changed := models.SectionSettings{Section: models.SectionCompany, MeetingDay: 2}
	if err := env.settings.Save(ctx, models.SectionCompany, changed); err != nil {
		t.Fatalf("change settings: %v", err)
	}

	req := testutil.ActorRequest(t, http.MethodPost, "/"+id.Hex()+"/revert", admin, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}

	got, err := env.settings.Get(ctx, models.SectionCompany)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if got.MeetingDay != 5 {
		t.Errorf("meeting day: got %d, want restored 5", got.MeetingDay)
	}
}
