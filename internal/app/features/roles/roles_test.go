package roles_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/brigadetools/paradebook/internal/app/features/roles"
	auditstore "github.com/brigadetools/paradebook/internal/app/store/audit"
	rolestore "github.com/brigadetools/paradebook/internal/app/store/roles"
	"github.com/brigadetools/paradebook/internal/app/system/auditlog"
	"github.com/brigadetools/paradebook/internal/app/system/authz"
	"github.com/brigadetools/paradebook/internal/domain/models"
	"github.com/brigadetools/paradebook/internal/testutil"
)

func newTestRouter(t *testing.T) (chi.Router, *testutil.Fixtures, *rolestore.Store) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	store := rolestore.New(db)
	recorder := auditlog.New(auditstore.New(db), logger, auditlog.Config{Mode: "db"})
	h := roles.NewHandler(store, recorder, logger)

	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, testutil.NewFixtures(t, db), store
}

func TestServeMeReturnsOwnRow(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	actor := testutil.CaptainActor()
	fixtures.CreateRole(ctx, actor.UserID, actor.Email, "captain")

	req := testutil.ActorRequest(t, http.MethodGet, "/me", actor, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var row models.RoleAssignment
	testutil.DecodeBody(t, rec, &row)
	if row.UserID != actor.UserID || row.Role != "captain" {
		t.Errorf("me row: %+v", row)
	}
}

func TestListOfficerSeesOnlyOwnRow(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	actor := testutil.OfficerActor()
	fixtures.CreateRole(ctx, actor.UserID, actor.Email, "officer")
	other := fixtures.CreateUser(ctx, "Other Officer", "other@test.com")
	fixtures.CreateRole(ctx, other.ID, other.Email, "officer")

	req := testutil.ActorRequest(t, http.MethodGet, "/", actor, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var list []models.RoleAssignment
	testutil.DecodeBody(t, rec, &list)
	if len(list) != 1 || list[0].UserID != actor.UserID {
		t.Errorf("officer list: %+v", list)
	}
}

func TestListAdminNeverSeesOtherAdmins(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	actor := testutil.AdminActor()
	fixtures.CreateRole(ctx, actor.UserID, actor.Email, "admin")

	officer := fixtures.CreateUser(ctx, "An Officer", "officer2@test.com")
	fixtures.CreateRole(ctx, officer.ID, officer.Email, "officer")
	captain := fixtures.CreateUser(ctx, "A Captain", "captain2@test.com")
	fixtures.CreateRole(ctx, captain.ID, captain.Email, "captain")
	otherAdmin := fixtures.CreateUser(ctx, "Other Admin", "admin2@test.com")
	fixtures.CreateRole(ctx, otherAdmin.ID, otherAdmin.Email, "admin")

	req := testutil.ActorRequest(t, http.MethodGet, "/", actor, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var list []models.RoleAssignment
	testutil.DecodeBody(t, rec, &list)
	if len(list) != 3 {
		t.Fatalf("admin list: got %d rows, want 3 (own + officer + captain)", len(list))
	}
	for _, ra := range list {
		if ra.Role == "admin" && ra.UserID != actor.UserID {
			t.Errorf("another admin's row is visible: %+v", ra)
		}
	}
}

func TestSelfLockoutForbiddenForEveryRole(t *testing.T) {
	for _, role := range []authz.Role{authz.Officer, authz.Captain, authz.Admin} {
		t.Run(string(role), func(t *testing.T) {
			router, fixtures, _ := newTestRouter(t)
			ctx := context.Background()

			actor := authz.Actor{UserID: primitive.NewObjectID(), Email: "self@test.com", Role: role}
			own := fixtures.CreateRole(ctx, actor.UserID, actor.Email, string(role))

			delReq := testutil.ActorRequest(t, http.MethodDelete, "/"+own.ID.Hex(), actor, nil)
			delRec := httptest.NewRecorder()
			router.ServeHTTP(delRec, delReq)
			if delRec.Code != http.StatusForbidden {
				t.Errorf("self delete: got %d, want 403", delRec.Code)
			}

			putReq := testutil.ActorRequest(t, http.MethodPut, "/"+own.ID.Hex(), actor, map[string]any{"role": "officer"})
			putRec := httptest.NewRecorder()
			router.ServeHTTP(putRec, putReq)
			if putRec.Code != http.StatusForbidden {
				t.Errorf("self update: got %d, want 403", putRec.Code)
			}
		})
	}
}

func TestCaptainCannotTouchCaptainRow(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	other := fixtures.CreateUser(ctx, "Other Captain", "othercaptain@test.com")
	row := fixtures.CreateRole(ctx, other.ID, other.Email, "captain")

	req := testutil.ActorRequest(t, http.MethodDelete, "/"+row.ID.Hex(), testutil.CaptainActor(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}

func TestAdminPromotesOfficerToCaptain(t *testing.T) {
	router, fixtures, store := newTestRouter(t)
	ctx := context.Background()

	officer := fixtures.CreateUser(ctx, "An Officer", "officer3@test.com")
	row := fixtures.CreateRole(ctx, officer.ID, officer.Email, "officer")

	req := testutil.ActorRequest(t, http.MethodPut, "/"+row.ID.Hex(), testutil.AdminActor(), map[string]any{"role": "captain"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	updated, err := store.GetByID(ctx, row.ID)
	if err != nil || updated == nil {
		t.Fatalf("reload row: %v", err)
	}
	if updated.Role != "captain" {
		t.Errorf("role: got %q, want captain", updated.Role)
	}
}

func TestAdminCannotGrantAdmin(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	officer := fixtures.CreateUser(ctx, "An Officer", "officer4@test.com")
	row := fixtures.CreateRole(ctx, officer.ID, officer.Email, "officer")

	req := testutil.ActorRequest(t, http.MethodPut, "/"+row.ID.Hex(), testutil.AdminActor(), map[string]any{"role": "admin"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}

func TestAdminCannotTouchOtherAdminRow(t *testing.T) {
	router, fixtures, _ := newTestRouter(t)
	ctx := context.Background()

	other := fixtures.CreateUser(ctx, "Other Admin", "admin3@test.com")
	row := fixtures.CreateRole(ctx, other.ID, other.Email, "admin")

	req := testutil.ActorRequest(t, http.MethodDelete, "/"+row.ID.Hex(), testutil.AdminActor(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}
}
