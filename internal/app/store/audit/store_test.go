package audit_test

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/brigadetools/paradebook/internal/app/store/audit"
	"github.com/brigadetools/paradebook/internal/testutil"
)

func newStore(t *testing.T) *audit.Store {
	t.Helper()
	return audit.New(testutil.SetupTestDB(t))
}

func record(t *testing.T, store *audit.Store, action string, payload any) primitive.ObjectID {
	t.Helper()

	entityID := primitive.NewObjectID()
	e := audit.Entry{
		Action:     action,
		ActorID:    primitive.NewObjectID(),
		ActorEmail: "actor@test.com",
		EntityType: audit.EntityMember,
		EntityID:   &entityID,
	}
	if payload != nil {
		raw, err := bson.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		e.RevertData = raw
	}
	id, err := store.Record(context.Background(), e)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return id
}

func TestQueryRedactsRevertData(t *testing.T) {
	store := newStore(t)
	record(t, store, audit.ActionMemberDeleted, bson.M{"name": "John Doe"})

	entries, err := store.Query(context.Background(), audit.QueryFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if len(entries[0].RevertData) != 0 {
		t.Error("revert payload present in redacted query")
	}

	full, err := store.Query(context.Background(), audit.QueryFilter{IncludeRevertData: true})
	if err != nil {
		t.Fatalf("query with payload: %v", err)
	}
	if len(full[0].RevertData) == 0 {
		t.Error("revert payload missing when explicitly requested")
	}
}

func TestQueryFiltersByAction(t *testing.T) {
	store := newStore(t)
	record(t, store, audit.ActionMemberCreated, nil)
	record(t, store, audit.ActionMemberDeleted, nil)

	entries, err := store.Query(context.Background(), audit.QueryFilter{Action: audit.ActionMemberCreated})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionMemberCreated {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestMarkRevertedIsOneShot(t *testing.T) {
	store := newStore(t)
	id := record(t, store, audit.ActionMemberDeleted, nil)
	ctx := context.Background()
	actor := primitive.NewObjectID()

	ok, err := store.MarkReverted(ctx, id, actor)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if !ok {
		t.Fatal("first mark should claim the entry")
	}

	ok, err = store.MarkReverted(ctx, id, actor)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if ok {
		t.Fatal("second mark must lose the claim")
	}
}

func TestClearRevertedReleasesClaim(t *testing.T) {
	store := newStore(t)
	id := record(t, store, audit.ActionMemberDeleted, nil)
	ctx := context.Background()

	if _, err := store.MarkReverted(ctx, id, primitive.NewObjectID()); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := store.ClearReverted(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}

	ok, err := store.MarkReverted(ctx, id, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("re-mark: %v", err)
	}
	if !ok {
		t.Fatal("entry should be claimable again after clear")
	}
}
