package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brigadetools/paradebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data. Documents are
// inserted directly so store behavior under test is not also the setup path.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user account.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		EmailCI:      strings.ToLower(email),
		FullName:     fullName,
		PasswordHash: "$2a$10$fixturefixturefixturefixturefixturefixturefixturefix",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("create test user: %v", err)
	}
	return u
}

// CreateRole inserts a role assignment for the given user.
func (f *Fixtures) CreateRole(ctx context.Context, userID primitive.ObjectID, email, role string) models.RoleAssignment {
	f.t.Helper()

	now := time.Now().UTC()
	ra := models.RoleAssignment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("role_assignments").InsertOne(ctx, ra); err != nil {
		f.t.Fatalf("create test role assignment: %v", err)
	}
	return ra
}

// CreateMember inserts a member with no marks.
func (f *Fixtures) CreateMember(ctx context.Context, name string, section models.Section, squad, year string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    strings.ToLower(name),
		Section:   section,
		Squad:     squad,
		Year:      year,
		Marks:     []models.Mark{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("create test member: %v", err)
	}
	return m
}

// CreateInvite inserts an unclaimed invite code expiring at expiresAt.
func (f *Fixtures) CreateInvite(ctx context.Context, code string, issuerID primitive.ObjectID, targetRole string, expiresAt time.Time) models.InviteCode {
	f.t.Helper()

	inv := models.InviteCode{
		ID:          primitive.NewObjectID(),
		Code:        code,
		IssuerID:    issuerID,
		IssuerEmail: "issuer@test.com",
		TargetRole:  targetRole,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("invite_codes").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("create test invite: %v", err)
	}
	return inv
}
