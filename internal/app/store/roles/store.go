// internal/app/store/roles/store.go
package roles

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Store manages role assignments. Every user holds at most one
// assignment; the unique index on user_id enforces that at the
// database level.
type Store struct {
	c *mongo.Collection
}

// New creates a new role assignment Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("role_assignments")}
}

// EnsureIndexes creates indexes for role assignment lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_role_user"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_role_role"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// GetByUser returns the assignment for a user, or (nil, nil) if the user
// holds no role.
func (s *Store) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.RoleAssignment, error) {
	var ra models.RoleAssignment
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}).Decode(&ra)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ra, nil
}

// GetByID returns an assignment by its document ID, or (nil, nil) if it
// does not exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.RoleAssignment, error) {
	var ra models.RoleAssignment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ra)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ra, nil
}

// ListByRoles returns all assignments holding one of the given roles,
// sorted by email.
func (s *Store) ListByRoles(ctx context.Context, roleNames []string) ([]models.RoleAssignment, error) {
	filter := bson.M{}
	if len(roleNames) > 0 {
		filter["role"] = bson.M{"$in": roleNames}
	}
	opts := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.RoleAssignment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new assignment. Returns mongo's duplicate key error if
// the user already holds a role.
func (s *Store) Create(ctx context.Context, ra *models.RoleAssignment) error {
	if ra.ID.IsZero() {
		ra.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	ra.CreatedAt = now
	ra.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, ra)
	return err
}

// UpdateRole changes the role held by an assignment. Returns (false, nil)
// if no assignment with that ID exists.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role string, grantedBy primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"role":       role,
			"granted_by": grantedBy,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes an assignment. Returns (false, nil) if it did not exist.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// DeleteByUser removes a user's assignment, if any.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// IsDuplicate reports whether err is a unique index violation.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
