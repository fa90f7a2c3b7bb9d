// internal/app/store/invites/store.go
package invites

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Store manages invite codes in MongoDB. Codes are single-use: claiming
// happens through a compare-and-set update so two concurrent signups with
// the same code cannot both succeed. Spent and revoked codes stay in the
// collection as records.
type Store struct {
	c *mongo.Collection
}

// New creates a new invite code Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invite_codes")}
}

// EnsureIndexes creates indexes for code lookups and issuer listings.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_invite_code"),
		},
		{
			Keys: bson.D{
				{Key: "issuer_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_invite_issuer"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new invite code.
func (s *Store) Create(ctx context.Context, inv *models.InviteCode) error {
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, inv)
	return err
}

// GetByCode returns an invite by its code string, or (nil, nil) if no
// such code exists.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	var inv models.InviteCode
	err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByID returns an invite by document ID, or (nil, nil) if it does not
// exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.InviteCode, error) {
	var inv models.InviteCode
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns invites, newest first, optionally restricted to the given
// target roles.
func (s *Store) List(ctx context.Context, targetRoles []string) ([]models.InviteCode, error) {
	filter := bson.M{}
	if len(targetRoles) > 0 {
		filter["target_role"] = bson.M{"$in": targetRoles}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.InviteCode
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Claim atomically marks an unspent, unrevoked, unexpired code as used by
// userID. Returns the claimed invite, or (nil, nil) if no code currently
// satisfies those conditions; the caller decides why not by fetching the
// code separately.
func (s *Store) Claim(ctx context.Context, code string, userID primitive.ObjectID, now time.Time) (*models.InviteCode, error) {
	usedAt := now.UTC()
	var inv models.InviteCode
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"code":       code,
			"used":       false,
			"revoked":    false,
			"expires_at": bson.M{"$gt": usedAt},
		},
		bson.M{"$set": bson.M{
			"used":    true,
			"used_by": userID,
			"used_at": usedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&inv)

	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// SetClaimant records who redeemed a claimed code. The claim itself may
// happen before the claimant's account exists, so the user ID is stamped
// in a second step.
func (s *Store) SetClaimant(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "used": true},
		bson.M{"$set": bson.M{"used_by": userID}},
	)
	return err
}

// Unclaim releases a claimed code. Used to compensate when the work that
// followed a successful claim could not be completed.
func (s *Store) Unclaim(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "used": true},
		bson.M{"$set": bson.M{"used": false}, "$unset": bson.M{"used_by": "", "used_at": ""}},
	)
	return err
}

// Revoke marks an unspent code as revoked. Returns (false, nil) if the
// code was already used or does not exist.
func (s *Store) Revoke(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "used": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Unrevoke clears the revoked flag on an unspent code. Used when a
// revocation is reverted; an expired code flips straight back on its next
// touch.
func (s *Store) Unrevoke(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "used": false, "revoked": true},
		bson.M{"$set": bson.M{"revoked": false}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RevokeExpired flips every unspent code past its expiry to revoked.
// Called lazily on reads so expiry takes effect without a background job.
func (s *Store) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"used":       false,
			"revoked":    false,
			"expires_at": bson.M{"$lte": now.UTC()},
		},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
