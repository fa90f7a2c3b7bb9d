// internal/app/store/members/store.go
package members

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Store manages member records and their embedded parade-night marks.
type Store struct {
	c *mongo.Collection
}

// New creates a new member Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// EnsureIndexes creates indexes for member lookups and roll listings.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "section", Value: 1},
				{Key: "name_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_member_section_name"),
		},
		{
			Keys: bson.D{
				{Key: "section", Value: 1},
				{Key: "squad", Value: 1},
			},
			Options: options.Index().SetName("idx_member_section_squad"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// ListFilter narrows a member listing.
type ListFilter struct {
	Section models.Section
	Squad   string
	Year    string
}

// Create inserts a new member.
func (s *Store) Create(ctx context.Context, m *models.Member) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.NameCI = strings.ToLower(m.Name)
	if m.Marks == nil {
		m.Marks = []models.Mark{}
	}
	_, err := s.c.InsertOne(ctx, m)
	return err
}

// GetByID returns a member, or (nil, nil) if none exists with that ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns members matching the filter, sorted by squad then name.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.Member, error) {
	query := bson.M{}
	if filter.Section != "" {
		query["section"] = filter.Section
	}
	if filter.Squad != "" {
		query["squad"] = filter.Squad
	}
	if filter.Year != "" {
		query["year"] = filter.Year
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "squad", Value: 1},
		{Key: "name_ci", Value: 1},
	})
	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Member
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile replaces a member's profile fields, leaving marks intact.
// Returns (false, nil) if the member does not exist.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, m *models.Member) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"name":            m.Name,
			"name_ci":         strings.ToLower(m.Name),
			"section":         m.Section,
			"squad":           m.Squad,
			"year":            m.Year,
			"is_squad_leader": m.IsSquadLeader,
			"updated_at":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Delete removes a member and all embedded marks. Returns (false, nil) if
// the member did not exist.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// SetMark records a mark for one parade date, replacing any existing mark
// for the same date. Returns (false, nil) if the member does not exist.
func (s *Store) SetMark(ctx context.Context, id primitive.ObjectID, mark models.Mark) (bool, error) {
	now := time.Now().UTC()

	// Replace in place first; a mark for a new date matches nothing and
	// falls through to the push.
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "marks.date": mark.Date},
		bson.M{"$set": bson.M{
			"marks.$":    mark,
			"updated_at": now,
		}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	res, err = s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"marks": mark},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// RemoveMark deletes the mark for one parade date. Returns (false, nil)
// if the member does not exist.
func (s *Store) RemoveMark(ctx context.Context, id primitive.ObjectID, date string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$pull": bson.M{"marks": bson.M{"date": date}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// Replace overwrites an entire member document. Used by audit reverts to
// restore a prior snapshot under the original ID.
func (s *Store) Replace(ctx context.Context, m *models.Member) error {
	m.NameCI = strings.ToLower(m.Name)
	m.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": m.ID}, m, opts)
	return err
}
