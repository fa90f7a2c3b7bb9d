// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"time"

	"github.com/brigadetools/paradebook/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the section_settings collection.
// Each section has its own settings document (one document per section).
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("section_settings")}
}

// EnsureIndexes creates the unique per-section index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "section", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("idx_settings_section"),
	})
	return err
}

// Get returns the settings for a section. If no settings document exists,
// returns the defaults for that section.
func (s *Store) Get(ctx context.Context, section models.Section) (models.SectionSettings, error) {
	var settings models.SectionSettings
	err := s.c.FindOne(ctx, bson.M{"section": section}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return models.SectionSettings{
			Section:    section,
			MeetingDay: models.DefaultMeetingDay,
		}, nil
	}
	if err != nil {
		return models.SectionSettings{}, err
	}
	return settings, nil
}

// Save updates the settings for a section.
// Uses upsert so it works whether settings exist or not.
func (s *Store) Save(ctx context.Context, section models.Section, settings models.SectionSettings) error {
	now := time.Now().UTC()
	settings.UpdatedAt = &now
	settings.Section = section

	filter := bson.M{"section": section}
	update := bson.M{
		"$set": bson.M{
			"section":          section,
			"meeting_day":      settings.MeetingDay,
			"updated_at":       settings.UpdatedAt,
			"updated_by_id":    settings.UpdatedByID,
			"updated_by_email": settings.UpdatedByEmail,
		},
		"$setOnInsert": bson.M{
			"_id": primitive.NewObjectID(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	return err
}

// Exists checks if settings have been saved for a section.
func (s *Store) Exists(ctx context.Context, section models.Section) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"section": section})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
