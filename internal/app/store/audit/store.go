// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entity types recorded in the audit log.
const (
	EntityMember   = "member"
	EntitySettings = "section_settings"
	EntityInvite   = "invite_code"
	EntityRole     = "role_assignment"
	EntityAudit    = "audit_entry"
)

// Action types.
const (
	ActionMemberCreated   = "member_created"
	ActionMemberUpdated   = "member_updated"
	ActionMemberDeleted   = "member_deleted"
	ActionSettingsUpdated = "settings_updated"
	ActionInviteGenerated = "invite_generated"
	ActionInviteRevoked   = "invite_revoked"
	ActionRoleUpdated     = "role_updated"
	ActionRoleDeleted     = "role_deleted"
	ActionRevert          = "revert_action"
)

// Entry represents one audit log entry. RevertData holds whatever state is
// needed to undo the action; it is stored raw and never returned to callers
// that lack the revert-data read permission.
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Action    string             `bson:"action" json:"action"`

	// Who
	ActorID    primitive.ObjectID `bson:"actor_id" json:"actor_id"`
	ActorEmail string             `bson:"actor_email" json:"actor_email"`

	// What
	EntityType string              `bson:"entity_type" json:"entity_type"`
	EntityID   *primitive.ObjectID `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Details    map[string]string   `bson:"details,omitempty" json:"details,omitempty"`

	// Undo state
	RevertData bson.Raw `bson:"revert_data,omitempty" json:"revert_data,omitempty"`

	// Revert bookkeeping
	Reverted   bool                `bson:"reverted" json:"reverted"`
	RevertedBy *primitive.ObjectID `bson:"reverted_by,omitempty" json:"reverted_by,omitempty"`
	RevertedAt *time.Time          `bson:"reverted_at,omitempty" json:"reverted_at,omitempty"`
	RevertOf   *primitive.ObjectID `bson:"revert_of,omitempty" json:"revert_of,omitempty"`
}

// QueryFilter narrows an audit log query.
type QueryFilter struct {
	Action     string
	EntityType string
	ActorID    *primitive.ObjectID
	EntityID   *primitive.ObjectID
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int64
	Offset     int64

	// IncludeRevertData controls whether revert payloads are projected
	// into results. Callers must authorize that separately.
	IncludeRevertData bool
}

// Store manages audit log entries.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_log")}
}

// EnsureIndexes creates query indexes plus a TTL index that expires
// entries after the retention window.
func (s *Store) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_time"),
		},
		{
			Keys: bson.D{
				{Key: "action", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_action"),
		},
		{
			Keys: bson.D{
				{Key: "entity_type", Value: 1},
				{Key: "entity_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_entity"),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetExpireAfterSeconds(int32(retention.Seconds())).
				SetName("idx_audit_ttl"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Record inserts an audit entry and returns its ID.
func (s *Store) Record(ctx context.Context, e Entry) (primitive.ObjectID, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return e.ID, err
}

// GetByID returns one entry with its revert payload, or (nil, nil) if it
// does not exist.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*Entry, error) {
	var e Entry
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Query retrieves entries matching the filter, newest first. Unless the
// filter asks for revert data, the payload is excluded at the projection
// level so it never leaves the database.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.EntityID != nil {
		query["entity_id"] = filter.EntityID
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)
	if !filter.IncludeRevertData {
		opts = opts.SetProjection(bson.M{"revert_data": 0})
	}

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByFilter returns the count of entries matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	query := bson.M{}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	return s.c.CountDocuments(ctx, query)
}

// MarkReverted flips an entry to reverted exactly once. Returns
// (false, nil) if the entry does not exist or was already reverted.
func (s *Store) MarkReverted(ctx context.Context, id, revertedBy primitive.ObjectID) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "reverted": false},
		bson.M{"$set": bson.M{
			"reverted":    true,
			"reverted_by": revertedBy,
			"reverted_at": now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ClearReverted undoes MarkReverted. Used only to roll the flag back when
// applying the inverse payload failed after the entry was claimed.
func (s *Store) ClearReverted(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "reverted": true},
		bson.M{
			"$set":   bson.M{"reverted": false},
			"$unset": bson.M{"reverted_by": "", "reverted_at": ""},
		},
	)
	return err
}
