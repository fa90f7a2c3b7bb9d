package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SectionSettings holds per-section configuration editable by captains and
// admins. Each section has exactly one settings document.
type SectionSettings struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Section Section            `bson:"section" json:"section"`

	// MeetingDay is the weekly parade night, 0 (Sunday) through 6 (Saturday).
	MeetingDay int `bson:"meeting_day" json:"meeting_day"`

	UpdatedAt      *time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedByID    *primitive.ObjectID `bson:"updated_by_id,omitempty" json:"-"`
	UpdatedByEmail string              `bson:"updated_by_email,omitempty" json:"-"`
}

// DefaultMeetingDay is used when a section has no saved settings yet.
const DefaultMeetingDay = 5 // Friday
