package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InviteMaxTTL is the fixed horizon beyond which an invite expiry may not be
// set at issuance.
const InviteMaxTTL = 7 * 24 * time.Hour

// InviteCode is a single-use, time-bounded token that grants TargetRole when
// redeemed. Once used or revoked a code is never reusable; an expired code is
// treated as revoked the next time the row is read or written (there is no
// background sweep).
type InviteCode struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Code string             `bson:"code" json:"code"`

	IssuerID    primitive.ObjectID `bson:"issuer_id" json:"-"`
	IssuerEmail string             `bson:"issuer_email" json:"-"`

	Section    Section `bson:"section,omitempty" json:"section,omitempty"` // optional scope
	TargetRole string  `bson:"target_role" json:"target_role"`

	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	Used   bool                `bson:"used" json:"used"`
	UsedBy *primitive.ObjectID `bson:"used_by,omitempty" json:"-"`
	UsedAt *time.Time          `bson:"used_at,omitempty" json:"used_at,omitempty"`

	Revoked bool `bson:"revoked" json:"revoked"`
}

// Expired reports whether the code's expiry has passed at the given instant.
func (c InviteCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Usable reports whether the code can still be claimed at the given instant.
func (c InviteCode) Usable(now time.Time) bool {
	return !c.Used && !c.Revoked && !c.Expired(now)
}
