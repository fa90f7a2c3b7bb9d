package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleAssignment maps one identity to exactly one role. An identity with no
// assignment row has no access at all; callers must not default a missing
// assignment to the lowest role.
type RoleAssignment struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Email  string             `bson:"email" json:"email"`
	Role   string             `bson:"role" json:"role"` // officer | captain | admin

	GrantedBy *primitive.ObjectID `bson:"granted_by,omitempty" json:"granted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
