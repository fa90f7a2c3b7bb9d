package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Section identifies one of the two fixed organizational groupings.
// Sections partition members and change the shape of their marks; they are
// a contextual dimension only, never an authorization boundary.
type Section string

const (
	SectionCompany Section = "company"
	SectionJunior  Section = "junior"
)

// Valid reports whether s is one of the two known sections.
func (s Section) Valid() bool {
	return s == SectionCompany || s == SectionJunior
}

// AbsentScore is the sentinel value recorded when a member was absent on a
// parade night, as opposed to present with a score of zero.
const AbsentScore = -1

// Company-section squad/year domains.
const (
	CompanySquadMin = 1
	CompanySquadMax = 6
	CompanyYearMin  = 8
	CompanyYearMax  = 14
)

// JuniorSquads are the color squads used by the junior section.
var JuniorSquads = []string{"red", "blue", "green", "yellow"}

// JuniorYears are the grade labels used by the junior section.
var JuniorYears = []string{"p4", "p5", "p6", "p7"}

// Member is one enrolled member of a section, with their parade marks.
type Member struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	NameCI        string             `bson:"name_ci" json:"-"` // lowercase, for sorting/search
	Section       Section            `bson:"section" json:"section"`
	Squad         string             `bson:"squad" json:"squad"` // "1".."6" (company) or color label (junior)
	Year          string             `bson:"year" json:"year"`   // "8".."14" (company) or grade label (junior)
	IsSquadLeader bool               `bson:"is_squad_leader" json:"is_squad_leader"`
	Marks         []Mark             `bson:"marks" json:"marks"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Mark is one parade night's record for a member. The shape is selected by
// the member's section: company marks carry only the total score; junior
// marks additionally carry the uniform/behaviour breakdown in Junior.
// Junior is non-nil if and only if the member belongs to the junior section,
// so a stored mark cannot mix the two shapes.
//
// A score of AbsentScore (-1) means the member was absent. At most one mark
// exists per calendar date; writing a mark for an existing date replaces it.
type Mark struct {
	Date   string        `bson:"date" json:"date"` // strict YYYY-MM-DD
	Score  float64       `bson:"score" json:"score"`
	Junior *JuniorScores `bson:"junior,omitempty" json:"junior,omitempty"`
}

// JuniorScores is the junior-section breakdown of a mark. When both
// sub-scores are non-sentinel the mark's total equals their sum; when either
// is the absence sentinel the whole record is an absence (total -1).
type JuniorScores struct {
	Uniform   float64 `bson:"uniform" json:"uniform"`     // -1 or [0,10]
	Behaviour float64 `bson:"behaviour" json:"behaviour"` // -1 or [0,5]
}

// IsAbsent reports whether the mark records an absence.
func (m Mark) IsAbsent() bool {
	return m.Score == AbsentScore
}
