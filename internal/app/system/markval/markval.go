// Package markval validates parade-night marks before anything touches the
// database. Validation is pure: the same marks always produce the same
// verdict, and a single bad mark rejects the whole submission so a batch
// never half-applies.
package markval

import (
	"fmt"
	"math"
	"time"

	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

// Rule names carried inside validation failures. Each names exactly one
// check so the caller's message can say which rule a mark broke.
const (
	RuleBadDate        = "bad_date"
	RulePrecision      = "too_many_decimals"
	RuleScoreRange     = "score_out_of_range"
	RuleSectionShape   = "section_shape"
	RuleUniformRange   = "uniform_out_of_range"
	RuleBehaviourRange = "behaviour_out_of_range"
	RuleSumMismatch    = "sum_mismatch"
	RuleAbsence        = "absence_sentinel"
	RuleDuplicateDate  = "duplicate_date"
)

// Score bounds per field.
const (
	ScoreMax     = 10.0
	BehaviourMax = 5.0
)

// epsilon absorbs binary float artifacts in the scaled-integer and sum
// checks (0.1*100 is not exactly 10 in float64).
const epsilon = 1e-9

// Violation reports which mark broke which rule.
type Violation struct {
	MemberName string
	Date       string
	Rule       string
	Detail     string
}

// Err converts the violation to the typed failure callers surface.
func (v Violation) Err() error {
	return faults.Validation("member %q, date %q: %s (%s)", v.MemberName, v.Date, v.Rule, v.Detail)
}

// Validate checks every mark for a member of the given section. It returns
// nil and the marks unchanged when all pass, or the first violation's
// error; nothing is normalized or silently dropped.
func Validate(section models.Section, memberName string, marks []models.Mark) error {
	seen := make(map[string]bool, len(marks))
	for _, m := range marks {
		if v := validateOne(section, memberName, m); v != nil {
			return v.Err()
		}
		if seen[m.Date] {
			return Violation{
				MemberName: memberName,
				Date:       m.Date,
				Rule:       RuleDuplicateDate,
				Detail:     "at most one mark per member per date",
			}.Err()
		}
		seen[m.Date] = true
	}
	return nil
}

func validateOne(section models.Section, memberName string, m models.Mark) *Violation {
	fail := func(rule, format string, args ...any) *Violation {
		return &Violation{
			MemberName: memberName,
			Date:       m.Date,
			Rule:       rule,
			Detail:     fmt.Sprintf(format, args...),
		}
	}

	if !ValidDate(m.Date) {
		return fail(RuleBadDate, "want strict YYYY-MM-DD, got %q", m.Date)
	}
	if !twoDecimals(m.Score) {
		return fail(RulePrecision, "score %v has more than 2 decimal places", m.Score)
	}

	switch section {
	case models.SectionCompany:
		if m.Junior != nil {
			return fail(RuleSectionShape, "uniform/behaviour sub-scores are junior-section fields")
		}
		if !sentinelOrInRange(m.Score, ScoreMax) {
			return fail(RuleScoreRange, "score %v must be -1 or in [0,%v]", m.Score, ScoreMax)
		}
		return nil

	case models.SectionJunior:
		if m.Junior == nil {
			return fail(RuleSectionShape, "junior marks require uniform and behaviour sub-scores")
		}
		u, b := m.Junior.Uniform, m.Junior.Behaviour
		if !twoDecimals(u) {
			return fail(RulePrecision, "uniform %v has more than 2 decimal places", u)
		}
		if !twoDecimals(b) {
			return fail(RulePrecision, "behaviour %v has more than 2 decimal places", b)
		}
		if !sentinelOrInRange(u, ScoreMax) {
			return fail(RuleUniformRange, "uniform %v must be -1 or in [0,%v]", u, ScoreMax)
		}
		if !sentinelOrInRange(b, BehaviourMax) {
			return fail(RuleBehaviourRange, "behaviour %v must be -1 or in [0,%v]", b, BehaviourMax)
		}
		if u == models.AbsentScore || b == models.AbsentScore {
			// Either sub-score absent means the whole record is absent.
			if m.Score != models.AbsentScore {
				return fail(RuleAbsence, "absent sub-score requires total -1, got %v", m.Score)
			}
			return nil
		}
		if math.Abs(m.Score-(u+b)) > epsilon {
			return fail(RuleSumMismatch, "total %v must equal uniform %v + behaviour %v", m.Score, u, b)
		}
		return nil

	default:
		return fail(RuleSectionShape, "unknown section %q", section)
	}
}

// ValidDate reports whether s is a strict ISO calendar date. Parsing alone
// is not enough: time.Parse accepts some non-canonical inputs, so the
// parsed date must render back to the identical string.
func ValidDate(s string) bool {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false
	}
	return t.Format("2006-01-02") == s
}

// twoDecimals reports whether v has at most two decimal places.
func twoDecimals(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) <= epsilon
}

func sentinelOrInRange(v, max float64) bool {
	if v == models.AbsentScore {
		return true
	}
	return v >= 0 && v <= max
}
