package markval

import (
	"strings"
	"testing"

	"github.com/brigadetools/paradebook/internal/app/system/faults"
	"github.com/brigadetools/paradebook/internal/domain/models"
)

func companyMark(date string, score float64) models.Mark {
	return models.Mark{Date: date, Score: score}
}

func juniorMark(date string, score, uniform, behaviour float64) models.Mark {
	return models.Mark{
		Date:  date,
		Score: score,
		Junior: &models.JuniorScores{
			Uniform:   uniform,
			Behaviour: behaviour,
		},
	}
}

func TestValidateCompanyMarks(t *testing.T) {
	tests := []struct {
		name     string
		mark     models.Mark
		wantRule string // empty means accepted
	}{
		{"full marks", companyMark("2025-01-15", 10), ""},
		{"zero", companyMark("2025-01-15", 0), ""},
		{"two decimals", companyMark("2025-01-15", 7.25), ""},
		{"tenth", companyMark("2025-01-15", 9.1), ""},
		{"absent", companyMark("2025-01-15", models.AbsentScore), ""},
		{"over range", companyMark("2025-01-15", 11), RuleScoreRange},
		{"negative non-sentinel", companyMark("2025-01-15", -0.5), RuleScoreRange},
		{"minus two", companyMark("2025-01-15", -2), RuleScoreRange},
		{"three decimals", companyMark("2025-01-15", 7.125), RulePrecision},
		{"junior fields on company", juniorMark("2025-01-15", 10, 8, 2), RuleSectionShape},
		{"slash date", companyMark("2025/01/15", 5), RuleBadDate},
		{"reversed date", companyMark("15-01-2025", 5), RuleBadDate},
		{"short month", companyMark("2025-1-15", 5), RuleBadDate},
		{"impossible day", companyMark("2025-02-30", 5), RuleBadDate},
		{"empty date", companyMark("", 5), RuleBadDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(models.SectionCompany, "John Doe", []models.Mark{tt.mark})
			checkVerdict(t, err, tt.wantRule)
		})
	}
}

func TestValidateJuniorMarks(t *testing.T) {
	tests := []struct {
		name     string
		mark     models.Mark
		wantRule string
	}{
		{"full marks", juniorMark("2025-01-15", 15, 10, 5), ""},
		{"partial", juniorMark("2025-01-15", 9.5, 7.5, 2), ""},
		{"decimal sum", juniorMark("2025-01-15", 10.75, 8.25, 2.5), ""},
		{"whole-record absent", juniorMark("2025-01-15", -1, -1, -1), ""},
		{"uniform absent only", juniorMark("2025-01-15", -1, -1, 3), ""},
		{"missing sub-scores", companyMark("2025-01-15", 5), RuleSectionShape},
		{"sum mismatch", juniorMark("2025-01-15", 14, 8, 5), RuleSumMismatch},
		{"uniform over range", juniorMark("2025-01-15", 13, 11, 2), RuleUniformRange},
		{"behaviour over range", juniorMark("2025-01-15", 14, 8, 6), RuleBehaviourRange},
		{"behaviour negative non-sentinel", juniorMark("2025-01-15", 5, 8, -3), RuleBehaviourRange},
		{"uniform three decimals", juniorMark("2025-01-15", 10.125, 8.125, 2), RulePrecision},
		{"absent sub-score with total", juniorMark("2025-01-15", 3, -1, 3), RuleAbsence},
		{"absent total with present subs", juniorMark("2025-01-15", -1, 8, 2), RuleSumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(models.SectionJunior, "Wee Jamie", []models.Mark{tt.mark})
			checkVerdict(t, err, tt.wantRule)
		})
	}
}

func TestValidateBatchAtomic(t *testing.T) {
	marks := []models.Mark{
		companyMark("2025-01-08", 8),
		companyMark("2025-01-15", 11), // bad
		companyMark("2025-01-22", 9),
	}
	err := Validate(models.SectionCompany, "John Doe", marks)
	if err == nil {
		t.Fatal("batch with one bad mark was accepted")
	}
	f, ok := faults.As(err)
	if !ok || f.Kind != faults.KindValidation {
		t.Fatalf("err = %v, want validation fault", err)
	}
	// The failure names the member, the offending date, and the rule.
	for _, want := range []string{"John Doe", "2025-01-15", RuleScoreRange} {
		if !strings.Contains(f.Detail, want) {
			t.Errorf("detail %q does not mention %q", f.Detail, want)
		}
	}
}

func TestValidateDuplicateDate(t *testing.T) {
	marks := []models.Mark{
		companyMark("2025-01-15", 8),
		companyMark("2025-01-15", 9),
	}
	err := Validate(models.SectionCompany, "John Doe", marks)
	if err == nil {
		t.Fatal("duplicate dates accepted")
	}
	f, _ := faults.As(err)
	if !strings.Contains(f.Detail, RuleDuplicateDate) {
		t.Errorf("detail %q does not name %q", f.Detail, RuleDuplicateDate)
	}
}

func TestValidateFloatArtifacts(t *testing.T) {
	// Values whose *100 scaling is inexact in binary must still pass.
	for _, v := range []float64{0.1, 0.29, 7.35, 9.99} {
		if err := Validate(models.SectionCompany, "x", []models.Mark{companyMark("2025-01-15", v)}); err != nil {
			t.Errorf("score %v rejected: %v", v, err)
		}
	}
	// And a junior sum of inexact halves must satisfy the sum invariant.
	m := juniorMark("2025-01-15", 10.3, 8.1, 2.2)
	if err := Validate(models.SectionJunior, "x", []models.Mark{m}); err != nil {
		t.Errorf("8.1+2.2=10.3 rejected: %v", err)
	}
}

func TestValidDate(t *testing.T) {
	valid := []string{"2025-01-15", "2024-02-29", "1999-12-31"}
	for _, s := range valid {
		if !ValidDate(s) {
			t.Errorf("ValidDate(%q) = false", s)
		}
	}
	invalid := []string{"2025/01/15", "15-01-2025", "2025-1-15", "2025-01-5", "2025-02-30", "2023-02-29", "20250115", ""}
	for _, s := range invalid {
		if ValidDate(s) {
			t.Errorf("ValidDate(%q) = true", s)
		}
	}
}

func TestValidateEmptyBatch(t *testing.T) {
	if err := Validate(models.SectionCompany, "John Doe", nil); err != nil {
		t.Fatalf("empty batch rejected: %v", err)
	}
}

func checkVerdict(t *testing.T, err error, wantRule string) {
	t.Helper()
	if wantRule == "" {
		if err != nil {
			t.Fatalf("valid mark rejected: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("invalid mark accepted, want rule %s", wantRule)
	}
	f, ok := faults.As(err)
	if !ok {
		t.Fatalf("err = %v, want fault", err)
	}
	if f.Kind != faults.KindValidation {
		t.Fatalf("kind = %s, want validation", f.Kind)
	}
	if !strings.Contains(f.Detail, wantRule) {
		t.Fatalf("detail %q does not name rule %q", f.Detail, wantRule)
	}
}
