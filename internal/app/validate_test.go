package app_test

import (
	"strings"
	"testing"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
)

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		name         string
		mutate       func(r *domain.AnalysisResponse)
		wantValid    bool
		wantWarnings bool
	}{
		{"well formed", func(r *domain.AnalysisResponse) {}, true, false},
		{"invalid issue level", func(r *domain.AnalysisResponse) { r.IssueLevel = ptr("bad") }, false, false},
		{"missing issue level", func(r *domain.AnalysisResponse) { r.IssueLevel = nil }, false, false},
		{"missing summary", func(r *domain.AnalysisResponse) { r.Summary = nil }, false, false},
		{"blank summary", func(r *domain.AnalysisResponse) { r.Summary = ptr("  ") }, false, false},
		{"confidence above one", func(r *domain.AnalysisResponse) { r.Confidence = ptr(1.2) }, false, false},
		{"negative confidence", func(r *domain.AnalysisResponse) { r.Confidence = ptr(-0.1) }, false, false},
		{"missing confidence", func(r *domain.AnalysisResponse) { r.Confidence = nil }, false, false},
		{"pain points not an array", func(r *domain.AnalysisResponse) { r.PainPoints = nil }, false, false},
		{"low confidence", func(r *domain.AnalysisResponse) { r.Confidence = ptr(0.4) }, true, true},
		{"two pain points", func(r *domain.AnalysisResponse) { r.PainPoints = []any{"a", "b"} }, true, true},
		{"non-string suggestion", func(r *domain.AnalysisResponse) { r.ImprovementSuggestions = []any{"a", 3.0, "c"} }, true, true},
		{"three-line summary", func(r *domain.AnalysisResponse) { r.Summary = ptr("one\ntwo\nthree") }, true, true},
		{"long summary", func(r *domain.AnalysisResponse) { r.Summary = ptr(strings.Repeat("x", 201)) }, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validAIResponse()
			tc.mutate(&r)
			v := app.ValidateResponse(r)
			if v.Valid() != tc.wantValid {
				t.Fatalf("valid = %v, errors %q", v.Valid(), v.Errors)
			}
			if (len(v.Warnings) > 0) != tc.wantWarnings {
				t.Fatalf("warnings = %q", v.Warnings)
			}
		})
	}
}

func TestSanitizeResponse(t *testing.T) {
	r := validAIResponse()
	r.Summary = ptr("  " + strings.Repeat("é", 250) + "  ")
	r.PainPoints = []any{"a", "", 7.0, "b", "c", "d"}
	r.ImprovementSuggestions = []any{"only one"}
	r.Confidence = ptr(1.0)

	s := app.SanitizeResponse(r)
	if n := len([]rune(s.Summary)); n != 200 {
		t.Fatalf("summary must be truncated to 200 runes, got %d", n)
	}
	if len(s.PainPoints) != 3 || s.PainPoints[0] != "a" || s.PainPoints[1] != "b" || s.PainPoints[2] != "c" {
		t.Fatalf("painPoints = %q", s.PainPoints)
	}
	if len(s.Suggestions) != 3 || s.Suggestions[0] != "only one" || s.Suggestions[2] != "Property optimization review" {
		t.Fatalf("suggestions = %q", s.Suggestions)
	}
	if s.IssueLevel != domain.IssueGood || s.Confidence != 1 {
		t.Fatalf("unexpected sanitized response: %+v", s)
	}
}
