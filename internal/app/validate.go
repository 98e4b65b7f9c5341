package app

import (
	"fmt"
	"strings"

	"review_dashboard/internal/domain"
)

const (
	maxSummaryLines    = 2
	maxSummaryChars    = 200
	listLen            = 3
	minConfidenceScore = 0.6

	placeholderPainPoint  = "No significant issues identified"
	placeholderSuggestion = "Property optimization review"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v Validation) Valid() bool { return len(v.Errors) == 0 }

// ValidateResponse splits problems into hard errors (missing fields, unknown
// issue level, confidence outside [0,1]) and warnings that sanitizing repairs.
func ValidateResponse(r domain.AnalysisResponse) Validation {
	var v Validation

	if r.Summary == nil || strings.TrimSpace(*r.Summary) == "" {
		v.Errors = append(v.Errors, "summary is required")
	} else {
		s := *r.Summary
		if n := countLines(s); n > maxSummaryLines {
			v.Warnings = append(v.Warnings, fmt.Sprintf("summary has %d lines, expected max %d", n, maxSummaryLines))
		}
		if n := len([]rune(s)); n > maxSummaryChars {
			v.Warnings = append(v.Warnings, fmt.Sprintf("summary too long: %d chars, max %d", n, maxSummaryChars))
		}
	}

	switch {
	case r.IssueLevel == nil:
		v.Errors = append(v.Errors, "issueLevel is required")
	case !domain.IssueLevel(*r.IssueLevel).Valid():
		v.Errors = append(v.Errors, fmt.Sprintf("invalid issueLevel: %q", *r.IssueLevel))
	}

	checkList(&v, "painPoints", r.PainPoints)
	checkList(&v, "improvementSuggestions", r.ImprovementSuggestions)

	switch {
	case r.Confidence == nil:
		v.Errors = append(v.Errors, "confidence is required")
	case *r.Confidence < 0 || *r.Confidence > 1:
		v.Errors = append(v.Errors, fmt.Sprintf("confidence %v outside [0,1]", *r.Confidence))
	case *r.Confidence < minConfidenceScore:
		v.Warnings = append(v.Warnings, fmt.Sprintf("low confidence score: %v", *r.Confidence))
	}
	return v
}

func checkList(v *Validation, field string, items []any) {
	if items == nil {
		v.Errors = append(v.Errors, field+" must be an array")
		return
	}
	if len(items) != listLen {
		v.Warnings = append(v.Warnings, fmt.Sprintf("expected %d %s, got %d", listLen, field, len(items)))
	}
	for i, it := range items {
		if s, ok := it.(string); !ok || strings.TrimSpace(s) == "" {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s[%d] is not a non-empty string", field, i))
		}
	}
}

func countLines(s string) int {
	n := 0
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

// SanitizedResponse is a validated response coerced into the analysis invariants.
type SanitizedResponse struct {
	Summary     string
	IssueLevel  domain.IssueLevel
	PainPoints  []string
	Suggestions []string
	Confidence  float64
}

// SanitizeResponse truncates the summary, clamps confidence and forces both
// lists to exactly three non-empty strings. Call only on a valid response.
func SanitizeResponse(r domain.AnalysisResponse) SanitizedResponse {
	out := SanitizedResponse{
		IssueLevel:  domain.IssueEmerging,
		PainPoints:  exactlyThree(stringsOf(r.PainPoints), placeholderPainPoint),
		Suggestions: exactlyThree(stringsOf(r.ImprovementSuggestions), placeholderSuggestion),
	}
	if r.Summary != nil {
		out.Summary = truncateRunes(strings.TrimSpace(*r.Summary), maxSummaryChars)
	}
	if r.IssueLevel != nil && domain.IssueLevel(*r.IssueLevel).Valid() {
		out.IssueLevel = domain.IssueLevel(*r.IssueLevel)
	}
	if r.Confidence != nil {
		out.Confidence = clamp01(*r.Confidence)
	}
	return out
}

func stringsOf(items []any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func exactlyThree(in []string, pad string) []string {
	if len(in) > listLen {
		in = in[:listLen]
	}
	out := append([]string(nil), in...)
	for len(out) < listLen {
		out = append(out, pad)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
