package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"review_dashboard/internal/domain"
)

const fallbackConfidence = 0.6

// Keyword → suggestion for the weakest categories. The first entry is used
// for critical properties, the second otherwise.
var categorySuggestions = []struct {
	keyword        string
	critical, base string
}{
	{"clean", "Emergency deep cleaning", "Enhanced cleaning standards"},
	{"communication", "24/7 support hotline", "Faster response times"},
	{"value", "Pricing review urgent", "Competitive pricing analysis"},
	{"respect", "Guest guidelines training", "Guest guidelines training"},
	{"check", "Self check-in review", "Streamlined check-in process"},
	{"location", "Update listing location details", "Local area guide for guests"},
	{"accuracy", "Rewrite listing description", "Refresh listing photos and copy"},
}

var levelSuggestions = map[domain.IssueLevel]string{
	domain.IssueCritical:    "Staff training program",
	domain.IssueEmerging:    "Preventive maintenance",
	domain.IssueImprovement: "Premium amenities upgrade",
	domain.IssueGood:        "Guest experience enhancement",
}

type categoryAverage struct {
	name string
	avg  float64
}

// RuleBasedAnalysis derives an analysis from ratings alone. It is fully
// deterministic for a given review set and analysis time.
func RuleBasedAnalysis(propertyName string, reviews []domain.Review, now time.Time) domain.PropertyAnalysis {
	avg := 0.0
	if len(reviews) > 0 {
		var sum float64
		for _, r := range reviews {
			sum += r.Rating
		}
		avg = sum / float64(len(reviews)) / 2
	}
	level := issueLevelFor(avg)

	var cats []categoryAverage
	for name, t := range categoryTotals(reviews) {
		cats = append(cats, categoryAverage{name: strings.ReplaceAll(name, "_", " "), avg: t.sum / float64(t.count)})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].avg != cats[j].avg {
			return cats[i].avg < cats[j].avg
		}
		return cats[i].name < cats[j].name
	})

	var pains []string
	for _, c := range cats {
		if len(pains) == listLen {
			break
		}
		pains = append(pains, fmt.Sprintf("%s rated %.1f/10 on average", c.name, c.avg))
	}

	return domain.PropertyAnalysis{
		PropertyName: propertyName,
		Summary: fmt.Sprintf("Property has %d reviews with %.1f/5 rating.\nRule-based analysis due to AI processing issues.",
			len(reviews), avg),
		IssueLevel:             level,
		PainPoints:             exactlyThree(pains, placeholderPainPoint),
		ImprovementSuggestions: fallbackSuggestions(cats, level),
		Confidence:             fallbackConfidence,
		AnalyzedAt:             now.UTC(),
		ReviewCount:            len(reviews),
		LastReviewDate:         latestReviewDate(reviews, now),
		Source:                 domain.SourceFallback,
	}
}

func issueLevelFor(avgStars float64) domain.IssueLevel {
	switch {
	case avgStars < 3.0:
		return domain.IssueCritical
	case avgStars < 3.5:
		return domain.IssueEmerging
	case avgStars > 4.0:
		return domain.IssueImprovement
	default:
		return domain.IssueGood
	}
}

func fallbackSuggestions(sortedCats []categoryAverage, level domain.IssueLevel) []string {
	var out []string
	for i, c := range sortedCats {
		if i == 2 {
			break
		}
		lower := strings.ToLower(c.name)
		for _, m := range categorySuggestions {
			if strings.Contains(lower, m.keyword) {
				if level == domain.IssueCritical {
					out = append(out, m.critical)
				} else {
					out = append(out, m.base)
				}
				break
			}
		}
	}
	out = append(out, levelSuggestions[level])
	return exactlyThree(out, placeholderSuggestion)
}

func latestReviewDate(reviews []domain.Review, now time.Time) time.Time {
	var latest time.Time
	for _, r := range reviews {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	if latest.IsZero() {
		return now.UTC()
	}
	return latest
}
