package app

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

const noComplaint = "None"

// Aggregate groups reviews by exact listing name and derives statistics from
// approved reviews only. Output is sorted by pending reviews, most first; ties
// keep first-seen order, so the same input always yields the same output.
func Aggregate(reviews []domain.Review) []domain.PropertyStatistics {
	var order []string
	groups := map[string][]domain.Review{}
	for _, r := range reviews {
		if _, seen := groups[r.ListingName]; !seen {
			order = append(order, r.ListingName)
		}
		groups[r.ListingName] = append(groups[r.ListingName], r)
	}
	warnNearDuplicateNames(order)

	out := make([]domain.PropertyStatistics, 0, len(order))
	for _, name := range order {
		out = append(out, buildStatistics(name, groups[name]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PendingReviews > out[j].PendingReviews })
	return out
}

func buildStatistics(name string, reviews []domain.Review) domain.PropertyStatistics {
	sorted := make([]domain.Review, len(reviews))
	copy(sorted, reviews)
	sortNewestFirst(sorted)

	var approved []domain.Review
	pending := 0
	for _, r := range sorted {
		switch {
		case r.Approved():
			approved = append(approved, r)
		case r.Pending():
			pending++
		}
	}

	cats := categoryAverages(approved)
	return domain.PropertyStatistics{
		Name:                name,
		Reviews:             sorted,
		TotalReviews:        len(approved) + pending,
		ApprovedReviews:     len(approved),
		PendingReviews:      pending,
		AverageRating:       averageStars(approved),
		CategoryAverages:    cats,
		RatingDistribution:  ratingDistribution(approved),
		MostCommonComplaint: lowestCategory(cats),
	}
}

func sortNewestFirst(rs []domain.Review) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.After(rs[j].Date)
		}
		return rs[i].ID > rs[j].ID
	})
}

// averageStars is mean(rating)/2 rounded to one decimal; 0 for no reviews.
func averageStars(rs []domain.Review) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Rating
	}
	return round1(sum / float64(len(rs)) / 2)
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

type categoryTotal struct {
	sum   float64
	count int
}

func categoryTotals(rs []domain.Review) map[string]categoryTotal {
	totals := map[string]categoryTotal{}
	for _, r := range rs {
		for cat, v := range r.CategoryRatings {
			t := totals[cat]
			t.sum += v
			t.count++
			totals[cat] = t
		}
	}
	return totals
}

func categoryAverages(rs []domain.Review) map[string]int {
	out := map[string]int{}
	for cat, t := range categoryTotals(rs) {
		out[cat] = int(math.Round(t.sum / float64(t.count)))
	}
	return out
}

func ratingDistribution(rs []domain.Review) map[int]int {
	out := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, r := range rs {
		out[starBucket(r.Rating)]++
	}
	return out
}

func starBucket(rating float64) int {
	b := int(math.Ceil(rating / 2))
	if b < 1 {
		return 1
	}
	if b > 5 {
		return 5
	}
	return b
}

// lowestCategory picks the lowest average; ties go to the alphabetically first name.
func lowestCategory(avgs map[string]int) string {
	best, bestVal := "", 0
	for cat, v := range avgs {
		if best == "" || v < bestVal || (v == bestVal && cat < best) {
			best, bestVal = cat, v
		}
	}
	if best == "" {
		return noComplaint
	}
	return best
}

// Grouping is exact-match; flag listing names that only differ by case or spacing.
func warnNearDuplicateNames(names []string) {
	seen := map[string]string{}
	for _, n := range names {
		k := strings.ToLower(strings.Join(strings.Fields(n), " "))
		if prev, ok := seen[k]; ok {
			log.Warn().Str("listing", n).Str("similar_to", prev).Msg("listing names differ only by case/whitespace; grouped separately")
			continue
		}
		seen[k] = n
	}
}
