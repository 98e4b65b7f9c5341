package app

import (
	"math"
	"sort"
	"strings"
	"time"

	"review_dashboard/internal/domain"
)

// Channels are synthetic: the review source carries no booking channel, so each
// review gets one round-robin by its position in the property's review list.
var Channels = []string{"Airbnb", "Booking.com", "Direct Booking"}

func ChannelFor(index int) string { return Channels[index%len(Channels)] }

var timeWindows = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// Filter applies the dashboard criteria. The input is not mutated; surviving
// properties carry only the reviews that passed the per-review filters.
func Filter(props []domain.PropertyStatistics, c domain.FilterCriteria, now time.Time) []domain.PropertyStatistics {
	search := strings.ToLower(c.Search)
	window, hasWindow := timeWindows[c.Time]

	out := make([]domain.PropertyStatistics, 0, len(props))
	for _, p := range props {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if c.Rating != 0 && int(math.Floor(p.AverageRating)) != c.Rating {
			continue
		}
		if c.Category != "" {
			if _, ok := p.CategoryAverages[c.Category]; !ok {
				continue
			}
		}

		kept := make([]domain.Review, 0, len(p.Reviews))
		for i, r := range p.Reviews {
			if c.Channel != "" && ChannelFor(i) != c.Channel {
				continue
			}
			if hasWindow && now.Sub(r.Date) > window {
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			continue
		}

		cp := p
		cp.Reviews = kept
		out = append(out, cp)
	}

	// Category is a re-ranking operator, not only a predicate.
	if c.Category != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CategoryAverages[c.Category] > out[j].CategoryAverages[c.Category]
		})
	}
	return out
}
