package app

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

const guestToHost = "guest-to-host"

// Upstream timestamps come in a few shapes; all are read as UTC.
var submittedAtLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseSubmittedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range submittedAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize converts one upstream record. ok=false means the record is excluded:
// not a guest review, no rating, or an unparseable submission date.
func Normalize(raw domain.RawReview) (domain.Review, bool) {
	if raw.Type != guestToHost || raw.Rating == nil {
		return domain.Review{}, false
	}
	date, ok := parseSubmittedAt(raw.SubmittedAt)
	if !ok {
		log.Warn().Int64("review_id", raw.ID).Str("submitted_at", raw.SubmittedAt).Msg("invalid review date, dropping")
		return domain.Review{}, false
	}

	cats := make(map[string]float64, len(raw.ReviewCategory))
	for _, c := range raw.ReviewCategory {
		cats[c.Category] = c.Rating
	}

	return domain.Review{
		ID:              raw.ID,
		Type:            raw.Type,
		Status:          raw.Status,
		Rating:          *raw.Rating,
		PublicReview:    raw.PublicReview,
		CategoryRatings: cats,
		SubmittedAt:     raw.SubmittedAt,
		Date:            date,
		GuestName:       raw.GuestName,
		ListingName:     raw.ListingName,
	}, true
}

// NormalizeAll keeps every record Normalize accepts, in input order.
func NormalizeAll(raws []domain.RawReview) []domain.Review {
	out := make([]domain.Review, 0, len(raws))
	for _, r := range raws {
		if rv, ok := Normalize(r); ok {
			out = append(out, rv)
		}
	}
	if dropped := len(raws) - len(out); dropped > 0 {
		log.Debug().Int("kept", len(out)).Int("dropped", dropped).Msg("normalized reviews")
	}
	return out
}
