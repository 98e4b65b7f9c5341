package hostaway

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"review_dashboard/internal/domain"
)

//go:embed fixtures/reviews.json
var fixtureJSON []byte

// Fixture is the static dataset served when the live API is unavailable or
// not configured. It has the same shape as a live response.
func Fixture() (domain.RawReviewResponse, error) {
	var out domain.RawReviewResponse
	if err := json.Unmarshal(fixtureJSON, &out); err != nil {
		return domain.RawReviewResponse{}, fmt.Errorf("hostaway fixture: %w", err)
	}
	return out, nil
}
