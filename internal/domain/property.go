package domain

// PropertyStatistics is derived from the canonical reviews of one listing; it is
// always rebuilt from scratch, never patched.
type PropertyStatistics struct {
	Name                string         `json:"name"`
	Reviews             []Review       `json:"reviews"`
	TotalReviews        int            `json:"totalReviews"`
	ApprovedReviews     int            `json:"approvedReviews"`
	PendingReviews      int            `json:"pendingReviews"`
	AverageRating       float64        `json:"averageRating"`
	CategoryAverages    map[string]int `json:"categoryAverages"`
	RatingDistribution  map[int]int    `json:"ratingDistribution"`
	MostCommonComplaint string         `json:"mostCommonComplaint"`
}

// PublicProperty is what a public property page shows: approved reviews only.
type PublicProperty struct {
	Name                 string         `json:"name"`
	Slug                 string         `json:"slug"`
	Reviews              []Review       `json:"reviews"`
	AverageRating        float64        `json:"averageRating"`
	CategoryAverages     map[string]int `json:"categoryAverages"`
	TotalApprovedReviews int            `json:"totalApprovedReviews"`
}

// Filter criteria for the dashboard list. Zero values mean "not set".
type FilterCriteria struct {
	Search   string
	Channel  string
	Rating   int    // 1..5, matched against floor(averageRating)
	Category string // presence check + re-rank
	Time     string // 7d | 30d | 90d
}

// Provenance tags where a value came from.
type Provenance string

const (
	ProvenanceLive           Provenance = "live"
	ProvenanceCached         Provenance = "cached"
	ProvenanceCachedFallback Provenance = "cached-fallback"
	ProvenanceFallback       Provenance = "fallback"
	ProvenanceMock           Provenance = "mock"
)
