package domain

import "time"

type IssueLevel string

const (
	IssueCritical    IssueLevel = "critical"
	IssueEmerging    IssueLevel = "emerging"
	IssueImprovement IssueLevel = "improvement"
	IssueGood        IssueLevel = "good"
)

func (l IssueLevel) Valid() bool {
	switch l {
	case IssueCritical, IssueEmerging, IssueImprovement, IssueGood:
		return true
	}
	return false
}

type AnalysisSource string

const (
	SourceAI       AnalysisSource = "ai"
	SourceFallback AnalysisSource = "fallback"
)

type PropertyAnalysis struct {
	PropertyName           string         `json:"propertyName"`
	Summary                string         `json:"summary"`
	IssueLevel             IssueLevel     `json:"issueLevel"`
	PainPoints             []string       `json:"painPoints"`
	ImprovementSuggestions []string       `json:"improvementSuggestions"`
	Confidence             float64        `json:"confidence"`
	AnalyzedAt             time.Time      `json:"analyzedAt"`
	ReviewCount            int            `json:"reviewCount"`
	LastReviewDate         time.Time      `json:"lastReviewDate"`
	Source                 AnalysisSource `json:"source"`
}

// AnalysisResponse is the raw payload returned by the LLM before validation.
// Pointer and []any fields keep "missing" and "wrong type" distinguishable.
type AnalysisResponse struct {
	Summary                *string  `json:"summary"`
	IssueLevel             *string  `json:"issueLevel"`
	PainPoints             []any    `json:"painPoints"`
	ImprovementSuggestions []any    `json:"improvementSuggestions"`
	Confidence             *float64 `json:"confidence"`
}

type AnalysisCacheEntry struct {
	Analysis  PropertyAnalysis `json:"analysis"`
	CachedAt  time.Time        `json:"cachedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type AnalysisStatus struct {
	IsProcessing    bool     `json:"isProcessing"`
	IsCached        bool     `json:"isCached"`
	CacheAgeSeconds *float64 `json:"cacheAgeSeconds,omitempty"`
}

// Secondary reviews from the places collaborator.
type PlaceReview struct {
	ID                      string `json:"id"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	AuthorName              string `json:"author_name"`
	Time                    int64  `json:"time"`
	RelativeTimeDescription string `json:"relative_time_description"`
}

type PlaceReviews struct {
	PlaceID      string        `json:"placeId"`
	Name         string        `json:"name"`
	Address      string        `json:"address"`
	Rating       float64       `json:"rating"`
	TotalReviews int           `json:"totalReviews"`
	Reviews      []PlaceReview `json:"reviews"`
}

// PlaceCandidate is one text-search match; PlaceID feeds PlaceReviews.
type PlaceCandidate struct {
	PlaceID string `json:"placeId"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type PlaceSearch struct {
	Query      string           `json:"query"`
	Candidates []PlaceCandidate `json:"candidates"`
}
