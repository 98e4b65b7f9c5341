package domain

import "time"

// Upstream review shape (property-management API). Rating is nullable upstream.
type RawReview struct {
	ID             int64               `json:"id"`
	Type           string              `json:"type"`
	Status         string              `json:"status"`
	Rating         *float64            `json:"rating"`
	PublicReview   string              `json:"publicReview"`
	ReviewCategory []RawReviewCategory `json:"reviewCategory"`
	SubmittedAt    string              `json:"submittedAt"`
	GuestName      string              `json:"guestName"`
	ListingName    string              `json:"listingName"`
}

type RawReviewCategory struct {
	Category string  `json:"category"` // open set, never enumerated
	Rating   float64 `json:"rating"`
}

type RawReviewResponse struct {
	Status string      `json:"status"`
	Result []RawReview `json:"result"`
}

// Moderation is the per-review decision; the zero value means undecided.
type Moderation string

const (
	ModerationUnset    Moderation = ""
	ModerationApproved Moderation = "approved"
	ModerationRejected Moderation = "rejected"
)

// Decision is what staff can record against a review.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool { return d == DecisionApprove || d == DecisionReject }

// Moderation maps a decision to the state it produces.
func (d Decision) Moderation() Moderation {
	if d == DecisionApprove {
		return ModerationApproved
	}
	return ModerationRejected
}

// Review is the canonical review after normalization.
type Review struct {
	ID              int64              `json:"id"`
	Type            string             `json:"type"`
	Status          string             `json:"status"`
	Rating          float64            `json:"rating"`
	PublicReview    string             `json:"publicReview"`
	CategoryRatings map[string]float64 `json:"categoryRatings"`
	SubmittedAt     string             `json:"submittedAt"`
	Date            time.Time          `json:"date"`
	GuestName       string             `json:"guestName"`
	ListingName     string             `json:"listingName"`
	Moderation      Moderation         `json:"moderation,omitempty"`
}

func (r Review) Approved() bool { return r.Moderation == ModerationApproved }
func (r Review) Rejected() bool { return r.Moderation == ModerationRejected }
func (r Review) Pending() bool  { return r.Moderation == ModerationUnset }

// DecisionEvent is one audit row for a moderation change.
type DecisionEvent struct {
	ReviewID  int64
	Previous  Moderation
	Current   Moderation
	DecidedAt time.Time
}
