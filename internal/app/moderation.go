package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

const decisionsKey = "review-decisions"

// ModerationStore holds last-write-wins approve/reject decisions keyed by
// review ID and persists the whole map on every change.
type ModerationStore struct {
	kv    domain.KVStore
	audit domain.DecisionLog
	now   func() time.Time

	mu        sync.RWMutex
	decisions map[int64]domain.Moderation
}

// NewModerationStore loads persisted decisions. A missing or corrupt blob
// yields an empty store; only the failure is logged.
func NewModerationStore(ctx context.Context, kv domain.KVStore, audit domain.DecisionLog) *ModerationStore {
	s := &ModerationStore{kv: kv, audit: audit, now: time.Now, decisions: map[int64]domain.Moderation{}}
	s.load(ctx)
	return s
}

func (s *ModerationStore) load(ctx context.Context) {
	blob, err := s.kv.Get(ctx, decisionsKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("load moderation decisions failed, starting empty")
		}
		return
	}
	var stored map[string]domain.Moderation
	if err := json.Unmarshal(blob, &stored); err != nil {
		log.Error().Err(err).Msg("moderation decisions corrupt, starting empty")
		return
	}
	for k, v := range stored {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || (v != domain.ModerationApproved && v != domain.ModerationRejected) {
			log.Warn().Str("key", k).Str("value", string(v)).Msg("skipping invalid moderation entry")
			continue
		}
		s.decisions[id] = v
	}
	log.Info().Int("decisions", len(s.decisions)).Msg("moderation decisions loaded")
}

// Decide records a decision. Repeating the current decision is a no-op.
func (s *ModerationStore) Decide(ctx context.Context, reviewID int64, d domain.Decision) error {
	if !d.Valid() {
		return fmt.Errorf("decision %q: %w", d, domain.ErrInvalidInput)
	}
	next := d.Moderation()

	s.mu.Lock()
	prev := s.decisions[reviewID]
	if prev == next {
		s.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]domain.Moderation, len(s.decisions)+1)
	for id, m := range s.decisions {
		snapshot[strconv.FormatInt(id, 10)] = m
	}
	snapshot[strconv.FormatInt(reviewID, 10)] = next

	blob, err := json.Marshal(snapshot)
	if err == nil {
		err = s.kv.Set(ctx, decisionsKey, blob)
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist decision for review %d: %w", reviewID, err)
	}
	s.decisions[reviewID] = next
	s.mu.Unlock()

	observability.ObserveModeration(string(next))
	log.Info().Int64("review_id", reviewID).Str("previous", string(prev)).Str("decision", string(next)).Msg("moderation decision recorded")

	if s.audit != nil {
		ev := domain.DecisionEvent{ReviewID: reviewID, Previous: prev, Current: next, DecidedAt: s.now().UTC()}
		if err := s.audit.LogDecision(ctx, ev); err != nil {
			log.Warn().Err(err).Int64("review_id", reviewID).Msg("audit log write failed")
		}
	}
	return nil
}

func (s *ModerationStore) Decision(reviewID int64) domain.Moderation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decisions[reviewID]
}

// ApplyDecisions returns a copy of reviews with stored decisions reapplied.
// Run it after every fetch: the upstream source has no notion of moderation.
func (s *ModerationStore) ApplyDecisions(reviews []domain.Review) []domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Review, len(reviews))
	for i, r := range reviews {
		if m, ok := s.decisions[r.ID]; ok {
			r.Moderation = m
		}
		out[i] = r
	}
	return out
}
