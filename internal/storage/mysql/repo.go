package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"review_dashboard/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	if err := r.db.QueryRowContext(ctx, getBlobSQL, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("kv %s: %w", key, domain.ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

func (r *Repo) Set(ctx context.Context, key string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, upsertBlobSQL, key, blob)
	return err
}

func (r *Repo) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, deleteBlobSQL, key)
	return err
}

func (r *Repo) LogDecision(ctx context.Context, ev domain.DecisionEvent) error {
	_, err := r.db.ExecContext(ctx, insertDecisionSQL,
		uuid.NewString(),
		ev.ReviewID,
		valStr(string(ev.Previous)),
		string(ev.Current),
		ev.DecidedAt.UTC(),
	)
	return err
}

// Decisions returns the audit trail for one review, oldest first.
func (r *Repo) Decisions(ctx context.Context, reviewID int64) ([]domain.DecisionEvent, error) {
	rows, err := r.db.QueryContext(ctx, listDecisionsSQL, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DecisionEvent
	for rows.Next() {
		var (
			eventID  string
			ev       domain.DecisionEvent
			previous sql.NullString
			current  string
		)
		if err := rows.Scan(&eventID, &ev.ReviewID, &previous, &current, &ev.DecidedAt); err != nil {
			return nil, err
		}
		ev.Previous = domain.Moderation(previous.String)
		ev.Current = domain.Moderation(current)
		out = append(out, ev)
	}
	return out, rows.Err()
}
