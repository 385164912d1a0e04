package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the production Store backed by Postgres. Profiles live as one
// jsonb document per tenant; feedback events are insert-only rows.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) LoadProfile(ctx context.Context, tenant string) (Profile, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		"SELECT profile FROM preference_profiles WHERE tenant=$1", tenant,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, classifyStoreError(err)
	}

	var profile Profile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return Profile{}, newStoreError(StoreUnavailable, fmt.Errorf("decode profile for %s: %w", tenant, err))
	}
	profile.Tenant = tenant
	return profile, nil
}

func (s *PGStore) SaveProfile(ctx context.Context, profile Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return newStoreError(StoreUnavailable, fmt.Errorf("encode profile for %s: %w", profile.Tenant, err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO preference_profiles (tenant, profile, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant) DO UPDATE SET profile = EXCLUDED.profile, updated_at = NOW()
	`, profile.Tenant, payload)
	if err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *PGStore) AppendFeedbackEvent(ctx context.Context, tenant string, event FeedbackEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return newStoreError(StoreUnavailable, fmt.Errorf("encode feedback event: %w", err))
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO feedback_events (tenant, post_id, payload, observed_at)
		VALUES ($1, $2, $3, $4)
	`, tenant, event.PostID, payload, event.ObservedAt)
	if err != nil {
		return classifyStoreError(err)
	}
	return nil
}

func (s *PGStore) QueryFeedbackEvents(ctx context.Context, filter EventFilter) ([]FeedbackEvent, error) {
	query := "SELECT payload FROM feedback_events WHERE tenant=$1"
	args := []any{filter.Tenant}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND observed_at >= $%d", len(args))
	}
	query += " ORDER BY observed_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	defer rows.Close()

	var out []FeedbackEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, classifyStoreError(err)
		}
		var event FeedbackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, newStoreError(StoreUnavailable, fmt.Errorf("decode feedback event: %w", err))
		}
		if filter.Platform != "" && !hasPlatform(event, filter.Platform) {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreError(err)
	}
	return out, nil
}

func hasPlatform(event FeedbackEvent, platform string) bool {
	for _, candidate := range event.Platforms {
		if strings.EqualFold(candidate, platform) {
			return true
		}
	}
	return false
}

func classifyStoreError(err error) *StoreError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return newStoreError(StoreConflict, err)
	}
	return newStoreError(StoreUnavailable, err)
}
