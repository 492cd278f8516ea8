package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ErrSessionNotFound is returned when a summary lookup finds no actions for
// the session.
var ErrSessionNotFound = errors.New("session not found")

// SessionSummary aggregates one engine session's persisted actions.
type SessionSummary struct {
	SessionID     string
	Dispatched    int
	Succeeded     int
	SuccessRate   float64
	DominantSkill string
	TotalDamage   int
}

// ActionStore persists dispatched combat actions for offline analysis. The
// in-memory engine history stays the hot-path record; this store is an
// observability sink only.
type ActionStore struct {
	db *pgxpool.Pool
}

// NewActionStore creates an ActionStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewActionStore(db *pgxpool.Pool) *ActionStore {
	return &ActionStore{db: db}
}

// RecordAction inserts one dispatched action.
//
// Precondition: a.NoOp must be false; no-op markers are not persisted.
// Postcondition: The action row exists, or a non-nil error is returned.
func (s *ActionStore) RecordAction(ctx context.Context, sessionID, profileName string, a combat.Action) error {
	if a.NoOp {
		return fmt.Errorf("refusing to persist no-op action %s", a.ID)
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO combat_actions
		   (id, session_id, profile, skill, target_id, executed_at, success, damage, latency_ms, state)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, sessionID, profileName, a.Skill, a.TargetID, a.Timestamp,
		a.Success, a.Damage, a.Latency.Milliseconds(), a.State.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting combat action: %w", err)
	}
	return nil
}

// RecentActions returns up to limit actions for the session, newest first.
//
// Precondition: limit >= 1.
func (s *ActionStore) RecentActions(ctx context.Context, sessionID string, limit int) ([]combat.Action, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, skill, target_id, executed_at, success, damage, latency_ms
		   FROM combat_actions
		  WHERE session_id = $1
		  ORDER BY executed_at DESC
		  LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying combat actions: %w", err)
	}
	defer rows.Close()

	var out []combat.Action
	for rows.Next() {
		var a combat.Action
		var latencyMs int64
		if err := rows.Scan(&a.ID, &a.Skill, &a.TargetID, &a.Timestamp, &a.Success, &a.Damage, &latencyMs); err != nil {
			return nil, fmt.Errorf("scanning combat action: %w", err)
		}
		a.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating combat actions: %w", err)
	}
	return out, nil
}

// Summary aggregates the session's persisted actions.
//
// Postcondition: Returns the summary, or ErrSessionNotFound when the session
// has no persisted actions.
func (s *ActionStore) Summary(ctx context.Context, sessionID string) (SessionSummary, error) {
	sum := SessionSummary{SessionID: sessionID}

	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COALESCE(SUM(damage), 0)
		   FROM combat_actions
		  WHERE session_id = $1`,
		sessionID,
	).Scan(&sum.Dispatched, &sum.Succeeded, &sum.TotalDamage)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("aggregating combat actions: %w", err)
	}
	if sum.Dispatched == 0 {
		return SessionSummary{}, ErrSessionNotFound
	}
	sum.SuccessRate = float64(sum.Succeeded) / float64(sum.Dispatched)

	// Dominant skill: highest dispatch count, name ascending on ties so the
	// result is deterministic.
	err = s.db.QueryRow(ctx,
		`SELECT skill
		   FROM combat_actions
		  WHERE session_id = $1
		  GROUP BY skill
		  ORDER BY COUNT(*) DESC, skill ASC
		  LIMIT 1`,
		sessionID,
	).Scan(&sum.DominantSkill)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return SessionSummary{}, fmt.Errorf("finding dominant skill: %w", err)
	}

	return sum, nil
}
