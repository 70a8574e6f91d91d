package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spellduel/server/internal/replay"
)

// ResultRepo archives finished-session summaries. It implements the
// runtime's ResultSink.
type ResultRepo struct {
	db      *DB
	players *PlayerRepo // nil skips tally updates
}

func NewResultRepo(db *DB, players *PlayerRepo) *ResultRepo {
	return &ResultRepo{db: db, players: players}
}

func (r *ResultRepo) RecordResult(ctx context.Context, sum replay.Summary) error {
	stats, err := json.Marshal(sum.PlayerStats)
	if err != nil {
		return fmt.Errorf("marshal player stats: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO session_results
		    (session_id, winner, outcome, rounds, duration_s, end_condition, player_stats)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		sum.SessionID, sum.Winner, sum.Outcome, sum.Rounds,
		sum.DurationSecs, sum.EndCondition, stats,
	)
	if err != nil {
		return fmt.Errorf("insert session result: %w", err)
	}

	if r.players == nil {
		return nil
	}
	for name := range sum.PlayerStats {
		out := "draw"
		switch {
		case sum.Winner == name:
			out = "win"
		case sum.Winner != "":
			out = "loss"
		}
		// Named seats that are not directory players simply miss the
		// tally row; the UPDATE is a no-op for them.
		if err := r.players.RecordOutcome(ctx, name, out); err != nil {
			return fmt.Errorf("record outcome for %s: %w", name, err)
		}
	}
	return nil
}

func (r *ResultRepo) LoadSummary(ctx context.Context, sessionID string) (*replay.Summary, error) {
	var (
		sum   replay.Summary
		stats []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT session_id, winner, outcome, rounds, duration_s, end_condition, player_stats
		 FROM session_results WHERE session_id = $1`, sessionID,
	).Scan(&sum.SessionID, &sum.Winner, &sum.Outcome, &sum.Rounds,
		&sum.DurationSecs, &sum.EndCondition, &stats)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stats, &sum.PlayerStats); err != nil {
		return nil, fmt.Errorf("unmarshal player stats: %w", err)
	}
	return &sum, nil
}
