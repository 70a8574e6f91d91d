package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type PlayerRow struct {
	ID          string
	DisplayName string
	Wins        int
	Losses      int
	Draws       int
	CreatedAt   time.Time
	LastSeen    *time.Time
}

type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// PlayerExists satisfies the runtime's and the lobby's player directory
// check.
func (r *PlayerRepo) PlayerExists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM players WHERE id = $1)`, id,
	).Scan(&found)
	return found, err
}

func (r *PlayerRepo) Load(ctx context.Context, id string) (*PlayerRow, error) {
	row := &PlayerRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, display_name, wins, losses, draws, created_at, last_seen
		 FROM players WHERE id = $1`, id,
	).Scan(&row.ID, &row.DisplayName, &row.Wins, &row.Losses, &row.Draws,
		&row.CreatedAt, &row.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *PlayerRepo) Create(ctx context.Context, id, displayName string) (*PlayerRow, error) {
	now := time.Now()
	row := &PlayerRow{ID: id, DisplayName: displayName, CreatedAt: now, LastSeen: &now}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO players (id, display_name, last_seen)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET display_name = $2, last_seen = $3`,
		row.ID, row.DisplayName, row.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *PlayerRepo) TouchLastSeen(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET last_seen = NOW() WHERE id = $1`, id,
	)
	return err
}

// RecordOutcome bumps the player's win/loss/draw tally.
func (r *PlayerRepo) RecordOutcome(ctx context.Context, id, outcome string) error {
	var col string
	switch outcome {
	case "win":
		col = "wins"
	case "loss":
		col = "losses"
	case "draw":
		col = "draws"
	default:
		return nil
	}
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET `+col+` = `+col+` + 1, last_seen = NOW() WHERE id = $1`, id,
	)
	return err
}
