package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeon/internal/game/session"
)

// ErrSaveNotFound is returned when a saved game lookup yields no results.
var ErrSaveNotFound = errors.New("saved game not found")

// SavedGame is one row of the saved_games table. State carries the
// session snapshot as JSONB.
type SavedGame struct {
	ID        int64
	Username  string
	Name      string
	State     session.Snapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveRepository provides saved-game persistence operations.
type SaveRepository struct {
	db *pgxpool.Pool
}

// NewSaveRepository creates a SaveRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSaveRepository(db *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{db: db}
}

// Put upserts the named save slot for a user.
//
// Precondition: username and name must be non-empty.
// Postcondition: Returns the stored row with ID and timestamps set.
func (r *SaveRepository) Put(ctx context.Context, username, name string, snap session.Snapshot) (SavedGame, error) {
	state, err := json.Marshal(snap)
	if err != nil {
		return SavedGame{}, fmt.Errorf("encoding save state: %w", err)
	}

	var out SavedGame
	var raw []byte
	err = r.db.QueryRow(ctx,
		`INSERT INTO saved_games (username, name, state)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (username, name)
		 DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()
		 RETURNING id, username, name, state, created_at, updated_at`,
		username, name, state,
	).Scan(&out.ID, &out.Username, &out.Name, &raw, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return SavedGame{}, fmt.Errorf("upserting saved game: %w", err)
	}
	if err := json.Unmarshal(raw, &out.State); err != nil {
		return SavedGame{}, fmt.Errorf("decoding save state: %w", err)
	}
	return out, nil
}

// Get retrieves the named save slot for a user.
//
// Postcondition: Returns the SavedGame or ErrSaveNotFound.
func (r *SaveRepository) Get(ctx context.Context, username, name string) (SavedGame, error) {
	var out SavedGame
	var raw []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, username, name, state, created_at, updated_at
		 FROM saved_games WHERE username = $1 AND name = $2`,
		username, name,
	).Scan(&out.ID, &out.Username, &out.Name, &raw, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SavedGame{}, ErrSaveNotFound
		}
		return SavedGame{}, fmt.Errorf("querying saved game: %w", err)
	}
	if err := json.Unmarshal(raw, &out.State); err != nil {
		return SavedGame{}, fmt.Errorf("decoding save state: %w", err)
	}
	return out, nil
}

// List returns every save slot for a user, newest first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *SaveRepository) List(ctx context.Context, username string) ([]SavedGame, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, username, name, state, created_at, updated_at
		 FROM saved_games WHERE username = $1 ORDER BY updated_at DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("listing saved games: %w", err)
	}
	defer rows.Close()

	saves := make([]SavedGame, 0)
	for rows.Next() {
		var out SavedGame
		var raw []byte
		if err := rows.Scan(&out.ID, &out.Username, &out.Name, &raw, &out.CreatedAt, &out.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning saved game row: %w", err)
		}
		if err := json.Unmarshal(raw, &out.State); err != nil {
			return nil, fmt.Errorf("decoding save state: %w", err)
		}
		saves = append(saves, out)
	}
	return saves, rows.Err()
}

// Delete removes the named save slot.
//
// Postcondition: Returns ErrSaveNotFound when no row matched.
func (r *SaveRepository) Delete(ctx context.Context, username, name string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM saved_games WHERE username = $1 AND name = $2`,
		username, name,
	)
	if err != nil {
		return fmt.Errorf("deleting saved game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaveNotFound
	}
	return nil
}
