// Package prefs persists each player's game options. Owners are user ids or
// anonymous cookie ids.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/grid"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Load returns the owner's saved options, clamped. ok is false when nothing
// is saved.
func (s *Store) Load(ctx context.Context, owner string) (o game.Options, ok bool, err error) {
	var mode string
	var sound int
	err = s.db.QueryRowContext(ctx,
		`SELECT grid_dimension, mode, hide_after, sound FROM options WHERE owner_id=?`, owner,
	).Scan(&o.GridDimension, &mode, &o.HideAfter, &sound)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Options{}, false, nil
	}
	if err != nil {
		return game.Options{}, false, fmt.Errorf("load options: %w", err)
	}
	o.Mode = grid.Mode(mode)
	o.Sound = sound != 0
	return o.Clamp(), true, nil
}

// Save upserts the owner's options.
func (s *Store) Save(ctx context.Context, owner string, o game.Options) error {
	o = o.Clamp()
	sound := 0
	if o.Sound {
		sound = 1
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO options (owner_id, grid_dimension, mode, hide_after, sound, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(owner_id) DO UPDATE SET
            grid_dimension=excluded.grid_dimension,
            mode=excluded.mode,
            hide_after=excluded.hide_after,
            sound=excluded.sound,
            updated_at=excluded.updated_at`,
		owner, o.GridDimension, string(o.Mode), o.HideAfter, sound, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save options: %w", err)
	}
	return nil
}

// Claim moves an anonymous owner's options to a user who has none saved.
func (s *Store) Claim(ctx context.Context, from, to string) error {
	if from == "" || to == "" || from == to {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE OR IGNORE options SET owner_id=? WHERE owner_id=?`, to, from); err != nil {
		return fmt.Errorf("claim options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM options WHERE owner_id=?`, from); err != nil {
		return fmt.Errorf("claim options: %w", err)
	}
	return tx.Commit()
}
