package httpserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/goback/internal/auth"
	"github.com/robalobadob/goback/internal/game"
)

// Round statuses as stored in the rounds table.
const (
	statusWon       = "won"
	statusLost      = "lost"      // aborted after the path was hidden
	statusAbandoned = "abandoned" // aborted during the reveal or countdown
)

func roundStatus(res game.Result) string {
	switch {
	case res.Won:
		return statusWon
	case res.Recalled:
		return statusLost
	default:
		return statusAbandoned
	}
}

// persistRound stores a finished round and, for signed-in owners, updates
// their counters. Abandoned rounds are kept in history but never touch the
// counters. Failures are logged; gameplay never depends on them.
func (s *Server) persistRound(own owner, res game.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.insertRound(ctx, own, res); err != nil {
		log.Warn().Err(err).Str("round", res.RoundID).Msg("persist round")
	}
}

func (s *Server) insertRound(ctx context.Context, own owner, res game.Result) error {
	status := roundStatus(res)
	var userID, anonID sql.NullString
	if own.User {
		userID = sql.NullString{String: own.ID, Valid: true}
	} else {
		anonID = sql.NullString{String: own.ID, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	finished := res.StartedAt.Add(res.Elapsed)
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO rounds (id, user_id, anonymous_id, dimension, mode, path_len, hints, mistakes,
                            status, started_at, finished_at, elapsed_ms)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.RoundID, userID, anonID, res.Dimension, string(res.Mode), res.PathLen, res.Hints, res.Mistakes,
		status, res.StartedAt.UTC().Format(time.RFC3339Nano), finished.UTC().Format(time.RFC3339Nano),
		res.Elapsed.Milliseconds()); err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	if own.User && status != statusAbandoned {
		if err := auth.RecordRound(ctx, tx, own.ID, res.Won, res.Dimension); err != nil {
			return fmt.Errorf("bump stats: %w", err)
		}
	}
	return tx.Commit()
}

// claimAnon transfers a guest's rounds, options and daily results to a user
// after sign-in.
func (s *Server) claimAnon(ctx context.Context, anon, userID string) {
	if anon == "" || userID == "" {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anon); err != nil {
		log.Warn().Err(err).Msg("claim anon rounds")
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE OR IGNORE daily_results SET user_id=? WHERE user_id=?`, userID, anon); err != nil {
		log.Warn().Err(err).Msg("claim anon daily results")
	}
	if err := s.prefs.Claim(ctx, anon, userID); err != nil {
		log.Warn().Err(err).Msg("claim anon options")
	}
}

// roundRow is one entry of GET /rounds/mine.
type roundRow struct {
	ID         string `json:"id"`
	Dimension  int    `json:"dimension"`
	Mode       string `json:"mode"`
	PathLen    int    `json:"pathLen"`
	Hints      int    `json:"hints"`
	Mistakes   int    `json:"mistakes"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

func (s *Server) recentRounds(ctx context.Context, userID string, limit int) ([]roundRow, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, dimension, mode, path_len, hints, mistakes, status, started_at, finished_at, elapsed_ms
        FROM rounds WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []roundRow{}
	for rows.Next() {
		var rr roundRow
		if err := rows.Scan(&rr.ID, &rr.Dimension, &rr.Mode, &rr.PathLen, &rr.Hints, &rr.Mistakes,
			&rr.Status, &rr.StartedAt, &rr.FinishedAt, &rr.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// savePrefs stores the owner's options; failures are logged only.
func (s *Server) savePrefs(own owner, o game.Options) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.prefs.Save(ctx, own.ID, o); err != nil {
		log.Warn().Err(err).Str("owner", own.ID).Msg("save options")
	}
}
