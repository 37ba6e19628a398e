package daily

import (
	"context"
	"database/sql"
	"fmt"
)

// Result is one owner's finished challenge.
type Result struct {
	UserID    string `json:"userId"`
	Date      string `json:"date"`
	Dimension int    `json:"dimension"`
	Mode      string `json:"mode"`
	Hints     int    `json:"hints"`
	Mistakes  int    `json:"mistakes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r. A second result for the same owner and date is
// ignored; inserted reports whether this one was kept.
func (s *Store) InsertResult(ctx context.Context, r Result) (inserted bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, dimension, mode, hints, mistakes, elapsed_ms)
		VALUES(?,?,?,?,?,?,?)`, r.UserID, r.Date, r.Dimension, r.Mode, r.Hints, r.Mistakes, r.ElapsedMs,
	)
	if err != nil {
		return false, fmt.Errorf("insert daily result: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type LBRow struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	Hints     int    `json:"hints"`
	Mistakes  int    `json:"mistakes"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard ranks a date's results: fewest hints, then fewest mistakes,
// then fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.user_id, COALESCE(u.username, ''), d.hints, d.mistakes, d.elapsed_ms
		FROM daily_results d
		LEFT JOIN users u ON u.id = d.user_id
		WHERE d.date=?
		ORDER BY d.hints ASC, d.mistakes ASC, d.elapsed_ms ASC, d.created_at ASC
		LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Hints, &r.Mistakes, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
