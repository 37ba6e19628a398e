package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User matches the users table shape.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	RoundsPlayed  int       `json:"roundsPlayed"`
	RoundsWon     int       `json:"roundsWon"`
	Streak        int       `json:"streak"`
	BestDimension int       `json:"bestDimension"`
}

// Users is the account store.
type Users struct {
	db   *sql.DB
	cost int
}

// NewUsers wraps db. cost is the bcrypt cost; 0 means bcrypt.DefaultCost.
func NewUsers(db *sql.DB, cost int) *Users { return &Users{db: db, cost: cost} }

// Create validates input, checks uniqueness, hashes the password and inserts
// a new user.
func (u *Users) Create(ctx context.Context, username, pw string) (*User, error) {
	username = NormalizeUsername(username)
	if err := ValidateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	err := u.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	h, err := HashPassword(pw, u.cost)
	if err != nil {
		return nil, err
	}
	usr := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: h,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if _, err := u.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		usr.ID, usr.Username, usr.PasswordHash, usr.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return usr, nil
}

const userCols = `id, username, password_hash, created_at, rounds_played, rounds_won, streak, best_dimension`

// FindByUsername is case-insensitive.
func (u *Users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE lower(username)=lower(?)`, username))
}

func (u *Users) FindByID(ctx context.Context, id string) (*User, error) {
	return scanUser(u.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=?`, id))
}

// Authenticate returns the user when the password matches.
func (u *Users) Authenticate(ctx context.Context, username, pw string) (*User, error) {
	usr, err := u.FindByUsername(ctx, NormalizeUsername(username))
	if err != nil || !CheckPassword(usr.PasswordHash, pw) {
		return nil, errors.New("invalid username or password")
	}
	return usr, nil
}

// RecordRound updates counters for a finished round inside tx: a win extends
// the streak and may raise the best dimension, a loss resets the streak.
func RecordRound(ctx context.Context, tx *sql.Tx, userID string, won bool, dimension int) error {
	var played, wins, streak, best int
	row := tx.QueryRowContext(ctx, `SELECT rounds_played, rounds_won, streak, best_dimension FROM users WHERE id=?`, userID)
	if err := row.Scan(&played, &wins, &streak, &best); err != nil {
		return err
	}
	played++
	if won {
		wins++
		streak++
		best = max(best, dimension)
	} else {
		streak = 0
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET rounds_played=?, rounds_won=?, streak=?, best_dimension=? WHERE id=?`,
		played, wins, streak, best, userID)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created,
		&u.RoundsPlayed, &u.RoundsWon, &u.Streak, &u.BestDimension); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}
