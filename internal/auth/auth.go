// internal/auth/auth.go
//
// Account primitives.
// Responsibilities:
//   - Username/password validation and bcrypt hashing.
//   - HS256 JWT signing and parsing (id + username claims).
//
// Cookie handling and middleware live in httpserver; this package has no
// HTTP dependencies.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DevSecret signs tokens when JWT_SECRET is unset.
const DevSecret = "dev_secret_change_me"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrUsernameTaken = errors.New("username taken")
)

// NormalizeUsername trims whitespace.
func NormalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// ValidateSignup enforces basic username/password rules.
func ValidateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 72 {
		// bcrypt rejects passwords longer than 72 bytes
		return errors.New("password must be 8-72 chars")
	}
	return nil
}

// HashPassword hashes pw with bcrypt at the given cost (bcrypt.DefaultCost
// when cost is 0).
func HashPassword(pw string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(b), err
}

// CheckPassword is a bcrypt verifier.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Claims is the identity carried by a token.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Signer issues and verifies tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer; an empty secret falls back to DevSecret.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if secret == "" {
		secret = DevSecret
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign creates a token for the user and returns it with its expiry.
func (s *Signer) Sign(id, username string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return ss, exp, nil
}

// Parse verifies tok and returns its claims.
func (s *Signer) Parse(tok string) (Claims, error) {
	mc := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, mc, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	id, _ := mc["id"].(string)
	username, _ := mc["username"].(string)
	if id == "" || username == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{ID: id, Username: username}, nil
}
