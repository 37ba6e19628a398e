// internal/daily/daily.go
//
// Daily challenge parameters.
// Every player gets the same round on a given UTC date: the grid dimension,
// the adjacency mode and the path generator seed all come from
// HMAC-SHA256(salt, YYYY-MM-DD).

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/grid"
)

const (
	MinDimension = 5
	MaxDimension = 8
	// HideAfter is fixed so results are comparable.
	HideAfter = 3
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Challenge is one day's round.
type Challenge struct {
	Date      string    `json:"date"`
	Dimension int       `json:"dimension"`
	Mode      grid.Mode `json:"mode"`
	seed      [2]uint64
}

// For derives the challenge for the date of t.
func For(t time.Time, salt string) Challenge {
	dk := DateKey(t)
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(dk))
	sum := h.Sum(nil)

	n := binary.BigEndian.Uint64(sum[:8])
	c := Challenge{
		Date:      dk,
		Dimension: MinDimension + int(n%uint64(MaxDimension-MinDimension+1)),
		Mode:      grid.ModeOrthogonal,
	}
	if sum[8]&1 == 1 {
		c.Mode = grid.ModeCrazy
	}
	c.seed = [2]uint64{binary.BigEndian.Uint64(sum[16:24]), binary.BigEndian.Uint64(sum[24:32])}
	return c
}

// Options are the round options for the challenge. Sound follows the
// player's preference.
func (c Challenge) Options(sound bool) game.Options {
	return game.Options{GridDimension: c.Dimension, Mode: c.Mode, HideAfter: HideAfter, Sound: sound}
}

// Rand returns a fresh generator seeded for the challenge; the same date and
// salt always produce the same path.
func (c Challenge) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(c.seed[0], c.seed[1]))
}
