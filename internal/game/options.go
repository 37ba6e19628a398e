package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/goback/internal/grid"
)

const (
	MinHideAfter = 2
	MaxHideAfter = 10
	// MaxDimension bounds level growth so a session cannot grow without limit.
	MaxDimension = 40
)

// Options are the player-facing settings read at round start.
type Options struct {
	GridDimension int       `json:"gridDimension" yaml:"gridDimension"`
	Mode          grid.Mode `json:"mode" yaml:"mode"`
	HideAfter     int       `json:"hideAfter" yaml:"hideAfter"` // seconds
	Sound         bool      `json:"sound" yaml:"sound"`
}

// DefaultOptions mirrors a fresh install: 4x4, forward adjacency, 3s, sound on.
func DefaultOptions() Options {
	return Options{
		GridDimension: 4,
		Mode:          grid.ModeOrthogonal,
		HideAfter:     3,
		Sound:         true,
	}
}

// Clamp pulls every field into its valid range. Unknown modes fall back to
// orthogonal.
func (o Options) Clamp() Options {
	o.GridDimension = clampDimension(o.GridDimension)
	o.HideAfter = min(max(o.HideAfter, MinHideAfter), MaxHideAfter)
	if !o.Mode.Valid() {
		o.Mode = grid.ModeOrthogonal
	}
	return o
}

func clampDimension(d int) int {
	return min(max(d, grid.MinDimension), MaxDimension)
}

// LoadOptions reads defaults from a YAML file. Missing keys keep
// DefaultOptions values; the result is clamped.
//
//	gridDimension: 5
//	mode: crazy
//	hideAfter: 4
//	sound: false
func LoadOptions(path string) (Options, error) {
	o := DefaultOptions()
	b, err := os.ReadFile(path)
	if err != nil {
		return o, fmt.Errorf("read options %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &o); err != nil {
		return DefaultOptions(), fmt.Errorf("parse options %s: %w", path, err)
	}
	return o.Clamp(), nil
}
