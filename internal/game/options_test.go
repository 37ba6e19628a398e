package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalobadob/goback/internal/grid"
)

func TestOptions_Clamp(t *testing.T) {
	cases := []struct {
		in, want Options
	}{
		{Options{GridDimension: 2, Mode: grid.ModeCrazy, HideAfter: 1}, Options{GridDimension: 3, Mode: grid.ModeCrazy, HideAfter: 2}},
		{Options{GridDimension: 99, Mode: "diagonal", HideAfter: 11, Sound: true}, Options{GridDimension: MaxDimension, Mode: grid.ModeOrthogonal, HideAfter: 10, Sound: true}},
		{DefaultOptions(), DefaultOptions()},
	}
	for _, tc := range cases {
		if got := tc.in.Clamp(); got != tc.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "options.yaml")
	if err := os.WriteFile(p, []byte("gridDimension: 6\nmode: crazy\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	o, err := LoadOptions(p)
	if err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	want := Options{GridDimension: 6, Mode: grid.ModeCrazy, HideAfter: 3, Sound: true}
	if o != want {
		t.Errorf("got %+v, want %+v", o, want)
	}
}

func TestLoadOptions_ClampsAndErrors(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "options.yaml")
	if err := os.WriteFile(p, []byte("hideAfter: 60\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if o, err := LoadOptions(p); err != nil || o.HideAfter != MaxHideAfter {
		t.Errorf("got %+v, %v", o, err)
	}

	if _, err := LoadOptions(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("gridDimension: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	o, err := LoadOptions(bad)
	if err == nil {
		t.Error("malformed yaml: expected error")
	}
	if o != DefaultOptions() {
		t.Errorf("malformed yaml returned %+v, want defaults", o)
	}
}
