package prefs

import (
	"context"
	"testing"

	"github.com/robalobadob/goback/assets"
	"github.com/robalobadob/goback/internal/db"
	"github.com/robalobadob/goback/internal/game"
	"github.com/robalobadob/goback/internal/grid"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(sqlDB, assets.Migrations()); err != nil {
		t.Fatal(err)
	}
	return NewStore(sqlDB)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, ok, err := s.Load(ctx, "anon-1"); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	want := game.Options{GridDimension: 7, Mode: grid.ModeCrazy, HideAfter: 5, Sound: false}
	if err := s.Save(ctx, "anon-1", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Load(ctx, "anon-1")
	if err != nil || !ok || got != want {
		t.Errorf("Load = %+v %v %v, want %+v", got, ok, err, want)
	}

	want.Sound = true
	want.HideAfter = 50 // clamped on save
	if err := s.Save(ctx, "anon-1", want); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Load(ctx, "anon-1")
	if !got.Sound || got.HideAfter != game.MaxHideAfter {
		t.Errorf("after update: %+v", got)
	}
}

func TestStore_Claim(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	anon := game.Options{GridDimension: 6, Mode: grid.ModeOrthogonal, HideAfter: 4, Sound: true}
	if err := s.Save(ctx, "anon-1", anon); err != nil {
		t.Fatal(err)
	}
	if err := s.Claim(ctx, "anon-1", "user-1"); err != nil {
		t.Fatal(err)
	}
	if got, ok, _ := s.Load(ctx, "user-1"); !ok || got != anon {
		t.Errorf("claimed options %+v %v", got, ok)
	}
	if _, ok, _ := s.Load(ctx, "anon-1"); ok {
		t.Error("anonymous options left behind")
	}

	// A user with saved options keeps them.
	other := game.Options{GridDimension: 3, Mode: grid.ModeCrazy, HideAfter: 2}
	if err := s.Save(ctx, "anon-2", other); err != nil {
		t.Fatal(err)
	}
	if err := s.Claim(ctx, "anon-2", "user-1"); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.Load(ctx, "user-1"); got != anon {
		t.Errorf("existing user options overwritten: %+v", got)
	}
}
