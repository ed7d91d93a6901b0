package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kagura-engine/kagura/pkg/session"
	"github.com/kagura-engine/kagura/pkg/storage"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	// Start miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewRedisStore("redis://"+mr.Addr(), logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis store: %v", err)
	}

	return store, mr
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestRedisStore_LoadSettings_Unset(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	settings, err := store.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings != nil {
		t.Errorf("Expected nil settings before first save, got %+v", settings)
	}
}

func TestRedisStore_SaveAllAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	game := "the-lighthouse"

	records := []*session.Context{
		{Locale: "en", CurPara: "start", CurAct: 2},
		{Locale: "fr", CurPara: "shore", CurAct: 0, Ended: true},
	}
	visited := []string{"start", "shore"}
	settings := &storage.Settings{Locale: "fr"}

	if err := store.SaveAll(ctx, game, settings, records, visited); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	loaded, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if loaded == nil || loaded.Locale != "fr" {
		t.Errorf("Expected settings locale fr, got %+v", loaded)
	}

	recs, err := store.LoadRecords(ctx, game)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].CurPara != "start" || recs[0].CurAct != 2 {
		t.Errorf("Slot 0 mismatch: %+v", recs[0])
	}
	if recs[1].Locale != "fr" || !recs[1].Ended {
		t.Errorf("Slot 1 mismatch: %+v", recs[1])
	}

	seen, err := store.LoadVisited(ctx, game)
	if err != nil {
		t.Fatalf("LoadVisited failed: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("Expected 2 visited paragraphs, got %v", seen)
	}
}

func TestRedisStore_SaveAllReplacesSlots(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()
	game := "the-lighthouse"

	first := []*session.Context{
		{Locale: "en", CurPara: "start"},
		{Locale: "en", CurPara: "shore"},
		{Locale: "en", CurPara: "tower"},
	}
	if err := store.SaveAll(ctx, game, nil, first, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	// A later save with fewer slots must not leave stale trailing slots.
	second := []*session.Context{
		{Locale: "en", CurPara: "tower", CurAct: 1},
	}
	if err := store.SaveAll(ctx, game, nil, second, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	recs, err := store.LoadRecords(ctx, game)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record after overwrite, got %d", len(recs))
	}
	if recs[0].CurPara != "tower" || recs[0].CurAct != 1 {
		t.Errorf("Record mismatch: %+v", recs[0])
	}
}

func TestRedisStore_SaveAllNilSettingsKeepsExisting(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	if err := store.SaveAll(ctx, "g", &storage.Settings{Locale: "en"}, nil, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}
	if err := store.SaveAll(ctx, "g", nil, nil, nil); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings == nil || settings.Locale != "en" {
		t.Errorf("Expected earlier settings to survive a nil-settings save, got %+v", settings)
	}
}

func TestRedisStore_LoadRecords_Corrupt(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	game := "the-lighthouse"
	mr.Lpush(recordsKey(game), "{not json")

	_, err := store.LoadRecords(context.Background(), game)
	if err == nil {
		t.Fatal("Expected error for corrupt record slot")
	}
	if !errors.Is(err, session.ErrCorruptRecord) {
		t.Errorf("Expected ErrCorruptRecord, got %v", err)
	}
}

func TestRedisStore_GamesAreIsolated(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	if err := store.SaveAll(ctx, "alpha", nil, []*session.Context{{CurPara: "a"}}, []string{"a"}); err != nil {
		t.Fatalf("SaveAll failed: %v", err)
	}

	recs, err := store.LoadRecords(ctx, "beta")
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no records for other game, got %d", len(recs))
	}

	seen, err := store.LoadVisited(ctx, "beta")
	if err != nil {
		t.Fatalf("LoadVisited failed: %v", err)
	}
	if len(seen) != 0 {
		t.Errorf("Expected no visited paragraphs for other game, got %v", seen)
	}
}
