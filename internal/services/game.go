package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kagura-engine/kagura/pkg/plugin"
	"github.com/kagura-engine/kagura/pkg/script"
	"github.com/kagura-engine/kagura/pkg/session"
	"github.com/kagura-engine/kagura/pkg/storage"
	"github.com/kagura-engine/kagura/pkg/story"
)

// GameInfo is the static metadata of the opened story package.
type GameInfo struct {
	Title   string            `json:"title"`
	Author  string            `json:"author,omitempty"`
	Props   map[string]string `json:"props,omitempty"`
	Locales []string          `json:"locales"`
}

// GameService owns one opened story package and everything derived from it:
// the plugin registry, the live sessions, the staged record slots and the
// shared visited set. Records and settings changes stage in memory; nothing
// becomes durable until SaveAll commits the lot.
type GameService struct {
	store  storage.Store
	logger *slog.Logger

	dataDir     string
	callTimeout time.Duration

	mu       sync.Mutex
	game     *story.Game
	registry *plugin.Registry
	eval     *script.Evaluator
	settings *storage.Settings
	records  []*session.Context
	visited  *visitedSet
	sessions map[string]*session.Engine
}

// NewGameService creates a service with no story opened yet.
func NewGameService(store storage.Store, dataDir string, callTimeout time.Duration, logger *slog.Logger) *GameService {
	return &GameService{
		store:       store,
		logger:      logger,
		dataDir:     dataDir,
		callTimeout: callTimeout,
		sessions:    make(map[string]*session.Engine),
	}
}

// Open loads a story package and its plugins, then restores settings, record
// slots and the visited set from storage. Opening a second package replaces
// the first and drops its live sessions.
func (s *GameService) Open(ctx context.Context, storyFile string) (*GameInfo, error) {
	path := storyFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dataDir, storyFile)
	}

	game, err := story.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open story package: %w", err)
	}

	registry := plugin.NewRegistry(s.logger, s.callTimeout)
	pluginDir := game.Plugins.Dir
	if pluginDir == "" {
		pluginDir = "plugins"
	}
	if !filepath.IsAbs(pluginDir) {
		pluginDir = filepath.Join(filepath.Dir(path), pluginDir)
	}
	if err := registry.Load(pluginDir, game.Plugins.Modules); err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}

	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		registry.Close()
		return nil, err
	}
	records, err := s.store.LoadRecords(ctx, game.Title)
	if err != nil {
		registry.Close()
		return nil, err
	}
	seen, err := s.store.LoadVisited(ctx, game.Title)
	if err != nil {
		registry.Close()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry != nil {
		s.registry.Close()
	}
	s.game = game
	s.registry = registry
	s.eval = script.NewEvaluator(registry)
	s.settings = settings
	s.records = records
	s.visited = newVisitedSet(seen)
	s.sessions = make(map[string]*session.Engine)

	s.logger.Info("Story package opened",
		"title", game.Title,
		"locales", game.Locales(),
		"plugins", registry.Names(),
		"records", len(records))

	return s.infoLocked(), nil
}

// Info returns the opened package's metadata.
func (s *GameService) Info() (*GameInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil, ErrNoGame
	}
	return s.infoLocked(), nil
}

func (s *GameService) infoLocked() *GameInfo {
	return &GameInfo{
		Title:   s.game.Title,
		Author:  s.game.Author,
		Props:   s.game.Props,
		Locales: s.game.Locales(),
	}
}

// Settings returns the staged settings, defaulting to the package base
// language when none were ever saved.
func (s *GameService) Settings() (*storage.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil, ErrNoGame
	}
	if s.settings == nil {
		return &storage.Settings{Locale: s.game.BaseLang}, nil
	}
	dup := *s.settings
	return &dup, nil
}

// SetSettings stages new settings. They become durable at the next SaveAll.
func (s *GameService) SetSettings(settings *storage.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return ErrNoGame
	}
	dup := *settings
	s.settings = &dup
	return nil
}

// Records returns the staged record slots in slot order.
func (s *GameService) Records() ([]*session.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return nil, ErrNoGame
	}
	records := make([]*session.Context, len(s.records))
	for i, r := range s.records {
		records[i] = r.Clone()
	}
	return records, nil
}

// SaveRecordTo snapshots a session into a record slot. A slot index at or past
// the end appends; anything else overwrites in place. The slot stays staged in
// memory until SaveAll.
func (s *GameService) SaveRecordTo(sessionID string, slot int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return 0, ErrNoGame
	}

	eng, ok := s.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	snapshot, err := eng.Snapshot()
	if err != nil {
		return 0, err
	}

	if slot < 0 || slot >= len(s.records) {
		s.records = append(s.records, snapshot)
		slot = len(s.records) - 1
	} else {
		s.records[slot] = snapshot
	}
	return slot, nil
}

// SaveAll commits settings, record slots and the visited set atomically.
func (s *GameService) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return ErrNoGame
	}
	return s.store.SaveAll(ctx, s.game.Title, s.settings, s.records, s.visited.List())
}

// ChooseLocale picks the best package locale for an ordered preference list.
// An empty preference falls back to the staged settings locale.
func (s *GameService) ChooseLocale(preference []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return "", ErrNoGame
	}
	if len(preference) == 0 && s.settings != nil && s.settings.Locale != "" {
		preference = []string{s.settings.Locale}
	}
	return story.ChooseLocale(preference, s.game.Locales()), nil
}

// StartNew begins a fresh session and returns its ID. An empty locale uses
// the staged settings locale, then the package base language.
func (s *GameService) StartNew(locale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return "", ErrNoGame
	}

	eng := session.NewEngine(s.game, s.eval, s.visited, s.logger)
	if err := eng.StartNew(s.resolveLocaleLocked(locale)); err != nil {
		return "", err
	}

	id := uuid.New().String()
	s.sessions[id] = eng
	return id, nil
}

// StartRecord resumes a session from a staged record slot and returns its ID.
func (s *GameService) StartRecord(locale string, slot int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game == nil {
		return "", ErrNoGame
	}
	if slot < 0 || slot >= len(s.records) {
		return "", fmt.Errorf("%w: slot %d", session.ErrCorruptRecord, slot)
	}

	eng := session.NewEngine(s.game, s.eval, s.visited, s.logger)
	if err := eng.StartRecord(s.resolveLocaleLocked(locale), s.records[slot]); err != nil {
		return "", err
	}

	id := uuid.New().String()
	s.sessions[id] = eng
	return id, nil
}

// Session returns a live session engine by ID.
func (s *GameService) Session(id string) (*session.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return eng, nil
}

// Close releases the plugin registry and drops the live sessions.
func (s *GameService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry != nil {
		s.registry.Close()
		s.registry = nil
	}
	s.sessions = make(map[string]*session.Engine)
	s.game = nil
}

func (s *GameService) resolveLocaleLocked(locale string) string {
	if locale != "" {
		return locale
	}
	if s.settings != nil && s.settings.Locale != "" {
		return s.settings.Locale
	}
	return s.game.BaseLang
}
