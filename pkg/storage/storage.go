package storage

import (
	"context"

	"github.com/kagura-engine/kagura/pkg/session"
)

// Settings is the process-wide player preference. It is loaded once at
// startup and persisted on demand through SaveAll; it is never an ambient
// global.
type Settings struct {
	Locale string `json:"locale"`
}

// Store persists the runtime's durable artifacts: settings, record slots and
// the visited set. Record slots are positional and overwritten, never
// appended. SaveAll is the single commit point and must be atomic from the
// caller's perspective: either every pending write becomes durable or none
// does.
type Store interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// LoadSettings returns nil when no settings were ever saved.
	LoadSettings(ctx context.Context) (*Settings, error)

	// LoadRecords returns the populated slots of a story in slot order. A
	// slot that cannot be decoded surfaces session.ErrCorruptRecord; it is
	// never silently skipped.
	LoadRecords(ctx context.Context, game string) ([]*session.Context, error)

	// LoadVisited returns the paragraphs seen across all sessions of a story.
	LoadVisited(ctx context.Context, game string) ([]string, error)

	// SaveAll commits settings, records and the visited set together.
	SaveAll(ctx context.Context, game string, settings *Settings, records []*session.Context, visited []string) error
}
