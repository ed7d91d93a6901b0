package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kagura-engine/kagura/pkg/value"
)

// DefaultCallTimeout bounds a single plugin call when no explicit budget is
// configured. A runaway extension must never stall playback.
const DefaultCallTimeout = time.Second

// Registry loads extension modules and dispatches calls to them. Dispatch is
// total: an unknown module, an unknown function, or a faulted execution is
// logged as a warning and substituted with Unit, never surfaced as an error.
type Registry struct {
	modules     map[string]*Module
	names       []string
	logger      *slog.Logger
	callTimeout time.Duration
}

// NewRegistry creates an empty registry. A non-positive callTimeout falls
// back to DefaultCallTimeout.
func NewRegistry(logger *slog.Logger, callTimeout time.Duration) *Registry {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Registry{
		modules:     make(map[string]*Module),
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// Load reads plugin modules from dir. When names is empty every .lua file in
// the directory is loaded; otherwise only the named modules, in order. A
// module that fails to load is a hard error: a broken package should surface
// at open time, not degrade silently mid-story.
func (r *Registry) Load(dir string, names []string) error {
	paths := make([][2]string, 0, len(names))

	if len(names) == 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil // no plugin directory means no plugins
			}
			return fmt.Errorf("failed to read plugin directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".lua")
			paths = append(paths, [2]string{name, filepath.Join(dir, e.Name())})
		}
	} else {
		for _, name := range names {
			paths = append(paths, [2]string{name, filepath.Join(dir, name+".lua")})
		}
	}

	for _, p := range paths {
		name, path := p[0], p[1]
		m, err := loadModule(name, path, r.logger)
		if err != nil {
			return fmt.Errorf("failed to load plugin %s: %w", name, err)
		}
		if old, exists := r.modules[name]; exists {
			r.logger.Warn("Plugin overridden", "plugin", name)
			old.close()
		} else {
			r.names = append(r.names, name)
		}
		r.modules[name] = m
		r.logger.Info("Plugin loaded", "plugin", name, "type", m.Type())
	}

	return nil
}

// Call resolves "<module>.<function>" and invokes it with args. The result is
// always a usable Value:
//
//  1. unregistered module -> warning, Unit
//  2. function not exported -> warning, Unit
//  3. execution fault (error, panic, exceeded call budget) -> warning, Unit
//  4. otherwise the function's result, unchanged
func (r *Registry) Call(ctx context.Context, module, function string, args []value.Value) value.Value {
	m, ok := r.modules[module]
	if !ok {
		r.logger.Warn("Call to unregistered plugin module", "module", module, "function", function)
		return value.Unit
	}

	if !m.Exports(function) {
		r.logger.Warn("Call to unexported plugin function", "module", module, "function", function)
		return value.Unit
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	res, err := m.call(callCtx, function, args)
	if err != nil {
		r.logger.Warn("Plugin call faulted", "module", module, "function", function, "error", err)
		return value.Unit
	}
	return res
}

// Module returns a loaded module by name.
func (r *Registry) Module(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names lists loaded modules in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Close releases every module's state.
func (r *Registry) Close() {
	for _, m := range r.modules {
		m.close()
	}
	r.modules = make(map[string]*Module)
	r.names = nil
}
