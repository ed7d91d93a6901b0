package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kagura-engine/kagura/pkg/script"
	"github.com/kagura-engine/kagura/pkg/story"
)

// VisitedSet records which paragraphs have been seen across sessions. It is
// shared between sessions of the same story and must be safe for concurrent
// use.
type VisitedSet interface {
	Mark(para string)
	Seen(para string) bool
}

// Engine is the session state machine. It owns exactly one Context and is its
// only writer; every mutating operation is serialized by an internal mutex,
// so a host may drive it from an asynchronous request layer without partial
// effects becoming visible.
type Engine struct {
	game    *story.Game
	eval    *script.Evaluator
	visited VisitedSet
	logger  *slog.Logger

	mu      sync.Mutex
	graph   *story.Graph
	ctx     *Context
	state   State
	pending *script.Action // resolved action blocked on a choice
}

// NewEngine creates an idle engine for a loaded story package.
func NewEngine(game *story.Game, eval *script.Evaluator, visited VisitedSet, logger *slog.Logger) *Engine {
	return &Engine{
		game:    game,
		eval:    eval,
		visited: visited,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current playback phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StartNew begins a fresh session for the given locale.
func (e *Engine) StartNew(locale string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	graph, err := e.game.GraphFor(locale)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocaleUnavailable, err)
	}

	first, ok := graph.First()
	if !ok {
		return fmt.Errorf("%w: story has no paragraphs", ErrLocaleUnavailable)
	}

	e.graph = graph
	e.ctx = &Context{Locale: graph.Locale, CurPara: first.Tag}
	e.pending = nil
	e.state = StateRunning
	e.normalizePosition()

	e.logger.Info("Session started", "locale", graph.Locale, "para", first.Tag)
	return nil
}

// StartRecord resumes a session from a persisted snapshot. The snapshot's
// position must exist in the narrative graph for the chosen locale; anything
// else is record corruption and surfaces as such.
func (e *Engine) StartRecord(locale string, snapshot *Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snapshot == nil {
		return fmt.Errorf("%w: empty snapshot", ErrCorruptRecord)
	}

	graph, err := e.game.GraphFor(locale)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLocaleUnavailable, err)
	}

	para, ok := graph.Para(snapshot.CurPara)
	if !ok {
		return fmt.Errorf("%w: paragraph %q not in story", ErrCorruptRecord, snapshot.CurPara)
	}
	if snapshot.CurAct < 0 || snapshot.CurAct > len(para.Actions) {
		return fmt.Errorf("%w: action index %d out of range for %q", ErrCorruptRecord, snapshot.CurAct, snapshot.CurPara)
	}

	restored := snapshot.Clone()
	restored.Locale = graph.Locale

	e.graph = graph
	e.ctx = restored
	e.pending = nil
	if restored.Ended {
		e.state = StateEnded
	} else {
		e.state = StateRunning
		e.normalizePosition()
	}

	e.logger.Info("Session restored", "locale", graph.Locale, "para", restored.CurPara, "act", restored.CurAct, "history", len(restored.History))
	return nil
}

// NextRun resolves and advances past the action at the current position.
// It returns false without advancing when playback is blocked on a switch
// (the caller must Switch first), when the story has ended, and on repeated
// calls while still blocked. It returns true for every completed forward
// step, including the one that reaches the terminal paragraph.
func (e *Engine) NextRun(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle:
		return false, ErrNoSession
	case StateEnded, StateAwaitingSwitch:
		return false, nil
	}

	para, ok := e.graph.Para(e.ctx.CurPara)
	if !ok || e.ctx.CurAct >= len(para.Actions) {
		// normalizePosition keeps this unreachable; guard anyway.
		e.state = StateEnded
		e.ctx.Ended = true
		return false, nil
	}

	resolved := e.eval.ResolveAction(ctx, para.Actions[e.ctx.CurAct])
	if resolved.EnabledSwitches() > 0 {
		e.pending = &resolved
		e.state = StateAwaitingSwitch
		return false, nil
	}

	e.appendHistory(resolved, nil)
	e.ctx.CurAct++
	e.normalizePosition()
	return true, nil
}

// Switch selects choice i of the pending action. Only enabled switches are
// selectable; a rejected selection leaves the context untouched.
func (e *Engine) Switch(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateAwaitingSwitch || e.pending == nil {
		return fmt.Errorf("%w: no pending choice", ErrInvalidSwitch)
	}
	if i < 0 || i >= len(e.pending.Switches) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidSwitch, i)
	}
	sw := e.pending.Switches[i]
	if !sw.Enabled {
		return fmt.Errorf("%w: switch %d is disabled", ErrInvalidSwitch, i)
	}

	chosen := i
	e.appendHistory(*e.pending, &chosen)
	e.pending = nil
	e.state = StateRunning

	if sw.Target == "" {
		// Continuation: the story proceeds within the current paragraph.
		e.ctx.CurAct++
	} else {
		e.ctx.CurPara = sw.Target
		e.ctx.CurAct = 0
	}
	e.normalizePosition()
	return nil
}

// NextBackRun rewinds one history entry, restoring the position and overlay
// that preceded it. An empty history is not an error; it simply reports false.
func (e *Engine) NextBackRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || len(e.ctx.History) == 0 {
		return false
	}

	last := e.ctx.History[len(e.ctx.History)-1]
	e.ctx.History = e.ctx.History[:len(e.ctx.History)-1]
	e.ctx.CurPara = last.PrevPara
	e.ctx.CurAct = last.PrevAct
	e.ctx.Overlay = last.PrevOverlay
	e.ctx.Ended = false
	e.pending = nil
	e.state = StateRunning
	return true
}

// CurrentRun returns the action the player is looking at: the pending action
// while awaiting a switch, otherwise the most recently resolved one. There is
// nothing to look at while idle or after the end.
func (e *Engine) CurrentRun() (script.Action, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateEnded:
		return script.Action{}, false
	case StateAwaitingSwitch:
		return *e.pending, true
	default:
		if len(e.ctx.History) == 0 {
			return script.Action{}, false
		}
		return e.ctx.History[len(e.ctx.History)-1].Action, true
	}
}

// CurrentVisited reports whether the current paragraph has been seen in any
// prior session.
func (e *Engine) CurrentVisited() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.visited == nil {
		return false
	}
	return e.visited.Seen(e.ctx.CurPara)
}

// History returns the resolved actions in play order.
func (e *Engine) History() []script.Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return nil
	}
	actions := make([]script.Action, len(e.ctx.History))
	for i, entry := range e.ctx.History {
		actions[i] = entry.Action
	}
	return actions
}

// Snapshot returns a copy of the context suitable for a record slot.
func (e *Engine) Snapshot() (*Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return nil, ErrNoSession
	}
	return e.ctx.Clone(), nil
}

// appendHistory pushes a resolved action with the pre-step snapshot, marks
// the paragraph visited and applies the action's media props to the overlay.
func (e *Engine) appendHistory(action script.Action, switchChosen *int) {
	e.ctx.History = append(e.ctx.History, Entry{
		Action:       action,
		SwitchChosen: switchChosen,
		PrevPara:     e.ctx.CurPara,
		PrevAct:      e.ctx.CurAct,
		PrevOverlay:  e.ctx.Overlay,
	})

	if e.visited != nil {
		// Paragraph tags are shared across locales, so the visited set is
		// locale-independent by construction.
		e.visited.Mark(e.ctx.CurPara)
	}

	if action.Props.Background != "" {
		e.ctx.Overlay.Background = action.Props.Background
	}
	if action.Props.BGM != "" {
		e.ctx.Overlay.BGM = action.Props.BGM
	}
}

// normalizePosition walks paragraph successors until the current position
// points at an existing action, or the story ends. The hop budget breaks
// successor cycles between empty paragraphs.
func (e *Engine) normalizePosition() {
	for hops := 0; hops <= len(e.graph.Paras()); hops++ {
		para, ok := e.graph.Para(e.ctx.CurPara)
		if !ok {
			e.logger.Warn("Successor paragraph not found, ending story", "para", e.ctx.CurPara)
			e.state = StateEnded
			e.ctx.Ended = true
			return
		}
		if e.ctx.CurAct < len(para.Actions) {
			return
		}
		if para.Next == "" {
			e.state = StateEnded
			e.ctx.Ended = true
			return
		}
		e.ctx.CurPara = para.Next
		e.ctx.CurAct = 0
	}

	e.logger.Warn("Successor cycle between empty paragraphs, ending story", "para", e.ctx.CurPara)
	e.state = StateEnded
	e.ctx.Ended = true
}
