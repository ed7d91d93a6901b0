package session

import (
	"github.com/kagura-engine/kagura/pkg/script"
)

// State is the playback phase of a session.
type State string

const (
	// StateIdle means no story position exists yet.
	StateIdle State = "idle"
	// StateRunning means the next action can be resolved.
	StateRunning State = "running"
	// StateAwaitingSwitch means playback is blocked on a player choice.
	StateAwaitingSwitch State = "awaiting_switch"
	// StateEnded means the story reached a terminal paragraph.
	StateEnded State = "ended"
)

// Overlay is the media state that persists across actions until replaced.
type Overlay struct {
	Background string `json:"bg,omitempty"`
	BGM        string `json:"bgm,omitempty"`
}

// Entry is one resolved step of play history. Alongside the action it stores
// the position and overlay that preceded it, so back-navigation restores the
// prior context in O(1) without deep-copying history.
type Entry struct {
	Action       script.Action `json:"action"`
	SwitchChosen *int          `json:"switch_chosen,omitempty"`

	PrevPara    string  `json:"prev_para"`
	PrevAct     int     `json:"prev_act"`
	PrevOverlay Overlay `json:"prev_overlay"`
}

// Context is the complete play state of one session. It is owned exclusively
// by the engine that created it; nothing else mutates it. A Context
// serializes losslessly into a record slot and back.
type Context struct {
	Locale  string  `json:"locale"`
	CurPara string  `json:"cur_para"`
	CurAct  int     `json:"cur_act"`
	History []Entry `json:"history,omitempty"`
	Overlay Overlay `json:"overlay"`
	Ended   bool    `json:"ended,omitempty"`
}

// Clone returns an independent snapshot of the context. History entries are
// immutable once appended, so sharing the backing array elements is safe; the
// slice header itself is copied to decouple future appends.
func (c *Context) Clone() *Context {
	dup := *c
	dup.History = append([]Entry(nil), c.History...)
	return &dup
}
