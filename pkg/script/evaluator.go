package script

import (
	"context"
	"strings"

	"github.com/kagura-engine/kagura/pkg/story"
	"github.com/kagura-engine/kagura/pkg/value"
)

// Dispatcher is the capability the evaluator needs from the plugin layer:
// a total, name-addressed call surface.
type Dispatcher interface {
	Call(ctx context.Context, module, function string, args []value.Value) value.Value
}

// Switch is a display-ready choice: its enablement expression has been
// evaluated.
type Switch struct {
	Text    string `json:"text"`
	Enabled bool   `json:"enabled"`
	Target  string `json:"target,omitempty"`
}

// Action is a display-ready narrative step: directive segments resolved and
// concatenated into Text, switch conditions reduced to Enabled flags.
type Action struct {
	Text     string      `json:"text"`
	Speaker  string      `json:"speaker,omitempty"`
	Switches []Switch    `json:"switches,omitempty"`
	Props    story.Props `json:"props,omitempty"`
}

// EnabledSwitches counts the selectable choices of the action.
func (a Action) EnabledSwitches() int {
	n := 0
	for _, s := range a.Switches {
		if s.Enabled {
			n++
		}
	}
	return n
}

// Evaluator materializes raw actions at the moment they are about to be
// shown, delegating embedded directives to the dispatcher.
type Evaluator struct {
	dispatcher Dispatcher
}

func NewEvaluator(d Dispatcher) *Evaluator {
	return &Evaluator{dispatcher: d}
}

// ResolveAction converts a raw action into a display-ready one. Adjacent
// plain-text segments concatenate verbatim; a directive segment contributes
// its result Value rendered with the fixed coercion table (Unit -> "").
// Every switch condition is evaluated eagerly so the host can render all
// choices consistently; a nil condition enables unconditionally.
func (e *Evaluator) ResolveAction(ctx context.Context, raw story.Action) Action {
	var text strings.Builder
	for _, seg := range raw.Segments {
		if seg.Call != nil {
			res := e.dispatcher.Call(ctx, seg.Call.Module, seg.Call.Function, seg.Call.Args)
			text.WriteString(res.String())
			continue
		}
		text.WriteString(seg.Text)
	}

	var switches []Switch
	if len(raw.Switches) > 0 {
		switches = make([]Switch, len(raw.Switches))
		for i, sw := range raw.Switches {
			switches[i] = Switch{
				Text:    sw.Text,
				Enabled: e.evalCond(ctx, sw.Cond),
				Target:  sw.Target,
			}
		}
	}

	return Action{
		Text:     text.String(),
		Speaker:  raw.Speaker,
		Switches: switches,
		Props:    raw.Props,
	}
}

// evalCond reduces a switch condition to its enablement: any non-Unit result
// enables unless it is explicitly Bool(false); Unit disables.
func (e *Evaluator) evalCond(ctx context.Context, cond *story.Call) bool {
	if cond == nil {
		return true
	}
	return e.dispatcher.Call(ctx, cond.Module, cond.Function, cond.Args).Truthy()
}
