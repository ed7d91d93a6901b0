package story

import (
	"fmt"
	"os"
	"sort"

	"github.com/kagura-engine/kagura/pkg/value"
	"gopkg.in/yaml.v3"
)

// Call is a pre-parsed embedded directive: a named function of a plugin
// module applied to literal arguments. The script compiler has already
// resolved the textual grammar; the runtime only sees this shape.
type Call struct {
	Module   string        `json:"module" yaml:"module"`
	Function string        `json:"function" yaml:"function"`
	Args     []value.Value `json:"args,omitempty" yaml:"args,omitempty"`
}

// UnmarshalYAML decodes a directive, keeping null argument literals as Unit.
// Decoding args straight into a value slice would drop null elements and
// shift every positional argument after them.
func (c *Call) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Module   string      `yaml:"module"`
		Function string      `yaml:"function"`
		Args     []yaml.Node `yaml:"args"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.Module = raw.Module
	c.Function = raw.Function
	c.Args = nil
	if len(raw.Args) == 0 {
		return nil
	}

	c.Args = make([]value.Value, len(raw.Args))
	for i := range raw.Args {
		if err := c.Args[i].UnmarshalYAML(&raw.Args[i]); err != nil {
			return fmt.Errorf("directive arg %d: %w", i, err)
		}
	}
	return nil
}

// Segment is one text run of an action: either a plain-text chunk or an
// embedded directive. Exactly one of Text/Call is set.
type Segment struct {
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	Call *Call  `json:"call,omitempty" yaml:"call,omitempty"`
}

// Switch is a player-facing choice. Cond is the enablement expression; a nil
// Cond means the switch is unconditionally enabled. Target names the next
// paragraph; an empty Target continues the current paragraph.
type Switch struct {
	Text   string `json:"text" yaml:"text"`
	Cond   *Call  `json:"cond,omitempty" yaml:"cond,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Props is the media property bag attached to an action.
type Props struct {
	Background string `json:"bg,omitempty" yaml:"bg,omitempty"`
	BGM        string `json:"bgm,omitempty" yaml:"bgm,omitempty"`
	Effect     string `json:"effect,omitempty" yaml:"effect,omitempty"`
	Voice      string `json:"voice,omitempty" yaml:"voice,omitempty"`
	Video      string `json:"video,omitempty" yaml:"video,omitempty"`
}

// Action is one displayable narrative step, still unresolved: its directive
// segments and switch conditions have not been evaluated yet.
type Action struct {
	Segments []Segment `json:"segments" yaml:"segments"`
	Speaker  string    `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Switches []Switch  `json:"switches,omitempty" yaml:"switches,omitempty"`
	Props    Props     `json:"props,omitempty" yaml:"props,omitempty"`
}

// Paragraph is a named, ordered sequence of actions. Next names the successor
// paragraph; empty Next ends the story.
type Paragraph struct {
	Tag     string   `json:"tag" yaml:"tag"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Actions []Action `json:"actions" yaml:"actions"`
	Next    string   `json:"next,omitempty" yaml:"next,omitempty"`
}

// PluginConfig names the extension modules a story package ships with.
type PluginConfig struct {
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Modules []string `json:"modules,omitempty" yaml:"modules,omitempty"`
}

// Game is a loaded story package. Paragraph lists are keyed by locale and are
// immutable after load; sessions share them by reference.
type Game struct {
	Title    string                 `json:"title" yaml:"title"`
	Author   string                 `json:"author,omitempty" yaml:"author,omitempty"`
	Props    map[string]string      `json:"props,omitempty" yaml:"props,omitempty"`
	BaseLang string                 `json:"base_lang" yaml:"base_lang"`
	Paras    map[string][]Paragraph `json:"paras" yaml:"paras"`
	Plugins  PluginConfig           `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}

// Load reads and validates a story package from a YAML file.
func Load(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story package: %w", err)
	}

	var g Game
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse story package: %w", err)
	}

	if g.Title == "" {
		return nil, fmt.Errorf("story package has no title")
	}
	if g.BaseLang == "" {
		return nil, fmt.Errorf("story package has no base_lang")
	}
	if _, ok := g.Paras[g.BaseLang]; !ok {
		return nil, fmt.Errorf("story package has no paragraphs for base_lang %q", g.BaseLang)
	}

	return &g, nil
}

// Locales returns the locales the package declares paragraphs for, with the
// base language first and the rest in lexical order.
func (g *Game) Locales() []string {
	locales := make([]string, 0, len(g.Paras))
	locales = append(locales, g.BaseLang)
	for loc := range g.Paras {
		if loc != g.BaseLang {
			locales = append(locales, loc)
		}
	}
	// Lexical order after the base language keeps the list stable across loads.
	sort.Strings(locales[1:])
	return locales
}

// Graph is the per-locale view of a Game: an immutable paragraph index. All
// resolution of "what comes next" happens against one Graph.
type Graph struct {
	Locale string
	paras  []Paragraph
	byTag  map[string]*Paragraph
}

// GraphFor returns the paragraph graph for the requested locale. The match
// must be exact or share the base-language subtag with an available
// translation; a locale the package has no translation for is an error, so
// the caller can surface it and pick a fallback deliberately.
func (g *Game) GraphFor(locale string) (*Graph, error) {
	chosen, ok := matchLocale(locale, g.Locales())
	if !ok {
		return nil, fmt.Errorf("no paragraphs available for locale %q", locale)
	}

	paras := g.Paras[chosen]
	byTag := make(map[string]*Paragraph, len(paras))
	for i := range paras {
		byTag[paras[i].Tag] = &paras[i]
	}

	return &Graph{Locale: chosen, paras: paras, byTag: byTag}, nil
}

// Para looks up a paragraph by tag.
func (gr *Graph) Para(tag string) (*Paragraph, bool) {
	p, ok := gr.byTag[tag]
	return p, ok
}

// First returns the opening paragraph (package order).
func (gr *Graph) First() (*Paragraph, bool) {
	if len(gr.paras) == 0 {
		return nil, false
	}
	return &gr.paras[0], true
}

// Paras returns the paragraphs in package order.
func (gr *Graph) Paras() []Paragraph {
	return gr.paras
}
