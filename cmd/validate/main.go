package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kagura-engine/kagura/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &StoryValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Story package is valid!")
}

type StoryValidator struct {
	errors []string
}

func (v *StoryValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	game, err := story.Load(filename)
	if err != nil {
		return err
	}

	v.errors = nil
	v.validateGame(game, filepath.Dir(filename))

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *StoryValidator) validateGame(game *story.Game, baseDir string) {
	baseTags := make(map[string]struct{})
	for _, p := range game.Paras[game.BaseLang] {
		baseTags[p.Tag] = struct{}{}
	}

	modules := make(map[string]struct{})
	for _, m := range game.Plugins.Modules {
		modules[m] = struct{}{}
		v.validatePluginFile(game, baseDir, m)
	}

	for locale, paras := range game.Paras {
		if len(paras) == 0 {
			v.addError(fmt.Sprintf("locale %s declares no paragraphs", locale))
			continue
		}

		tags := make(map[string]struct{}, len(paras))
		for _, p := range paras {
			if p.Tag == "" {
				v.addError(fmt.Sprintf("locale %s has a paragraph without a tag", locale))
				continue
			}
			if _, dup := tags[p.Tag]; dup {
				v.addError(fmt.Sprintf("locale %s has duplicate paragraph tag %q", locale, p.Tag))
			}
			tags[p.Tag] = struct{}{}
		}

		for _, p := range paras {
			if p.Next != "" {
				if _, ok := tags[p.Next]; !ok {
					v.addError(fmt.Sprintf("locale %s: paragraph %q has unknown successor %q", locale, p.Tag, p.Next))
				}
			}
			for i, a := range p.Actions {
				v.validateAction(locale, p.Tag, i, a, tags, modules)
			}
		}

		// Translations must cover the base graph so a saved position in one
		// locale resumes in any other.
		if locale != game.BaseLang {
			for tag := range baseTags {
				if _, ok := tags[tag]; !ok {
					v.addError(fmt.Sprintf("locale %s is missing paragraph %q from the base language", locale, tag))
				}
			}
		}
	}
}

func (v *StoryValidator) validateAction(locale, tag string, idx int, a story.Action, tags, modules map[string]struct{}) {
	where := fmt.Sprintf("locale %s: paragraph %q action %d", locale, tag, idx)

	if len(a.Segments) == 0 && len(a.Switches) == 0 {
		v.addError(where + " has no segments and no switches")
	}

	for _, seg := range a.Segments {
		if seg.Call != nil {
			v.validateCall(where, seg.Call, modules)
		}
	}

	for j, sw := range a.Switches {
		if sw.Text == "" {
			v.addError(fmt.Sprintf("%s switch %d has no text", where, j))
		}
		if sw.Target != "" {
			if _, ok := tags[sw.Target]; !ok {
				v.addError(fmt.Sprintf("%s switch %d targets unknown paragraph %q", where, j, sw.Target))
			}
		}
		if sw.Cond != nil {
			v.validateCall(where, sw.Cond, modules)
		}
	}
}

func (v *StoryValidator) validateCall(where string, c *story.Call, modules map[string]struct{}) {
	if c.Module == "" || c.Function == "" {
		v.addError(where + " has a directive without module or function")
		return
	}
	if len(modules) > 0 {
		if _, ok := modules[c.Module]; !ok {
			v.addError(fmt.Sprintf("%s references undeclared plugin module %q", where, c.Module))
		}
	}
}

func (v *StoryValidator) validatePluginFile(game *story.Game, baseDir, module string) {
	dir := game.Plugins.Dir
	if dir == "" {
		dir = "plugins"
	}
	path := filepath.Join(baseDir, dir, module+".lua")
	if _, err := os.Stat(path); err != nil {
		v.addError(fmt.Sprintf("plugin module %q not found at %s", module, path))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
