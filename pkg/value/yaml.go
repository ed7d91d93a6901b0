package value

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a story-package literal into a Value. Literals are
// plain YAML scalars: null -> Unit, booleans, integers, strings.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("value: expected scalar, got %v", node.Kind)
	}
	switch node.Tag {
	case "!!null":
		*v = Unit
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return fmt.Errorf("value: bad bool %q: %w", node.Value, err)
		}
		*v = Bool(b)
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("value: bad number %q: %w", node.Value, err)
		}
		*v = Number(n)
	case "!!str":
		*v = Text(node.Value)
	default:
		return fmt.Errorf("value: unsupported literal tag %s", node.Tag)
	}
	return nil
}
