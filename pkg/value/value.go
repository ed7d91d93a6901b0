package value

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Type enumerates the kinds a Value can hold.
type Type int

const (
	TypeUnit Type = iota
	TypeBool
	TypeNumber
	TypeText
)

func (t Type) String() string {
	switch t {
	case TypeUnit:
		return "unit"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	case TypeText:
		return "text"
	default:
		return "unknown"
	}
}

// Value is the tagged union exchanged across the plugin boundary in both
// directions. Every operation that produces a Value is total: failed lookups
// and faulted calls degrade to Unit rather than surfacing an error.
type Value struct {
	typ  Type
	b    bool
	n    int64
	text string
}

// Unit is the zero Value.
var Unit = Value{}

func Bool(b bool) Value    { return Value{typ: TypeBool, b: b} }
func Number(n int64) Value { return Value{typ: TypeNumber, n: n} }
func Text(s string) Value  { return Value{typ: TypeText, text: s} }

func (v Value) Type() Type   { return v.typ }
func (v Value) IsUnit() bool { return v.typ == TypeUnit }

// String renders the Value with the fixed display coercion table:
// Unit -> "", Bool -> "true"/"false", Number -> base-10 decimal,
// Text -> verbatim. Number formatting is deliberately locale-independent.
func (v Value) String() string {
	switch v.typ {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeNumber:
		return strconv.FormatInt(v.n, 10)
	case TypeText:
		return v.text
	default:
		return ""
	}
}

// Truthy reports whether the Value enables a switch: any non-Unit value
// enables unless it is explicitly Bool(false); Unit disables.
func (v Value) Truthy() bool {
	switch v.typ {
	case TypeUnit:
		return false
	case TypeBool:
		return v.b
	default:
		return true
	}
}

// AsBool promotes the Value to a bool: Unit -> false, Number -> n != 0,
// Text -> non-empty.
func (v Value) AsBool() bool {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeNumber:
		return v.n != 0
	case TypeText:
		return len(v.text) > 0
	default:
		return false
	}
}

// AsNumber promotes the Value to an int64: Unit -> 0, Bool -> 0 or 1,
// Text -> parsed decimal or 0.
func (v Value) AsNumber() int64 {
	switch v.typ {
	case TypeBool:
		if v.b {
			return 1
		}
		return 0
	case TypeNumber:
		return v.n
	case TypeText:
		n, err := strconv.ParseInt(v.text, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// AsText is an alias for String; it exists to mirror AsBool/AsNumber.
func (v Value) AsText() string { return v.String() }

// jsonValue is the wire shape of a Value. Records embed history actions whose
// segments resolved to Values, so the encoding must round-trip losslessly.
type jsonValue struct {
	Type   string  `json:"type"`
	Bool   *bool   `json:"bool,omitempty"`
	Number *int64  `json:"number,omitempty"`
	Text   *string `json:"text,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	jv := jsonValue{Type: v.typ.String()}
	switch v.typ {
	case TypeBool:
		jv.Bool = &v.b
	case TypeNumber:
		jv.Number = &v.n
	case TypeText:
		jv.Text = &v.text
	}
	return json.Marshal(jv)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	switch jv.Type {
	case "unit", "":
		*v = Unit
	case "bool":
		if jv.Bool == nil {
			return fmt.Errorf("value: bool payload missing")
		}
		*v = Bool(*jv.Bool)
	case "number":
		if jv.Number == nil {
			return fmt.Errorf("value: number payload missing")
		}
		*v = Number(*jv.Number)
	case "text":
		if jv.Text == nil {
			return fmt.Errorf("value: text payload missing")
		}
		*v = Text(*jv.Text)
	default:
		return fmt.Errorf("value: unknown type %q", jv.Type)
	}
	return nil
}
