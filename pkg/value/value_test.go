package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestString_CoercionTable(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"unit is empty", Unit, ""},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"number decimal", Number(42), "42"},
		{"negative number", Number(-7), "-7"},
		{"text verbatim", Text("Hello"), "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestTruthy_SwitchEnablement(t *testing.T) {
	assert.False(t, Unit.Truthy(), "Unit disables")
	assert.False(t, Bool(false).Truthy(), "explicit false disables")
	assert.True(t, Bool(true).Truthy())
	assert.True(t, Number(0).Truthy(), "any non-Unit non-false enables")
	assert.True(t, Text("").Truthy(), "any non-Unit non-false enables")
}

func TestPromotions(t *testing.T) {
	assert.Equal(t, int64(1), Bool(true).AsNumber())
	assert.Equal(t, int64(0), Unit.AsNumber())
	assert.Equal(t, int64(12), Text("12").AsNumber())
	assert.Equal(t, int64(0), Text("twelve").AsNumber())
	assert.True(t, Number(-1).AsBool())
	assert.False(t, Number(0).AsBool())
	assert.True(t, Text("x").AsBool())
	assert.False(t, Text("").AsBool())
}

func TestJSONRoundTrip(t *testing.T) {
	for _, v := range []Value{Unit, Bool(false), Bool(true), Number(-3), Text("café")} {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var got Value
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, v, got)
	}
}

func TestUnmarshalYAML(t *testing.T) {
	// Decode through the node tree: yaml.v3 skips custom unmarshalers for
	// null sequence elements, so callers hand nodes in one by one.
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(`[null, true, 10, sword]`), &doc))
	require.Len(t, doc.Content, 1)
	seq := doc.Content[0]

	want := []Value{Unit, Bool(true), Number(10), Text("sword")}
	require.Len(t, seq.Content, len(want))
	for i, n := range seq.Content {
		var v Value
		require.NoError(t, v.UnmarshalYAML(n))
		assert.Equal(t, want[i], v)
	}

	var v Value
	assert.Error(t, v.UnmarshalYAML(seq), "non-scalar nodes are rejected")
}

func TestUnmarshalJSON_Malformed(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"type":"bool"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"galaxy"}`), &v))
}
