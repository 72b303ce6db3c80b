package protocol

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, doc string) (any, error) {
	t.Helper()
	var raw any
	require.NoError(t, Unmarshal([]byte(doc), &raw))
	return Decode(raw)
}

func TestDecode_Scalars(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want any
	}{
		{"string", `"x"`, "x"},
		{"bool", `true`, true},
		{"null", `null`, nil},
		{"untagged integer", `7`, int64(7)},
		{"untagged float", `1.5`, 1.5},
		{"int32", `{"@type":"g:Int32","@value":12}`, int32(12)},
		{"int64", `{"@type":"g:Int64","@value":9007199254740993}`, int64(9007199254740993)},
		{"double", `{"@type":"g:Double","@value":2.5}`, 2.5},
		{"infinity", `{"@type":"g:Double","@value":"Infinity"}`, math.Inf(1)},
		{"T", `{"@type":"g:T","@value":"label"}`, "label"},
		{"direction", `{"@type":"g:Direction","@value":"OUT"}`, "OUT"},
		{"date", `{"@type":"g:Date","@value":1481750076295}`, time.UnixMilli(1481750076295).UTC()},
		{"uuid", `{"@type":"g:UUID","@value":"41d2e28a-20a4-4ab0-b379-d810dede3786"}`, uuid.MustParse("41d2e28a-20a4-4ab0-b379-d810dede3786")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeJSON(t, tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Collections(t *testing.T) {
	got, err := decodeJSON(t, `{"@type":"g:List","@value":[
		{"@type":"g:Int32","@value":1},
		{"@type":"g:Set","@value":["a","b"]},
		{"@type":"g:Map","@value":[
			"name","marko",
			{"@type":"g:T","@value":"id"},{"@type":"g:Int64","@value":1},
			{"@type":"g:Int32","@value":2},"two"
		]}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, []any{
		int32(1),
		[]any{"a", "b"},
		map[string]any{"name": "marko", "id": int64(1), "2": "two"},
	}, got)
}

func TestDecode_BulkSet(t *testing.T) {
	got, err := decodeJSON(t, `{"@type":"g:BulkSet","@value":["a",{"@type":"g:Int64","@value":2},"b",{"@type":"g:Int64","@value":1}]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "a", "b"}, got)
}

func TestDecode_Elements(t *testing.T) {
	t.Run("vertex", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:Vertex","@value":{"id":{"@type":"g:Int64","@value":1},"label":"person"}}`)
		require.NoError(t, err)
		assert.Equal(t, Vertex{ID: int64(1), Label: "person"}, got)
	})

	t.Run("edge", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:Edge","@value":{
			"id":{"@type":"g:Int32","@value":13},"label":"develops",
			"inVLabel":"software","outVLabel":"person",
			"inV":{"@type":"g:Int32","@value":10},"outV":{"@type":"g:Int32","@value":1}}}`)
		require.NoError(t, err)
		assert.Equal(t, Edge{
			ID: int32(13), Label: "develops",
			InV: int32(10), InVLabel: "software",
			OutV: int32(1), OutVLabel: "person",
		}, got)
	})

	t.Run("vertex property", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:VertexProperty","@value":{"id":{"@type":"g:Int64","@value":0},"value":"marko","label":"name"}}`)
		require.NoError(t, err)
		assert.Equal(t, VertexProperty{ID: int64(0), Label: "name", Value: "marko"}, got)
	})

	t.Run("property", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:Property","@value":{"key":"since","value":{"@type":"g:Int32","@value":2009}}}`)
		require.NoError(t, err)
		assert.Equal(t, Property{Key: "since", Value: int32(2009)}, got)
	})

	t.Run("path", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:Path","@value":{
			"labels":{"@type":"g:List","@value":[{"@type":"g:Set","@value":["a"]},{"@type":"g:Set","@value":[]}]},
			"objects":{"@type":"g:List","@value":["x","y"]}}}`)
		require.NoError(t, err)
		assert.Equal(t, Path{Labels: []any{[]any{"a"}, []any{}}, Objects: []any{"x", "y"}}, got)
	})

	t.Run("traverser", func(t *testing.T) {
		got, err := decodeJSON(t, `{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":3},"value":"v"}}`)
		require.NoError(t, err)
		assert.Equal(t, Traverser{Bulk: 3, Value: "v"}, got)
	})
}

func TestDecode_Errors(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:Nope","@value":1}`)
		var typeErr *UnknownTypeError
		require.True(t, errors.As(err, &typeErr))
		assert.Equal(t, "g:Nope", typeErr.Type)
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("untagged object", func(t *testing.T) {
		_, err := decodeJSON(t, `{"a":1}`)
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("nested unknown type", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:List","@value":[{"@type":"g:Nope","@value":1}]}`)
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("unusable map key", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:Map","@value":[{"@type":"g:Vertex","@value":{"id":1,"label":"x"}},"v"]}`)
		var keyErr *UnknownMapKeyError
		require.True(t, errors.As(err, &keyErr))
		assert.ErrorIs(t, err, ErrUnknownMapKey)
		assert.ErrorIs(t, err, ErrInternalClient)
	})

	t.Run("odd map list", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:Map","@value":["k"]}`)
		assert.Error(t, err)
	})
}

func TestExpandTraversers(t *testing.T) {
	got, err := ExpandTraversers([]any{
		Traverser{Bulk: 2, Value: "a"},
		"b",
		Traverser{Bulk: 0, Value: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "a", "b"}, got)

	t.Run("total bulk is capped", func(t *testing.T) {
		_, err := ExpandTraversers([]any{
			Traverser{Bulk: MaxExpandedResults, Value: "a"},
			Traverser{Bulk: 1, Value: "b"},
		})
		assert.ErrorIs(t, err, ErrProtocol)
	})
}

func TestDecode_BulkLimits(t *testing.T) {
	t.Run("traverser bulk above the cap", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":9223372036854775807},"value":"a"}}`)
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("negative bulk", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:Traverser","@value":{"bulk":{"@type":"g:Int64","@value":-1},"value":"a"}}`)
		assert.ErrorIs(t, err, ErrProtocol)
	})

	t.Run("bulk set total above the cap", func(t *testing.T) {
		_, err := decodeJSON(t, `{"@type":"g:BulkSet","@value":["a",{"@type":"g:Int64","@value":1048576},"b",{"@type":"g:Int64","@value":1}]}`)
		assert.ErrorIs(t, err, ErrProtocol)
	})
}
