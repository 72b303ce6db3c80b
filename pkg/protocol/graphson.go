package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Vertex is a decoded g:Vertex.
type Vertex struct {
	ID    any
	Label string
}

// Edge is a decoded g:Edge.
type Edge struct {
	ID        any
	Label     string
	InV       any
	InVLabel  string
	OutV      any
	OutVLabel string
}

// VertexProperty is a decoded g:VertexProperty.
type VertexProperty struct {
	ID    any
	Label string
	Value any
}

// Property is a decoded g:Property.
type Property struct {
	Key   string
	Value any
}

// Path is a decoded g:Path.
type Path struct {
	Labels  []any
	Objects []any
}

// Traverser is a decoded g:Traverser: a value standing for Bulk results.
type Traverser struct {
	Bulk  int64
	Value any
}

// MaxExpandedResults caps how many values traverser and bulk set expansion may produce.
const MaxExpandedResults = 1 << 20

type decodeFunc func(value any) (any, error)

var decoders map[string]decodeFunc

func init() {
	decoders = map[string]decodeFunc{
		"g:List":             decodeList,
		"g:Set":              decodeList,
		"g:Map":              decodeMap,
		"g:BulkSet":          decodeBulkSet,
		"g:Int32":            decodeInt32,
		"g:Int64":            decodeInt64,
		"g:Float":            decodeFloat,
		"g:Double":           decodeFloat,
		"g:UUID":             decodeUUID,
		"g:Date":             decodeTime,
		"g:Timestamp":        decodeTime,
		"g:Vertex":           decodeVertex,
		"g:Edge":             decodeEdge,
		"g:VertexProperty":   decodeVertexProperty,
		"g:Property":         decodeProperty,
		"g:Path":             decodePath,
		"g:Traverser":        decodeTraverser,
		"g:T":                decodeString,
		"g:Direction":        decodeString,
		"g:TraversalMetrics": Decode,
		"g:Metrics":          Decode,
	}
}

// Decode turns a GraphSON v3 value, as produced by Unmarshal, into Go values.
// Lists and sets become []any, maps become map[string]any and numbers keep the width
// of their tag.
func Decode(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case json.Number:
		return decodeNumber(val)
	case float64, int64, int:
		return val, nil
	case []any:
		return decodeList(val)
	case map[string]any:
		typ, ok := val["@type"].(string)
		if !ok {
			return nil, &UnknownTypeError{Value: val}
		}
		decode, ok := decoders[typ]
		if !ok {
			return nil, &UnknownTypeError{Type: typ, Value: val["@value"]}
		}
		out, err := decode(val["@value"])
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", typ, err)
		}
		return out, nil
	default:
		return nil, &UnknownTypeError{Value: val}
	}
}

// ExpandTraversers replaces every Traverser in results with Bulk copies of its value.
// It fails with ErrProtocol when the expansion would exceed MaxExpandedResults.
func ExpandTraversers(results []any) ([]any, error) {
	total := int64(0)
	for _, r := range results {
		n := int64(1)
		if t, ok := r.(Traverser); ok {
			n = t.Bulk
		}
		if total += n; total > MaxExpandedResults {
			return nil, fmt.Errorf("%w: traversers expand to more than %d results", ErrProtocol, MaxExpandedResults)
		}
	}

	out := make([]any, 0, total)
	for _, r := range results {
		t, ok := r.(Traverser)
		if !ok {
			out = append(out, r)
			continue
		}
		for i := int64(0); i < t.Bulk; i++ {
			out = append(out, t.Value)
		}
	}
	return out, nil
}

func decodeNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}

func decodeList(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []any{}, nil
		}
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	out := make([]any, len(items))
	for i, item := range items {
		decoded, err := Decode(item)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

// decodeMap decodes a flat [k1, v1, k2, v2, ...] list.
func decodeMap(v any) (any, error) {
	items, ok := v.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, fmt.Errorf("expected a key/value list, got %T", v)
	}
	out := make(map[string]any, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, err := Decode(items[i])
		if err != nil {
			return nil, err
		}
		name, err := mapKey(key)
		if err != nil {
			return nil, err
		}
		value, err := Decode(items[i+1])
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func mapKey(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case int32:
		return strconv.FormatInt(int64(k), 10), nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(k), nil
	case uuid.UUID:
		return k.String(), nil
	default:
		return "", &UnknownMapKeyError{Key: key}
	}
}

func decodeBulkSet(v any) (any, error) {
	items, ok := v.([]any)
	if !ok || len(items)%2 != 0 {
		return nil, fmt.Errorf("expected a value/bulk list, got %T", v)
	}
	var out []any
	total := int64(0)
	for i := 0; i < len(items); i += 2 {
		value, err := Decode(items[i])
		if err != nil {
			return nil, err
		}
		bulk, err := decodeBulk(items[i+1])
		if err != nil {
			return nil, err
		}
		if total += bulk; total > MaxExpandedResults {
			return nil, fmt.Errorf("%w: bulk set expands to more than %d values", ErrProtocol, MaxExpandedResults)
		}
		for j := int64(0); j < bulk; j++ {
			out = append(out, value)
		}
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func decodeBulk(v any) (int64, error) {
	decoded, err := Decode(v)
	if err != nil {
		return 0, err
	}
	var bulk int64
	switch b := decoded.(type) {
	case int64:
		bulk = b
	case int32:
		bulk = int64(b)
	default:
		return 0, fmt.Errorf("invalid bulk %v", decoded)
	}
	if bulk < 0 || bulk > MaxExpandedResults {
		return 0, fmt.Errorf("%w: bulk %d out of range", ErrProtocol, bulk)
	}
	return bulk, nil
}

func number(v any) (json.Number, error) {
	switch n := v.(type) {
	case json.Number:
		return n, nil
	case float64:
		return json.Number(strconv.FormatFloat(n, 'g', -1, 64)), nil
	case string:
		// NaN and Infinity travel as strings.
		return json.Number(n), nil
	default:
		return "", fmt.Errorf("expected a number, got %T", v)
	}
}

func decodeInt32(v any) (any, error) {
	n, err := number(v)
	if err != nil {
		return nil, err
	}
	i, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		return nil, err
	}
	return int32(i), nil
}

func decodeInt64(v any) (any, error) {
	n, err := number(v)
	if err != nil {
		return nil, err
	}
	return n.Int64()
}

func decodeFloat(v any) (any, error) {
	n, err := number(v)
	if err != nil {
		return nil, err
	}
	switch n.String() {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return n.Float64()
}

func decodeUUID(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return uuid.Parse(s)
}

func decodeTime(v any) (any, error) {
	n, err := number(v)
	if err != nil {
		return nil, err
	}
	ms, err := n.Int64()
	if err != nil {
		return nil, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func decodeString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func fields(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return m, nil
}

func optional(m map[string]any, key string) (any, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return Decode(v)
}

func label(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func decodeVertex(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	id, err := optional(m, "id")
	if err != nil {
		return nil, err
	}
	return Vertex{ID: id, Label: label(m, "label")}, nil
}

func decodeEdge(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	e := Edge{Label: label(m, "label"), InVLabel: label(m, "inVLabel"), OutVLabel: label(m, "outVLabel")}
	if e.ID, err = optional(m, "id"); err != nil {
		return nil, err
	}
	if e.InV, err = optional(m, "inV"); err != nil {
		return nil, err
	}
	if e.OutV, err = optional(m, "outV"); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeVertexProperty(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	p := VertexProperty{Label: label(m, "label")}
	if p.ID, err = optional(m, "id"); err != nil {
		return nil, err
	}
	if p.Value, err = optional(m, "value"); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeProperty(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	value, err := optional(m, "value")
	if err != nil {
		return nil, err
	}
	return Property{Key: label(m, "key"), Value: value}, nil
}

func decodePath(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	var p Path
	labels, err := optional(m, "labels")
	if err != nil {
		return nil, err
	}
	objects, err := optional(m, "objects")
	if err != nil {
		return nil, err
	}
	p.Labels, _ = labels.([]any)
	p.Objects, _ = objects.([]any)
	return p, nil
}

func decodeTraverser(v any) (any, error) {
	m, err := fields(v)
	if err != nil {
		return nil, err
	}
	bulk := int64(1)
	if raw, ok := m["bulk"]; ok {
		if bulk, err = decodeBulk(raw); err != nil {
			return nil, err
		}
	}
	value, err := optional(m, "value")
	if err != nil {
		return nil, err
	}
	return Traverser{Bulk: bulk, Value: value}, nil
}
