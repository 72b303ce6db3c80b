package traversal

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// enumTypes are rendered as Type.value instead of Type(value).
var enumTypes = map[string]bool{
	"T": true, "Cardinality": true, "Column": true, "Order": true,
	"Pop": true, "Scope": true, "Direction": true,
}

// String renders the traversal in Gremlin's textual form, e.g. g.V().has("name", "x").
// It is meant for logs and error messages, not for submission.
func (a *Action) String() string {
	if a == nil {
		return "<nil>"
	}
	var chain []*Action
	for n := a; n != nil && !n.root; n = n.previous {
		chain = append(chain, n)
	}
	slices.Reverse(chain)

	prefix := "g"
	if a.SessionID() == "" && (a.src == nil || a.src.executor == nil) {
		prefix = "__"
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, n := range chain {
		b.WriteByte('.')
		writeStep(&b, n.step)
	}
	return b.String()
}

// String renders the program the same way an anonymous traversal is rendered.
func (p *Program) String() string {
	var b strings.Builder
	b.WriteString("__")
	for _, s := range slices.Concat(p.configuration, p.steps) {
		b.WriteByte('.')
		writeStep(&b, s)
	}
	return b.String()
}

func writeStep(b *strings.Builder, s Step) {
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, arg := range s.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatValue(arg))
	}
	if len(s.Params) > 0 {
		if len(s.Args) > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatParams(s.Params))
	}
	b.WriteByte(')')
}

func formatParams(params map[string]any) string {
	parts := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, k+": "+formatValue(params[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case *Action:
		return val.String()
	case *Program:
		return val.String()
	case TypedValue:
		if val.Type == "" {
			return formatValue(val.Value)
		}
		if enumTypes[val.Type] {
			return fmt.Sprintf("%s.%v", val.Type, val.Value)
		}
		return fmt.Sprintf("%s(%s)", val.Type, formatValue(val.Value))
	case Predicate:
		return fmt.Sprintf("%s.%s(%s)", val.Namespace, val.Name, formatValue(val.Value))
	case WithOptions:
		return formatValue(val.Value)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		return formatParams(val)
	default:
		return fmt.Sprint(val)
	}
}
