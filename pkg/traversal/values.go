package traversal

// TypedValue is an argument that carries a wire type annotation.
// An empty Type means the value is sent as is.
type TypedValue struct {
	Type  string
	Value any
}

// Typed wraps value with a wire type tag such as "Int64" or "UUID".
func Typed(typ string, value any) TypedValue {
	return TypedValue{Type: typ, Value: value}
}

// Predicate is a comparison passed to filtering steps such as has or is.
type Predicate struct {
	Namespace string
	Name      string
	Value     any
	// Type tags the predicate value on the wire when set.
	Type string
}

// Typed returns a copy of the predicate whose value is sent with the given type tag.
func (p Predicate) Typed(typ string) Predicate {
	p.Type = typ
	return p
}

// WithOptions is a reserved option token used with the with() modulator.
type WithOptions struct {
	Value any
}

type predicates struct{ namespace string }

func (n predicates) build(name string, value any) Predicate {
	return Predicate{Namespace: n.namespace, Name: name, Value: value}
}

// P builds the general purpose predicates.
var P = predicates{namespace: "P"}

func (n predicates) Eq(v any) Predicate         { return n.build("eq", v) }
func (n predicates) Neq(v any) Predicate        { return n.build("neq", v) }
func (n predicates) Lt(v any) Predicate         { return n.build("lt", v) }
func (n predicates) Lte(v any) Predicate        { return n.build("lte", v) }
func (n predicates) Gt(v any) Predicate         { return n.build("gt", v) }
func (n predicates) Gte(v any) Predicate        { return n.build("gte", v) }
func (n predicates) Inside(a, b any) Predicate  { return n.build("inside", []any{a, b}) }
func (n predicates) Outside(a, b any) Predicate { return n.build("outside", []any{a, b}) }
func (n predicates) Between(a, b any) Predicate { return n.build("between", []any{a, b}) }
func (n predicates) Within(v ...any) Predicate  { return n.build("within", v) }
func (n predicates) Without(v ...any) Predicate { return n.build("without", v) }

type textPredicates struct{ predicates }

// TextP builds string matching predicates.
var TextP = textPredicates{predicates{namespace: "TextP"}}

func (n textPredicates) Containing(s string) Predicate      { return n.build("containing", s) }
func (n textPredicates) NotContaining(s string) Predicate   { return n.build("notContaining", s) }
func (n textPredicates) StartingWith(s string) Predicate    { return n.build("startingWith", s) }
func (n textPredicates) NotStartingWith(s string) Predicate { return n.build("notStartingWith", s) }
func (n textPredicates) EndingWith(s string) Predicate      { return n.build("endingWith", s) }
func (n textPredicates) NotEndingWith(s string) Predicate   { return n.build("notEndingWith", s) }

// Enumeration tokens. They travel as typed values tagged with the enum name.
var (
	T = struct{ ID, Key, Label, Value TypedValue }{
		ID:    Typed("T", "id"),
		Key:   Typed("T", "key"),
		Label: Typed("T", "label"),
		Value: Typed("T", "value"),
	}

	Cardinality = struct{ List, Set, Single TypedValue }{
		List:   Typed("Cardinality", "list"),
		Set:    Typed("Cardinality", "set"),
		Single: Typed("Cardinality", "single"),
	}

	Column = struct{ Keys, Values TypedValue }{
		Keys:   Typed("Column", "keys"),
		Values: Typed("Column", "values"),
	}

	Order = struct{ Asc, Desc, Shuffle TypedValue }{
		Asc:     Typed("Order", "asc"),
		Desc:    Typed("Order", "desc"),
		Shuffle: Typed("Order", "shuffle"),
	}

	Pop = struct{ All, First, Last, Mixed TypedValue }{
		All:   Typed("Pop", "all"),
		First: Typed("Pop", "first"),
		Last:  Typed("Pop", "last"),
		Mixed: Typed("Pop", "mixed"),
	}

	Scope = struct{ Global, Local TypedValue }{
		Global: Typed("Scope", "global"),
		Local:  Typed("Scope", "local"),
	}

	Direction = struct{ In, Out, Both TypedValue }{
		In:   Typed("Direction", "IN"),
		Out:  Typed("Direction", "OUT"),
		Both: Typed("Direction", "BOTH"),
	}

	// WithOption tokens for valueMap and index modulation.
	WithOption = struct {
		Tokens, None, IDs, Labels, Keys, Values, All, Indexer, List, Map WithOptions
	}{
		Tokens:  WithOptions{"~tinkerpop.valueMap.tokens"},
		None:    WithOptions{0},
		IDs:     WithOptions{1},
		Labels:  WithOptions{2},
		Keys:    WithOptions{4},
		Values:  WithOptions{8},
		All:     WithOptions{15},
		Indexer: WithOptions{"~tinkerpop.index.indexer"},
		List:    WithOptions{0},
		Map:     WithOptions{1},
	}
)
