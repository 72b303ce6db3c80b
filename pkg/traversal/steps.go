package traversal

// Typed helpers over Step for the steps of the definitions table.

// Start steps.

func (a *Action) V(args ...any) *Action      { return a.Step("V", args...) }
func (a *Action) E(args ...any) *Action      { return a.Step("E", args...) }
func (a *Action) AddV(args ...any) *Action   { return a.Step("addV", args...) }
func (a *Action) AddE(args ...any) *Action   { return a.Step("addE", args...) }
func (a *Action) Inject(args ...any) *Action { return a.Step("inject", args...) }
func (a *Action) MergeV(args ...any) *Action { return a.Step("mergeV", args...) }
func (a *Action) MergeE(args ...any) *Action { return a.Step("mergeE", args...) }

// Configuration steps. They must precede every regular step.

func (a *Action) WithSideEffect(args ...any) *Action    { return a.Step("withSideEffect", args...) }
func (a *Action) WithSack(args ...any) *Action          { return a.Step("withSack", args...) }
func (a *Action) WithBulk(args ...any) *Action          { return a.Step("withBulk", args...) }
func (a *Action) WithPath(args ...any) *Action          { return a.Step("withPath", args...) }
func (a *Action) WithStrategies(args ...any) *Action    { return a.Step("withStrategies", args...) }
func (a *Action) WithoutStrategies(args ...any) *Action { return a.Step("withoutStrategies", args...) }

// Regular steps.

func (a *Action) Aggregate(args ...any) *Action  { return a.Step("aggregate", args...) }
func (a *Action) And(args ...any) *Action        { return a.Step("and", args...) }
func (a *Action) As(args ...any) *Action         { return a.Step("as", args...) }
func (a *Action) Barrier(args ...any) *Action    { return a.Step("barrier", args...) }
func (a *Action) Both(args ...any) *Action       { return a.Step("both", args...) }
func (a *Action) BothE(args ...any) *Action      { return a.Step("bothE", args...) }
func (a *Action) BothV(args ...any) *Action      { return a.Step("bothV", args...) }
func (a *Action) By(args ...any) *Action         { return a.Step("by", args...) }
func (a *Action) Cap(args ...any) *Action        { return a.Step("cap", args...) }
func (a *Action) Choose(args ...any) *Action     { return a.Step("choose", args...) }
func (a *Action) Coalesce(args ...any) *Action   { return a.Step("coalesce", args...) }
func (a *Action) Constant(args ...any) *Action   { return a.Step("constant", args...) }
func (a *Action) Count(args ...any) *Action      { return a.Step("count", args...) }
func (a *Action) Dedup(args ...any) *Action      { return a.Step("dedup", args...) }
func (a *Action) Drop(args ...any) *Action       { return a.Step("drop", args...) }
func (a *Action) ElementMap(args ...any) *Action { return a.Step("elementMap", args...) }
func (a *Action) Emit(args ...any) *Action       { return a.Step("emit", args...) }
func (a *Action) Fail(args ...any) *Action       { return a.Step("fail", args...) }
func (a *Action) Fold(args ...any) *Action       { return a.Step("fold", args...) }
func (a *Action) From(args ...any) *Action       { return a.Step("from", args...) }
func (a *Action) Group(args ...any) *Action      { return a.Step("group", args...) }
func (a *Action) GroupCount(args ...any) *Action { return a.Step("groupCount", args...) }
func (a *Action) Has(args ...any) *Action        { return a.Step("has", args...) }
func (a *Action) HasID(args ...any) *Action      { return a.Step("hasId", args...) }
func (a *Action) HasLabel(args ...any) *Action   { return a.Step("hasLabel", args...) }
func (a *Action) HasNot(args ...any) *Action     { return a.Step("hasNot", args...) }
func (a *Action) ID(args ...any) *Action         { return a.Step("id", args...) }
func (a *Action) Identity(args ...any) *Action   { return a.Step("identity", args...) }
func (a *Action) In(args ...any) *Action         { return a.Step("in", args...) }
func (a *Action) InE(args ...any) *Action        { return a.Step("inE", args...) }
func (a *Action) InV(args ...any) *Action        { return a.Step("inV", args...) }
func (a *Action) Is(args ...any) *Action         { return a.Step("is", args...) }
func (a *Action) Key(args ...any) *Action        { return a.Step("key", args...) }
func (a *Action) Label(args ...any) *Action      { return a.Step("label", args...) }
func (a *Action) Limit(args ...any) *Action      { return a.Step("limit", args...) }
func (a *Action) Local(args ...any) *Action      { return a.Step("local", args...) }
func (a *Action) Math(args ...any) *Action       { return a.Step("math", args...) }
func (a *Action) Max(args ...any) *Action        { return a.Step("max", args...) }
func (a *Action) Mean(args ...any) *Action       { return a.Step("mean", args...) }
func (a *Action) Min(args ...any) *Action        { return a.Step("min", args...) }
func (a *Action) Not(args ...any) *Action        { return a.Step("not", args...) }
func (a *Action) Option(args ...any) *Action     { return a.Step("option", args...) }
func (a *Action) Optional(args ...any) *Action   { return a.Step("optional", args...) }
func (a *Action) Or(args ...any) *Action         { return a.Step("or", args...) }
func (a *Action) Order(args ...any) *Action      { return a.Step("order", args...) }
func (a *Action) OtherV(args ...any) *Action     { return a.Step("otherV", args...) }
func (a *Action) Out(args ...any) *Action        { return a.Step("out", args...) }
func (a *Action) OutE(args ...any) *Action       { return a.Step("outE", args...) }
func (a *Action) OutV(args ...any) *Action       { return a.Step("outV", args...) }
func (a *Action) Path(args ...any) *Action       { return a.Step("path", args...) }
func (a *Action) Profile(args ...any) *Action    { return a.Step("profile", args...) }
func (a *Action) Project(args ...any) *Action    { return a.Step("project", args...) }
func (a *Action) Properties(args ...any) *Action { return a.Step("properties", args...) }
func (a *Action) Property(args ...any) *Action   { return a.Step("property", args...) }
func (a *Action) Range(args ...any) *Action      { return a.Step("range", args...) }
func (a *Action) Repeat(args ...any) *Action     { return a.Step("repeat", args...) }
func (a *Action) Sample(args ...any) *Action     { return a.Step("sample", args...) }
func (a *Action) Select(args ...any) *Action     { return a.Step("select", args...) }
func (a *Action) SideEffect(args ...any) *Action { return a.Step("sideEffect", args...) }
func (a *Action) SimplePath(args ...any) *Action { return a.Step("simplePath", args...) }
func (a *Action) Skip(args ...any) *Action       { return a.Step("skip", args...) }
func (a *Action) Sum(args ...any) *Action        { return a.Step("sum", args...) }
func (a *Action) Tail(args ...any) *Action       { return a.Step("tail", args...) }
func (a *Action) Times(args ...any) *Action      { return a.Step("times", args...) }
func (a *Action) To(args ...any) *Action         { return a.Step("to", args...) }
func (a *Action) Unfold(args ...any) *Action     { return a.Step("unfold", args...) }
func (a *Action) Union(args ...any) *Action      { return a.Step("union", args...) }
func (a *Action) Until(args ...any) *Action      { return a.Step("until", args...) }
func (a *Action) Value(args ...any) *Action      { return a.Step("value", args...) }
func (a *Action) ValueMap(args ...any) *Action   { return a.Step("valueMap", args...) }
func (a *Action) Values(args ...any) *Action     { return a.Step("values", args...) }
func (a *Action) Where(args ...any) *Action      { return a.Step("where", args...) }
func (a *Action) With(args ...any) *Action       { return a.Step("with", args...) }
