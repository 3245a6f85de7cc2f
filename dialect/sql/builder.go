package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/velox-timescaledb/dialect"
)

// Querier wraps the basic Query method that is implemented
// by the different builders in this file.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// state wraps all methods for setting and getting
// update state between all queries in the query tree.
type state interface {
	Dialect() string
	SetDialect(string)
	Total() int
	SetTotal(int)
}

// Builder is the base query builder for the sql dsl.
type Builder struct {
	sb      *strings.Builder // underlying builder.
	dialect string           // configured dialect.
	args    []any            // query parameters.
	total   int              // total number of parameters in query tree.
}

// WriteString wraps the Buffer.WriteString to make it chainable with other methods.
func (b *Builder) WriteString(s string) *Builder {
	if b.sb == nil {
		b.sb = &strings.Builder{}
	}
	b.sb.WriteString(s)
	return b
}

// WriteByte wraps the Buffer.WriteByte to make it chainable with other methods.
func (b *Builder) WriteByte(c byte) *Builder {
	if b.sb == nil {
		b.sb = &strings.Builder{}
	}
	b.sb.WriteByte(c)
	return b
}

// Len returns the number of accumulated bytes.
func (b *Builder) Len() int {
	if b.sb == nil {
		return 0
	}
	return b.sb.Len()
}

// String returns the accumulated string.
func (b *Builder) String() string {
	if b.sb == nil {
		return ""
	}
	return b.sb.String()
}

// Quote quotes the given identifier with the characters based
// on the configured dialect. It defaults to ANSI double quotes.
func (b *Builder) Quote(ident string) string {
	if b.mysql() {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Ident appends the given string as an identifier. Qualified names
// ("table.column") are quoted part by part, and strings that are already
// expressions (function calls, quoted names, literals) are written as is.
// Any other string is quoted, including names with spaces.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "":
	case s == "*":
		b.WriteString(s)
	case isExpr(s):
		b.WriteString(s)
	case strings.Contains(s, "."):
		for i, part := range strings.Split(s, ".") {
			if i > 0 {
				b.WriteByte('.')
			}
			if part == "*" {
				b.WriteString(part)
				continue
			}
			b.WriteString(b.Quote(part))
		}
	default:
		b.WriteString(b.Quote(s))
	}
	return b
}

// IdentComma calls Ident on all arguments and adds a comma between them.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s[i])
	}
	return b
}

// Arg appends an input argument to the builder.
func (b *Builder) Arg(a any) *Builder {
	if r, ok := a.(*raw); ok {
		b.WriteString(r.s)
		return b
	}
	b.total++
	b.args = append(b.args, a)
	if b.postgres() {
		b.WriteString("$" + strconv.Itoa(b.total))
	} else {
		b.WriteByte('?')
	}
	return b
}

// Args appends a list of arguments to the builder, separated by commas.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.Comma()
		}
		b.Arg(a[i])
	}
	return b
}

// Comma adds a comma to the query.
func (b *Builder) Comma() *Builder {
	return b.WriteString(", ")
}

// Pad adds a space to the query.
func (b *Builder) Pad() *Builder {
	return b.WriteByte(' ')
}

// Wrap gets a callback, and wraps its result with parentheses.
func (b *Builder) Wrap(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	return b.WriteByte(')')
}

// Join joins a list of Queries to the builder.
func (b *Builder) Join(qs ...Querier) *Builder {
	return b.join(qs, "")
}

// JoinComma joins a list of Queries and adds comma between them.
func (b *Builder) JoinComma(qs ...Querier) *Builder {
	return b.join(qs, ", ")
}

func (b *Builder) join(qs []Querier, sep string) *Builder {
	for i, q := range qs {
		if i > 0 {
			b.WriteString(sep)
		}
		if st, ok := q.(state); ok {
			st.SetDialect(b.dialect)
			st.SetTotal(b.total)
		}
		query, args := q.Query()
		b.WriteString(query)
		b.args = append(b.args, args...)
		b.total += len(args)
	}
	return b
}

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.args
}

// Dialect returns the dialect of the builder.
func (b Builder) Dialect() string {
	return b.dialect
}

// SetDialect sets the builder dialect. It's used for garnering dialect specific queries.
func (b *Builder) SetDialect(name string) {
	b.dialect = name
}

// Total returns the total number of arguments so far.
func (b Builder) Total() int {
	return b.total
}

// SetTotal sets the value of the total arguments.
// Used to pass this information between sub queries/expressions.
func (b *Builder) SetTotal(total int) {
	b.total = total
}

// fresh returns an empty builder that shares the state of b.
func (b *Builder) fresh() *Builder {
	return &Builder{dialect: b.dialect, total: b.total}
}

func (b Builder) postgres() bool {
	return dialect.Base(b.dialect) == dialect.Postgres
}

func (b Builder) mysql() bool {
	return dialect.Base(b.dialect) == dialect.MySQL
}

// isExpr reports if the given string is an expression rather than an identifier.
func isExpr(s string) bool {
	return strings.ContainsAny(s, "()'\"`")
}

// raw is a Querier that is written verbatim.
type raw struct{ s string }

func (r *raw) Query() (string, []any) { return r.s, nil }

// Raw returns a raw SQL query that is placed as-is in the query.
func Raw(s string) Querier { return &raw{s} }

// QuoteLiteral returns s as a SQL string literal. Single quotes
// inside s are doubled.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ExprFunc implements the Querier interface using a callback
// that writes into the builder of the enclosing query.
type ExprFunc func(*Builder)

// Query implements the Querier interface.
func (f ExprFunc) Query() (string, []any) {
	b := &Builder{}
	f(b)
	return b.Query()
}

// exprState wraps an ExprFunc with the state of the enclosing query.
type exprState struct {
	Builder
	fn func(*Builder)
}

func (e *exprState) Query() (string, []any) {
	b := e.fresh()
	e.fn(b)
	return b.String(), b.args
}

// Expr returns a Querier that is rendered by the given callback with the
// dialect and argument count of the query it is joined into.
func Expr(fn func(*Builder)) Querier {
	return &exprState{fn: fn}
}

// Predicate is a where predicate.
type Predicate struct {
	Builder
	fns      []func(*Builder)
	compound bool
}

// P creates a new predicate.
//
//	P(func(b *Builder) {
//		b.Ident("name").WriteString(" = ").Arg("a8m")
//	})
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append appends a new function to the predicate callbacks.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// Query returns query representation of a predicate.
func (p *Predicate) Query() (string, []any) {
	b := p.fresh()
	for _, f := range p.fns {
		f(b)
	}
	return b.String(), b.args
}

func binary(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(op).Arg(v)
	})
}

// EQ returns a "=" predicate.
func EQ(col string, value any) *Predicate { return binary(col, " = ", value) }

// NEQ returns a "<>" predicate.
func NEQ(col string, value any) *Predicate { return binary(col, " <> ", value) }

// GT returns a ">" predicate.
func GT(col string, value any) *Predicate { return binary(col, " > ", value) }

// GTE returns a ">=" predicate.
func GTE(col string, value any) *Predicate { return binary(col, " >= ", value) }

// LT returns a "<" predicate.
func LT(col string, value any) *Predicate { return binary(col, " < ", value) }

// LTE returns a "<=" predicate.
func LTE(col string, value any) *Predicate { return binary(col, " <= ", value) }

// Like returns a "LIKE" predicate.
func Like(col, pattern string) *Predicate { return binary(col, " LIKE ", pattern) }

// In returns the `IN` predicate. An empty list of values always evaluates to false.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN ").Wrap(func(b *Builder) {
			b.Args(args...)
		})
	})
}

// NotIn returns the `NOT IN` predicate. An empty list of values always evaluates to true.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(col).WriteString(" NOT IN ").Wrap(func(b *Builder) {
			b.Args(args...)
		})
	})
}

// IsNull returns the `IS NULL` predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns the `IS NOT NULL` predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// Not wraps the given predicate with the not predicate.
//
//	Not(Or(EQ("name", "foo"), EQ("name", "bar")))
func Not(pred *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ").Wrap(func(b *Builder) {
			b.Join(pred)
		})
	})
}

// And combines all given predicates with AND between them.
func And(preds ...*Predicate) *Predicate {
	return compound("AND", preds)
}

// Or combines all given predicates with OR between them.
func Or(preds ...*Predicate) *Predicate {
	return compound("OR", preds)
}

func compound(op string, preds []*Predicate) *Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	p := P(func(b *Builder) {
		for i, pred := range preds {
			if i > 0 {
				b.Pad().WriteString(op).Pad()
			}
			if pred.compound {
				b.Wrap(func(b *Builder) { b.Join(pred) })
			} else {
				b.Join(pred)
			}
		}
	})
	p.compound = true
	return p
}

// FuncExpr is a SQL function call expression. Its arguments are written
// as identifiers (string), nested expressions (Querier) or bound
// arguments (anything else).
type FuncExpr struct {
	Builder
	name string
	args []any
	as   string
}

// Func returns a call expression of the SQL function with the given name.
//
//	Func("first", "value", "time") // first("value", "time")
func Func(name string, args ...any) *FuncExpr {
	return &FuncExpr{name: name, args: args}
}

// As sets the alias of the expression in the selection list.
func (f *FuncExpr) As(alias string) *FuncExpr {
	f.as = alias
	return f
}

// Name returns the name of the called function.
func (f *FuncExpr) Name() string { return f.name }

// Query returns the query representation of the call.
func (f *FuncExpr) Query() (string, []any) {
	b := f.fresh()
	b.WriteString(f.name).Wrap(func(b *Builder) {
		for i, a := range f.args {
			if i > 0 {
				b.Comma()
			}
			switch a := a.(type) {
			case string:
				b.Ident(a)
			case Querier:
				b.Join(a)
			default:
				b.Arg(a)
			}
		}
	})
	if f.as != "" {
		b.WriteString(" AS ").WriteString(b.Quote(f.as))
	}
	return b.String(), b.args
}

// Count wraps the ident with the COUNT aggregation function.
func Count(ident string) *FuncExpr { return Func("COUNT", ident) }

// Max wraps the ident with the MAX aggregation function.
func Max(ident string) *FuncExpr { return Func("MAX", ident) }

// Min wraps the ident with the MIN aggregation function.
func Min(ident string) *FuncExpr { return Func("MIN", ident) }

// Sum wraps the ident with the SUM aggregation function.
func Sum(ident string) *FuncExpr { return Func("SUM", ident) }

// Avg wraps the ident with the AVG aggregation function.
func Avg(ident string) *FuncExpr { return Func("AVG", ident) }

// Asc returns an ascending order term for the given column.
func Asc(column string) Querier {
	return Expr(func(b *Builder) { b.Ident(column).WriteString(" ASC") })
}

// Desc returns a descending order term for the given column.
func Desc(column string) Querier {
	return Expr(func(b *Builder) { b.Ident(column).WriteString(" DESC") })
}

// TableView is a view that returns a table view. Can be a Table or a Selector.
type TableView interface {
	view()
	state
}

// SelectTable is a table selector.
type SelectTable struct {
	Builder
	as     string
	name   string
	schema string
}

// Table returns a new table selector.
//
//	t1 := Table("metrics").As("m")
//	return Select(t1.C("name"))
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// Schema sets the schema name of the table.
func (s *SelectTable) Schema(name string) *SelectTable {
	s.schema = name
	return s
}

// As adds the AS clause to the table selector.
func (s *SelectTable) As(alias string) *SelectTable {
	s.as = alias
	return s
}

// Name returns the table name.
func (s *SelectTable) Name() string { return s.name }

// C returns a formatted string for the table column.
func (s *SelectTable) C(column string) string {
	b := s.fresh()
	if s.as != "" {
		b.WriteString(b.Quote(s.as))
	} else {
		s.writeName(b)
	}
	b.WriteByte('.').Ident(column)
	return b.String()
}

// Columns returns a list of formatted strings for the table columns.
func (s *SelectTable) Columns(columns ...string) []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, s.C(c))
	}
	return names
}

// Query returns the table reference as used in a FROM clause.
func (s *SelectTable) Query() (string, []any) {
	b := s.fresh()
	s.writeName(b)
	if s.as != "" {
		b.WriteString(" AS ").WriteString(b.Quote(s.as))
	}
	return b.String(), nil
}

func (s *SelectTable) writeName(b *Builder) {
	if s.schema != "" {
		b.WriteString(b.Quote(s.schema)).WriteByte('.')
	}
	b.WriteString(b.Quote(s.name))
}

func (*SelectTable) view() {}

// Selector is a builder for the `SELECT` statement.
type Selector struct {
	Builder
	as        string
	distinct  bool
	selection []Querier
	from      TableView
	where     *Predicate
	group     []Querier
	having    *Predicate
	order     []Querier
	limit     *int
	offset    *int
}

// Select returns a new selector for the `SELECT` statement.
//
//	t1 := Table("metrics").As("m")
//	return Select(t1.C("name"), t1.C("value")).From(t1)
func Select(columns ...string) *Selector {
	return (&Selector{}).Select(columns...)
}

// SelectExpr is like Select, but supports passing arbitrary
// expressions for SELECT clause.
func SelectExpr(exprs ...Querier) *Selector {
	return (&Selector{}).SelectExpr(exprs...)
}

// Select changes the columns selection of the SELECT statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.selection = s.selection[:0]
	return s.AppendSelect(columns...)
}

// AppendSelect appends additional columns to the SELECT statement.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	for _, c := range columns {
		s.selection = append(s.selection, identExpr(c))
	}
	return s
}

// SelectExpr changes the columns selection of the SELECT statement
// with custom list of expressions.
func (s *Selector) SelectExpr(exprs ...Querier) *Selector {
	s.selection = s.selection[:0]
	return s.AppendSelectExpr(exprs...)
}

// AppendSelectExpr appends additional expressions to the SELECT statement.
func (s *Selector) AppendSelectExpr(exprs ...Querier) *Selector {
	s.selection = append(s.selection, exprs...)
	return s
}

// SelectedColumns returns the number of selected expressions.
func (s *Selector) SelectedColumns() int {
	return len(s.selection)
}

// Distinct adds the DISTINCT keyword to the `SELECT` statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the source of `FROM` clause.
func (s *Selector) From(t TableView) *Selector {
	s.from = t
	return s
}

// Table returns the selected table.
func (s *Selector) Table() *SelectTable {
	t, _ := s.from.(*SelectTable)
	return t
}

// As give this selection an alias.
func (s *Selector) As(alias string) *Selector {
	s.as = alias
	return s
}

// C returns a formatted string for a selected column from this statement.
func (s *Selector) C(column string) string {
	switch t := s.from.(type) {
	case *SelectTable:
		t.SetDialect(s.dialect)
		return t.C(column)
	case *Selector:
		if t.as != "" {
			b := s.fresh()
			b.WriteString(b.Quote(t.as)).WriteByte('.').Ident(column)
			return b.String()
		}
	}
	b := s.fresh()
	return b.Ident(column).String()
}

// Where sets or appends the given predicate to the statement.
func (s *Selector) Where(p *Predicate) *Selector {
	if s.where != nil {
		s.where = And(s.where, p)
	} else {
		s.where = p
	}
	return s
}

// P returns the predicate of a selector.
func (s *Selector) P() *Predicate {
	return s.where
}

// GroupBy appends the `GROUP BY` clause to the `SELECT` statement.
func (s *Selector) GroupBy(columns ...string) *Selector {
	for _, c := range columns {
		s.group = append(s.group, identExpr(c))
	}
	return s
}

// GroupByExpr appends expressions to the `GROUP BY` clause.
func (s *Selector) GroupByExpr(exprs ...Querier) *Selector {
	s.group = append(s.group, exprs...)
	return s
}

// Having appends a predicate for the `HAVING` clause.
func (s *Selector) Having(p *Predicate) *Selector {
	if s.having != nil {
		s.having = And(s.having, p)
	} else {
		s.having = p
	}
	return s
}

// OrderBy appends the `ORDER BY` clause to the `SELECT` statement.
func (s *Selector) OrderBy(columns ...string) *Selector {
	for _, c := range columns {
		s.order = append(s.order, identExpr(c))
	}
	return s
}

// OrderExpr appends expressions to the `ORDER BY` clause.
//
//	Select("time", "value").From(Table("metrics")).OrderExpr(Desc("time"))
func (s *Selector) OrderExpr(exprs ...Querier) *Selector {
	s.order = append(s.order, exprs...)
	return s
}

// Limit adds the `LIMIT` clause to the `SELECT` statement.
func (s *Selector) Limit(limit int) *Selector {
	s.limit = &limit
	return s
}

// Offset adds the `OFFSET` clause to the `SELECT` statement.
func (s *Selector) Offset(offset int) *Selector {
	s.offset = &offset
	return s
}

// Query returns query representation of a `SELECT` statement.
func (s *Selector) Query() (string, []any) {
	b := s.fresh()
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.selection) > 0 {
		b.JoinComma(s.selection...)
	} else {
		b.WriteByte('*')
	}
	switch t := s.from.(type) {
	case *SelectTable:
		b.WriteString(" FROM ").Join(t)
	case *Selector:
		b.WriteString(" FROM ").Wrap(func(b *Builder) { b.Join(t) })
		if t.as != "" {
			b.WriteString(" AS ").WriteString(b.Quote(t.as))
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ").Join(s.where)
	}
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ").JoinComma(s.group...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ").Join(s.having)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ").JoinComma(s.order...)
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
	return b.String(), b.args
}

func (*Selector) view() {}

// identExpr returns an expression that writes the column as identifier
// using the dialect of the query it is joined into.
func identExpr(column string) Querier {
	return Expr(func(b *Builder) { b.Ident(column) })
}

// DialectBuilder prefixes all root builders with the `Dialect` constructor.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
// Extension dialects registered on top of another dialect build
// queries of their base dialect.
//
//	Dialect("timescaledb").Select("value").From(Table("metrics")) // PostgreSQL syntax
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select creates a Selector for the configured dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.SetDialect(d.dialect)
	return s
}

// SelectExpr creates a Selector with expressions for the configured dialect.
func (d *DialectBuilder) SelectExpr(exprs ...Querier) *Selector {
	s := SelectExpr(exprs...)
	s.SetDialect(d.dialect)
	return s
}

// Table creates a SelectTable for the configured dialect.
func (d *DialectBuilder) Table(name string) *SelectTable {
	t := Table(name)
	t.SetDialect(d.dialect)
	return t
}
