package schema

import (
	"slices"

	"github.com/syssam/velox-timescaledb/dialect/sqlschema"
	"github.com/syssam/velox-timescaledb/schema"
	"github.com/syssam/velox-timescaledb/schema/field"
)

// Table schema definition for SQL dialects.
type Table struct {
	Name        string
	Schema      string
	Comment     string
	Columns     []*Column
	columns     map[string]*Column
	Indexes     []*Index
	PrimaryKey  []*Column
	Annotations map[string]schema.Annotation
	decorated   bool
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		columns: make(map[string]*Column),
	}
}

// SetComment sets the table comment.
func (t *Table) SetComment(c string) *Table {
	t.Comment = c
	return t
}

// SetSchema sets the schema (namespace) of the table.
func (t *Table) SetSchema(s string) *Table {
	t.Schema = s
	return t
}

// AddPrimary adds a new primary key to the table.
func (t *Table) AddPrimary(c *Column) *Table {
	c.Key = PrimaryKey
	t.AddColumn(c)
	t.PrimaryKey = append(t.PrimaryKey, c)
	return t
}

// AddColumn adds a new column to the table.
func (t *Table) AddColumn(c *Column) *Table {
	if t.columns == nil {
		t.columns = make(map[string]*Column)
	}
	if _, ok := t.columns[c.Name]; ok {
		return t
	}
	t.columns[c.Name] = c
	t.Columns = append(t.Columns, c)
	return t
}

// AddColumns adds the given columns to the table.
func (t *Table) AddColumns(cs ...*Column) *Table {
	for _, c := range cs {
		t.AddColumn(c)
	}
	return t
}

// HasColumn reports if the table contains a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the column with the given name, if exists.
func (t *Table) Column(name string) (*Column, bool) {
	if c, ok := t.columns[name]; ok {
		return c, true
	}
	// Columns might be added directly to the exported slice.
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddIndex creates and adds a new index to the table from the given options.
func (t *Table) AddIndex(name string, unique bool, columns []string) *Table {
	return t.addIndex(&Index{
		Name:    name,
		Unique:  unique,
		columns: columns,
	})
}

// AddIndexes adds the given indexes to the table. Indexes with a
// name that already exists are ignored.
func (t *Table) AddIndexes(idx ...*Index) *Table {
	for _, i := range idx {
		t.addIndex(i)
	}
	return t
}

func (t *Table) addIndex(idx *Index) *Table {
	if _, ok := t.Index(idx.Name); ok {
		return t
	}
	for _, name := range idx.columns {
		c, ok := t.Column(name)
		if ok {
			c.indexes = append(c.indexes, idx)
			idx.Columns = append(idx.Columns, c)
		}
	}
	t.Indexes = append(t.Indexes, idx)
	return t
}

// RemoveIndex removes the index with the given name, if exists.
func (t *Table) RemoveIndex(name string) *Table {
	idx, ok := t.Index(name)
	if !ok {
		return t
	}
	t.Indexes = slices.DeleteFunc(t.Indexes, func(i *Index) bool { return i == idx })
	for _, c := range idx.Columns {
		c.indexes = slices.DeleteFunc(c.indexes, func(i *Index) bool { return i == idx })
	}
	return t
}

// Index returns a table index by its exact name.
func (t *Table) Index(name string) (*Index, bool) {
	idx := slices.IndexFunc(t.Indexes, func(i *Index) bool { return i.Name == name })
	if idx == -1 {
		return nil, false
	}
	return t.Indexes[idx], true
}

// AddAnnotations adds annotations to the table. An annotation that was
// already set with the same name is merged with the new one when it
// implements schema.Merger, and replaced otherwise. A comment annotation
// also sets the table comment.
func (t *Table) AddAnnotations(ants ...schema.Annotation) *Table {
	if t.Annotations == nil {
		t.Annotations = make(map[string]schema.Annotation, len(ants))
	}
	for _, a := range ants {
		if a == nil {
			continue
		}
		if c, ok := a.(*schema.CommentAnnotation); ok && c != nil {
			t.Comment = c.Text
		}
		t.Annotations[a.Name()] = schema.MergeAnnotation(t.Annotations[a.Name()], a)
	}
	t.decorated = false
	return t
}

// Annotation returns the annotation registered with the given name.
func (t *Table) Annotation(name string) (schema.Annotation, bool) {
	a, ok := t.Annotations[name]
	return a, ok
}

// SQLAnnotation returns the SQL annotation of the table, if exists.
func (t *Table) SQLAnnotation() *sqlschema.Annotation {
	return sqlAnnotation(t.Annotations[sqlschema.AnnotationName])
}

// SchemaName returns the schema of the table. A schema set on the SQL
// annotation is used when the table has none.
func (t *Table) SchemaName() string {
	if t.Schema != "" {
		return t.Schema
	}
	if ant := t.SQLAnnotation(); ant != nil {
		return ant.Schema
	}
	return ""
}

// QualifiedName returns the table name qualified with its schema, if set.
func (t *Table) QualifiedName() string {
	if s := t.SchemaName(); s != "" {
		return s + "." + t.Name
	}
	return t.Name
}

// TableDecorator is implemented by table annotations that add declarations
// (columns, indexes) the database creates implicitly for the table.
type TableDecorator interface {
	Decorate(*Table)
}

// Decorate runs the TableDecorator annotations of the table in name order.
// Calling it more than once has no effect until new annotations are added.
func (t *Table) Decorate() *Table {
	if t.decorated {
		return t
	}
	for _, name := range annotationNames(t) {
		if d, ok := t.Annotations[name].(TableDecorator); ok {
			d.Decorate(t)
		}
	}
	t.decorated = true
	return t
}

// Column schema definition for SQL dialects.
type Column struct {
	Name       string
	Type       field.Type
	Size       int64
	Key        string
	Unique     bool
	Increment  bool
	Nullable   bool
	Default    any
	Comment    string
	Annotation *sqlschema.Annotation
	indexes    []*Index
}

// Column keys.
const (
	PrimaryKey = "PRI"
	UniqueKey  = "UNI"
)

// UniqueKey returns boolean indicates if this column is a unique key.
// Used by the migration tool when parsing the `DESCRIBE TABLE` output Go objects.
func (c *Column) UniqueKey() bool { return c.Key == UniqueKey }

// PrimaryKey returns boolean indicates if this column is on of the primary key columns.
// Used by the migration tool when parsing the `DESCRIBE TABLE` output Go objects.
func (c *Column) PrimaryKey() bool { return c.Key == PrimaryKey }

// Indexes returns the indexes the column is part of.
func (c *Column) Indexes() []*Index { return c.indexes }

// Index definition for table index.
type Index struct {
	Name    string
	Unique  bool
	Columns []*Column
	// Desc sorts all index columns in descending order.
	Desc bool
	// Managed marks an index a database extension creates implicitly with
	// the table. It is part of the desired schema. Compilers of the
	// extension skip it, plain compilers emit it.
	Managed    bool
	Annotation *sqlschema.Annotation
	columns    []string
}

// ColumnNames returns the names of the index columns.
func (i *Index) ColumnNames() []string {
	if len(i.Columns) == 0 {
		return i.columns
	}
	names := make([]string, len(i.Columns))
	for j, c := range i.Columns {
		names[j] = c.Name
	}
	return names
}

func sqlAnnotation(a schema.Annotation) *sqlschema.Annotation {
	ant, _ := a.(*sqlschema.Annotation)
	return ant
}
