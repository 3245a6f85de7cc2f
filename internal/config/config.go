// Package config loads table definitions from YAML schema files.
//
//	dialect: timescaledb
//	tables:
//	  - name: metrics
//	    columns:
//	      - {name: time, type: time}
//	      - {name: device, type: string, size: 64}
//	      - {name: value, type: float64, nullable: true}
//	    primary_key: [time, device]
//	    timescaledb:
//	      time_column_name: time
//	      chunk_time_interval: 1 day
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/velox-timescaledb/dialect/sql/schema"
	"github.com/syssam/velox-timescaledb/dialect/sqlschema"
	"github.com/syssam/velox-timescaledb/dialect/timescaledb"
	"github.com/syssam/velox-timescaledb/schema/field"
)

// File is the root of a schema file.
type File struct {
	// Dialect is the default dialect of the commands reading the file.
	Dialect string  `yaml:"dialect,omitempty"`
	Tables  []Table `yaml:"tables"`
}

// Table is a table definition.
type Table struct {
	Name       string                  `yaml:"name"`
	Schema     string                  `yaml:"schema,omitempty"`
	Comment    string                  `yaml:"comment,omitempty"`
	Columns    []Column                `yaml:"columns"`
	PrimaryKey []string                `yaml:"primary_key,omitempty"`
	Indexes    []Index                 `yaml:"indexes,omitempty"`
	SQL        *sqlschema.Annotation   `yaml:"sql,omitempty"`
	Hypertable *timescaledb.Hypertable `yaml:"timescaledb,omitempty"`
}

// Column is a column definition.
type Column struct {
	Name      string                `yaml:"name"`
	Type      string                `yaml:"type"`
	Size      int64                 `yaml:"size,omitempty"`
	Nullable  bool                  `yaml:"nullable,omitempty"`
	Unique    bool                  `yaml:"unique,omitempty"`
	Increment bool                  `yaml:"increment,omitempty"`
	Default   any                   `yaml:"default,omitempty"`
	Comment   string                `yaml:"comment,omitempty"`
	SQL       *sqlschema.Annotation `yaml:"sql,omitempty"`
}

// Index is an index definition.
type Index struct {
	Name    string                `yaml:"name"`
	Columns []string              `yaml:"columns"`
	Unique  bool                  `yaml:"unique,omitempty"`
	Desc    bool                  `yaml:"desc,omitempty"`
	SQL     *sqlschema.Annotation `yaml:"sql,omitempty"`
}

// Load reads and parses the schema file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open schema file: %w", err)
	}
	defer f.Close()
	file, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return file, nil
}

// Parse parses a schema file from its content.
func Parse(data []byte) (*File, error) {
	return Decode(bytes.NewReader(data))
}

// Decode decodes a schema file. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &f, nil
}

// Build converts the file definitions into schema tables.
func (f *File) Build() ([]*schema.Table, error) {
	tables := make([]*schema.Table, 0, len(f.Tables))
	var errs []error
	for _, def := range f.Tables {
		t, err := def.build()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables = append(tables, t)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tables, nil
}

func (def Table) build() (*schema.Table, error) {
	if def.Name == "" {
		return nil, errors.New("config: table without name")
	}
	t := schema.NewTable(def.Name).SetSchema(def.Schema).SetComment(def.Comment)
	for _, cd := range def.Columns {
		typ, ok := field.ParseType(cd.Type)
		if !ok {
			return nil, fmt.Errorf("config: table %q: column %q: unknown type %q", def.Name, cd.Name, cd.Type)
		}
		t.AddColumn(&schema.Column{
			Name:       cd.Name,
			Type:       typ,
			Size:       cd.Size,
			Nullable:   cd.Nullable,
			Unique:     cd.Unique,
			Increment:  cd.Increment,
			Default:    cd.Default,
			Comment:    cd.Comment,
			Annotation: cd.SQL,
		})
	}
	// Primary key columns keep the order of the primary_key list.
	for _, name := range def.PrimaryKey {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("config: table %q: primary key column %q is not defined", def.Name, name)
		}
		c.Key = schema.PrimaryKey
		c.Nullable = false
		t.PrimaryKey = append(t.PrimaryKey, c)
	}
	for _, id := range def.Indexes {
		for _, name := range id.Columns {
			if !t.HasColumn(name) {
				return nil, fmt.Errorf("config: table %q: index %q: column %q is not defined", def.Name, id.Name, name)
			}
		}
		t.AddIndex(id.Name, id.Unique, id.Columns)
		idx, _ := t.Index(id.Name)
		idx.Desc = id.Desc
		idx.Annotation = id.SQL
	}
	if def.SQL != nil {
		t.AddAnnotations(def.SQL)
	}
	if def.Hypertable != nil {
		t.AddAnnotations(def.Hypertable)
	}
	return t, nil
}
