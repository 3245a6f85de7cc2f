// Package field defines the value types of table columns.
//
// Each column of a dialect/sql/schema table carries a field.Type. The DDL
// compiler of a dialect maps the type to a database column type:
//
//	field.TypeInt64    // bigint
//	field.TypeFloat64  // double precision
//	field.TypeString   // character varying
//	field.TypeTime     // timestamp with time zone
//	field.TypeJSON     // jsonb
//
// Types can also be looked up by name, which is how schema files refer to them:
//
//	typ, ok := field.ParseType("float64")
package field
