package sql

import "strings"

// FieldEQ returns a raw predicate to check if the given field equals to the given value.
func FieldEQ(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(EQ(s.C(name), v))
	}
}

// FieldNEQ returns a raw predicate to check if the given field does not equal to the given value.
func FieldNEQ(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(NEQ(s.C(name), v))
	}
}

// FieldGT returns a raw predicate to check if the given field is greater than the given value.
func FieldGT(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(GT(s.C(name), v))
	}
}

// FieldGTE returns a raw predicate to check if the given field is greater than or equal the given value.
func FieldGTE(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(GTE(s.C(name), v))
	}
}

// FieldLT returns a raw predicate to check if the value of the field is less than the given value.
func FieldLT(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(LT(s.C(name), v))
	}
}

// FieldLTE returns a raw predicate to check if the value of the field is less than or equal the given value.
func FieldLTE(name string, v any) func(*Selector) {
	return func(s *Selector) {
		s.Where(LTE(s.C(name), v))
	}
}

// FieldIn returns a raw predicate to check if the value of the field is IN the given values.
func FieldIn[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		s.Where(In(s.C(name), toAny(vs)...))
	}
}

// FieldNotIn returns a raw predicate to check if the value of the field is NOT IN the given values.
func FieldNotIn[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		s.Where(NotIn(s.C(name), toAny(vs)...))
	}
}

// FieldIsNull returns a raw predicate to check if the given field is NULL.
func FieldIsNull(name string) func(*Selector) {
	return func(s *Selector) {
		s.Where(IsNull(s.C(name)))
	}
}

// FieldNotNull returns a raw predicate to check if the given field is not NULL.
func FieldNotNull(name string) func(*Selector) {
	return func(s *Selector) {
		s.Where(NotNull(s.C(name)))
	}
}

// FieldContains returns a raw predicate to check if the field value contains a substring.
func FieldContains(name, substr string) func(*Selector) {
	return func(s *Selector) {
		s.Where(Like(s.C(name), "%"+escapeLike(substr)+"%"))
	}
}

// FieldHasPrefix returns a raw predicate to check if the field has the given prefix.
func FieldHasPrefix(name, prefix string) func(*Selector) {
	return func(s *Selector) {
		s.Where(Like(s.C(name), escapeLike(prefix)+"%"))
	}
}

// FieldHasSuffix returns a raw predicate to check if the field has the given suffix.
func FieldHasSuffix(name, suffix string) func(*Selector) {
	return func(s *Selector) {
		s.Where(Like(s.C(name), "%"+escapeLike(suffix)))
	}
}

// escapeLike escapes the LIKE wildcards of s.
func escapeLike(s string) string {
	if !strings.ContainsAny(s, `%_\`) {
		return s
	}
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toAny[T any](vs []T) []any {
	args := make([]any, len(vs))
	for i := range vs {
		args[i] = vs[i]
	}
	return args
}

// PredicateFunc is a constraint type for predicate functions.
// It allows generic field types to work with any predicate type that is
// based on func(*Selector).
type PredicateFunc interface {
	~func(*Selector)
}

// Number is the constraint of the value types of NumberField.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// StringField is a generic string field that provides type-safe predicate methods.
//
// Usage:
//
//	var Name = sql.StringField[predicate.Metric]("name")
//	query.Where(metric.Name.HasPrefix("cpu."))
type StringField[P PredicateFunc] string

// Name returns the field name.
func (f StringField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField[P]) EQ(v string) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField[P]) NEQ(v string) P { return P(FieldNEQ(string(f), v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField[P]) In(vs ...string) P { return P(FieldIn(string(f), vs...)) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField[P]) NotIn(vs ...string) P { return P(FieldNotIn(string(f), vs...)) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField[P]) Contains(v string) P { return P(FieldContains(string(f), v)) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField[P]) HasPrefix(v string) P { return P(FieldHasPrefix(string(f), v)) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField[P]) HasSuffix(v string) P { return P(FieldHasSuffix(string(f), v)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f StringField[P]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f StringField[P]) NotNull() P { return P(FieldNotNull(string(f))) }

// NumberField is a generic numeric field that provides type-safe predicate methods.
//
//	var Value = sql.NumberField[predicate.Metric, float64]("value")
//	query.Where(metric.Value.GT(0.5))
type NumberField[P PredicateFunc, T Number] string

// Name returns the field name.
func (f NumberField[P, T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f NumberField[P, T]) EQ(v T) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f NumberField[P, T]) NEQ(v T) P { return P(FieldNEQ(string(f), v)) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f NumberField[P, T]) GT(v T) P { return P(FieldGT(string(f), v)) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f NumberField[P, T]) GTE(v T) P { return P(FieldGTE(string(f), v)) }

// LT returns a predicate that checks if the field is less than the given value.
func (f NumberField[P, T]) LT(v T) P { return P(FieldLT(string(f), v)) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f NumberField[P, T]) LTE(v T) P { return P(FieldLTE(string(f), v)) }

// In returns a predicate that checks if the field value is in the given list.
func (f NumberField[P, T]) In(vs ...T) P { return P(FieldIn(string(f), vs...)) }

// IsNull returns a predicate that checks if the field is NULL.
func (f NumberField[P, T]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f NumberField[P, T]) NotNull() P { return P(FieldNotNull(string(f))) }

// TimeField is a generic time field that provides type-safe predicate methods.
// T is the actual time type (e.g., time.Time).
type TimeField[P PredicateFunc, T any] string

// Name returns the field name.
func (f TimeField[P, T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TimeField[P, T]) EQ(v T) P { return P(FieldEQ(string(f), v)) }

// GT returns a predicate that checks if the field is after the given value.
func (f TimeField[P, T]) GT(v T) P { return P(FieldGT(string(f), v)) }

// GTE returns a predicate that checks if the field is after or equal to the given value.
func (f TimeField[P, T]) GTE(v T) P { return P(FieldGTE(string(f), v)) }

// LT returns a predicate that checks if the field is before the given value.
func (f TimeField[P, T]) LT(v T) P { return P(FieldLT(string(f), v)) }

// LTE returns a predicate that checks if the field is before or equal to the given value.
func (f TimeField[P, T]) LTE(v T) P { return P(FieldLTE(string(f), v)) }

// Between returns a predicate that checks if the field is in the half-open range [from, to).
func (f TimeField[P, T]) Between(from, to T) P {
	return P(func(s *Selector) {
		s.Where(And(GTE(s.C(string(f)), from), LT(s.C(string(f)), to)))
	})
}

// IsNull returns a predicate that checks if the field is NULL.
func (f TimeField[P, T]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f TimeField[P, T]) NotNull() P { return P(FieldNotNull(string(f))) }
