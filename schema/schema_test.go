package schema_test

import (
	"testing"

	"github.com/syssam/velox-timescaledb/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommentAnnotation tests the CommentAnnotation type.
func TestCommentAnnotation(t *testing.T) {
	t.Run("Name", func(t *testing.T) {
		ann := &schema.CommentAnnotation{Text: "test comment"}
		assert.Equal(t, "Comment", ann.Name())
	})

	t.Run("Comment_constructor", func(t *testing.T) {
		ann := schema.Comment("Raw sensor readings.")
		require.NotNil(t, ann)
		assert.Equal(t, "Raw sensor readings.", ann.Text)
	})
}

type mockAnnotation struct {
	name  string
	value string
}

func (m *mockAnnotation) Name() string {
	return m.name
}

// mockMerger implements both Annotation and Merger.
type mockMerger struct {
	name   string
	values []string
}

func (m *mockMerger) Name() string {
	return m.name
}

func (m *mockMerger) Merge(other schema.Annotation) schema.Annotation {
	if o, ok := other.(*mockMerger); ok {
		return &mockMerger{
			name:   m.name,
			values: append(append([]string(nil), m.values...), o.values...),
		}
	}
	return m
}

func TestMergeAnnotation(t *testing.T) {
	t.Run("nil_prev", func(t *testing.T) {
		next := &mockAnnotation{name: "A", value: "x"}
		assert.Equal(t, next, schema.MergeAnnotation(nil, next))
	})

	t.Run("replace", func(t *testing.T) {
		prev := &mockAnnotation{name: "A", value: "x"}
		next := &mockAnnotation{name: "A", value: "y"}
		assert.Equal(t, next, schema.MergeAnnotation(prev, next))
	})

	t.Run("merge", func(t *testing.T) {
		prev := &mockMerger{name: "M", values: []string{"a"}}
		next := &mockMerger{name: "M", values: []string{"b"}}
		merged, ok := schema.MergeAnnotation(prev, next).(*mockMerger)
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b"}, merged.values)
		assert.Equal(t, []string{"a"}, prev.values, "prev must not be mutated")
	})

	t.Run("merge_different_type", func(t *testing.T) {
		prev := &mockMerger{name: "M", values: []string{"a"}}
		assert.Equal(t, prev, schema.MergeAnnotation(prev, &mockAnnotation{name: "M"}))
	})
}
