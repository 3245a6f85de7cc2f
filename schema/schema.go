package schema

// Annotation is used to attach arbitrary metadata to schema objects
// (tables, columns and indexes). Dialects and extensions read the
// annotations they know by name and ignore the rest.
type Annotation interface {
	// Name defines the name of the annotation to be retrieved by the
	// dialect or extension that owns it.
	Name() string
}

// Merger wraps the single Merge function allows custom annotation
// to provide an implementation for merging 2 or more annotations from
// the same type.
//
// A common use case is where the same annotation is set more than once
// on a table, and the last one should only override the fields it sets.
type Merger interface {
	Merge(Annotation) Annotation
}

// CommentAnnotation is a builtin schema annotation for
// attaching a comment to a table or column.
type CommentAnnotation struct {
	Text string
}

// Name implements the Annotation interface.
func (*CommentAnnotation) Name() string {
	return "Comment"
}

// Comment returns a new CommentAnnotation with the given text.
func Comment(text string) *CommentAnnotation {
	return &CommentAnnotation{Text: text}
}

// MergeAnnotation merges next into prev when prev implements Merger.
// Otherwise, next replaces prev.
func MergeAnnotation(prev, next Annotation) Annotation {
	if prev == nil {
		return next
	}
	if m, ok := prev.(Merger); ok {
		return m.Merge(next)
	}
	return next
}

var _ Annotation = (*CommentAnnotation)(nil)
