package model

import "sort"

// Annotation is one generated template bound to the 0-based line index it must precede.
type Annotation struct {
	Position int
	Text     string
	// Indent is the nesting level the splicer applies to every line of Text.
	Indent int
	// Owner names the class or method the template describes.
	Owner string
}

// AnnotationSet maps positions to annotations. Adding at an occupied position is a no-op.
// The zero value is an empty set; a nil set reads as empty.
// A set belongs to a single run and is not safe for concurrent use.
type AnnotationSet struct {
	byPos map[int]*Annotation
}

// NewAnnotationSet creates an empty set.
func NewAnnotationSet() *AnnotationSet {
	return &AnnotationSet{byPos: make(map[int]*Annotation)}
}

// Add inserts a unless its position is already taken. It reports whether a was stored.
func (s *AnnotationSet) Add(a *Annotation) bool {
	if a == nil {
		return false
	}
	if s.byPos == nil {
		s.byPos = make(map[int]*Annotation)
	}
	if _, exists := s.byPos[a.Position]; exists {
		return false
	}
	s.byPos[a.Position] = a
	return true
}

// Has reports whether an annotation exists at pos.
func (s *AnnotationSet) Has(pos int) bool {
	if s == nil {
		return false
	}
	_, ok := s.byPos[pos]
	return ok
}

// Get returns the annotation at pos.
func (s *AnnotationSet) Get(pos int) (*Annotation, bool) {
	if s == nil {
		return nil, false
	}
	a, ok := s.byPos[pos]
	return a, ok
}

// Len returns the number of annotations.
func (s *AnnotationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byPos)
}

// Sorted returns the annotations in strictly ascending position order.
func (s *AnnotationSet) Sorted() []*Annotation {
	if s == nil {
		return nil
	}
	out := make([]*Annotation, 0, len(s.byPos))
	for _, a := range s.byPos {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
