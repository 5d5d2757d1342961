// Package classify decides which types are worth describing in a generated template.
package classify

import (
	"strings"

	"github.com/origadmin/annotgen/internal/model"
)

// DefaultExcludedPrefixes are namespaces whose types are never annotated: the Java
// platform libraries and the tester/javalib course libraries.
var DefaultExcludedPrefixes = []string{"java.", "javax.", "tester.", "javalib."}

// Classifier implements the "pointless to annotate" predicate.
// The zero value only treats primitives and strings as pointless.
type Classifier struct {
	// ExcludedPrefixes are matched against a type's fully qualified name.
	ExcludedPrefixes []string
	// Stdlib excludes types declared in the Go standard library.
	Stdlib bool
}

// New creates a Classifier.
func New(prefixes []string, stdlib bool) *Classifier {
	return &Classifier{
		ExcludedPrefixes: append([]string(nil), prefixes...),
		Stdlib:           stdlib,
	}
}

// IsPointless reports whether t carries nothing worth annotating: a primitive, a string
// (or a type a string is assignable to), an excluded namespace, or a composite built only
// from such types. It never panics and has no side effects.
func (c *Classifier) IsPointless(t *model.TypeInfo) bool {
	return c.isPointless(t, 0)
}

// maxDepth bounds recursion through self-referential composites.
const maxDepth = 32

func (c *Classifier) isPointless(t *model.TypeInfo, depth int) bool {
	t = t.Deref()
	if t == nil || depth > maxDepth {
		return true
	}
	if t.Primitive || t.Kind == model.Primitive || isString(t) {
		return true
	}

	switch t.Kind {
	case model.Slice, model.Array, model.Chan:
		if t.Name == "" || t.ImportPath == "" {
			return c.isPointless(t.Elem, depth+1)
		}
	case model.Map:
		if t.Name == "" || t.ImportPath == "" {
			return c.isPointless(t.Key, depth+1) && c.isPointless(t.Elem, depth+1)
		}
	case model.Func, model.Unknown:
		if t.ImportPath == "" {
			return true
		}
	case model.Interface:
		// the empty interface accepts a string
		if len(t.Methods) == 0 && (t.ImportPath == "" || t.Name == "any") {
			return true
		}
	}

	if t.Name == "" {
		return true
	}
	return c.isExcluded(t)
}

func (c *Classifier) isExcluded(t *model.TypeInfo) bool {
	fqn := t.FQN()
	for _, prefix := range c.ExcludedPrefixes {
		if prefix != "" && strings.HasPrefix(fqn, prefix) {
			return true
		}
	}
	return c.Stdlib && IsStdlibPath(t.ImportPath)
}

func isString(t *model.TypeInfo) bool {
	switch t.Name {
	case "string":
		return t.ImportPath == ""
	case "String":
		return t.ImportPath == "" || t.ImportPath == "java.lang"
	}
	return false
}

// IsStdlibPath reports whether a Go import path belongs to the standard library,
// using the same rule as the go command: the first path element contains no dot.
func IsStdlibPath(path string) bool {
	if path == "" || path == "command-line-arguments" {
		return false
	}
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}
