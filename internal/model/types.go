// Package model defines the language-neutral view of a source file's declared types.
// Metadata sources (Go packages, Java syntax trees, YAML manifests) all produce these
// structures, and the planner, renderer and splicer only ever consume them.
package model

import (
	"strconv"
	"strings"
)

// TypeKind defines the kind of a type.
type TypeKind int

// Constants for the different kinds of types.
const (
	Unknown TypeKind = iota
	Primitive
	Struct
	Class
	Interface
	Named // a declared type whose underlying type is neither a struct nor an interface
	Map
	Chan
	Func
	Slice
	Array
	Pointer
)

var kindNames = map[TypeKind]string{
	Unknown:   "unknown",
	Primitive: "primitive",
	Struct:    "struct",
	Class:     "class",
	Interface: "interface",
	Named:     "named",
	Map:       "map",
	Chan:      "chan",
	Func:      "func",
	Slice:     "slice",
	Array:     "array",
	Pointer:   "pointer",
}

func (k TypeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a kind name back to its TypeKind. Unrecognized names yield Unknown.
func ParseKind(s string) TypeKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return Unknown
}

// IsDeclared reports whether the kind is introduced by a type declaration and can therefore
// own fields and methods.
func (k TypeKind) IsDeclared() bool {
	return k == Struct || k == Class || k == Interface || k == Named
}

// TypeInfo represents a resolved type as reported by a metadata source.
// It is treated as immutable for the duration of one run.
type TypeInfo struct {
	// Name is the simple name. Composite types may leave it empty and have it
	// derived from Elem/Key by SimpleName.
	Name string
	// ImportPath is the package (Go) or namespace (Java) that declares the type.
	ImportPath string
	Kind       TypeKind
	Primitive  bool
	ArrayLen   int

	// Elem is the pointee, element or map value type of a composite.
	Elem *TypeInfo
	// Key is the key type of a map.
	Key *TypeInfo

	Fields  []*FieldInfo
	Methods []*MethodInfo

	// Depth is the nesting depth of the declaration, 0 for a top-level type.
	Depth int
	// DeclLine is the 1-based line of the type declaration, 0 when unknown.
	DeclLine int
	// CtorLine is the 1-based line of the first declared constructor, 0 when unknown.
	CtorLine int
	// CtorDepth is the nesting depth of that constructor: Depth+1 for a Java constructor
	// inside the class body, 0 for a Go constructor function.
	CtorDepth int
}

// FQN returns the fully qualified name, or the simple name when there is no import path.
func (ti *TypeInfo) FQN() string {
	if ti == nil {
		return ""
	}
	if ti.ImportPath == "" {
		return ti.SimpleName()
	}
	return ti.ImportPath + "." + ti.Name
}

// SimpleName returns the unqualified display name of the type, e.g. "Point", "*Point",
// "[]string" or "map[string]int".
func (ti *TypeInfo) SimpleName() string {
	if ti == nil {
		return "nil"
	}
	if ti.Name != "" {
		return ti.Name
	}
	switch ti.Kind {
	case Pointer:
		return "*" + ti.Elem.SimpleName()
	case Slice:
		return "[]" + ti.Elem.SimpleName()
	case Array:
		return "[" + strconv.Itoa(ti.ArrayLen) + "]" + ti.Elem.SimpleName()
	case Map:
		return "map[" + ti.Key.SimpleName() + "]" + ti.Elem.SimpleName()
	case Chan:
		return "chan " + ti.Elem.SimpleName()
	case Func:
		return "func"
	case Interface:
		return "interface{}"
	case Struct:
		return "struct{}"
	default:
		return "unknown"
	}
}

// String returns the fully qualified name.
func (ti *TypeInfo) String() string {
	return ti.FQN()
}

// Deref strips any number of pointer indirections.
func (ti *TypeInfo) Deref() *TypeInfo {
	for ti != nil && ti.Kind == Pointer {
		ti = ti.Elem
	}
	return ti
}

// HasPosition reports whether the source reported any declaration line for the type.
func (ti *TypeInfo) HasPosition() bool {
	return ti != nil && (ti.DeclLine > 0 || ti.CtorLine > 0)
}

// FieldInfo represents a single declared field.
type FieldInfo struct {
	Name     string
	Type     *TypeInfo
	Exported bool
	Embedded bool
}

// ParamInfo is a single method parameter.
type ParamInfo struct {
	Name string
	Type *TypeInfo
}

// MethodInfo represents a single declared method of a type.
type MethodInfo struct {
	Name    string
	Params  []*ParamInfo
	Results []*TypeInfo
	// Exported mirrors the declaring language's visibility (capitalized in Go, public in Java).
	Exported bool
	// Line is the 1-based line of the method declaration in the annotated file,
	// 0 when the method is declared elsewhere.
	Line int
	// Depth is the nesting depth of the method declaration.
	Depth int
}

// ParamTypes returns the parameter types in declaration order.
func (mi *MethodInfo) ParamTypes() []*TypeInfo {
	out := make([]*TypeInfo, 0, len(mi.Params))
	for _, p := range mi.Params {
		out = append(out, p.Type)
	}
	return out
}
