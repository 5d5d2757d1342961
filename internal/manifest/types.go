package manifest

import (
	"strconv"
	"strings"

	"github.com/origadmin/annotgen/internal/model"
)

var primitiveNames = map[string]bool{
	// Go
	"bool": true, "byte": true, "rune": true, "int": true, "int8": true, "int16": true,
	"int32": true, "int64": true, "uint": true, "uint8": true, "uint16": true, "uint32": true,
	"uint64": true, "uintptr": true, "float32": true, "float64": true, "complex64": true,
	"complex128": true, "string": true, "error": true,
	// Java
	"short": true, "long": true, "char": true, "float": true, "double": true, "boolean": true,
}

// resolver turns type references such as "edu.geo.Point", "*geo.Point", "[]int",
// "Point[]" or "map[string]geo.Point" into TypeInfo values.
type resolver struct {
	byFQN    map[string]*model.TypeInfo
	byName   map[string]*model.TypeInfo
	external map[string]*model.TypeInfo
}

func newResolver() *resolver {
	return &resolver{
		byFQN:    make(map[string]*model.TypeInfo),
		byName:   make(map[string]*model.TypeInfo),
		external: make(map[string]*model.TypeInfo),
	}
}

func (r *resolver) declare(t *model.TypeInfo) {
	if _, ok := r.byFQN[t.FQN()]; !ok {
		r.byFQN[t.FQN()] = t
	}
	if _, ok := r.byName[t.Name]; !ok {
		r.byName[t.Name] = t
	}
}

// resolve parses ref. Unqualified names that are not declared belong to pkg.
func (r *resolver) resolve(ref, pkg string) *model.TypeInfo {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return &model.TypeInfo{Kind: model.Unknown}
	case strings.HasPrefix(ref, "*"):
		return &model.TypeInfo{Kind: model.Pointer, Elem: r.resolve(ref[1:], pkg)}
	case strings.HasPrefix(ref, "[]"):
		return &model.TypeInfo{Kind: model.Slice, Elem: r.resolve(ref[2:], pkg)}
	case strings.HasSuffix(ref, "[]"):
		elem := r.resolve(strings.TrimSuffix(ref, "[]"), pkg)
		return &model.TypeInfo{Name: elem.SimpleName() + "[]", Kind: model.Slice, Elem: elem}
	case strings.HasPrefix(ref, "["):
		if end := strings.Index(ref, "]"); end > 0 {
			if n, err := strconv.Atoi(ref[1:end]); err == nil {
				return &model.TypeInfo{Kind: model.Array, ArrayLen: n, Elem: r.resolve(ref[end+1:], pkg)}
			}
		}
	case strings.HasPrefix(ref, "map["):
		if key, val, ok := splitMap(ref[len("map["):]); ok {
			return &model.TypeInfo{Kind: model.Map, Key: r.resolve(key, pkg), Elem: r.resolve(val, pkg)}
		}
	case strings.HasPrefix(ref, "chan "):
		return &model.TypeInfo{Kind: model.Chan, Elem: r.resolve(ref[len("chan "):], pkg)}
	case strings.HasPrefix(ref, "func"):
		return &model.TypeInfo{Kind: model.Func}
	case ref == "any" || ref == "interface{}":
		return &model.TypeInfo{Kind: model.Interface}
	case primitiveNames[ref]:
		return &model.TypeInfo{Name: ref, Kind: model.Primitive, Primitive: true}
	}

	if t, ok := r.byFQN[ref]; ok {
		return t
	}
	if t, ok := r.byName[ref]; ok {
		return t
	}
	if idx := strings.LastIndex(ref, "."); idx > 0 {
		return r.shell(ref[:idx], ref[idx+1:])
	}
	if ref == "String" {
		return r.shell("java.lang", ref)
	}
	return r.shell(pkg, ref)
}

func (r *resolver) shell(pkg, name string) *model.TypeInfo {
	fqn := pkg + "." + name
	if t, ok := r.external[fqn]; ok {
		return t
	}
	t := &model.TypeInfo{Name: name, ImportPath: pkg, Kind: model.Class}
	r.external[fqn] = t
	return t
}

// splitMap splits "K]V" at the bracket closing the key.
func splitMap(s string) (key, val string, ok bool) {
	depth := 0
	for i, c := range s {
		switch c {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
			depth--
		}
	}
	return "", "", false
}

// typeRef is the inverse of resolve.
func typeRef(t *model.TypeInfo) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case model.Pointer:
		return "*" + typeRef(t.Elem)
	case model.Slice:
		if strings.HasSuffix(t.Name, "[]") {
			return typeRef(t.Elem) + "[]"
		}
		return "[]" + typeRef(t.Elem)
	case model.Array:
		return "[" + strconv.Itoa(t.ArrayLen) + "]" + typeRef(t.Elem)
	case model.Map:
		return "map[" + typeRef(t.Key) + "]" + typeRef(t.Elem)
	case model.Chan:
		return "chan " + typeRef(t.Elem)
	case model.Func:
		return "func"
	}
	if t.Name == "" {
		if t.Kind == model.Interface {
			return "any"
		}
		return t.SimpleName()
	}
	if t.ImportPath == "" {
		return t.Name
	}
	return t.FQN()
}
