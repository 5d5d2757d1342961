package javasrc

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/origadmin/annotgen/internal/model"
)

// decl is a collected type declaration awaiting member resolution.
type decl struct {
	info       *model.TypeInfo
	node       *sitter.Node
	unit       *unit
	local      bool
	typeParams map[string]bool
}

// withTypeParams returns a view of d that also treats extra as type variables.
func (d *decl) withTypeParams(extra map[string]bool) *decl {
	if len(extra) == 0 {
		return d
	}
	merged := make(map[string]bool, len(d.typeParams)+len(extra))
	for k := range d.typeParams {
		merged[k] = true
	}
	for k := range extra {
		merged[k] = true
	}
	cp := *d
	cp.typeParams = merged
	return &cp
}

// resolver maps Java type names to TypeInfo values for one Load call.
type resolver struct {
	decls    []*decl
	declared map[string]*model.TypeInfo // simple and dotted names of package declarations
	external map[string]*model.TypeInfo // FQN -> shell for types outside the package
}

func newResolver() *resolver {
	return &resolver{
		declared: make(map[string]*model.TypeInfo),
		external: make(map[string]*model.TypeInfo),
	}
}

func (r *resolver) declare(d *decl) {
	r.decls = append(r.decls, d)
	name := d.info.Name
	if _, exists := r.declared[name]; !exists {
		r.declared[name] = d.info
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		if _, exists := r.declared[name[idx+1:]]; !exists {
			r.declared[name[idx+1:]] = d.info
		}
	}
}

// fill resolves fields, constructors and methods of every collected declaration.
func (r *resolver) fill() {
	for _, d := range r.decls {
		u := d.unit
		memberDepth := d.info.Depth + 1
		isInterface := d.info.Kind == model.Interface

		if d.node.Type() == "record_declaration" {
			// record components are fields
			for _, p := range r.params(d, d.node.ChildByFieldName("parameters")) {
				d.info.Fields = append(d.info.Fields, &model.FieldInfo{Name: p.Name, Type: p.Type})
			}
		}

		for _, m := range members(d.node) {
			switch m.Type() {
			case "field_declaration":
				mods := modifiers(u, m)
				typ := r.resolve(d, m.ChildByFieldName("type"))
				for i := 0; i < int(m.NamedChildCount()); i++ {
					v := m.NamedChild(i)
					if v.Type() != "variable_declarator" {
						continue
					}
					ft := typ
					if dims := v.ChildByFieldName("dimensions"); dims != nil {
						ft = arrayOf(ft, strings.Count(u.text(dims), "["))
					}
					d.info.Fields = append(d.info.Fields, &model.FieldInfo{
						Name:     u.text(v.ChildByFieldName("name")),
						Type:     ft,
						Exported: hasModifier(mods, "public"),
					})
				}

			case "constructor_declaration", "compact_constructor_declaration":
				if d.local && d.info.CtorLine == 0 {
					d.info.CtorLine = line(m)
					d.info.CtorDepth = memberDepth
				}

			case "method_declaration":
				mods := modifiers(u, m)
				scope := d.withTypeParams(typeParams(u, m))
				mi := &model.MethodInfo{
					Name:     u.text(m.ChildByFieldName("name")),
					Params:   r.params(scope, m.ChildByFieldName("parameters")),
					Exported: isInterface || hasModifier(mods, "public"),
				}
				res := m.ChildByFieldName("type")
				if res != nil && res.Type() != "void_type" {
					rt := r.resolve(scope, res)
					if dims := m.ChildByFieldName("dimensions"); dims != nil {
						rt = arrayOf(rt, strings.Count(u.text(dims), "["))
					}
					mi.Results = []*model.TypeInfo{rt}
				}
				if d.local {
					mi.Line = line(m)
					mi.Depth = memberDepth
				}
				d.info.Methods = append(d.info.Methods, mi)
			}
		}
	}
}

func (r *resolver) params(d *decl, n *sitter.Node) []*model.ParamInfo {
	if n == nil {
		return nil
	}
	u := d.unit
	var out []*model.ParamInfo
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			typ := r.resolve(d, p.ChildByFieldName("type"))
			if dims := p.ChildByFieldName("dimensions"); dims != nil {
				typ = arrayOf(typ, strings.Count(u.text(dims), "["))
			}
			out = append(out, &model.ParamInfo{Name: u.text(p.ChildByFieldName("name")), Type: typ})
		case "spread_parameter":
			var typ *model.TypeInfo
			var name string
			for j := 0; j < int(p.NamedChildCount()); j++ {
				c := p.NamedChild(j)
				switch {
				case c.Type() == "variable_declarator":
					name = u.text(c.ChildByFieldName("name"))
				case c.Type() != "modifiers" && typ == nil:
					typ = r.resolve(d, c)
				}
			}
			out = append(out, &model.ParamInfo{Name: name, Type: arrayOf(typ, 1)})
		}
	}
	return out
}

var primitives = map[string]bool{
	"byte": true, "short": true, "int": true, "long": true, "char": true,
	"float": true, "double": true, "boolean": true,
}

// javaLang lists the java.lang types that are commonly used unqualified.
var javaLang = map[string]bool{
	"String": true, "Object": true, "Integer": true, "Long": true, "Short": true, "Byte": true,
	"Character": true, "Boolean": true, "Double": true, "Float": true, "Number": true,
	"Math": true, "StringBuilder": true, "System": true, "Thread": true, "Runnable": true,
	"Iterable": true, "Comparable": true, "CharSequence": true, "Class": true, "Enum": true,
	"Exception": true, "RuntimeException": true, "Error": true, "Throwable": true, "Void": true,
}

// resolve maps a type node to a TypeInfo. Declared types are shared with their declaration.
func (r *resolver) resolve(d *decl, n *sitter.Node) *model.TypeInfo {
	if n == nil {
		return &model.TypeInfo{Kind: model.Unknown}
	}
	u := d.unit
	text := u.text(n)

	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type":
		return &model.TypeInfo{Name: text, Kind: model.Primitive, Primitive: true}
	case "void_type":
		return nil
	case "array_type":
		dims := strings.Count(u.text(n.ChildByFieldName("dimensions")), "[")
		return arrayOf(r.resolve(d, n.ChildByFieldName("element")), max(dims, 1))
	case "generic_type":
		// type arguments are not tracked
		if n.NamedChildCount() > 0 {
			return r.resolve(d, n.NamedChild(0))
		}
	case "scoped_type_identifier":
		if idx := strings.LastIndex(text, "."); idx > 0 {
			if t, ok := r.declared[text]; ok {
				return t
			}
			return r.externalType(text[:idx], text[idx+1:])
		}
	case "type_identifier":
		return r.named(d, text)
	}
	return &model.TypeInfo{Name: text, Kind: model.Unknown}
}

func (r *resolver) named(d *decl, name string) *model.TypeInfo {
	if primitives[name] {
		return &model.TypeInfo{Name: name, Kind: model.Primitive, Primitive: true}
	}
	if d.typeParams[name] {
		return &model.TypeInfo{Name: name, Kind: model.Unknown}
	}
	if pkg, ok := d.unit.imports[name]; ok {
		if t, ok := r.declared[name]; ok && t.ImportPath == pkg {
			return t
		}
		return r.externalType(pkg, name)
	}
	if t, ok := r.declared[name]; ok {
		return t
	}
	if javaLang[name] {
		return r.externalType("java.lang", name)
	}
	// same-package type whose source is not available
	return r.externalType(d.unit.pkg, name)
}

func (r *resolver) externalType(pkg, name string) *model.TypeInfo {
	fqn := pkg + "." + name
	if t, ok := r.external[fqn]; ok {
		return t
	}
	t := &model.TypeInfo{Name: name, ImportPath: pkg, Kind: model.Class}
	r.external[fqn] = t
	return t
}

// arrayOf wraps elem in dims array levels, named the Java way ("Point[]").
func arrayOf(elem *model.TypeInfo, dims int) *model.TypeInfo {
	t := elem
	for i := 0; i < dims; i++ {
		t = &model.TypeInfo{Name: t.SimpleName() + "[]", Kind: model.Slice, Elem: t}
	}
	return t
}
