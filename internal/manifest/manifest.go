// Package manifest provides precomputed metadata read from a YAML file. It lets any
// language be annotated as long as some other tool can describe its classes.
//
// Example:
//
//	source: Segment.java
//	classes:
//	  - name: Segment
//	    package: edu.geo
//	    line: 5
//	    ctor_line: 10
//	    fields:
//	      - {name: from, type: Point}
//	    methods:
//	      - name: shift
//	        line: 15
//	        exported: true
//	        params: [{name: by, type: Point}]
//	        results: [Segment]
//	  - name: Point
//	    package: edu.geo
//	    external: true
//	    methods:
//	      - {name: getX, results: [int]}
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/origadmin/annotgen/internal/model"
)

// File is the YAML document.
type File struct {
	// Source optionally names the file the manifest describes.
	Source  string  `yaml:"source,omitempty"`
	Classes []Class `yaml:"classes"`
}

// Class describes one declared type.
type Class struct {
	Name    string `yaml:"name"`
	Package string `yaml:"package,omitempty"`
	Kind    string `yaml:"kind,omitempty"`
	// External classes are only used to resolve member types and are never annotated.
	External bool `yaml:"external,omitempty"`

	Line      int  `yaml:"line,omitempty"`
	Depth     int  `yaml:"depth,omitempty"`
	CtorLine  int  `yaml:"ctor_line,omitempty"`
	CtorDepth *int `yaml:"ctor_depth,omitempty"`

	Fields  []Field  `yaml:"fields,omitempty"`
	Methods []Method `yaml:"methods,omitempty"`
}

// Field describes a declared field.
type Field struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Exported bool   `yaml:"exported,omitempty"`
	Embedded bool   `yaml:"embedded,omitempty"`
}

// Param describes a method parameter.
type Param struct {
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`
}

// Method describes a declared method.
type Method struct {
	Name     string   `yaml:"name"`
	Exported bool     `yaml:"exported,omitempty"`
	Line     int      `yaml:"line,omitempty"`
	Depth    *int     `yaml:"depth,omitempty"`
	Params   []Param  `yaml:"params,omitempty"`
	Results  []string `yaml:"results,omitempty"`
}

// Source serves the classes of a manifest file.
type Source struct {
	path string
}

// NewSource creates a source backed by the manifest at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "manifest"
}

// Load reads the manifest and returns its non-external classes. sourcePath is the file
// being annotated; a mismatch with the manifest's source entry is only logged.
func (s *Source) Load(ctx context.Context, sourcePath string) ([]*model.TypeInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", s.path, err)
	}
	if m.Source != "" && sourcePath != "" && filepath.Base(m.Source) != filepath.Base(sourcePath) {
		slog.Warn("manifest describes a different file", "manifest", s.path, "source", m.Source, "file", sourcePath)
	}
	return m.TypeInfos(), nil
}

// Decode parses and validates a manifest. Unknown keys are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m File
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty manifest")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every class, member and type reference is named.
func (m *File) Validate() error {
	var errs []error
	for i, c := range m.Classes {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("classes[%d]: missing name", i))
			continue
		}
		if c.Kind != "" && !model.ParseKind(c.Kind).IsDeclared() {
			errs = append(errs, fmt.Errorf("class %s: kind %q does not declare members", c.Name, c.Kind))
		}
		for j, f := range c.Fields {
			if f.Name == "" || f.Type == "" {
				errs = append(errs, fmt.Errorf("class %s: fields[%d] needs name and type", c.Name, j))
			}
		}
		for j, mm := range c.Methods {
			if mm.Name == "" {
				errs = append(errs, fmt.Errorf("class %s: methods[%d]: missing name", c.Name, j))
			}
			for k, p := range mm.Params {
				if p.Type == "" {
					errs = append(errs, fmt.Errorf("method %s.%s: params[%d]: missing type", c.Name, mm.Name, k))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// TypeInfos converts the manifest into model values. External classes take part in type
// resolution but are not returned.
func (m *File) TypeInfos() []*model.TypeInfo {
	r := newResolver()
	infos := make([]*model.TypeInfo, len(m.Classes))
	for i, c := range m.Classes {
		kind := model.Class
		if c.Kind != "" {
			kind = model.ParseKind(c.Kind)
		}
		info := &model.TypeInfo{
			Name:       c.Name,
			ImportPath: c.Package,
			Kind:       kind,
			Depth:      c.Depth,
		}
		if !c.External {
			info.DeclLine = c.Line
			info.CtorLine = c.CtorLine
			info.CtorDepth = c.Depth + 1
			if c.CtorDepth != nil {
				info.CtorDepth = *c.CtorDepth
			}
		}
		r.declare(info)
		infos[i] = info
	}

	var out []*model.TypeInfo
	for i, c := range m.Classes {
		info := infos[i]
		for _, f := range c.Fields {
			info.Fields = append(info.Fields, &model.FieldInfo{
				Name:     f.Name,
				Type:     r.resolve(f.Type, c.Package),
				Exported: f.Exported,
				Embedded: f.Embedded,
			})
		}
		for _, mm := range c.Methods {
			mi := &model.MethodInfo{Name: mm.Name, Exported: mm.Exported}
			for _, p := range mm.Params {
				mi.Params = append(mi.Params, &model.ParamInfo{Name: p.Name, Type: r.resolve(p.Type, c.Package)})
			}
			for _, res := range mm.Results {
				mi.Results = append(mi.Results, r.resolve(res, c.Package))
			}
			if !c.External {
				mi.Line = mm.Line
				mi.Depth = c.Depth + 1
				if mm.Depth != nil {
					mi.Depth = *mm.Depth
				}
			}
			info.Methods = append(info.Methods, mi)
		}
		if !c.External {
			out = append(out, info)
		}
	}
	return out
}

// Encode writes m as YAML.
func Encode(w io.Writer, m *File) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FromTypeInfos describes classes as a manifest for source. Types of the same packages that
// are referenced by members but not listed in classes are added as external entries.
func FromTypeInfos(source string, classes []*model.TypeInfo) *File {
	m := &File{Source: source}
	seen := make(map[string]bool)
	pkgs := make(map[string]bool)
	for _, t := range classes {
		if t != nil {
			pkgs[t.ImportPath] = true
		}
	}
	var pending []*model.TypeInfo

	add := func(t *model.TypeInfo, external bool) {
		c := Class{
			Name:     t.Name,
			Package:  t.ImportPath,
			Kind:     t.Kind.String(),
			External: external,
			Depth:    t.Depth,
		}
		if !external {
			c.Line = t.DeclLine
			c.CtorLine = t.CtorLine
			if t.CtorDepth != t.Depth+1 {
				depth := t.CtorDepth
				c.CtorDepth = &depth
			}
		}
		for _, f := range t.Fields {
			c.Fields = append(c.Fields, Field{Name: f.Name, Type: typeRef(f.Type), Exported: f.Exported, Embedded: f.Embedded})
			pending = append(pending, f.Type)
		}
		for _, mi := range t.Methods {
			mm := Method{Name: mi.Name, Exported: mi.Exported}
			if !external {
				mm.Line = mi.Line
				if mi.Depth != t.Depth+1 {
					depth := mi.Depth
					mm.Depth = &depth
				}
			}
			for _, p := range mi.Params {
				mm.Params = append(mm.Params, Param{Name: p.Name, Type: typeRef(p.Type)})
				pending = append(pending, p.Type)
			}
			for _, r := range mi.Results {
				mm.Results = append(mm.Results, typeRef(r))
				pending = append(pending, r)
			}
			c.Methods = append(c.Methods, mm)
		}
		m.Classes = append(m.Classes, c)
	}

	for _, t := range classes {
		if t == nil || seen[t.FQN()] {
			continue
		}
		seen[t.FQN()] = true
		add(t, false)
	}
	for len(pending) > 0 {
		t := pending[0].Deref()
		pending = pending[1:]
		for t != nil && !t.Kind.IsDeclared() && t.Elem != nil {
			if t.Key != nil {
				pending = append(pending, t.Key)
			}
			t = t.Elem.Deref()
		}
		if t == nil || !t.Kind.IsDeclared() || t.Name == "" || !pkgs[t.ImportPath] || seen[t.FQN()] {
			continue
		}
		if len(t.Fields) == 0 && len(t.Methods) == 0 {
			continue
		}
		seen[t.FQN()] = true
		add(t, true)
	}
	return m
}
