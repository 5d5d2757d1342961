// Package template renders design-template comments for classes and methods.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/origadmin/annotgen/internal/model"
)

//go:embed *.tpl
var templates embed.FS

// layoutName is the template every layout file must define.
const layoutName = "template"

// Section titles, in the order they appear in a class template.
const (
	SectionFields          = "Fields"
	SectionMethods         = "Methods"
	SectionMethodsOfFields = "Methods of fields"

	SectionParameters       = "Parameters"
	SectionMethodsOfParams  = "Methods of parameters"
	SectionMethodsOfResults = "Methods of result"
)

// Classifier is the predicate the renderer uses to skip uninteresting member types.
type Classifier interface {
	IsPointless(t *model.TypeInfo) bool
}

// Options tunes which members are rendered.
type Options struct {
	// ExportedOnly drops non-exported fields and methods.
	ExportedOnly bool
}

// Section is one titled block of placeholder lines.
type Section struct {
	Title string
	Lines []string
}

// Data is passed to the layout template.
type Data struct {
	Owner    string
	Sections []Section
}

// Renderer turns type metadata into template text.
type Renderer struct {
	tmpl       *template.Template
	classifier Classifier
	opts       Options
}

// NewRenderer creates a renderer using the embedded layout.
func NewRenderer(classifier Classifier, opts Options) *Renderer {
	tmpl := template.Must(template.ParseFS(templates, "*.tpl"))
	return &Renderer{tmpl: tmpl, classifier: classifier, opts: opts}
}

// LoadExternalTemplates overrides the embedded layout with .tpl files found at paths
// (files or directories). Missing paths are ignored.
func (r *Renderer) LoadExternalTemplates(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	newTpl, err := r.tmpl.Clone()
	if err != nil {
		return fmt.Errorf("template clone failed: %w", err)
	}
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		files := []string{path}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(path, "*.tpl"))
			if err != nil {
				return fmt.Errorf("glob pattern error: %w", err)
			}
		}
		for _, f := range files {
			if _, err := newTpl.ParseFiles(f); err != nil {
				return fmt.Errorf("parse %s failed: %w", f, err)
			}
		}
	}
	if newTpl.Lookup(layoutName) == nil {
		return fmt.Errorf("external templates do not define %q", layoutName)
	}
	r.tmpl = newTpl
	return nil
}

// RenderField renders the placeholder line for one field.
func RenderField(f *model.FieldInfo) string {
	return "... this." + f.Name + " ... --" + f.Type.SimpleName()
}

// RenderMethodSignature renders a call placeholder for m. prefix is empty for the class's
// own methods and "<field>." for methods reached through a field.
func RenderMethodSignature(m *model.MethodInfo, prefix string) string {
	params := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, p.Type.SimpleName())
	}
	return "... this." + prefix + m.Name + "(" + strings.Join(params, " ") + ") ... --" + ResultName(m.Results)
}

// ResultName renders a method's result list: "void" for none, the simple name for one,
// and a parenthesized list for several.
func ResultName(results []*model.TypeInfo) string {
	switch len(results) {
	case 0:
		return "void"
	case 1:
		return results[0].SimpleName()
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.SimpleName())
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// RenderClass renders the class-level template for t.
func (r *Renderer) RenderClass(t *model.TypeInfo) (string, error) {
	fields := make([]string, 0, len(t.Fields))
	reachable := make([]string, 0)
	for _, f := range r.fields(t) {
		fields = append(fields, RenderField(f))
		if r.classifier.IsPointless(f.Type) {
			continue
		}
		reachable = append(reachable, r.memberCalls(f.Type, f.Name+".")...)
	}

	methods := make([]string, 0, len(t.Methods))
	for _, m := range r.methods(t) {
		methods = append(methods, RenderMethodSignature(m, ""))
	}

	return r.execute(Data{
		Owner: t.FQN(),
		Sections: []Section{
			{Title: SectionFields, Lines: fields},
			{Title: SectionMethods, Lines: methods},
			{Title: SectionMethodsOfFields, Lines: reachable},
		},
	})
}

// RenderMethod renders the method-level template for m declared on owner.
func (r *Renderer) RenderMethod(owner *model.TypeInfo, m *model.MethodInfo) (string, error) {
	params := make([]string, 0, len(m.Params))
	viaParams := make([]string, 0)
	for i, p := range m.Params {
		name := ParamName(p, i)
		params = append(params, "... "+name+" ... --"+p.Type.SimpleName())
		if r.classifier.IsPointless(p.Type) {
			continue
		}
		viaParams = append(viaParams, r.memberCalls(p.Type, name+".")...)
	}

	viaResults := make([]string, 0)
	for _, res := range m.Results {
		if r.classifier.IsPointless(res) {
			continue
		}
		viaResults = append(viaResults, r.memberCalls(res, m.Name+"().")...)
	}

	return r.execute(Data{
		Owner: owner.FQN() + "." + m.Name,
		Sections: []Section{
			{Title: SectionParameters, Lines: params},
			{Title: SectionMethods, Lines: []string{RenderMethodSignature(m, "")}},
			{Title: SectionMethodsOfParams, Lines: viaParams},
			{Title: SectionMethodsOfResults, Lines: viaResults},
		},
	})
}

// ParamName returns the declared parameter name, or argN for unnamed parameters.
func ParamName(p *model.ParamInfo, i int) string {
	if p.Name == "" || p.Name == "_" {
		return "arg" + strconv.Itoa(i)
	}
	return p.Name
}

// memberCalls lists the declared methods of typ (seen through pointers) as calls on prefix.
func (r *Renderer) memberCalls(typ *model.TypeInfo, prefix string) []string {
	base := typ.Deref()
	if base == nil {
		return nil
	}
	var out []string
	for _, m := range r.methods(base) {
		out = append(out, RenderMethodSignature(m, prefix))
	}
	return out
}

func (r *Renderer) fields(t *model.TypeInfo) []*model.FieldInfo {
	if !r.opts.ExportedOnly {
		return t.Fields
	}
	out := make([]*model.FieldInfo, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Exported {
			out = append(out, f)
		}
	}
	return out
}

func (r *Renderer) methods(t *model.TypeInfo) []*model.MethodInfo {
	if !r.opts.ExportedOnly {
		return t.Methods
	}
	out := make([]*model.MethodInfo, 0, len(t.Methods))
	for _, m := range t.Methods {
		if m.Exported {
			out = append(out, m)
		}
	}
	return out
}

func (r *Renderer) execute(data Data) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, layoutName, data); err != nil {
		return "", fmt.Errorf("render %s: %w", data.Owner, err)
	}
	return buf.String(), nil
}
