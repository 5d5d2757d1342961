// Package planner decides which templates a file needs and where each one goes.
package planner

import (
	"fmt"
	"log/slog"

	"github.com/origadmin/annotgen/internal/model"
)

// Anchor selects which declaration line a class template is attached to.
type Anchor string

const (
	// AnchorConstructor places the class template before the first constructor.
	AnchorConstructor Anchor = "constructor"
	// AnchorDeclaration places the class template before the type declaration.
	AnchorDeclaration Anchor = "declaration"
)

// ParseAnchor validates an anchor name. The empty string selects the constructor anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case "", AnchorConstructor:
		return AnchorConstructor, nil
	case AnchorDeclaration:
		return AnchorDeclaration, nil
	}
	return "", fmt.Errorf("unknown anchor %q (want %q or %q)", s, AnchorConstructor, AnchorDeclaration)
}

// Skip reasons recorded in a Plan.
const (
	ReasonUnresolvable = "unresolvable metadata"
	ReasonRenderFailed = "render failed"
)

// Skip records a class or method that received no template.
type Skip struct {
	Owner  string
	Reason string
	Detail string
}

// Plan is the outcome of planning one file.
type Plan struct {
	Set     *model.AnnotationSet
	Skipped []Skip
}

// Options configures a Planner.
type Options struct {
	// IncludeMethodAnnotations also plans a template for every method whose
	// parameters or results involve a non-trivial type.
	IncludeMethodAnnotations bool
	// Recursive follows field, parameter and result types declared in the same file.
	Recursive bool
	Anchor    Anchor
}

// Renderer produces template text.
type Renderer interface {
	RenderClass(t *model.TypeInfo) (string, error)
	RenderMethod(owner *model.TypeInfo, m *model.MethodInfo) (string, error)
}

// Classifier decides whether a type is worth annotating.
type Classifier interface {
	IsPointless(t *model.TypeInfo) bool
}

// Planner builds AnnotationSets. It holds no per-run state, so one Planner may serve
// many files.
type Planner struct {
	renderer   Renderer
	classifier Classifier
	opts       Options
}

// NewPlanner creates a new planner.
func NewPlanner(renderer Renderer, classifier Classifier, opts Options) *Planner {
	if opts.Anchor == "" {
		opts.Anchor = AnchorConstructor
	}
	return &Planner{
		renderer:   renderer,
		classifier: classifier,
		opts:       opts,
	}
}

// run carries the state of a single Plan call.
type run struct {
	plan    *Plan
	visited map[string]struct{}
}

// Plan walks classes in input order and returns the position → template mapping.
func (p *Planner) Plan(classes []*model.TypeInfo) *Plan {
	r := &run{
		plan:    &Plan{Set: model.NewAnnotationSet()},
		visited: make(map[string]struct{}),
	}

	worklist := make([]*model.TypeInfo, 0, len(classes))
	worklist = append(worklist, classes...)
	for len(worklist) > 0 {
		class := worklist[0]
		worklist = worklist[1:]
		if class == nil {
			continue
		}

		key := class.FQN()
		if _, seen := r.visited[key]; seen {
			slog.Debug("Planner: class already visited", "class", key)
			continue
		}
		r.visited[key] = struct{}{}

		p.planClass(r, class)
		if p.opts.IncludeMethodAnnotations {
			p.planMethods(r, class)
		}
		if p.opts.Recursive {
			for _, dep := range p.dependencies(class) {
				if _, seen := r.visited[dep.FQN()]; !seen {
					slog.Debug("Planner: following dependency", "class", key, "dependency", dep.FQN())
					worklist = append(worklist, dep)
				}
			}
		}
	}

	slog.Debug("Planner: plan finished", "annotations", r.plan.Set.Len(), "skipped", len(r.plan.Skipped))
	return r.plan
}

func (p *Planner) planClass(r *run, class *model.TypeInfo) {
	owner := class.FQN()
	line := class.DeclLine
	if p.opts.Anchor == AnchorConstructor {
		line = class.CtorLine
	}
	if line <= 0 {
		slog.Warn("no source position for class, skipping", "class", owner, "anchor", string(p.opts.Anchor))
		r.skip(owner, ReasonUnresolvable, fmt.Sprintf("no %s line", p.opts.Anchor))
		return
	}

	pos := line - 1
	if r.plan.Set.Has(pos) {
		slog.Debug("Planner: position already annotated", "class", owner, "position", pos)
		return
	}

	text, err := p.renderer.RenderClass(class)
	if err != nil {
		slog.Warn("failed to render class template", "class", owner, "error", err)
		r.skip(owner, ReasonRenderFailed, err.Error())
		return
	}
	r.plan.Set.Add(&model.Annotation{Position: pos, Text: text, Indent: p.classIndent(class), Owner: owner})
}

// classIndent is the indentation level of a class template. Top-level classes are
// unindented and nested classes follow their nesting, whichever line anchors the template.
// A constructor declared outside any type (a Go New function) keeps its template at level 0.
func (p *Planner) classIndent(class *model.TypeInfo) int {
	if p.opts.Anchor == AnchorConstructor {
		return min(class.Depth, class.CtorDepth)
	}
	return class.Depth
}

func (p *Planner) planMethods(r *run, class *model.TypeInfo) {
	indent := p.classIndent(class) + 1
	for _, m := range class.Methods {
		if !p.isAnnotationWorthy(m) {
			continue
		}
		owner := class.FQN() + "." + m.Name
		if m.Line <= 0 {
			// declared in another file of the package
			slog.Debug("Planner: method outside the file", "method", owner)
			continue
		}

		pos := m.Line - 1
		if r.plan.Set.Has(pos) {
			continue
		}
		text, err := p.renderer.RenderMethod(class, m)
		if err != nil {
			slog.Warn("failed to render method template", "method", owner, "error", err)
			r.skip(owner, ReasonRenderFailed, err.Error())
			continue
		}
		r.plan.Set.Add(&model.Annotation{Position: pos, Text: text, Indent: indent, Owner: owner})
	}
}

// isAnnotationWorthy reports whether any parameter or result of m is a non-trivial type.
func (p *Planner) isAnnotationWorthy(m *model.MethodInfo) bool {
	for _, param := range m.Params {
		if !p.classifier.IsPointless(param.Type) {
			return true
		}
	}
	for _, res := range m.Results {
		if !p.classifier.IsPointless(res) {
			return true
		}
	}
	return false
}

// dependencies returns the declared, positioned types reachable from class members.
func (p *Planner) dependencies(class *model.TypeInfo) []*model.TypeInfo {
	var candidates []*model.TypeInfo
	for _, f := range class.Fields {
		candidates = append(candidates, f.Type)
	}
	for _, m := range class.Methods {
		candidates = append(candidates, m.ParamTypes()...)
		candidates = append(candidates, m.Results...)
	}

	var deps []*model.TypeInfo
	for _, c := range candidates {
		if p.classifier.IsPointless(c) {
			continue
		}
		for _, base := range declaredBases(c) {
			if base.HasPosition() {
				deps = append(deps, base)
			}
		}
	}
	return deps
}

// declaredBases unwraps pointers and unnamed composites down to declared types.
func declaredBases(t *model.TypeInfo) []*model.TypeInfo {
	var out []*model.TypeInfo
	var walk func(t *model.TypeInfo, depth int)
	walk = func(t *model.TypeInfo, depth int) {
		if t == nil || depth > 16 {
			return
		}
		if t.Kind.IsDeclared() {
			out = append(out, t)
			return
		}
		if t.Kind == model.Map {
			walk(t.Key, depth+1)
		}
		walk(t.Elem, depth+1)
	}
	walk(t, 0)
	return out
}

func (r *run) skip(owner, reason, detail string) {
	r.plan.Skipped = append(r.plan.Skipped, Skip{Owner: owner, Reason: reason, Detail: detail})
}
