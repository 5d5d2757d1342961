// Package javasrc provides Java source metadata by parsing files with tree-sitter.
//
// Every class, interface and enum declared in the annotated file is reported together with
// its fields, constructors and methods. Member types are resolved against the declarations
// of the other .java files in the same directory, the file's single-type imports and the
// java.lang package.
package javasrc

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/origadmin/annotgen/internal/model"
)

// Source loads the declared types of a Java source file.
// A Source keeps no state between calls and may be shared by concurrent loads.
type Source struct {
	// SkipSiblings disables resolution against the other files of the directory.
	SkipSiblings bool
}

// NewSource creates a new Java metadata source.
func NewSource() *Source {
	return &Source{}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "java"
}

// Load parses path and returns its classes in declaration order, nested classes following
// their enclosing class.
func (s *Source) Load(ctx context.Context, path string) ([]*model.TypeInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var siblings map[string][]byte
	if !s.SkipSiblings {
		siblings = readSiblings(path)
	}
	return s.LoadSource(ctx, content, siblings)
}

// LoadSource is Load for in-memory content. siblings maps file names to the content of
// the other compilation units of the same package.
func (s *Source) LoadSource(ctx context.Context, content []byte, siblings map[string][]byte) ([]*model.TypeInfo, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	main, err := parseUnit(ctx, parser, content)
	if err != nil {
		return nil, err
	}
	defer main.tree.Close()
	if main.root.HasError() {
		return nil, fmt.Errorf("syntax error near line %d", firstErrorLine(main.root))
	}

	r := newResolver()
	main.collect(r, true)

	for _, name := range slices.Sorted(maps.Keys(siblings)) {
		unit, err := parseUnit(ctx, parser, siblings[name])
		if err != nil {
			return nil, err
		}
		if unit.root.HasError() {
			slog.Warn("skipping sibling with syntax errors", "file", name)
			unit.tree.Close()
			continue
		}
		if unit.pkg != main.pkg {
			unit.tree.Close()
			continue
		}
		unit.collect(r, false)
		defer unit.tree.Close()
	}

	r.fill()
	return main.classes, nil
}

// readSiblings returns the other .java files of the directory. Unreadable files are skipped.
func readSiblings(path string) map[string][]byte {
	dir := filepath.Dir(path)
	matches, err := filepath.Glob(filepath.Join(dir, "*.java"))
	if err != nil {
		return nil
	}
	base := filepath.Base(path)
	out := make(map[string][]byte, len(matches))
	for _, m := range matches {
		if filepath.Base(m) == base {
			continue
		}
		content, err := os.ReadFile(m)
		if err != nil {
			slog.Warn("skipping unreadable sibling", "file", m, "error", err)
			continue
		}
		out[filepath.Base(m)] = content
	}
	return out
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && c.HasError() {
			return firstErrorLine(c)
		}
	}
	return int(n.StartPoint().Row) + 1
}

// unit is one parsed compilation unit.
type unit struct {
	tree    *sitter.Tree
	root    *sitter.Node
	content []byte
	pkg     string
	imports map[string]string // simple name -> package

	classes []*model.TypeInfo
}

func parseUnit(ctx context.Context, parser *sitter.Parser, content []byte) (*unit, error) {
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse java source: %w", err)
	}
	u := &unit{
		tree:    tree,
		root:    tree.RootNode(),
		content: content,
		imports: make(map[string]string),
	}
	for i := 0; i < int(u.root.NamedChildCount()); i++ {
		n := u.root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			u.pkg = statementName(n.Content(content), "package")
		case "import_declaration":
			name := statementName(n.Content(content), "import")
			if strings.HasPrefix(name, "static ") || strings.HasSuffix(name, ".*") {
				continue
			}
			if idx := strings.LastIndex(name, "."); idx > 0 {
				u.imports[name[idx+1:]] = name[:idx]
			}
		}
	}
	return u, nil
}

// statementName extracts "a.b.C" from "keyword a.b.C;".
func statementName(text, keyword string) string {
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), keyword))
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	return strings.Join(strings.Fields(text), " ")
}

func (u *unit) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(u.content)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// collect registers every type declaration of the unit with r. Declarations of the annotated
// file (local) carry line numbers.
func (u *unit) collect(r *resolver, local bool) {
	for i := 0; i < int(u.root.NamedChildCount()); i++ {
		u.collectDecl(r, u.root.NamedChild(i), "", 0, nil, local)
	}
}

// collectDecl registers n and its nested declarations. enclosing holds the type parameters
// of the enclosing instance, which an inner (non-static) class can refer to.
func (u *unit) collectDecl(r *resolver, n *sitter.Node, outer string, depth int, enclosing map[string]bool, local bool) {
	kind, ok := declKinds[n.Type()]
	if !ok {
		return
	}
	name := u.text(n.ChildByFieldName("name"))
	if outer != "" {
		name = outer + "." + name
	}

	info := &model.TypeInfo{
		Name:       name,
		ImportPath: u.pkg,
		Kind:       kind,
		Depth:      depth,
	}
	if local {
		info.DeclLine = line(n)
		u.classes = append(u.classes, info)
	}
	d := &decl{info: info, node: n, unit: u, local: local, typeParams: typeParams(u, n)}
	if n.Type() == "class_declaration" && !hasModifier(modifiers(u, n), "static") {
		d = d.withTypeParams(enclosing)
	}
	r.declare(d)
	slog.Debug("Collected Java declaration", "type", info.FQN(), "local", local)

	// members of interfaces, enums and records are implicitly static
	var inner map[string]bool
	if n.Type() == "class_declaration" {
		inner = d.typeParams
	}
	for _, member := range members(n) {
		u.collectDecl(r, member, name, depth+1, inner, local)
	}
}

var declKinds = map[string]model.TypeKind{
	"class_declaration":     model.Class,
	"interface_declaration": model.Interface,
	"enum_declaration":      model.Class,
	"record_declaration":    model.Class,
}

// members returns the declarations inside a class, interface or enum body.
func members(n *sitter.Node) []*sitter.Node {
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				out = append(out, c.NamedChild(j))
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func typeParams(u *unit, n *sitter.Node) map[string]bool {
	tp := n.ChildByFieldName("type_parameters")
	if tp == nil {
		return nil
	}
	out := make(map[string]bool)
	for i := 0; i < int(tp.NamedChildCount()); i++ {
		p := tp.NamedChild(i)
		for j := 0; j < int(p.NamedChildCount()); j++ {
			if c := p.NamedChild(j); c.Type() == "type_identifier" || c.Type() == "identifier" {
				out[u.text(c)] = true
				break
			}
		}
	}
	return out
}

// modifiers returns the modifier keywords of a declaration.
func modifiers(u *unit, n *sitter.Node) []string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "modifiers" {
			return strings.Fields(u.text(c))
		}
	}
	return nil
}

func hasModifier(mods []string, want string) bool {
	for _, m := range mods {
		if m == want {
			return true
		}
	}
	return false
}
