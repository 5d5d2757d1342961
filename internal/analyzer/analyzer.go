// Package analyzer provides Go source metadata by loading the package that contains a file
// and converting its go/types objects into model.TypeInfo values.
package analyzer

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/origadmin/annotgen/internal/model"
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedModule |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports

// Source loads the declared types of a Go source file.
// A Source keeps no state between calls and may be shared by concurrent loads.
type Source struct {
	// BuildFlags are passed to the underlying build system, e.g. "-tags=integration".
	BuildFlags []string
	// ExcludedSuffix marks annotated copies written next to their originals, such as
	// geo-annotated.go. Those files redeclare everything of the original, so only their
	// package clause is parsed.
	ExcludedSuffix string
}

// NewSource creates a new Go metadata source.
func NewSource() *Source {
	return &Source{}
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "go"
}

// Load type-checks the package that contains path and returns, in declaration order, every
// struct type and every other non-interface named type with methods declared in that file.
// Member types are resolved against the whole package and its imports; declaration lines
// are only reported for entities inside path.
func (s *Source) Load(ctx context.Context, path string) ([]*model.TypeInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg := &packages.Config{
		Context:    ctx,
		Mode:       loadMode,
		Dir:        filepath.Dir(abs),
		Tests:      false,
		BuildFlags: s.BuildFlags,
		ParseFile:  s.parseFile(abs),
	}
	slog.Debug("Loading Go package", "file", abs, "dir", cfg.Dir)
	pkgs, err := packages.Load(cfg, "file="+abs)
	if err != nil {
		return nil, fmt.Errorf("failed to load package for %s: %w", path, err)
	}

	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("error loading package %s: %v", pkg.PkgPath, pkg.Errors)
		}
		for _, file := range pkg.Syntax {
			if sameFile(pkg.Fset.Position(file.Package).Filename, abs) {
				l := newLoader(pkg, file)
				return l.classes(), nil
			}
		}
	}
	return nil, fmt.Errorf("no package contains %s (excluded by build constraints?)", path)
}

// parseFile returns a packages.Config.ParseFile hook that reduces annotated copies to their
// package clause. target is always parsed in full.
func (s *Source) parseFile(target string) func(*token.FileSet, string, []byte) (*ast.File, error) {
	return func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
		mode := parser.AllErrors | parser.ParseComments
		if s.isAnnotatedCopy(filename) && !sameFile(filename, target) {
			slog.Debug("Ignoring annotated copy", "file", filename)
			mode = parser.PackageClauseOnly
		}
		return parser.ParseFile(fset, filename, src, mode)
	}
}

func (s *Source) isAnnotatedCopy(filename string) bool {
	if s.ExcludedSuffix == "" {
		return false
	}
	base := filepath.Base(filename)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), s.ExcludedSuffix)
}

// loader carries the state of one Load call.
type loader struct {
	pkg       *packages.Package
	file      *ast.File
	typeCache map[types.Type]*model.TypeInfo
	funcLines map[*types.Func]int
}

func newLoader(pkg *packages.Package, file *ast.File) *loader {
	return &loader{
		pkg:       pkg,
		file:      file,
		typeCache: make(map[types.Type]*model.TypeInfo),
		funcLines: make(map[*types.Func]int),
	}
}

func (l *loader) line(pos token.Pos) int {
	return l.pkg.Fset.Position(pos).Line
}

// classes walks the top-level declarations of the file in source order.
func (l *loader) classes() []*model.TypeInfo {
	var (
		classes []*model.TypeInfo
		named   []*types.Named
		ctors   []*ast.FuncDecl
	)

	for _, decl := range l.file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			depth := 0
			if d.Lparen.IsValid() {
				depth = 1
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				obj, ok := l.pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
				if !ok || obj.IsAlias() {
					continue
				}
				n, ok := obj.Type().(*types.Named)
				if !ok || !isClass(n) {
					slog.Debug("Skipping type without members", "type", obj.Name())
					continue
				}
				info := l.resolveType(n)
				info.DeclLine = l.line(ts.Pos())
				info.Depth = depth
				classes = append(classes, info)
				named = append(named, n)
			}
		case *ast.FuncDecl:
			fn, ok := l.pkg.TypesInfo.Defs[d.Name].(*types.Func)
			if !ok {
				continue
			}
			if d.Recv != nil {
				l.funcLines[fn] = l.line(d.Pos())
				continue
			}
			if strings.HasPrefix(d.Name.Name, "New") {
				ctors = append(ctors, d)
			}
		}
	}

	for i, info := range classes {
		n := named[i]
		if info.Kind != model.Interface && len(info.Methods) == n.NumMethods() {
			for j := 0; j < n.NumMethods(); j++ {
				if line, ok := l.funcLines[n.Method(j)]; ok {
					info.Methods[j].Line = line
				}
			}
		}
		if ctor := l.constructorOf(n, ctors); ctor != nil {
			info.CtorLine = l.line(ctor.Pos())
			slog.Debug("Found constructor", "type", info.Name, "func", ctor.Name.Name, "line", info.CtorLine)
		}
	}
	return classes
}

// constructorOf returns the first New* function whose first result is n or *n.
func (l *loader) constructorOf(n *types.Named, ctors []*ast.FuncDecl) *ast.FuncDecl {
	for _, fd := range ctors {
		fn, ok := l.pkg.TypesInfo.Defs[fd.Name].(*types.Func)
		if !ok {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.Results().Len() == 0 {
			continue
		}
		res := sig.Results().At(0).Type()
		if p, ok := res.(*types.Pointer); ok {
			res = p.Elem()
		}
		if rn, ok := res.(*types.Named); ok && rn.Obj() == n.Obj() {
			return fd
		}
	}
	return nil
}

// isClass reports whether a declared type can own a template: structs, and any other
// non-interface type that declares methods.
func isClass(n *types.Named) bool {
	switch n.Underlying().(type) {
	case *types.Struct:
		return true
	case *types.Interface:
		return false
	}
	return n.NumMethods() > 0
}

func (l *loader) resolveType(typ types.Type) *model.TypeInfo {
	if typ == nil {
		return nil
	}
	if cached, exists := l.typeCache[typ]; exists {
		return cached
	}

	info := &model.TypeInfo{}
	l.typeCache[typ] = info

	switch t := typ.(type) {
	case *types.Alias: // 'type T = other.Type' resolves to its target
		resolved := l.resolveType(types.Unalias(t))
		l.typeCache[typ] = resolved
		return resolved

	case *types.Named:
		obj := t.Obj()
		info.Name = obj.Name()
		if obj.Pkg() == nil {
			// universe types such as error and comparable
			info.Kind = model.Primitive
			info.Primitive = true
			return info
		}
		info.ImportPath = obj.Pkg().Path()

		switch u := t.Underlying().(type) {
		case *types.Struct:
			info.Kind = model.Struct
			info.Fields = l.parseFields(u)
			info.Methods = l.parseMethods(t.NumMethods(), t.Method)
		case *types.Interface:
			info.Kind = model.Interface
			info.Methods = l.parseMethods(u.NumMethods(), u.Method)
		default:
			info.Kind = model.Named
			info.Methods = l.parseMethods(t.NumMethods(), t.Method)
		}

	case *types.Pointer:
		info.Kind = model.Pointer
		info.Elem = l.resolveType(t.Elem())
	case *types.Slice:
		info.Kind = model.Slice
		info.Elem = l.resolveType(t.Elem())
	case *types.Array:
		info.Kind = model.Array
		info.ArrayLen = int(t.Len())
		info.Elem = l.resolveType(t.Elem())
	case *types.Map:
		info.Kind = model.Map
		info.Key = l.resolveType(t.Key())
		info.Elem = l.resolveType(t.Elem())
	case *types.Chan:
		info.Kind = model.Chan
		info.Elem = l.resolveType(t.Elem())
	case *types.Struct:
		info.Kind = model.Struct
		info.Fields = l.parseFields(t)
	case *types.Basic:
		info.Kind = model.Primitive
		info.Primitive = true
		info.Name = t.Name()
	case *types.Interface:
		info.Kind = model.Interface
		info.Methods = l.parseMethods(t.NumMethods(), t.Method)
	case *types.Signature:
		info.Kind = model.Func
	default:
		info.Kind = model.Unknown
		info.Name = t.String()
	}
	return info
}

// parseFields returns every field regardless of visibility. Embedded fields are kept as
// fields named after their type.
func (l *loader) parseFields(s *types.Struct) []*model.FieldInfo {
	fields := make([]*model.FieldInfo, 0, s.NumFields())
	for i := 0; i < s.NumFields(); i++ {
		f := s.Field(i)
		fields = append(fields, &model.FieldInfo{
			Name:     f.Name(),
			Type:     l.resolveType(f.Type()),
			Exported: f.Exported(),
			Embedded: f.Embedded(),
		})
	}
	return fields
}

func (l *loader) parseMethods(n int, method func(int) *types.Func) []*model.MethodInfo {
	if n == 0 {
		return nil
	}
	methods := make([]*model.MethodInfo, 0, n)
	for i := 0; i < n; i++ {
		fn := method(i)
		sig := fn.Type().(*types.Signature)
		mi := &model.MethodInfo{
			Name:     fn.Name(),
			Exported: fn.Exported(),
		}
		for j := 0; j < sig.Params().Len(); j++ {
			v := sig.Params().At(j)
			mi.Params = append(mi.Params, &model.ParamInfo{Name: v.Name(), Type: l.resolveType(v.Type())})
		}
		for j := 0; j < sig.Results().Len(); j++ {
			mi.Results = append(mi.Results, l.resolveType(sig.Results().At(j).Type()))
		}
		methods = append(methods, mi)
	}
	return methods
}

func sameFile(a, b string) bool {
	if a == b {
		return true
	}
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
