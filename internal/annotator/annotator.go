// Package annotator drives a full run: it picks a metadata source for each file, plans the
// templates, splices them into the text and writes the annotated copy.
package annotator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/origadmin/annotgen/internal/analyzer"
	"github.com/origadmin/annotgen/internal/classify"
	"github.com/origadmin/annotgen/internal/javasrc"
	"github.com/origadmin/annotgen/internal/manifest"
	"github.com/origadmin/annotgen/internal/model"
	"github.com/origadmin/annotgen/internal/planner"
	"github.com/origadmin/annotgen/internal/splice"
	"github.com/origadmin/annotgen/internal/template"
)

// Source acquires the declared types of a file.
type Source interface {
	Name() string
	Load(ctx context.Context, path string) ([]*model.TypeInfo, error)
}

// Mode selects where annotated output goes.
type Mode int

const (
	// ModeSibling writes <base><suffix><ext> next to the input.
	ModeSibling Mode = iota
	// ModeInPlace replaces the input file.
	ModeInPlace
	// ModeNone only returns the annotated lines.
	ModeNone
)

// DefaultSuffix is inserted before the extension of sibling output files.
const DefaultSuffix = "-annotated"

// Options configures an Annotator.
type Options struct {
	Planner      planner.Options
	ExportedOnly bool
	// ExcludedPrefixes are namespaces whose types are never described.
	ExcludedPrefixes []string
	// StdlibExcluded treats Go standard library types as not worth describing.
	StdlibExcluded bool
	// Indent is the unit repeated per nesting level. Empty selects a tab for Go
	// and four spaces otherwise.
	Indent string
	Suffix string
	Mode   Mode
	// Metadata, when set, names a YAML manifest used instead of parsing the files.
	Metadata string
	// Templates are extra layout files or directories overriding the embedded one.
	Templates []string
	Jobs      int
}

// Result is the outcome for one file.
type Result struct {
	Path string
	// Output is the written file, empty in ModeNone or on failure.
	Output  string
	Source  string
	Classes int
	Plan    *planner.Plan
	Splice  *splice.Result
	Err     error
}

// Lines returns the annotated line sequence.
func (r *Result) Lines() []string {
	if r == nil || r.Splice == nil {
		return nil
	}
	return r.Splice.Lines
}

// flavor bundles what differs between Go and other sources.
type flavor struct {
	planner *planner.Planner
	indent  string
}

// Annotator runs the pipeline. It is safe for concurrent use; every call plans with its
// own AnnotationSet.
type Annotator struct {
	opts    Options
	sources map[string]Source
	goLike  *flavor
	generic *flavor
}

// New creates an Annotator. It fails if external templates cannot be loaded.
func New(opts Options) (*Annotator, error) {
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	a := &Annotator{
		opts: opts,
		sources: map[string]Source{
			".go":   &analyzer.Source{ExcludedSuffix: opts.Suffix},
			".java": javasrc.NewSource(),
		},
	}

	var err error
	if a.goLike, err = a.newFlavor(opts.StdlibExcluded, "\t"); err != nil {
		return nil, err
	}
	if a.generic, err = a.newFlavor(false, "    "); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Annotator) newFlavor(stdlib bool, indent string) (*flavor, error) {
	c := classify.New(a.opts.ExcludedPrefixes, stdlib)
	r := template.NewRenderer(c, template.Options{ExportedOnly: a.opts.ExportedOnly})
	if err := r.LoadExternalTemplates(a.opts.Templates...); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if a.opts.Indent != "" {
		indent = a.opts.Indent
	}
	return &flavor{planner: planner.NewPlanner(r, c, a.opts.Planner), indent: indent}, nil
}

// RegisterSource binds a metadata source to a file extension such as ".kt".
func (a *Annotator) RegisterSource(ext string, src Source) {
	a.sources[strings.ToLower(ext)] = src
}

func (a *Annotator) sourceFor(path string) (Source, error) {
	if a.opts.Metadata != "" {
		return manifest.NewSource(a.opts.Metadata), nil
	}
	if src, ok := a.sources[strings.ToLower(filepath.Ext(path))]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedSource)
}

func (a *Annotator) flavorFor(path string) *flavor {
	if strings.EqualFold(filepath.Ext(path), ".go") {
		return a.goLike
	}
	return a.generic
}

// Supports reports whether a source is registered for the extension of path.
func (a *Annotator) Supports(path string) bool {
	_, err := a.sourceFor(path)
	return err == nil
}

// Load acquires the declared types of path and returns them with the name of the source
// that produced them.
func (a *Annotator) Load(ctx context.Context, path string) ([]*model.TypeInfo, string, error) {
	src, err := a.sourceFor(path)
	if err != nil {
		return nil, "", err
	}
	slog.Debug("Acquiring metadata", "file", path, "source", src.Name())
	classes, err := src.Load(ctx, path)
	if err != nil {
		return nil, src.Name(), &AcquisitionError{Path: path, Source: src.Name(), Err: err}
	}
	return classes, src.Name(), nil
}

// Plan acquires the metadata of path and plans its templates without touching the file.
func (a *Annotator) Plan(ctx context.Context, path string) (*Result, error) {
	res := &Result{Path: path}
	classes, source, err := a.Load(ctx, path)
	res.Source = source
	if err != nil {
		return res, err
	}
	res.Classes = len(classes)

	res.Plan = a.flavorFor(path).planner.Plan(classes)
	slog.Info("Planned annotations", "file", path, "classes", len(classes),
		"annotations", res.Plan.Set.Len(), "skipped", len(res.Plan.Skipped))
	return res, nil
}

// Annotate plans path, splices the templates into its text and writes the result
// according to the configured Mode.
func (a *Annotator) Annotate(ctx context.Context, path string) (*Result, error) {
	res, err := a.Plan(ctx, path)
	if err != nil {
		return res, err
	}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open source: %w", err)
	}
	lines, err := splice.ReadLines(f)
	f.Close()
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	res.Splice = splice.Splice(lines, res.Plan.Set, a.flavorFor(path).indent)

	var out string
	switch a.opts.Mode {
	case ModeSibling:
		out = OutputPath(path, a.opts.Suffix)
	case ModeInPlace:
		out = path
	default:
		return res, nil
	}
	if err := writeFile(out, res.Splice.Lines, path); err != nil {
		return res, err
	}
	res.Output = out
	slog.Info("Wrote annotated file", "file", out, "applied", res.Splice.Applied, "dropped", len(res.Splice.Dropped))
	return res, nil
}

// RunAll annotates paths concurrently, at most Jobs at a time. Results keep the input
// order; a failing file records its error in Result.Err and does not stop the others.
// The returned error is only set when ctx is canceled.
func (a *Annotator) RunAll(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	jobs := a.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = &Result{Path: path, Err: gctx.Err()}
				return gctx.Err()
			default:
			}

			res, err := a.Annotate(gctx, path)
			if err != nil {
				slog.Warn("Annotation failed", "file", path, "error", err)
				res.Err = err
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

// OutputPath returns path with suffix inserted before its extension.
func OutputPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// writeFile replaces dst atomically, keeping the permissions of like.
func writeFile(dst string, lines []string, like string) error {
	perm := os.FileMode(0o644)
	if st, err := os.Stat(like); err == nil {
		perm = st.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := splice.WriteLines(tmp, lines); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}
