package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/origadmin/annotgen/internal/annotator"
	"github.com/origadmin/annotgen/internal/config"
	"github.com/origadmin/annotgen/internal/planner"
	"github.com/origadmin/annotgen/internal/splice"
)

var annotateOverrides = []flagOverride{
	{flag: "methods", key: "annotate.include_method_annotations"},
	{flag: "anchor", key: "annotate.anchor"},
	{flag: "recursive", key: "annotate.recursive"},
	{flag: "exported-only", key: "annotate.exported_only"},
	{flag: "suffix", key: "annotate.suffix"},
	{flag: "indent", key: "annotate.indent"},
	{flag: "jobs", key: "annotate.jobs"},
	{flag: "templates", key: "annotate.templates"},
}

func newAnnotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate [flags] <file|directory>...",
		Short: "Insert template comments before constructors and methods",
		Long: "Acquire the declared types of each file, render a template for every class and\n" +
			"write an annotated copy next to it (or replace it with --write).",
		Args: cobra.MinimumNArgs(1),
		RunE: runAnnotate,
	}
	addPipelineFlags(cmd)
	cmd.Flags().Bool("write", false, "Replace the input files instead of writing <name>-annotated<ext>")
	cmd.Flags().Bool("stdout", false, "Print the annotated text instead of writing files")
	cmd.Flags().String("suffix", annotator.DefaultSuffix, "Suffix inserted before the extension of output files")
	cmd.Flags().IntP("jobs", "j", 0, "Number of files processed concurrently")
	return cmd
}

// addPipelineFlags registers the flags shared by annotate and inspect.
func addPipelineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolP("methods", "m", false, "Also annotate methods with non-trivial parameters or results")
	flags.String("anchor", string(planner.AnchorConstructor), "Class template anchor: constructor or declaration")
	flags.BoolP("recursive", "r", false, "Also annotate member types declared in the same file")
	flags.Bool("exported-only", false, "Only list exported or public members")
	flags.String("indent", "", "Indentation unit; empty selects a tab for Go and four spaces otherwise")
	flags.StringSlice("templates", nil, "Template files or directories overriding the built-in layout")
	flags.String("metadata", "", "YAML manifest describing the file instead of parsing it")
}

// newAnnotator loads the configuration with the command's flags and builds an Annotator.
func newAnnotator(cmd *cobra.Command, mode annotator.Mode) (*annotator.Annotator, *config.Config, error) {
	values := make(map[string]any)
	if err := overrides(cmd.Flags(), annotateOverrides, values); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(cmd, values)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := cmd.Flags().GetString("metadata")
	if err != nil {
		return nil, nil, err
	}

	anchor, err := planner.ParseAnchor(cfg.Annotate.Anchor)
	if err != nil {
		return nil, nil, err
	}
	a, err := annotator.New(annotator.Options{
		Planner: planner.Options{
			IncludeMethodAnnotations: cfg.Annotate.IncludeMethodAnnotations,
			Recursive:                cfg.Annotate.Recursive,
			Anchor:                   anchor,
		},
		ExportedOnly:     cfg.Annotate.ExportedOnly,
		ExcludedPrefixes: cfg.Annotate.ExcludedPrefixes,
		StdlibExcluded:   cfg.Annotate.StdlibExcluded,
		Indent:           cfg.Annotate.Indent,
		Suffix:           cfg.Annotate.Suffix,
		Mode:             mode,
		Metadata:         metadata,
		Templates:        cfg.Annotate.Templates,
		Jobs:             cfg.Annotate.Jobs,
	})
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	write, err := cmd.Flags().GetBool("write")
	if err != nil {
		return err
	}
	stdout, err := cmd.Flags().GetBool("stdout")
	if err != nil {
		return err
	}
	if write && stdout {
		return errors.New("--write and --stdout are mutually exclusive")
	}

	mode := annotator.ModeSibling
	switch {
	case write:
		mode = annotator.ModeInPlace
	case stdout:
		mode = annotator.ModeNone
	}

	a, cfg, err := newAnnotator(cmd, mode)
	if err != nil {
		return err
	}
	metadata, _ := cmd.Flags().GetString("metadata")
	if metadata != "" && len(args) != 1 {
		return errors.New("--metadata describes a single file")
	}

	paths, err := collectFiles(a, args, cfg.Annotate.Suffix)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no supported source files found")
	}

	results, err := a.RunAll(cmd.Context(), paths)
	if err != nil {
		return err
	}

	summary := cmd.OutOrStdout()
	if stdout {
		summary = cmd.ErrOrStderr()
		for _, res := range results {
			if res.Err != nil {
				continue
			}
			if err := splice.WriteLines(cmd.OutOrStdout(), res.Lines()); err != nil {
				return err
			}
		}
	}

	if failed := printSummary(summary, results); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// collectFiles expands directories into the supported files below them. Previously
// annotated copies, Go test files and hidden, vendor and testdata directories are skipped.
// Explicit files are kept as given.
func collectFiles(a *annotator.Annotator, args []string, suffix string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != arg && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
					return filepath.SkipDir
				}
				return nil
			}
			if !a.Supports(path) || strings.HasSuffix(name, "_test.go") {
				return nil
			}
			if suffix != "" && strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), suffix) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

// printSummary reports each result and returns the number of failures.
func printSummary(w io.Writer, results []*annotator.Result) int {
	ok := color.New(color.FgGreen, color.Bold)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed, color.Bold)

	var failed, annotations int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fail.Fprint(w, "✗ ")
			fmt.Fprintf(w, "%s: %v\n", res.Path, res.Err)
			continue
		}
		ok.Fprint(w, "✓ ")
		fmt.Fprint(w, res.Path)
		if res.Output != "" && res.Output != res.Path {
			fmt.Fprintf(w, " -> %s", res.Output)
		}
		fmt.Fprintf(w, " (%d classes, %d annotations", res.Classes, res.Splice.Applied)
		if n := len(res.Splice.Dropped); n > 0 {
			warn.Fprintf(w, ", %d dropped", n)
		}
		if n := len(res.Plan.Skipped); n > 0 {
			warn.Fprintf(w, ", %d skipped", n)
		}
		fmt.Fprintln(w, ")")
		annotations += res.Splice.Applied

		for _, skip := range res.Plan.Skipped {
			warn.Fprintf(w, "    skipped %s: %s (%s)\n", skip.Owner, skip.Reason, skip.Detail)
		}
		for _, drop := range res.Splice.Dropped {
			warn.Fprintf(w, "    dropped %s at line %d: %s\n", drop.Owner, drop.Position+1, drop.Reason)
		}
	}

	fmt.Fprintf(w, "%d files, %d annotations", len(results), annotations)
	if failed > 0 {
		fail.Fprintf(w, ", %d failed", failed)
	}
	fmt.Fprintln(w)
	return failed
}
