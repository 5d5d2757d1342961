package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/origadmin/annotgen/internal/annotator"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [flags] <file>",
		Short: "Print the planned annotations of a file without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	addPipelineFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "Output format: text or yaml")
	return cmd
}

type inspectedAnnotation struct {
	Line   int    `yaml:"line"`
	Indent int    `yaml:"indent"`
	Owner  string `yaml:"owner"`
	Text   string `yaml:"text"`
}

type inspectedSkip struct {
	Owner  string `yaml:"owner"`
	Reason string `yaml:"reason"`
	Detail string `yaml:"detail,omitempty"`
}

type inspection struct {
	File        string                `yaml:"file"`
	Source      string                `yaml:"source"`
	Classes     int                   `yaml:"classes"`
	Annotations []inspectedAnnotation `yaml:"annotations"`
	Skipped     []inspectedSkip       `yaml:"skipped,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want text or yaml)", format)
	}

	a, _, err := newAnnotator(cmd, annotator.ModeNone)
	if err != nil {
		return err
	}
	res, err := a.Plan(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	in := newInspection(res)
	if format == "yaml" {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(in); err != nil {
			return err
		}
		return enc.Close()
	}
	return printInspection(cmd.OutOrStdout(), in)
}

func newInspection(res *annotator.Result) *inspection {
	in := &inspection{
		File:        res.Path,
		Source:      res.Source,
		Classes:     res.Classes,
		Annotations: []inspectedAnnotation{},
	}
	for _, ann := range res.Plan.Set.Sorted() {
		in.Annotations = append(in.Annotations, inspectedAnnotation{
			Line:   ann.Position + 1,
			Indent: ann.Indent,
			Owner:  ann.Owner,
			Text:   ann.Text,
		})
	}
	for _, skip := range res.Plan.Skipped {
		in.Skipped = append(in.Skipped, inspectedSkip(skip))
	}
	return in
}

func printInspection(w io.Writer, in *inspection) error {
	if _, err := fmt.Fprintf(w, "%s (%s, %d classes)\n", in.File, in.Source, in.Classes); err != nil {
		return err
	}
	for _, ann := range in.Annotations {
		if _, err := fmt.Fprintf(w, "\nbefore line %d, indent %d: %s\n", ann.Line, ann.Indent, ann.Owner); err != nil {
			return err
		}
		for _, line := range strings.Split(ann.Text, "\n") {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	if len(in.Skipped) > 0 {
		if _, err := fmt.Fprintln(w, "\nskipped:"); err != nil {
			return err
		}
		for _, skip := range in.Skipped {
			if _, err := fmt.Fprintf(w, "  %s: %s (%s)\n", skip.Owner, skip.Reason, skip.Detail); err != nil {
				return err
			}
		}
	}
	return nil
}
