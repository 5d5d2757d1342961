package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/origadmin/annotgen/internal/annotator"
	"github.com/origadmin/annotgen/internal/manifest"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [flags] <file>",
		Short: "Write the acquired type metadata of a file as a YAML manifest",
		Long: "Write the classes found in a Go or Java file as a manifest that annotate --metadata\n" +
			"accepts. The manifest can be edited and used for languages without a parser.",
		Args: cobra.ExactArgs(1),
		RunE: runDump,
	}
	cmd.Flags().StringP("output", "o", "", "Manifest file to write. Defaults to stdout.")
	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	a, err := annotator.New(annotator.Options{Templates: cfg.Annotate.Templates})
	if err != nil {
		return err
	}

	classes, _, err := a.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := manifest.Encode(&buf, manifest.FromTypeInfos(filepath.Base(args[0]), classes)); err != nil {
		return err
	}
	if output == "" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0o644)
}
