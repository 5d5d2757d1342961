package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/origadmin/annotgen/internal/annotator"
	"github.com/origadmin/annotgen/internal/manifest"
)

func copyJava(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join("..", "..", "testdata", "java", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}
	return dir
}

// execute runs the CLI from an empty working directory so no annotgen.toml is picked up.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	closeLog()
	return stdout.String(), stderr.String(), err
}

func TestAnnotate_Directory(t *testing.T) {
	dir := copyJava(t, "Segment.java", "Point.java")

	out, _, err := execute(t, "annotate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Segment-annotated.java (3 classes, 2 annotations, 1 skipped)")
	assert.Contains(t, out, "skipped edu.geo.Shape: unresolvable metadata")
	assert.Contains(t, out, "2 files, ")
	assert.FileExists(t, filepath.Join(dir, "Segment-annotated.java"))
	assert.FileExists(t, filepath.Join(dir, "Point-annotated.java"))

	// annotated copies are not picked up again
	out, _, err = execute(t, "annotate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files, ")
}

func TestAnnotate_GoDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/geo\n\ngo 1.24\n"), 0o644))
	for _, name := range []string{"geo.go", "shapes.go"} {
		content, err := os.ReadFile(filepath.Join("..", "..", "testdata", "geo", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}

	for run := 1; run <= 2; run++ {
		out, _, err := execute(t, "annotate", "--methods", "--jobs", "2", dir)
		require.NoError(t, err, "run %d: %s", run, out)
		assert.Contains(t, out, "2 files, ", "run %d", run)
		assert.NotContains(t, out, "✗", "run %d", run)
	}
	assert.FileExists(t, filepath.Join(dir, "geo-annotated.go"))
	assert.FileExists(t, filepath.Join(dir, "shapes-annotated.go"))
	assert.NoFileExists(t, filepath.Join(dir, "geo-annotated-annotated.go"))
}

func TestAnnotate_Stdout(t *testing.T) {
	dir := copyJava(t, "Segment.java", "Point.java")
	src := filepath.Join(dir, "Segment.java")

	out, errOut, err := execute(t, "annotate", "--stdout", "--methods", "--indent", "  ", src)
	require.NoError(t, err)
	assert.Contains(t, out, "\n// In edu.geo.Segment\n")
	assert.Contains(t, out, "\n  // In edu.geo.Segment.shift\n")
	assert.Contains(t, out, "\n  // In edu.geo.Segment.Cache\n")
	assert.Contains(t, out, "\n    // In edu.geo.Segment.Cache.get\n")
	assert.Contains(t, errOut, "1 files, ")

	_, err = os.Stat(filepath.Join(dir, "Segment-annotated.java"))
	assert.True(t, os.IsNotExist(err))
}

func TestAnnotate_Failures(t *testing.T) {
	dir := copyJava(t, "Broken.java", "Point.java")

	out, _, err := execute(t, "annotate", filepath.Join(dir, "Broken.java"), filepath.Join(dir, "Point.java"))
	require.Error(t, err)
	assert.Equal(t, "1 of 2 files failed", err.Error())
	assert.Contains(t, out, "Broken.java: acquire java metadata")

	_, _, err = execute(t, "annotate", "--write", "--stdout", dir)
	assert.ErrorContains(t, err, "mutually exclusive")

	_, _, err = execute(t, "annotate", "--anchor", "body", dir)
	assert.ErrorContains(t, err, "unknown anchor")

	_, _, err = execute(t, "annotate", "--metadata", "foo.yaml", dir, dir)
	assert.ErrorContains(t, err, "single file")
}

func TestInspect_YAML(t *testing.T) {
	dir := copyJava(t, "Segment.java", "Point.java")

	out, _, err := execute(t, "inspect", "--format", "yaml", filepath.Join(dir, "Segment.java"))
	require.NoError(t, err)

	var in inspection
	require.NoError(t, yaml.Unmarshal([]byte(out), &in))
	assert.Equal(t, "java", in.Source)
	assert.Equal(t, 3, in.Classes)
	require.Len(t, in.Annotations, 2)
	assert.Equal(t, 10, in.Annotations[0].Line)
	assert.Equal(t, "edu.geo.Segment", in.Annotations[0].Owner)
	assert.Equal(t, 27, in.Annotations[1].Line)
	assert.Equal(t, 1, in.Annotations[1].Indent)
	require.Len(t, in.Skipped, 1)
	assert.Equal(t, "edu.geo.Shape", in.Skipped[0].Owner)
}

func TestInspect_Text(t *testing.T) {
	dir := copyJava(t, "Segment.java", "Point.java")

	out, _, err := execute(t, "inspect", "--anchor", "declaration", filepath.Join(dir, "Segment.java"))
	require.NoError(t, err)
	assert.Contains(t, out, "before line 5, indent 0: edu.geo.Segment\n  // In edu.geo.Segment\n")
	assert.NotContains(t, out, "skipped:")

	_, _, err = execute(t, "inspect", "--format", "xml", filepath.Join(dir, "Segment.java"))
	assert.ErrorContains(t, err, "unknown format")
}

func TestDump(t *testing.T) {
	dir := copyJava(t, "Segment.java", "Point.java")
	dst := filepath.Join(dir, "segment.yaml")

	_, _, err := execute(t, "dump", "-o", dst, filepath.Join(dir, "Segment.java"))
	require.NoError(t, err)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	m, err := manifest.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "Segment.java", m.Source)

	var names []string
	for _, c := range m.Classes {
		if !c.External {
			names = append(names, c.Name)
		}
	}
	assert.Equal(t, []string{"Segment", "Segment.Cache", "Shape"}, names)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotgen.toml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Equal(t, "Wrote "+path+"\n", out)
	assert.FileExists(t, path)

	_, _, err = execute(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "annotgen"))
}

func TestLogging_JSONFile(t *testing.T) {
	dir := copyJava(t, "Point.java")
	logPath := filepath.Join(dir, "run.log")

	_, _, err := execute(t, "--debug", "--log-format", "json", "--log-file", logPath,
		"annotate", "--stdout", filepath.Join(dir, "Point.java"))
	require.NoError(t, err)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"Acquiring metadata"`)
	assert.Contains(t, string(content), `"level":"DEBUG"`)
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"A.java", "A-annotated.java", "a.go", "a_test.go", "notes.txt",
		"sub/B.java", "testdata/C.java", ".git/D.java", "vendor/e.go",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	a, err := annotator.New(annotator.Options{})
	require.NoError(t, err)

	paths, err := collectFiles(a, []string{dir, filepath.Join(dir, "notes.txt")}, annotator.DefaultSuffix)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A.java"),
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "sub", "B.java"),
		filepath.Join(dir, "notes.txt"),
	}, paths)

	_, err = collectFiles(a, []string{filepath.Join(dir, "missing")}, annotator.DefaultSuffix)
	assert.Error(t, err)
}
