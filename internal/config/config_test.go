package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotgen.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "constructor", cfg.Annotate.Anchor)
	assert.False(t, cfg.Annotate.IncludeMethodAnnotations)
	assert.True(t, cfg.Annotate.StdlibExcluded)
	assert.Equal(t, []string{"java.", "javax.", "tester.", "javalib."}, cfg.Annotate.ExcludedPrefixes)
	assert.Equal(t, "-annotated", cfg.Annotate.Suffix)
	assert.Positive(t, cfg.Annotate.Jobs)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Layering(t *testing.T) {
	path := writeTOML(t, `
[annotate]
include_method_annotations = true
anchor = "declaration"
jobs = 2
excluded_prefixes = ["com.acme."]

[log]
level = "info"
`)
	t.Setenv("ANNOTGEN_ANNOTATE_JOBS", "6")
	t.Setenv("ANNOTGEN_ANNOTATE_TEMPLATES", "a.tpl, b.tpl")
	t.Setenv("ANNOTGEN_LOG_FORMAT", "json")

	cfg, err := Load(path, map[string]any{"log.level": "debug"})
	require.NoError(t, err)

	assert.True(t, cfg.Annotate.IncludeMethodAnnotations, "file")
	assert.Equal(t, "declaration", cfg.Annotate.Anchor, "file")
	assert.Equal(t, []string{"com.acme."}, cfg.Annotate.ExcludedPrefixes, "file")
	assert.Equal(t, 6, cfg.Annotate.Jobs, "environment beats file")
	assert.Equal(t, []string{"a.tpl", "b.tpl"}, cfg.Annotate.Templates, "environment list")
	assert.Equal(t, "json", cfg.Log.Format, "environment")
	assert.Equal(t, "debug", cfg.Log.Level, "override beats file")
	assert.Equal(t, "-annotated", cfg.Annotate.Suffix, "default")
}

func TestLoad_DefaultFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("[annotate]\nrecursive = true\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.True(t, cfg.Annotate.Recursive)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.Error(t, err)

	_, err = Load(writeTOML(t, "[annotate\njobs = "), nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "anchor", mutate: func(c *Config) { c.Annotate.Anchor = "body" }, wantErr: "unknown anchor"},
		{name: "jobs", mutate: func(c *Config) { c.Annotate.Jobs = 0 }, wantErr: "jobs must be positive"},
		{name: "suffix", mutate: func(c *Config) { c.Annotate.Suffix = "out/x" }, wantErr: "path separator"},
		{name: "indent", mutate: func(c *Config) { c.Annotate.Indent = "->" }, wantErr: "spaces or tabs"},
		{name: "level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "unknown log level"},
		{name: "format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg, err := Load("", nil)
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLog_SlogLevel(t *testing.T) {
	level, err := Log{Level: "debug"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = Log{Level: "ERROR"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotgen.toml")
	require.NoError(t, InitFile(path))
	assert.Error(t, InitFile(path), "existing files are not overwritten")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Annotate.Jobs)
}
