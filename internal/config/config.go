// Package config loads annotgen settings from defaults, a TOML file, the environment and
// command line overrides, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/origadmin/annotgen/internal/classify"
	"github.com/origadmin/annotgen/internal/planner"
)

// EnvPrefix prefixes environment overrides, e.g. ANNOTGEN_ANNOTATE_JOBS=4.
const EnvPrefix = "ANNOTGEN_"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "annotgen.toml"

// Config is the complete configuration.
type Config struct {
	Annotate Annotate `koanf:"annotate"`
	Log      Log      `koanf:"log"`
}

// Annotate holds the pipeline settings.
type Annotate struct {
	IncludeMethodAnnotations bool     `koanf:"include_method_annotations"`
	Anchor                   string   `koanf:"anchor"`
	Recursive                bool     `koanf:"recursive"`
	ExportedOnly             bool     `koanf:"exported_only"`
	ExcludedPrefixes         []string `koanf:"excluded_prefixes"`
	StdlibExcluded           bool     `koanf:"stdlib_excluded"`
	Indent                   string   `koanf:"indent"`
	Suffix                   string   `koanf:"suffix"`
	Jobs                     int      `koanf:"jobs"`
	Templates                []string `koanf:"templates"`
}

// Log holds the logging settings.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Defaults returns the built-in settings as flat koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"annotate.include_method_annotations": false,
		"annotate.anchor":                     string(planner.AnchorConstructor),
		"annotate.recursive":                  false,
		"annotate.exported_only":              false,
		"annotate.excluded_prefixes":          append([]string(nil), classify.DefaultExcludedPrefixes...),
		"annotate.stdlib_excluded":            true,
		"annotate.indent":                     "",
		"annotate.suffix":                     "-annotated",
		"annotate.jobs":                       runtime.GOMAXPROCS(0),
		"annotate.templates":                  []string{},
		"log.level":                           "warn",
		"log.format":                          "text",
		"log.file":                            "",
	}
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"annotate.excluded_prefixes": true,
	"annotate.templates":         true,
}

// Load builds the configuration. path names a TOML file; when empty, DefaultFile is used if
// present. overrides are flat keys such as "annotate.jobs" and win over everything else.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		slog.Debug("Loaded config file", "path", path)
	} else if _, err := os.Stat(DefaultFile); err == nil {
		if err := k.Load(file.Provider(DefaultFile), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		slog.Debug("Loaded config file", "path", DefaultFile)
	}

	// ANNOTGEN_ANNOTATE_INCLUDE_METHOD_ANNOTATIONS -> annotate.include_method_annotations
	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.Replace(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", ".", 1)
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := planner.ParseAnchor(c.Annotate.Anchor); err != nil {
		errs = append(errs, err)
	}
	if c.Annotate.Jobs <= 0 {
		errs = append(errs, fmt.Errorf("jobs must be positive, got %d", c.Annotate.Jobs))
	}
	if strings.ContainsAny(c.Annotate.Suffix, `/\`) {
		errs = append(errs, fmt.Errorf("suffix %q must not contain a path separator", c.Annotate.Suffix))
	}
	if strings.TrimLeft(c.Annotate.Indent, " \t") != "" {
		errs = append(errs, fmt.Errorf("indent %q must only contain spaces or tabs", c.Annotate.Indent))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", l.Level)
	}
	return level, nil
}

// Sample is written by "annotgen config init".
const Sample = `# annotgen configuration

[annotate]
# also describe methods whose parameters or results are non-trivial
include_method_annotations = false
# "constructor" or "declaration"
anchor = "constructor"
# follow member types declared in the same file
recursive = false
# only list public members
exported_only = false
excluded_prefixes = ["java.", "javax.", "tester.", "javalib."]
# skip Go standard library types
stdlib_excluded = true
# indentation unit; empty means a tab for Go and four spaces otherwise
indent = ""
suffix = "-annotated"
jobs = 4
templates = []

[log]
level = "warn"
format = "text"
file = ""
`

// InitFile writes Sample to path unless it already exists.
func InitFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(Sample), 0o644)
}
