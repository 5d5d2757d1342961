package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/origadmin/annotgen/internal/config"
)

var logCloser io.Closer

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

// flagOverride maps a command line flag onto a configuration key.
type flagOverride struct {
	flag string
	key  string
}

// overrides collects the values of the flags the user actually set.
func overrides(fs *pflag.FlagSet, mapping []flagOverride, into map[string]any) error {
	for _, m := range mapping {
		f := fs.Lookup(m.flag)
		if f == nil || !f.Changed {
			continue
		}
		var (
			v   any
			err error
		)
		switch f.Value.Type() {
		case "bool":
			v, err = fs.GetBool(m.flag)
		case "int":
			v, err = fs.GetInt(m.flag)
		case "stringSlice":
			v, err = fs.GetStringSlice(m.flag)
		default:
			v = f.Value.String()
		}
		if err != nil {
			return err
		}
		into[m.key] = v
	}
	return nil
}

var persistentOverrides = []flagOverride{
	{flag: "log-file", key: "log.file"},
	{flag: "log-format", key: "log.format"},
}

// loadConfig layers the configuration with the root flags and the given command overrides,
// validates it and installs the logger.
func loadConfig(cmd *cobra.Command, extra map[string]any) (*config.Config, error) {
	root := cmd.Root().PersistentFlags()
	path, err := root.GetString("config")
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		values[k] = v
	}
	if err := overrides(root, persistentOverrides, values); err != nil {
		return nil, err
	}
	if debug, _ := root.GetBool("debug"); debug {
		values["log.level"] = "debug"
	}

	cfg, err := config.Load(path, values)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := setupLogging(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.Log, stderr io.Writer) error {
	logWriter := stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		closeLog()
		logCloser = f
		logWriter = f
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(logWriter, opts)
	} else {
		handler = slog.NewTextHandler(logWriter, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
