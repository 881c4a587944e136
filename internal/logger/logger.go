// Package logger configures the process-wide zerolog logger. Packages log
// through github.com/rs/zerolog/log after Init has run.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Standard field keys for structured logging.
const (
	FieldComponent = "component"
	FieldJob       = "job"
	FieldRunID     = "run_id"
	FieldRecord    = "record"
	FieldStage     = "stage"
	FieldDuration  = "duration_ms"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config contains logging configuration.
type Config struct {
	Level  string
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// NoColor disables ANSI colors in console output.
	NoColor bool
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
}

// New builds a logger from cfg without touching global state.
func New(cfg Config) (zerolog.Logger, zerolog.Level, error) {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), zerolog.NoLevel, fmt.Errorf("logger: level %q: %w", cfg.Level, err)
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		zl = zerolog.New(cfg.Output)
	case FormatConsole, "pretty", "text":
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.TimeOnly,
			NoColor:    cfg.NoColor,
		})
	default:
		return zerolog.Nop(), zerolog.NoLevel, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}
	return zl.Level(level).With().Timestamp().Logger(), level, nil
}

// Init installs the logger described by cfg as log.Logger and sets the
// global level.
func Init(cfg Config) error {
	zl, level, err := New(cfg)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zl
	return nil
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str(FieldComponent, name).Logger()
}
