// Package config provides configuration models and helpers for shpetl runs.
//
// This file adds a linter for Pipeline values. Struct tags cover the
// per-field rules (required keys, enumerations); the hand-written checks
// below cover the cross-field rules. Both report Issues that callers
// surface in the CLI or tests.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "enrich.soundex.columns"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	p, err := config.Load(path, "")
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	issues = append(issues, validateTags(p)...)
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateEnrich(p.Enrich)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

// validateTags runs the struct-tag rules and turns each failure into an
// error Issue keyed by its json path.
func validateTags(p Pipeline) []Issue {
	err := structValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Message:  tagMessage(path, fe),
		})
	}
	return issues
}

func tagMessage(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return path + " must not be empty"
	case "oneof":
		return fmt.Sprintf("%s=%q must be one of: %s", path, fmt.Sprint(fe.Value()), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", path, fe.Param())
	case "url":
		return path + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %q check", path, fe.Tag())
	}
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	path := strings.TrimSpace(s.Path)
	if path == "" {
		return issues
	}
	if ext := filepath.Ext(path); ext != "" && !strings.EqualFold(ext, ".shp") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.path",
			Message:  fmt.Sprintf("source.path has extension %q; it is treated as part of the base name", ext),
		})
	}
	if s.Attributes.TempDir != "" && !s.Attributes.Materialize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.attributes.temp_dir",
			Message:  "temp_dir is set but materialize is false; it will not be used",
		})
	}

	return issues
}

// validateEnrich checks that every enabled per-column stage names its
// source columns and that columns are not configured for disabled stages.
func validateEnrich(e Enrich) []Issue {
	var issues []Issue

	stages := []struct {
		key   string
		stage ColumnStage
	}{
		{"soundex", e.Soundex},
		{"soundex_dm", e.SoundexDM},
		{"address_ranges", e.AddressRanges},
		{"even_odd", e.EvenOdd},
	}
	for _, st := range stages {
		path := "enrich." + st.key + ".columns"
		if st.stage.Enabled && len(st.stage.Columns) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("%s is enabled but names no source columns", st.key),
			})
		}
		if !st.stage.Enabled && len(st.stage.Columns) > 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("%s lists columns but is disabled; no cells will be added", st.key),
			})
		}
		for i, c := range st.stage.Columns {
			if strings.TrimSpace(c) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s[%d]", path, i),
					Message:  "column name must not be empty",
				})
			}
		}
	}

	if n := len(e.LineEndpoints.Columns); n != 0 && n != 4 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "enrich.line_endpoints.columns",
			Message:  fmt.Sprintf("line_endpoints names %d columns; exactly 4 are required, defaults will be used", n),
		})
	}
	if e.SoundexDMBranching && !e.SoundexDM.Enabled {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "enrich.soundex_dm_branching",
			Message:  "soundex_dm_branching has no effect while soundex_dm is disabled",
		})
	}
	if e.EvenOddStrictParity && !e.EvenOdd.Enabled {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "enrich.even_odd_strict_parity",
			Message:  "even_odd_strict_parity has no effect while even_odd is disabled",
		})
	}
	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	seen := make(map[string]struct{}, len(s.DB.DedupeKeyColumns))
	for i, c := range s.DB.DedupeKeyColumns {
		key := strings.ToLower(strings.TrimSpace(c))
		if key == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("storage.db.dedupe_key_columns[%d]", i),
				Message:  "dedupe key column must not be empty",
			})
			continue
		}
		if _, dup := seen[key]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("storage.db.dedupe_key_columns[%d]", i),
				Message:  fmt.Sprintf("dedupe key column %q is listed twice", c),
			})
		}
		seen[key] = struct{}{}
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, zero-sized batches, etc.).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; the default of %d will be used", r.BatchSize, DefaultBatchSize),
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}
	if r.NotifyAfter < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.notify_after",
			Message:  "notify_after must not be negative",
		})
	}

	return issues
}

// validateMetrics checks that the selected backend has what it needs.
func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.Datadog.Addr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog.addr",
				Message:  "datadog backend requires datadog.addr",
			})
		}
	}

	return issues
}
