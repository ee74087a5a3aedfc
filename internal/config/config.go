// Package config loads the vql configuration file.
//
// The file is CUE. It is unified with the embedded #Config schema, so
// unknown fields, out-of-range values and wrong types fail at load time
// with a file position. Named filter presets are parsed as VQL WHERE
// expressions while loading.
//
//	database: "cohort.db"
//	page_size: 100
//	presets: {
//		good: "qual >= 30"
//		brca: "gene IN ('BRCA1', 'BRCA2')"
//	}
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/vql/internal/engine"
	"github.com/roach88/vql/internal/queryir"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/vql"
)

//go:embed schema.cue
var schemaSrc string

// Config is a decoded configuration file.
type Config struct {
	Database       string            `json:"database,omitempty"`
	PageSize       int               `json:"page_size"`
	CountCacheSize int               `json:"count_cache_size"`
	MissingSample  string            `json:"missing_sample"`
	LogLevel       string            `json:"log_level"`
	Presets        map[string]string `json:"presets,omitempty"`

	filters map[string]queryir.Node
}

// LoadError is a configuration error. Pos is set when CUE reported one.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsLoadError returns true if err is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Default returns the configuration of an empty file.
func Default() *Config {
	cfg, err := LoadBytes("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadBytes(path, src)
}

// LoadBytes validates src against the schema. filename is only used in
// error positions.
func LoadBytes(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v = schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := v.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &Config{}
	if err := v.Decode(cfg); err != nil {
		return nil, formatCUEError(err)
	}

	if err := cfg.parsePresets(v.LookupPath(cue.ParsePath("presets"))); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parsePresets(presets cue.Value) error {
	c.filters = make(map[string]queryir.Node, len(c.Presets))
	if !presets.Exists() {
		return nil
	}

	iter, err := presets.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		node, err := vql.ParseFilter(c.Presets[name])
		if err != nil {
			return &LoadError{
				Field:   "presets." + name,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		c.filters[name] = node
	}
	return nil
}

// Preset returns the filter tree of a named preset.
func (c *Config) Preset(name string) (queryir.Node, bool) {
	n, ok := c.filters[name]
	return n, ok
}

// PresetNames returns the preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.filters))
	for name := range c.filters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Level returns the slog level of log_level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// EngineOptions returns the engine options the configuration sets.
func (c *Config) EngineOptions() ([]engine.EngineOption, error) {
	missing, err := querysql.ParseMissingSample(c.MissingSample)
	if err != nil {
		return nil, &LoadError{Field: "missing_sample", Message: err.Error()}
	}
	return []engine.EngineOption{
		engine.WithPageSize(c.PageSize),
		engine.WithCountCacheSize(c.CountCacheSize),
		engine.WithMissingSample(missing),
	}, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	le := &LoadError{Field: "cue", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		le.Field = strings.Join(path, ".")
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
