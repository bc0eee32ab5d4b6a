// Package livelayout decorates server-side HTML pages with layout pages.
//
// A content page names its decorator through an attribute on its root
// element:
//
//	<html layout:decorator="base">
//	  <head><title>Orders</title></head>
//	  <body><section layout:fragment="content">...</section></body>
//	</html>
//
// Rendering loads the decorator, merges the page's head, title and body
// attributes into it, and replaces each fragment placeholder in the decorator
// with the page's definition of the same name. Decorators may themselves be
// decorated.
package livelayout

import (
	"io/fs"

	"go.uber.org/zap"

	"github.com/livefir/livelayout/internal/config"
	"github.com/livefir/livelayout/internal/dom"
	"github.com/livefir/livelayout/internal/htmlconv"
	"github.com/livefir/livelayout/internal/memory"
	"github.com/livefir/livelayout/internal/metrics"
)

// Config holds engine configuration; see Default for the defaults
type Config = config.Config

// Document is a parsed page
type Document = dom.Document

// Metrics is a snapshot of the engine's counters
type Metrics = metrics.DecorationMetrics

// CacheStatus reports template cache usage in tree nodes
type CacheStatus = memory.Status

// CacheEntry is one cached template and its size in tree nodes
type CacheEntry = memory.Entry

// Stats summarizes engine activity and template cache use
type Stats struct {
	Metrics      Metrics      `json:"metrics"`
	ErrorRate    float64      `json:"decoration_error_rate"`
	CacheHitRate float64      `json:"cache_hit_rate"`
	Cache        CacheStatus  `json:"cache"`
	Largest      []CacheEntry `json:"largest_templates,omitempty"`
}

// ParseMode selects how page markup is parsed
type ParseMode = htmlconv.Mode

const (
	// ParseStrict keeps the markup's structure exactly as written
	ParseStrict = htmlconv.ModeStrict

	// ParseHTML5 applies HTML5 tree construction, supplying html, head and
	// body elements the markup leaves out
	ParseHTML5 = htmlconv.ModeHTML5
)

// Default returns the default configuration
func Default() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file over the defaults
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// options collects what Option functions set
type options struct {
	logger   *zap.Logger
	fsys     fs.FS
	mode     ParseMode
	onChange func(name string)
}

// Option is a functional option for configuring an Engine
type Option func(*options)

// WithLogger sets the logger. Without it the engine builds one from the
// configuration's log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFS loads templates from fsys instead of the configured directory.
// Watching is unavailable for such engines.
func WithFS(fsys fs.FS) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithParseMode sets how templates are parsed
func WithParseMode(mode ParseMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithChangeHook calls fn with the template name whenever a watched template
// file changes. It only has an effect when the configuration enables Watch.
func WithChangeHook(fn func(name string)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}
