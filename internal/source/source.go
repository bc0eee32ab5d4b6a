// Package source loads decorator and content pages from a file system,
// caching the parsed trees and handing out private copies.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/livefir/livelayout/internal/dom"
	"github.com/livefir/livelayout/internal/htmlconv"
	"github.com/livefir/livelayout/internal/memory"
	"github.com/livefir/livelayout/internal/metrics"
)

var (
	// ErrNotFound is returned when no file backs a template name
	ErrNotFound = errors.New("template not found")

	// ErrInvalidName is returned for names that do not map to a path inside
	// the template directory
	ErrInvalidName = errors.New("invalid template name")
)

// templateRefSeparator splits "name :: selector" decoration values
const templateRefSeparator = "::"

// ParseTemplateRef splits a decoration attribute value of the form
// "name :: selector" into its parts. A value without a separator is all name.
func ParseTemplateRef(value string) (name, selector string) {
	name, selector, _ = strings.Cut(value, templateRefSeparator)
	return strings.TrimSpace(name), strings.TrimSpace(selector)
}

// Config describes where templates live
type Config struct {
	Dir    string // directory on disk; required for Watch
	Suffix string // appended to names, e.g. ".html"
	Cache  bool   // keep parsed trees between loads
}

// Option configures a Source
type Option func(*Source)

// WithFS reads templates from fsys instead of Config.Dir
func WithFS(fsys fs.FS) Option {
	return func(s *Source) {
		s.fsys = fsys
	}
}

// WithParser sets the parser used for template files
func WithParser(parser *htmlconv.Parser) Option {
	return func(s *Source) {
		if parser != nil {
			s.parser = parser
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records cache counters on collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Source) {
		s.metrics = collector
	}
}

// WithBudget bounds the cache by tree size in nodes. Templates that do not
// fit are parsed on every load instead of being cached.
func WithBudget(budget *memory.Budget) Option {
	return func(s *Source) {
		s.budget = budget
	}
}

// WithChangeHook registers fn to be called with the template name whenever
// the watcher sees a template file change
func WithChangeHook(fn func(name string)) Option {
	return func(s *Source) {
		s.onChange = fn
	}
}

// Source resolves template names to documents. Every document it returns is
// a private copy that the caller may mutate freely.
type Source struct {
	config   Config
	fsys     fs.FS
	parser   *htmlconv.Parser
	logger   *zap.Logger
	metrics  *metrics.Collector
	budget   *memory.Budget
	onChange func(name string)

	group singleflight.Group

	mu   sync.RWMutex
	docs map[string]*dom.Document
	gen  uint64 // bumped by every invalidation

	watchMu sync.Mutex
	watch   *watcher
}

// New creates a Source for config
func New(config Config, opts ...Option) *Source {
	s := &Source{
		config: config,
		parser: htmlconv.NewParser(htmlconv.ModeStrict),
		logger: zap.NewNop(),
		docs:   make(map[string]*dom.Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fsys == nil {
		dir := config.Dir
		if dir == "" {
			dir = "."
		}
		s.fsys = os.DirFS(dir)
	}
	return s
}

// Resolve loads the template named by a decoration attribute value. Only the
// name part of a "name :: selector" value is used.
func (s *Source) Resolve(ctx context.Context, value string) (*dom.Document, error) {
	name, selector := ParseTemplateRef(value)
	if selector != "" {
		s.metrics.IncrementCustomCounter("selector_ignored")
		s.logger.Debug("ignoring template selector",
			zap.String("template", name),
			zap.String("selector", selector))
	}
	return s.Load(ctx, name)
}

// Load returns a fresh copy of the template called name
func (s *Source) Load(ctx context.Context, name string) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file := name + s.config.Suffix
	if name == "" || !fs.ValidPath(file) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if s.config.Cache {
		s.mu.RLock()
		doc, ok := s.docs[name]
		s.mu.RUnlock()
		if ok {
			s.metrics.IncrementCacheHit()
			return doc.Clone(), nil
		}
	}
	s.metrics.IncrementCacheMiss()

	v, err, shared := s.group.Do(name, func() (interface{}, error) {
		return s.parse(name, file)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared template load", zap.String("template", name))
	}
	return v.(*dom.Document).Clone(), nil
}

func (s *Source) parse(name, file string) (*dom.Document, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	f, err := s.fsys.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (%w)", ErrNotFound, file, err)
		}
		return nil, fmt.Errorf("failed to open template %s: %w", file, err)
	}
	defer f.Close()

	doc, err := s.parser.Parse(name, f)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("parsed template", zap.String("template", name), zap.Int("nodes", doc.Len()))

	if s.config.Cache {
		s.mu.Lock()
		switch {
		case s.gen != gen:
			// invalidated while parsing; the tree may be stale
		case s.budget.Reserve(name, int64(doc.Len())) != nil:
			s.logger.Debug("template not cached, cache budget exhausted",
				zap.String("template", name), zap.Int("nodes", doc.Len()))
		default:
			s.docs[name] = doc
		}
		s.mu.Unlock()
	}
	return doc, nil
}

// Invalidate drops the cached tree for name and reports whether one existed
func (s *Source) Invalidate(name string) bool {
	s.mu.Lock()
	_, ok := s.docs[name]
	delete(s.docs, name)
	s.gen++
	// released under mu so a parse that starts after gen++ keeps its reservation
	s.budget.Release(name)
	s.mu.Unlock()

	s.group.Forget(name)
	s.metrics.IncrementInvalidation()
	s.logger.Debug("invalidated template", zap.String("template", name), zap.Bool("cached", ok))
	return ok
}

// Purge drops every cached tree
func (s *Source) Purge() {
	s.mu.Lock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	s.docs = make(map[string]*dom.Document)
	s.gen++
	s.budget.Reset()
	s.mu.Unlock()

	for _, name := range names {
		s.group.Forget(name)
	}
	s.metrics.IncrementInvalidation()
}

// Len returns the number of cached trees
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// CacheStatus reports how much of the cache budget is in use
func (s *Source) CacheStatus() memory.Status {
	return s.budget.Status()
}

// LargestTemplates returns up to n cached templates, largest first
func (s *Source) LargestTemplates(n int) []memory.Entry {
	return s.budget.Largest(n)
}

// List returns the names of all templates in the file system, sorted
func (s *Source) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, s.config.Suffix) {
			return nil
		}
		if name := strings.TrimSuffix(p, s.config.Suffix); name != "" {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
