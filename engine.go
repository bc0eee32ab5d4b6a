package livelayout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/livefir/livelayout/internal/decorator"
	"github.com/livefir/livelayout/internal/fragment"
	"github.com/livefir/livelayout/internal/htmlconv"
	"github.com/livefir/livelayout/internal/logging"
	"github.com/livefir/livelayout/internal/memory"
	"github.com/livefir/livelayout/internal/metrics"
	"github.com/livefir/livelayout/internal/source"
)

// Engine renders decorated pages. It is safe for concurrent use.
type Engine struct {
	config    Config
	parser    *htmlconv.Parser
	source    *source.Source
	decorator *decorator.Decorator
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// New creates an engine for cfg. A nil cfg means Default(). When cfg.Watch is
// set the engine watches its template directory until Close is called.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{mode: ParseStrict}
	for _, opt := range opts {
		opt(&o)
	}

	var parserOpts []htmlconv.ParserOption
	if cfg.Encoding != "" {
		enc, err := htmlconv.LookupEncoding(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		if enc != nil {
			parserOpts = append(parserOpts, htmlconv.WithEncoding(enc))
		}
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
			Component:   "livelayout",
		})
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		config:  *cfg,
		parser:  htmlconv.NewParser(o.mode, parserOpts...),
		logger:  logger,
		metrics: metrics.NewCollector(),
	}

	srcOpts := []source.Option{
		source.WithParser(e.parser),
		source.WithLogger(logger.Named("source")),
		source.WithMetrics(e.metrics),
	}
	if cfg.CacheLimit > 0 {
		srcOpts = append(srcOpts, source.WithBudget(memory.NewBudget(&memory.Config{
			Limit:                cfg.CacheLimit,
			WarningThresholdPct:  75,
			CriticalThresholdPct: 90,
		})))
	}
	if o.onChange != nil {
		srcOpts = append(srcOpts, source.WithChangeHook(o.onChange))
	}
	srcConfig := source.Config{
		Dir:    cfg.TemplateDir,
		Suffix: cfg.Suffix,
		Cache:  cfg.Cache,
	}
	if o.fsys != nil {
		srcOpts = append(srcOpts, source.WithFS(o.fsys))
		srcConfig.Dir = ""
	}
	e.source = source.New(srcConfig, srcOpts...)

	e.decorator = decorator.New(e.source, &decorator.Config{
		DecoratorAttribute: cfg.DecoratorAttributeName(),
		FragmentAttribute:  cfg.FragmentAttributeName(),
		MaxDepth:           cfg.MaxDepth,
	}, decorator.WithLogger(logger.Named("decorator")), decorator.WithMetrics(e.metrics))

	if cfg.Watch {
		if err := e.source.Watch(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to watch templates: %w", err)
		}
	}
	return e, nil
}

// Render loads the page called name, decorates it and writes the result to w
func (e *Engine) Render(ctx context.Context, name string, w io.Writer) error {
	doc, err := e.source.Load(ctx, name)
	if err != nil {
		e.metrics.IncrementRenderError()
		return err
	}
	return e.write(ctx, doc, w)
}

// RenderString renders the page called name to a string
func (e *Engine) RenderString(ctx context.Context, name string) (string, error) {
	var sb strings.Builder
	if err := e.Render(ctx, name, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderHTML decorates the page markup read from r, which need not exist in
// the template directory, and writes the result to w. name identifies the
// page in errors and logs.
func (e *Engine) RenderHTML(ctx context.Context, name string, r io.Reader, w io.Writer) error {
	doc, err := e.Parse(name, r)
	if err != nil {
		e.metrics.IncrementRenderError()
		return err
	}
	return e.write(ctx, doc, w)
}

// Parse reads page markup with the engine's parse mode
func (e *Engine) Parse(name string, r io.Reader) (*Document, error) {
	return e.parser.Parse(name, r)
}

// Decorate applies decoration and fragment substitution to doc in place. A
// page without a decoration attribute only has its fragment attributes
// removed.
func (e *Engine) Decorate(ctx context.Context, doc *Document) error {
	scopes := fragment.NewScopes()
	decorated, err := e.decorator.Process(ctx, doc, scopes)
	if err != nil {
		return err
	}

	n := fragment.Resolve(doc, scopes, e.config.FragmentAttributeName())
	e.metrics.AddFragmentsResolved(n)
	if err := e.decorator.CheckPlacement(doc); err != nil {
		return err
	}
	e.logger.Debug("decorated page",
		zap.String("page", doc.Name),
		zap.Bool("decorated", decorated),
		zap.Int("fragments", n))
	return nil
}

func (e *Engine) write(ctx context.Context, doc *Document, w io.Writer) error {
	if err := e.Decorate(ctx, doc); err != nil {
		e.metrics.IncrementRenderError()
		return err
	}

	var buf bytes.Buffer
	if err := htmlconv.Render(&buf, doc); err != nil {
		e.metrics.IncrementRenderError()
		return err
	}
	out := buf.Bytes()
	if e.config.Minify {
		out = htmlconv.MinifyBytes(out)
	}

	n, err := w.Write(out)
	if err != nil {
		e.metrics.IncrementRenderError()
		return fmt.Errorf("failed to write %s: %w", doc.Name, err)
	}
	e.metrics.IncrementRender(n)
	return nil
}

// Invalidate drops the cached copy of the template called name
func (e *Engine) Invalidate(name string) bool {
	return e.source.Invalidate(name)
}

// Templates lists the template names available to the engine
func (e *Engine) Templates() ([]string, error) {
	return e.source.List()
}

// CacheStatus reports how much of the template cache budget is in use
func (e *Engine) CacheStatus() CacheStatus {
	return e.source.CacheStatus()
}

// Metrics returns a snapshot of the engine's counters
func (e *Engine) Metrics() Metrics {
	return e.metrics.GetMetrics()
}

// Stats reports the engine's counters, rates and cache use. largest bounds
// how many of the biggest cached templates are listed.
func (e *Engine) Stats(largest int) Stats {
	return Stats{
		Metrics:      e.metrics.GetMetrics(),
		ErrorRate:    e.metrics.GetErrorRate(),
		CacheHitRate: e.metrics.GetCacheHitRate(),
		Cache:        e.source.CacheStatus(),
		Largest:      e.source.LargestTemplates(largest),
	}
}

// Close stops watching templates and flushes the logger
func (e *Engine) Close() error {
	err := e.source.Close()
	_ = e.logger.Sync()
	return err
}
