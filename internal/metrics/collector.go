package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	decorationMetrics *DecorationMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// DecorationMetrics tracks layout decoration and rendering counters
type DecorationMetrics struct {
	// Decoration
	Decorations      int64 `json:"decorations"`
	DecorationErrors int64 `json:"decoration_errors"`
	MaxNestingDepth  int64 `json:"max_nesting_depth"`

	// Fragments
	FragmentsCollected int64 `json:"fragments_collected"`
	FragmentsResolved  int64 `json:"fragments_resolved"`

	// Template source
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	Invalidations int64 `json:"invalidations"`

	// Rendering
	Renders      int64 `json:"renders"`
	RenderErrors int64 `json:"render_errors"`
	BytesWritten int64 `json:"bytes_written"`

	// Named counters, e.g. "selector_ignored"
	Counters map[string]int64 `json:"counters,omitempty"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		decorationMetrics: &DecorationMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementDecoration records one completed decoration at the given nesting depth
func (c *Collector) IncrementDecoration(depth int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.Decorations, 1)

	d := int64(depth)
	for {
		max := atomic.LoadInt64(&c.decorationMetrics.MaxNestingDepth)
		if d <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.decorationMetrics.MaxNestingDepth, max, d) {
			break
		}
	}
}

// IncrementDecorationError records a failed decoration
func (c *Collector) IncrementDecorationError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.DecorationErrors, 1)
}

// AddFragmentsCollected records fragments gathered from a content page
func (c *Collector) AddFragmentsCollected(n int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.FragmentsCollected, int64(n))
}

// AddFragmentsResolved records placeholders substituted by fragments
func (c *Collector) AddFragmentsResolved(n int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.FragmentsResolved, int64(n))
}

// IncrementCacheHit records a template served from cache
func (c *Collector) IncrementCacheHit() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.CacheHits, 1)
}

// IncrementCacheMiss records a template that had to be parsed
func (c *Collector) IncrementCacheMiss() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.CacheMisses, 1)
}

// IncrementInvalidation records a cache entry dropped
func (c *Collector) IncrementInvalidation() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.Invalidations, 1)
}

// IncrementRender records a completed render and its size
func (c *Collector) IncrementRender(bytes int) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.Renders, 1)
	atomic.AddInt64(&c.decorationMetrics.BytesWritten, int64(bytes))
}

// IncrementRenderError records a failed render
func (c *Collector) IncrementRenderError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.decorationMetrics.RenderErrors, 1)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns current decoration metrics. A nil collector reports
// zeros.
func (c *Collector) GetMetrics() DecorationMetrics {
	if c == nil {
		return DecorationMetrics{}
	}

	m := c.decorationMetrics
	snapshot := DecorationMetrics{
		Decorations:        atomic.LoadInt64(&m.Decorations),
		DecorationErrors:   atomic.LoadInt64(&m.DecorationErrors),
		MaxNestingDepth:    atomic.LoadInt64(&m.MaxNestingDepth),
		FragmentsCollected: atomic.LoadInt64(&m.FragmentsCollected),
		FragmentsResolved:  atomic.LoadInt64(&m.FragmentsResolved),
		CacheHits:          atomic.LoadInt64(&m.CacheHits),
		CacheMisses:        atomic.LoadInt64(&m.CacheMisses),
		Invalidations:      atomic.LoadInt64(&m.Invalidations),
		Renders:            atomic.LoadInt64(&m.Renders),
		RenderErrors:       atomic.LoadInt64(&m.RenderErrors),
		BytesWritten:       atomic.LoadInt64(&m.BytesWritten),
		StartTime:          m.StartTime,
		Uptime:             time.Since(c.startTime),
	}
	if counters := c.GetCustomCounters(); len(counters) > 0 {
		snapshot.Counters = counters
	}
	return snapshot
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	result := make(map[string]int64)
	if c == nil {
		return result
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// GetErrorRate returns the percentage of decorations that failed
func (c *Collector) GetErrorRate() float64 {
	if c == nil {
		return 0.0
	}
	done := atomic.LoadInt64(&c.decorationMetrics.Decorations)
	errors := atomic.LoadInt64(&c.decorationMetrics.DecorationErrors)

	if done+errors == 0 {
		return 0.0
	}

	return float64(errors) / float64(done+errors) * 100.0
}

// GetCacheHitRate returns the template cache hit percentage
func (c *Collector) GetCacheHitRate() float64 {
	if c == nil {
		return 0.0
	}
	hits := atomic.LoadInt64(&c.decorationMetrics.CacheHits)
	misses := atomic.LoadInt64(&c.decorationMetrics.CacheMisses)

	total := hits + misses
	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}
