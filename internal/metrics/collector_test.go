package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("NewCollector() returned nil")
	}

	if collector.decorationMetrics == nil {
		t.Fatal("decorationMetrics not initialized")
	}

	if collector.operationCounters == nil {
		t.Fatal("operationCounters not initialized")
	}

	metrics := collector.GetMetrics()
	if metrics.Decorations != 0 {
		t.Errorf("Expected 0 decorations, got %d", metrics.Decorations)
	}
	if metrics.StartTime.IsZero() {
		t.Error("Expected start time to be set")
	}
}

func TestDecorationMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementDecoration(1)
	collector.IncrementDecoration(3)
	collector.IncrementDecoration(2)
	collector.IncrementDecorationError()

	metrics := collector.GetMetrics()
	if metrics.Decorations != 3 {
		t.Errorf("Expected 3 decorations, got %d", metrics.Decorations)
	}
	if metrics.DecorationErrors != 1 {
		t.Errorf("Expected 1 decoration error, got %d", metrics.DecorationErrors)
	}
	if metrics.MaxNestingDepth != 3 {
		t.Errorf("Expected max nesting depth 3, got %d", metrics.MaxNestingDepth)
	}
}

func TestFragmentMetrics(t *testing.T) {
	collector := NewCollector()

	collector.AddFragmentsCollected(4)
	collector.AddFragmentsCollected(0)
	collector.AddFragmentsResolved(3)

	metrics := collector.GetMetrics()
	if metrics.FragmentsCollected != 4 {
		t.Errorf("Expected 4 fragments collected, got %d", metrics.FragmentsCollected)
	}
	if metrics.FragmentsResolved != 3 {
		t.Errorf("Expected 3 fragments resolved, got %d", metrics.FragmentsResolved)
	}
}

func TestCacheMetrics(t *testing.T) {
	collector := NewCollector()

	if rate := collector.GetCacheHitRate(); rate != 0.0 {
		t.Errorf("Expected 0%% hit rate with no lookups, got %.1f%%", rate)
	}

	collector.IncrementCacheMiss()
	collector.IncrementCacheHit()
	collector.IncrementCacheHit()
	collector.IncrementCacheHit()
	collector.IncrementInvalidation()

	metrics := collector.GetMetrics()
	if metrics.CacheHits != 3 || metrics.CacheMisses != 1 {
		t.Errorf("Expected 3 hits and 1 miss, got %d and %d", metrics.CacheHits, metrics.CacheMisses)
	}
	if metrics.Invalidations != 1 {
		t.Errorf("Expected 1 invalidation, got %d", metrics.Invalidations)
	}
	if rate := collector.GetCacheHitRate(); rate != 75.0 {
		t.Errorf("Expected 75%% hit rate, got %.1f%%", rate)
	}
}

func TestRenderMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementRender(100)
	collector.IncrementRender(50)
	collector.IncrementRenderError()

	metrics := collector.GetMetrics()
	if metrics.Renders != 2 {
		t.Errorf("Expected 2 renders, got %d", metrics.Renders)
	}
	if metrics.BytesWritten != 150 {
		t.Errorf("Expected 150 bytes written, got %d", metrics.BytesWritten)
	}
	if metrics.RenderErrors != 1 {
		t.Errorf("Expected 1 render error, got %d", metrics.RenderErrors)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var collector *Collector

	// none of these may panic
	collector.IncrementDecoration(1)
	collector.IncrementDecorationError()
	collector.AddFragmentsCollected(1)
	collector.AddFragmentsResolved(1)
	collector.IncrementCacheHit()
	collector.IncrementCacheMiss()
	collector.IncrementInvalidation()
	collector.IncrementRender(1)
	collector.IncrementRenderError()
	collector.IncrementCustomCounter("x")

	if metrics := collector.GetMetrics(); metrics.Decorations != 0 || metrics.Counters != nil {
		t.Errorf("Expected zero metrics from nil collector, got %+v", metrics)
	}
	if counters := collector.GetCustomCounters(); len(counters) != 0 {
		t.Errorf("Expected no counters from nil collector, got %v", counters)
	}
	if rate := collector.GetErrorRate(); rate != 0.0 {
		t.Errorf("Expected 0%% error rate from nil collector, got %.1f%%", rate)
	}
	if rate := collector.GetCacheHitRate(); rate != 0.0 {
		t.Errorf("Expected 0%% cache hit rate from nil collector, got %.1f%%", rate)
	}
}

func TestCustomCounters(t *testing.T) {
	collector := NewCollector()

	collector.IncrementCustomCounter("selector_ignored")
	collector.IncrementCustomCounter("selector_ignored")
	collector.IncrementCustomCounter("other")

	counters := collector.GetCustomCounters()
	if counters["selector_ignored"] != 2 {
		t.Errorf("Expected selector_ignored=2, got %d", counters["selector_ignored"])
	}
	if counters["other"] != 1 {
		t.Errorf("Expected other=1, got %d", counters["other"])
	}
}

func TestGetMetrics_Counters(t *testing.T) {
	collector := NewCollector()

	if metrics := collector.GetMetrics(); metrics.Counters != nil {
		t.Errorf("Expected no counters before any increment, got %v", metrics.Counters)
	}

	collector.IncrementCustomCounter("selector_ignored")
	snapshot := collector.GetMetrics()
	collector.IncrementCustomCounter("selector_ignored")

	if snapshot.Counters["selector_ignored"] != 1 {
		t.Errorf("Expected selector_ignored=1 in snapshot, got %d", snapshot.Counters["selector_ignored"])
	}
	if got := collector.GetMetrics().Counters["selector_ignored"]; got != 2 {
		t.Errorf("Expected selector_ignored=2 after second increment, got %d", got)
	}
}

func TestErrorRate(t *testing.T) {
	collector := NewCollector()

	if rate := collector.GetErrorRate(); rate != 0.0 {
		t.Errorf("Expected 0%% error rate with no decorations, got %.1f%%", rate)
	}

	collector.IncrementDecoration(1)
	collector.IncrementDecoration(1)
	collector.IncrementDecoration(1)
	collector.IncrementDecorationError()

	// 1 error / (3 successful + 1 error) = 25%
	if rate := collector.GetErrorRate(); rate != 25.0 {
		t.Errorf("Expected 25.0%% error rate, got %.1f%%", rate)
	}
}

func TestMetricsJSON(t *testing.T) {
	collector := NewCollector()
	collector.IncrementDecoration(1)

	data, err := json.Marshal(collector.GetMetrics())
	if err != nil {
		t.Fatalf("Failed to marshal metrics: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal metrics: %v", err)
	}
	if decoded["decorations"] != float64(1) {
		t.Errorf("Expected decorations=1 in JSON, got %v", decoded["decorations"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				collector.IncrementDecoration(i % 5)
				collector.IncrementCacheHit()
				collector.IncrementCustomCounter("concurrent")
				_ = collector.GetMetrics()
			}
		}()
	}
	wg.Wait()

	metrics := collector.GetMetrics()
	if metrics.Decorations != 400 {
		t.Errorf("Expected 400 decorations, got %d", metrics.Decorations)
	}
	if metrics.MaxNestingDepth != 4 {
		t.Errorf("Expected max nesting depth 4, got %d", metrics.MaxNestingDepth)
	}
	if collector.GetCustomCounters()["concurrent"] != 400 {
		t.Errorf("Expected 400 custom increments, got %d", collector.GetCustomCounters()["concurrent"])
	}
}
