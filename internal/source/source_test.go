package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/livefir/livelayout/internal/dom"
	"github.com/livefir/livelayout/internal/dom/domtest"
	"github.com/livefir/livelayout/internal/htmlconv"
	"github.com/livefir/livelayout/internal/memory"
	"github.com/livefir/livelayout/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const baseHTML = `<!DOCTYPE html><html><head><title>Base</title></head><body><main layout:fragment="content">default</main></body></html>`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"base.html":          {Data: []byte(baseHTML)},
		"layouts/admin.html": {Data: []byte(`<html><body>admin</body></html>`)},
		"notes.txt":          {Data: []byte("not a template")},
	}
}

func TestParseTemplateRef(t *testing.T) {
	tests := []struct {
		value    string
		name     string
		selector string
	}{
		{"base", "base", ""},
		{"  base  ", "base", ""},
		{"layouts/main :: page", "layouts/main", "page"},
		{"base::content", "base", "content"},
		{":: orphan", "", "orphan"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			name, selector := ParseTemplateRef(tt.value)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.selector, selector)
		})
	}
}

func TestSource_Load(t *testing.T) {
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()))

	doc, err := src.Load(context.Background(), "base")
	require.NoError(t, err)
	assert.Equal(t, "base", doc.Name)
	assert.Equal(t, baseHTML, domtest.DumpDocument(doc))

	nested, err := src.Load(context.Background(), "layouts/admin")
	require.NoError(t, err)
	assert.Equal(t, `<html><body>admin</body></html>`, domtest.DumpDocument(nested))
}

func TestSource_LoadErrors(t *testing.T) {
	src := New(Config{Suffix: ".html"}, WithFS(testFS()))

	tests := []struct {
		name string
		want error
	}{
		{"missing", ErrNotFound},
		{"", ErrInvalidName},
		{"../escape", ErrInvalidName},
		{"/abs", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := src.Load(context.Background(), tt.name)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("not found wraps fs error", func(t *testing.T) {
		_, err := src.Load(context.Background(), "missing")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Load(ctx, "base")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSource_Resolve(t *testing.T) {
	src := New(Config{Suffix: ".html"}, WithFS(testFS()))

	doc, err := src.Resolve(context.Background(), "base :: content")
	require.NoError(t, err)
	assert.Equal(t, "base", doc.Name)
}

func TestSource_ReturnsPrivateCopies(t *testing.T) {
	collector := metrics.NewCollector()
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()), WithMetrics(collector))
	ctx := context.Background()

	first, err := src.Load(ctx, "base")
	require.NoError(t, err)
	first.Detach(domtest.Find(first, "body"))
	first.SetAttr(domtest.Find(first, "html"), "lang", "en")

	second, err := src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, baseHTML, domtest.DumpDocument(second))

	m := collector.GetMetrics()
	assert.Equal(t, int64(1), m.CacheMisses)
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, 1, src.Len())
}

func TestSource_WithoutCache(t *testing.T) {
	collector := metrics.NewCollector()
	src := New(Config{Suffix: ".html"}, WithFS(testFS()), WithMetrics(collector))

	for i := 0; i < 3; i++ {
		_, err := src.Load(context.Background(), "base")
		require.NoError(t, err)
	}

	assert.Equal(t, 0, src.Len())
	assert.Equal(t, int64(3), collector.GetMetrics().CacheMisses)
	assert.Equal(t, int64(0), collector.GetMetrics().CacheHits)
}

func TestSource_Invalidate(t *testing.T) {
	fsys := testFS()
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(fsys))
	ctx := context.Background()

	_, err := src.Load(ctx, "base")
	require.NoError(t, err)

	fsys["base.html"] = &fstest.MapFile{Data: []byte(`<html><body>v2</body></html>`)}

	cached, err := src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, baseHTML, domtest.DumpDocument(cached))

	assert.True(t, src.Invalidate("base"))
	assert.False(t, src.Invalidate("base"))

	fresh, err := src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, `<html><body>v2</body></html>`, domtest.DumpDocument(fresh))
}

func TestSource_Purge(t *testing.T) {
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()))
	ctx := context.Background()

	for _, name := range []string{"base", "layouts/admin"} {
		_, err := src.Load(ctx, name)
		require.NoError(t, err)
	}
	require.Equal(t, 2, src.Len())

	src.Purge()
	assert.Equal(t, 0, src.Len())
}

func TestSource_List(t *testing.T) {
	src := New(Config{Suffix: ".html"}, WithFS(testFS()))

	names, err := src.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "layouts/admin"}, names)
}

// countingFS counts opens so concurrent loads can be shown to share one parse
type countingFS struct {
	fs.FS
	mu    sync.Mutex
	opens int
	gate  chan struct{}
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.opens++
	c.mu.Unlock()
	<-c.gate
	return c.FS.Open(name)
}

func TestSource_ConcurrentLoads(t *testing.T) {
	fsys := &countingFS{FS: testFS(), gate: make(chan struct{})}
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(fsys))

	const workers = 16
	docs := make([]*dom.Document, workers)
	errs := make([]error, workers)

	var started, wg sync.WaitGroup
	started.Add(workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			started.Done()
			docs[i], errs[i] = src.Load(context.Background(), "base")
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(fsys.gate)
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, baseHTML, domtest.DumpDocument(docs[i]))
		for j := 0; j < i; j++ {
			assert.NotSame(t, docs[i], docs[j])
		}
	}
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	assert.LessOrEqual(t, fsys.opens, workers)
	assert.GreaterOrEqual(t, fsys.opens, 1)
}

func TestSource_MissesAreNotCached(t *testing.T) {
	fsys := fstest.MapFS{}
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(fsys))

	_, err := src.Load(context.Background(), "late")
	require.ErrorIs(t, err, ErrNotFound)

	fsys["late.html"] = &fstest.MapFile{Data: []byte(`<html></html>`)}
	doc, err := src.Load(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, `<html></html>`, domtest.DumpDocument(doc))
}

func TestSource_WithParser(t *testing.T) {
	fsys := fstest.MapFS{"short.html": {Data: []byte(`<title>T</title><p>Hi`)}}
	src := New(Config{Suffix: ".html"}, WithFS(fsys), WithParser(htmlconv.NewParser(htmlconv.ModeHTML5)))

	doc, err := src.Load(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, `<html><head><title>T</title></head><body><p>Hi</p></body></html>`, domtest.DumpDocument(doc))
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "base.html")
	require.NoError(t, os.WriteFile(file, []byte(`<html><body>v1</body></html>`), 0644))

	collector := metrics.NewCollector()
	src := New(Config{Dir: dir, Suffix: ".html", Cache: true}, WithMetrics(collector))
	defer src.Close()

	ctx := context.Background()
	require.NoError(t, src.Watch(ctx))
	require.NoError(t, src.Watch(ctx), "second Watch is a no-op")

	doc, err := src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, `<html><body>v1</body></html>`, domtest.DumpDocument(doc))

	require.NoError(t, os.WriteFile(file, []byte(`<html><body>v2</body></html>`), 0644))

	assert.Eventually(t, func() bool {
		return collector.GetMetrics().Invalidations > 0
	}, 5*time.Second, 10*time.Millisecond)

	doc, err = src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, `<html><body>v2</body></html>`, domtest.DumpDocument(doc))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func TestSource_WatchNewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	src := New(Config{Dir: dir, Suffix: ".html", Cache: true})
	defer src.Close()
	ctx := context.Background()
	require.NoError(t, src.Watch(ctx))

	sub := filepath.Join(dir, "layouts")
	require.NoError(t, os.Mkdir(sub, 0755))
	file := filepath.Join(sub, "main.html")

	require.NoError(t, os.WriteFile(file, []byte(`<html></html>`), 0644))
	_, err := src.Load(ctx, "layouts/main")
	require.NoError(t, err)
	require.Equal(t, 1, src.Len())

	// the new directory is watched once its create event has been handled
	assert.Eventually(t, func() bool {
		if err := os.WriteFile(file, []byte(`<html><body></body></html>`), 0644); err != nil {
			return false
		}
		return src.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSource_WatchRequiresDirectory(t *testing.T) {
	src := New(Config{Suffix: ".html"}, WithFS(testFS()))
	assert.True(t, errors.Is(src.Watch(context.Background()), ErrNoDirectory))
	assert.NoError(t, src.Close())
}

func TestSource_WatchStopsWithContext(t *testing.T) {
	src := New(Config{Dir: t.TempDir(), Suffix: ".html"})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Watch(ctx))

	cancel()
	require.NoError(t, src.Close())
}

func TestTemplateName(t *testing.T) {
	src := New(Config{Dir: "/srv/templates", Suffix: ".html"})

	tests := []struct {
		file string
		name string
		ok   bool
	}{
		{"/srv/templates/base.html", "base", true},
		{"/srv/templates/layouts/main.html", "layouts/main", true},
		{"/srv/templates/notes.txt", "", false},
		{"/srv/other/base.html", "", false},
		{"/srv/templates/.html", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			name, ok := src.templateName(tt.file)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestSource_Budget(t *testing.T) {
	budget := memory.NewBudget(&memory.Config{Limit: 10})
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()), WithBudget(budget))
	ctx := context.Background()

	// <html><body>admin</body></html> is four nodes with the document node
	_, err := src.Load(ctx, "layouts/admin")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len())
	assert.Equal(t, int64(4), src.CacheStatus().Usage)

	_, err = src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Len(), "base does not fit and stays uncached")

	doc, err := src.Load(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, baseHTML, domtest.DumpDocument(doc))

	src.Invalidate("layouts/admin")
	assert.Equal(t, int64(0), src.CacheStatus().Usage)
}

func TestSource_ChangeHook(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "base.html")
	require.NoError(t, os.WriteFile(file, []byte(`<html></html>`), 0644))

	changed := make(chan string, 16)
	src := New(Config{Dir: dir, Suffix: ".html"}, WithChangeHook(func(name string) { changed <- name }))
	defer src.Close()
	require.NoError(t, src.Watch(context.Background()))

	require.NoError(t, os.WriteFile(file, []byte(`<html><body></body></html>`), 0644))

	select {
	case name := <-changed:
		assert.Equal(t, "base", name)
	case <-time.After(5 * time.Second):
		t.Fatal("change hook was not called")
	}
}

func TestSource_BudgetTracksCacheUnderInvalidation(t *testing.T) {
	budget := memory.NewBudget(&memory.Config{Limit: 1000})
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()), WithBudget(budget))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _ = src.Load(ctx, "base")
				_, _ = src.Load(ctx, "layouts/admin")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				src.Invalidate("base")
				if j%50 == 0 {
					src.Purge()
				}
			}
		}()
	}
	wg.Wait()

	// every cached tree holds exactly one reservation of its size
	src.mu.RLock()
	var want int64
	for _, doc := range src.docs {
		want += int64(doc.Len())
	}
	cached := len(src.docs)
	src.mu.RUnlock()

	status := src.CacheStatus()
	assert.Equal(t, want, status.Usage)
	assert.Equal(t, cached, status.Entries)
}

func TestSource_LargestTemplates(t *testing.T) {
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()), WithBudget(memory.NewBudget(nil)))
	ctx := context.Background()

	_, err := src.Load(ctx, "layouts/admin")
	require.NoError(t, err)
	base, err := src.Load(ctx, "base")
	require.NoError(t, err)

	assert.Equal(t, []memory.Entry{
		{Key: "base", Size: int64(base.Len())},
		{Key: "layouts/admin", Size: 4},
	}, src.LargestTemplates(5))
	assert.Len(t, src.LargestTemplates(1), 1)

	unlimited := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()))
	assert.Nil(t, unlimited.LargestTemplates(5))
}

func TestSource_ResolveCountsIgnoredSelectors(t *testing.T) {
	collector := metrics.NewCollector()
	src := New(Config{Suffix: ".html", Cache: true}, WithFS(testFS()), WithMetrics(collector))
	ctx := context.Background()

	_, err := src.Resolve(ctx, "base")
	require.NoError(t, err)
	assert.Zero(t, collector.GetCustomCounters()["selector_ignored"])

	_, err = src.Resolve(ctx, "base :: layout")
	require.NoError(t, err)
	assert.Equal(t, int64(1), collector.GetMetrics().Counters["selector_ignored"])
}
