package postcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"memer/internal/model"
)

type mockFetcher struct {
	mu      sync.Mutex
	items   map[string][]model.Item
	errs    map[string]error
	block   map[string]bool
	calls   []string
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (m *mockFetcher) Fetch(ctx context.Context, source string) ([]model.Item, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, source)
	items, err, block := m.items[source], m.errs[source], m.block[source]
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return items, err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(source string, n int) model.Item {
	return model.Item{
		Title:     fmt.Sprintf("%s post %d", source, n),
		Score:     float64(100 - n),
		Content:   fmt.Sprintf("https://i.example.com/%s/%d.jpg", source, n),
		Permalink: fmt.Sprintf("/r/%s/comments/%d/", source, n),
		Source:    source,
	}
}

func TestRefreshIsolatesFailures(t *testing.T) {
	f := &mockFetcher{
		items: map[string][]model.Item{"b": {post("b", 1), post("b", 2)}},
		errs:  map[string]error{"a": errors.New("boom")},
	}
	c := New(f, Options{}, testLogger())

	rep := c.Refresh(context.Background(), []string{"a", "b"})

	if got := c.Get("a"); got != nil {
		t.Errorf("failed source should stay absent, got %v", got)
	}
	if diff := cmp.Diff([]model.Item{post("b", 1), post("b", 2)}, c.Get("b")); diff != "" {
		t.Errorf("source b mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, rep.Succeeded); diff != "" {
		t.Errorf("succeeded mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, rep.Failed); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, rep.Items); diff != "" {
		t.Errorf("item count mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshFailureKeepsPreviousEntry(t *testing.T) {
	f := &mockFetcher{items: map[string][]model.Item{"a": {post("a", 1)}}}
	c := New(f, Options{}, testLogger())
	c.Refresh(context.Background(), []string{"a"})

	f.mu.Lock()
	f.errs = map[string]error{"a": errors.New("rate limited")}
	f.mu.Unlock()
	c.Refresh(context.Background(), []string{"a"})

	if diff := cmp.Diff([]model.Item{post("a", 1)}, c.Get("a")); diff != "" {
		t.Errorf("entry should be unchanged (-want +got):\n%s", diff)
	}
}

func TestRefreshMergesAcrossCycles(t *testing.T) {
	f := &mockFetcher{items: map[string][]model.Item{"a": {post("a", 1), post("a", 2)}}}
	c := New(f, Options{}, testLogger())
	c.Refresh(context.Background(), []string{"a"})

	updated := post("a", 2)
	updated.Score = 999
	f.mu.Lock()
	f.items["a"] = []model.Item{updated, post("a", 3)}
	f.mu.Unlock()
	c.Refresh(context.Background(), []string{"a"})

	want := []model.Item{post("a", 1), updated, post("a", 3)}
	if diff := cmp.Diff(want, c.Get("a")); diff != "" {
		t.Errorf("merged entry mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshTimesOutHungSource(t *testing.T) {
	f := &mockFetcher{
		items: map[string][]model.Item{"fast": {post("fast", 1)}},
		block: map[string]bool{"hung": true},
	}
	c := New(f, Options{FetchTimeout: 20 * time.Millisecond}, testLogger())

	done := make(chan Report)
	go func() { done <- c.Refresh(context.Background(), []string{"hung", "fast"}) }()

	select {
	case rep := <-done:
		if diff := cmp.Diff([]string{"hung"}, rep.Failed); diff != "" {
			t.Errorf("failed mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("refresh stalled on a hung source")
	}
	if diff := cmp.Diff(1, len(c.Get("fast"))); diff != "" {
		t.Errorf("fast source mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshConcurrencyLimit(t *testing.T) {
	sources := make([]string, 12)
	items := make(map[string][]model.Item)
	for i := range sources {
		sources[i] = fmt.Sprintf("s%d", i)
		items[sources[i]] = []model.Item{post(sources[i], 1)}
	}
	f := &mockFetcher{items: items, delay: 5 * time.Millisecond}
	c := New(f, Options{Concurrency: 3}, testLogger())

	rep := c.Refresh(context.Background(), sources)

	if diff := cmp.Diff(len(sources), len(rep.Succeeded)); diff != "" {
		t.Errorf("succeeded count mismatch (-want +got):\n%s", diff)
	}
	if got := f.maxSeen.Load(); got > 3 {
		t.Errorf("saw %d concurrent fetches, limit is 3", got)
	}
	if diff := cmp.Diff(len(sources), c.Len()); diff != "" {
		t.Errorf("cache size mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendConcurrentSameKey(t *testing.T) {
	c := New(&mockFetcher{}, Options{}, testLogger())

	var wg sync.WaitGroup
	for w := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 20 {
				c.Append("aww", []model.Item{post("aww", w*20+i)})
			}
		}()
	}
	wg.Wait()

	if diff := cmp.Diff(200, len(c.Get("aww"))); diff != "" {
		t.Errorf("lost appends (-want +got):\n%s", diff)
	}
}

func TestGetReturnsStableSnapshot(t *testing.T) {
	c := New(&mockFetcher{}, Options{}, testLogger())
	c.Append("aww", []model.Item{post("aww", 1)})

	snap := c.Get("aww")
	c.Append("aww", []model.Item{post("aww", 2)})

	if diff := cmp.Diff([]model.Item{post("aww", 1)}, snap); diff != "" {
		t.Errorf("snapshot changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"aww"}, c.Sources()); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}
