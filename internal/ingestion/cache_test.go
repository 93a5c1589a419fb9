package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	clocktesting "k8s.io/utils/clock/testing"
)

type fakeFetcher struct {
	calls atomic.Int64
	fail  atomic.Bool
	delay time.Duration
}

func (f *fakeFetcher) FetchActive(ctx context.Context) (*geojson.FeatureCollection, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail.Load() {
		return nil, errors.New("upstream down")
	}
	fc := geojson.NewFeatureCollection()
	feat := geojson.NewFeature(orb.Point{0, 0})
	feat.ID = n
	fc.Append(feat)
	return fc, nil
}

func TestCache_ServesWithinTTL(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute, fc)

	ctx := context.Background()
	if _, _, err := c.Alerts(ctx); err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}
	fc.Step(30 * time.Second)
	if _, _, err := c.Alerts(ctx); err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 upstream call within TTL, got %d", got)
	}

	fc.Step(31 * time.Second)
	body, _, err := c.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("expected refresh after TTL, got %d calls", got)
	}

	var decoded geojson.FeatureCollection
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("cached body is not a feature collection: %v", err)
	}
}

func TestCache_StaleOnFailure(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	f := &fakeFetcher{}
	c := NewCache(f, time.Minute, fc)

	ctx := context.Background()
	first, at, err := c.Alerts(ctx)
	if err != nil {
		t.Fatalf("Alerts failed: %v", err)
	}

	f.fail.Store(true)
	fc.Step(2 * time.Minute)

	stale, staleAt, err := c.Alerts(ctx)
	if err != nil {
		t.Fatalf("expected stale copy, got %v", err)
	}
	if string(stale) != string(first) || !staleAt.Equal(at) {
		t.Error("expected the last good copy to be served")
	}
}

func TestCache_NoDataOnFirstFailure(t *testing.T) {
	f := &fakeFetcher{}
	f.fail.Store(true)
	c := NewCache(f, time.Minute, clocktesting.NewFakeClock(time.Now()))

	if _, _, err := c.Alerts(context.Background()); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestCache_ConcurrentMissesShareFetch(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond}
	c := NewCache(f, time.Minute, clocktesting.NewFakeClock(time.Now()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Alerts(context.Background()); err != nil {
				t.Errorf("Alerts failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected a single upstream fetch, got %d", got)
	}
}
