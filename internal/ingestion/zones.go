package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
)

// fallbackEvents are issued against forecast zones and usually arrive with
// no geometry of their own.
var fallbackEvents = map[string]bool{
	"winter weather advisory":   true,
	"winter storm warning":      true,
	"winter storm watch":        true,
	"blizzard warning":          true,
	"wind chill advisory":       true,
	"wind chill warning":        true,
	"freeze warning":            true,
	"hard freeze warning":       true,
	"frost advisory":            true,
	"ice storm warning":         true,
	"areal flood advisory":      true,
	"areal flood warning":       true,
	"areal flood watch":         true,
	"dense fog advisory":        true,
	"wind advisory":             true,
	"high wind warning":         true,
	"red flag warning":          true,
	"fire weather watch":        true,
	"special weather statement": true,
	"heat advisory":             true,
	"excessive heat warning":    true,
	"snow squall warning":       true,
}

type zoneFetchFunc func(ctx context.Context, url string) (*geojson.Feature, error)

// zoneCache remembers zone geometry for the life of the process. A failed
// lookup is cached as nil and never retried, unless it failed because the
// caller's context ended.
type zoneCache struct {
	mu    sync.Mutex
	geoms map[string]orb.Geometry
	fetch zoneFetchFunc
}

func newZoneCache(fetch zoneFetchFunc) *zoneCache {
	return &zoneCache{
		geoms: make(map[string]orb.Geometry),
		fetch: fetch,
	}
}

func (z *zoneCache) lookup(url string) (orb.Geometry, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	g, ok := z.geoms[url]
	return g, ok
}

func (z *zoneCache) load(ctx context.Context, url string) orb.Geometry {
	if g, ok := z.lookup(url); ok {
		return g
	}

	var g orb.Geometry
	f, err := z.fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("zone lookup cancelled, not caching", "zone", url, "error", err)
			return nil
		}
		slog.Warn("error fetching zone geometry", "zone", url, "error", err)
	} else {
		g = f.Geometry
	}

	z.mu.Lock()
	z.geoms[url] = g
	z.mu.Unlock()
	return g
}

func (z *zoneCache) len() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return len(z.geoms)
}

func needsZoneGeometry(f *geojson.Feature) bool {
	if f.Geometry != nil {
		return false
	}
	event := strings.ToLower(f.Properties.MustString("event", ""))
	return fallbackEvents[event] && len(affectedZones(f)) > 0
}

func affectedZones(f *geojson.Feature) []string {
	raw, ok := f.Properties["affectedZones"].([]any)
	if !ok {
		return nil
	}
	zones := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			zones = append(zones, s)
		}
	}
	return zones
}

// addZoneGeometry attaches a Polygon or MultiPolygon built from affected
// zones to every fallback-eligible feature. Zones shared between alerts are
// fetched once.
func (c *Client) addZoneGeometry(ctx context.Context, features []*geojson.Feature) {
	var pending []*geojson.Feature
	urls := make(map[string]struct{})
	for _, f := range features {
		if !needsZoneGeometry(f) {
			continue
		}
		pending = append(pending, f)
		for _, u := range affectedZones(f) {
			urls[u] = struct{}{}
		}
	}
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.zoneConcurrency)
	for u := range urls {
		if _, ok := c.zones.lookup(u); ok {
			continue
		}
		g.Go(func() error {
			c.zones.load(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	metrics.ZoneCacheEntries.Set(float64(c.zones.len()))

	for _, f := range pending {
		if geom := mergeZones(c.zones, affectedZones(f)); geom != nil {
			f.Geometry = geom
		}
	}
}

func mergeZones(z *zoneCache, urls []string) orb.Geometry {
	var polygons orb.MultiPolygon
	for _, u := range urls {
		g, _ := z.lookup(u)
		switch geom := g.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		}
	}

	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return polygons[0]
	default:
		return polygons
	}
}
