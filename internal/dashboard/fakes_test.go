package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

type fakeView struct {
	mu           sync.Mutex
	renders      []*geojson.FeatureCollection
	fits         []view.FitView
	fields       map[view.Slot]string
	ticker       string
	blinking     bool
	panelVisible bool
	panelChanges int
	relayouts    int
	warnings     int
}

func newFakeView() *fakeView {
	return &fakeView{fields: make(map[view.Slot]string)}
}

func (v *fakeView) RenderAlerts(fc *geojson.FeatureCollection) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, fc)
}

func (v *fakeView) FitBounds(fit view.FitView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fits = append(v.fits, fit)
}

func (v *fakeView) SetFields(fields map[view.Slot]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range fields {
		v.fields[k] = val
	}
}

func (v *fakeView) SetTicker(text string, blinking bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ticker, v.blinking = text, blinking
}

func (v *fakeView) SetPanelVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panelVisible = visible
	v.panelChanges++
}

func (v *fakeView) Relayout() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.relayouts++
}

func (v *fakeView) PlayWarning() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warnings++
}

func (v *fakeView) field(s view.Slot) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fields[s]
}

func (v *fakeView) tickerText() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ticker, v.blinking
}

func (v *fakeView) visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.panelVisible
}

func (v *fakeView) counts() (renders, fits, panelChanges, relayouts, warnings int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders), len(v.fits), v.panelChanges, v.relayouts, v.warnings
}

func (v *fakeView) lastFit() view.FitView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fits[len(v.fits)-1]
}

type recorded struct {
	kind models.EventKind
	ids  []string
}

type fakeRecorder struct {
	calls []recorded
}

func (r *fakeRecorder) Record(kind models.EventKind, records []models.AlertRecord, at time.Time) {
	if len(records) == 0 {
		return
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	r.calls = append(r.calls, recorded{kind: kind, ids: ids})
}

type fetchResponse struct {
	snap models.Snapshot
	err  error
}

// fakeFetcher hands call i the response queued on gates[i].
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	gates []chan fetchResponse
}

func newFakeFetcher(n int) *fakeFetcher {
	f := &fakeFetcher{gates: make([]chan fetchResponse, n)}
	for i := range f.gates {
		f.gates[i] = make(chan fetchResponse, 1)
	}
	return f
}

func (f *fakeFetcher) respond(i int, snap models.Snapshot, err error) {
	f.gates[i] <- fetchResponse{snap: snap, err: err}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if i >= len(f.gates) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	select {
	case r := <-f.gates[i]:
		return r.snap, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func alert(id, severity, event string, x, y float64) models.AlertRecord {
	return models.AlertRecord{
		ID:          id,
		HasGeometry: true,
		Geometry:    square(x, y),
		Severity:    severity,
		Event:       event,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
