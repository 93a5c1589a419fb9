package view

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-weather-dashboard/internal/stream"
)

const (
	EventPolygons = "polygons"
	EventFit      = "fit"
	EventSlots    = "slots"
	EventTicker   = "ticker"
	EventPanel    = "panel"
	EventRelayout = "relayout"
	EventAudio    = "audio"
)

type FitView struct {
	Kind    string        `json:"kind"`
	AlertID string        `json:"alertId,omitempty"`
	Bounds  [2][2]float64 `json:"bounds"` // [[south, west], [north, east]]
	Padding int           `json:"padding"`
}

func NewFitView(kind, alertID string, b orb.Bound, padding int) FitView {
	return FitView{
		Kind:    kind,
		AlertID: alertID,
		Bounds:  [2][2]float64{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}},
		Padding: padding,
	}
}

type TickerView struct {
	Text     string `json:"text"`
	Blinking bool   `json:"blinking"`
}

// State is everything the renderer needs to draw the dashboard from scratch.
type State struct {
	Polygons     json.RawMessage `json:"polygons"`
	Fields       map[Slot]string `json:"fields"`
	PanelVisible bool            `json:"panelVisible"`
	Fit          *FitView        `json:"fit,omitempty"`
	Ticker       TickerView      `json:"ticker"`
	WarningCount uint64          `json:"warningCount"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Store keeps the latest collaborator output for HTTP readers and publishes
// each change as a stream event. Writes come from the dashboard session;
// reads may come from any goroutine.
type Store struct {
	mu    sync.RWMutex
	state State
	pub   *stream.Broadcaster
	now   func() time.Time
}

func NewStore(pub *stream.Broadcaster) *Store {
	fields := make(map[Slot]string, len(DetailSlots)+3)
	for _, s := range DetailSlots {
		fields[s] = Placeholder
	}
	fields[SlotTicker] = Placeholder
	fields[SlotAlertCount] = Placeholder
	fields[SlotClock] = Placeholder

	return &Store{
		state: State{
			Polygons: json.RawMessage(`{"type":"FeatureCollection","features":[]}`),
			Fields:   fields,
		},
		pub: pub,
		now: time.Now,
	}
}

func (s *Store) RenderAlerts(fc *geojson.FeatureCollection) {
	raw, err := json.Marshal(fc)
	if err != nil {
		slog.Error("error encoding alert polygons", "error", err)
		return
	}

	s.mu.Lock()
	s.state.Polygons = raw
	s.touch()
	s.mu.Unlock()

	s.publish(EventPolygons, json.RawMessage(raw))
}

func (s *Store) FitBounds(fit FitView) {
	s.mu.Lock()
	s.state.Fit = &fit
	s.touch()
	s.mu.Unlock()

	s.publish(EventFit, fit)
}

func (s *Store) SetFields(fields map[Slot]string) {
	changed := make(map[Slot]string, len(fields))

	s.mu.Lock()
	for slot, v := range fields {
		if v == "" {
			v = Placeholder
		}
		if s.state.Fields[slot] != v {
			s.state.Fields[slot] = v
			changed[slot] = v
		}
	}
	if len(changed) > 0 {
		s.touch()
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.publish(EventSlots, changed)
	}
}

func (s *Store) SetTicker(text string, blinking bool) {
	if text == "" {
		text = Placeholder
	}
	tv := TickerView{Text: text, Blinking: blinking}

	s.mu.Lock()
	s.state.Ticker = tv
	s.state.Fields[SlotTicker] = text
	s.touch()
	s.mu.Unlock()

	s.publish(EventTicker, tv)
}

func (s *Store) SetPanelVisible(visible bool) {
	s.mu.Lock()
	s.state.PanelVisible = visible
	s.touch()
	s.mu.Unlock()

	s.publish(EventPanel, payload{"visible": visible})
}

func (s *Store) Relayout() {
	s.publish(EventRelayout, nil)
}

func (s *Store) PlayWarning() {
	s.mu.Lock()
	s.state.WarningCount++
	s.touch()
	s.mu.Unlock()

	s.publish(EventAudio, payload{"sound": "warning"})
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Fields = make(map[Slot]string, len(s.state.Fields))
	for k, v := range s.state.Fields {
		st.Fields[k] = v
	}
	if s.state.Fit != nil {
		fit := *s.state.Fit
		st.Fit = &fit
	}
	return st
}

func (s *Store) touch() {
	s.state.UpdatedAt = s.now()
}

func (s *Store) publish(typ string, data any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(stream.Event{Type: typ, Data: data, At: s.now()})
}

type payload = map[string]any
