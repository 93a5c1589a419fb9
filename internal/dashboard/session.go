package dashboard

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"k8s.io/utils/clock"

	"github.com/mr1hm/go-weather-dashboard/internal/headline"
	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/panel"
	"github.com/mr1hm/go-weather-dashboard/internal/scoring"
	"github.com/mr1hm/go-weather-dashboard/internal/selection"
	"github.com/mr1hm/go-weather-dashboard/internal/tracking"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

// View is the set of rendering collaborators the session drives: the map,
// the text slots, the panel and the warning sound.
type View interface {
	RenderAlerts(fc *geojson.FeatureCollection)
	FitBounds(fit view.FitView)
	SetFields(fields map[view.Slot]string)
	SetTicker(text string, blinking bool)
	SetPanelVisible(visible bool)
	Relayout()
	PlayWarning()
}

// Recorder receives the records that appeared in a poll.
type Recorder interface {
	Record(kind models.EventKind, records []models.AlertRecord, at time.Time)
}

type SessionOptions struct {
	HeadlinePeriod time.Duration
	HeadlineBlink  time.Duration
	RelayoutDelay  time.Duration
	Location       *time.Location
}

// Session is all state the dashboard keeps between polls. Every method must
// be called from one goroutine.
type Session struct {
	view     View
	recorder Recorder
	loc      *time.Location

	tracker   *tracking.Tracker
	selection selection.State
	panel     *panel.Panel
	headline  *headline.Rotator
	polygons  models.Snapshot
}

func NewSession(clk clock.WithTicker, v View, rec Recorder, opts SessionOptions) *Session {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	s := &Session{
		view:     v,
		recorder: rec,
		loc:      loc,
		tracker:  tracking.NewTracker(),
		panel:    panel.New(clk, opts.RelayoutDelay),
	}
	s.headline = headline.NewRotator(clk, opts.HeadlinePeriod, opts.HeadlineBlink, v.SetTicker)
	return s
}

// Outcome summarizes what one snapshot changed.
type Outcome struct {
	Polygons      int
	NewPolygonIDs []string
	NewWarning    bool
	DisplayedID   string
	Pinned        bool
	PanelOpened   bool
	PanelClosed   bool
	Fit           *selection.Fit
}

// Apply runs one successful poll through tracking, selection, the panel and
// the headline rotation. It returns only after all state is updated.
func (s *Session) Apply(snap models.Snapshot, at time.Time) Outcome {
	polygons := snap.Polygons()
	warnings := scoring.Warnings(snap)

	pd := s.tracker.DiffPolygons(polygons)
	wd := s.tracker.DiffWarnings(warnings)
	s.polygons = polygons

	s.view.RenderAlerts(view.StyledCollection(polygons))

	if wd.HasNewWarning {
		s.view.PlayWarning()
		metrics.WarningSoundsTotal.Inc()
	}

	out := Outcome{
		Polygons:      len(polygons),
		NewPolygonIDs: pd.NewIDs,
		NewWarning:    wd.HasNewWarning,
	}

	res := selection.Select(&s.selection, polygons, pd)
	switch {
	case res.Empty:
		s.showDetails(nil)
		out.PanelClosed = s.closePanel()
	case res.Pinned:
		s.showDetails(&res.Displayed)
	default:
		s.showDetails(&res.Displayed)
		if res.AutoOpen {
			out.PanelOpened = s.openPanel()
		}
	}
	if !res.Empty {
		out.DisplayedID = res.Displayed.ID
		out.Pinned = res.Pinned
	}

	fit, err := selection.PlanFit(&s.selection, polygons, pd)
	if err != nil {
		slog.Warn("skipping map fit", "error", err)
	}
	if fit != nil {
		s.view.FitBounds(view.NewFitView(string(fit.Kind), fit.AlertID, fit.Bound, fit.Padding))
		out.Fit = fit
	}

	s.view.SetFields(map[view.Slot]string{view.SlotAlertCount: strconv.Itoa(len(polygons))})
	s.headline.Reset(view.HeadlineTexts(polygons))

	metrics.RecordSnapshot(len(snap), len(polygons), wd.CurrentIDs.Len(), len(pd.NewIDs), len(wd.NewIDs))
	if s.recorder != nil {
		s.recorder.Record(models.EventKindPolygon, pick(polygons, pd.NewIDs), at)
		s.recorder.Record(models.EventKindWarning, pick(warnings, wd.NewIDs), at)
	}

	return out
}

// Fail handles a poll that produced no snapshot. Map and panel keep showing
// the previous state.
func (s *Session) Fail() {
	s.headline.Fail(headline.ErrorMessage)
}

// Select pins the alert the user clicked and forces the panel open.
func (s *Session) Select(id string) error {
	rec, err := selection.Pin(&s.selection, s.polygons, id)
	if err != nil {
		return err
	}
	s.showDetails(&rec)
	s.openPanel()
	return nil
}

// ClosePanel is the close-button action. The selection is kept.
func (s *Session) ClosePanel() {
	s.closePanel()
}

func (s *Session) SelectionState() selection.State { return s.selection }

func (s *Session) PanelState() panel.Visibility { return s.panel.State() }

// Stop disarms every timer the session owns.
func (s *Session) Stop() {
	s.headline.Stop()
	s.panel.Stop()
}

func (s *Session) showDetails(rec *models.AlertRecord) {
	s.panel.Show(rec)
	s.view.SetFields(view.DetailFields(rec, s.loc))
}

func (s *Session) openPanel() bool {
	if !s.panel.Open() {
		return false
	}
	s.view.SetPanelVisible(true)
	return true
}

func (s *Session) closePanel() bool {
	if !s.panel.Close() {
		return false
	}
	s.view.SetPanelVisible(false)
	return true
}

func (s *Session) relayout() {
	s.panel.RelayoutDone()
	s.view.Relayout()
}

func pick(records []models.AlertRecord, ids []string) []models.AlertRecord {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]models.AlertRecord, 0, len(ids))
	for _, r := range records {
		if want[r.ID] {
			out = append(out, r)
			delete(want, r.ID)
		}
	}
	return out
}
