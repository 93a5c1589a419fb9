// Package selection decides which alert the detail panel shows and where the
// map should be re-centered after each poll.
package selection

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/scoring"
	"github.com/mr1hm/go-weather-dashboard/internal/tracking"
)

const (
	InitialFitPadding  = 40
	NewAlertFitPadding = 20
)

var ErrUnknownAlert = errors.New("alert not in current snapshot")

// State persists across polls. SelectedID is only ever set by a user click;
// DisplayedID is whatever the engine last chose on its own.
type State struct {
	SelectedID      string
	DisplayedID     string
	FirstFitDone    bool
	FirstPanelShown bool
}

type Result struct {
	Empty     bool
	Displayed models.AlertRecord
	Pinned    bool
	AutoOpen  bool
}

// Select applies one poll's polygon snapshot to the state.
func Select(state *State, polygons models.Snapshot, diff tracking.PolygonDiff) Result {
	if len(polygons) == 0 {
		state.SelectedID = ""
		state.DisplayedID = ""
		state.FirstPanelShown = false
		return Result{Empty: true}
	}

	previous := state.SelectedID
	if previous != "" {
		if rec, ok := polygons.Find(previous); ok {
			return Result{Displayed: rec, Pinned: true}
		}
		// The pinned alert expired.
		state.SelectedID = ""
	}

	best := scoring.PickBest(polygons)
	state.DisplayedID = best.ID

	autoOpen := !state.FirstPanelShown || (diff.HasNew() && previous == "")
	state.FirstPanelShown = true

	return Result{Displayed: *best, AutoOpen: autoOpen}
}

// Pin records an explicit user click on id.
func Pin(state *State, polygons models.Snapshot, id string) (models.AlertRecord, error) {
	rec, ok := polygons.Find(id)
	if !ok {
		return models.AlertRecord{}, fmt.Errorf("error selecting %q: %w", id, ErrUnknownAlert)
	}
	state.SelectedID = id
	state.DisplayedID = id
	state.FirstPanelShown = true
	return rec, nil
}

type FitKind string

const (
	FitAll FitKind = "all"
	FitNew FitKind = "new"
)

type Fit struct {
	Kind    FitKind
	AlertID string // set for FitNew
	Bound   orb.Bound
	Padding int
}

// PlanFit returns the view change for this poll, or nil to leave the map
// alone. The initial-fit latch is consumed even when the bounds turn out to
// be unusable; the error is for logging only.
func PlanFit(state *State, polygons models.Snapshot, diff tracking.PolygonDiff) (*Fit, error) {
	if len(polygons) == 0 {
		return nil, nil
	}

	if !state.FirstFitDone {
		state.FirstFitDone = true
		bound, err := models.Bounds(polygons...)
		if err != nil {
			return nil, fmt.Errorf("error fitting all alerts: %w", err)
		}
		return &Fit{Kind: FitAll, Bound: bound, Padding: InitialFitPadding}, nil
	}

	if !diff.HasNew() {
		return nil, nil
	}

	fresh := make([]models.AlertRecord, 0, len(diff.NewIDs))
	for _, r := range polygons {
		if diff.IsNew(r.ID) {
			fresh = append(fresh, r)
		}
	}

	target := scoring.PickBest(fresh)
	if target == nil || scoring.AlertScore(*target) == 0 {
		target = scoring.PickBest(polygons)
	}

	bound, err := models.Bounds(*target)
	if err != nil {
		return nil, fmt.Errorf("error fitting alert %q: %w", target.ID, err)
	}
	return &Fit{Kind: FitNew, AlertID: target.ID, Bound: bound, Padding: NewAlertFitPadding}, nil
}
