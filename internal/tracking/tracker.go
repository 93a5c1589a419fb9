// Package tracking remembers which alert identities the previous poll held
// and reports what is new in the current one.
package tracking

import "github.com/mr1hm/go-weather-dashboard/internal/models"

// IDSet is a set of alert ids.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

type PolygonDiff struct {
	NewIDs     []string
	CurrentIDs IDSet
}

func (d PolygonDiff) HasNew() bool { return len(d.NewIDs) > 0 }

// IsNew reports whether id appeared in this poll.
func (d PolygonDiff) IsNew(id string) bool {
	for _, n := range d.NewIDs {
		if n == id {
			return true
		}
	}
	return false
}

type WarningDiff struct {
	HasNewWarning bool
	NewIDs        []string
	CurrentIDs    IDSet
}

// Tracker holds the polygon and warning id sets of the most recent snapshot.
// The zero value is ready to use. Not safe for concurrent use.
type Tracker struct {
	knownPolygons IDSet
	knownWarnings IDSet
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// DiffPolygons compares geometry-bearing records against the previous call
// and replaces the known set with the current one.
func (t *Tracker) DiffPolygons(records []models.AlertRecord) PolygonDiff {
	newIDs, current := diff(t.knownPolygons, records)
	t.knownPolygons = current
	return PolygonDiff{NewIDs: newIDs, CurrentIDs: current}
}

// DiffWarnings is DiffPolygons for warning-classified records.
func (t *Tracker) DiffWarnings(records []models.AlertRecord) WarningDiff {
	newIDs, current := diff(t.knownWarnings, records)
	t.knownWarnings = current
	return WarningDiff{HasNewWarning: len(newIDs) > 0, NewIDs: newIDs, CurrentIDs: current}
}

func diff(previous IDSet, records []models.AlertRecord) ([]string, IDSet) {
	current := make(IDSet, len(records))
	var newIDs []string
	for _, r := range records {
		if r.ID == "" || current.Has(r.ID) {
			continue
		}
		current[r.ID] = struct{}{}
		if !previous.Has(r.ID) {
			newIDs = append(newIDs, r.ID)
		}
	}
	return newIDs, current
}
