// Package panel models the detail panel: visibility and content are separate
// axes, and every change to VISIBLE schedules a deferred relayout.
package panel

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

// DefaultRelayoutDelay matches the panel's slide-in transition.
const DefaultRelayoutDelay = 300 * time.Millisecond

type Visibility string

const (
	Hidden  Visibility = "HIDDEN"
	Visible Visibility = "VISIBLE"
)

// Panel is owned by the dashboard session goroutine; it is not safe for
// concurrent use.
type Panel struct {
	clock    clock.Clock
	delay    time.Duration
	state    Visibility
	content  *models.AlertRecord
	relayout clock.Timer
}

func New(clk clock.Clock, relayoutDelay time.Duration) *Panel {
	if relayoutDelay <= 0 {
		relayoutDelay = DefaultRelayoutDelay
	}
	return &Panel{
		clock: clk,
		delay: relayoutDelay,
		state: Hidden,
	}
}

func (p *Panel) State() Visibility { return p.state }

// Open moves to VISIBLE. It reports whether the state changed; only a change
// arms the relayout signal.
func (p *Panel) Open() bool {
	if p.state == Visible {
		return false
	}
	p.state = Visible
	p.armRelayout()
	return true
}

// Close moves to HIDDEN and reports whether the state changed. A pending
// relayout is left to fire.
func (p *Panel) Close() bool {
	if p.state == Hidden {
		return false
	}
	p.state = Hidden
	return true
}

// Show replaces the content without touching visibility. nil clears it.
func (p *Panel) Show(rec *models.AlertRecord) {
	if rec == nil {
		p.content = nil
		return
	}
	c := *rec
	p.content = &c
}

// Content returns the displayed record, if any.
func (p *Panel) Content() (models.AlertRecord, bool) {
	if p.content == nil {
		return models.AlertRecord{}, false
	}
	return *p.content, true
}

// RelayoutC fires once after the last transition to VISIBLE. It is nil when
// nothing is pending, which blocks forever in a select.
func (p *Panel) RelayoutC() <-chan time.Time {
	if p.relayout == nil {
		return nil
	}
	return p.relayout.C()
}

// RelayoutDone must be called after receiving from RelayoutC.
func (p *Panel) RelayoutDone() {
	p.relayout = nil
}

func (p *Panel) Stop() {
	if p.relayout != nil {
		p.relayout.Stop()
		p.relayout = nil
	}
}

func (p *Panel) armRelayout() {
	if p.relayout != nil {
		p.relayout.Stop()
	}
	p.relayout = p.clock.NewTimer(p.delay)
}
