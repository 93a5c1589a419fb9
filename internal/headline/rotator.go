// Package headline cycles the ticker through the current alerts.
package headline

import (
	"time"

	"k8s.io/utils/clock"
)

const (
	DefaultPeriod = 7 * time.Second
	DefaultBlink  = 200 * time.Millisecond

	NoAlertsMessage = "No active alerts"
	ErrorMessage    = "Unable to load alerts"
)

// ShowFunc receives the ticker text. blinking is true while the transition
// to a new entry is in progress.
type ShowFunc func(text string, blinking bool)

// Rotator is driven by the dashboard session goroutine: it arms timers, the
// owner selects on C and BlinkC and calls Advance and EndBlink.
type Rotator struct {
	clock  clock.WithTicker
	period time.Duration
	blink  time.Duration
	show   ShowFunc

	entries []string
	index   int
	ticker  clock.Ticker
	blinker clock.Timer
}

func NewRotator(clk clock.WithTicker, period, blink time.Duration, show ShowFunc) *Rotator {
	if period <= 0 {
		period = DefaultPeriod
	}
	if blink <= 0 {
		blink = DefaultBlink
	}
	return &Rotator{
		clock:  clk,
		period: period,
		blink:  blink,
		show:   show,
	}
}

// Reset restarts rotation over entries from index 0.
func (r *Rotator) Reset(entries []string) {
	r.Stop()
	r.entries = append(r.entries[:0], entries...)
	r.index = 0

	if len(r.entries) == 0 {
		r.show(NoAlertsMessage, false)
		return
	}

	r.show(r.entries[0], false)
	r.ticker = r.clock.NewTicker(r.period)
}

// Fail stops rotation and shows a static error message.
func (r *Rotator) Fail(msg string) {
	r.Stop()
	r.entries = r.entries[:0]
	r.index = 0
	if msg == "" {
		msg = ErrorMessage
	}
	r.show(msg, false)
}

// Advance moves to the next entry, wrapping around.
func (r *Rotator) Advance() {
	if len(r.entries) == 0 {
		return
	}
	r.index = (r.index + 1) % len(r.entries)
	r.show(r.entries[r.index], true)

	if r.blinker != nil {
		r.blinker.Stop()
	}
	r.blinker = r.clock.NewTimer(r.blink)
}

// EndBlink finishes the transition started by Advance.
func (r *Rotator) EndBlink() {
	r.blinker = nil
	if len(r.entries) == 0 {
		return
	}
	r.show(r.entries[r.index], false)
}

func (r *Rotator) C() <-chan time.Time {
	if r.ticker == nil {
		return nil
	}
	return r.ticker.C()
}

func (r *Rotator) BlinkC() <-chan time.Time {
	if r.blinker == nil {
		return nil
	}
	return r.blinker.C()
}

func (r *Rotator) Index() int { return r.index }

func (r *Rotator) Len() int { return len(r.entries) }

func (r *Rotator) Running() bool { return r.ticker != nil }

// Stop disarms both timers.
func (r *Rotator) Stop() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.blinker != nil {
		r.blinker.Stop()
		r.blinker = nil
	}
}
