// Package dashboard runs the headless alert dashboard: it polls the alert
// endpoint and turns every snapshot into collaborator updates.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

const (
	DefaultPollInterval  = 60 * time.Second
	DefaultClockInterval = time.Second
)

var ErrStopped = errors.New("dashboard is not running")

type Options struct {
	PollInterval time.Duration
	// AllowOverlap starts a poll on every tick even if the previous one is
	// still running; the last one to complete wins. Otherwise the tick is
	// skipped.
	AllowOverlap bool
	// ClockInterval <= 0 disables the clock slot.
	ClockInterval time.Duration
	Session       SessionOptions
}

type pollResult struct {
	seq  uint64
	snap models.Snapshot
	err  error
}

type command struct {
	fn    func() error
	reply chan error
}

// Status describes the poll driver for health reporting.
type Status struct {
	Polls         uint64    `json:"polls"`
	InFlight      int       `json:"in_flight"`
	LastPollAt    time.Time `json:"last_poll_at,omitzero"`
	LastSuccessAt time.Time `json:"last_success_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
}

type Dashboard struct {
	opts    Options
	clock   clock.WithTicker
	fetcher SnapshotFetcher
	view    View
	session *Session

	results  chan pollResult
	commands chan command
	done     chan struct{}
	wg       sync.WaitGroup

	// owned by the Run goroutine
	seq      uint64
	inFlight int

	mu     sync.RWMutex
	status Status
}

func New(clk clock.WithTicker, fetcher SnapshotFetcher, v View, rec Recorder, opts Options) *Dashboard {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Dashboard{
		opts:     opts,
		clock:    clk,
		fetcher:  fetcher,
		view:     v,
		session:  NewSession(clk, v, rec, opts.Session),
		results:  make(chan pollResult),
		commands: make(chan command),
		done:     make(chan struct{}),
	}
}

// Run owns the session until ctx is cancelled. It polls immediately and then
// every PollInterval.
func (d *Dashboard) Run(ctx context.Context) {
	slog.Info("starting dashboard", "interval", d.opts.PollInterval, "allow_overlap", d.opts.AllowOverlap)

	ticker := d.clock.NewTicker(d.opts.PollInterval)

	var clockC <-chan time.Time
	if d.opts.ClockInterval > 0 {
		clockTicker := d.clock.NewTicker(d.opts.ClockInterval)
		defer clockTicker.Stop()
		clockC = clockTicker.C()
		d.updateClock(d.clock.Now())
	}

	defer func() {
		ticker.Stop()
		close(d.done)
		d.wg.Wait()
		d.session.Stop()
		slog.Info("dashboard stopped")
	}()

	d.startPoll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			d.startPoll(ctx)
		case res := <-d.results:
			d.finishPoll(res)
		case cmd := <-d.commands:
			cmd.reply <- cmd.fn()
		case <-d.session.headline.C():
			d.session.headline.Advance()
		case <-d.session.headline.BlinkC():
			d.session.headline.EndBlink()
		case <-d.session.panel.RelayoutC():
			d.session.relayout()
		case now := <-clockC:
			d.updateClock(now)
		}
	}
}

// SelectAlert pins id as if the user clicked its polygon.
func (d *Dashboard) SelectAlert(ctx context.Context, id string) error {
	return d.do(ctx, func() error { return d.session.Select(id) })
}

// ClosePanel hides the detail panel.
func (d *Dashboard) ClosePanel(ctx context.Context) error {
	return d.do(ctx, func() error {
		d.session.ClosePanel()
		return nil
	})
}

func (d *Dashboard) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Dashboard) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case d.commands <- cmd:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dashboard) startPoll(ctx context.Context) {
	if d.inFlight > 0 && !d.opts.AllowOverlap {
		slog.Debug("previous poll still running, skipping tick")
		metrics.RecordPoll(metrics.ResultSkipped)
		return
	}

	d.seq++
	d.inFlight++
	d.setStatus(func(s *Status) { s.InFlight = d.inFlight })

	seq := d.seq
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		slog.Debug("polling", "seq", seq)

		snap, err := d.fetcher.FetchSnapshot(ctx)
		select {
		case d.results <- pollResult{seq: seq, snap: snap, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (d *Dashboard) finishPoll(res pollResult) {
	d.inFlight--
	now := d.clock.Now()

	if res.err != nil {
		slog.Error("poll failed", "seq", res.seq, "error", res.err)
		metrics.RecordPoll(metrics.ResultError)
		d.session.Fail()
		d.setStatus(func(s *Status) {
			s.Polls++
			s.InFlight = d.inFlight
			s.LastPollAt = now
			s.LastError = res.err.Error()
		})
		return
	}

	out := d.session.Apply(res.snap, now)
	metrics.RecordPoll(metrics.ResultSuccess)
	d.setStatus(func(s *Status) {
		s.Polls++
		s.InFlight = d.inFlight
		s.LastPollAt = now
		s.LastSuccessAt = now
		s.LastError = ""
	})

	slog.Debug("poll complete",
		"seq", res.seq,
		"alerts", len(res.snap),
		"polygons", out.Polygons,
		"new_polygons", len(out.NewPolygonIDs),
		"new_warning", out.NewWarning,
		"displayed", out.DisplayedID,
	)
}

func (d *Dashboard) updateClock(now time.Time) {
	d.view.SetFields(map[view.Slot]string{view.SlotClock: view.FormatClock(now, d.session.loc)})
}

func (d *Dashboard) setStatus(fn func(*Status)) {
	d.mu.Lock()
	fn(&d.status)
	d.mu.Unlock()
}
