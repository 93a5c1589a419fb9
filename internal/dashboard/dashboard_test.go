package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mr1hm/go-weather-dashboard/internal/headline"
	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/panel"
	"github.com/mr1hm/go-weather-dashboard/internal/selection"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDashboard(t *testing.T, f SnapshotFetcher, opts Options) (*Dashboard, *fakeView, *clocktesting.FakeClock) {
	t.Helper()
	fc := clocktesting.NewFakeClock(time.Now())
	v := newFakeView()
	if opts.Session.Location == nil {
		opts.Session.Location = time.UTC
	}
	return New(fc, f, v, nil, opts), v, fc
}

func polled(d *Dashboard, n uint64) func() bool {
	return func() bool { return d.Status().Polls == n }
}

// start runs d until the test ends.
func start(t *testing.T, d *Dashboard) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done
	}
	t.Cleanup(stop)
	return stop
}

func TestDashboard_InitialPollThenInterval(t *testing.T) {
	f := newFakeFetcher(2)
	f.respond(0, models.Snapshot{alertA, alertB}, nil)
	f.respond(1, models.Snapshot{alertA}, nil)

	d, v, fc := newTestDashboard(t, f, Options{})
	start(t, d)

	waitFor(t, "initial poll", polled(d, 1))
	if got := v.field(view.SlotAlertCount); got != "2" {
		t.Errorf("expected alert count 2, got %q", got)
	}
	if f.callCount() != 1 {
		t.Fatalf("expected 1 fetch before the first tick, got %d", f.callCount())
	}

	fc.Step(DefaultPollInterval)
	waitFor(t, "second poll", polled(d, 2))
	if got := v.field(view.SlotAlertCount); got != "1" {
		t.Errorf("expected alert count 1, got %q", got)
	}

	st := d.Status()
	if st.LastError != "" || st.InFlight != 0 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestDashboard_FailureKeepsPreviousState(t *testing.T) {
	f := newFakeFetcher(2)
	f.respond(0, models.Snapshot{alertA, alertB}, nil)
	f.respond(1, nil, errors.New("connection refused"))

	d, v, fc := newTestDashboard(t, f, Options{})
	start(t, d)

	waitFor(t, "initial poll", polled(d, 1))
	before := testutil.ToFloat64(metrics.PollsTotal.WithLabelValues(metrics.ResultError))

	fc.Step(DefaultPollInterval)
	waitFor(t, "failed poll", polled(d, 2))
	if text, _ := v.tickerText(); text != headline.ErrorMessage {
		t.Errorf("expected error ticker, got %q", text)
	}

	if renders, _, _, _, _ := v.counts(); renders != 1 {
		t.Errorf("expected map untouched, got %d renders", renders)
	}
	if !v.visible() || v.field(view.SlotAlertCount) != "2" {
		t.Error("expected panel and count from the previous poll")
	}
	if got := testutil.ToFloat64(metrics.PollsTotal.WithLabelValues(metrics.ResultError)); got != before+1 {
		t.Errorf("expected error poll counted, got %v", got-before)
	}
	if st := d.Status(); st.LastError == "" || st.LastSuccessAt.IsZero() {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestDashboard_SkipsTickWhilePollInFlight(t *testing.T) {
	f := newFakeFetcher(2)
	d, v, fc := newTestDashboard(t, f, Options{})
	start(t, d)

	waitFor(t, "initial fetch", func() bool { return f.callCount() == 1 })
	before := testutil.ToFloat64(metrics.PollsTotal.WithLabelValues(metrics.ResultSkipped))

	fc.Step(DefaultPollInterval)
	waitFor(t, "skipped tick", func() bool {
		return testutil.ToFloat64(metrics.PollsTotal.WithLabelValues(metrics.ResultSkipped)) == before+1
	})
	if f.callCount() != 1 {
		t.Errorf("expected overlapping poll to be skipped, got %d fetches", f.callCount())
	}

	f.respond(0, models.Snapshot{alertA}, nil)
	waitFor(t, "slow poll applied", func() bool { return v.field(view.SlotAlertCount) == "1" })
}

func TestDashboard_OverlapLastCompletedWins(t *testing.T) {
	f := newFakeFetcher(2)
	d, v, fc := newTestDashboard(t, f, Options{AllowOverlap: true})
	start(t, d)

	waitFor(t, "initial fetch", func() bool { return f.callCount() == 1 })
	fc.Step(DefaultPollInterval)
	waitFor(t, "overlapping fetch", func() bool { return f.callCount() == 2 })

	f.respond(1, models.Snapshot{alertA}, nil)
	waitFor(t, "second poll", func() bool { return v.field(view.SlotAlertCount) == "1" })

	f.respond(0, models.Snapshot{alertA, alertB}, nil)
	waitFor(t, "first poll", func() bool { return v.field(view.SlotAlertCount) == "2" })
}

func TestDashboard_SelectAndClose(t *testing.T) {
	f := newFakeFetcher(1)
	f.respond(0, models.Snapshot{alertA, alertB}, nil)

	d, v, _ := newTestDashboard(t, f, Options{})
	start(t, d)
	waitFor(t, "initial poll", polled(d, 1))

	ctx := context.Background()
	if err := d.SelectAlert(ctx, "B"); err != nil {
		t.Fatalf("select B: %v", err)
	}
	if got := v.field(view.SlotAlertType); got != "Flood Advisory" {
		t.Errorf("expected B in panel, got %q", got)
	}

	if err := d.SelectAlert(ctx, "missing"); !errors.Is(err, selection.ErrUnknownAlert) {
		t.Errorf("expected ErrUnknownAlert, got %v", err)
	}

	if err := d.ClosePanel(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if v.visible() {
		t.Error("expected panel hidden")
	}
}

func TestDashboard_CommandsAfterStop(t *testing.T) {
	f := newFakeFetcher(1)
	f.respond(0, models.Snapshot{alertA}, nil)

	d, _, _ := newTestDashboard(t, f, Options{})
	stop := start(t, d)
	waitFor(t, "initial poll", polled(d, 1))
	stop()

	if err := d.SelectAlert(context.Background(), "A"); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestDashboard_CommandHonorsContext(t *testing.T) {
	d, _, _ := newTestDashboard(t, newFakeFetcher(0), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.ClosePanel(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDashboard_HeadlineAndRelayoutTimers(t *testing.T) {
	f := newFakeFetcher(1)
	f.respond(0, models.Snapshot{alertA, alertB}, nil)

	d, v, fc := newTestDashboard(t, f, Options{})
	start(t, d)
	waitFor(t, "initial poll", polled(d, 1))

	fc.Step(panel.DefaultRelayoutDelay)
	waitFor(t, "relayout", func() bool {
		_, _, _, relayouts, _ := v.counts()
		return relayouts == 1
	})

	fc.Step(headline.DefaultPeriod - panel.DefaultRelayoutDelay)
	waitFor(t, "headline advance", func() bool {
		text, blinking := v.tickerText()
		return text == "Flood Advisory" && blinking
	})

	fc.Step(headline.DefaultBlink)
	waitFor(t, "blink end", func() bool {
		_, blinking := v.tickerText()
		return !blinking
	})
}

func TestDashboard_Clock(t *testing.T) {
	d, v, fc := newTestDashboard(t, newFakeFetcher(0), Options{ClockInterval: time.Second})
	start(t, d)

	waitFor(t, "initial clock", func() bool {
		return v.field(view.SlotClock) == view.FormatClock(fc.Now(), time.UTC)
	})

	fc.Step(time.Second)
	want := view.FormatClock(fc.Now(), time.UTC)
	waitFor(t, "clock tick", func() bool { return v.field(view.SlotClock) == want })
}
