package panel

import (
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

func TestPanel_OpenCloseTransitions(t *testing.T) {
	p := New(clocktesting.NewFakeClock(time.Now()), 0)

	if p.State() != Hidden {
		t.Fatalf("expected initial state HIDDEN, got %s", p.State())
	}
	if !p.Open() {
		t.Error("expected HIDDEN -> VISIBLE to report a change")
	}
	if p.Open() {
		t.Error("expected VISIBLE -> VISIBLE to report no change")
	}
	if !p.Close() {
		t.Error("expected VISIBLE -> HIDDEN to report a change")
	}
	if p.Close() {
		t.Error("expected HIDDEN -> HIDDEN to report no change")
	}
}

func TestPanel_RelayoutFiresAfterDelay(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	p := New(fc, DefaultRelayoutDelay)

	if p.RelayoutC() != nil {
		t.Fatal("expected no pending relayout before opening")
	}

	p.Open()
	fc.Step(DefaultRelayoutDelay - time.Millisecond)
	select {
	case <-p.RelayoutC():
		t.Fatal("relayout fired early")
	default:
	}

	fc.Step(time.Millisecond)
	select {
	case <-p.RelayoutC():
		p.RelayoutDone()
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for relayout")
	}

	if p.RelayoutC() != nil {
		t.Error("expected relayout to be one-shot")
	}
}

func TestPanel_ContentIndependentOfVisibility(t *testing.T) {
	p := New(clocktesting.NewFakeClock(time.Now()), 0)

	p.Show(&models.AlertRecord{ID: "a", Event: "Tornado Warning"})
	if p.State() != Hidden {
		t.Error("Show must not change visibility")
	}
	got, ok := p.Content()
	if !ok || got.ID != "a" {
		t.Errorf("expected content a, got %+v", got)
	}
	if p.RelayoutC() != nil {
		t.Error("content refresh must not arm relayout")
	}

	p.Show(nil)
	if _, ok := p.Content(); ok {
		t.Error("expected content cleared")
	}
}

func TestPanel_Stop(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Now())
	p := New(fc, 0)
	p.Open()
	p.Stop()

	if p.RelayoutC() != nil {
		t.Error("expected no pending relayout after Stop")
	}
	if fc.HasWaiters() {
		t.Error("expected timer removed from clock")
	}
}
