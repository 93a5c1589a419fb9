// Package history writes the appearance log of alert identities without
// blocking the dashboard session.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-weather-dashboard/internal/metrics"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/repository"
	"github.com/mr1hm/go-weather-dashboard/internal/worker"
)

type Recorder struct {
	repo repository.HistoryRepository
	pool *worker.Pool[*models.AlertEvent]
}

func NewRecorder(repo repository.HistoryRepository, workers, buffer int) *Recorder {
	r := &Recorder{repo: repo}
	r.pool = worker.NewPool("history", workers, buffer, r.write)
	return r
}

func (r *Recorder) Start(ctx context.Context) {
	r.pool.Start(ctx)
}

func (r *Recorder) Stop() {
	r.pool.Stop()
	slog.Info("history recorder stopped")
}

// Record queues one event per record. Events that do not fit the queue are
// dropped and counted.
func (r *Recorder) Record(kind models.EventKind, records []models.AlertRecord, at time.Time) {
	for _, rec := range records {
		e := &models.AlertEvent{
			ID:       uuid.NewString(),
			AlertID:  rec.ID,
			Kind:     kind,
			Event:    rec.Event,
			Severity: rec.Severity,
			AreaDesc: rec.AreaDesc,
			Headline: rec.Headline,
			SeenAt:   at,
		}
		if !r.pool.TrySubmit(e) {
			metrics.HistoryDroppedTotal.Inc()
			slog.Warn("history queue full, dropping event", "alert_id", rec.ID, "kind", kind)
		}
	}
}

func (r *Recorder) write(ctx context.Context, e *models.AlertEvent) error {
	if err := r.repo.AddEvent(ctx, e); err != nil {
		return err
	}
	slog.Debug("recorded alert event", "alert_id", e.AlertID, "kind", e.Kind)
	return nil
}
