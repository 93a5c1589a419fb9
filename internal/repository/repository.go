package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

type Filter struct {
	Limit   int
	Kind    *models.EventKind
	AlertID string
	Since   *time.Time
}

// HistoryRepository stores the appearance log of alert identities.
type HistoryRepository interface {
	AddEvent(ctx context.Context, e *models.AlertEvent) error
	ListEvents(ctx context.Context, opts Filter) ([]models.AlertEvent, error)
	CountEvents(ctx context.Context, alertID string) (int, error)
}
