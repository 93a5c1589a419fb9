package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-weather-dashboard/internal/dashboard"
	"github.com/mr1hm/go-weather-dashboard/internal/ingestion"
	"github.com/mr1hm/go-weather-dashboard/internal/models"
	"github.com/mr1hm/go-weather-dashboard/internal/repository"
	"github.com/mr1hm/go-weather-dashboard/internal/selection"
	"github.com/mr1hm/go-weather-dashboard/internal/stream"
	"github.com/mr1hm/go-weather-dashboard/internal/view"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	commandTimeout      = 5 * time.Second
)

// AlertSource serves the encoded active alert collection.
type AlertSource interface {
	Alerts(ctx context.Context) ([]byte, time.Time, error)
}

// Controller accepts the user actions of the dashboard.
type Controller interface {
	SelectAlert(ctx context.Context, id string) error
	ClosePanel(ctx context.Context) error
	Status() dashboard.Status
}

type StateReader interface {
	Snapshot() view.State
}

type Subscriber interface {
	Subscribe() (uint64, <-chan stream.Event)
	Unsubscribe(id uint64)
}

type Handler struct {
	alerts  AlertSource
	history repository.HistoryRepository

	dashboard Controller
	state     StateReader
	events    Subscriber
}

func NewHandler(alerts AlertSource, history repository.HistoryRepository) *Handler {
	return &Handler{
		alerts:  alerts,
		history: history,
	}
}

// AttachDashboard enables the /api/dashboard, /api/stream and command
// routes. Without it they answer 503.
func (h *Handler) AttachDashboard(ctrl Controller, state StateReader, events Subscriber) {
	h.dashboard = ctrl
	h.state = state
	h.events = events
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// NWS alert ids are URLs; clients path-escape them.
	r.UseRawPath = true

	r.GET("/alerts", h.getAlerts)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/history", h.getHistory)

	dash := api.Group("", h.requireDashboard)
	dash.GET("/dashboard", h.getDashboard)
	dash.GET("/stream", h.stream)
	dash.POST("/alerts/:id/select", h.selectAlert)
	dash.POST("/panel/close", h.closePanel)
}

func (h *Handler) getAlerts(c *gin.Context) {
	body, fetchedAt, err := h.alerts.Alerts(c.Request.Context())
	if err != nil {
		slog.Error("error fetching alerts", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ingestion.ErrNoData) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": "failed to fetch alerts"})
		return
	}

	c.Header("Last-Modified", fetchedAt.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, "application/geo+json", body)
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.dashboard != nil {
		resp["dashboard"] = h.dashboard.Status()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getHistory(c *gin.Context) {
	filter := repository.Filter{
		Limit:   defaultHistoryLimit,
		AlertID: c.Query("alert_id"),
	}

	if k := c.Query("kind"); k != "" {
		kind, ok := models.ParseEventKind(k)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
			return
		}
		filter.Kind = &kind
	}
	if s := c.Query("since"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		filter.Since = &t
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxHistoryLimit {
			filter.Limit = lim
		}
	}

	events, err := h.history.ListEvents(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error listing history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	if events == nil {
		events = []models.AlertEvent{}
	}

	resp := gin.H{"events": events, "count": len(events)}
	if filter.AlertID != "" {
		total, err := h.history.CountEvents(c.Request.Context(), filter.AlertID)
		if err != nil {
			slog.Error("error counting history", "alert_id", filter.AlertID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
			return
		}
		resp["total"] = total
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) requireDashboard(c *gin.Context) {
	if h.dashboard == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard disabled"})
		return
	}
	c.Next()
}

func (h *Handler) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.state.Snapshot())
}

func (h *Handler) selectAlert(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.dashboard.SelectAlert(ctx, id); err != nil {
		h.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": id})
}

func (h *Handler) closePanel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	if err := h.dashboard.ClosePanel(ctx); err != nil {
		h.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"panel": "hidden"})
}

func (h *Handler) commandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, selection.ErrUnknownAlert):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case errors.Is(err, dashboard.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard unavailable"})
	default:
		slog.Error("dashboard command failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "command failed"})
	}
}
