package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-weather-dashboard/internal/stream"
)

const (
	// EventState carries the full view state and is always sent first.
	EventState = "state"

	keepAliveInterval = 15 * time.Second
)

// stream pushes collaborator updates as server-sent events until the client
// goes away or the broadcaster closes.
func (h *Handler) stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unavailable"})
		return
	}

	id, events := h.events.Subscribe()
	defer h.events.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	w := c.Writer
	if err := writeEvent(w, stream.Event{Type: EventState, Data: h.state.Snapshot(), At: time.Now()}); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				slog.Debug("stream client gone", "subscriber", id, "error", err)
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error encoding %s event: %w", ev.Type, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
