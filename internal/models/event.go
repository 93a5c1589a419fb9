package models

import "time"

type EventKind string

const (
	EventKindPolygon EventKind = "polygon"
	EventKindWarning EventKind = "warning"
)

// AlertEvent records that an alert identity appeared in a poll.
type AlertEvent struct {
	ID       string    `json:"id"`
	AlertID  string    `json:"alert_id"`
	Kind     EventKind `json:"kind"`
	Event    string    `json:"event"`
	Severity string    `json:"severity"`
	AreaDesc string    `json:"area_desc"`
	Headline string    `json:"headline"`
	SeenAt   time.Time `json:"seen_at"`
}

func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(s); k {
	case EventKindPolygon, EventKindWarning:
		return k, true
	default:
		return "", false
	}
}
