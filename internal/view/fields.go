// Package view holds what the renderer should currently show, and the text
// and style rules that turn alert records into it.
package view

import (
	"strings"
	"time"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

// Placeholder is rendered for every missing value.
const Placeholder = "--"

const NoAlertsTitle = "No active alerts"

type Slot string

const (
	SlotAlertType   Slot = "alert-type"
	SlotExpires     Slot = "expires"
	SlotSeverity    Slot = "severity"
	SlotUrgency     Slot = "urgency"
	SlotCertainty   Slot = "certainty"
	SlotArea        Slot = "area"
	SlotHeadline    Slot = "headline"
	SlotDescription Slot = "description"
	SlotInstruction Slot = "instruction"
	SlotEffective   Slot = "effective"
	SlotSender      Slot = "sender"
	SlotTicker      Slot = "ticker"
	SlotAlertCount  Slot = "alert-count"
	SlotClock       Slot = "clock"
)

// DetailSlots are the panel slots, in display order.
var DetailSlots = []Slot{
	SlotAlertType, SlotExpires, SlotSeverity, SlotUrgency, SlotCertainty, SlotArea,
	SlotHeadline, SlotDescription, SlotInstruction, SlotEffective, SlotSender,
}

const (
	timeLayout  = "Jan 2, 3:04 PM MST"
	clockLayout = "15:04:05 MST"
)

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Placeholder
	}
	return s
}

// FormatTime renders an RFC 3339 timestamp for display. Unparseable values
// are shown as-is.
func FormatTime(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Placeholder
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timeLayout)
}

func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(clockLayout)
}

// DetailFields fills every panel slot for rec. A nil rec yields the
// "no active alerts" panel.
func DetailFields(rec *models.AlertRecord, loc *time.Location) map[Slot]string {
	fields := make(map[Slot]string, len(DetailSlots))
	if rec == nil {
		for _, s := range DetailSlots {
			fields[s] = Placeholder
		}
		fields[SlotAlertType] = NoAlertsTitle
		return fields
	}

	fields[SlotAlertType] = orPlaceholder(rec.Event)
	fields[SlotExpires] = FormatTime(rec.Expires, loc)
	fields[SlotSeverity] = orPlaceholder(rec.Severity)
	fields[SlotUrgency] = orPlaceholder(rec.Urgency)
	fields[SlotCertainty] = orPlaceholder(rec.Certainty)
	fields[SlotArea] = orPlaceholder(rec.AreaDesc)
	fields[SlotHeadline] = orPlaceholder(rec.Headline)
	fields[SlotDescription] = orPlaceholder(rec.Description)
	fields[SlotInstruction] = orPlaceholder(rec.Instruction)
	fields[SlotEffective] = FormatTime(rec.Effective, loc)
	fields[SlotSender] = orPlaceholder(rec.SenderName)
	return fields
}

// HeadlineText is the ticker line for one alert.
func HeadlineText(rec models.AlertRecord) string {
	if h := strings.TrimSpace(rec.Headline); h != "" {
		return h
	}
	event, area := orPlaceholder(rec.Event), strings.TrimSpace(rec.AreaDesc)
	if area == "" {
		return event
	}
	return event + " - " + area
}

func HeadlineTexts(records []models.AlertRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, HeadlineText(r))
	}
	return out
}
