// Package scoring ranks alerts so the dashboard can pick the most significant one.
package scoring

import (
	"strings"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

func SeverityScore(severity string) int {
	switch models.ParseSeverity(severity) {
	case models.SeverityExtreme:
		return 4
	case models.SeveritySevere:
		return 3
	case models.SeverityModerate:
		return 2
	case models.SeverityMinor:
		return 1
	default:
		return 0
	}
}

func UrgencyScore(urgency string) int {
	switch strings.ToUpper(strings.TrimSpace(urgency)) {
	case "IMMEDIATE":
		return 3
	case "EXPECTED":
		return 2
	case "FUTURE":
		return 1
	default:
		return 0
	}
}

// IsWarningEvent reports whether the event name contains "warning".
func IsWarningEvent(event string) bool {
	return strings.Contains(strings.ToLower(event), "warning")
}

// IsWarning classifies a record as a warning for audio purposes: a warning
// event, or SEVERE/EXTREME severity regardless of event name.
func IsWarning(r models.AlertRecord) bool {
	if IsWarningEvent(r.Event) {
		return true
	}
	sev := models.ParseSeverity(r.Severity)
	return sev == models.SeveritySevere || sev == models.SeverityExtreme
}

func AlertScore(r models.AlertRecord) int {
	score := SeverityScore(r.Severity)*10 + UrgencyScore(r.Urgency)*2
	if IsWarningEvent(r.Event) {
		score += 5
	}
	return score
}

// PickBest returns the first record holding the maximum score, or nil for
// an empty input. The returned pointer aliases the input slice.
func PickBest(records []models.AlertRecord) *models.AlertRecord {
	var (
		best      *models.AlertRecord
		bestScore int
	)
	for i := range records {
		score := AlertScore(records[i])
		if best == nil || score > bestScore {
			best, bestScore = &records[i], score
		}
	}
	return best
}

// Warnings filters the warning-classified records, keeping order.
func Warnings(records []models.AlertRecord) []models.AlertRecord {
	out := make([]models.AlertRecord, 0, len(records))
	for _, r := range records {
		if IsWarning(r) {
			out = append(out, r)
		}
	}
	return out
}
