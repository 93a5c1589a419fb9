package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Severity string

const (
	SeverityExtreme  Severity = "EXTREME"
	SeveritySevere   Severity = "SEVERE"
	SeverityModerate Severity = "MODERATE"
	SeverityMinor    Severity = "MINOR"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity normalizes a CAP severity string. Anything unrecognized is
// SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case SeverityExtreme, SeveritySevere, SeverityModerate, SeverityMinor:
		return sev
	default:
		return SeverityUnknown
	}
}

// AlertRecord is one feature of a polled snapshot, flattened to the fields
// the dashboard cares about. Missing properties are empty strings.
type AlertRecord struct {
	ID          string // empty when no identity could be derived
	HasGeometry bool
	Geometry    orb.Geometry

	Severity    string
	Urgency     string
	Certainty   string
	Event       string
	AreaDesc    string
	Headline    string
	Description string
	Instruction string
	Effective   string
	Expires     string
	SenderName  string

	Feature *geojson.Feature
}

// Snapshot is the ordered result of one poll.
type Snapshot []AlertRecord

// FromFeature flattens a GeoJSON feature. It never fails: absent or
// non-string properties come back empty.
func FromFeature(f *geojson.Feature) AlertRecord {
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}

	return AlertRecord{
		ID:          ResolveID(f),
		HasGeometry: f.Geometry != nil,
		Geometry:    f.Geometry,
		Severity:    props.MustString("severity", ""),
		Urgency:     props.MustString("urgency", ""),
		Certainty:   props.MustString("certainty", ""),
		Event:       props.MustString("event", ""),
		AreaDesc:    props.MustString("areaDesc", ""),
		Headline:    props.MustString("headline", ""),
		Description: props.MustString("description", ""),
		Instruction: props.MustString("instruction", ""),
		Effective:   props.MustString("effective", ""),
		Expires:     props.MustString("expires", ""),
		SenderName:  props.MustString("senderName", ""),
		Feature:     f,
	}
}

// ResolveID picks the feature identity: feature.id, then properties.id,
// then properties.ugc (a string or the first entry of a list).
func ResolveID(f *geojson.Feature) string {
	if id := idString(f.ID); id != "" {
		return id
	}
	if f.Properties == nil {
		return ""
	}
	if id := idString(f.Properties["id"]); id != "" {
		return id
	}

	switch ugc := f.Properties["ugc"].(type) {
	case []any:
		for _, v := range ugc {
			if id := idString(v); id != "" {
				return id
			}
		}
		return ""
	case []string:
		for _, v := range ugc {
			if v != "" {
				return v
			}
		}
		return ""
	default:
		return idString(ugc)
	}
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

type snapshotBody struct {
	Features []json.RawMessage `json:"features"`
}

// DecodeSnapshot parses a poll response body of the form {"features": [...]}.
// The collection "type" member is not required. Only a body that is not a
// JSON object fails; a feature orb rejects is decoded loosely instead.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var body snapshotBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}

	snap := make(Snapshot, 0, len(body.Features))
	for i, raw := range body.Features {
		f, err := decodeFeature(raw)
		if err != nil {
			slog.Warn("skipping undecodable feature", "index", i, "error", err)
			continue
		}
		if f == nil {
			continue
		}
		snap = append(snap, FromFeature(f))
	}
	return snap, nil
}

type looseFeature struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// decodeFeature returns nil, nil for a JSON null entry.
func decodeFeature(raw json.RawMessage) (*geojson.Feature, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	f, err := geojson.UnmarshalFeature(raw)
	if err == nil {
		return f, nil
	}

	var loose looseFeature
	if lerr := json.Unmarshal(raw, &loose); lerr != nil {
		return nil, fmt.Errorf("error decoding feature: %w", lerr)
	}
	slog.Debug("decoding malformed feature loosely", "id", loose.ID, "error", err)

	lf := geojson.NewFeature(nil)
	lf.ID = loose.ID

	var props map[string]any
	if json.Unmarshal(loose.Properties, &props) == nil && props != nil {
		lf.Properties = props
	}
	if g, gerr := geojson.UnmarshalGeometry(loose.Geometry); gerr == nil && g != nil && g.Coordinates != nil {
		lf.Geometry = g.Coordinates
	}
	return lf, nil
}

// Polygons returns the geometry-bearing records in snapshot order.
func (s Snapshot) Polygons() Snapshot {
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if r.HasGeometry {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the first record with the given id.
func (s Snapshot) Find(id string) (AlertRecord, bool) {
	if id == "" {
		return AlertRecord{}, false
	}
	for _, r := range s {
		if r.ID == id {
			return r, true
		}
	}
	return AlertRecord{}, false
}
