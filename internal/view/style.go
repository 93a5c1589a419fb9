package view

import (
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/go-weather-dashboard/internal/models"
)

const (
	OutlineColor = "#f5f5f5"
	FillOpacity  = 0.35
)

type Style struct {
	Color        string  `json:"color"`
	FillColor    string  `json:"fillColor"`
	OutlineColor string  `json:"outlineColor"`
	FillOpacity  float64 `json:"fillOpacity"`
}

// StyleFor maps severity to polygon colors.
func StyleFor(severity string) Style {
	s := Style{OutlineColor: OutlineColor, FillOpacity: FillOpacity}
	switch models.ParseSeverity(severity) {
	case models.SeverityExtreme:
		s.Color, s.FillColor = "#ff0054", "#ff0054"
	case models.SeveritySevere:
		s.Color, s.FillColor = "#ff3b1f", "#ff3b1f"
	case models.SeverityModerate:
		s.Color, s.FillColor = "#ffb347", "#ffb347"
	case models.SeverityMinor:
		s.Color, s.FillColor = "#ffe166", "#ffe166"
	default:
		s.Color, s.FillColor = "#29bfff", "#00aaff"
	}
	return s
}

// StyledCollection copies the geometry-bearing features of snap and attaches
// the resolved id and style to each copy's properties.
func StyledCollection(snap models.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range snap {
		if !r.HasGeometry {
			continue
		}
		f := geojson.NewFeature(r.Geometry)
		if r.ID != "" {
			f.ID = r.ID
		}
		if r.Feature != nil {
			f.Properties = r.Feature.Properties.Clone()
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		f.Properties["style"] = StyleFor(r.Severity)
		fc.Append(f)
	}
	return fc
}
