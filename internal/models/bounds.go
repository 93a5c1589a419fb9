package models

import (
	"errors"

	"github.com/paulmach/orb"
)

var (
	ErrEmptyBounds      = errors.New("no coordinates to bound")
	ErrDegenerateBounds = errors.New("bounding region has zero extent")
)

// Bounds returns the bounding box covering all records with geometry.
func Bounds(records ...AlertRecord) (orb.Bound, error) {
	var (
		bound orb.Bound
		found bool
	)

	for _, r := range records {
		if r.Geometry == nil {
			continue
		}
		b := r.Geometry.Bound()
		if b.IsEmpty() {
			continue
		}
		if !found {
			bound, found = b, true
			continue
		}
		bound = bound.Union(b)
	}

	if !found {
		return orb.Bound{}, ErrEmptyBounds
	}
	if bound.Min.Equal(bound.Max) {
		return orb.Bound{}, ErrDegenerateBounds
	}
	return bound, nil
}
