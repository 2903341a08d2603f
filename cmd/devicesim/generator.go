package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/samirrijal/picplace/internal/adapters/location"
	"github.com/samirrijal/picplace/internal/core/domain"
	"github.com/samirrijal/picplace/internal/pkg/geospatial"
)

type simOptions struct {
	DeviceID     string
	Interval     time.Duration
	Target       domain.GeoPoint
	RadiusMeters float64
	NearRatio    float64
	Count        int
}

func (o simOptions) validate() error {
	switch {
	case o.Interval <= 0:
		return fmt.Errorf("interval must be positive")
	case o.RadiusMeters < 0:
		return fmt.Errorf("radius must not be negative")
	case o.NearRatio < 0 || o.NearRatio > 1:
		return fmt.Errorf("near-ratio must be between 0 and 1")
	case !o.Target.Valid():
		return fmt.Errorf("target out of range")
	}
	return nil
}

// generator produces fixes that stay within RadiusMeters of the target for
// a NearRatio share of calls and land anywhere on the globe otherwise.
type generator struct {
	opts simOptions
	rng  *rand.Rand
}

func newGenerator(opts simOptions, rng *rand.Rand) *generator {
	return &generator{opts: opts, rng: rng}
}

func (g *generator) next(now time.Time) (domain.LocationFix, []byte, error) {
	var pt domain.GeoPoint
	if g.rng.Float64() < g.opts.NearRatio {
		pt = g.near()
	} else {
		pt = domain.GeoPoint{Lat: -90 + g.rng.Float64()*180, Lon: -180 + g.rng.Float64()*360}
	}

	fix := domain.LocationFix{
		Lat:       pt.Lat,
		Lon:       pt.Lon,
		Timestamp: now.Truncate(time.Second),
		DeviceID:  g.opts.DeviceID,
		Accuracy:  5,
	}
	payload, err := location.EncodeDeviceMessage(fix)
	return fix, payload, err
}

// near samples the bounding box until the point falls inside the radius.
func (g *generator) near() domain.GeoPoint {
	if g.opts.RadiusMeters == 0 {
		return g.opts.Target
	}
	box := geospatial.BoundingBox(g.opts.Target, g.opts.RadiusMeters)
	for {
		pt := domain.GeoPoint{
			Lat: box.MinLat + g.rng.Float64()*(box.MaxLat-box.MinLat),
			Lon: box.MinLon + g.rng.Float64()*(box.MaxLon-box.MinLon),
		}
		if geospatial.Distance(g.opts.Target, pt) <= g.opts.RadiusMeters {
			return pt
		}
	}
}
