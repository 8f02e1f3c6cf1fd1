package orbit

import (
	"context"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
)

// GroundPoint is one sub-satellite point sample.
type GroundPoint struct {
	Time         time.Time
	LatitudeDeg  float64
	LongitudeDeg float64
	AltitudeKm   float64
}

// GroundTrack samples the sub-satellite point over the window at the given
// step. This is an auxiliary feature for display tooling; it plays no part
// in slot generation.
func (s *Simulator) GroundTrack(ctx context.Context, window interval.Interval, step time.Duration) ([]GroundPoint, error) {
	if !s.hasSat {
		return nil, ErrNoElements
	}
	if step <= 0 {
		step = time.Minute
	}

	var track []GroundPoint
	for t := window.Start; t.Before(window.End); t = t.Add(step) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		year, month, day := t.Date()
		hour, min, sec := t.Clock()

		posECI, _ := satellite.Propagate(s.sat, year, int(month), day, hour, min, sec)
		jd := satellite.JDay(year, int(month), day, hour, min, sec)
		gmst := satellite.ThetaG_JD(jd)
		altKm, _, latLong := satellite.ECIToLLA(posECI, gmst)
		deg := satellite.LatLongDeg(latLong)

		track = append(track, GroundPoint{
			Time:         t,
			LatitudeDeg:  deg.Latitude,
			LongitudeDeg: deg.Longitude,
			AltitudeKm:   altKm,
		})
	}
	return track, nil
}
