// Command passcalc computes visibility passes of a spacecraft over a ground
// station from two-line elements and prints them, optionally with the
// sub-satellite ground track.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/signalsfoundry/groundstation-scheduler/core/interval"
	"github.com/signalsfoundry/groundstation-scheduler/core/orbit"
	"github.com/signalsfoundry/groundstation-scheduler/internal/logging"
)

func main() {
	line1 := flag.String("tle1", "", "First TLE line")
	line2 := flag.String("tle2", "", "Second TLE line")
	lat := flag.Float64("lat", 0, "Ground station latitude in degrees")
	lon := flag.Float64("lon", 0, "Ground station longitude in degrees")
	altKm := flag.Float64("alt-km", 0, "Ground station altitude in kilometers")
	minElev := flag.Float64("min-elev", 5, "Minimum elevation in degrees")
	start := flag.String("start", "", "Window start, RFC3339 (default: now)")
	duration := flag.Duration("duration", 24*time.Hour, "Window length")
	step := flag.Duration("step", 30*time.Second, "Sampling step")
	minPass := flag.Duration("min-pass", time.Minute, "Discard passes shorter than this")
	track := flag.Bool("track", false, "Also print the ground track at each pass start")
	flag.Parse()

	if *line1 == "" || *line2 == "" {
		fmt.Fprintln(os.Stderr, "both -tle1 and -tle2 are required")
		os.Exit(2)
	}

	from := time.Now().UTC()
	if *start != "" {
		parsed, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
			os.Exit(2)
		}
		from = parsed.UTC()
	}
	window := interval.New(from, from.Add(*duration))

	sim := orbit.NewSimulator(orbit.Observer{
		LatitudeDeg:     *lat,
		LongitudeDeg:    *lon,
		AltitudeKm:      *altKm,
		MinElevationDeg: *minElev,
	}, logging.NewFromEnv(), orbit.WithStep(*step))
	if err := sim.SetElements(*line1, *line2); err != nil {
		fmt.Fprintf(os.Stderr, "invalid TLE: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	passes, err := sim.PassWindows(ctx, window, *minPass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pass computation failed: %v\n", err)
		os.Exit(1)
	}
	if len(passes) == 0 {
		fmt.Println("no passes in window")
		return
	}

	for i, p := range passes {
		fmt.Printf("pass %2d  %s -> %s  (%s)\n",
			i+1,
			p.Start.Format(time.RFC3339),
			p.End.Format(time.RFC3339),
			p.Duration().Round(time.Second),
		)
		if *track {
			points, err := sim.GroundTrack(ctx, p, *step)
			if err != nil {
				fmt.Fprintf(os.Stderr, "ground track failed: %v\n", err)
				continue
			}
			for _, pt := range points {
				fmt.Printf("         %s  lat=%8.3f lon=%8.3f alt=%7.1fkm\n",
					pt.Time.Format("15:04:05"), pt.LatitudeDeg, pt.LongitudeDeg, pt.AltitudeKm)
			}
		}
	}
}
