// Public domain.

package grbrep

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

// UTC dates at which GPS-UTC increased by one second.
var leapDates = []time.Time{
	date(1981, 7), date(1982, 7), date(1983, 7), date(1985, 7),
	date(1988, 1), date(1990, 1), date(1991, 1), date(1992, 7),
	date(1993, 7), date(1994, 7), date(1996, 1), date(1997, 7),
	date(1999, 1), date(2006, 1), date(2009, 1), date(2012, 7),
	date(2015, 7), date(2017, 1),
}

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// leapGPS holds the GPS time of each entry of leapDates.
var leapGPS = func() []float64 {
	g := make([]float64, len(leapDates))
	for i, d := range leapDates {
		g[i] = d.Sub(gpsEpoch).Seconds() + float64(i+1)
	}
	return g
}()

// LeapSeconds returns GPS-UTC at GPS time gps.
func LeapSeconds(gps float64) int {
	n := 0
	for n < len(leapGPS) && gps >= leapGPS[n] {
		n++
	}
	return n
}

// GPSToUTC converts GPS seconds to UTC.
func GPSToUTC(gps float64) time.Time {
	s, f := math.Modf(gps - float64(LeapSeconds(gps)))
	return gpsEpoch.Add(time.Duration(s) * time.Second).
		Add(time.Duration(math.Round(f * 1e9)))
}

// GPSToJD returns the Julian date of GPS time gps on the UTC scale.
func GPSToJD(gps float64) float64 {
	return julian.TimeToJD(GPSToUTC(gps))
}
