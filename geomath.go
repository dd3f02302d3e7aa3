package osm2y

import (
	"fmt"
	"math"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
	pi180Rev    = 180.0 / math.Pi
)

// GeoPoint representation of point on Earth
type GeoPoint struct {
	Lat float64
	Lon float64
}

// String returns pretty printed value for GeoPoint
func (gp GeoPoint) String() string {
	return fmt.Sprintf("Lon: %f | Lat: %f", gp.Lon, gp.Lat)
}

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg  * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers)
func greatCircleDistance(p, q GeoPoint) float64 {
	lat1 := degreesToRadians(p.Lat)
	lon1 := degreesToRadians(p.Lon)
	lat2 := degreesToRadians(q.Lat)
	lon2 := degreesToRadians(q.Lon)
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	ans := c * earthRadius
	return ans
}

// initialBearing returns great-circle initial bearing from p towards q.
// Bearing is measured in degrees clockwise from North, normalized to [0, 360)
func initialBearing(p, q GeoPoint) float64 {
	lat1 := degreesToRadians(p.Lat)
	lat2 := degreesToRadians(q.Lat)
	diffLon := degreesToRadians(q.Lon - p.Lon)

	y := math.Sin(diffLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(diffLon)
	bearing := radiansTodegrees(math.Atan2(y, x))
	return normalizeBearing(bearing)
}

// normalizeBearing wraps given bearing into [0, 360)
func normalizeBearing(bearing float64) float64 {
	bearing = math.Mod(bearing, 360.0)
	if bearing < 0 {
		bearing += 360.0
	}
	return bearing
}

// bearingGap returns clockwise angular distance from bearing `from` to bearing `to`.
// Subtraction is modular, so gaps crossing the 0/360 seam stay correct
func bearingGap(from, to float64) float64 {
	gap := to - from
	if gap < 0 {
		gap += 360.0
	}
	return gap
}

// middleBearing returns bearing lying halfway between `from` and `to` when
// walking clockwise from the former to the latter. Naive (from+to)/2 is wrong
// for pairs straddling North
func middleBearing(from, to float64) float64 {
	return normalizeBearing(from + bearingGap(from, to)/2.0)
}
