package osm2y

import (
	"math"
	"testing"
)

func Round(x, unit float64) float64 {
	if x > 0 {
		return float64(int64(x/unit+0.5)) * unit
	}
	return float64(int64(x/unit-0.5)) * unit
}

func TestGreatCircleDistance(t *testing.T) {
	p1 := GeoPoint{
		Lon: 37.6417350769043,
		Lat: 55.751849391735284,
	}
	p2 := GeoPoint{
		Lon: 37.668514251708984,
		Lat: 55.73261980350401,
	}
	res := 2.71693096539 // kilometers
	gcd := greatCircleDistance(p1, p2)
	if Round(gcd, 0.0005) != Round(res, 0.0005) {
		t.Errorf("Great circle dist must be %f, but got %f", res, gcd)
	}
}

func TestInitialBearingCardinal(t *testing.T) {
	center := GeoPoint{Lat: 35.0, Lon: 139.0}
	cases := []struct {
		target   GeoPoint
		expected float64
	}{
		{GeoPoint{Lat: 36.0, Lon: 139.0}, 0.0},   // north
		{GeoPoint{Lat: 35.0, Lon: 140.0}, 90.0},  // east
		{GeoPoint{Lat: 34.0, Lon: 139.0}, 180.0}, // south
		{GeoPoint{Lat: 35.0, Lon: 138.0}, 270.0}, // west
	}
	for _, c := range cases {
		bearing := initialBearing(center, c.target)
		diff := math.Abs(bearing - c.expected)
		if diff > 180.0 {
			diff = 360.0 - diff
		}
		if diff > 1.0 {
			t.Errorf("Bearing towards %v must be close to %f, but got %f", c.target, c.expected, bearing)
		}
	}
}

func TestInitialBearingRange(t *testing.T) {
	center := GeoPoint{Lat: 35.0, Lon: 139.0}
	for deg := 0; deg < 360; deg += 15 {
		rad := degreesToRadians(float64(deg))
		target := GeoPoint{
			Lat: center.Lat + 0.01*math.Cos(rad),
			Lon: center.Lon + 0.01*math.Sin(rad),
		}
		bearing := initialBearing(center, target)
		if bearing < 0.0 || bearing >= 360.0 {
			t.Errorf("Bearing %f for direction %d is out of [0, 360)", bearing, deg)
		}
	}
}

func TestNormalizeBearing(t *testing.T) {
	cases := map[float64]float64{
		-90.0:  270.0,
		0.0:    0.0,
		360.0:  0.0,
		725.0:  5.0,
		-370.0: 350.0,
	}
	for input, expected := range cases {
		if got := normalizeBearing(input); Round(got, 0.0001) != Round(expected, 0.0001) {
			t.Errorf("normalizeBearing(%f) must be %f, but got %f", input, expected, got)
		}
	}
}

func TestBearingGapAcrossNorth(t *testing.T) {
	// 350 degrees -> 10 degrees is a 20 degree clockwise gap, not -340
	if got := bearingGap(350.0, 10.0); Round(got, 0.0001) != 20.0 {
		t.Errorf("Gap from 350 to 10 must be 20, but got %f", got)
	}
	if got := bearingGap(10.0, 350.0); Round(got, 0.0001) != 340.0 {
		t.Errorf("Gap from 10 to 350 must be 340, but got %f", got)
	}
}

func TestMiddleBearingAcrossNorth(t *testing.T) {
	if got := middleBearing(350.0, 10.0); Round(got, 0.0001) != 0.0 {
		t.Errorf("Middle between 350 and 10 must be 0, but got %f", got)
	}
	if got := middleBearing(90.0, 180.0); Round(got, 0.0001) != 135.0 {
		t.Errorf("Middle between 90 and 180 must be 135, but got %f", got)
	}
}
