package osm2y

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ParseBBox parses "min_lon,min_lat,max_lon,max_lat" into a bound
func ParseBBox(value string) (orb.Bound, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return orb.Bound{}, errors.Errorf("Invalid bbox format '%s'. Expected: min_lon,min_lat,max_lon,max_lat", value)
	}
	coords := [4]float64{}
	for i := range parts {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return orb.Bound{}, errors.Wrapf(err, "Invalid bbox component '%s'", parts[i])
		}
		coords[i] = parsed
	}
	bound := orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}
	if bound.Min[0] >= bound.Max[0] || bound.Min[1] >= bound.Max[1] {
		return orb.Bound{}, errors.Errorf("Degenerate bbox '%s': min corner must be strictly south-west of max corner", value)
	}
	return bound, nil
}
