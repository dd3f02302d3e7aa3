package osm2y

import (
	"sort"

	"github.com/pkg/errors"
)

const (
	// Angle-type bucket thresholds (degrees, applied to the smallest angle)
	verySharpAngleMax = int16(30)
	sharpAngleMax     = int16(60)

	// Junctions whose smallest angle reaches this cutoff are treated as
	// ordinary intersections and dropped before persistence
	defaultMaxSharpAngle = int16(150)
)

type AngleType uint16

const (
	ANGLE_VERY_SHARP = AngleType(iota + 1)
	ANGLE_SHARP
	ANGLE_NORMAL
)

func (iotaIdx AngleType) String() string {
	return [...]string{"very_sharp", "sharp", "normal"}[iotaIdx-1]
}

// classifyAngle buckets the smallest subtended angle of a junction
func classifyAngle(angle1 int16) AngleType {
	if angle1 < verySharpAngleMax {
		return ANGLE_VERY_SHARP
	}
	if angle1 < sharpAngleMax {
		return ANGLE_SHARP
	}
	return ANGLE_NORMAL
}

// ParseMaxSharpAngle validates a sharpest-angle cutoff given in whole degrees
func ParseMaxSharpAngle(value int) (int16, error) {
	if value <= 0 || value > 360 {
		return 0, errors.Errorf("Sharp angle cutoff must be in (0, 360] degrees, but got %d", value)
	}
	return int16(value), nil
}

// ComputedJunction junction candidate augmented with geometry fields.
//
// Angles are sorted ascending and always sum to 360. Bearings stay in
// clockwise order around the circle so that positional linkage holds:
// the gap between Bearings[i] and Bearings[(i+1)%3] is one of the three
// angles. clockwise[i] is the candidate's neighbor index observed at
// clockwise position i, which keeps bearings traceable back to neighbor
// coordinates and way tags
type ComputedJunction struct {
	JunctionCandidate

	Angles        [3]int16
	Bearings      [3]float64
	AngleType     AngleType
	MinAngleIndex int16 // 1-based clockwise slot of the smallest gap

	clockwise [3]int

	Elevation *ElevationSample
}

// minAnglePair returns candidate neighbor indices of the two roads bounding
// the smallest angle
func (junction *ComputedJunction) minAnglePair() (int, int) {
	slot := int(junction.MinAngleIndex - 1)
	return junction.clockwise[slot], junction.clockwise[(slot+1)%3]
}

// gapsFromBearings returns the three clockwise angular gaps between
// consecutive bearings, rounded to whole degrees. Bearings must be sorted
// ascending. Rounding residue is folded into the widest gap so the triple
// always sums to exactly 360
func gapsFromBearings(bearings [3]float64) [3]int16 {
	raw := [3]float64{
		bearingGap(bearings[0], bearings[1]),
		bearingGap(bearings[1], bearings[2]),
		bearingGap(bearings[2], bearings[0]),
	}
	gaps := [3]int16{}
	sum := int16(0)
	widest := 0
	for i := range raw {
		gaps[i] = int16(raw[i] + 0.5)
		sum += gaps[i]
		if raw[i] > raw[widest] {
			widest = i
		}
	}
	gaps[widest] += 360 - sum
	return gaps
}

// computeJunction derives bearings, angles and the angle-type bucket for a
// degree-3 candidate. Pure geometry, no I/O
func computeJunction(candidate JunctionCandidate) ComputedJunction {
	type slot struct {
		bearing  float64
		neighbor int
	}
	slots := [3]slot{}
	for i := range candidate.Neighbors {
		slots[i] = slot{
			bearing:  initialBearing(candidate.Point, candidate.Neighbors[i]),
			neighbor: i,
		}
	}
	// Clockwise order around the circle
	sort.Slice(slots[:], func(i, j int) bool {
		return slots[i].bearing < slots[j].bearing
	})

	junction := ComputedJunction{JunctionCandidate: candidate}
	for i := range slots {
		junction.Bearings[i] = slots[i].bearing
		junction.clockwise[i] = slots[i].neighbor
	}

	gaps := gapsFromBearings(junction.Bearings)
	minSlot := 0
	for i := 1; i < 3; i++ {
		if gaps[i] < gaps[minSlot] {
			minSlot = i
		}
	}
	junction.MinAngleIndex = int16(minSlot + 1)

	junction.Angles = gaps
	sort.Slice(junction.Angles[:], func(i, j int) bool {
		return junction.Angles[i] < junction.Angles[j]
	})
	junction.AngleType = classifyAngle(junction.Angles[0])
	return junction
}

// computeJunctions runs the calculator over every candidate and applies the
// sharpest-angle cutoff. Returns surviving junctions and the filtered count
func computeJunctions(candidates []JunctionCandidate, maxSharpAngle int16) ([]ComputedJunction, int) {
	junctions := make([]ComputedJunction, 0, len(candidates))
	filtered := 0
	for _, candidate := range candidates {
		junction := computeJunction(candidate)
		if junction.Angles[0] >= maxSharpAngle {
			filtered++
			continue
		}
		junctions = append(junctions, junction)
	}
	return junctions, filtered
}
