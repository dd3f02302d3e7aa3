package osm2y

import (
	"math"

	"go.uber.org/zap"
)

// ElevationSample junction elevation context in meters. Every field is nil
// when the underlying measurement is unavailable; derived fields are only
// filled when all of their inputs are present
type ElevationSample struct {
	Junction  *float64
	Neighbors [3]*float64

	Diffs        [3]*float64
	MinDiff      *float64
	MaxDiff      *float64
	MinAngleDiff *float64
}

// EnrichStats coverage accounting for an enrichment run
type EnrichStats struct {
	Attempted int
	Resolved  int
}

// Enricher attaches terrain elevation to computed junctions.
// A nil provider disables enrichment entirely without failing the run
type Enricher struct {
	provider *ElevationProvider
	logger   *zap.Logger
	stats    EnrichStats
}

func NewEnricher(provider *ElevationProvider, logger *zap.Logger) *Enricher {
	return &Enricher{
		provider: provider,
		logger:   logger,
	}
}

// Enrich queries the provider for each junction and its three neighbors and
// fills the derived difference fields in place
func (enricher *Enricher) Enrich(junctions []ComputedJunction) EnrichStats {
	if enricher.provider == nil {
		enricher.logger.Info("elevation directory not configured, skipping enrichment")
		return enricher.stats
	}
	for i := range junctions {
		enricher.stats.Attempted++
		sample := enricher.sampleJunction(&junctions[i])
		junctions[i].Elevation = sample
		if sample.Junction != nil {
			enricher.stats.Resolved++
		}
	}
	enricher.logger.Info("elevation enrichment done",
		zap.Int("attempted", enricher.stats.Attempted),
		zap.Int("resolved", enricher.stats.Resolved),
	)
	return enricher.stats
}

func (enricher *Enricher) sampleJunction(junction *ComputedJunction) *ElevationSample {
	sample := &ElevationSample{}
	if value, ok := enricher.provider.ElevationAt(junction.Point.Lat, junction.Point.Lon); ok {
		sample.Junction = &value
	}
	for i := range junction.Neighbors {
		if value, ok := enricher.provider.ElevationAt(junction.Neighbors[i].Lat, junction.Neighbors[i].Lon); ok {
			value := value
			sample.Neighbors[i] = &value
		}
	}

	// Per-direction diffs only when both operands are present
	allDiffs := true
	for i := range sample.Neighbors {
		if sample.Junction == nil || sample.Neighbors[i] == nil {
			allDiffs = false
			continue
		}
		diff := math.Abs(*sample.Junction - *sample.Neighbors[i])
		sample.Diffs[i] = &diff
	}

	// Aggregates depend on all three diffs
	if allDiffs {
		minDiff := *sample.Diffs[0]
		maxDiff := *sample.Diffs[0]
		for i := 1; i < 3; i++ {
			minDiff = math.Min(minDiff, *sample.Diffs[i])
			maxDiff = math.Max(maxDiff, *sample.Diffs[i])
		}
		sample.MinDiff = &minDiff
		sample.MaxDiff = &maxDiff
	}

	// Elevation gap between the two roads bounding the smallest angle,
	// taken from the neighbor elevations themselves
	first, second := junction.minAnglePair()
	if sample.Neighbors[first] != nil && sample.Neighbors[second] != nil {
		minAngleDiff := math.Abs(*sample.Neighbors[first] - *sample.Neighbors[second])
		sample.MinAngleDiff = &minAngleDiff
	}
	return sample
}
