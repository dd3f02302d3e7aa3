package osm2y

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RunState phase of a single import run
type RunState uint16

const (
	STATE_NOT_STARTED = RunState(iota + 1)
	STATE_SCANNING
	STATE_DETECTING
	STATE_COMPUTING
	STATE_ENRICHING
	STATE_PERSISTING
	STATE_DONE
	STATE_FAILED
)

func (iotaIdx RunState) String() string {
	return [...]string{"not_started", "scanning", "detecting", "computing", "enriching", "persisting", "done", "failed"}[iotaIdx-1]
}

// Stats end-of-run summary
type Stats struct {
	WaysSeen           int
	AllowedWays        int
	Candidates         int
	Computed           int
	FilteredByAngle    int
	ElevationAttempted int
	ElevationResolved  int
	RowsInserted       int
}

// Pipeline sequential import run: scan, detect, compute, enrich, persist.
// Single-threaded by design: the job is a finite CLI run and correctness of
// the geometry is the hard part, not throughput
type Pipeline struct {
	filename      string
	bbox          orb.Bound
	elevationDir  string
	allowedTags   map[string]struct{}
	batchSize     int
	maxSharpAngle int16
	geojsonOut    string
	db            *sqlx.DB
	logger        *zap.Logger

	state RunState
	stats Stats
}

func NewPipeline(filename string, options ...func(*Pipeline)) *Pipeline {
	pipeline := &Pipeline{
		filename:      filename,
		allowedTags:   DefaultAllowedHighwayTags(),
		batchSize:     defaultBatchSize,
		maxSharpAngle: defaultMaxSharpAngle,
		logger:        zap.NewNop(),
		state:         STATE_NOT_STARTED,
	}
	for _, option := range options {
		option(pipeline)
	}
	return pipeline
}

func WithBBox(bbox orb.Bound) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.bbox = bbox
	}
}

func WithElevationDir(elevationDir string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.elevationDir = elevationDir
	}
}

func WithAllowedTags(tags []string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.allowedTags = prepareAllowedTags(tags)
	}
}

func WithBatchSize(batchSize int) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.batchSize = batchSize
	}
}

func WithMaxSharpAngle(maxSharpAngle int16) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.maxSharpAngle = maxSharpAngle
	}
}

func WithGeoJSONOutput(filename string) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.geojsonOut = filename
	}
}

func WithStore(db *sqlx.DB) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.db = db
	}
}

func WithLogger(logger *zap.Logger) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.logger = logger
	}
}

// State returns current run phase
func (pipeline *Pipeline) State() RunState {
	return pipeline.state
}

// Stats returns run counters collected so far
func (pipeline *Pipeline) Stats() Stats {
	return pipeline.stats
}

// Run executes the whole import sequentially. Scanning and persisting are the
// only phases that may fail the run; per-item problems in between are filtered
// or defaulted and surface in the stats only
func (pipeline *Pipeline) Run(ctx context.Context) (Stats, error) {
	st := time.Now()

	pipeline.state = STATE_SCANNING
	scan, err := scanExtract(pipeline.filename, pipeline.allowedTags, pipeline.logger)
	if err != nil {
		pipeline.state = STATE_FAILED
		return pipeline.stats, errors.Wrap(err, "Scanning stage failed")
	}
	pipeline.stats.WaysSeen = scan.WaysSeen
	pipeline.stats.AllowedWays = scan.AllowedWays

	pipeline.state = STATE_DETECTING
	candidates := detectJunctions(scan.counter, scan.coords, pipeline.bbox)
	pipeline.stats.Candidates = len(candidates)
	pipeline.logger.Info("junction candidates detected",
		zap.Int("candidates", len(candidates)),
	)

	pipeline.state = STATE_COMPUTING
	junctions, filtered := computeJunctions(candidates, pipeline.maxSharpAngle)
	pipeline.stats.Computed = len(junctions)
	pipeline.stats.FilteredByAngle = filtered
	pipeline.logger.Info("junction geometry computed",
		zap.Int("computed", len(junctions)),
		zap.Int("filtered_by_angle", filtered),
	)
	for i := range junctions {
		// Sample of results for eyeballing a run
		if i >= 10 {
			break
		}
		pipeline.logger.Debug("junction",
			zap.Int64("osm_node_id", int64(junctions[i].NodeID)),
			zap.String("geom", PrepareWKTPoint(junctions[i].Point)),
			zap.Int16s("angles", junctions[i].Angles[:]),
			zap.String("angle_type", junctions[i].AngleType.String()),
		)
	}

	pipeline.state = STATE_ENRICHING
	var provider *ElevationProvider
	if pipeline.elevationDir != "" {
		provider = NewElevationProvider(pipeline.elevationDir, pipeline.logger)
	}
	enrichStats := NewEnricher(provider, pipeline.logger).Enrich(junctions)
	pipeline.stats.ElevationAttempted = enrichStats.Attempted
	pipeline.stats.ElevationResolved = enrichStats.Resolved

	if pipeline.geojsonOut != "" {
		if err := ExportGeoJSON(pipeline.geojsonOut, junctions); err != nil {
			pipeline.logger.Warn("GeoJSON export failed", zap.Error(err))
		}
	}

	pipeline.state = STATE_PERSISTING
	if pipeline.db != nil {
		persister := NewPersister(pipeline.db, pipeline.batchSize, pipeline.logger)
		if err := persister.EnsureSchema(ctx); err != nil {
			pipeline.state = STATE_FAILED
			return pipeline.stats, errors.Wrap(err, "Persisting stage failed")
		}
		inserted, err := persister.Persist(ctx, junctions)
		if err != nil {
			pipeline.state = STATE_FAILED
			return pipeline.stats, errors.Wrap(err, "Persisting stage failed")
		}
		pipeline.stats.RowsInserted = inserted
	} else {
		pipeline.logger.Info("store not configured, skipping persisting")
	}

	pipeline.state = STATE_DONE
	pipeline.logger.Info("import done",
		zap.Int("ways_seen", pipeline.stats.WaysSeen),
		zap.Int("allowed_ways", pipeline.stats.AllowedWays),
		zap.Int("candidates", pipeline.stats.Candidates),
		zap.Int("computed", pipeline.stats.Computed),
		zap.Int("filtered_by_angle", pipeline.stats.FilteredByAngle),
		zap.Int("elevation_attempted", pipeline.stats.ElevationAttempted),
		zap.Int("elevation_resolved", pipeline.stats.ElevationResolved),
		zap.Int("rows_inserted", pipeline.stats.RowsInserted),
		zap.Duration("elapsed", time.Since(st)),
	)
	return pipeline.stats, nil
}
