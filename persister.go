package osm2y

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 500

	// Parameters bound per junction row, must match buildInsertQuery and insertArgs
	paramsPerRow = 26
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS y_junctions (
	id BIGSERIAL PRIMARY KEY,
	osm_node_id BIGINT NOT NULL UNIQUE,
	location GEOGRAPHY(POINT, 4326) NOT NULL,
	angle_1 SMALLINT NOT NULL,
	angle_2 SMALLINT NOT NULL,
	angle_3 SMALLINT NOT NULL,
	bearing_1 DOUBLE PRECISION NOT NULL,
	bearing_2 DOUBLE PRECISION NOT NULL,
	bearing_3 DOUBLE PRECISION NOT NULL,
	min_angle_index SMALLINT NOT NULL,
	elevation DOUBLE PRECISION,
	neighbor_elevation_1 DOUBLE PRECISION,
	neighbor_elevation_2 DOUBLE PRECISION,
	neighbor_elevation_3 DOUBLE PRECISION,
	elevation_diff_1 DOUBLE PRECISION,
	elevation_diff_2 DOUBLE PRECISION,
	elevation_diff_3 DOUBLE PRECISION,
	min_elevation_diff DOUBLE PRECISION,
	max_elevation_diff DOUBLE PRECISION,
	min_angle_elevation_diff DOUBLE PRECISION,
	way_1_bridge BOOLEAN NOT NULL DEFAULT FALSE,
	way_1_tunnel BOOLEAN NOT NULL DEFAULT FALSE,
	way_2_bridge BOOLEAN NOT NULL DEFAULT FALSE,
	way_2_tunnel BOOLEAN NOT NULL DEFAULT FALSE,
	way_3_bridge BOOLEAN NOT NULL DEFAULT FALSE,
	way_3_tunnel BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Persister writes computed junctions into the store in transactional batches
type Persister struct {
	db        *sqlx.DB
	batchSize int
	logger    *zap.Logger

	beginTx func(ctx context.Context) (junctionTx, error)
}

func NewPersister(db *sqlx.DB, batchSize int, logger *zap.Logger) *Persister {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	persister := &Persister{
		db:        db,
		batchSize: batchSize,
		logger:    logger,
	}
	persister.beginTx = func(ctx context.Context) (junctionTx, error) {
		return persister.db.BeginTxx(ctx, nil)
	}
	return persister
}

// EnsureSchema creates the target table when it does not exist yet
func (persister *Persister) EnsureSchema(ctx context.Context) error {
	_, err := persister.db.ExecContext(ctx, schemaDDL)
	return errors.Wrap(err, "Can't ensure y_junctions schema")
}

// Persist inserts junctions in batches inside a single transaction. Any write
// failure rolls the whole transaction back, so no partial batch survives.
// Returns number of rows handed to the store
func (persister *Persister) Persist(ctx context.Context, junctions []ComputedJunction) (int, error) {
	if len(junctions) == 0 {
		persister.logger.Info("no junctions to insert")
		return 0, nil
	}
	total := len(junctions)
	st := time.Now()

	tx, err := persister.beginTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "Can't begin transaction")
	}

	inserted := 0
	for start := 0; start < total; start += persister.batchSize {
		end := start + persister.batchSize
		if end > total {
			end = total
		}
		if err := insertBatch(ctx, tx, junctions[start:end]); err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, "Batch insert failed, transaction rolled back")
		}
		inserted = end
		persister.logger.Info("inserted junctions",
			zap.Int("inserted", inserted),
			zap.Int("total", total),
		)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "Can't commit transaction")
	}
	persister.logger.Info("persisting done",
		zap.Int("rows", inserted),
		zap.Duration("elapsed", time.Since(st)),
	)
	return inserted, nil
}

// execer covers both *sqlx.Tx and test doubles
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// junctionTx adds the transaction lifecycle on top of execer,
// satisfied by *sqlx.Tx
type junctionTx interface {
	execer
	Commit() error
	Rollback() error
}

func insertBatch(ctx context.Context, tx execer, junctions []ComputedJunction) error {
	if len(junctions) == 0 {
		return nil
	}
	query := buildInsertQuery(len(junctions))
	args := make([]interface{}, 0, len(junctions)*paramsPerRow)
	for i := range junctions {
		args = append(args, insertArgs(&junctions[i])...)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// buildInsertQuery renders a multi-row INSERT with positional parameters.
// Already imported nodes are skipped, re-running an import is safe
func buildInsertQuery(rows int) string {
	var query strings.Builder
	query.WriteString(`INSERT INTO y_junctions (
		osm_node_id, location,
		angle_1, angle_2, angle_3,
		bearing_1, bearing_2, bearing_3,
		min_angle_index,
		elevation,
		neighbor_elevation_1, neighbor_elevation_2, neighbor_elevation_3,
		elevation_diff_1, elevation_diff_2, elevation_diff_3,
		min_elevation_diff, max_elevation_diff, min_angle_elevation_diff,
		way_1_bridge, way_1_tunnel, way_2_bridge, way_2_tunnel, way_3_bridge, way_3_tunnel
	) VALUES `)
	for i := 0; i < rows; i++ {
		if i > 0 {
			query.WriteString(", ")
		}
		base := i * paramsPerRow
		query.WriteString(fmt.Sprintf("($%d, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography", base+1, base+2, base+3))
		for p := base + 4; p <= base+paramsPerRow; p++ {
			query.WriteString(fmt.Sprintf(", $%d", p))
		}
		query.WriteString(")")
	}
	query.WriteString(" ON CONFLICT (osm_node_id) DO NOTHING")
	return query.String()
}

// insertArgs binds one junction row. Absent elevation values are bound as nil
// pointers which the driver encodes as true NULLs
func insertArgs(junction *ComputedJunction) []interface{} {
	sample := junction.Elevation
	if sample == nil {
		sample = &ElevationSample{}
	}
	return []interface{}{
		int64(junction.NodeID),
		junction.Point.Lon, // lon first for ST_MakePoint
		junction.Point.Lat,
		junction.Angles[0], junction.Angles[1], junction.Angles[2],
		junction.Bearings[0], junction.Bearings[1], junction.Bearings[2],
		junction.MinAngleIndex,
		sample.Junction,
		sample.Neighbors[0], sample.Neighbors[1], sample.Neighbors[2],
		sample.Diffs[0], sample.Diffs[1], sample.Diffs[2],
		sample.MinDiff, sample.MaxDiff, sample.MinAngleDiff,
		junction.Ways[0].Bridge, junction.Ways[0].Tunnel,
		junction.Ways[1].Bridge, junction.Ways[1].Tunnel,
		junction.Ways[2].Bridge, junction.Ways[2].Tunnel,
	}
}
