package osm2y

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 0, nil }

type fakeExecer struct {
	queries  []string
	argsSeen [][]interface{}
	failOn   int // 1-based call index that returns an error, 0 never fails
}

func (f *fakeExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.argsSeen = append(f.argsSeen, args)
	if f.failOn > 0 && len(f.queries) == f.failOn {
		return nil, errors.New("forced write failure")
	}
	return fakeResult{}, nil
}

type fakeTx struct {
	fakeExecer
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit() error   { f.committed = true; return nil }
func (f *fakeTx) Rollback() error { f.rolledBack = true; return nil }

func persisterWithFakeTx(batchSize int, tx *fakeTx) *Persister {
	persister := NewPersister(nil, batchSize, zap.NewNop())
	persister.beginTx = func(ctx context.Context) (junctionTx, error) {
		return tx, nil
	}
	return persister
}

func testJunction(nodeID int64) ComputedJunction {
	candidate := candidateWithBearings([3]float64{0.0, 90.0, 200.0})
	junction := computeJunction(candidate)
	junction.NodeID = osm.NodeID(nodeID)
	return junction
}

func TestBuildInsertQuery(t *testing.T) {
	query := buildInsertQuery(3)

	assert.Equal(t, 3*paramsPerRow, strings.Count(query, "$"))
	assert.Equal(t, 3, strings.Count(query, "ST_SetSRID"))
	assert.True(t, strings.HasSuffix(query, "ON CONFLICT (osm_node_id) DO NOTHING"))
	assert.Contains(t, query, "min_angle_elevation_diff")
}

func TestInsertArgsWithoutElevation(t *testing.T) {
	junction := testJunction(1001)
	args := insertArgs(&junction)

	require.Len(t, args, paramsPerRow)
	assert.Equal(t, int64(1001), args[0])
	assert.Equal(t, junction.Point.Lon, args[1])
	assert.Equal(t, junction.Point.Lat, args[2])

	// Elevation columns (positions 10..19) must bind as NULLs
	for i := 9; i <= 18; i++ {
		value, ok := args[i].(*float64)
		require.True(t, ok, "arg %d must be a *float64", i)
		assert.Nil(t, value, "arg %d must be NULL when no elevation sample exists", i)
	}
}

func TestInsertArgsWithElevation(t *testing.T) {
	junction := testJunction(1002)
	elevation := 120.5
	neighbor := 130.5
	junction.Elevation = &ElevationSample{
		Junction:  &elevation,
		Neighbors: [3]*float64{&neighbor, nil, nil},
	}
	args := insertArgs(&junction)

	require.Len(t, args, paramsPerRow)
	assert.Equal(t, &elevation, args[9])
	assert.Equal(t, &neighbor, args[10])
	assert.Nil(t, args[11].(*float64))
}

func TestInsertBatch(t *testing.T) {
	junctions := []ComputedJunction{testJunction(1), testJunction(2)}
	fake := &fakeExecer{}

	require.NoError(t, insertBatch(context.Background(), fake, junctions))
	require.Len(t, fake.queries, 1)
	assert.Len(t, fake.argsSeen[0], 2*paramsPerRow)
}

func TestInsertBatchEmpty(t *testing.T) {
	fake := &fakeExecer{}
	require.NoError(t, insertBatch(context.Background(), fake, nil))
	assert.Empty(t, fake.queries)
}

func TestInsertBatchWriteFailure(t *testing.T) {
	junctions := []ComputedJunction{testJunction(1)}
	fake := &fakeExecer{failOn: 1}

	err := insertBatch(context.Background(), fake, junctions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forced write failure")
}

func TestPersistCommitsBatches(t *testing.T) {
	junctions := []ComputedJunction{testJunction(1), testJunction(2), testJunction(3)}
	tx := &fakeTx{}
	persister := persisterWithFakeTx(2, tx)

	inserted, err := persister.Persist(context.Background(), junctions)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)
	require.Len(t, tx.queries, 2)
	assert.Len(t, tx.argsSeen[0], 2*paramsPerRow)
	assert.Len(t, tx.argsSeen[1], 1*paramsPerRow)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestPersistRollsBackOnWriteFailure(t *testing.T) {
	junctions := []ComputedJunction{testJunction(1), testJunction(2), testJunction(3)}
	tx := &fakeTx{fakeExecer: fakeExecer{failOn: 2}}
	persister := persisterWithFakeTx(1, tx)

	_, err := persister.Persist(context.Background(), junctions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Batch insert failed, transaction rolled back")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	require.Len(t, tx.queries, 2, "no batches must be written after the failing one")
}

func TestPersistBeginFailure(t *testing.T) {
	persister := NewPersister(nil, 10, zap.NewNop())
	persister.beginTx = func(ctx context.Context) (junctionTx, error) {
		return nil, errors.New("forced begin failure")
	}

	_, err := persister.Persist(context.Background(), []ComputedJunction{testJunction(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't begin transaction")
}

func TestPersistEmpty(t *testing.T) {
	persister := NewPersister(nil, 10, zap.NewNop())
	inserted, err := persister.Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}
