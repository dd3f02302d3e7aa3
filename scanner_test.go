package osm2y

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="35.0010" lon="138.0000" version="1"/>
  <node id="2" lat="35.0000" lon="138.0000" version="1"/>
  <node id="3" lat="35.0000" lon="138.0010" version="1"/>
  <node id="4" lat="34.9990" lon="138.0000" version="1"/>
  <node id="5" lat="35.0000" lon="137.9990" version="1"/>
  <node id="6" lat="35.0100" lon="138.0100" version="1"/>
  <node id="7" lat="35.0110" lon="138.0100" version="1"/>
  <node id="8" lat="35.0100" lon="138.0110" version="1"/>
  <node id="9" lat="35.0090" lon="138.0100" version="1"/>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11" version="1">
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="tertiary"/>
    <tag k="bridge" v="yes"/>
  </way>
  <way id="12" version="1">
    <nd ref="2"/>
    <nd ref="4"/>
    <tag k="highway" v="primary"/>
  </way>
  <way id="13" version="1">
    <nd ref="2"/>
    <nd ref="5"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="14" version="1">
    <nd ref="6"/>
    <nd ref="7"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="15" version="1">
    <nd ref="6"/>
    <nd ref="8"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="16" version="1">
    <nd ref="6"/>
    <nd ref="9"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>
`

func writeSampleOSM(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.osm")
	require.NoError(t, os.WriteFile(path, []byte(sampleOSM), 0644))
	return path
}

func TestScanExtract(t *testing.T) {
	path := writeSampleOSM(t)

	result, err := scanExtract(path, DefaultAllowedHighwayTags(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 7, result.WaysSeen)
	assert.Equal(t, 5, result.AllowedWays)

	// Node 2 touches 3 allowed ways (the footway does not count).
	// Node 6 touches only 2 allowed ways, so it never becomes a candidate
	candidates := result.counter.candidates()
	require.Len(t, candidates, 1)
	assert.Equal(t, osm.NodeID(2), candidates[0])

	// Coordinates are resolved for the candidate and its neighbors only
	for _, nodeID := range []osm.NodeID{1, 2, 3, 4} {
		assert.Contains(t, result.coords, nodeID, "node %d belongs to the working set", nodeID)
	}
	assert.NotContains(t, result.coords, osm.NodeID(5), "footway neighbor is not part of the working set")
	assert.NotContains(t, result.coords, osm.NodeID(6))
}

func TestScanExtractNeighborTags(t *testing.T) {
	path := writeSampleOSM(t)

	result, err := scanExtract(path, DefaultAllowedHighwayTags(), zap.NewNop())
	require.NoError(t, err)

	neighbors := result.counter.neighborsOf(2)
	require.Len(t, neighbors, 3)
	assert.Equal(t, osm.NodeID(1), neighbors[0].nodeID)
	assert.Equal(t, osm.NodeID(3), neighbors[1].nodeID)
	assert.Equal(t, osm.NodeID(4), neighbors[2].nodeID)
	assert.True(t, neighbors[1].way.Bridge, "tertiary way carries a bridge tag")
	assert.False(t, neighbors[0].way.Bridge)
}

func TestScanExtractMissingFile(t *testing.T) {
	_, err := scanExtract("/nonexistent/region.osm.pbf", DefaultAllowedHighwayTags(), zap.NewNop())
	require.Error(t, err)
}

func TestScanExtractTruncatedXML(t *testing.T) {
	// File ends mid-way, the decoder must surface the error instead of
	// silently reporting a partial scan
	truncated := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="35.0" lon="138.0" version="1"/>
  <way id="10" version="1">
    <nd ref="1"/>
`
	path := filepath.Join(t.TempDir(), "truncated.osm")
	require.NoError(t, os.WriteFile(path, []byte(truncated), 0644))

	_, err := scanExtract(path, DefaultAllowedHighwayTags(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Scanner error on Ways")
}

func TestScanExtractUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.csv")
	require.NoError(t, os.WriteFile(path, []byte("no"), 0644))
	_, err := scanExtract(path, DefaultAllowedHighwayTags(), zap.NewNop())
	require.Error(t, err)
}
