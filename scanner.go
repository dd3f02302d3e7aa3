package osm2y

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// ScanResult adjacency summary plus coordinates of the working set of nodes
type ScanResult struct {
	counter *connectionCounter
	coords  map[osm.NodeID]GeoPoint

	WaysSeen    int
	AllowedWays int
	NodesNeeded int
	NodesFound  int
}

// newScanner prepares correct scanner for given source file extension.
// Plain and dense node encodings of PBF blocks are handled by the scanner
// itself, callers never observe the difference
func newScanner(filename string, file *os.File) (OSMScanner, error) {
	ext := filepath.Ext(filename)
	switch ext {
	case ".osm", ".xml":
		return osmxml.New(context.Background(), file), nil
	case ".pbf", ".osm.pbf":
		return osmpbf.New(context.Background(), file, 1), nil
	}
	return nil, fmt.Errorf("File extension '%s' for file '%s' is not handled yet", ext, filename)
}

// scanExtract streams the source extract in two bounded passes.
//
// Pass 1 visits ways only: every way carrying an allowed road classification
// feeds the connection counter. Pass 2 seeks the file back and visits nodes
// only, resolving coordinates for the small working set (degree-3 candidates
// and their immediate neighbors). Malformed input aborts with an error
func scanExtract(filename string, allowedTags map[string]struct{}, logger *zap.Logger) (*ScanResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer file.Close()

	result := &ScanResult{
		counter: newConnectionCounter(),
		coords:  make(map[osm.NodeID]GeoPoint),
	}

	/* Process ways */
	st := time.Now()
	{
		scannerWays, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerWays.Close()

		for scannerWays.Scan() {
			obj := scannerWays.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			result.WaysSeen++
			highwayText := way.Tags.Find("highway")
			if highwayText == "" {
				continue
			}
			if _, ok := allowedTags[highwayText]; !ok {
				continue
			}
			result.AllowedWays++
			preparedWay := RoadWay{
				ID: way.ID,
				Info: WayInfo{
					Highway: highwayText,
					Bridge:  tagIsSet(way.Tags.Find("bridge")),
					Tunnel:  tagIsSet(way.Tags.Find("tunnel")),
				},
				Nodes: make([]osm.NodeID, 0, len(way.Nodes)),
			}
			for _, wayNode := range way.Nodes {
				preparedWay.Nodes = append(preparedWay.Nodes, wayNode.ID)
			}
			result.counter.addWay(preparedWay)
		}
		if scannerWays.Err() != nil {
			return nil, errors.Wrap(scannerWays.Err(), "Scanner error on Ways")
		}
	}
	logger.Info("ways pass done",
		zap.Int("ways_seen", result.WaysSeen),
		zap.Int("allowed_ways", result.AllowedWays),
		zap.Duration("elapsed", time.Since(st)),
	)

	needed := result.counter.workingSet()
	result.NodesNeeded = len(needed)
	if len(needed) == 0 {
		logger.Warn("no junction candidates found, skipping nodes pass")
		return result, nil
	}

	// Seek file to start
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}

	/* Process nodes */
	st = time.Now()
	{
		scannerNodes, err := newScanner(filename, file)
		if err != nil {
			return nil, err
		}
		defer scannerNodes.Close()

		for scannerNodes.Scan() {
			obj := scannerNodes.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := needed[node.ID]; !ok {
				continue
			}
			result.coords[node.ID] = GeoPoint{Lat: node.Lat, Lon: node.Lon}
		}
		if scannerNodes.Err() != nil {
			return nil, errors.Wrap(scannerNodes.Err(), "Scanner error on Nodes")
		}
	}
	result.NodesFound = len(result.coords)
	logger.Info("nodes pass done",
		zap.Int("nodes_needed", result.NodesNeeded),
		zap.Int("nodes_found", result.NodesFound),
		zap.Duration("elapsed", time.Since(st)),
	)

	return result, nil
}
