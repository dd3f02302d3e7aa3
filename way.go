package osm2y

import (
	"github.com/paulmach/osm"
)

// WayInfo tag summary of a single road way
type WayInfo struct {
	Highway string
	Bridge  bool
	Tunnel  bool
}

// RoadWay ordered sequence of node identifiers sharing one road classification
type RoadWay struct {
	ID    osm.WayID
	Info  WayInfo
	Nodes []osm.NodeID
}
