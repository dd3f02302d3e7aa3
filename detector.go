package osm2y

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// JunctionCandidate road node with exactly 3 incident allowed ways.
// Neighbors are kept in way discovery order; Ways[i] describes the way
// the i-th neighbor was reached through
type JunctionCandidate struct {
	NodeID    osm.NodeID
	Point     GeoPoint
	Neighbors [3]GeoPoint
	Ways      [3]WayInfo
}

// neighborRef neighbor node reached by walking one step along a way
type neighborRef struct {
	nodeID osm.NodeID
	way    WayInfo
}

// connectionCounter adjacency summary of the allowed road network.
// Keeps per-node incident way lists and per-way node lists, never the full graph
type connectionCounter struct {
	nodeWays map[osm.NodeID][]osm.WayID
	wayNodes map[osm.WayID][]osm.NodeID
	wayInfo  map[osm.WayID]WayInfo
}

func newConnectionCounter() *connectionCounter {
	return &connectionCounter{
		nodeWays: make(map[osm.NodeID][]osm.WayID),
		wayNodes: make(map[osm.WayID][]osm.NodeID),
		wayInfo:  make(map[osm.WayID]WayInfo),
	}
}

// addWay registers way and increments incident-way accounting for each of its nodes.
// A way touching the same node several times (loops) is counted once for that node
func (counter *connectionCounter) addWay(way RoadWay) {
	counter.wayNodes[way.ID] = way.Nodes
	counter.wayInfo[way.ID] = way.Info
	for _, nodeID := range way.Nodes {
		if containsWay(counter.nodeWays[nodeID], way.ID) {
			continue
		}
		counter.nodeWays[nodeID] = append(counter.nodeWays[nodeID], way.ID)
	}
}

func containsWay(ways []osm.WayID, wayID osm.WayID) bool {
	for _, id := range ways {
		if id == wayID {
			return true
		}
	}
	return false
}

// connectionsCount returns number of allowed ways incident to given node
func (counter *connectionCounter) connectionsCount(nodeID osm.NodeID) int {
	return len(counter.nodeWays[nodeID])
}

// candidates returns identifiers of nodes with exactly 3 incident allowed ways,
// sorted ascending for deterministic downstream processing
func (counter *connectionCounter) candidates() []osm.NodeID {
	found := make([]osm.NodeID, 0)
	for nodeID, ways := range counter.nodeWays {
		if len(ways) == 3 {
			found = append(found, nodeID)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i] < found[j]
	})
	return found
}

// neighborsOf walks one step along each way incident to given junction node.
// Next node in the way's stored direction is preferred, previous one is the
// fallback for ways ending at the junction
func (counter *connectionCounter) neighborsOf(junctionID osm.NodeID) []neighborRef {
	neighbors := make([]neighborRef, 0, 3)
	for _, wayID := range counter.nodeWays[junctionID] {
		nodes := counter.wayNodes[wayID]
		pos := -1
		for i, nodeID := range nodes {
			if nodeID == junctionID {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}
		var neighborID osm.NodeID
		if pos+1 < len(nodes) {
			neighborID = nodes[pos+1]
		} else if pos > 0 {
			neighborID = nodes[pos-1]
		} else {
			continue
		}
		neighbors = append(neighbors, neighborRef{
			nodeID: neighborID,
			way:    counter.wayInfo[wayID],
		})
	}
	return neighbors
}

// workingSet returns identifiers whose coordinates the second scanning pass
// must resolve: every degree-3 candidate plus its walk-one-step neighbors
func (counter *connectionCounter) workingSet() map[osm.NodeID]struct{} {
	needed := make(map[osm.NodeID]struct{})
	for _, candidateID := range counter.candidates() {
		needed[candidateID] = struct{}{}
		for _, neighbor := range counter.neighborsOf(candidateID) {
			needed[neighbor.nodeID] = struct{}{}
		}
	}
	return needed
}

// detectJunctions materializes junction candidates from the adjacency summary
// and resolved coordinates. Candidates outside the bounding box or with missing
// neighbor coordinates are silently dropped
func detectJunctions(counter *connectionCounter, coords map[osm.NodeID]GeoPoint, bbox orb.Bound) []JunctionCandidate {
	junctions := make([]JunctionCandidate, 0)
	for _, candidateID := range counter.candidates() {
		point, ok := coords[candidateID]
		if !ok {
			continue
		}
		if !bbox.Contains(orb.Point{point.Lon, point.Lat}) {
			continue
		}
		neighbors := counter.neighborsOf(candidateID)
		if len(neighbors) != 3 {
			continue
		}
		junction := JunctionCandidate{
			NodeID: candidateID,
			Point:  point,
		}
		resolved := true
		for i, neighbor := range neighbors {
			neighborPoint, ok := coords[neighbor.nodeID]
			if !ok {
				resolved = false
				break
			}
			// Zero-length segment gives an undefined bearing
			if greatCircleDistance(point, neighborPoint) == 0 {
				resolved = false
				break
			}
			junction.Neighbors[i] = neighborPoint
			junction.Ways[i] = neighbor.way
		}
		if !resolved {
			continue
		}
		junctions = append(junctions, junction)
	}
	return junctions
}
