package osm2y

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// noDataElevation reserved grid value marking cells without measurement
const noDataElevation = -9999.0

// GsiTile parsed rectangular elevation grid from one JPGIS GML file.
// Values are stored row-major in +x-y order (west to east, north to south)
type GsiTile struct {
	minLat, minLon float64
	maxLat, maxLon float64
	gridWidth      int
	gridHeight     int
	elevations     []float64
}

// Contains reports whether given coordinate falls inside the tile envelope
func (tile *GsiTile) Contains(lat, lon float64) bool {
	return lat >= tile.minLat && lat <= tile.maxLat &&
		lon >= tile.minLon && lon <= tile.maxLon
}

// ElevationAt returns elevation of the grid cell covering given coordinate.
// Second value is false when the coordinate is outside the envelope or the
// cell holds the no-data sentinel
func (tile *GsiTile) ElevationAt(lat, lon float64) (float64, bool) {
	if !tile.Contains(lat, lon) {
		return 0, false
	}
	latFrac := (lat - tile.minLat) / (tile.maxLat - tile.minLat)
	lonFrac := (lon - tile.minLon) / (tile.maxLon - tile.minLon)

	x := int(lonFrac*float64(tile.gridWidth-1) + 0.5)
	y := int((1.0-latFrac)*float64(tile.gridHeight-1) + 0.5)

	index := y*tile.gridWidth + x
	if index < 0 || index >= len(tile.elevations) {
		return 0, false
	}
	value := tile.elevations[index]
	if value <= noDataElevation {
		return 0, false
	}
	return value, true
}

// parseGsiTile reads one JPGIS GML elevation tile.
//
// Envelope corners come as "lat lon" pairs, the Grid high element holds
// maximum cell indices ("x y", so dimensions are high+1) and tupleList
// carries one "<surface type>,<elevation>" line per cell
func parseGsiTile(path string) (*GsiTile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Tile file read")
	}

	var lowerCornerText, upperCornerText, highText, tupleListText string
	decoder := xml.NewDecoder(strings.NewReader(string(content)))
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "lowerCorner":
			decoder.DecodeElement(&lowerCornerText, &start)
		case "upperCorner":
			decoder.DecodeElement(&upperCornerText, &start)
		case "high":
			decoder.DecodeElement(&highText, &start)
		case "tupleList":
			decoder.DecodeElement(&tupleListText, &start)
		}
	}

	lower, err := parseCornerPair(lowerCornerText)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid lowerCorner")
	}
	upper, err := parseCornerPair(upperCornerText)
	if err != nil {
		return nil, errors.Wrap(err, "Invalid upperCorner")
	}
	highFields := strings.Fields(highText)
	if len(highFields) != 2 {
		return nil, errors.Errorf("Invalid high element: '%s'", highText)
	}
	highX, err := strconv.Atoi(highFields[0])
	if err != nil {
		return nil, errors.Wrap(err, "Invalid high X")
	}
	highY, err := strconv.Atoi(highFields[1])
	if err != nil {
		return nil, errors.Wrap(err, "Invalid high Y")
	}
	gridWidth := highX + 1
	gridHeight := highY + 1

	elevations := make([]float64, 0, gridWidth*gridHeight)
	for _, line := range strings.Split(tupleListText, "\n") {
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) != 2 {
			continue
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		elevations = append(elevations, value)
	}
	if len(elevations) != gridWidth*gridHeight {
		return nil, errors.Errorf("Elevation count mismatch: expected %d, got %d", gridWidth*gridHeight, len(elevations))
	}

	return &GsiTile{
		minLat:     lower.Lat,
		minLon:     lower.Lon,
		maxLat:     upper.Lat,
		maxLon:     upper.Lon,
		gridWidth:  gridWidth,
		gridHeight: gridHeight,
		elevations: elevations,
	}, nil
}

// parseCornerPair parses "lat lon" text of an envelope corner
func parseCornerPair(text string) (GeoPoint, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return GeoPoint{}, errors.Errorf("expected 'lat lon' pair, got '%s'", text)
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return GeoPoint{}, err
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return GeoPoint{}, err
	}
	return GeoPoint{Lat: lat, Lon: lon}, nil
}

// ElevationProvider resolves coordinates to terrain elevation backed by a
// directory of pre-tiled grid files. Tiles are parsed lazily on first touch
// and cached by file path for the rest of the run. The cache belongs to the
// provider instance, there is no process-wide state
type ElevationProvider struct {
	dataDir string
	cache   map[string]*GsiTile
	broken  map[string]struct{}
	logger  *zap.Logger
}

// NewElevationProvider prepares provider over given tile directory.
// Both <dir>/*.xml and <dir>/xml/*.xml layouts are recognized
func NewElevationProvider(dataDir string, logger *zap.Logger) *ElevationProvider {
	return &ElevationProvider{
		dataDir: dataDir,
		cache:   make(map[string]*GsiTile),
		broken:  make(map[string]struct{}),
		logger:  logger,
	}
}

// tilePaths enumerates candidate tile files, sorted for deterministic probing
func (provider *ElevationProvider) tilePaths() []string {
	paths, _ := filepath.Glob(filepath.Join(provider.dataDir, "*.xml"))
	nested, _ := filepath.Glob(filepath.Join(provider.dataDir, "xml", "*.xml"))
	paths = append(paths, nested...)
	sort.Strings(paths)
	return paths
}

// ElevationAt returns elevation in meters for given coordinate. Second value
// is false when no tile covers the point, the covering cell holds the no-data
// sentinel, or the tile directory is missing entirely. Individual tile parse
// failures degrade that tile to unavailable, they never abort the run
func (provider *ElevationProvider) ElevationAt(lat, lon float64) (float64, bool) {
	for _, path := range provider.tilePaths() {
		if _, bad := provider.broken[path]; bad {
			continue
		}
		tile, ok := provider.cache[path]
		if !ok {
			parsed, err := parseGsiTile(path)
			if err != nil {
				provider.broken[path] = struct{}{}
				provider.logger.Warn("skipping unreadable elevation tile",
					zap.String("path", path),
					zap.Error(err),
				)
				continue
			}
			// Cache misses too, so files are parsed at most once per run
			provider.cache[path] = parsed
			tile = parsed
		}
		if !tile.Contains(lat, lon) {
			continue
		}
		if value, ok := tile.ElevationAt(lat, lon); ok {
			return value, true
		}
	}
	return 0, false
}

// CachedTiles returns number of tiles parsed so far
func (provider *ElevationProvider) CachedTiles() int {
	return len(provider.cache)
}
