package osm2y

import (
	"fmt"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// junctionFeature renders one junction as a GeoJSON point feature.
// Property names follow the persisted record shape
func junctionFeature(junction *ComputedJunction) *geojson.Feature {
	feature := geojson.NewPointFeature([]float64{junction.Point.Lon, junction.Point.Lat})
	feature.SetProperty("osm_node_id", int64(junction.NodeID))
	feature.SetProperty("angles", []int16{junction.Angles[0], junction.Angles[1], junction.Angles[2]})
	feature.SetProperty("bearings", []float64{junction.Bearings[0], junction.Bearings[1], junction.Bearings[2]})
	feature.SetProperty("angle_type", junction.AngleType.String())
	feature.SetProperty("min_angle_index", junction.MinAngleIndex)
	feature.SetProperty("streetview_url", streetviewURL(junction))
	if junction.Elevation != nil && junction.Elevation.Junction != nil {
		feature.SetProperty("elevation", *junction.Elevation.Junction)
	}
	return feature
}

// streetviewURL builds a Street View link oriented into the smallest angle,
// using the modular average of its two bounding bearings
func streetviewURL(junction *ComputedJunction) string {
	slot := int(junction.MinAngleIndex - 1)
	heading := middleBearing(junction.Bearings[slot], junction.Bearings[(slot+1)%3])
	return fmt.Sprintf("https://www.google.com/maps/@%f,%f,3a,75y,%.0fh,90t",
		junction.Point.Lat, junction.Point.Lon, heading)
}

// ExportGeoJSON writes surviving junctions into a FeatureCollection file
func ExportGeoJSON(filename string, junctions []ComputedJunction) error {
	collection := geojson.NewFeatureCollection()
	for i := range junctions {
		collection.AddFeature(junctionFeature(&junctions[i]))
	}
	b, err := collection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return errors.Wrap(err, "Can't write GeoJSON file")
	}
	return nil
}
