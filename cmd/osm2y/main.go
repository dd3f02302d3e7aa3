package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gomaplab/osm2y"
	"go.uber.org/zap"
)

var (
	osmFileName   = flag.String("file", "", "Filename of *.osm.pbf file (*.osm XML is supported as well)")
	bboxStr       = flag.String("bbox", "", "Bounding box: min_lon,min_lat,max_lon,max_lat")
	elevationDir  = flag.String("elevation-dir", "", "Root directory of tiled elevation dataset (omit to disable enrichment)")
	tagStr        = flag.String("tags", "primary,secondary,tertiary,residential,unclassified,living_street,pedestrian", "Set of allowed road tags (separated by commas)")
	geojsonOut    = flag.String("geojson-out", "", "Optional filename for GeoJSON FeatureCollection export of found junctions")
	batchSize     = flag.Int("batch-size", 500, "Junctions inserted per batch")
	maxSharpAngle = flag.Int("max-sharp-angle", 150, "Junctions whose smallest angle reaches this value (degrees) are dropped")
	logLevel      = flag.String("log-level", "info", "Log level: debug / info / warn / error")
)

func main() {
	flag.Parse()

	logger, err := osm2y.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't build logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *osmFileName == "" || *bboxStr == "" {
		logger.Error("both -file and -bbox are required")
		flag.Usage()
		os.Exit(1)
	}

	bbox, err := osm2y.ParseBBox(*bboxStr)
	if err != nil {
		logger.Error("bad bounding box", zap.Error(err))
		os.Exit(1)
	}

	cutoff, err := osm2y.ParseMaxSharpAngle(*maxSharpAngle)
	if err != nil {
		logger.Error("bad sharp angle cutoff", zap.Error(err))
		os.Exit(1)
	}

	options := []func(*osm2y.Pipeline){
		osm2y.WithBBox(bbox),
		osm2y.WithAllowedTags(strings.Split(*tagStr, ",")),
		osm2y.WithBatchSize(*batchSize),
		osm2y.WithMaxSharpAngle(cutoff),
		osm2y.WithLogger(logger),
	}
	if *elevationDir != "" {
		options = append(options, osm2y.WithElevationDir(*elevationDir))
	}
	if *geojsonOut != "" {
		options = append(options, osm2y.WithGeoJSONOutput(*geojsonOut))
	}

	dbCfg := osm2y.LoadDatabaseConfig()
	if dbCfg.Configured() {
		db, err := osm2y.ConnectStore(dbCfg, logger)
		if err != nil {
			logger.Error("can't connect to junction store", zap.Error(err))
			os.Exit(1)
		}
		defer db.Close()
		options = append(options, osm2y.WithStore(db))
	} else if *geojsonOut == "" {
		logger.Error("no DB_* settings found and no -geojson-out given, nothing to do with results")
		os.Exit(1)
	} else {
		logger.Warn("no DB_* settings found, running without persistence")
	}

	pipeline := osm2y.NewPipeline(*osmFileName, options...)
	if _, err := pipeline.Run(context.Background()); err != nil {
		logger.Error("import failed",
			zap.String("stage", pipeline.State().String()),
			zap.Error(err),
		)
		os.Exit(1)
	}
}
