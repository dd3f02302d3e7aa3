package osm2y

var (
	// defaultAllowedHighwayTags Road classes participating in junction degree counting.
	// Everything else (footways, cycleways, service driveways and so on) is ignored
	defaultAllowedHighwayTags = map[string]struct{}{
		"primary":       {},
		"secondary":     {},
		"tertiary":      {},
		"residential":   {},
		"unclassified":  {},
		"living_street": {},
		"pedestrian":    {},
	}
)

// DefaultAllowedHighwayTags returns copy of the default road class allow-list
func DefaultAllowedHighwayTags() map[string]struct{} {
	tags := make(map[string]struct{}, len(defaultAllowedHighwayTags))
	for tag := range defaultAllowedHighwayTags {
		tags[tag] = struct{}{}
	}
	return tags
}

// prepareAllowedTags builds allow-list set from plain list of tag values
func prepareAllowedTags(tags []string) map[string]struct{} {
	prepared := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		prepared[tag] = struct{}{}
	}
	return prepared
}

// tagIsSet interprets OSM-ish boolean tags: any value except empty and "no" counts as set
func tagIsSet(value string) bool {
	return value != "" && value != "no"
}
