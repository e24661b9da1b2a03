package main

import "github.com/spf13/pflag"

// addGeometryFlags registers the dataset and filter flags shared by the
// weights and blocks commands.
func addGeometryFlags(fs *pflag.FlagSet) {
	fs.String("pn", "", "PN boundary dataset: shapefile, ZIP or GeoJSON (overrides geometry.pn_path)")
	fs.String("blocks", "", "block dataset; empty downloads TIGER/Line (overrides geometry.blocks_path)")
	fs.Int("year", 0, "TIGER/Line vintage (overrides geometry.tiger_year)")
	fs.String("temp-dir", "", "download and extraction directory (overrides geometry.temp_dir)")
	fs.Float64("threshold", 0, "minimum share of a block inside the PN (overrides filter.threshold)")
	fs.String("area-crs", "", "equal-area CRS for measuring areas (overrides filter.area_crs)")
}
