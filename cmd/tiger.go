package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/pn-weights/internal/config"
	"github.com/sells-group/pn-weights/internal/pipeline"
)

var tigerCmd = &cobra.Command{
	Use:   "tiger",
	Short: "Download the TIGER/Line block shapefile for the configured state",
	Long: `Downloads and extracts the per-state TIGER/Line block shapefile into the
temp directory and prints the path of the extracted .shp, for use as
geometry.blocks_path in later runs. An already downloaded archive is reused.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(config.ModeTiger); err != nil {
			return err
		}
		opts := pipeline.Options{
			Jurisdiction: cfg.FIPS(),
			TigerYear:    cfg.Geometry.TigerYear,
			TigerBaseURL: cfg.Geometry.TigerBaseURL,
			TempDir:      cfg.Geometry.TempDir,
		}
		path, err := pipeline.New(newFetcher(cfg), "").DownloadBlocks(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "tiger")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	tigerCmd.Flags().Int("year", 0, "TIGER/Line vintage (overrides geometry.tiger_year)")
	tigerCmd.Flags().String("temp-dir", "", "download directory (overrides geometry.temp_dir)")
	rootCmd.AddCommand(tigerCmd)
}
