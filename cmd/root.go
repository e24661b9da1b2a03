package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pn-weights/internal/config"
	"github.com/sells-group/pn-weights/internal/fetcher"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pn-weights",
	Short: "Promise Neighborhood apportionment weights",
	Long: `Selects the census blocks that lie mostly inside a Promise Neighborhood and
computes, per census tract, the share of its population (or households) that
lives inside the neighborhood.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := applyFlags(cmd, c); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("state", "", "state FIPS code (overrides jurisdiction.state)")
	pf.String("county", "", "county FIPS code (overrides jurisdiction.county)")
	pf.String("log-level", "", "log level (overrides log.level)")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	strs := map[string]*string{
		"state":      &c.Jurisdiction.State,
		"county":     &c.Jurisdiction.County,
		"log-level":  &c.Log.Level,
		"pn":         &c.Geometry.PNPath,
		"blocks":     &c.Geometry.BlocksPath,
		"area-crs":   &c.Filter.AreaCRS,
		"profile":    &c.Census.Profile,
		"format":     &c.Output.Format,
		"out":        &c.Output.Path,
		"output-url": &c.Output.DatabaseURL,
		"temp-dir":   &c.Geometry.TempDir,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}
	if flags.Changed("threshold") {
		v, err := flags.GetFloat64("threshold")
		if err != nil {
			return fmt.Errorf("flag --threshold: %w", err)
		}
		c.Filter.Threshold = v
	}
	if flags.Changed("year") {
		v, err := flags.GetInt("year")
		if err != nil {
			return fmt.Errorf("flag --year: %w", err)
		}
		c.Geometry.TigerYear = v
	}
	return nil
}

// newFetcher routes http(s) downloads through the rate-limited HTTP fetcher
// and ftp:// mirrors through the FTP fetcher.
func newFetcher(c *config.Config) fetcher.Fetcher {
	httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    c.Fetch.Timeout(),
		MaxRetries: c.Fetch.MaxRetries,
	})
	ftpF := fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Timeout:    c.Fetch.Timeout(),
		User:       c.Fetch.FTPUser,
		Password:   c.Fetch.FTPPassword,
		MaxRetries: c.Fetch.MaxRetries,
	})
	return fetcher.NewRouter(httpF, ftpF)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
