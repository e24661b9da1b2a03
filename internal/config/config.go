package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/pn-weights/internal/model"
	"github.com/sells-group/pn-weights/internal/projection"
)

// Config holds the full application configuration.
type Config struct {
	Jurisdiction JurisdictionConfig `yaml:"jurisdiction" mapstructure:"jurisdiction"`
	Geometry     GeometryConfig     `yaml:"geometry" mapstructure:"geometry"`
	Filter       FilterConfig       `yaml:"filter" mapstructure:"filter"`
	Census       CensusConfig       `yaml:"census" mapstructure:"census"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// JurisdictionConfig is the state and county a run covers.
type JurisdictionConfig struct {
	State  string `yaml:"state" mapstructure:"state"`
	County string `yaml:"county" mapstructure:"county"`
}

// GeometryConfig locates the block and PN datasets.
type GeometryConfig struct {
	BlocksPath   string `yaml:"blocks_path" mapstructure:"blocks_path"` // empty = download TIGER/Line
	PNPath       string `yaml:"pn_path" mapstructure:"pn_path"`
	BlocksCRS    string `yaml:"blocks_crs" mapstructure:"blocks_crs"` // used when the dataset declares none
	PNCRS        string `yaml:"pn_crs" mapstructure:"pn_crs"`
	TigerYear    int    `yaml:"tiger_year" mapstructure:"tiger_year"`
	TigerBaseURL string `yaml:"tiger_base_url" mapstructure:"tiger_base_url"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FilterConfig configures the spatial filter.
type FilterConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	AreaCRS   string  `yaml:"area_crs" mapstructure:"area_crs"`
}

// CensusConfig selects the demographic dataset.
type CensusConfig struct {
	Profile string `yaml:"profile" mapstructure:"profile"` // built-in name or YAML path
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// FetchConfig configures HTTP and FTP downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// Timeout returns TimeoutSecs as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OutputConfig selects the result sink.
type OutputConfig struct {
	Format      string `yaml:"format" mapstructure:"format"` // csv, xlsx, sqlite, postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	NaNValue    string `yaml:"nan_value" mapstructure:"nan_value"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FIPS returns the configured state and county.
func (c *Config) FIPS() model.Jurisdiction {
	return model.Jurisdiction{State: c.Jurisdiction.State, County: c.Jurisdiction.County}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PNWEIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("jurisdiction.state", "42")
	v.SetDefault("jurisdiction.county", "101")
	v.SetDefault("geometry.blocks_path", "")
	v.SetDefault("geometry.pn_path", "")
	v.SetDefault("geometry.blocks_crs", "")
	v.SetDefault("geometry.pn_crs", "")
	v.SetDefault("geometry.tiger_year", 2020)
	v.SetDefault("geometry.tiger_base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("geometry.temp_dir", "/tmp/pn-weights")
	v.SetDefault("filter.threshold", 0.5)
	v.SetDefault("filter.area_crs", "EPSG:5070")
	v.SetDefault("census.profile", "population")
	v.SetDefault("census.api_key", "")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "pn-weights/1.0")
	v.SetDefault("fetch.ftp_user", "anonymous")
	v.SetDefault("fetch.ftp_password", "anonymous")
	v.SetDefault("output.format", "csv")
	v.SetDefault("output.path", "pn_weights.csv")
	v.SetDefault("output.database_url", "")
	v.SetDefault("output.nan_value", "NaN")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes, one per command.
const (
	ModeWeights = "weights"
	ModeBlocks  = "blocks"
	ModeTiger   = "tiger"
)

var outputFormats = []string{"csv", "xlsx", "sqlite", "postgres"}

// Validate checks the settings the given command needs.
func (c *Config) Validate(mode string) error {
	if err := c.FIPS().Validate(); err != nil {
		return eris.Wrap(err, "config: jurisdiction")
	}

	switch mode {
	case ModeWeights, ModeBlocks:
		if c.Geometry.PNPath == "" {
			return eris.New("config: geometry.pn_path is required")
		}
		if c.Filter.Threshold <= 0 || c.Filter.Threshold > 1 {
			return eris.Errorf("config: filter.threshold %v must be in (0, 1]", c.Filter.Threshold)
		}
		if _, err := projection.Parse(c.Filter.AreaCRS); err != nil {
			return eris.Wrap(err, "config: filter.area_crs")
		}
		for key, crs := range map[string]string{"geometry.blocks_crs": c.Geometry.BlocksCRS, "geometry.pn_crs": c.Geometry.PNCRS} {
			if crs == "" {
				continue
			}
			if _, err := projection.Parse(crs); err != nil {
				return eris.Wrapf(err, "config: %s", key)
			}
		}
		if c.Geometry.BlocksPath == "" && c.Geometry.TigerYear < 2010 {
			return eris.Errorf("config: geometry.tiger_year %d has no block product", c.Geometry.TigerYear)
		}
	case ModeTiger:
		if c.Geometry.TigerYear < 2010 {
			return eris.Errorf("config: geometry.tiger_year %d has no block product", c.Geometry.TigerYear)
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == ModeWeights {
		if c.Census.Profile == "" {
			return eris.New("config: census.profile is required")
		}
		format := strings.ToLower(c.Output.Format)
		if !slices.Contains(outputFormats, format) {
			return eris.Errorf("config: output.format %q must be one of %s", c.Output.Format, strings.Join(outputFormats, ", "))
		}
		if format == "postgres" {
			if c.Output.DatabaseURL == "" {
				return eris.New("config: output.database_url is required for postgres output")
			}
		} else if c.Output.Path == "" {
			return eris.Errorf("config: output.path is required for %s output", format)
		}
	}

	if c.Fetch.TimeoutSecs < 0 || c.Fetch.MaxRetries < 0 {
		return eris.New("config: fetch.timeout_secs and fetch.max_retries must not be negative")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
