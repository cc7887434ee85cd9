// Package config loads tracker configuration from a YAML file with
// environment overrides. API keys are environment-only and never written to
// the config file; a .env file is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete tracker configuration.
type Config struct {
	DataDir     string         `yaml:"data_dir"`
	RedisAddr   string         `yaml:"redis_addr"`
	PostgresDSN string         `yaml:"postgres_dsn"`
	HTTP        HTTPConfig     `yaml:"http"`
	Sources     SourcesConfig  `yaml:"sources"`
	RateLimit   RateConfig     `yaml:"rate_limit"`
	Analysis    AnalysisConfig `yaml:"analysis"`
	Mock        MockConfig     `yaml:"mock"`
	Jobs        []JobConfig    `yaml:"jobs"`
}

// HTTPConfig holds the read-only API server settings.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SourcesConfig selects and parameterizes the upstream price sources.
type SourcesConfig struct {
	// Mode is "auto" (try Preferred in order), "mock", or a single source
	// name to pin.
	Mode      string   `yaml:"mode"`
	Preferred []string `yaml:"preferred"`

	Elexon   ElexonConfig   `yaml:"elexon"`
	ENTSOE   ENTSOEConfig   `yaml:"entsoe"`
	EIA      EIAConfig      `yaml:"eia"`
	NordPool NordPoolConfig `yaml:"nordpool"`
}

// ElexonConfig parameterizes the Elexon Insights API client.
type ElexonConfig struct {
	BaseURL       string `yaml:"base_url"`
	DayAheadPath  string `yaml:"day_ahead_path"`
	AvgPricesPath string `yaml:"avg_prices_path"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// ENTSOEConfig parameterizes the ENTSO-E transparency platform source.
type ENTSOEConfig struct {
	APIURL      string `yaml:"api_url"`
	DocType     string `yaml:"doc_type"`
	ProcessType string `yaml:"process_type"`
	InDomain    string `yaml:"in_domain"`
	OutDomain   string `yaml:"out_domain"`
}

// EIAConfig parameterizes the EIA series source.
type EIAConfig struct {
	APIURL    string  `yaml:"api_url"`
	SeriesID  string  `yaml:"series_id"`
	USDToEUR  float64 `yaml:"usd_to_eur"`
}

// NordPoolConfig parameterizes the Nord Pool market-data source.
type NordPoolConfig struct {
	APIURL   string `yaml:"api_url"`
	Currency string `yaml:"currency"`
	Area     string `yaml:"area"`
}

// RateConfig is the default per-source token bucket.
type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AnalysisConfig holds analytics parameters.
type AnalysisConfig struct {
	VolatilityWindow int     `yaml:"volatility_window"`
	AnomalyZScore    float64 `yaml:"anomaly_zscore"`
	PeakHourStart    int     `yaml:"peak_hour_start"`
	PeakHourEnd      int     `yaml:"peak_hour_end"`
}

// MockConfig bounds the mock price generator.
type MockConfig struct {
	PriceMin float64 `yaml:"price_min"`
	PriceMax float64 `yaml:"price_max"`
}

// JobConfig is one scheduled pull.
type JobConfig struct {
	Name     string            `yaml:"name"`
	Schedule string            `yaml:"schedule"` // cron format
	Endpoint string            `yaml:"endpoint"` // elexon endpoint key
	Params   map[string]string `yaml:"params"`
	Enabled  bool              `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "data/raw",
		HTTP:    HTTPConfig{Host: "127.0.0.1", Port: 8080},
		Sources: SourcesConfig{
			Mode:      "auto",
			Preferred: []string{"entsoe", "elexon", "eia", "nordpool"},
			Elexon: ElexonConfig{
				BaseURL:       "https://data.elexon.co.uk/bmrs/api/v1",
				DayAheadPath:  "/datasets/DayAheadAuction/stream",
				AvgPricesPath: "/balancing/system-prices/average",
				TimeoutSecs:   30,
			},
			ENTSOE: ENTSOEConfig{
				APIURL:      "https://transparency.entsoe.eu/api",
				DocType:     "A44",
				ProcessType: "A01",
				InDomain:    "10YGB----------A",
				OutDomain:   "10YGB----------A",
			},
			EIA: EIAConfig{
				APIURL:   "https://api.eia.gov/series/",
				SeriesID: "EBA.PJM-ALL.DF.H",
				USDToEUR: 0.92,
			},
			NordPool: NordPoolConfig{
				APIURL:   "https://www.nordpoolgroup.com/api/marketdata/page/10",
				Currency: "EUR",
				Area:     "Oslo",
			},
		},
		RateLimit: RateConfig{RPS: 5, Burst: 10},
		Analysis: AnalysisConfig{
			VolatilityWindow: 24,
			AnomalyZScore:    2.5,
			PeakHourStart:    8,
			PeakHourEnd:      20,
		},
		Mock: MockConfig{PriceMin: 30, PriceMax: 70},
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates. An empty path yields the defaults (still env-overridable).
func Load(path string) (*Config, error) {
	// Missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Sources.Mode = v
	}
	if v := os.Getenv("ELEXON_BASE_URL"); v != "" {
		c.Sources.Elexon.BaseURL = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = p
		}
	}
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit requires positive rps and burst")
	}
	if c.Analysis.VolatilityWindow < 1 {
		return fmt.Errorf("analysis.volatility_window must be positive")
	}
	if c.Analysis.AnomalyZScore <= 0 {
		return fmt.Errorf("analysis.anomaly_zscore must be positive")
	}
	if c.Analysis.PeakHourStart < 0 || c.Analysis.PeakHourEnd > 24 ||
		c.Analysis.PeakHourStart >= c.Analysis.PeakHourEnd {
		return fmt.Errorf("analysis peak hours [%d,%d) invalid", c.Analysis.PeakHourStart, c.Analysis.PeakHourEnd)
	}
	if c.Mock.PriceMin >= c.Mock.PriceMax {
		return fmt.Errorf("mock.price_min must be below mock.price_max")
	}
	known := map[string]struct{}{"entsoe": {}, "elexon": {}, "eia": {}, "nordpool": {}}
	for _, s := range c.Sources.Preferred {
		if _, ok := known[s]; !ok {
			return fmt.Errorf("unknown source %q in sources.preferred", s)
		}
	}
	for _, j := range c.Jobs {
		if j.Name == "" || j.Schedule == "" || j.Endpoint == "" {
			return fmt.Errorf("job entries need name, schedule and endpoint")
		}
	}
	return nil
}

// APIKey reads a source API key from the environment.
func APIKey(source string) string {
	switch source {
	case "elexon":
		return os.Getenv("ELEXON_API_KEY")
	case "entsoe":
		return os.Getenv("ENTSOE_API_KEY")
	case "eia":
		return os.Getenv("EIA_API_KEY")
	case "nordpool":
		return os.Getenv("NORD_POOL_API_KEY")
	}
	return ""
}
