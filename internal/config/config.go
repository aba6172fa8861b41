package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-target-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Email     EmailConfig     `mapstructure:"email"`
	API       APIConfig       `mapstructure:"api"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs sampling cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// FeedConfig selects and parameterises the spot price source.
type FeedConfig struct {
	Provider  string          `mapstructure:"provider"`
	Coingecko CoingeckoConfig `mapstructure:"coingecko"`
	Chainlink ChainlinkConfig `mapstructure:"chainlink"`
}

// CoingeckoConfig captures CoinGecko connectivity.
type CoingeckoConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	APIKey         string        `mapstructure:"api_key"`
}

// ChainlinkConfig covers on-chain price feed access.
type ChainlinkConfig struct {
	RPCURL         string            `mapstructure:"rpc_url"`
	Aggregators    map[string]string `mapstructure:"aggregators"`
	RequestTimeout time.Duration     `mapstructure:"request_timeout"`
}

// MonitorConfig drives the scheduled monitoring cycle.
type MonitorConfig struct {
	TrackedChains        []string      `mapstructure:"tracked_chains"`
	WatchedChains        []string      `mapstructure:"watched_chains"`
	IncreaseThresholdPct float64       `mapstructure:"increase_threshold_pct"`
	DetectionLookback    time.Duration `mapstructure:"detection_lookback"`
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
	SampleWorkers        int           `mapstructure:"sample_workers"`
	OpsEmail             string        `mapstructure:"ops_email"`
}

// SwapConfig parameterises the cross-asset quote.
type SwapConfig struct {
	FeeRate     float64 `mapstructure:"fee_rate"`
	SourceChain string  `mapstructure:"source_chain"`
	TargetChain string  `mapstructure:"target_chain"`
}

// EmailConfig holds SMTP credentials for outbound notifications.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// APIConfig governs the embedded HTTP API.
type APIConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x70726357))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("feed.provider", "coingecko")
	v.SetDefault("feed.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("feed.coingecko.request_timeout", "10s")
	v.SetDefault("feed.coingecko.user_agent", "pricewatcher/1.0")
	v.SetDefault("feed.chainlink.request_timeout", "10s")

	v.SetDefault("monitor.tracked_chains", []string{"ethereum", "polygon"})
	v.SetDefault("monitor.watched_chains", []string{"ethereum", "polygon", "bitcoin", "solana"})
	v.SetDefault("monitor.increase_threshold_pct", 3.0)
	v.SetDefault("monitor.detection_lookback", "24h")
	v.SetDefault("monitor.call_timeout", "10s")
	v.SetDefault("monitor.sample_workers", 4)

	v.SetDefault("swap.fee_rate", 0.03)
	v.SetDefault("swap.source_chain", "ethereum")
	v.SetDefault("swap.target_chain", "bitcoin")

	v.SetDefault("email.port", 587)

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.shutdown_timeout", "10s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// normalize lower-cases chain identifiers wherever they appear.
func (c *Config) normalize() {
	c.Monitor.TrackedChains = lowerAll(c.Monitor.TrackedChains)
	c.Monitor.WatchedChains = lowerAll(c.Monitor.WatchedChains)
	c.Swap.SourceChain = strings.ToLower(c.Swap.SourceChain)
	c.Swap.TargetChain = strings.ToLower(c.Swap.TargetChain)

	if len(c.Feed.Chainlink.Aggregators) > 0 {
		lowered := make(map[string]string, len(c.Feed.Chainlink.Aggregators))
		for chain, addr := range c.Feed.Chainlink.Aggregators {
			lowered[strings.ToLower(chain)] = addr
		}
		c.Feed.Chainlink.Aggregators = lowered
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Monitor.IncreaseThresholdPct < 0 {
		return fmt.Errorf("monitor.increase_threshold_pct cannot be negative")
	}
	if c.Monitor.DetectionLookback < time.Hour {
		return fmt.Errorf("monitor.detection_lookback must cover at least one hour")
	}
	if c.Monitor.CallTimeout <= 0 {
		return fmt.Errorf("monitor.call_timeout must be greater than zero")
	}
	if c.Monitor.SampleWorkers <= 0 {
		return fmt.Errorf("monitor.sample_workers must be greater than zero")
	}
	if c.Swap.FeeRate < 0 || c.Swap.FeeRate >= 1 {
		return fmt.Errorf("swap.fee_rate must be in [0, 1)")
	}
	if c.Swap.SourceChain == "" || c.Swap.TargetChain == "" {
		return fmt.Errorf("swap.source_chain and swap.target_chain are required")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	switch c.Feed.Provider {
	case "coingecko":
	case "chainlink":
		if c.Feed.Chainlink.RPCURL == "" {
			return fmt.Errorf("feed.chainlink.rpc_url is required for the chainlink provider")
		}
		if len(c.Feed.Chainlink.Aggregators) == 0 {
			return fmt.Errorf("feed.chainlink.aggregators must map at least one chain")
		}
	default:
		return fmt.Errorf("feed.provider must be coingecko or chainlink, got %q", c.Feed.Provider)
	}
	if c.Email.Host != "" && c.Email.From == "" {
		return fmt.Errorf("email.from is required when email.host is set")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
