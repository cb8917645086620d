package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Scan   ScanConfig   `yaml:"scan" mapstructure:"scan"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Score  ScoreConfig  `yaml:"score" mapstructure:"score"`
	Tags   TagsConfig   `yaml:"tags" mapstructure:"tags"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ScanConfig configures scan job orchestration.
type ScanConfig struct {
	// MaxConcurrentSources bounds the fan-out across source adapters.
	MaxConcurrentSources int `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
	// FetchTimeoutSecs is the overall deadline for the fetch phase of a job.
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	// MaxPerSource is the default per-source record cap when a request omits one.
	MaxPerSource int `yaml:"max_per_source" mapstructure:"max_per_source"`
	// SinceMonths is the default recency cutoff hint.
	SinceMonths int `yaml:"since_months" mapstructure:"since_months"`
}

// FetchConfig configures the outbound HTTP client used by adapters and the
// website enricher.
type FetchConfig struct {
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	PerHostRPS    float64 `yaml:"per_host_rps" mapstructure:"per_host_rps"`
	MaxBodyBytes  int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool    `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// EnrichConfig configures the website enrichment pass.
type EnrichConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxLeads caps how many leads a single job enriches, highest score first.
	MaxLeads int `yaml:"max_leads" mapstructure:"max_leads"`
	// FollowContactPage enables the single-hop contact page fetch.
	FollowContactPage bool `yaml:"follow_contact_page" mapstructure:"follow_contact_page"`
}

// ScoreConfig holds scoring weights and band thresholds. Operators retune
// these without touching the algorithm.
type ScoreConfig struct {
	// BaseScore is the floor every lead starts from.
	BaseScore int `yaml:"base_score" mapstructure:"base_score"`
	// SignalWeight scales the strongest source-signal contribution.
	SignalWeight int `yaml:"signal_weight" mapstructure:"signal_weight"`
	// TagWeights maps canonical tags to score increments.
	TagWeights map[string]int `yaml:"tag_weights" mapstructure:"tag_weights"`
	// ContactBonus is added when the lead has an email or phone.
	ContactBonus int `yaml:"contact_bonus" mapstructure:"contact_bonus"`
	// GenericCeiling caps leads with no recognized tag.
	GenericCeiling int `yaml:"generic_ceiling" mapstructure:"generic_ceiling"`
	// HotThreshold and WarmThreshold derive the priority band.
	HotThreshold  int `yaml:"hot_threshold" mapstructure:"hot_threshold"`
	WarmThreshold int `yaml:"warm_threshold" mapstructure:"warm_threshold"`
	// RecencyHalfLifeDays controls the confidence decay.
	RecencyHalfLifeDays int `yaml:"recency_half_life_days" mapstructure:"recency_half_life_days"`
}

// TagsConfig holds the tag vocabulary: canonical tag -> match synonyms.
// Matching is case-insensitive substring; synonyms cover spelling variants.
type TagsConfig struct {
	Vocabulary map[string][]string `yaml:"vocabulary" mapstructure:"vocabulary"`
	// FieldbusImplies are tags implied by generic fieldbus phrasing.
	FieldbusImplies []string `yaml:"fieldbus_implies" mapstructure:"fieldbus_implies"`
	// MotionImplies are tags implied by motion-control/PLC phrasing.
	MotionImplies []string `yaml:"motion_implies" mapstructure:"motion_implies"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultTagVocabulary is the built-in protocol/vendor tag map. Keys are the
// canonical tags persisted on leads; values are matched case-insensitively.
func DefaultTagVocabulary() map[string][]string {
	return map[string][]string{
		"EtherCAT":    {"ethercat", "ether cat"},
		"PROFINET":    {"profinet"},
		"EtherNet_IP": {"ethernet/ip", "ethernet ip", "ethernetip", "enip", "eip"},
		"ROS2":        {"ros2", "ros 2"},
		"UR":          {"universal robots", "ur+", "ur robot"},
		"TwinCAT":     {"twincat"},
		"TIA":         {"tia portal"},
		"Studio5000":  {"studio 5000", "studio5000"},
		"AMR":         {"autonomous mobile robot", "amr fleet"},
		"Safety":      {"functional safety", "safety plc", "iec 61508"},
		"Vision":      {"machine vision", "vision system"},
	}
}

// DefaultTagWeights returns the built-in scoring increments per tag.
// Protocol tags weigh more than generic mechatronics tags.
func DefaultTagWeights() map[string]int {
	return map[string]int{
		"EtherCAT":    25,
		"PROFINET":    20,
		"EtherNet_IP": 18,
		"ROS2":        12,
		"UR":          10,
		"TwinCAT":     8,
		"TIA":         8,
		"Studio5000":  8,
		"AMR":         6,
		"Safety":      5,
		"Vision":      5,
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADRADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadradar.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 5050)
	v.SetDefault("scan.max_concurrent_sources", 4)
	v.SetDefault("scan.fetch_timeout_secs", 300)
	v.SetDefault("scan.max_per_source", 2000)
	v.SetDefault("scan.since_months", 18)
	v.SetDefault("fetch.user_agent", "LeadRadar/1.0 (+https://github.com/reson-group/lead-radar)")
	v.SetDefault("fetch.timeout_secs", 12)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.per_host_rps", 0.5)
	v.SetDefault("fetch.max_body_bytes", 2*1024*1024)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.max_leads", 200)
	v.SetDefault("enrich.follow_contact_page", true)
	v.SetDefault("score.base_score", 0)
	v.SetDefault("score.signal_weight", 40)
	v.SetDefault("score.tag_weights", DefaultTagWeights())
	v.SetDefault("score.contact_bonus", 10)
	v.SetDefault("score.generic_ceiling", 30)
	v.SetDefault("score.hot_threshold", 70)
	v.SetDefault("score.warm_threshold", 45)
	v.SetDefault("score.recency_half_life_days", 180)
	v.SetDefault("tags.vocabulary", DefaultTagVocabulary())
	v.SetDefault("tags.fieldbus_implies", []string{"PROFINET", "EtherNet_IP"})
	v.SetDefault("tags.motion_implies", []string{"TwinCAT", "TIA", "Studio5000"})

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
