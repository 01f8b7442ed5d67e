package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Clark-Hu/cinerank/internal/ranking"
)

// PathEnvVar names the optional YAML file layered between defaults and env vars.
const PathEnvVar = "CONFIG_PATH"

// Config captures all runtime configuration. Keys are the lower-cased
// environment variable names, so PORT and `port:` in YAML set the same field.
type Config struct {
	Port             string `koanf:"port"`
	AuthToken        string `koanf:"auth_token"`
	ReadTimeoutSecs  int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs  int    `koanf:"server_idle_timeout"`

	DBURL             string `koanf:"db_url"`
	DBMaxConns        int    `koanf:"db_max_conns"`
	DBMinConns        int    `koanf:"db_min_conns"`
	DBMaxIdleSecs     int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache  int    `koanf:"db_statement_cache_capacity"`

	MetadataURL             string `koanf:"metadata_url"`
	MetadataAPIKey          string `koanf:"metadata_api_key"`
	MetadataTimeoutSecs     int    `koanf:"metadata_timeout_secs"`
	MetadataBreakerFailures int    `koanf:"metadata_breaker_failures"`

	RedisURL                string `koanf:"redis_url"`
	LeaderboardCacheTTLSecs int    `koanf:"leaderboard_cache_ttl_secs"`

	VoteRateLimitPerMin int    `koanf:"vote_rate_limit_per_min"`
	CORSAllowedOrigins  string `koanf:"cors_allowed_origins"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	RankingRatingWeight    float64 `koanf:"ranking_rating_weight"`
	RankingLikeWeight      float64 `koanf:"ranking_like_weight"`
	RankingConfidencePrior float64 `koanf:"ranking_confidence_prior"`
}

// Defaults returns the configuration used before any file or env override.
func Defaults() Config {
	return Config{
		Port:                    "8080",
		ReadTimeoutSecs:         15,
		WriteTimeoutSecs:        15,
		IdleTimeoutSecs:         60,
		DBMaxConns:              20,
		DBMinConns:              2,
		DBMaxIdleSecs:           300,
		DBMaxLifeSecs:           3600,
		DBConnTimeoutSecs:       10,
		DBStatementCache:        256,
		MetadataTimeoutSecs:     5,
		MetadataBreakerFailures: 5,
		LeaderboardCacheTTLSecs: 30,
		VoteRateLimitPerMin:     60,
		CORSAllowedOrigins:      "*",
		LogLevel:                "info",
		LogFormat:               "json",
		RankingRatingWeight:     0.6,
		RankingLikeWeight:       0.4,
		RankingConfidencePrior:  5,
	}
}

// Load layers defaults, the optional CONFIG_PATH YAML file and environment
// variables, in increasing precedence, then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := knownKeys()
	if err := k.Load(env.Provider("", ".", func(key string) string {
		key = strings.ToLower(key)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting, naming its environment variable.
func (cfg Config) Validate() error {
	if cfg.AuthToken == "" {
		return fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.MetadataURL == "" {
		return fmt.Errorf("METADATA_URL is required")
	}
	if cfg.MetadataAPIKey == "" {
		return fmt.Errorf("METADATA_API_KEY is required")
	}
	if cfg.MetadataTimeoutSecs <= 0 {
		return fmt.Errorf("METADATA_TIMEOUT_SECS must be positive")
	}
	if cfg.MetadataBreakerFailures <= 0 {
		return fmt.Errorf("METADATA_BREAKER_FAILURES must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.LeaderboardCacheTTLSecs < 0 {
		return fmt.Errorf("LEADERBOARD_CACHE_TTL_SECS must be non-negative")
	}
	if cfg.VoteRateLimitPerMin < 0 {
		return fmt.Errorf("VOTE_RATE_LIMIT_PER_MIN must be non-negative")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	if err := cfg.RankingWeights().Validate(); err != nil {
		return fmt.Errorf("RANKING_* weights: %w", err)
	}
	return nil
}

// RankingWeights maps the RANKING_* settings onto the score weights.
func (cfg Config) RankingWeights() ranking.Weights {
	w := ranking.DefaultWeights()
	w.Rating = cfg.RankingRatingWeight
	w.Like = cfg.RankingLikeWeight
	w.ConfidencePrior = cfg.RankingConfidencePrior
	return w
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (cfg Config) AllowedOrigins() []string {
	parts := strings.Split(cfg.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func knownKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	defaults, _ := structs.Provider(Defaults(), "koanf").Read()
	for key := range defaults {
		keys[key] = struct{}{}
	}
	return keys
}
