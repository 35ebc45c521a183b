package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/healthcampaign/project-factory/internal/bulk"
	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/db"
	"github.com/healthcampaign/project-factory/internal/domain"
	"github.com/healthcampaign/project-factory/internal/events"
	"github.com/healthcampaign/project-factory/internal/mapping"
	"github.com/healthcampaign/project-factory/internal/resource"
	"github.com/healthcampaign/project-factory/internal/schema"
	"github.com/healthcampaign/project-factory/internal/validation"
)

// EnvPrefix prefixes every environment override, e.g. PF_DATABASE_HOST.
const EnvPrefix = "PF"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     db.Config          `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Hosts        HostsConfig        `mapstructure:"hosts"`
	Endpoints    client.Endpoints   `mapstructure:"endpoints"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Localization LocalizationConfig `mapstructure:"localization"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// RedisConfig selects the shared cache. An empty URL keeps the cache in process.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// KafkaConfig selects the event broker. No brokers keeps events in process.
type KafkaConfig struct {
	Brokers []string      `mapstructure:"brokers"`
	Topics  events.Topics `mapstructure:"topics"`
}

// HostsConfig points at the gateway fronting every downstream service.
type HostsConfig struct {
	Gateway string        `mapstructure:"gateway"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	EmitDelay      time.Duration `mapstructure:"emit_delay"`
	PollAttempts   int           `mapstructure:"poll_attempts"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	UserCheckBatch int           `mapstructure:"user_check_batch"`
	SchemaCode     string        `mapstructure:"schema_code"`

	// MatchStrategies overrides the creation match per resource type,
	// e.g. facility: window.
	MatchStrategies map[string]string `mapstructure:"match_strategies"`
}

// ApplyMatchStrategies sets the configured match strategy on r. Keys match
// resource types case-insensitively since viper lowercases map keys.
func (p PipelineConfig) ApplyMatchStrategies(r *resource.Registry) error {
	keys := make([]string, 0, len(p.MatchStrategies))
	for k := range p.MatchStrategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var target domain.ResourceType
		for _, t := range r.Types() {
			if strings.EqualFold(string(t), key) {
				target = t
				break
			}
		}
		if target == "" {
			return fmt.Errorf("pipeline.match_strategies: unknown resource type %q", key)
		}
		strategy := resource.MatchStrategy(strings.ToLower(strings.TrimSpace(p.MatchStrategies[key])))
		if err := r.SetMatch(target, strategy); err != nil {
			return fmt.Errorf("pipeline.match_strategies.%s: %w", key, err)
		}
	}
	return nil
}

type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type LocalizationConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Database: db.DefaultConfig(),
		Redis:    RedisConfig{Prefix: "project-factory:"},
		Kafka:    KafkaConfig{Topics: events.DefaultTopics()},
		Hosts: HostsConfig{
			Gateway: "http://localhost:8088",
			Timeout: 60 * time.Second,
		},
		Endpoints: client.DefaultEndpoints(),
		Pipeline: PipelineConfig{
			RetryAttempts:  bulk.DefaultRetryPolicy.MaxAttempts,
			RetryDelay:     bulk.DefaultRetryPolicy.Delay,
			SettleDelay:    bulk.DefaultSettleDelay,
			EmitDelay:      events.DefaultActivityDelay,
			PollAttempts:   mapping.DefaultPollAttempts,
			PollInterval:   mapping.DefaultPollInterval,
			UserCheckBatch: validation.DefaultUserCheckBatch,
			SchemaCode:     schema.DefaultSchemaCode,
		},
		Cache: CacheConfig{TTL: cache.DefaultTTL},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads config.yaml from configPath when present and applies PF_*
// environment overrides on top of Default.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default so AutomaticEnv can see it during Unmarshal
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", cfg.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.name", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)

	v.SetDefault("redis.url", cfg.Redis.URL)
	v.SetDefault("redis.prefix", cfg.Redis.Prefix)

	v.SetDefault("kafka.brokers", cfg.Kafka.Brokers)
	v.SetDefault("kafka.topics.save_resource_details", cfg.Kafka.Topics.SaveResourceDetails)
	v.SetDefault("kafka.topics.update_resource_details", cfg.Kafka.Topics.UpdateResourceDetails)
	v.SetDefault("kafka.topics.create_resource_activity", cfg.Kafka.Topics.CreateResourceActivity)
	v.SetDefault("kafka.topics.update_project_campaign", cfg.Kafka.Topics.UpdateProjectCampaign)
	v.SetDefault("kafka.topics.save_process_track", cfg.Kafka.Topics.SaveProcessTrack)
	v.SetDefault("kafka.topics.update_process_track", cfg.Kafka.Topics.UpdateProcessTrack)

	v.SetDefault("hosts.gateway", cfg.Hosts.Gateway)
	v.SetDefault("hosts.timeout", cfg.Hosts.Timeout)

	v.SetDefault("pipeline.retry_attempts", cfg.Pipeline.RetryAttempts)
	v.SetDefault("pipeline.retry_delay", cfg.Pipeline.RetryDelay)
	v.SetDefault("pipeline.settle_delay", cfg.Pipeline.SettleDelay)
	v.SetDefault("pipeline.emit_delay", cfg.Pipeline.EmitDelay)
	v.SetDefault("pipeline.poll_attempts", cfg.Pipeline.PollAttempts)
	v.SetDefault("pipeline.poll_interval", cfg.Pipeline.PollInterval)
	v.SetDefault("pipeline.user_check_batch", cfg.Pipeline.UserCheckBatch)
	v.SetDefault("pipeline.schema_code", cfg.Pipeline.SchemaCode)

	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.size", cfg.Cache.Size)
	v.SetDefault("localization.path", cfg.Localization.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}
