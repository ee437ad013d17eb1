package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Embedding EmbeddingConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins string
	HSTS           bool
}

type DataConfig struct {
	ScoresPath    string
	DirectoryPath string
	BubbleSize    float64
	FontSize      float64
}

type EmbeddingConfig struct {
	// InitialSeed seeds the startup embedding; a negative value draws a random seed.
	InitialSeed int64
	NInit       int
	MaxIter     int
	Eps         float64
}

type SQLiteConfig struct {
	Enabled bool
	Path    string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads config.yaml from the usual search paths, or from path when it is
// non-empty, then applies AREAMAP_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/areamap")
	}

	v.SetEnvPrefix("AREAMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.bodyLimit", 4194304)
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.hsts", false)

	v.SetDefault("data.scoresPath", "./data/area2category_score_campus.csv")
	v.SetDefault("data.directoryPath", "./data/area2pi2url.csv")
	v.SetDefault("data.bubbleSize", 60)
	v.SetDefault("data.fontSize", 8)

	v.SetDefault("embedding.initialSeed", 2971)
	v.SetDefault("embedding.nInit", 4)
	v.SetDefault("embedding.maxIter", 300)
	v.SetDefault("embedding.eps", 1e-3)

	v.SetDefault("sqlite.enabled", true)
	v.SetDefault("sqlite.path", "./data/areamap.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 86400)

	v.SetDefault("ratelimit.maxRequestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
