package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	FetchWorkers  int           `env:"FETCH_WORKERS" envDefault:"4"`
	FetchQueue    int           `env:"FETCH_QUEUE" envDefault:"128"`
	FetchMaxBytes int64         `env:"FETCH_MAX_BYTES" envDefault:"33554432"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	LoadTimeout   time.Duration `env:"LOAD_TIMEOUT" envDefault:"30s"`

	ResourceDir  string `env:"RESOURCE_DIR" envDefault:"./resources"`
	ManifestPath string `env:"MANIFEST_PATH"`

	DefaultFPS  int  `env:"DEFAULT_FPS" envDefault:"24"`
	DefaultLoop bool `env:"DEFAULT_LOOP" envDefault:"true"`

	MQTT MQTT `envPrefix:"MQTT_"`
}

// MQTT configures the optional MQTT event sink. It is disabled when URL is empty.
type MQTT struct {
	URL      string `env:"URL"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Topic    string `env:"TOPIC" envDefault:"image-sequence/events"`
	ClientID string `env:"CLIENT_ID" envDefault:"image-sequence"`
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Parse fills a Config from environment variables, applying defaults for
// unset values.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DefaultFPS <= 0 {
		return Config{}, fmt.Errorf("parse env: DEFAULT_FPS must be positive, got %d", cfg.DefaultFPS)
	}
	return cfg, nil
}
