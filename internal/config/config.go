// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// ErrMissingAPIKey is returned when no Gemini API key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local" env-description:"local, dev or prod"`
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":5000" env-description:"listen address"`

	Gemini struct {
		APIKey          string        `yaml:"api_key" env:"GEMINI_API_KEY" env-description:"Gemini API key (required)"`
		Model           string        `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.5-flash-image"`
		GenerateTimeout time.Duration `yaml:"generate_timeout" env:"GENERATE_TIMEOUT" env-default:"180s"`
		SafetyThreshold string        `yaml:"safety_threshold" env:"GEMINI_SAFETY_THRESHOLD" env-description:"harm block threshold for all categories, empty for API defaults"`
	} `yaml:"gemini"`

	MinRequestInterval time.Duration `yaml:"min_request_interval" env:"MIN_REQUEST_INTERVAL" env-default:"3s" env-description:"global cooldown between generations"`

	FieldLibraryPath string `yaml:"field_library_path" env:"FIELD_LIBRARY_PATH" env-default:"field_library.json"`
	PresetsDBPath    string `yaml:"presets_db_path" env:"PRESETS_DB_PATH" env-default:"presets_db.json"`

	Store struct {
		MaxImages       int           `yaml:"max_images" env:"IMAGE_STORE_MAX_IMAGES" env-default:"500"`
		MaxImageAge     time.Duration `yaml:"max_image_age" env:"IMAGE_STORE_MAX_AGE" env-default:"24h"`
		MaxSessions     int           `yaml:"max_sessions" env:"SESSION_MAX_SESSIONS" env-default:"1000"`
		MaxSessionAge   time.Duration `yaml:"max_session_age" env:"SESSION_MAX_AGE" env-default:"24h"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" env:"STORE_CLEANUP_INTERVAL" env-default:"10m"`
	} `yaml:"store"`

	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"PRESETS_MONGO_ENABLED" env-default:"false"`
		URI      string `yaml:"uri" env:"PRESETS_MONGO_URI" env-default:"mongodb://127.0.0.1:27017"`
		Database string `yaml:"database" env:"PRESETS_MONGO_DATABASE" env-default:"imagestudio"`
	} `yaml:"mongo"`
}

// Load reads the configuration. An empty path reads the environment only.
// A .env file in the working directory is applied first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("config: %w; %s", err, desc)
	}

	cfg.Gemini.APIKey = strings.TrimSpace(cfg.Gemini.APIKey)
	if cfg.Gemini.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.MinRequestInterval <= 0 {
		cfg.MinRequestInterval = 3 * time.Second
	}

	return cfg, nil
}

// MustLoad is Load that exits the process on failure.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
