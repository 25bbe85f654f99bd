package config

import (
	"errors"
	"io/fs"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/xilidan/automator/services/automator/entity"
)

const (
	SchemaV1 = "v1"
	SchemaV2 = "v2"
)

type Config struct {
	Port    int           `env:"PORT" env-default:"8080" yaml:"port"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Watch   WatchConfig   `yaml:"watch"`
}

type BackendConfig struct {
	BaseURL        string        `env:"API_BASE" yaml:"api_base"`
	Schema         string        `env:"API_SCHEMA" env-default:"v2" yaml:"schema"`
	Timeout        time.Duration `env:"API_TIMEOUT" env-default:"60s" yaml:"timeout"`
	AllowedFormats []string      `env:"ALLOWED_FORMATS" env-default:"wav" env-separator:"," yaml:"allowed_formats"`
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info" yaml:"level"`
	JSON  bool   `env:"LOG_JSON" env-default:"false" yaml:"json"`
	File  string `env:"LOG_FILE" yaml:"file"`
}

type WatchConfig struct {
	Input  string `env:"WATCH_INPUT" env-default:"data/input" yaml:"input"`
	Output string `env:"WATCH_OUTPUT" env-default:"data/output" yaml:"output"`
}

// Load reads the configuration from path (yaml, json, toml or .env) when given,
// then from the environment, and validates it. A missing backend address yields
// an *entity.ConfigurationError.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv populates the environment from the given .env files, skipping files
// that do not exist. Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return &entity.ConfigurationError{Field: "API_BASE", Msg: entity.MsgNotSet}
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &entity.ConfigurationError{Field: "API_BASE", Msg: "must be an absolute http(s) URL"}
	}
	if c.Backend.Schema != SchemaV1 && c.Backend.Schema != SchemaV2 {
		return &entity.ConfigurationError{Field: "API_SCHEMA", Msg: "must be v1 or v2"}
	}
	if c.Backend.Timeout <= 0 {
		return &entity.ConfigurationError{Field: "API_TIMEOUT", Msg: "must be positive"}
	}
	if len(c.Backend.AllowedFormats) == 0 {
		c.Backend.AllowedFormats = []string{"wav"}
	}
	return nil
}
