package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Client    ClientConfig    `mapstructure:"client"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Responder ResponderConfig `mapstructure:"responder"`
	Language  LanguageConfig  `mapstructure:"language"`
}

// ServiceConfig locates the remote quoting service the client talks to.
// A zero Timeout means requests wait until the caller's context ends.
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClientConfig struct {
	ID string `mapstructure:"id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type StorageConfig struct {
	Type           string        `mapstructure:"type"`
	DataDir        string        `mapstructure:"data_dir"`
	CacheSize      int           `mapstructure:"cache_size"`
	BackupInterval time.Duration `mapstructure:"backup_interval"`
}

// ResponderConfig selects how the dev service writes chat replies:
// "rule" for canned replies, "openai" for any OpenAI-compatible endpoint.
type ResponderConfig struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	HistoryMessages int           `mapstructure:"history_messages"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// LanguageConfig controls how the dev service handles messages that are not
// in English. Detector is "whatlang" or "none"; Translator is "mock",
// "openai" (sharing the responder's endpoint) or "none".
type LanguageConfig struct {
	Detector   string `mapstructure:"detector"`
	MinLength  int    `mapstructure:"min_length"`
	Translator string `mapstructure:"translator"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.base_url", "http://localhost:8000")
	v.SetDefault("service.timeout", time.Duration(0))
	v.SetDefault("client.id", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 100)
	v.SetDefault("storage.backup_interval", time.Duration(0))

	v.SetDefault("responder.provider", "rule")
	v.SetDefault("responder.api_key", "")
	v.SetDefault("responder.base_url", "")
	v.SetDefault("responder.model", "gpt-4o-mini")
	v.SetDefault("responder.history_messages", 5)
	v.SetDefault("responder.timeout", 60*time.Second)

	v.SetDefault("language.detector", "whatlang")
	v.SetDefault("language.min_length", 10)
	v.SetDefault("language.translator", "mock")
}

// Load reads configPath (YAML) when it exists and layers QUOTE_* environment
// variables on top. An empty or missing path yields the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", configPath, err)
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Prefixed variables win; the unprefixed names are what existing
	// front-end and OpenAI tooling already export.
	if os.Getenv("QUOTE_SERVICE_BASE_URL") == "" {
		if apiURL := os.Getenv("API_URL"); apiURL != "" {
			loaded.Service.BaseURL = apiURL
		}
	}
	if loaded.Responder.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			loaded.Responder.APIKey = apiKey
		}
	}

	return loaded, nil
}
