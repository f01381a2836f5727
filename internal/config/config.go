package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SOCIALGRAPH_STORAGE_BACKEND.
const EnvPrefix = "SOCIALGRAPH"

// Config holds all application configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

type StorageConfig struct {
	// Backend is jsonfile, badger or neo4j.
	Backend string `mapstructure:"backend"`
	// Path is the JSON document for jsonfile or the directory for badger.
	Path string `mapstructure:"path"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

type RecommendConfig struct {
	Limit int `mapstructure:"limit"`
}

// SecretsConfig selects where credentials missing from the config file
// are resolved from.
type SecretsConfig struct {
	// Provider is env or file.
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var (
	knownBackends = map[string]bool{"jsonfile": true, "badger": true, "neo4j": true}
	knownLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	knownFormats  = map[string]bool{"json": true, "console": true}
	knownSecrets  = map[string]bool{"env": true, "file": true}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "jsonfile")
	v.SetDefault("storage.path", "socialgraph.json")
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "socialgraph")
	v.SetDefault("recommend.limit", 10)
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "stderr")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.file", "")
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if !knownBackends[c.Storage.Backend] {
		warnings = append(warnings, fmt.Sprintf("storage backend '%s' is unknown, expected jsonfile, badger or neo4j", c.Storage.Backend))
	}
	if c.Storage.Backend != "neo4j" && c.Storage.Path == "" {
		warnings = append(warnings, fmt.Sprintf("storage backend '%s' is configured but storage.path is empty", c.Storage.Backend))
	}
	if c.Storage.Backend == "neo4j" && c.Neo4j.URI == "" {
		warnings = append(warnings, "storage backend 'neo4j' is configured but neo4j.uri is empty")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}
	if c.Recommend.Limit <= 0 {
		warnings = append(warnings, fmt.Sprintf("recommend limit %d is not positive", c.Recommend.Limit))
	}
	if c.Server.ShutdownTimeout <= 0 {
		warnings = append(warnings, fmt.Sprintf("server shutdown_timeout %s is not positive", c.Server.ShutdownTimeout))
	}
	if c.Log.Level != "" && !knownLevels[strings.ToLower(c.Log.Level)] {
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown", c.Log.Level))
	}
	if c.Log.Format != "" && !knownFormats[strings.ToLower(c.Log.Format)] {
		warnings = append(warnings, fmt.Sprintf("log format '%s' is unknown", c.Log.Format))
	}

	if !knownSecrets[c.Secrets.Provider] {
		warnings = append(warnings, fmt.Sprintf("secrets provider '%s' is unknown, expected env or file", c.Secrets.Provider))
	}
	if c.Secrets.Provider == "file" && c.Secrets.File == "" {
		warnings = append(warnings, "secrets provider 'file' is configured but secrets.file is empty")
	}

	return warnings
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from defaults, then the config file, then the
// environment. An empty path searches for socialgraph.yaml in the working
// directory. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("socialgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}
