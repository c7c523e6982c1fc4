// Package config provides centralized configuration management for crptdoc.
// It implements a three-layer config pattern:
// Layer 1: in-code defaults
// Layer 2: user overrides (XDG config path via gofulmen/config, or an explicit file)
// Layer 3: .env file, CRPTDOC_* environment variables and runtime overrides
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/IIExpanse/honest-sign-test-task/internal/appid"
	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex

	configFile string
	envFile    = ".env"
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetConfigFile pins the user config file instead of searching XDG paths.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// SetEnvFile changes the dotenv file read before environment overrides.
// An empty path disables dotenv loading.
func SetEnvFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	envFile = strings.TrimSpace(path)
}

// Defaults returns the layer 1 settings keyed by config path.
func Defaults() map[string]any {
	return map[string]any{
		"api.base_url": "https://ismp.crpt.ru",
		"api.token":    "",
		"api.timeout":  "5s",

		"rate_limit.time_unit":     "second",
		"rate_limit.time_amount":   1,
		"rate_limit.request_limit": 10,

		"journal.driver":         JournalLibsql,
		"journal.path":           "",
		"journal.url":            "",
		"journal.auth_token":     "",
		"journal.redis.addr":     "localhost:6379",
		"journal.redis.password": "",
		"journal.redis.db":       0,
		"journal.redis.key":      appid.BinaryName,

		"server.host":             "localhost",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.inbound_rps":      0,
		"server.inbound_burst":    0,

		"logging.level":   "info",
		"logging.profile": "structured",

		"metrics.enabled": true,
		"metrics.port":    9090,

		"health.enabled": true,

		"workers": 4,
	}
}

// Load loads configuration using the three-layer pattern and validates it.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.RLock()
	explicitFile, dotenvFile := configFile, envFile
	configMu.RUnlock()

	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	userPath, userSettings, err := readUserConfig(explicitFile)
	if err != nil {
		return nil, err
	}
	if userSettings != nil {
		if err := v.MergeConfigMap(userSettings); err != nil {
			return nil, fmt.Errorf("merge user config %s: %w", userPath, err)
		}
	}

	if err := loadDotEnv(dotenvFile); err != nil {
		return nil, err
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	for _, overrides := range append([]map[string]any{envOverrides}, runtimeOverrides...) {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, core.NewError(core.KindConfig, "load config", fmt.Errorf("failed to unmarshal config: %w", err))
	}

	cfg.Journal.Driver = strings.ToLower(strings.TrimSpace(cfg.Journal.Driver))
	if cfg.Journal.Driver == JournalLibsql && strings.TrimSpace(cfg.Journal.URL) == "" && strings.TrimSpace(cfg.Journal.Path) == "" {
		cfg.Journal.Path = DefaultJournalPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// readUserConfig returns the first user config file found. An explicit file
// must exist; discovered paths are optional.
func readUserConfig(explicit string) (string, map[string]any, error) {
	if explicit != "" {
		settings, err := readYAMLFile(explicit)
		if err != nil {
			return explicit, nil, err
		}
		return explicit, settings, nil
	}

	for _, path := range getUserConfigPaths() {
		settings, err := readYAMLFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return path, nil, err
		}
		return path, settings, nil
	}
	return "", nil, nil
}

func readYAMLFile(path string) (map[string]any, error) {
	// #nosec G304 -- config path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	settings := map[string]any{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, core.NewError(core.KindConfig, "load config", fmt.Errorf("parse %s: %w", path, err))
	}
	return settings, nil
}

// loadDotEnv exports variables from path without overriding the real environment.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// getUserConfigPaths returns the list of user config file paths to check
// Uses gofulmen/config for XDG-compliant path discovery
func getUserConfigPaths() []string {
	paths := []string{}
	seen := map[string]bool{}
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}

	add(DefaultConfigPath())
	for _, candidate := range gfconfig.GetAppConfigPaths(appid.ConfigName) {
		switch strings.ToLower(filepath.Ext(candidate)) {
		case ".yaml", ".yml":
			add(candidate)
		default:
			add(filepath.Join(candidate, "config.yaml"))
		}
	}
	return paths
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps CRPTDOC_{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := appid.EnvPrefix

	return []EnvVarSpec{
		// Registry API
		{Name: prefix + "API_BASE_URL", Path: []string{"api", "base_url"}, Type: EnvString},
		{Name: prefix + "API_TOKEN", Path: []string{"api", "token"}, Type: EnvString},
		{Name: prefix + "API_TIMEOUT", Path: []string{"api", "timeout"}, Type: EnvString},

		// Outbound rate limit
		{Name: prefix + "RATE_LIMIT_TIME_UNIT", Path: []string{"rate_limit", "time_unit"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_TIME_AMOUNT", Path: []string{"rate_limit", "time_amount"}, Type: EnvInt},
		{Name: prefix + "RATE_LIMIT_REQUEST_LIMIT", Path: []string{"rate_limit", "request_limit"}, Type: EnvInt},

		// Journal
		{Name: prefix + "JOURNAL_DRIVER", Path: []string{"journal", "driver"}, Type: EnvString},
		{Name: prefix + "JOURNAL_PATH", Path: []string{"journal", "path"}, Type: EnvString},
		{Name: prefix + "JOURNAL_URL", Path: []string{"journal", "url"}, Type: EnvString},
		{Name: prefix + "JOURNAL_AUTH_TOKEN", Path: []string{"journal", "auth_token"}, Type: EnvString},
		{Name: prefix + "REDIS_ADDR", Path: []string{"journal", "redis", "addr"}, Type: EnvString},
		{Name: prefix + "REDIS_PASSWORD", Path: []string{"journal", "redis", "password"}, Type: EnvString},
		{Name: prefix + "REDIS_DB", Path: []string{"journal", "redis", "db"}, Type: EnvInt},
		{Name: prefix + "REDIS_KEY", Path: []string{"journal", "redis", "key"}, Type: EnvString},

		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "INBOUND_RPS", Path: []string{"server", "inbound_rps"}, Type: EnvString},
		{Name: prefix + "INBOUND_BURST", Path: []string{"server", "inbound_burst"}, Type: EnvInt},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Workers
		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.ConfigName)
}

// DefaultJournalPath returns the XDG-compliant path to the journal database file.
func DefaultJournalPath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + appid.BinaryName + ".db"
	}
	return filepath.Join(dataDir, appid.BinaryName+".db")
}
