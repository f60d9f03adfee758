// Package config holds ghia's layered configuration: flags override
// environment variables, which override the config file, which overrides
// the defaults registered here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigName is the config file base name searched for, without extension.
const ConfigName = "ghia"

var (
	v  *viper.Viper
	mu sync.RWMutex
)

// Initialize sets up the viper configuration singleton. A .env file in the
// working directory is loaded into the environment first; variables that
// are already set win. Should be called once at application startup.
func Initialize() error {
	return InitializeIn("")
}

// InitializeIn is Initialize with an explicit directory to search first for
// .env and ghia.yaml. Empty means the working directory.
func InitializeIn(dir string) error {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = cwd
	}

	// A missing .env is the common case
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	nv := viper.New()
	nv.SetConfigName(ConfigName)
	nv.SetConfigType("yaml")
	nv.AddConfigPath(dir)
	if home, err := os.UserHomeDir(); err == nil {
		nv.AddConfigPath(filepath.Join(home, ".config", "ghia"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		nv.AddConfigPath(filepath.Join(xdg, "ghia"))
	}

	// GHIA_LOG_LEVEL -> log.level, GHIA_GITHUB_PER_PAGE -> github.per-page
	nv.SetEnvPrefix("GHIA")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()

	// Well-known variables other tools already set
	_ = nv.BindEnv("github.token", "GHIA_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = nv.BindEnv("llm.api-key", "GHIA_LLM_API_KEY", "ANTHROPIC_API_KEY")

	setDefaults(nv)

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	mu.Lock()
	v = nv
	mu.Unlock()
	return nil
}

func setDefaults(nv *viper.Viper) {
	nv.SetDefault("db", DefaultDBPath())
	nv.SetDefault("listen", "127.0.0.1:8000")
	nv.SetDefault("server", "")
	nv.SetDefault("json", false)

	nv.SetDefault("github.token", "")
	nv.SetDefault("github.api-url", "https://api.github.com")
	nv.SetDefault("github.per-page", 100)
	nv.SetDefault("github.timeout", 30*time.Second)

	nv.SetDefault("llm.api-key", "")
	nv.SetDefault("llm.model", "claude-sonnet-4-5")
	nv.SetDefault("llm.max-tokens", 4000)
	nv.SetDefault("llm.temperature", 0.7)
	nv.SetDefault("llm.max-retries", 0)
	nv.SetDefault("llm.base-url", "")

	nv.SetDefault("log.file", "")
	nv.SetDefault("log.level", "info")
	nv.SetDefault("log.max-size", 10) // MB
	nv.SetDefault("log.max-backups", 3)
	nv.SetDefault("log.max-age", 7) // days
	nv.SetDefault("log.compress", true)
}

// DefaultDBPath returns the cache database location used when none is set.
func DefaultDBPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ghia", "issues.db")
	}
	return filepath.Join(".ghia", "issues.db")
}

func current() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	return v
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if cv := current(); cv != nil {
		return cv.GetString(key)
	}
	return ""
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if cv := current(); cv != nil {
		return cv.GetBool(key)
	}
	return false
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if cv := current(); cv != nil {
		return cv.GetInt(key)
	}
	return 0
}

// GetFloat64 retrieves a float configuration value
func GetFloat64(key string) float64 {
	if cv := current(); cv != nil {
		return cv.GetFloat64(key)
	}
	return 0
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if cv := current(); cv != nil {
		return cv.GetDuration(key)
	}
	return 0
}

// Set sets a configuration value, overriding every other source.
func Set(key string, value any) {
	if cv := current(); cv != nil {
		cv.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if cv := current(); cv != nil {
		return cv.ConfigFileUsed()
	}
	return ""
}

// secretKeys are masked by Settings(true).
var secretKeys = map[string]bool{
	"github.token": true,
	"llm.api-key":  true,
}

// Keys returns every known configuration key, sorted.
func Keys() []string {
	cv := current()
	if cv == nil {
		return nil
	}
	keys := cv.AllKeys()
	sort.Strings(keys)
	return keys
}

// Settings returns the effective configuration as a flat key/value map.
// With redact, secrets are replaced by a short fingerprint.
func Settings(redact bool) map[string]any {
	cv := current()
	if cv == nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	for _, key := range cv.AllKeys() {
		value := cv.Get(key)
		if redact && secretKeys[key] {
			value = Redact(cv.GetString(key))
		}
		out[key] = value
	}
	return out
}

// Redact masks a secret, keeping its last four characters for recognition.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// OnChange calls fn whenever the config file is rewritten. It is a no-op
// when no config file was found.
func OnChange(fn func()) {
	cv := current()
	if cv == nil || cv.ConfigFileUsed() == "" {
		return
	}
	cv.OnConfigChange(func(fsnotify.Event) { fn() })
	cv.WatchConfig()
}
