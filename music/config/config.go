package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// PluginConfig stores plugin-specific configuration as key-value pairs.
type PluginConfig map[string]interface{}

// Config wraps viper and provides typed accessors.
type Config struct {
	v       *viper.Viper
	plugins map[string]PluginConfig
}

// Load reads a config file and prepares defaults.
// An empty path yields a config made of defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MUSICPREVIEW")
	v.AutomaticEnv()

	setDefaults(v)

	c := &Config{
		v:       v,
		plugins: make(map[string]PluginConfig),
	}

	if strings.TrimSpace(path) == "" {
		return c, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		cfg, err := loadINI(v, path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		loadPlugins(cfg, c)
		return c, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Catalog", "deezer")
	v.SetDefault("CatalogBaseURL", "https://api.deezer.com/")
	v.SetDefault("SearchDebounceMs", 500)
	v.SetDefault("SearchLimit", 25)
	v.SetDefault("RequestTimeoutSec", 10)
	v.SetDefault("RetryMax", 3)
	v.SetDefault("RateLimitPerSecond", 10.0)
	v.SetDefault("RateLimitBurst", 10)
	v.SetDefault("WorkerPoolSize", 4)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("LogDir", "./log")
	v.SetDefault("AudioSampleRate", 44100)
	v.SetDefault("AudioStatusIntervalMs", 250)
	v.SetDefault("PreviewMaxSizeMB", 8)
	v.SetDefault("DownloadTimeout", 30)
	v.SetDefault("SeekStepMs", 5000)
	v.SetDefault("EnableArtwork", true)
	v.SetDefault("ArtworkWidth", 24)
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetMillis reads an integer key as milliseconds, falling back when the value is not positive.
func (c *Config) GetMillis(key string, fallback time.Duration) time.Duration {
	ms := c.v.GetInt(key)
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// GetSeconds reads an integer key as seconds, falling back when the value is not positive.
func (c *Config) GetSeconds(key string, fallback time.Duration) time.Duration {
	sec := c.v.GetInt(key)
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}

// Set overrides a value at runtime (command-line flags win over the file).
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetPluginConfig returns the [plugins.<name>] section.
func (c *Config) GetPluginConfig(name string) (PluginConfig, bool) {
	cfg, ok := c.plugins[name]
	return cfg, ok
}

// PluginNames lists configured plugin sections in name order.
func (c *Config) PluginNames() []string {
	if len(c.plugins) == 0 {
		return nil
	}
	names := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) pluginValue(plugin, key string) (any, bool) {
	val, ok := c.plugins[plugin][key]
	return val, ok
}

// GetPluginString returns a plugin value as a string, empty when missing.
func (c *Config) GetPluginString(plugin, key string) string {
	val, _ := c.pluginValue(plugin, key)
	return cast.ToString(val)
}

// GetPluginInt returns a plugin value as an int, zero when missing or malformed.
func (c *Config) GetPluginInt(plugin, key string) int {
	val, _ := c.pluginValue(plugin, key)
	if str, ok := val.(string); ok {
		val = strings.TrimSpace(str)
	}
	return cast.ToInt(val)
}

// GetPluginBool returns a plugin value as a bool, false when missing or malformed.
func (c *Config) GetPluginBool(plugin, key string) bool {
	val, _ := c.pluginValue(plugin, key)
	if str, ok := val.(string); ok {
		val = strings.ToLower(strings.TrimSpace(str))
	}
	return cast.ToBool(val)
}

func loadINI(v *viper.Viper, path string) (*ini.File, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	for _, key := range cfg.Section("").Keys() {
		v.Set(key.Name(), key.Value())
	}

	return cfg, nil
}

// loadPlugins copies every [plugins.<name>] section into c.plugins.
func loadPlugins(cfg *ini.File, c *Config) {
	for _, section := range cfg.Sections() {
		name, ok := strings.CutPrefix(section.Name(), "plugins.")
		if !ok || name == "" {
			continue
		}
		pluginCfg := make(PluginConfig, len(section.Keys()))
		for _, key := range section.Keys() {
			pluginCfg[key.Name()] = key.Value()
		}
		c.plugins[name] = pluginCfg
	}
}
