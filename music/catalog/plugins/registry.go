package plugins

import (
	"fmt"
	"sort"
	"sync"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/config"
)

// Contribution describes the components a plugin can provide.
type Contribution struct {
	Catalog catalog.Catalog
}

// Factory creates a plugin contribution based on config and logger.
type Factory func(cfg *config.Config, logger music.Logger) (*Contribution, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register registers a plugin factory by name.
func Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("plugin name required")
	}
	if factory == nil {
		return fmt.Errorf("plugin factory required")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	factories[name] = factory
	return nil
}

// Get returns a registered factory by name.
func Get(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	factory, ok := factories[name]
	return factory, ok
}

// Names returns all registered plugin names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	nameList := make([]string, 0, len(factories))
	for name := range factories {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}

// Build resolves the named plugin and returns its catalog.
// A plugin section with enabled = false is treated as missing.
func Build(name string, cfg *config.Config, logger music.Logger) (catalog.Catalog, error) {
	if cfg != nil {
		if pluginCfg, ok := cfg.GetPluginConfig(name); ok {
			if _, hasKey := pluginCfg["enabled"]; hasKey && !cfg.GetPluginBool(name, "enabled") {
				return nil, fmt.Errorf("catalog plugin %s disabled by config", name)
			}
		}
	}

	factory, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("catalog plugin %s not registered (known: %v)", name, Names())
	}

	contrib, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init catalog plugin %s: %w", name, err)
	}
	if contrib == nil || contrib.Catalog == nil {
		return nil, fmt.Errorf("catalog plugin %s provided no catalog", name)
	}
	return contrib.Catalog, nil
}
