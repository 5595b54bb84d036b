package deezer

import (
	"fmt"
	"strings"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/catalog/plugins"
	"github.com/liuran001/MusicPreview-Go/music/config"
)

func init() {
	if err := plugins.Register(catalogName, buildContribution); err != nil {
		panic(err)
	}
}

func buildContribution(cfg *config.Config, logger music.Logger) (*plugins.Contribution, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	baseURL := strings.Trim(cfg.GetPluginString(catalogName, "base_url"), "`\"' ")
	if baseURL == "" {
		baseURL = cfg.GetString("CatalogBaseURL")
	}

	timeout := cfg.GetSeconds("RequestTimeoutSec", 10*time.Second)
	if sec := cfg.GetPluginInt(catalogName, "timeout_sec"); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	client, err := New(Options{
		BaseURL:            baseURL,
		Timeout:            timeout,
		RetryMax:           cfg.GetInt("RetryMax"),
		RateLimitPerSecond: cfg.GetFloat64("RateLimitPerSecond"),
		RateLimitBurst:     cfg.GetInt("RateLimitBurst"),
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	return &plugins.Contribution{Catalog: NewCatalog(client)}, nil
}
