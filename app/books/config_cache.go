package books

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JordanSekky/cereal-convert/app/cfg"
)

const (
	SourceKindFeed = "feed"
	SourceKindPage = "page"
)

type ConfigCache struct {
	booksDir string
	cache    map[string]*Config
	mu       sync.RWMutex
}

func NewConfigCache(booksDir string) *ConfigCache {
	return &ConfigCache{
		booksDir: booksDir,
		cache:    make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.booksDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.booksDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		slug := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(slug)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Book definition loaded", "book", slug, "kind", config.Source.Kind, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(slug string) (*Config, error) {
	configFile := cc.getConfigFilePath(slug)
	bookConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	bookConfig.Slug = slug

	if err := cc.validateConfig(bookConfig); err != nil {
		return nil, fmt.Errorf("invalid book definition %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[bookConfig.Slug] = bookConfig

	return bookConfig, nil
}

func (cc *ConfigCache) GetConfig(slug string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	bookConfig, ok := cc.cache[slug]
	if !ok {
		return nil, fmt.Errorf("book definition with slug '%s' not found", slug)
	}
	return bookConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Books are enabled unless the definition says otherwise.
	bookConfig := Config{Settings: ConfigSettings{Enabled: true}}
	if err := yaml.Unmarshal(data, &bookConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if bookConfig.Settings.PollInterval == 0 {
		bookConfig.Settings.PollInterval = cfg.Get().PollInterval
	}

	return &bookConfig, nil
}

func (cc *ConfigCache) validateConfig(bookConfig *Config) error {
	if bookConfig == nil {
		return fmt.Errorf("bookConfig is nil")
	}

	requiredFields := map[string]string{
		"book name":   bookConfig.Name,
		"book author": bookConfig.Author,
		"source URL":  bookConfig.Source.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	switch bookConfig.Source.Kind {
	case SourceKindFeed:
	case SourceKindPage:
		if bookConfig.Source.ChapterSelector == "" {
			return fmt.Errorf("chapter_selector is required for page sources")
		}
	default:
		return fmt.Errorf("invalid source kind: %s", bookConfig.Source.Kind)
	}

	if bookConfig.Settings.PollInterval < 0 {
		return fmt.Errorf("poll interval must be non-negative")
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(slug string) string {
	return filepath.Join(cc.booksDir, slug+".yml")
}
