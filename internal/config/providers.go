package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/provider"
	"github.com/davidbz/hearth/internal/provider/custom"
	"github.com/davidbz/hearth/internal/provider/gemini"
	"github.com/davidbz/hearth/internal/provider/openai"
)

// Catalog is the YAML provider file:
//
//	providers:
//	  gemini:
//	    base_url: https://generativelanguage.googleapis.com
//	    auth: query
//	    key_required: true
type Catalog struct {
	Providers map[string]CatalogEntry `yaml:"providers"`
}

// CatalogEntry overrides one provider in the catalog file.
type CatalogEntry struct {
	BaseURL     string `yaml:"base_url"`
	Auth        string `yaml:"auth"`
	KeyRequired *bool  `yaml:"key_required"`
}

// LoadCatalog reads and validates a provider catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %s: %w", path, err)
	}

	for name := range catalog.Providers {
		if _, err := domain.ParseProviderID(name); err != nil {
			return nil, fmt.Errorf("providers file %s: %w", path, err)
		}
	}

	return &catalog, nil
}

// ProviderSettings resolves the effective settings for every known provider.
// Precedence: built-in defaults, then the catalog file, then environment variables.
func (p *ProvidersConfig) ProviderSettings() (map[domain.ProviderID]provider.Settings, error) {
	defaults := map[domain.ProviderID]provider.Settings{
		domain.ProviderOpenAI:   openai.DefaultSettings(),
		domain.ProviderGemini:   gemini.DefaultSettings(),
		domain.ProviderDeepSeek: openai.DeepSeekSettings(),
		domain.ProviderCustom:   custom.DefaultSettings(),
	}

	overrides := map[domain.ProviderID]ProviderConfig{
		domain.ProviderOpenAI:   p.OpenAI,
		domain.ProviderGemini:   p.Gemini,
		domain.ProviderDeepSeek: p.DeepSeek,
		domain.ProviderCustom:   p.Custom,
	}

	resolved := make(map[domain.ProviderID]provider.Settings, len(defaults))
	for id, settings := range defaults {
		if p.Catalog != nil {
			if entry, ok := p.Catalog.Providers[string(id)]; ok {
				var err error
				if settings, err = applyCatalogEntry(settings, entry); err != nil {
					return nil, fmt.Errorf("provider %s: %w", id, err)
				}
			}
		}

		settings, err := applyOverride(settings, overrides[id])
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", id, err)
		}

		resolved[id] = settings
	}

	return resolved, nil
}

func applyCatalogEntry(settings provider.Settings, entry CatalogEntry) (provider.Settings, error) {
	if entry.BaseURL != "" {
		settings.BaseURL = entry.BaseURL
	}

	if entry.Auth != "" {
		auth, err := domain.ParseAuthPlacement(entry.Auth)
		if err != nil {
			return settings, err
		}
		settings.Auth = auth
	}

	if entry.KeyRequired != nil {
		settings.KeyRequired = *entry.KeyRequired
	}

	return settings, nil
}

func applyOverride(settings provider.Settings, override ProviderConfig) (provider.Settings, error) {
	if override.BaseURL != "" {
		settings.BaseURL = override.BaseURL
	}

	if override.Auth != "" {
		auth, err := domain.ParseAuthPlacement(override.Auth)
		if err != nil {
			return settings, err
		}
		settings.Auth = auth
	}

	if override.KeyRequired != "" {
		required, err := strconv.ParseBool(override.KeyRequired)
		if err != nil {
			return settings, fmt.Errorf("invalid key_required value %q: %w", override.KeyRequired, err)
		}
		settings.KeyRequired = required
	}

	return settings, nil
}
