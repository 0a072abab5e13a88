package i18n

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Domains with localized value labels
const (
	DomainRegion   = "region"
	DomainActivity = "activity"
)

// Catalog maps (key, locale) pairs to display strings
type Catalog struct {
	DefaultLocale string                                  `yaml:"default_locale"`
	Locales       []string                                `yaml:"locales"`
	Strings       map[string]map[string]string            `yaml:"strings"`
	Labels        map[string]map[string]map[string]string `yaml:"labels"`
}

// Default returns the bundled catalog
func Default() (*Catalog, error) {
	return LoadCatalogFromBytes(defaultCatalog)
}

// LoadCatalog reads a catalog file and merges it over the bundled one
func LoadCatalog(path string) (*Catalog, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	override, err := LoadCatalogFromBytes(data)
	if err != nil {
		return nil, err
	}
	base.Merge(override)
	return base, nil
}

// LoadCatalogFromBytes parses a YAML catalog. A declared default locale is
// always listed among the supported locales.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if c.Strings == nil {
		c.Strings = make(map[string]map[string]string)
	}
	if c.Labels == nil {
		c.Labels = make(map[string]map[string]map[string]string)
	}
	if c.DefaultLocale != "" && !slices.Contains(c.Locales, c.DefaultLocale) {
		c.Locales = append(c.Locales, c.DefaultLocale)
	}
	return &c, nil
}

// Merge copies every entry of other over c
func (c *Catalog) Merge(other *Catalog) {
	if other.DefaultLocale != "" {
		c.DefaultLocale = other.DefaultLocale
	}
	for _, l := range other.Locales {
		if !slices.Contains(c.Locales, l) {
			c.Locales = append(c.Locales, l)
		}
	}
	for key, byLocale := range other.Strings {
		if c.Strings[key] == nil {
			c.Strings[key] = make(map[string]string)
		}
		for l, s := range byLocale {
			c.Strings[key][l] = s
		}
	}
	for domain, values := range other.Labels {
		if c.Labels[domain] == nil {
			c.Labels[domain] = make(map[string]map[string]string)
		}
		for value, byLocale := range values {
			if c.Labels[domain][value] == nil {
				c.Labels[domain][value] = make(map[string]string)
			}
			for l, s := range byLocale {
				c.Labels[domain][value][l] = s
			}
		}
	}
}

// SupportedLocales returns the locales the catalog declares
func (c *Catalog) SupportedLocales() []string {
	return slices.Clone(c.Locales)
}

// Normalize maps a requested locale such as "de-DE" or "DE" onto a
// supported one, falling back to the default locale
func (c *Catalog) Normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if slices.Contains(c.Locales, l) {
		return l
	}
	if i := strings.IndexAny(l, "-_"); i > 0 && slices.Contains(c.Locales, l[:i]) {
		return l[:i]
	}
	return c.DefaultLocale
}

// IsSupported reports whether locale is declared exactly
func (c *Catalog) IsSupported(locale string) bool {
	return slices.Contains(c.Locales, locale)
}

// Lookup returns the string for key in locale, then in the default locale,
// then the key itself
func (c *Catalog) Lookup(key, locale string) string {
	byLocale := c.Strings[key]
	if s, ok := byLocale[locale]; ok {
		return s
	}
	if s, ok := byLocale[c.DefaultLocale]; ok {
		return s
	}
	return key
}

// Label localizes a domain value such as a region or activity name. Values
// without a translation are returned unchanged.
func (c *Catalog) Label(domain, value, locale string) string {
	if s, ok := c.Labels[domain][value][locale]; ok {
		return s
	}
	return value
}

// Resolve returns every string key resolved in locale
func (c *Catalog) Resolve(locale string) map[string]string {
	out := make(map[string]string, len(c.Strings))
	for key := range c.Strings {
		out[key] = c.Lookup(key, locale)
	}
	return out
}

// FormatDuration renders seconds as the largest two units: "1h 5m",
// "4m 10s" or "12s" in English
func (c *Catalog) FormatDuration(seconds int64, locale string) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf(c.Lookup("duration.hours_minutes", locale), hours, minutes)
	case minutes > 0:
		return fmt.Sprintf(c.Lookup("duration.minutes_seconds", locale), minutes, secs)
	default:
		return fmt.Sprintf(c.Lookup("duration.seconds", locale), secs)
	}
}
