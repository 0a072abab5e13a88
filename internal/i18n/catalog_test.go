package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "en", c.DefaultLocale)
	assert.Equal(t, []string{"en", "de"}, c.SupportedLocales())
	assert.Equal(t, "Region Map", c.Lookup("map.title", "en"))
	assert.Equal(t, "Regionskarte", c.Lookup("map.title", "de"))
}

func TestLookupFallbacks(t *testing.T) {
	c, err := LoadCatalogFromBytes([]byte(`
default_locale: en
locales: [en, de, fr]
strings:
  greeting:
    en: Hello
    de: Hallo
`))
	require.NoError(t, err)

	assert.Equal(t, "Hallo", c.Lookup("greeting", "de"))
	assert.Equal(t, "Hello", c.Lookup("greeting", "fr"), "missing locale falls back to default")
	assert.Equal(t, "farewell", c.Lookup("farewell", "de"), "missing key renders the key")
}

func TestLabel(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		domain, value, locale, want string
	}{
		{DomainRegion, "kitchen", "de", "Küche"},
		{DomainRegion, "kitchen", "en", "kitchen"},
		{DomainRegion, "Out of System", "de", "Außerhalb"},
		{DomainActivity, "Handle Up", "de", "Griff Oben"},
		{DomainActivity, "Juggling", "de", "Juggling"},
		{"unknown", "x", "de", "x"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Label(tt.domain, tt.value, tt.locale), "%s/%s/%s", tt.domain, tt.value, tt.locale)
	}
}

func TestFormatDuration(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		seconds int64
		locale  string
		want    string
	}{
		{3900, "en", "1h 5m"},
		{3900, "de", "1 Std 5 Min"},
		{250, "en", "4m 10s"},
		{250, "de", "4 Min 10 Sek"},
		{12, "en", "12s"},
		{12, "de", "12 Sek"},
		{0, "en", "0s"},
		{-5, "en", "0s"},
		{90000, "en", "25h 0m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.FormatDuration(tt.seconds, tt.locale))
	}
}

func TestNormalize(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "de", c.Normalize("de"))
	assert.Equal(t, "de", c.Normalize("DE"))
	assert.Equal(t, "de", c.Normalize("de-DE"))
	assert.Equal(t, "en", c.Normalize("en_US"))
	assert.Equal(t, "en", c.Normalize("fr"))
	assert.Equal(t, "en", c.Normalize(""))
	assert.True(t, c.IsSupported("de"))
	assert.False(t, c.IsSupported("fr"))
}

func TestLoadCatalogMergesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locales: [fr]
strings:
  map.title:
    fr: Plan des régions
labels:
  region:
    kitchen:
      fr: Cuisine
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, "en", c.DefaultLocale)
	assert.Contains(t, c.SupportedLocales(), "fr")
	assert.Equal(t, "Plan des régions", c.Lookup("map.title", "fr"))
	assert.Equal(t, "Regionskarte", c.Lookup("map.title", "de"))
	assert.Equal(t, "Cuisine", c.Label(DomainRegion, "kitchen", "fr"))
	assert.Equal(t, "Küche", c.Label(DomainRegion, "kitchen", "de"))
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadCatalogFromBytes([]byte("strings: [not, a, map]"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	de := c.Resolve("de")
	assert.Equal(t, "Filter", de["filters.title"])
	assert.Equal(t, len(c.Strings), len(de))
}
