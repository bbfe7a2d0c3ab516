// internal/i18n/i18n_test.go
package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestI18n(t *testing.T) *I18n {
	i := &I18n{
		translations: make(map[string]map[string]string),
		defaultLang:  "en",
	}
	require.NoError(t, i.LoadTranslations("./locales"))
	return i
}

func TestTranslationWithArgs(t *testing.T) {
	i := newTestI18n(t)

	msg := i.T("en", KeyProductOutOfStock, "Widget", 1, 3)
	assert.Equal(t, "Insufficient stock for Widget: 1 available, 3 requested", msg)
}

func TestFallbackToDefaultLanguage(t *testing.T) {
	i := newTestI18n(t)

	// Unknown language falls back to English.
	assert.Equal(t, i.T("en", KeyOrderCancelled), i.T("fr", KeyOrderCancelled))
}

func TestUnknownKeyReturnsKey(t *testing.T) {
	i := newTestI18n(t)
	assert.Equal(t, "no.such.key", i.T("en", "no.such.key"))
}

func TestSpanishCatalogLoaded(t *testing.T) {
	i := newTestI18n(t)

	msg := i.T("es", KeyOrderCancelled)
	assert.NotEqual(t, KeyOrderCancelled, msg)
	assert.NotEqual(t, i.T("en", KeyOrderCancelled), msg)
}
