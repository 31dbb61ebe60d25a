package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCulture(t *testing.T) {
	assert.Equal(t, "en-US", ParseCulture("en_US.UTF-8").String())
	assert.Equal(t, "de-DE", ParseCulture("de-DE").String())
	assert.Equal(t, "en", ParseCulture("not a culture!").String())
}

func TestParseCulture_SystemFallback(t *testing.T) {
	t.Setenv("LC_ALL", "fr_FR.UTF-8")
	assert.Equal(t, "fr-FR", ParseCulture("").String())

	t.Setenv("LC_ALL", "C")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
	t.Setenv("LANGUAGE", "")
	assert.Equal(t, "en", ParseCulture("").String())
}

func TestAcceptLanguage(t *testing.T) {
	svc := ServiceConfig{Culture: "en"}
	assert.Equal(t, "en", svc.AcceptLanguage())

	svc.Culture = "de-DE"
	assert.Equal(t, "de-DE, de;q=0.8", svc.AcceptLanguage())
}
