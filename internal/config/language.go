package config

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// supportedCultures are the cultures the reporting service localises
var supportedCultures = language.NewMatcher([]language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
	language.Japanese,
	language.SimplifiedChinese,
	language.Portuguese,
	language.Russian,
})

// ParseCulture parses a BCP 47 / POSIX culture name ("de-DE", "en_US.UTF-8").
// An empty value falls back to the system locale, then English.
func ParseCulture(culture string) language.Tag {
	if culture == "" {
		return detectSystemCulture()
	}
	if tag, err := language.Parse(normalizeLocale(culture)); err == nil {
		return tag
	}
	return language.English
}

// AcceptLanguage returns the Accept-Language header value for the configured
// culture, listing the best supported match as a fallback.
func (c *ServiceConfig) AcceptLanguage() string {
	tag := ParseCulture(c.Culture)
	matched, _, confidence := supportedCultures.Match(tag)
	if confidence == language.No {
		return tag.String() + ", en;q=0.5"
	}
	base, _ := matched.Base()
	if matched.String() == tag.String() || base.String() == tag.String() {
		return tag.String()
	}
	return tag.String() + ", " + base.String() + ";q=0.8"
}

// normalizeLocale converts "en_US.UTF-8" to "en-US"
func normalizeLocale(s string) string {
	s = strings.SplitN(s, ".", 2)[0]
	return strings.ReplaceAll(s, "_", "-")
}

// detectSystemCulture reads the POSIX locale environment variables
func detectSystemCulture() language.Tag {
	for _, envVar := range []string{"LC_ALL", "LC_MESSAGES", "LANG", "LANGUAGE"} {
		if val := os.Getenv(envVar); val != "" && val != "C" && val != "POSIX" {
			if tag, err := language.Parse(normalizeLocale(val)); err == nil {
				return tag
			}
		}
	}
	return language.English
}
