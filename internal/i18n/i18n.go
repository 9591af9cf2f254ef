// Package i18n provides internationalization support for user-facing messages
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "ru"
	// EnglishMessages is the English message profile
	EnglishMessages = "en"
)

var matcher = language.NewMatcher([]language.Tag{language.Russian, language.English})

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language
func NewLocalizer(language string) *Localizer {
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// Language returns the language code the localizer was created for.
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	// Fallback to Russian if key not found in current language
	if l.language != DefaultLanguage {
		if fallbackMessage, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallbackMessage, args...)
			}
			return fallbackMessage
		}
	}

	// Ultimate fallback: return the key itself
	return key
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, EnglishMessages}
}

// IsSupported reports whether a message profile exists for the language code.
func IsSupported(lang string) bool {
	switch strings.ToLower(lang) {
	case DefaultLanguage, EnglishMessages:
		return true
	}
	return false
}

// Negotiate picks the supported language that best matches an Accept-Language header.
// An empty or unparsable header yields fallback.
func Negotiate(acceptLanguage, fallback string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return GetSupportedLanguages()[index]
}

// getMessages returns the message map for a given language
func getMessages(language string) map[string]string {
	switch strings.ToLower(language) {
	case EnglishMessages:
		return englishMessages
	default:
		return russianMessages // Default to Russian
	}
}
