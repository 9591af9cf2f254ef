package i18n

import (
	"sort"
	"testing"
)

// TestI18nCompleteness verifies that all language profiles contain all message keys
func TestI18nCompleteness(t *testing.T) {
	// Get all supported languages
	languages := GetSupportedLanguages()
	if len(languages) == 0 {
		t.Fatal("No supported languages found")
	}

	// Get the reference messages from Russian (assumed to be complete)
	referenceMessages := getMessages(DefaultLanguage)
	if len(referenceMessages) == 0 {
		t.Fatal("No reference messages found in default language")
	}

	// Extract all keys from reference messages
	var referenceKeys []string
	for key := range referenceMessages {
		referenceKeys = append(referenceKeys, key)
	}
	sort.Strings(referenceKeys)

	t.Logf("Reference language (%s) has %d message keys", DefaultLanguage, len(referenceKeys))

	// Test each language profile
	for _, lang := range languages {
		t.Run("Language_"+lang, func(t *testing.T) {
			messages := getMessages(lang)

			// Get keys from this language
			var langKeys []string
			for key := range messages {
				langKeys = append(langKeys, key)
			}
			sort.Strings(langKeys)

			t.Logf("Language %s has %d message keys", lang, len(langKeys))

			// Check for missing keys
			var missingKeys []string
			for _, refKey := range referenceKeys {
				if _, exists := messages[refKey]; !exists {
					missingKeys = append(missingKeys, refKey)
				}
			}

			// Check for extra keys (keys in this language but not in reference)
			var extraKeys []string
			for _, langKey := range langKeys {
				if _, exists := referenceMessages[langKey]; !exists {
					extraKeys = append(extraKeys, langKey)
				}
			}

			// Report results
			if len(missingKeys) > 0 {
				t.Errorf("Language %s is missing %d keys: %v", lang, len(missingKeys), missingKeys)
			}

			if len(extraKeys) > 0 {
				t.Logf("Language %s has %d extra keys (not in reference): %v", lang, len(extraKeys), extraKeys)
			}

			if len(missingKeys) == 0 && len(extraKeys) == 0 {
				t.Logf("✅ Language %s is complete and matches reference", lang)
			}
		})
	}
}

// TestI18nKeyConsistency verifies that all message keys follow expected patterns
func TestI18nKeyConsistency(t *testing.T) {
	expectedPrefixes := []string{
		"error.",
		"page.",
	}

	referenceMessages := getMessages(DefaultLanguage)

	for key := range referenceMessages {
		hasValidPrefix := false
		for _, prefix := range expectedPrefixes {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				hasValidPrefix = true
				break
			}
		}

		if !hasValidPrefix {
			t.Errorf("Message key '%s' does not follow expected naming convention (should start with one of: %v)", key, expectedPrefixes)
		}
	}
}

// TestI18nMessageValues verifies that messages contain expected placeholders
func TestI18nMessageValues(t *testing.T) {
	referenceMessages := getMessages(DefaultLanguage)

	// Test specific keys that should have placeholders
	testsWithPlaceholders := map[string]int{
		"page.providers":      1, // provider list
		"error.missing_url":   0,
		"error.server_config": 0,
	}

	for key, expectedPlaceholders := range testsWithPlaceholders {
		if message, exists := referenceMessages[key]; exists {
			placeholderCount := 0
			// Count %s and %d placeholders
			for i := 0; i < len(message)-1; i++ {
				if message[i] == '%' && (message[i+1] == 's' || message[i+1] == 'd') {
					placeholderCount++
				}
			}

			if placeholderCount != expectedPlaceholders {
				t.Errorf("Message key '%s' should have %d placeholders but has %d: %s",
					key, expectedPlaceholders, placeholderCount, message)
			}
		} else {
			t.Errorf("Expected message key '%s' not found", key)
		}
	}
}

// TestLocalizerFunctionality tests the Localizer methods
func TestLocalizerFunctionality(t *testing.T) {
	localizer := NewLocalizer(DefaultLanguage)
	if localizer == nil {
		t.Fatal("Failed to create localizer")
	}

	// Test existing key
	result := localizer.T("error.not_a_playlist")
	if result != "Ссылка не ведёт на плейлист" {
		t.Errorf("Expected Russian message for 'error.not_a_playlist', got: %s", result)
	}

	// Test non-existing key (should return the key itself)
	nonExistentKey := "this.key.does.not.exist"
	result = localizer.T(nonExistentKey)
	if result != nonExistentKey {
		t.Errorf("Expected fallback to key name for non-existent key, got: %s", result)
	}

	// Test message with parameters
	result = NewLocalizer(EnglishMessages).T("page.providers", "Spotify")
	expected := "Supported services: Spotify"
	if result != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}

	// Unknown languages use the Russian profile
	if got := NewLocalizer("de").T("error.resource_not_found"); got != "Ресурс не найден" {
		t.Errorf("Expected Russian fallback for unknown language, got: %s", got)
	}
}

// TestEnglishContract pins the English strings returned by the HTTP API.
func TestEnglishContract(t *testing.T) {
	localizer := NewLocalizer(EnglishMessages)

	tests := map[string]string{
		"error.missing_url":        "Missing ?url parameter",
		"error.server_config":      "Server configuration error",
		"error.resource_not_found": "Resource not found",
	}
	for key, want := range tests {
		if got := localizer.T(key); got != want {
			t.Errorf("T(%q) = %q, want %q", key, got, want)
		}
	}
}

// TestNegotiate verifies Accept-Language matching
func TestNegotiate(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		fallback string
		want     string
	}{
		{name: "Empty header", header: "", fallback: DefaultLanguage, want: DefaultLanguage},
		{name: "English preferred", header: "en-US,en;q=0.9,ru;q=0.5", fallback: DefaultLanguage, want: EnglishMessages},
		{name: "Russian preferred", header: "ru-RU,ru;q=0.9,en;q=0.8", fallback: EnglishMessages, want: DefaultLanguage},
		{name: "Unsupported language", header: "ja", fallback: EnglishMessages, want: EnglishMessages},
		{name: "Garbage header", header: ";;;", fallback: DefaultLanguage, want: DefaultLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Negotiate(tt.header, tt.fallback); got != tt.want {
				t.Errorf("Negotiate(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

// TestGetSupportedLanguages verifies the supported languages function
func TestGetSupportedLanguages(t *testing.T) {
	languages := GetSupportedLanguages()

	if len(languages) == 0 {
		t.Error("GetSupportedLanguages should return at least one language")
	}

	// Should include default language
	foundDefault := false
	for _, lang := range languages {
		if lang == DefaultLanguage {
			foundDefault = true
			break
		}
	}

	if !foundDefault {
		t.Errorf("GetSupportedLanguages should include default language '%s'", DefaultLanguage)
	}

	t.Logf("Supported languages: %v", languages)
}

// BenchmarkLocalizer benchmarks the localization performance
func BenchmarkLocalizer(b *testing.B) {
	localizer := NewLocalizer(DefaultLanguage)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = localizer.T("error.upstream")
	}
}

// BenchmarkLocalizerWithArgs benchmarks localization with arguments
func BenchmarkLocalizerWithArgs(b *testing.B) {
	localizer := NewLocalizer(DefaultLanguage)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = localizer.T("page.providers", "Yandex Music, Spotify, SoundCloud")
	}
}
