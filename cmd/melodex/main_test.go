package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zaptest"

	"melodex/internal/core"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestBuildConfig_EnvAliases(t *testing.T) {
	resetViper(t)
	t.Setenv("YANDEX_MUSIC_TOKEN", "legacy-token")
	t.Setenv("SPOTIFY_CLIENT_ID", "legacy-id")
	t.Setenv("MELODEX_SPOTIFY_CLIENT_ID", "prefixed-id")
	t.Setenv("PORT", "7000")
	t.Setenv("MELODEX_UPSTREAM_TIMEOUT", "3s")
	t.Setenv("MELODEX_LANGUAGE", "de")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	bindEnvAliases()

	cfg := buildConfig()

	if cfg.Yandex.Token != "legacy-token" {
		t.Errorf("Yandex.Token = %q, want legacy-token", cfg.Yandex.Token)
	}
	if cfg.Spotify.ClientID != "prefixed-id" {
		t.Errorf("Spotify.ClientID = %q, prefixed variable should win", cfg.Spotify.ClientID)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Upstream.Timeout != 3*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 3s", cfg.Upstream.Timeout)
	}
	if cfg.App.Language != "ru" {
		t.Errorf("unsupported language should fall back to ru, got %q", cfg.App.Language)
	}
	if cfg.Spotify.TokenURL == "" || cfg.SoundCloud.BaseURL == "" {
		t.Error("endpoint defaults should survive unset values")
	}
}

func TestFlagToEnvVar(t *testing.T) {
	tests := map[string]string{
		"spotify-client-id":     "MELODEX_SPOTIFY_CLIENT_ID",
		"rate-limit-per-minute": "MELODEX_RATE_LIMIT_PER_MINUTE",
		"language":              "MELODEX_LANGUAGE",
	}
	for flag, want := range tests {
		if got := flagToEnvVar(flag); got != want {
			t.Errorf("flagToEnvVar(%q) = %q, want %q", flag, got, want)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	cmd := &cobra.Command{Use: "melodex"}
	registerFlags(cmd)

	content := generateEnvExampleContent(cmd)

	for _, want := range []string{
		"MELODEX_YANDEX_TOKEN=",
		"MELODEX_SPOTIFY_CLIENT_SECRET=",
		"MELODEX_SOUNDCLOUD_CLIENT_ID=",
		"MELODEX_SERVER_PORT=5000",
		"MELODEX_RATE_LIMIT_PER_MINUTE=60",
		"MELODEX_LOG_LEVEL=info",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("generated .env.example is missing %q", want)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		if buildLogger("debug", format) == nil {
			t.Errorf("buildLogger(debug, %s) returned nil", format)
		}
	}
}

func TestInitializeServer_WithoutCredentials(t *testing.T) {
	cfg := core.DefaultConfig()
	server := initializeServer(cfg, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet,
		"/api/spotify/resolve?url=https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", http.NoBody)
	req.Header.Set("Accept-Language", "en")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Server configuration error") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics should include runtime collectors")
	}
}
