package core

import (
	"time"

	"melodex/internal/i18n"
	"melodex/pkg/musiclink"
)

const (
	// DefaultServerPort matches the port the service has always listened on.
	DefaultServerPort = 5000
	// DefaultCORSOrigin allows any origin.
	DefaultCORSOrigin = "*"
	// DefaultRateLimitPerMinute is the per-client budget for import requests.
	DefaultRateLimitPerMinute = 60
	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Server     ServerConfig
	Yandex     YandexConfig
	Spotify    SpotifyConfig
	SoundCloud SoundCloudConfig
	Upstream   UpstreamConfig
	Log        LogConfig
	App        AppConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigin   string
}

type YandexConfig struct {
	Token   string
	BaseURL string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

type SoundCloudConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
}

// UpstreamConfig bounds outbound provider calls.
type UpstreamConfig struct {
	Timeout                time.Duration
	TokenSafetyMargin      time.Duration
	SpotifyPageConcurrency int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language           string
	RateLimitPerMinute int
	RateLimitClients   int
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigin:   DefaultCORSOrigin,
		},
		Yandex: YandexConfig{
			BaseURL: musiclink.YandexAPIBaseURL,
		},
		Spotify: SpotifyConfig{
			TokenURL: musiclink.SpotifyTokenURL,
			BaseURL:  musiclink.SpotifyAPIBaseURL,
		},
		SoundCloud: SoundCloudConfig{
			TokenURL: musiclink.SoundCloudTokenURL,
			BaseURL:  musiclink.SoundCloudAPIBaseURL,
		},
		Upstream: UpstreamConfig{
			Timeout:                musiclink.DefaultHTTPTimeout,
			TokenSafetyMargin:      musiclink.DefaultTokenSafetyMargin,
			SpotifyPageConcurrency: musiclink.DefaultSpotifyPageConcurrency,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:           i18n.DefaultLanguage,
			RateLimitPerMinute: DefaultRateLimitPerMinute,
		},
	}
}

// MissingCredentials lists the providers whose credentials are not configured.
// Such providers stay registered; their imports fail with a configuration error.
func (c *Config) MissingCredentials() []musiclink.Provider {
	var missing []musiclink.Provider
	if c.Yandex.Token == "" {
		missing = append(missing, musiclink.ProviderYandex)
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		missing = append(missing, musiclink.ProviderSpotify)
	}
	if c.SoundCloud.ClientID == "" || c.SoundCloud.ClientSecret == "" {
		missing = append(missing, musiclink.ProviderSoundCloud)
	}
	return missing
}
