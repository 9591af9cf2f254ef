// Package main provides the melodex playlist import service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"melodex/internal/core"
	"melodex/internal/flood"
	httpserver "melodex/internal/http"
	"melodex/internal/i18n"
	"melodex/pkg/musiclink"
)

const (
	envPrefix = "MELODEX"
	version   = "1.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

// envAliases are the unprefixed variable names deployments already use.
var envAliases = map[string]string{
	"yandex-token":             "YANDEX_MUSIC_TOKEN",
	"spotify-client-id":        "SPOTIFY_CLIENT_ID",
	"spotify-client-secret":    "SPOTIFY_CLIENT_SECRET",
	"soundcloud-client-id":     "SOUNDCLOUD_CLIENT_ID",
	"soundcloud-client-secret": "SOUNDCLOUD_CLIENT_SECRET",
	"server-port":              "PORT",
	"cors-origin":              "CORS_ORIGIN",
}

var rootCmd = &cobra.Command{
	Use:   "melodex",
	Short: "melodex - playlist import from Yandex Music, Spotify and SoundCloud",
	Long: `melodex resolves a public playlist link from Yandex Music, Spotify or SoundCloud
and returns it in one normalized JSON shape over HTTP.`,
	RunE: runMelodex,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	registerFlags(rootCmd)

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func registerFlags(cmd *cobra.Command) {
	defaults := core.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")

	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("server-read-timeout", defaults.Server.ReadTimeout, "HTTP server read timeout")
	flags.Duration("server-write-timeout", defaults.Server.WriteTimeout, "HTTP server write timeout")
	flags.String("cors-origin", defaults.Server.CORSOrigin, "Allowed CORS origin")

	flags.String("yandex-token", "", "Yandex Music OAuth token")
	flags.String("yandex-base-url", defaults.Yandex.BaseURL, "Yandex Music API base URL")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-token-url", defaults.Spotify.TokenURL, "Spotify token endpoint")
	flags.String("spotify-base-url", defaults.Spotify.BaseURL, "Spotify Web API base URL")
	flags.String("soundcloud-client-id", "", "SoundCloud client ID")
	flags.String("soundcloud-client-secret", "", "SoundCloud client secret")
	flags.String("soundcloud-token-url", defaults.SoundCloud.TokenURL, "SoundCloud token endpoint")
	flags.String("soundcloud-base-url", defaults.SoundCloud.BaseURL, "SoundCloud API base URL")

	flags.Duration("upstream-timeout", defaults.Upstream.Timeout, "Timeout for each provider HTTP call")
	flags.Duration("token-safety-margin", defaults.Upstream.TokenSafetyMargin,
		"Refresh cached access tokens this long before they expire")
	flags.Int("spotify-page-concurrency", defaults.Upstream.SpotifyPageConcurrency,
		"Parallel Spotify playlist page requests")

	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", defaults.App.Language, fmt.Sprintf("Fallback response language (%s)", supportedLangs))
	flags.Int("rate-limit-per-minute", defaults.App.RateLimitPerMinute,
		"Maximum import requests per client per minute (0 disables)")
	flags.Int("rate-limit-clients", flood.DefaultMaxClients, "Maximum number of tracked rate limit clients")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	bindEnvAliases()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

// bindEnvAliases lets the prefixed name win and falls back to the legacy one.
func bindEnvAliases() {
	for key, alias := range envAliases {
		if err := viper.BindEnv(key, flagToEnvVar(key), alias); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to bind %s: %v\n", alias, err)
		}
	}
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureProviders(cfg)
	configureUpstream(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	setIfNotEmpty(&cfg.Server.Host, viper.GetString("server-host"))
	if port := viper.GetInt("server-port"); port > 0 {
		cfg.Server.Port = port
	}
	if d := viper.GetDuration("server-read-timeout"); d > 0 {
		cfg.Server.ReadTimeout = d
	}
	if d := viper.GetDuration("server-write-timeout"); d > 0 {
		cfg.Server.WriteTimeout = d
	}
	if origin := viper.GetString("cors-origin"); origin != "" {
		cfg.Server.CORSOrigin = origin
	}
	setIfNotEmpty(&cfg.Log.Level, viper.GetString("log-level"))
	setIfNotEmpty(&cfg.Log.Format, viper.GetString("log-format"))
}

func configureProviders(cfg *core.Config) {
	cfg.Yandex.Token = viper.GetString("yandex-token")
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.SoundCloud.ClientID = viper.GetString("soundcloud-client-id")
	cfg.SoundCloud.ClientSecret = viper.GetString("soundcloud-client-secret")

	setIfNotEmpty(&cfg.Yandex.BaseURL, viper.GetString("yandex-base-url"))
	setIfNotEmpty(&cfg.Spotify.TokenURL, viper.GetString("spotify-token-url"))
	setIfNotEmpty(&cfg.Spotify.BaseURL, viper.GetString("spotify-base-url"))
	setIfNotEmpty(&cfg.SoundCloud.TokenURL, viper.GetString("soundcloud-token-url"))
	setIfNotEmpty(&cfg.SoundCloud.BaseURL, viper.GetString("soundcloud-base-url"))
}

func configureUpstream(cfg *core.Config) {
	if d := viper.GetDuration("upstream-timeout"); d > 0 {
		cfg.Upstream.Timeout = d
	}
	if viper.IsSet("token-safety-margin") {
		cfg.Upstream.TokenSafetyMargin = max(viper.GetDuration("token-safety-margin"), 0)
	}
	if n := viper.GetInt("spotify-page-concurrency"); n > 0 {
		cfg.Upstream.SpotifyPageConcurrency = n
	}
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	if viper.IsSet("rate-limit-per-minute") {
		cfg.App.RateLimitPerMinute = max(viper.GetInt("rate-limit-per-minute"), 0)
	}
	cfg.App.RateLimitClients = viper.GetInt("rate-limit-clients")
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") || strings.EqualFold(format, "text") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMelodex(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting melodex",
		zap.String("version", version),
		zap.String("language", config.App.Language),
		zap.Int("rateLimitPerMinute", config.App.RateLimitPerMinute))

	for _, provider := range config.MissingCredentials() {
		logger.Warn("Provider credentials are not configured, imports will fail",
			zap.String("provider", string(provider)))
	}

	server := initializeServer(config, logger)
	return runServer(ctx, server)
}

// initializeServer wires metrics, token caches, resolvers and the rate limiter into the HTTP server.
func initializeServer(cfg *core.Config, log *zap.Logger) *httpserver.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpserver.NewMetrics(registry)

	tokenOpts := []musiclink.TokenCacheOption{
		musiclink.WithSafetyMargin(cfg.Upstream.TokenSafetyMargin),
		musiclink.WithTokenHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
		musiclink.WithGrantHook(metrics.RecordTokenGrant),
	}
	spotifyTokens := musiclink.NewSpotifyTokenCache(
		cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.TokenURL, tokenOpts...)
	soundCloudTokens := musiclink.NewSoundCloudTokenCache(
		cfg.SoundCloud.ClientID, cfg.SoundCloud.ClientSecret, cfg.SoundCloud.TokenURL, tokenOpts...)

	manager := musiclink.NewManager(log.Named("musiclink"),
		musiclink.NewYandexResolver(musiclink.YandexConfig{
			Token:   cfg.Yandex.Token,
			BaseURL: cfg.Yandex.BaseURL,
			Timeout: cfg.Upstream.Timeout,
		}),
		musiclink.NewSpotifyResolver(musiclink.SpotifyConfig{
			BaseURL:         cfg.Spotify.BaseURL,
			Timeout:         cfg.Upstream.Timeout,
			PageConcurrency: cfg.Upstream.SpotifyPageConcurrency,
		}, spotifyTokens),
		musiclink.NewSoundCloudResolver(musiclink.SoundCloudConfig{
			BaseURL: cfg.SoundCloud.BaseURL,
			Timeout: cfg.Upstream.Timeout,
		}, soundCloudTokens),
	)

	return httpserver.NewServer(&cfg.Server, log.Named("http"), httpserver.Dependencies{
		Importer:  manager,
		Floodgate: flood.New(cfg.App.RateLimitPerMinute, cfg.App.RateLimitClients),
		Metrics:   metrics,
		Language:  cfg.App.Language,
	})
}

func runServer(ctx context.Context, server *httpserver.Server) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	logger.Info("melodex started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("melodex stopped with error", zap.Error(err))
		return err
	}

	logger.Info("melodex stopped gracefully")
	return nil
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# melodex Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: MELODEX_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	generateProvidersSection(&content)
	generateUpstreamSection(&content, cmd)
	generateServerSection(&content, cmd)
	generateAppSection(&content, cmd)
	generateLoggingSection(&content, cmd)

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func writeSectionHeader(content *strings.Builder, title, cli string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: %s\n", cli)
}

func generateProvidersSection(content *strings.Builder) {
	writeSectionHeader(content, "Provider Credentials",
		"--yandex-token, --spotify-client-id, --spotify-client-secret, --soundcloud-client-id, --soundcloud-client-secret")
	content.WriteString("# Unprefixed names (YANDEX_MUSIC_TOKEN, SPOTIFY_CLIENT_ID, ...) are accepted too.\n")

	fmt.Fprintf(content, "%s=your_yandex_music_token_here          # OAuth token for the Yandex Music API\n",
		flagToEnvVar("yandex-token"))
	fmt.Fprintf(content, "%s=your_spotify_client_id_here      # https://developer.spotify.com/dashboard\n",
		flagToEnvVar("spotify-client-id"))
	fmt.Fprintf(content, "%s=your_spotify_client_secret_here\n",
		flagToEnvVar("spotify-client-secret"))
	fmt.Fprintf(content, "%s=your_soundcloud_client_id_here    # https://soundcloud.com/you/apps\n",
		flagToEnvVar("soundcloud-client-id"))
	fmt.Fprintf(content, "%s=your_soundcloud_client_secret_here\n",
		flagToEnvVar("soundcloud-client-secret"))
	content.WriteString("\n")
}

func generateUpstreamSection(content *strings.Builder, cmd *cobra.Command) {
	writeSectionHeader(content, "Upstream Calls", "--upstream-timeout, --token-safety-margin, --spotify-page-concurrency")

	for _, name := range []string{"upstream-timeout", "token-safety-margin", "spotify-page-concurrency"} {
		def := getDefaultValueString(cmd, name)
		fmt.Fprintf(content, "%s=%s    # (default: %s)\n", flagToEnvVar(name), def, def)
	}
	content.WriteString("\n")
}

func generateServerSection(content *strings.Builder, cmd *cobra.Command) {
	writeSectionHeader(content, "HTTP Server Configuration", "--server-host, --server-port, --cors-origin")

	hostDefault := getDefaultValueString(cmd, "server-host")
	portDefault := getDefaultValueString(cmd, "server-port")
	corsDefault := getDefaultValueString(cmd, "cors-origin")

	fmt.Fprintf(content, "%s=%s                         # Server bind address (default: %s)\n",
		flagToEnvVar("server-host"), hostDefault, hostDefault)
	fmt.Fprintf(content, "%s=%s                              # Server port, PORT also works (default: %s)\n",
		flagToEnvVar("server-port"), portDefault, portDefault)
	fmt.Fprintf(content, "%s=%s                              # Allowed CORS origin (default: %s)\n",
		flagToEnvVar("cors-origin"), corsDefault, corsDefault)
	content.WriteString("\n")
}

func generateAppSection(content *strings.Builder, cmd *cobra.Command) {
	writeSectionHeader(content, "Localization and Rate Limiting", "--language, --rate-limit-per-minute")

	langDefault := getDefaultValueString(cmd, "language")
	rateDefault := getDefaultValueString(cmd, "rate-limit-per-minute")

	fmt.Fprintf(content, "%s=%s                                # Fallback language: %s (default: %s)\n",
		flagToEnvVar("language"), langDefault, strings.Join(i18n.GetSupportedLanguages(), ", "), langDefault)
	fmt.Fprintf(content, "%s=%s                    # Imports per client per minute, 0=disabled (default: %s)\n",
		flagToEnvVar("rate-limit-per-minute"), rateDefault, rateDefault)
	content.WriteString("\n")
}

func generateLoggingSection(content *strings.Builder, cmd *cobra.Command) {
	writeSectionHeader(content, "Logging Configuration", "--log-level, --log-format")

	logDefault := getDefaultValueString(cmd, "log-level")
	formatDefault := getDefaultValueString(cmd, "log-format")

	fmt.Fprintf(content, "%s=%s                                # Log level: debug, info, warn, error (default: %s)\n",
		flagToEnvVar("log-level"), logDefault, logDefault)
	fmt.Fprintf(content, "%s=%s                               # Log format: json, console (default: %s)\n",
		flagToEnvVar("log-format"), formatDefault, formatDefault)
}
