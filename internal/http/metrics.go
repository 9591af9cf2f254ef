package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"melodex/pkg/musiclink"
)

const resultSuccess = "success"

type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	ImportsTotal   *prometheus.CounterVec
	ImportDuration *prometheus.HistogramVec
	TracksImported *prometheus.CounterVec
	TokenGrants    *prometheus.CounterVec
	RateLimited    prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the service collectors and registers them on registry.
// A nil registry gets a fresh one, which keeps tests independent of the global registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_http_requests_total",
				Help: "Total number of HTTP requests by status code",
			},
			[]string{"code"},
		),
		ImportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_imports_total",
				Help: "Total number of playlist imports by provider and result",
			},
			[]string{"provider", "result"},
		),
		ImportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "melodex_import_duration_seconds",
				Help:    "Time spent importing a playlist",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		TracksImported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_tracks_imported_total",
				Help: "Total number of tracks returned by successful imports",
			},
			[]string{"provider"},
		),
		TokenGrants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodex_token_grants_total",
				Help: "Total number of client-credentials grant requests",
			},
			[]string{"provider", "result"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "melodex_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		metrics.RequestsTotal,
		metrics.ImportsTotal,
		metrics.ImportDuration,
		metrics.TracksImported,
		metrics.TokenGrants,
		metrics.RateLimited,
	)

	return metrics
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequest(status int) {
	m.RequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordImport records the outcome of one import. err must be nil or an *musiclink.ImportError.
func (m *Metrics) RecordImport(provider musiclink.Provider, duration time.Duration, playlist *musiclink.Playlist, err error) {
	result := resultSuccess
	if err != nil {
		result = string(musiclink.AsImportError(err).Kind)
	}
	m.ImportsTotal.WithLabelValues(string(provider), result).Inc()
	m.ImportDuration.WithLabelValues(string(provider)).Observe(duration.Seconds())
	if playlist != nil {
		m.TracksImported.WithLabelValues(string(provider)).Add(float64(playlist.TrackCount))
	}
}

// RecordTokenGrant matches musiclink.WithGrantHook.
func (m *Metrics) RecordTokenGrant(provider musiclink.Provider, err error) {
	result := resultSuccess
	if err != nil {
		result = "failure"
	}
	m.TokenGrants.WithLabelValues(string(provider), result).Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}
