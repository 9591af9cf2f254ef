package http

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"melodex/pkg/musiclink"
	"melodex/pkg/text"
)

// yandexPlaylistURL rebuilds a playlist link for the owner/kind route.
const yandexPlaylistURL = "https://music.yandex.ru/users/%s/playlists/%s"

type resultEnvelope struct {
	Result *musiclink.Playlist `json:"result"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, key string) {
	writeJSON(w, status, errorEnvelope{Error: s.localizer(r).T(key)})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "error.resource_not_found")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "service": serviceName})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
}

// handleResolve serves GET /api/{provider}/resolve?url=.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	provider, ok := musiclink.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}

	rawURL, ok := s.requireURL(w, r)
	if !ok {
		return
	}
	s.resolve(w, r, provider, rawURL)
}

// handleDetectAndResolve serves GET /api/resolve?url= and picks the provider from the link.
func (s *Server) handleDetectAndResolve(w http.ResponseWriter, r *http.Request) {
	rawURL, ok := s.requireURL(w, r)
	if !ok {
		return
	}
	provider, ok := s.importer.Detect(rawURL)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "error.unsupported_link")
		return
	}
	s.resolve(w, r, provider, rawURL)
}

// handleYandexOwnerPlaylist serves GET /api/users/{username}/playlists/{kind}.
func (s *Server) handleYandexOwnerPlaylist(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	kind := chi.URLParam(r, "kind")
	if username == "" || kind == "" || strings.Trim(kind, "0123456789") != "" {
		s.writeError(w, r, http.StatusBadRequest, "error.invalid_params")
		return
	}
	s.resolve(w, r, musiclink.ProviderYandex, fmt.Sprintf(yandexPlaylistURL, url.PathEscape(username), kind))
}

// requireURL validates the url query parameter and writes the 400 response itself.
func (s *Server) requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	rawURL := text.CleanLink(r.URL.Query().Get("url"))
	if rawURL == "" {
		s.writeError(w, r, http.StatusBadRequest, "error.missing_url")
		return "", false
	}
	if !wellFormedURL(rawURL) {
		s.writeError(w, r, http.StatusBadRequest, "error.malformed_url")
		return "", false
	}
	return rawURL, true
}

// wellFormedURL accepts absolute URLs with a host and opaque URIs such as spotify:playlist:<id>.
func wellFormedURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, provider musiclink.Provider, rawURL string) {
	start := time.Now()
	playlist, err := s.importer.Resolve(r.Context(), provider, rawURL)
	s.metrics.RecordImport(provider, time.Since(start), playlist, err)

	if err != nil {
		ie := musiclink.AsImportError(err)
		status, key := statusFor(ie)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Import failed",
				zap.String("provider", string(provider)),
				zap.String("kind", string(ie.Kind)),
				zap.Int("upstreamStatus", ie.Status),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
		s.writeError(w, r, status, key)
		return
	}

	writeJSON(w, http.StatusOK, resultEnvelope{Result: playlist})
}

// statusFor maps an import failure to the response status and message key.
// Upstream bodies are never forwarded; only the status survives.
func statusFor(ie *musiclink.ImportError) (int, string) {
	switch ie.Kind {
	case musiclink.KindInvalidURL:
		return http.StatusBadRequest, "error.invalid_url"
	case musiclink.KindNotAPlaylist:
		return http.StatusBadRequest, "error.not_a_playlist"
	case musiclink.KindNotFound:
		return http.StatusNotFound, "error.playlist_not_found"
	case musiclink.KindAuthFailure:
		return http.StatusInternalServerError, "error.server_config"
	case musiclink.KindUpstream:
		if ie.Status == http.StatusNotFound {
			return http.StatusNotFound, "error.playlist_not_found"
		}
		if ie.Status >= http.StatusBadRequest && ie.Status <= 599 {
			return ie.Status, "error.upstream"
		}
		return http.StatusInternalServerError, "error.upstream"
	default:
		return http.StatusInternalServerError, "error.internal"
	}
}

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">🎵 {{.Title}}</h1>
    <p>{{.Providers}}</p>
    <p><code>{{.Usage}}</code></p>

    <h2>Endpoints</h2>
    <div class="endpoint">📊 <a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint">💚 <a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint">✅ <a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`))

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	l := s.localizer(r)
	names := lo.Map(musiclink.Providers(), func(p musiclink.Provider, _ int) string {
		return p.DisplayName()
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := homeTemplate.Execute(w, map[string]string{
		"Lang":      l.Language(),
		"Title":     l.T("page.title"),
		"Providers": l.T("page.providers", strings.Join(names, ", ")),
		"Usage":     l.T("page.usage"),
	})
	if err != nil {
		s.logger.Warn("Failed to render home page", zap.Error(err))
	}
}
