package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"melodex/internal/i18n"
)

type contextKey string

const localizerKey contextKey = "localizer"

// requestLogger logs every request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordRequest(status)
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.String("remote", r.RemoteAddr))
	})
}

// recoverer turns a handler panic into a localized JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			s.logger.Error("Handler panicked",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.Stack("stack"))
			s.writeError(w, r, http.StatusInternalServerError, "error.internal")
		}()
		next.ServeHTTP(w, r)
	})
}

// secureHeaders stops browsers from sniffing JSON responses as other content types.
func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// cors allows GET requests from the configured origin and answers preflight requests directly.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.config.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// localize picks the response language from Accept-Language.
func (s *Server) localize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.Negotiate(r.Header.Get("Accept-Language"), s.language)
		ctx := context.WithValue(r.Context(), localizerKey, i18n.NewLocalizer(lang))
		w.Header().Set("Content-Language", lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) localizer(r *http.Request) *i18n.Localizer {
	if l, ok := r.Context().Value(localizerKey).(*i18n.Localizer); ok {
		return l
	}
	// Outer middleware such as the recoverer runs before localize.
	return i18n.NewLocalizer(i18n.Negotiate(r.Header.Get("Accept-Language"), s.language))
}

// rateLimit rejects clients that exceed the per-minute import budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.floodgate == nil {
			next.ServeHTTP(w, r)
			return
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if !s.floodgate.CheckRequest(route, clientIP(r)) {
			s.metrics.RecordRateLimited()
			w.Header().Set("Retry-After", "60")
			s.writeError(w, r, http.StatusTooManyRequests, "error.rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr, already rewritten by middleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
