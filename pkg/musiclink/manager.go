package musiclink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Manager dispatches imports to the resolver registered for each provider.
// It is the only entry point the HTTP layer uses and it never returns an untyped error.
type Manager struct {
	logger    *zap.Logger
	resolvers map[Provider]Resolver
	order     []Provider
}

// NewManager creates a manager over the given resolvers. A later resolver for the same provider
// replaces an earlier one.
func NewManager(logger *zap.Logger, resolvers ...Resolver) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:    logger,
		resolvers: make(map[Provider]Resolver, len(resolvers)),
	}
	for _, resolver := range resolvers {
		if _, exists := m.resolvers[resolver.Provider()]; !exists {
			m.order = append(m.order, resolver.Provider())
		}
		m.resolvers[resolver.Provider()] = resolver
	}
	return m
}

// Resolve imports the playlist at url from provider. One call performs at most one attempt
// against the provider; retrying is left to the caller.
func (m *Manager) Resolve(ctx context.Context, provider Provider, url string) (playlist *Playlist, err error) {
	resolver, ok := m.resolvers[provider]
	if !ok {
		return nil, &ImportError{Kind: KindInternal, Provider: provider, Message: "no resolver registered", Err: ErrUnknownProvider}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			playlist = nil
			err = &ImportError{Kind: KindInternal, Provider: provider, Message: "resolver panicked", Err: fmt.Errorf("%v", r)}
		}
		m.logResult(provider, url, start, playlist, err)
	}()

	playlist, err = resolver.Resolve(ctx, url)
	if err != nil {
		ie := AsImportError(err)
		if ie.Provider == "" {
			ie.Provider = provider
		}
		return nil, ie
	}
	if playlist == nil {
		return nil, &ImportError{Kind: KindInternal, Provider: provider, Message: "resolver returned no playlist"}
	}
	return playlist, nil
}

// Detect returns the provider whose resolver accepts url.
func (m *Manager) Detect(url string) (Provider, bool) {
	for _, provider := range m.order {
		if m.resolvers[provider].CanResolve(url) {
			return provider, true
		}
	}
	return "", false
}

// CanResolve checks if any resolver can handle the given URL.
func (m *Manager) CanResolve(url string) bool {
	_, ok := m.Detect(url)
	return ok
}

// Providers lists the registered providers in registration order.
func (m *Manager) Providers() []Provider {
	return append([]Provider(nil), m.order...)
}

func (m *Manager) logResult(provider Provider, url string, start time.Time, playlist *Playlist, err error) {
	fields := []zap.Field{
		zap.String("provider", string(provider)),
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err == nil {
		m.logger.Debug("Playlist imported", append(fields, zap.Int("tracks", playlist.TrackCount))...)
		return
	}

	ie := AsImportError(err)
	fields = append(fields, zap.String("kind", string(ie.Kind)), zap.Error(err))
	switch ie.Kind {
	case KindInternal, KindAuthFailure:
		m.logger.Error("Playlist import failed", fields...)
	case KindUpstream:
		m.logger.Warn("Playlist import failed", append(fields, zap.Int("status", ie.Status))...)
	default:
		m.logger.Debug("Playlist import rejected", fields...)
	}
}
