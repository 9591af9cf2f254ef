// Package musiclink imports playlists from Yandex Music, Spotify and SoundCloud into one canonical shape.
package musiclink

import (
	"context"
	"strings"
)

// Provider identifies an external music service.
type Provider string

const (
	// ProviderYandex is Yandex Music.
	ProviderYandex Provider = "yandex"
	// ProviderSpotify is Spotify.
	ProviderSpotify Provider = "spotify"
	// ProviderSoundCloud is SoundCloud.
	ProviderSoundCloud Provider = "soundcloud"
)

// Providers returns every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderYandex, ProviderSpotify, ProviderSoundCloud}
}

// ParseProvider converts a path segment such as "spotify" into a Provider.
func ParseProvider(name string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderYandex, ProviderSpotify, ProviderSoundCloud:
		return p, true
	}
	return "", false
}

// DisplayName returns the human readable service name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderYandex:
		return "Yandex Music"
	case ProviderSpotify:
		return "Spotify"
	case ProviderSoundCloud:
		return "SoundCloud"
	}
	return string(p)
}

// Artist is a performer credited on a track.
type Artist struct {
	Name string `json:"name"`
}

// Album is the release a track belongs to.
type Album struct {
	Title string `json:"title"`
}

// Track is the canonical track representation shared by all providers.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []Artist `json:"artists"`
	Albums     []Album  `json:"albums"`
	Cover      *string  `json:"cover"`
	DurationMs int      `json:"durationMs"`
}

// Playlist is the canonical playlist representation returned by every import.
//
// TrackCount always equals len(Tracks); the provider's advertised count is never copied.
type Playlist struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TrackCount  int     `json:"trackCount"`
	Cover       *string `json:"cover"`
	Tracks      []Track `json:"tracks"`
}

// Resolver turns a playlist URL of one provider into a canonical Playlist.
type Resolver interface {
	// Resolve fetches and normalizes the playlist behind the URL.
	Resolve(ctx context.Context, url string) (*Playlist, error)

	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool

	// Provider reports which service the resolver talks to.
	Provider() Provider
}
