package musiclink

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap/zaptest"
)

type stubResolver struct {
	provider Provider
	prefix   string
	resolve  func(ctx context.Context, url string) (*Playlist, error)
	calls    int
}

func (s *stubResolver) Resolve(ctx context.Context, url string) (*Playlist, error) {
	s.calls++
	return s.resolve(ctx, url)
}

func (s *stubResolver) CanResolve(url string) bool {
	return len(url) >= len(s.prefix) && url[:len(s.prefix)] == s.prefix
}

func (s *stubResolver) Provider() Provider {
	return s.provider
}

func TestManager_Detect(t *testing.T) {
	manager := NewManager(nil,
		NewYandexResolver(YandexConfig{}),
		NewSpotifyResolver(SpotifyConfig{}, NewSpotifyTokenCache("", "", "")),
		NewSoundCloudResolver(SoundCloudConfig{}, NewSoundCloudTokenCache("", "", "")),
	)

	tests := []struct {
		name     string
		url      string
		expected Provider
		ok       bool
	}{
		{name: "Yandex playlist", url: "https://music.yandex.ru/users/music-blog/playlists/2379", expected: ProviderYandex, ok: true},
		{name: "Spotify playlist", url: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", expected: ProviderSpotify, ok: true},
		{name: "SoundCloud set", url: "https://soundcloud.com/artist/sets/mix", expected: ProviderSoundCloud, ok: true},
		{name: "YouTube - not supported", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", ok: false},
		{name: "Unknown URL", url: "https://example.com", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := manager.Detect(tt.url)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("Detect(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.expected, tt.ok)
			}
			if manager.CanResolve(tt.url) != tt.ok {
				t.Errorf("CanResolve(%q) = %v, want %v", tt.url, !tt.ok, tt.ok)
			}
		})
	}

	if got := manager.Providers(); len(got) != 3 || got[0] != ProviderYandex {
		t.Errorf("Providers() = %v", got)
	}
}

func TestManager_Resolve(t *testing.T) {
	want := newPlaylist("Mix", "", nil, []Track{{ID: "1", Title: "A"}})

	tests := []struct {
		name     string
		resolve  func(ctx context.Context, url string) (*Playlist, error)
		provider Provider
		wantKind ErrorKind
	}{
		{
			name:     "Success",
			provider: ProviderSpotify,
			resolve:  func(context.Context, string) (*Playlist, error) { return want, nil },
		},
		{
			name:     "Typed error keeps its kind",
			provider: ProviderSpotify,
			resolve: func(context.Context, string) (*Playlist, error) {
				return nil, &ImportError{Kind: KindNotFound, Message: "gone"}
			},
			wantKind: KindNotFound,
		},
		{
			name:     "Untyped error becomes Internal",
			provider: ProviderSpotify,
			resolve:  func(context.Context, string) (*Playlist, error) { return nil, errors.New("boom") },
			wantKind: KindInternal,
		},
		{
			name:     "Panic becomes Internal",
			provider: ProviderSpotify,
			resolve:  func(context.Context, string) (*Playlist, error) { panic("mapper exploded") },
			wantKind: KindInternal,
		},
		{
			name:     "Nil playlist becomes Internal",
			provider: ProviderSpotify,
			resolve:  func(context.Context, string) (*Playlist, error) { return nil, nil },
			wantKind: KindInternal,
		},
		{
			name:     "Unregistered provider",
			provider: ProviderYandex,
			resolve:  func(context.Context, string) (*Playlist, error) { return want, nil },
			wantKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubResolver{provider: ProviderSpotify, prefix: "https://open.spotify.com/", resolve: tt.resolve}
			manager := NewManager(zaptest.NewLogger(t), stub)

			got, err := manager.Resolve(context.Background(), tt.provider, "https://open.spotify.com/playlist/x")
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Resolve() error = %v", err)
				}
				if got != want {
					t.Errorf("Resolve() = %+v, want %+v", got, want)
				}
				return
			}

			var ie *ImportError
			if !errors.As(err, &ie) {
				t.Fatalf("Resolve() error = %T %v, want *ImportError", err, err)
			}
			if ie.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", ie.Kind, tt.wantKind)
			}
			if ie.Provider != tt.provider {
				t.Errorf("Provider = %q, want %q", ie.Provider, tt.provider)
			}
			if got != nil {
				t.Errorf("Resolve() returned playlist alongside error")
			}
		})
	}
}

func TestManager_ResolveDoesNotRetry(t *testing.T) {
	stub := &stubResolver{
		provider: ProviderSoundCloud,
		resolve: func(context.Context, string) (*Playlist, error) {
			return nil, upstreamError(503, nil, "unavailable")
		},
	}
	manager := NewManager(zaptest.NewLogger(t), stub)

	_, err := manager.Resolve(context.Background(), ProviderSoundCloud, "https://soundcloud.com/a/sets/b")
	if ie := AsImportError(err); !ie.Retryable() || ie.Status != 503 {
		t.Errorf("Resolve() error = %v, want retryable 503", err)
	}
	if stub.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", stub.calls)
	}
}

func TestManager_ResolveYandexEndToEnd(t *testing.T) {
	server, _ := newYandexServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(yandexPlaylistFixture))
	})
	manager := NewManager(zaptest.NewLogger(t), NewYandexResolver(YandexConfig{Token: "t", BaseURL: server.URL}))

	playlist, err := manager.Resolve(context.Background(), ProviderYandex, "https://music.yandex.ru/users/music-blog/playlists/2379")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if playlist.Title != "Test" || len(playlist.Tracks) != 2 {
		t.Errorf("playlist = %q with %d tracks, want Test with 2", playlist.Title, len(playlist.Tracks))
	}
}
