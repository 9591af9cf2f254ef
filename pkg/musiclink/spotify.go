package musiclink

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// SpotifyAPIBaseURL is the Spotify Web API endpoint.
	SpotifyAPIBaseURL = "https://api.spotify.com"
	// SpotifyPageSize is the number of playlist items requested per page.
	SpotifyPageSize = 100
	// DefaultSpotifyPageConcurrency bounds how many pages are fetched at once.
	DefaultSpotifyPageConcurrency = 4

	spotifyPlaylistFields = "name,description,images,tracks.total"
)

var spotifyPlaylistID = regexp.MustCompile(`playlist[/:]([A-Za-z0-9]+)`)

// SpotifyConfig configures the Spotify resolver.
type SpotifyConfig struct {
	BaseURL         string
	Timeout         time.Duration
	PageConcurrency int
	// Transport is the round tripper used under the bearer authorization layer.
	Transport http.RoundTripper
}

// SpotifyResolver resolves Spotify playlists through the Web API.
type SpotifyResolver struct {
	client      *spotify.Client
	tokens      *TokenCache
	concurrency int
}

// NewSpotifyResolver creates a Spotify resolver authorized by tokens.
func NewSpotifyResolver(config SpotifyConfig, tokens *TokenCache) *SpotifyResolver {
	httpClient := newHTTPClient(config.Timeout)
	httpClient.Transport = &bearerTransport{tokens: tokens, scheme: "Bearer", base: config.Transport}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = SpotifyAPIBaseURL
	}

	concurrency := config.PageConcurrency
	if concurrency <= 0 {
		concurrency = DefaultSpotifyPageConcurrency
	}

	return &SpotifyResolver{
		client:      spotify.New(httpClient, spotify.WithBaseURL(baseURL+"/v1/")),
		tokens:      tokens,
		concurrency: concurrency,
	}
}

// Provider implements Resolver.
func (r *SpotifyResolver) Provider() Provider {
	return ProviderSpotify
}

// CanResolve checks if the URL is a Spotify playlist link or URI.
func (r *SpotifyResolver) CanResolve(rawURL string) bool {
	if strings.HasPrefix(rawURL, "spotify:playlist:") {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := strings.ToLower(u.Hostname())
	if hostname != "open.spotify.com" && hostname != "play.spotify.com" {
		return false
	}
	return spotifyPlaylistID.MatchString(u.Path)
}

// ParseSpotifyPlaylistID extracts the playlist id from a link such as
// https://open.spotify.com/playlist/<id> or spotify:playlist:<id>.
func ParseSpotifyPlaylistID(rawURL string) (string, error) {
	matches := spotifyPlaylistID.FindStringSubmatch(rawURL)
	if matches == nil {
		return "", invalidURLError("expected a playlist/<id> link")
	}
	return matches[1], nil
}

// Resolve fetches the playlist metadata and every track page.
func (r *SpotifyResolver) Resolve(ctx context.Context, rawURL string) (*Playlist, error) {
	playlistID, err := ParseSpotifyPlaylistID(rawURL)
	if err != nil {
		return nil, err
	}

	// Fail before any API call when credentials are missing or rejected.
	if _, err := r.tokens.Token(ctx); err != nil {
		return nil, err
	}

	meta, err := r.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields(spotifyPlaylistFields))
	if err != nil {
		if spotifyStatus(err) == http.StatusNotFound {
			return nil, &ImportError{Kind: KindNotFound, Message: "playlist not found", Err: err}
		}
		return nil, r.classify(err, "failed to fetch playlist")
	}

	items, err := r.fetchItems(ctx, spotify.ID(playlistID), int(meta.Tracks.Total))
	if err != nil {
		return nil, err
	}

	return mapSpotifyPlaylist(meta, items, playlistID), nil
}

// fetchItems loads every page of the track list. Pages are fetched in parallel and stored by
// offset, so the concatenation keeps the playlist order.
func (r *SpotifyResolver) fetchItems(ctx context.Context, id spotify.ID, total int) ([]spotify.PlaylistItem, error) {
	if total <= 0 {
		return nil, nil
	}

	pages := make([][]spotify.PlaylistItem, (total+SpotifyPageSize-1)/SpotifyPageSize)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range pages {
		offset := i * SpotifyPageSize
		g.Go(func() error {
			page, err := r.client.GetPlaylistItems(gctx, id, spotify.Limit(SpotifyPageSize), spotify.Offset(offset))
			if err != nil {
				return r.classify(err, "failed to fetch playlist page")
			}
			pages[i] = page.Items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lo.Flatten(pages), nil
}

// classify turns a client error into an ImportError. A rejected token is dropped from the cache
// so the next import performs a fresh grant.
func (r *SpotifyResolver) classify(err error, message string) error {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}

	status := spotifyStatus(err)
	if status == http.StatusUnauthorized {
		r.tokens.Invalidate()
	}
	return upstreamError(status, err, "Spotify: %s", message)
}

func spotifyStatus(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Status
	}
	return 0
}

// mapSpotifyPlaylist converts the metadata and accumulated items into the canonical shape.
// Items without a track object are removed before counting.
func mapSpotifyPlaylist(meta *spotify.FullPlaylist, items []spotify.PlaylistItem, playlistID string) *Playlist {
	tracks := lo.FilterMap(items, func(item spotify.PlaylistItem, position int) (Track, bool) {
		t := item.Track.Track
		if t == nil {
			return Track{}, false
		}

		id := string(t.ID)
		if id == "" {
			id = fallbackTrackID(ProviderSpotify, playlistID, position, t.Name)
		}

		return Track{
			ID:    id,
			Title: titleOrFallback(t.Name),
			Artists: artistsOrFallback(lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string {
				return a.Name
			})),
			Albums:     singleAlbum(t.Album.Name),
			Cover:      firstImage(t.Album.Images),
			DurationMs: nonNegative(int(t.Duration)),
		}, true
	})

	return newPlaylist(meta.Name, meta.Description, firstImage(meta.Images), tracks)
}

func firstImage(images []spotify.Image) *string {
	if len(images) == 0 {
		return nil
	}
	return resizeCover(images[0].URL)
}
