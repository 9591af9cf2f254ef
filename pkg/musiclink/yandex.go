package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	// YandexAPIBaseURL is the Yandex Music API endpoint.
	YandexAPIBaseURL  = "https://api.music.yandex.net"
	yandexServiceName = "Yandex Music"
)

var yandexPlaylistPath = regexp.MustCompile(`/users/([^/?#]+)/playlists/(\d+)`)

// YandexConfig configures the Yandex Music resolver.
type YandexConfig struct {
	// Token is the operator-provisioned long-lived OAuth token.
	Token   string
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// YandexResolver resolves Yandex Music user playlists.
type YandexResolver struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewYandexResolver creates a new Yandex Music playlist resolver.
func NewYandexResolver(config YandexConfig) *YandexResolver {
	client := config.Client
	if client == nil {
		client = newHTTPClient(config.Timeout)
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = YandexAPIBaseURL
	}
	return &YandexResolver{
		client:  client,
		baseURL: baseURL,
		token:   config.Token,
	}
}

// Provider implements Resolver.
func (r *YandexResolver) Provider() Provider {
	return ProviderYandex
}

// CanResolve checks if the URL is a Yandex Music user playlist link.
func (r *YandexResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	hostname = strings.TrimPrefix(hostname, "www.")
	if !strings.HasPrefix(hostname, "music.yandex.") {
		return false
	}
	return yandexPlaylistPath.MatchString(u.Path)
}

// ParseYandexPlaylistURL extracts the owner login and playlist kind from a playlist link.
func ParseYandexPlaylistURL(rawURL string) (username, kind string, err error) {
	matches := yandexPlaylistPath.FindStringSubmatch(rawURL)
	if matches == nil {
		return "", "", invalidURLError("expected .../users/<username>/playlists/<kind>")
	}
	username, err = url.PathUnescape(matches[1])
	if err != nil || username == "" {
		return "", "", invalidURLError("malformed playlist owner")
	}
	return username, matches[2], nil
}

// Resolve fetches the playlist named by the URL.
func (r *YandexResolver) Resolve(ctx context.Context, rawURL string) (*Playlist, error) {
	username, kind, err := ParseYandexPlaylistURL(rawURL)
	if err != nil {
		return nil, err
	}
	return r.ResolveOwned(ctx, username, kind)
}

// ResolveOwned fetches a playlist by owner login and numeric kind.
func (r *YandexResolver) ResolveOwned(ctx context.Context, username, kind string) (*Playlist, error) {
	if username == "" || kind == "" || strings.Trim(kind, "0123456789") != "" {
		return nil, invalidURLError("invalid playlist owner or kind")
	}

	raw, err := r.fetchPlaylist(ctx, username, kind)
	if err != nil {
		return nil, err
	}
	return mapYandexPlaylist(raw, username+":"+kind), nil
}

func (r *YandexResolver) fetchPlaylist(ctx context.Context, username, kind string) (*yandexPlaylist, error) {
	if r.token == "" {
		return nil, &ImportError{
			Kind:    KindAuthFailure,
			Message: "Yandex Music token is not configured",
			Err:     ErrMissingCredentials,
		}
	}

	endpoint := fmt.Sprintf("%s/users/%s/playlists/%s", r.baseURL, url.PathEscape(username), kind)
	req, err := newJSONRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+r.token)
	req.Header.Set("Accept-Language", "ru")

	body, err := fetchBody(r.client, req, yandexServiceName)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() || result.Type == gjson.Null || (result.IsObject() && len(result.Map()) == 0) {
		return nil, &ImportError{Kind: KindNotFound, Message: "playlist not found"}
	}

	var playlist yandexPlaylist
	if err := decodePayload([]byte(result.Raw), &playlist, yandexServiceName); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// yandexPlaylist is the "result" object of the playlist-by-owner endpoint.
type yandexPlaylist struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	TrackCount  int               `json:"trackCount"`
	OgImage     string            `json:"ogImage"`
	Cover       yandexCover       `json:"cover"`
	Tracks      []yandexTrackItem `json:"tracks"`
}

type yandexCover struct {
	Type     string   `json:"type"`
	URI      string   `json:"uri"`
	ItemsURI []string `json:"itemsUri"`
}

type yandexTrackItem struct {
	ID    flexibleID   `json:"id"`
	Track *yandexTrack `json:"track"`
}

type yandexTrack struct {
	ID         flexibleID     `json:"id"`
	Title      string         `json:"title"`
	DurationMs int            `json:"durationMs"`
	CoverURI   string         `json:"coverUri"`
	Artists    []yandexArtist `json:"artists"`
	Albums     []yandexAlbum  `json:"albums"`
}

type yandexArtist struct {
	Name string `json:"name"`
}

type yandexAlbum struct {
	Title    string `json:"title"`
	CoverURI string `json:"coverUri"`
}

// mapYandexPlaylist converts a raw Yandex playlist into the canonical shape.
func mapYandexPlaylist(raw *yandexPlaylist, playlistID string) *Playlist {
	coverTemplate := raw.OgImage
	if len(raw.Cover.ItemsURI) > 0 && raw.Cover.ItemsURI[0] != "" {
		coverTemplate = raw.Cover.ItemsURI[0]
	} else if coverTemplate == "" {
		coverTemplate = raw.Cover.URI
	}

	tracks := lo.FilterMap(raw.Tracks, func(item yandexTrackItem, position int) (Track, bool) {
		if item.Track == nil {
			return Track{}, false
		}
		t := item.Track

		id := string(item.ID)
		if id == "" {
			id = string(t.ID)
		}
		if id == "" {
			id = fallbackTrackID(ProviderYandex, playlistID, position, t.Title)
		}

		var albumTitle, trackCover string
		trackCover = t.CoverURI
		if len(t.Albums) > 0 {
			albumTitle = t.Albums[0].Title
			if trackCover == "" {
				trackCover = t.Albums[0].CoverURI
			}
		}

		return Track{
			ID:    id,
			Title: titleOrFallback(t.Title),
			Artists: artistsOrFallback(lo.Map(t.Artists, func(a yandexArtist, _ int) string {
				return a.Name
			})),
			Albums:     singleAlbum(albumTitle),
			Cover:      resizeCover(trackCover),
			DurationMs: nonNegative(t.DurationMs),
		}, true
	})

	return newPlaylist(raw.Title, raw.Description, resizeCover(coverTemplate), tracks)
}
