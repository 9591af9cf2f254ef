package musiclink

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const (
	// SoundCloudAPIBaseURL is the SoundCloud public API endpoint.
	SoundCloudAPIBaseURL   = "https://api.soundcloud.com"
	soundCloudServiceName  = "SoundCloud"
	soundCloudPlaylistKind = "playlist"
)

// SoundCloudConfig configures the SoundCloud resolver.
type SoundCloudConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// SoundCloudResolver resolves SoundCloud sets through the generic resolve endpoint.
type SoundCloudResolver struct {
	client  *http.Client
	tokens  *TokenCache
	baseURL string
}

// NewSoundCloudResolver creates a new SoundCloud playlist resolver.
func NewSoundCloudResolver(config SoundCloudConfig, tokens *TokenCache) *SoundCloudResolver {
	client := newHTTPClient(config.Timeout)
	client.Transport = &bearerTransport{tokens: tokens, scheme: "OAuth", base: config.Transport}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = SoundCloudAPIBaseURL
	}

	return &SoundCloudResolver{
		client:  client,
		tokens:  tokens,
		baseURL: baseURL,
	}
}

// Provider implements Resolver.
func (r *SoundCloudResolver) Provider() Provider {
	return ProviderSoundCloud
}

// CanResolve checks if the URL is a SoundCloud link.
func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	// Support main, mobile, and short link domains.
	switch hostname {
	case "soundcloud.com", "www.soundcloud.com", "m.soundcloud.com", "on.soundcloud.com":
		return true
	}
	return false
}

// Resolve resolves the URL and maps the playlist with its embedded tracks.
// The provider decides what the link points to; anything other than a set is rejected.
func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*Playlist, error) {
	if !r.CanResolve(rawURL) {
		return nil, invalidURLError("not a SoundCloud URL")
	}

	if _, err := r.tokens.Token(ctx); err != nil {
		return nil, err
	}

	endpoint := r.baseURL + "/resolve?" + url.Values{"url": {rawURL}}.Encode()
	req, err := newJSONRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	body, err := fetchBody(r.client, req, soundCloudServiceName)
	if err != nil {
		if ie := AsImportError(err); ie.Status == http.StatusUnauthorized {
			r.tokens.Invalidate()
		}
		return nil, err
	}

	if kind := gjson.GetBytes(body, "kind").String(); kind != soundCloudPlaylistKind {
		return nil, &ImportError{
			Kind:    KindNotAPlaylist,
			Message: "link resolves to " + lo.Ternary(kind == "", "an unknown resource", kind),
		}
	}

	var raw soundCloudPlaylist
	if err := decodePayload(body, &raw, soundCloudServiceName); err != nil {
		return nil, err
	}
	return mapSoundCloudPlaylist(&raw), nil
}

type soundCloudPlaylist struct {
	ID          flexibleID        `json:"id"`
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ArtworkURL  string            `json:"artwork_url"`
	TrackCount  int               `json:"track_count"`
	Tracks      []soundCloudTrack `json:"tracks"`
}

type soundCloudTrack struct {
	ID                flexibleID `json:"id"`
	Title             string     `json:"title"`
	Duration          int        `json:"duration"`
	ArtworkURL        string     `json:"artwork_url"`
	PublisherMetadata *struct {
		Artist string `json:"artist"`
	} `json:"publisher_metadata"`
	User *struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user"`
}

func (t soundCloudTrack) username() string {
	if t.User == nil {
		return ""
	}
	return strings.TrimSpace(t.User.Username)
}

func (t soundCloudTrack) artist() string {
	if t.PublisherMetadata != nil && strings.TrimSpace(t.PublisherMetadata.Artist) != "" {
		return t.PublisherMetadata.Artist
	}
	return t.username()
}

// mapSoundCloudPlaylist converts a resolved set into the canonical shape. The uploader stands in
// for the album, and durations are already milliseconds.
func mapSoundCloudPlaylist(raw *soundCloudPlaylist) *Playlist {
	tracks := lo.Map(raw.Tracks, func(t soundCloudTrack, position int) Track {
		id := string(t.ID)
		if id == "" {
			id = fallbackTrackID(ProviderSoundCloud, string(raw.ID), position, t.Title)
		}
		return Track{
			ID:         id,
			Title:      titleOrFallback(t.Title),
			Artists:    artistsOrFallback(lo.Compact([]string{strings.TrimSpace(t.artist())})),
			Albums:     singleAlbum(t.username()),
			Cover:      soundCloudArtwork(t.ArtworkURL),
			DurationMs: nonNegative(t.Duration),
		}
	})

	cover := soundCloudArtwork(raw.ArtworkURL)
	if cover == nil {
		if first, ok := lo.Find(tracks, func(t Track) bool { return t.Cover != nil }); ok {
			cover = first.Cover
		}
	}

	return newPlaylist(raw.Title, raw.Description, cover, tracks)
}
