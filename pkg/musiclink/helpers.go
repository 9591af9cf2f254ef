package musiclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	// DefaultHTTPTimeout bounds every individual outbound call.
	DefaultHTTPTimeout = 5 * time.Second
	// UnknownTitle replaces a missing track title.
	UnknownTitle = "Unknown Title"
	// UnknownArtist replaces a missing artist name.
	UnknownArtist = "Unknown Artist"
	// coverSize is substituted into provider image templates.
	coverSize = "200x200"
	// maxResponseSize caps the body read from a provider.
	maxResponseSize = 32 << 20
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")

	soundCloudArtworkSuffix = regexp.MustCompile(`-[A-Za-z0-9]+\.jpg$`)
)

// newHTTPClient creates a new HTTP client with the per-call timeout and redirect validation.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchBody performs req and returns the body of a 2xx response.
// Transport failures and non-2xx statuses become KindUpstream errors; the upstream body is never
// copied into the error message.
func fetchBody(client *http.Client, req *http.Request, serviceName string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, upstreamError(0, err, "%s request failed", serviceName)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, upstreamError(resp.StatusCode, nil, "%s returned an error", serviceName)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, upstreamError(0, err, "failed to read %s response", serviceName)
	}
	return body, nil
}

// newJSONRequest builds an outbound GET that expects JSON.
func newJSONRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &ImportError{Kind: KindInternal, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func decodePayload(body []byte, dest any, serviceName string) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return upstreamError(0, err, "failed to decode %s response", serviceName)
	}
	return nil
}

// resizeCover expands a provider image template to an absolute 200x200 URL.
func resizeCover(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	cover := strings.ReplaceAll(raw, "%%", coverSize)
	switch {
	case strings.HasPrefix(cover, "//"):
		cover = "https:" + cover
	case !strings.Contains(cover, "://"):
		cover = "https://" + cover
	}
	return &cover
}

// soundCloudArtwork swaps the "-<size>.jpg" suffix for the 200x200 variant.
func soundCloudArtwork(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return resizeCover(soundCloudArtworkSuffix.ReplaceAllString(raw, "-t"+coverSize+".jpg"))
}

func titleOrFallback(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return UnknownTitle
	}
	return title
}

// artistsOrFallback keeps the provider order and guarantees at least one entry.
func artistsOrFallback(names []string) []Artist {
	if len(names) == 0 {
		return []Artist{{Name: UnknownArtist}}
	}
	return lo.Map(names, func(name string, _ int) Artist {
		name = strings.TrimSpace(name)
		if name == "" {
			name = UnknownArtist
		}
		return Artist{Name: name}
	})
}

// singleAlbum returns zero or one album entries.
func singleAlbum(title string) []Album {
	title = strings.TrimSpace(title)
	if title == "" {
		return []Album{}
	}
	return []Album{{Title: title}}
}

func nonNegative(durationMs int) int {
	return max(durationMs, 0)
}

// fallbackTrackID derives a stable id for a track the provider returned without one.
// The same playlist position always yields the same id, so repeated mappings are identical.
func fallbackTrackID(provider Provider, playlistID string, position int, title string) string {
	name := fmt.Sprintf("%s:%s:%d:%s", provider, playlistID, position, title)
	return fmt.Sprintf("%s-%s", provider, uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)))
}

// flexibleID accepts ids encoded either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	*id = flexibleID(b)
	return nil
}

func newPlaylist(title, description string, cover *string, tracks []Track) *Playlist {
	if tracks == nil {
		tracks = []Track{}
	}
	return &Playlist{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		TrackCount:  len(tracks),
		Cover:       cover,
		Tracks:      tracks,
	}
}
