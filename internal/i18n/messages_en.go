package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Request validation
	"error.missing_url":    "Missing ?url parameter",
	"error.malformed_url":  "Malformed URL",
	"error.invalid_url":    "The link does not match the playlist format",
	"error.invalid_params": "Invalid parameters",

	// Import failures
	"error.not_a_playlist":     "The link does not point to a playlist",
	"error.playlist_not_found": "Playlist not found",
	"error.unsupported_link":   "Could not detect the music service from the link",
	"error.server_config":      "Server configuration error",
	"error.upstream":           "Failed to fetch data",
	"error.internal":           "Internal server error",

	// Routing and limits
	"error.resource_not_found": "Resource not found",
	"error.rate_limited":       "Too many requests, please try again later",

	// Home page
	"page.title":     "Playlist import",
	"page.providers": "Supported services: %s",
	"page.usage":     "Usage: GET /api/{provider}/resolve?url=<playlist link>",
}
