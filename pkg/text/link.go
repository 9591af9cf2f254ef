// Package text cleans playlist links pasted by users before they are matched against providers.
package text

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// trackingParams are share-link parameters that never change which playlist a link points to.
	trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "si"}
)

// CleanLink normalizes a pasted link: NFKC, surrounding whitespace and trailing punctuation
// removed, and share tracking parameters dropped from http(s) links.
// Anything that does not parse is returned normalized but otherwise untouched.
func CleanLink(raw string) string {
	link := norm.NFKC.String(strings.TrimSpace(raw))
	link = whitespaceRegex.ReplaceAllString(link, " ")
	link = strings.TrimRight(link, ".,!?;")

	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		return link
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}

	q := u.Query()
	removed := false
	for _, param := range trackingParams {
		if q.Has(param) {
			q.Del(param)
			removed = true
		}
	}
	if !removed {
		return link
	}

	u.RawQuery = q.Encode()
	return u.String()
}
