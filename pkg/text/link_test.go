package text

import "testing"

// runStringTransformationTest is a helper to run tests for string transformation functions.
func runStringTransformationTest(t *testing.T, testName string,
	transformFunc func(string) string, testCases []struct {
		name     string
		input    string
		expected string
	}) {
	t.Helper()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result := transformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", testName, result, tt.expected)
			}
		})
	}
}

func TestCleanLink(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Plain link unchanged",
			"https://music.yandex.ru/users/music-blog/playlists/2379",
			"https://music.yandex.ru/users/music-blog/playlists/2379",
		},
		{
			"Surrounding whitespace",
			"  https://soundcloud.com/artist/sets/mix \n",
			"https://soundcloud.com/artist/sets/mix",
		},
		{
			"Trailing punctuation",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M!",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			"Spotify share parameter",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			"UTM parameters with other query kept",
			"https://soundcloud.com/artist/sets/mix?utm_source=clipboard&utm_medium=text&in=x",
			"https://soundcloud.com/artist/sets/mix?in=x",
		},
		{
			"Spotify URI untouched",
			"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			"Fullwidth characters folded",
			"ｈｔｔｐｓ://open.spotify.com/playlist/abc",
			"https://open.spotify.com/playlist/abc",
		},
		{
			"Not a link",
			"not  a url",
			"not a url",
		},
		{
			"Empty",
			"   ",
			"",
		},
	}

	runStringTransformationTest(t, "CleanLink", CleanLink, testCases)
}
