package engine

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "https://t.me/"},
		{"   ", "https://t.me/"},
		{"@mychannel", "https://t.me/mychannel"},
		{"t.me/mychannel", "https://t.me/mychannel"},
		{"example.com/demo", "https://example.com/demo"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/x?y=1", "https://example.com/x?y=1"},
		{"  @spaced  ", "https://t.me/spaced"},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
