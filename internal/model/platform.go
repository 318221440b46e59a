package model

import "strings"

type Platform string

const (
	PlatformInstagram Platform = "Instagram"
	PlatformTikTok    Platform = "TikTok"
	PlatformYouTube   Platform = "YouTube"
	PlatformX         Platform = "X"
)

// SupportedPlatforms is the selectable platform set, in display order.
var SupportedPlatforms = []Platform{
	PlatformInstagram,
	PlatformTikTok,
	PlatformYouTube,
	PlatformX,
}

// ParsePlatform resolves a platform identifier case-insensitively.
// "Twitter" is accepted as an alias of X.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram":
		return PlatformInstagram, true
	case "tiktok":
		return PlatformTikTok, true
	case "youtube":
		return PlatformYouTube, true
	case "x", "twitter":
		return PlatformX, true
	}
	return "", false
}

// IsSupportedPlatform reports whether s is exactly one of SupportedPlatforms.
func IsSupportedPlatform(s string) bool {
	for _, p := range SupportedPlatforms {
		if string(p) == s {
			return true
		}
	}
	return false
}

func (p Platform) Label() string {
	if p == PlatformX {
		return "X (Twitter)"
	}
	return string(p)
}
