package urlutil

import (
	"net/url"
	"strings"

	"github.com/feedpulse/feedpulse/internal/models"
)

// Tracking parameters stripped during canonicalization
var trackedParams = map[string]bool{
	"fbclid":   true,
	"gclid":    true,
	"msclkid":  true,
	"ref":      true,
	"source":   true,
	"campaign": true,
	"igshid":   true,
	"si":       true,
	"mc_cid":   true,
	"mc_eid":   true,
}

// Canonicalize strips tracking parameters and the fragment and
// re-serializes the URL. It is pure and total: malformed input comes
// back unchanged, and repeated calls yield byte-identical output.
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if trackedParams[lk] || strings.HasPrefix(lk, "utm_") {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	return strings.TrimRight(out, "/")
}

// DetectPlatform classifies a URL by its host. Pure string matching;
// anything unrecognized is plain web content.
func DetectPlatform(raw string) models.Platform {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return models.PlatformWeb
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "youtube.com" || host == "youtu.be":
		return models.PlatformYouTube
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return models.PlatformTikTok
	case host == "instagram.com":
		return models.PlatformInstagram
	default:
		return models.PlatformWeb
	}
}

// ExtractVideoID pulls the platform video identifier out of a URL
// following each platform's known URL grammar. Returns "" when the URL
// does not carry one.
func ExtractVideoID(raw string, platform models.Platform) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	switch platform {
	case models.PlatformYouTube:
		if strings.EqualFold(strings.TrimPrefix(u.Host, "www."), "youtu.be") {
			return strings.Trim(u.Path, "/")
		}
		if id := u.Query().Get("v"); id != "" {
			return id
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				rest := strings.TrimPrefix(u.Path, prefix)
				return strings.SplitN(rest, "/", 2)[0]
			}
		}
	case models.PlatformTikTok:
		if i := strings.Index(u.Path, "/video/"); i >= 0 {
			rest := u.Path[i+len("/video/"):]
			return strings.SplitN(rest, "/", 2)[0]
		}
	case models.PlatformInstagram:
		for _, prefix := range []string{"/reel/", "/p/", "/tv/"} {
			if strings.HasPrefix(u.Path, prefix) {
				rest := strings.TrimPrefix(u.Path, prefix)
				return strings.SplitN(rest, "/", 2)[0]
			}
		}
	}
	return ""
}

// ExtractThumbnailURL maps a video ID to the platform's predictable
// thumbnail URL. Only YouTube exposes one without an API call.
func ExtractThumbnailURL(_ string, platform models.Platform, videoID string) string {
	if videoID == "" {
		return ""
	}
	if platform == models.PlatformYouTube {
		return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
	}
	return ""
}
