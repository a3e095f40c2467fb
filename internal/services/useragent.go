package services

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/example/twiller/internal/models"
)

const unknown = "Unknown"

// UserAgentInfo is what login tracking keeps from a User-Agent header.
type UserAgentInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"device_type"`
}

// ParseUserAgent classifies a User-Agent header. Any agent sending the
// "Mobile" token, and every Android agent, counts as a mobile device; iPads
// only count as tablets when they omit it.
func ParseUserAgent(header string) UserAgentInfo {
	if strings.TrimSpace(header) == "" {
		return UserAgentInfo{Browser: unknown, OS: unknown, DeviceType: models.DeviceDesktop}
	}

	ua := useragent.New(header)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = unknown
	}

	family := osFamily(ua)
	return UserAgentInfo{
		Browser:    browser,
		OS:         family,
		DeviceType: deviceType(ua, family),
	}
}

func osFamily(ua *useragent.UserAgent) string {
	platform, full := ua.Platform(), ua.OS()
	switch {
	case platform == "iPhone", platform == "iPad", platform == "iPod":
		return "iOS"
	case platform == "Windows", strings.HasPrefix(full, "Windows"):
		return "Windows"
	case strings.Contains(full, "Android"):
		return "Android"
	case platform == "Macintosh", strings.Contains(full, "Mac OS"):
		return "macOS"
	case strings.Contains(full, "Linux"), platform == "X11":
		return "Linux"
	case full != "":
		return full
	default:
		return unknown
	}
}

func deviceType(ua *useragent.UserAgent, family string) string {
	switch {
	case ua.Mobile(), family == "Android":
		return models.DeviceMobile
	case ua.Platform() == "iPad":
		return models.DeviceTablet
	default:
		return models.DeviceDesktop
	}
}
