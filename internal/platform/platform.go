package platform

import (
	"strconv"
	"strings"

	"github.com/mssola/useragent"
)

type Family string

const (
	FamilyIOS     Family = "ios"
	FamilyAndroid Family = "android"
	FamilyDesktop Family = "desktop"
)

// iOS only delivers web push to apps installed on the home screen, starting
// with 16.4.
const (
	minPushMajor = 16
	minPushMinor = 4
)

type Info struct {
	Family  Family `json:"family"`
	OS      string `json:"os"`
	Version string `json:"version,omitempty"`
	Browser string `json:"browser"`
	Mobile  bool   `json:"mobile"`
}

// Guidance tells the client which channel will actually reach the user.
type Guidance struct {
	Platform Info `json:"platform"`
	// Standalone is whether the client reported running as an installed app.
	Standalone bool `json:"standalone"`
	// PromptAvailable is false where the browser has no usable permission
	// prompt in the current display mode.
	PromptAvailable bool   `json:"prompt_available"`
	Channel         string `json:"channel"`
	Message         string `json:"message"`
}

const (
	ChannelServiceWorker = "service_worker"
	ChannelBrowser       = "browser"
	ChannelNone          = "none"
)

// Detect sniffs the platform family. iPadOS in desktop mode reports itself
// as a Mac; touch tells it apart.
func Detect(userAgent string, touch bool) Info {
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OSInfo()

	info := Info{
		OS:      os.Name,
		Version: os.Version,
		Browser: browser,
		Mobile:  ua.Mobile(),
	}

	switch p := ua.Platform(); {
	case p == "iPhone" || p == "iPad" || p == "iPod":
		info.Family = FamilyIOS
	case p == "Macintosh" && touch:
		info.Family = FamilyIOS
		info.Version = ""
	case strings.Contains(ua.OS(), "Android"):
		info.Family = FamilyAndroid
	default:
		info.Family = FamilyDesktop
	}
	return info
}

// Guide picks the delivery channel for the client's platform and display mode.
func Guide(userAgent string, standalone, touch bool) Guidance {
	info := Detect(userAgent, touch)
	g := Guidance{Platform: info, Standalone: standalone}

	if info.Family != FamilyIOS {
		g.PromptAvailable = true
		g.Channel = ChannelServiceWorker
		g.Message = "Allow notifications when prompted to receive note reminders."
		return g
	}

	if !pushCapable(info.Version) {
		g.Channel = ChannelNone
		g.Message = "Reminders need iOS 16.4 or later. Update iOS, or link Telegram to get reminders there."
		return g
	}

	if !standalone {
		g.Channel = ChannelNone
		g.Message = "On iPhone and iPad, tap Share and then \"Add to Home Screen\", then open Notes from the home screen to enable reminders."
		return g
	}

	g.PromptAvailable = true
	g.Channel = ChannelServiceWorker
	g.Message = "Reminders are delivered by the installed app in the background. Keep notifications allowed for Notes in iOS Settings."
	return g
}

// pushCapable treats an unknown version as capable.
func pushCapable(version string) bool {
	if version == "" {
		return true
	}

	parts := strings.FieldsFunc(version, func(r rune) bool { return r == '.' || r == '_' })
	if len(parts) == 0 {
		return true
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return true
	}
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}

	return major > minPushMajor || (major == minPushMajor && minor >= minPushMinor)
}
