package core

import "fmt"

type FaviconState string

const (
	FaviconDefault FaviconState = "favicon"
	FaviconSuccess FaviconState = "favicon-success"
	FaviconError   FaviconState = "favicon-error"
	FaviconWarning FaviconState = "favicon-warning"
	FaviconRunning FaviconState = "favicon-running"
)

// FaviconForStatus maps a build status to its favicon. Every status,
// including the undefined one, has an entry.
func FaviconForStatus(s BuildStatus) FaviconState {
	switch s {
	case StatusRunning:
		return FaviconSuccess
	case StatusStarting, StatusStopping:
		return FaviconRunning
	case StatusCanceling:
		return FaviconWarning
	case StatusFailed:
		return FaviconError
	default:
		return FaviconDefault
	}
}

type FaviconTheme string

const (
	FaviconLight FaviconTheme = "light"
	FaviconDark  FaviconTheme = "dark"
)

// FaviconThemeFor returns the icon theme opposite to the ambient one so the
// icon stays visible against the surrounding chrome.
func FaviconThemeFor(ambientDark bool) FaviconTheme {
	if ambientDark {
		return FaviconLight
	}
	return FaviconDark
}

type Favicon struct {
	State FaviconState `json:"state"`
	Theme FaviconTheme `json:"theme"`
}

// Href returns the asset path for the given extension ("png" or "svg").
func (f Favicon) Href(ext string) string {
	return fmt.Sprintf("/favicons/%s-%s.%s", f.State, f.Theme, ext)
}
