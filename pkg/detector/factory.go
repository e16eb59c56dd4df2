// Package detector picks the window source for the running session.
package detector

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/pkg/integrations/x11"
	"github.com/focusrank/focusrank/pkg/window"
)

// ErrUnsupportedDisplay is returned when no supported display server is found
var ErrUnsupportedDisplay = errors.New("unsupported display server")

// New returns the window source for the current session.
// Wayland sessions are served through XWayland when DISPLAY is set, which
// only sees X clients.
func New(logger *zap.Logger) (window.Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := DetectDisplayServer()

	source := x11.NewSource(x11.WithLogger(logger))
	if !source.IsAvailable() {
		return nil, errors.Wrapf(ErrUnsupportedDisplay, "no X11 display in %s session", server)
	}
	if server == "wayland" {
		logger.Warn("wayland session, only XWayland windows are tracked")
	}
	return source, nil
}

// DetectDisplayServer reports "wayland", "x11" or "unknown" from the session
// environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
