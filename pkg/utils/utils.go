// Package utils holds formatting helpers shared by the CLI and the web API.
package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders d in its largest whole unit, e.g. 45s, 12m, 3h
// or 2d. Negative durations are formatted by magnitude.
func FormatRoundedUnit(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", d/time.Second)
	case d < time.Hour:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", d/time.Hour)
	default:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
}
