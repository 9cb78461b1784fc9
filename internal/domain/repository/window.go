package repository

import "time"

// Window is a trailing leaderboard window keyed by forecast submission time.
type Window string

const (
	WindowAll Window = "all"
	Window30d Window = "30d"
	Window7d  Window = "7d"
)

// IsValidWindow returns true if w is a supported leaderboard window.
func IsValidWindow(w Window) bool {
	switch w {
	case WindowAll, Window30d, Window7d:
		return true
	default:
		return false
	}
}

// DefaultWindow returns the default leaderboard window.
func DefaultWindow() Window { return WindowAll }

// NormalizeWindow converts raw string to a valid window (or default).
func NormalizeWindow(s string) Window {
	if s == "" {
		return DefaultWindow()
	}
	w := Window(s)
	if IsValidWindow(w) {
		return w
	}
	return DefaultWindow()
}

// WindowCutoff returns the earliest submission time included in the window.
// A zero time means no cutoff (all time).
func WindowCutoff(w Window, now time.Time) time.Time {
	switch w {
	case Window7d:
		return now.Add(-7 * 24 * time.Hour)
	case Window30d:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// Windows lists all supported windows in refresh order.
func Windows() []Window { return []Window{WindowAll, Window30d, Window7d} }
