package config

import (
	"fmt"
	"sort"

	"vigil/internal/velocity/models"
)

// Config maps each surface to its rate windows, ordered shortest to longest
// so abuse is caught at the tightest horizon first.
type Config struct {
	Windows map[string][]models.Window
}

// DefaultConfig returns the production window set per surface.
func DefaultConfig() *Config {
	return &Config{
		Windows: map[string][]models.Window{
			"post": {
				{Name: "window_1m", Seconds: 60, Limit: 3, CooldownMinutes: 5},
				{Name: "window_1h", Seconds: 3600, Limit: 30, CooldownMinutes: 30},
			},
			"comment": {
				{Name: "window_1m", Seconds: 60, Limit: 6, CooldownMinutes: 5},
				{Name: "window_1h", Seconds: 3600, Limit: 120, CooldownMinutes: 30},
			},
			"message": {
				{Name: "window_1m", Seconds: 60, Limit: 10, CooldownMinutes: 10},
				{Name: "window_1h", Seconds: 3600, Limit: 200, CooldownMinutes: 60},
			},
			"invite": {
				{Name: "window_1h", Seconds: 3600, Limit: 10, CooldownMinutes: 60},
				{Name: "window_1d", Seconds: 86400, Limit: 40, CooldownMinutes: 240},
			},
			"upload": {
				{Name: "window_1m", Seconds: 60, Limit: 5, CooldownMinutes: 10},
				{Name: "window_1h", Seconds: 3600, Limit: 60, CooldownMinutes: 60},
			},
		},
	}
}

// WindowsFor returns the windows for a surface, or nil when the surface has
// no velocity limits configured.
func (c *Config) WindowsFor(surface string) []models.Window {
	return c.Windows[surface]
}

// Validate checks window ordering and values. Windows must be sorted shortest
// first; limits and durations must be positive.
func (c *Config) Validate() error {
	for surface, windows := range c.Windows {
		if !sort.SliceIsSorted(windows, func(i, j int) bool {
			return windows[i].Seconds < windows[j].Seconds
		}) {
			return fmt.Errorf("surface %q: windows must be ordered shortest first", surface)
		}
		for _, w := range windows {
			if w.Seconds <= 0 {
				return fmt.Errorf("surface %q window %q: seconds must be positive", surface, w.Name)
			}
			if w.Limit <= 0 {
				return fmt.Errorf("surface %q window %q: limit must be positive", surface, w.Name)
			}
			if w.CooldownMinutes <= 0 {
				return fmt.Errorf("surface %q window %q: cooldown_minutes must be positive", surface, w.Name)
			}
		}
	}
	return nil
}
