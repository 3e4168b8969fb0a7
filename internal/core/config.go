package core

import "time"

const (
	ThemeDefault Theme = "default"
	ThemeSunset  Theme = "sunset"
	ThemeOcean   Theme = "ocean"
	ThemeEmerald Theme = "emerald"
	ThemePurple  Theme = "purple"
)

// Theme names a dashboard colour scheme.
type Theme string

// Themes lists the available themes, default first.
func Themes() []Theme {
	return []Theme{ThemeDefault, ThemeSunset, ThemeOcean, ThemeEmerald, ThemePurple}
}

func (t Theme) Valid() bool {
	for _, known := range Themes() {
		if t == known {
			return true
		}
	}
	return false
}

// OrDefault maps unknown themes to the default one.
func (t Theme) OrDefault() Theme {
	if t.Valid() {
		return t
	}
	return ThemeDefault
}

// Config is the per-user dashboard state. A nil DateRange means all time.
type Config struct {
	DateRange *DateRange `json:"dateRange,omitempty"`
	Privacy   bool       `json:"privacy"`
	Name      string     `json:"name"`
	Theme     Theme      `json:"theme"`
}

// ConfigPatch is a merge-write on the config document. Nil fields are left
// untouched. Stores persist a DateRange only when it is Complete and clear
// the stored range otherwise.
type ConfigPatch struct {
	DateRange *DateRange `json:"dateRange,omitempty"`
	Privacy   *bool      `json:"privacy,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Theme     *Theme     `json:"theme,omitempty"`
}

// DefaultConfig starts on the current month up to today.
func DefaultConfig(now time.Time) Config {
	today := DayOf(now)
	return Config{
		DateRange: &DateRange{From: NewDay(today.Year(), int(today.Month()), 1), To: today},
		Theme:     ThemeDefault,
	}
}

// Apply merges the patch into c and returns the result.
func (c Config) Apply(p ConfigPatch) Config {
	if p.DateRange != nil {
		if p.DateRange.From.IsZero() {
			c.DateRange = nil
		} else {
			r := *p.DateRange
			c.DateRange = &r
		}
	}
	if p.Privacy != nil {
		c.Privacy = *p.Privacy
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Theme != nil {
		c.Theme = p.Theme.OrDefault()
	}
	return c
}

// PersistableRange returns the range only when both bounds are set.
func (c Config) PersistableRange() (DateRange, bool) {
	if !c.DateRange.Complete() {
		return DateRange{}, false
	}
	return *c.DateRange, true
}

// Patch returns the patch that writes every field of c.
func (c Config) Patch() ConfigPatch {
	r := DateRange{}
	if c.DateRange != nil {
		r = *c.DateRange
	}
	privacy, name, theme := c.Privacy, c.Name, c.Theme
	return ConfigPatch{DateRange: &r, Privacy: &privacy, Name: &name, Theme: &theme}
}
