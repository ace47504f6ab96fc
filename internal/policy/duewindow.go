package policy

import (
	"strings"
	"time"
)

// DateLayout is the date format used in prompts.
const DateLayout = "2006-01-02"

// DueWindow is the due-date policy for generated tasks. Providers are asked to
// choose among the dates OffsetsDays after today; tasks with a missing or past
// due date are moved to tomorrow at the default time.
type DueWindow struct {
	OffsetsDays   []int
	DefaultHour   int
	DefaultMinute int
	Location      *time.Location
}

// DefaultDueWindow allows tomorrow and the day after, defaulting to 09:00.
func DefaultDueWindow() DueWindow {
	return DueWindow{
		OffsetsDays: []int{1, 2},
		DefaultHour: 9,
		Location:    time.Local,
	}
}

// NewDueWindow builds a DueWindow, falling back to the defaults for empty or
// out-of-range values.
func NewDueWindow(offsets []int, hour, minute int, loc *time.Location) DueWindow {
	w := DefaultDueWindow()
	var valid []int
	for _, o := range offsets {
		if o > 0 {
			valid = append(valid, o)
		}
	}
	if len(valid) > 0 {
		w.OffsetsDays = valid
	}
	if hour >= 0 && hour < 24 {
		w.DefaultHour = hour
	}
	if minute >= 0 && minute < 60 {
		w.DefaultMinute = minute
	}
	if loc != nil {
		w.Location = loc
	}
	return w
}

func (w DueWindow) loc() *time.Location {
	if w.Location == nil {
		return time.Local
	}
	return w.Location
}

// StartOfDay returns midnight of now's day in the window's location.
func (w DueWindow) StartOfDay(now time.Time) time.Time {
	n := now.In(w.loc())
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, w.loc())
}

// at returns the day offset days after now at the default time.
func (w DueWindow) at(now time.Time, offset int) time.Time {
	d := w.StartOfDay(now).AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), w.DefaultHour, w.DefaultMinute, 0, 0, w.loc())
}

// Default is tomorrow at the default time.
func (w DueWindow) Default(now time.Time) time.Time {
	return w.at(now, 1)
}

// AllowedDates returns each permitted due date at the default time, in
// offset order.
func (w DueWindow) AllowedDates(now time.Time) []time.Time {
	dates := make([]time.Time, 0, len(w.OffsetsDays))
	for _, o := range w.OffsetsDays {
		dates = append(dates, w.at(now, o))
	}
	return dates
}

// AllowedLabels formats AllowedDates with DateLayout.
func (w DueWindow) AllowedLabels(now time.Time) []string {
	dates := w.AllowedDates(now)
	labels := make([]string, len(dates))
	for i, d := range dates {
		labels[i] = d.Format(DateLayout)
	}
	return labels
}

var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Parse reads a provider-supplied due date. Date-only values are placed at the
// default time. The bool is false when raw is empty or unparseable.
func (w DueWindow) Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, raw, w.loc()); err == nil {
			return t, true
		}
	}
	if d, err := time.ParseInLocation(DateLayout, raw, w.loc()); err == nil {
		return time.Date(d.Year(), d.Month(), d.Day(), w.DefaultHour, w.DefaultMinute, 0, 0, w.loc()), true
	}
	return time.Time{}, false
}
