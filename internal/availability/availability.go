package availability

import (
	"fmt"
	"time"
)

// TimeOfDay is minutes from midnight, parsed from "HH:MM".
type TimeOfDay int

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// DayWindow is the single bookable window for one weekday.
type DayWindow struct {
	Start     TimeOfDay `json:"start"`
	End       TimeOfDay `json:"end"`
	Available bool      `json:"available"`
}

// Weekly maps each weekday to its window. Set once at profile
// completion and read-only to presence and booking logic.
type Weekly struct {
	days [7]DayWindow
}

// NewWeekly validates and builds a schedule. Each available window
// must have Start < End.
func NewWeekly(days map[time.Weekday]DayWindow) (*Weekly, error) {
	var w Weekly
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		win, ok := days[wd]
		if !ok {
			return nil, fmt.Errorf("missing window for %s", wd)
		}
		if win.Available && win.Start >= win.End {
			return nil, fmt.Errorf("%s: start %s must precede end %s", wd, win.Start, win.End)
		}
		w.days[wd] = win
	}
	return &w, nil
}

// WindowFor returns the window configured for the given weekday.
func (w *Weekly) WindowFor(d time.Weekday) DayWindow {
	return w.days[d]
}

// IsAvailableAt reports whether t falls inside that day's available
// window. Advisory only: requests outside the window are still
// ingested, this just feeds the schedule view.
func (w *Weekly) IsAvailableAt(t time.Time) bool {
	win := w.days[t.Weekday()]
	if !win.Available {
		return false
	}
	minute := TimeOfDay(t.Hour()*60 + t.Minute())
	return minute >= win.Start && minute < win.End
}

// Default is the schedule applied when a trainer has not edited
// theirs: weekdays 06:00-20:00, Saturday 08:00-18:00, Sunday off.
func Default() *Weekly {
	weekday := DayWindow{Start: 6 * 60, End: 20 * 60, Available: true}
	weekend := DayWindow{Start: 8 * 60, End: 18 * 60, Available: true}
	w, _ := NewWeekly(map[time.Weekday]DayWindow{
		time.Monday:    weekday,
		time.Tuesday:   weekday,
		time.Wednesday: weekday,
		time.Thursday:  weekday,
		time.Friday:    weekday,
		time.Saturday:  weekend,
		time.Sunday:    {Start: 8 * 60, End: 18 * 60, Available: false},
	})
	return w
}

// WireDay is the "HH:MM" JSON shape used by profile edits.
type WireDay struct {
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	Available bool   `json:"available"`
}

// WirePayload carries a full week as sent by the profile editor.
type WirePayload struct {
	Monday    WireDay `json:"monday" validate:"required"`
	Tuesday   WireDay `json:"tuesday" validate:"required"`
	Wednesday WireDay `json:"wednesday" validate:"required"`
	Thursday  WireDay `json:"thursday" validate:"required"`
	Friday    WireDay `json:"friday" validate:"required"`
	Saturday  WireDay `json:"saturday" validate:"required"`
	Sunday    WireDay `json:"sunday" validate:"required"`
}

// Wire converts the schedule to its wire shape, for persistence and
// the profile editor.
func (w *Weekly) Wire() WirePayload {
	day := func(d time.Weekday) WireDay {
		win := w.days[d]
		return WireDay{Start: win.Start.String(), End: win.End.String(), Available: win.Available}
	}
	return WirePayload{
		Monday:    day(time.Monday),
		Tuesday:   day(time.Tuesday),
		Wednesday: day(time.Wednesday),
		Thursday:  day(time.Thursday),
		Friday:    day(time.Friday),
		Saturday:  day(time.Saturday),
		Sunday:    day(time.Sunday),
	}
}

// FromWire builds a Weekly from the wire representation.
func FromWire(p WirePayload) (*Weekly, error) {
	raw := map[time.Weekday]WireDay{
		time.Monday:    p.Monday,
		time.Tuesday:   p.Tuesday,
		time.Wednesday: p.Wednesday,
		time.Thursday:  p.Thursday,
		time.Friday:    p.Friday,
		time.Saturday:  p.Saturday,
		time.Sunday:    p.Sunday,
	}
	out := make(map[time.Weekday]DayWindow, 7)
	for wd, day := range raw {
		start, err := ParseTimeOfDay(day.Start)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", wd, err)
		}
		end, err := ParseTimeOfDay(day.End)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", wd, err)
		}
		out[wd] = DayWindow{Start: start, End: end, Available: day.Available}
	}
	return NewWeekly(out)
}
