package timetable

import (
	"fmt"
	"strings"
)

// Weekday is a teaching day of the week. The set is fixed; only time slots are editable.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Weekdays lists every teaching day in grid order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

// String returns the full English day name.
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// Valid reports whether d is one of the fixed teaching days.
func (d Weekday) Valid() bool {
	_, ok := weekdayNames[d]
	return ok
}

// MarshalText encodes the day by name so stored schedules stay readable.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts full or three-letter day names in any case.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWeekday resolves "Mon", "monday", "MONDAY" and friends.
func ParseWeekday(raw string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if len(key) >= 3 {
		for _, day := range Weekdays {
			name := strings.ToLower(day.String())
			if key == name || key == name[:3] {
				return day, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// ParseWeekdays parses a list of day names, keeping input order and dropping duplicates.
func ParseWeekdays(raw []string) ([]Weekday, error) {
	seen := make(map[Weekday]bool, len(raw))
	days := make([]Weekday, 0, len(raw))
	for _, item := range raw {
		day, err := ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days, nil
}

// cell addresses one (section, day, slot position) square of the grid.
type cell struct {
	Section string
	Day     Weekday
	Pos     int
}

// timeKey addresses one (day, slot position) column across all sections.
type timeKey struct {
	Day Weekday
	Pos int
}

// spanLength is the number of consecutive slots a session of kind k occupies.
func spanLength(k Kind) int {
	if k == Practical {
		return 2
	}
	return 1
}

func normalizeLabel(label string) string {
	return strings.TrimSpace(label)
}

// sameName compares faculty and room names ignoring case and surrounding space.
func sameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
