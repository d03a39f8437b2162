package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// Weekday is the persistence API's day id: 0=Sunday … 6=Saturday. It is not
// the display order of the grid; see DisplayOrder.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DaysPerWeek is the size of the weekday id space.
const DaysPerWeek = 7

// DisplayOrder is the Monday-first row order of the editor grid.
var DisplayOrder = [DaysPerWeek]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = [DaysPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d Weekday) Valid() bool { return d >= Sunday && d <= Saturday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// ParseWeekday accepts a numeric id ("1"), a full English name ("monday") or
// a three-letter abbreviation ("mon"), case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, &ValidationError{Field: "day_of_week", Value: s, Reason: "must be between 0 and 6"}
		}
		return d, nil
	}
	lower := strings.ToLower(s)
	for i, name := range weekdayNames {
		name = strings.ToLower(name)
		if lower == name || (len(lower) == 3 && strings.HasPrefix(name, lower)) {
			return Weekday(i), nil
		}
	}
	return 0, &ValidationError{Field: "day_of_week", Value: s, Reason: "unknown weekday"}
}

// Tick is a half-hour grid position expressed as minutes since midnight.
type Tick int

const (
	SlotMinutes = 30
	// DayStart is the first tick of the grid (08:00).
	DayStart Tick = 8 * 60
	// DayEnd is the closing boundary (20:00). It is a valid block end but
	// never a slot tick.
	DayEnd Tick = 20 * 60
	// TicksPerDay is the number of slot ticks in the grid.
	TicksPerDay = int(DayEnd-DayStart) / SlotMinutes
)

// Valid reports whether t is one of the 24 slot ticks 08:00 … 19:30.
func (t Tick) Valid() bool {
	return t >= DayStart && t < DayEnd && (t-DayStart)%SlotMinutes == 0
}

// validBoundary reports whether t may close a block: any tick after the
// first one, up to and including DayEnd.
func (t Tick) validBoundary() bool {
	return t > DayStart && t <= DayEnd && (t-DayStart)%SlotMinutes == 0
}

// Next returns the tick one slot later.
func (t Tick) Next() Tick { return t + SlotMinutes }

// String formats t as "HH:MM", the form the schedule write API accepts.
func (t Tick) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Clock formats t as "HH:MM:SS", the form the schedule read API returns.
func (t Tick) Clock() string {
	return t.String() + ":00"
}

// ParseTick parses "HH:MM" or "HH:MM:SS" into minutes since midnight. It does
// not check the grid domain; callers use Valid or validBoundary for that.
func ParseTick(s string) (Tick, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &ValidationError{Field: "time", Value: s, Reason: "expected HH:MM or HH:MM:SS"}
	}
	var nums [3]int
	for i, p := range parts {
		if len(p) != 2 {
			return 0, &ValidationError{Field: "time", Value: s, Reason: "expected two-digit fields"}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, &ValidationError{Field: "time", Value: s, Reason: "non-numeric field"}
		}
		nums[i] = n
	}
	h, m, sec := nums[0], nums[1], nums[2]
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, &ValidationError{Field: "time", Value: s, Reason: "out of range"}
	}
	if sec != 0 {
		return 0, &ValidationError{Field: "time", Value: s, Reason: "seconds must be zero"}
	}
	return Tick(h*60 + m), nil
}

// Ticks returns every slot tick of the grid in ascending order.
func Ticks() []Tick {
	out := make([]Tick, 0, TicksPerDay)
	for t := DayStart; t < DayEnd; t = t.Next() {
		out = append(out, t)
	}
	return out
}
