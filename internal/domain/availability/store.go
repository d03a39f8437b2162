package availability

import (
	"fmt"
	"sort"
)

// ScheduleStore is the slot-level edit state for one doctor. Each weekday
// holds at most one entry per tick.
type ScheduleStore struct {
	doctorID int64
	days     [DaysPerWeek]map[Tick]ClinicID
}

func NewScheduleStore(doctorID int64) *ScheduleStore {
	s := &ScheduleStore{doctorID: doctorID}
	for i := range s.days {
		s.days[i] = make(map[Tick]ClinicID)
	}
	return s
}

func (s *ScheduleStore) DoctorID() int64 { return s.doctorID }

func checkCell(day Weekday, tick Tick) error {
	if !day.Valid() {
		return &ValidationError{Field: "day_of_week", Value: fmt.Sprint(int(day)), Reason: "must be between 0 and 6"}
	}
	if !tick.Valid() {
		return &ValidationError{Field: "tick", Value: tick.String(), Reason: "outside 08:00-19:30 half-hour grid"}
	}
	return nil
}

// Occupied reports whether (day, tick) holds an entry, assigned or not.
func (s *ScheduleStore) Occupied(day Weekday, tick Tick) bool {
	if !day.Valid() {
		return false
	}
	_, ok := s.days[day][tick]
	return ok
}

// Clinic returns the entry at (day, tick).
func (s *ScheduleStore) Clinic(day Weekday, tick Tick) (ClinicID, bool) {
	if !day.Valid() {
		return Unassigned, false
	}
	c, ok := s.days[day][tick]
	return c, ok
}

// Insert adds an entry at an empty cell. It returns false, nil when the cell
// is already occupied; existing entries are never overwritten.
func (s *ScheduleStore) Insert(day Weekday, tick Tick, clinic ClinicID) (bool, error) {
	if err := checkCell(day, tick); err != nil {
		return false, err
	}
	if _, ok := s.days[day][tick]; ok {
		return false, nil
	}
	s.days[day][tick] = clinic
	return true, nil
}

// Remove deletes the entry at (day, tick) and reports whether one existed.
func (s *ScheduleStore) Remove(day Weekday, tick Tick) bool {
	if !day.Valid() {
		return false
	}
	if _, ok := s.days[day][tick]; !ok {
		return false
	}
	delete(s.days[day], tick)
	return true
}

// Assign sets the clinic of an existing entry.
func (s *ScheduleStore) Assign(day Weekday, tick Tick, clinic ClinicID) bool {
	if !day.Valid() {
		return false
	}
	if _, ok := s.days[day][tick]; !ok {
		return false
	}
	s.days[day][tick] = clinic
	return true
}

// Day returns the entries of one weekday sorted by tick.
func (s *ScheduleStore) Day(day Weekday) []SlotSelection {
	if !day.Valid() {
		return nil
	}
	out := make([]SlotSelection, 0, len(s.days[day]))
	for t, c := range s.days[day] {
		out = append(out, SlotSelection{Day: day, Tick: t, Clinic: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out
}

// Selections returns every entry ordered by (day, tick).
func (s *ScheduleStore) Selections() []SlotSelection {
	var out []SlotSelection
	for d := Sunday; d <= Saturday; d++ {
		out = append(out, s.Day(d)...)
	}
	return out
}

// Pending returns the unassigned ticks of one weekday in ascending order.
func (s *ScheduleStore) Pending(day Weekday) []Tick {
	var out []Tick
	for _, sel := range s.Day(day) {
		if sel.Clinic == Unassigned {
			out = append(out, sel.Tick)
		}
	}
	return out
}

func (s *ScheduleStore) HasPending() bool {
	for _, m := range s.days {
		for _, c := range m {
			if c == Unassigned {
				return true
			}
		}
	}
	return false
}

func (s *ScheduleStore) Len() int {
	n := 0
	for _, m := range s.days {
		n += len(m)
	}
	return n
}

func (s *ScheduleStore) Clone() *ScheduleStore {
	out := NewScheduleStore(s.doctorID)
	for i, m := range s.days {
		for t, c := range m {
			out.days[i][t] = c
		}
	}
	return out
}

// Equal reports whether both stores hold the same entries for the same doctor.
func (s *ScheduleStore) Equal(o *ScheduleStore) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.doctorID != o.doctorID {
		return false
	}
	for i := range s.days {
		if len(s.days[i]) != len(o.days[i]) {
			return false
		}
		for t, c := range s.days[i] {
			if oc, ok := o.days[i][t]; !ok || oc != c {
				return false
			}
		}
	}
	return true
}
