package availability

import (
	"testing"

	"github.com/clinic/panel/internal/domain/roster"
)

func oneClinicDoctor() *roster.Doctor {
	return &roster.Doctor{ID: 1, Name: "Dr. Okafor", Clinics: []roster.Clinic{{ID: 10, Name: "Northside"}}}
}

func twoClinicDoctor() *roster.Doctor {
	return &roster.Doctor{ID: 2, Name: "Dr. Lindqvist", Clinics: []roster.Clinic{
		{ID: 5, Name: "Harbour"},
		{ID: 10, Name: "Northside"},
	}}
}

func tk(t *testing.T, s string) Tick {
	t.Helper()
	v, err := ParseTick(s)
	if err != nil {
		t.Fatalf("ParseTick(%q): %v", s, err)
	}
	return v
}

func mustInsert(t *testing.T, s *ScheduleStore, day Weekday, tick string, clinic ClinicID) {
	t.Helper()
	ok, err := s.Insert(day, tk(t, tick), clinic)
	if err != nil || !ok {
		t.Fatalf("Insert(%v, %s, %d) = %v, %v", day, tick, clinic, ok, err)
	}
}
