package availability

import (
	"fmt"

	"github.com/clinic/panel/internal/domain/roster"
)

// ClinicAssignmentResolver finishes an add-drag for a doctor with several
// clinics: the operator either picks the clinic for the new slots or throws
// them away.
type ClinicAssignmentResolver struct {
	store  *ScheduleStore
	doctor *roster.Doctor
	day    Weekday
	ticks  []Tick
	done   bool
}

// NewClinicAssignmentResolver collects the ticks of day that are still
// unassigned. It fails with a StateError when there are none.
func NewClinicAssignmentResolver(store *ScheduleStore, doctor *roster.Doctor, day Weekday, ticks []Tick) (*ClinicAssignmentResolver, error) {
	var pending []Tick
	for _, t := range ticks {
		if c, ok := store.Clinic(day, t); ok && c == Unassigned {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil, &StateError{Op: "resolve clinic", Err: ErrNothingPending}
	}
	return &ClinicAssignmentResolver{store: store, doctor: doctor, day: day, ticks: pending}, nil
}

func (r *ClinicAssignmentResolver) Day() Weekday { return r.day }

// Ticks returns the pending ticks in the order they were added.
func (r *ClinicAssignmentResolver) Ticks() []Tick {
	return append([]Tick(nil), r.ticks...)
}

// Options lists the clinics the operator may choose from.
func (r *ClinicAssignmentResolver) Options() []roster.Clinic {
	return append([]roster.Clinic(nil), r.doctor.Clinics...)
}

// Done reports whether Resolve or Cancel has completed.
func (r *ClinicAssignmentResolver) Done() bool { return r.done }

// Resolve attributes every pending slot to clinic. An unaffiliated clinic is
// a ValidationError and leaves the resolver open.
func (r *ClinicAssignmentResolver) Resolve(clinic ClinicID) error {
	if r.done {
		return &StateError{Op: "resolve clinic", Err: ErrResolverClosed}
	}
	if !r.doctor.HasClinic(int64(clinic)) {
		return &ValidationError{Field: "clinic_id", Value: fmt.Sprint(int64(clinic)), Reason: "doctor is not affiliated with this clinic"}
	}
	for _, t := range r.ticks {
		if c, ok := r.store.Clinic(r.day, t); ok && c == Unassigned {
			r.store.Assign(r.day, t, clinic)
		}
	}
	r.done = true
	return nil
}

// Cancel removes the pending slots, restoring the weekday to its state
// before the drag.
func (r *ClinicAssignmentResolver) Cancel() error {
	if r.done {
		return &StateError{Op: "cancel clinic choice", Err: ErrResolverClosed}
	}
	for _, t := range r.ticks {
		if c, ok := r.store.Clinic(r.day, t); ok && c == Unassigned {
			r.store.Remove(r.day, t)
		}
	}
	r.done = true
	return nil
}
