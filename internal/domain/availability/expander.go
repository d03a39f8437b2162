package availability

import (
	"fmt"

	"github.com/clinic/panel/internal/domain/roster"
)

// LoadReport lists what Expand skipped or resolved while building a store.
type LoadReport struct {
	Rejected []*BlockError
	Warnings []DataIntegrityWarning
}

// Clean reports whether every block loaded without incident.
func (r *LoadReport) Clean() bool {
	return len(r.Rejected) == 0 && len(r.Warnings) == 0
}

// Expand unpacks persisted blocks into a fresh store for doctor. Invalid
// blocks are skipped and reported. A tick covered by more than one block
// keeps the first block's clinic and every extra claim is reported as a
// warning, including overlaps within the same clinic.
func Expand(doctor *roster.Doctor, blocks []Block) (*ScheduleStore, *LoadReport, error) {
	if doctor == nil {
		return nil, nil, fmt.Errorf("expand availability: %w", ErrNoDoctor)
	}
	store := NewScheduleStore(doctor.ID)
	report := &LoadReport{}
	for i, b := range blocks {
		expandBlock(store, report, doctor, i, b)
	}
	return store, report, nil
}

// Conflicts returns the warnings where two different clinics claimed a tick.
func (r *LoadReport) Conflicts() []DataIntegrityWarning {
	var out []DataIntegrityWarning
	for _, w := range r.Warnings {
		if w.Kept != w.Dropped {
			out = append(out, w)
		}
	}
	return out
}

// ExpandStored is Expand for rows as returned by the schedule read API.
// Rows with unparseable times are rejected like any other invalid block.
func ExpandStored(doctor *roster.Doctor, rows []StoredBlock) (*ScheduleStore, *LoadReport, error) {
	if doctor == nil {
		return nil, nil, fmt.Errorf("expand availability: %w", ErrNoDoctor)
	}
	store := NewScheduleStore(doctor.ID)
	report := &LoadReport{}
	for i, row := range rows {
		b, err := FromWire(row.DayOfWeek, row.ClinicID, row.StartTime, row.EndTime)
		if err != nil {
			report.Rejected = append(report.Rejected, &BlockError{Index: i, Block: b, Err: err})
			continue
		}
		expandBlock(store, report, doctor, i, b)
	}
	return store, report, nil
}

func expandBlock(store *ScheduleStore, report *LoadReport, doctor *roster.Doctor, i int, b Block) {
	if err := b.Validate(doctor); err != nil {
		report.Rejected = append(report.Rejected, &BlockError{Index: i, Block: b, Err: err})
		return
	}
	for t := b.Start; t < b.End; t = t.Next() {
		existing, ok := store.Clinic(b.Day, t)
		if !ok {
			store.days[b.Day][t] = b.Clinic
			continue
		}
		report.Warnings = append(report.Warnings, DataIntegrityWarning{
			Day: b.Day, Tick: t, Kept: existing, Dropped: b.Clinic,
		})
	}
}
