package availability

import (
	"fmt"
	"sort"

	"github.com/clinic/panel/internal/domain/roster"
)

// Compress merges the store's slots into maximal same-clinic blocks ordered
// by (day, clinic, start). It refuses a store that still holds unassigned
// slots.
func Compress(store *ScheduleStore) ([]Block, error) {
	if store == nil {
		return nil, fmt.Errorf("compress availability: nil store")
	}
	if store.HasPending() {
		return nil, &StateError{Op: "compress", Err: ErrUnresolvedClinic}
	}

	var out []Block
	for d := Sunday; d <= Saturday; d++ {
		byClinic := make(map[ClinicID][]Tick)
		for t, c := range store.days[d] {
			byClinic[c] = append(byClinic[c], t)
		}
		clinics := make([]ClinicID, 0, len(byClinic))
		for c := range byClinic {
			clinics = append(clinics, c)
		}
		sort.Slice(clinics, func(i, j int) bool { return clinics[i] < clinics[j] })

		for _, c := range clinics {
			out = append(out, runs(d, c, byClinic[c])...)
		}
	}
	return out, nil
}

// runs splits ticks into contiguous half-hour runs.
func runs(day Weekday, clinic ClinicID, ticks []Tick) []Block {
	if len(ticks) == 0 {
		return nil
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	var out []Block
	start, prev := ticks[0], ticks[0]
	for _, t := range ticks[1:] {
		if t != prev.Next() {
			out = append(out, Block{Day: day, Clinic: clinic, Start: start, End: prev.Next()})
			start = t
		}
		prev = t
	}
	return append(out, Block{Day: day, Clinic: clinic, Start: start, End: prev.Next()})
}

// Normalize validates blocks against doctor and rewrites them as maximal
// merged blocks. Unlike Expand it is all-or-nothing: the first invalid
// block fails the whole set, and overlapping blocks with different clinics
// are rejected rather than resolved. Same-clinic overlaps are merged.
func Normalize(doctor *roster.Doctor, blocks []Block) ([]Block, error) {
	if doctor == nil {
		return nil, fmt.Errorf("normalize availability: %w", ErrNoDoctor)
	}
	store, report, err := Expand(doctor, blocks)
	if err != nil {
		return nil, err
	}
	if len(report.Rejected) > 0 {
		return nil, report.Rejected[0]
	}
	if conflicts := report.Conflicts(); len(conflicts) > 0 {
		w := conflicts[0]
		return nil, &ValidationError{Field: "availability", Value: w.Day.String() + " " + w.Tick.String(),
			Reason: fmt.Sprintf("claimed by clinics %d and %d", w.Kept, w.Dropped)}
	}
	return Compress(store)
}
