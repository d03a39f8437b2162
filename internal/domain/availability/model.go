package availability

import (
	"fmt"

	"github.com/clinic/panel/internal/domain/roster"
)

// ClinicID identifies an affiliated clinic. Unassigned marks a slot the
// operator has made available but not yet attributed to a clinic.
type ClinicID int64

const Unassigned ClinicID = 0

// SlotSelection is one available half-hour on one weekday.
type SlotSelection struct {
	Day    Weekday
	Tick   Tick
	Clinic ClinicID
}

// Block is a contiguous run of same-clinic slots on one weekday. End is
// exclusive.
type Block struct {
	Day    Weekday
	Clinic ClinicID
	Start  Tick
	End    Tick
}

func (b Block) String() string {
	return fmt.Sprintf("%s clinic %d %s-%s", b.Day, b.Clinic, b.Start, b.End)
}

// Validate checks the block against the grid domain and, when doctor is
// non-nil, against the doctor's clinic affiliations.
func (b Block) Validate(doctor *roster.Doctor) error {
	if !b.Day.Valid() {
		return &ValidationError{Field: "day_of_week", Value: fmt.Sprint(int(b.Day)), Reason: "must be between 0 and 6"}
	}
	if b.End <= b.Start {
		return &ValidationError{Field: "range", Value: b.Start.String() + "-" + b.End.String(), Reason: "end must be after start"}
	}
	if !b.Start.Valid() {
		return &ValidationError{Field: "start_time", Value: b.Start.String(), Reason: "outside 08:00-19:30 half-hour grid"}
	}
	if !b.End.validBoundary() {
		return &ValidationError{Field: "end_time", Value: b.End.String(), Reason: "outside 08:30-20:00 half-hour grid"}
	}
	if b.Clinic == Unassigned {
		return &ValidationError{Field: "clinic_id", Reason: "is required"}
	}
	if doctor != nil && !doctor.HasClinic(int64(b.Clinic)) {
		return &ValidationError{Field: "clinic_id", Value: fmt.Sprint(int64(b.Clinic)), Reason: "doctor is not affiliated with this clinic"}
	}
	return nil
}

// StoredBlock is one row of the schedule read API.
type StoredBlock struct {
	DayOfWeek int    `json:"day_of_week"`
	ClinicID  int64  `json:"clinic_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BlockInput is one entry of the schedule write API payload.
type BlockInput struct {
	DayOfWeek int    `json:"day_of_week"`
	ClinicID  int64  `json:"clinic_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ReplaceRequest is the schedule write API body. It replaces the doctor's
// whole weekly template.
type ReplaceRequest struct {
	Availability []BlockInput `json:"availability"`
}

// ToStored renders b in the read API's "HH:MM:SS" form.
func (b Block) ToStored() StoredBlock {
	return StoredBlock{DayOfWeek: int(b.Day), ClinicID: int64(b.Clinic), StartTime: b.Start.Clock(), EndTime: b.End.Clock()}
}

// ToInput renders b in the write API's "HH:MM" form.
func (b Block) ToInput() BlockInput {
	return BlockInput{DayOfWeek: int(b.Day), ClinicID: int64(b.Clinic), StartTime: b.Start.String(), EndTime: b.End.String()}
}

// FromWire parses a read or write API row. Both time forms are accepted.
// Domain checks are left to Block.Validate.
func FromWire(day int, clinicID int64, start, end string) (Block, error) {
	s, err := ParseTick(start)
	if err != nil {
		return Block{}, err
	}
	e, err := ParseTick(end)
	if err != nil {
		return Block{}, err
	}
	return Block{Day: Weekday(day), Clinic: ClinicID(clinicID), Start: s, End: e}, nil
}

// NewReplaceRequest builds the write payload for blocks.
func NewReplaceRequest(blocks []Block) ReplaceRequest {
	req := ReplaceRequest{Availability: make([]BlockInput, 0, len(blocks))}
	for _, b := range blocks {
		req.Availability = append(req.Availability, b.ToInput())
	}
	return req
}
