package availability

import (
	"errors"
	"fmt"
)

var (
	ErrNoDoctor         = errors.New("no doctor selected")
	ErrNoSession        = errors.New("no drag in progress")
	ErrSessionActive    = errors.New("a drag is already in progress")
	ErrChoicePending    = errors.New("a clinic choice is pending")
	ErrNothingPending   = errors.New("no unassigned slots to resolve")
	ErrResolverClosed   = errors.New("clinic choice already finished")
	ErrUnresolvedClinic = errors.New("schedule contains slots without a clinic")
	ErrSaveInFlight     = errors.New("a save is already in progress")
)

// ValidationError reports input outside the grid domain or the doctor's
// clinic affiliations.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// StateError reports an operation invoked in the wrong editor state. Err is
// one of the sentinel errors above.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StateError) Unwrap() error { return e.Err }

// NetworkError reports a failed roster or schedule request. Status is the
// HTTP status when the server answered, 0 otherwise.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DataIntegrityWarning records a tick claimed by more than one loaded block.
// The first block seen keeps the tick.
type DataIntegrityWarning struct {
	Day     Weekday
	Tick    Tick
	Kept    ClinicID
	Dropped ClinicID
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("%s %s claimed by clinic %d and clinic %d; kept %d",
		w.Day, w.Tick, w.Kept, w.Dropped, w.Kept)
}

// BlockError ties a rejected block to the reason it was rejected.
type BlockError struct {
	Index int
	Block Block
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (%s): %v", e.Index, e.Block, e.Err)
}

func (e *BlockError) Unwrap() error { return e.Err }
