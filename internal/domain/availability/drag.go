package availability

import (
	"github.com/clinic/panel/internal/domain/roster"
)

// DragMode is fixed by the cell a gesture starts on.
type DragMode int

const (
	ModeAdd DragMode = iota + 1
	ModeRemove
)

func (m DragMode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeRemove:
		return "remove"
	}
	return "idle"
}

type dragSession struct {
	mode    DragMode
	day     Weekday
	touched map[Tick]struct{}
	added   []Tick
}

// DragController turns pointer gestures over one weekday row into store
// edits. A gesture runs from PointerDown to PointerUp (or PointerLeave) and
// cannot be aborted midway.
type DragController struct {
	store   *ScheduleStore
	doctor  *roster.Doctor
	session *dragSession
	pending *ClinicAssignmentResolver
}

func NewDragController(store *ScheduleStore, doctor *roster.Doctor) *DragController {
	return &DragController{store: store, doctor: doctor}
}

// Dragging reports whether a gesture is in progress.
func (c *DragController) Dragging() bool { return c.session != nil }

// Mode returns the active gesture's mode, or 0 when idle.
func (c *DragController) Mode() DragMode {
	if c.session == nil {
		return 0
	}
	return c.session.mode
}

// Pending returns the open clinic choice left by the last add gesture, if
// any.
func (c *DragController) Pending() *ClinicAssignmentResolver {
	if c.pending != nil && c.pending.Done() {
		c.pending = nil
	}
	return c.pending
}

// PointerDown starts a gesture. An empty cell starts an add gesture and
// marks it available; an occupied cell starts a remove gesture and clears it.
func (c *DragController) PointerDown(day Weekday, tick Tick) error {
	if c.session != nil {
		return &StateError{Op: "pointer down", Err: ErrSessionActive}
	}
	if c.Pending() != nil {
		return &StateError{Op: "pointer down", Err: ErrChoicePending}
	}
	if err := checkCell(day, tick); err != nil {
		return err
	}
	s := &dragSession{day: day, touched: make(map[Tick]struct{})}
	if c.store.Occupied(day, tick) {
		s.mode = ModeRemove
	} else {
		s.mode = ModeAdd
	}
	c.session = s
	c.apply(tick)
	return nil
}

// PointerEnter extends the gesture to tick. Cells on another weekday, cells
// off the grid and cells already touched by this gesture are ignored.
func (c *DragController) PointerEnter(day Weekday, tick Tick) {
	s := c.session
	if s == nil || day != s.day || !tick.Valid() {
		return
	}
	if _, seen := s.touched[tick]; seen {
		return
	}
	c.apply(tick)
}

func (c *DragController) apply(tick Tick) {
	s := c.session
	s.touched[tick] = struct{}{}
	switch s.mode {
	case ModeAdd:
		if ok, _ := c.store.Insert(s.day, tick, Unassigned); ok {
			s.added = append(s.added, tick)
		}
	case ModeRemove:
		c.store.Remove(s.day, tick)
	}
}

// PointerUp ends the gesture. A remove gesture is already complete. An add
// gesture for a single-clinic doctor is assigned to that clinic; for a
// multi-clinic doctor the returned resolver must be resolved or cancelled
// before the next gesture.
func (c *DragController) PointerUp() (*ClinicAssignmentResolver, error) {
	s := c.session
	if s == nil {
		return nil, &StateError{Op: "pointer up", Err: ErrNoSession}
	}
	c.session = nil
	if s.mode != ModeAdd || len(s.added) == 0 {
		return nil, nil
	}

	switch n := len(c.doctor.Clinics); {
	case n == 0:
		for _, t := range s.added {
			c.store.Remove(s.day, t)
		}
		return nil, &ValidationError{Field: "clinic_id", Reason: "doctor has no affiliated clinics"}
	case n == 1:
		sole := ClinicID(c.doctor.Clinics[0].ID)
		for _, t := range s.added {
			c.store.Assign(s.day, t, sole)
		}
		return nil, nil
	}

	r, err := NewClinicAssignmentResolver(c.store, c.doctor, s.day, s.added)
	if err != nil {
		return nil, err
	}
	c.pending = r
	return r, nil
}

// PointerLeave ends the gesture exactly like PointerUp. Leaving the grid
// while idle is not an error.
func (c *DragController) PointerLeave() (*ClinicAssignmentResolver, error) {
	if c.session == nil {
		return nil, nil
	}
	return c.PointerUp()
}
