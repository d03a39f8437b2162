package availability

import (
	"errors"
	"testing"
)

func drag(t *testing.T, c *DragController, day Weekday, ticks ...string) (*ClinicAssignmentResolver, error) {
	t.Helper()
	if err := c.PointerDown(day, tk(t, ticks[0])); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	for _, s := range ticks[1:] {
		c.PointerEnter(day, tk(t, s))
	}
	return c.PointerUp()
}

func TestDrag_AddSingleClinicAutoAssigns(t *testing.T) {
	doc := oneClinicDoctor()
	s := NewScheduleStore(doc.ID)
	c := NewDragController(s, doc)

	r, err := drag(t, c, Monday, "09:00", "09:30", "10:00", "10:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil || c.Pending() != nil {
		t.Fatal("single-clinic doctor should not need a clinic choice")
	}
	sel := s.Selections()
	if len(sel) != 4 {
		t.Fatalf("expected 4 slots, got %+v", sel)
	}
	for _, x := range sel {
		if x.Clinic != 10 {
			t.Errorf("slot %v assigned %d, want 10", x.Tick, x.Clinic)
		}
	}
}

func TestDrag_AddMultiClinicCancelRestores(t *testing.T) {
	doc := twoClinicDoctor()
	s := NewScheduleStore(doc.ID)
	mustInsert(t, s, Monday, "08:00", 5)
	before := s.Clone()
	c := NewDragController(s, doc)

	r, err := drag(t, c, Monday, "12:00", "12:30", "13:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected a clinic choice")
	}
	if got := s.Pending(Monday); len(got) != 3 {
		t.Fatalf("expected 3 unassigned slots, got %v", got)
	}
	if err := c.PointerDown(Tuesday, 480); !errors.Is(err, ErrChoicePending) {
		t.Errorf("expected ErrChoicePending while choice is open, got %v", err)
	}
	if err := r.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !s.Equal(before) {
		t.Error("cancel did not restore the prior state")
	}
	if c.Pending() != nil {
		t.Error("resolver should be released after cancel")
	}
}

func TestDrag_AddMultiClinicResolve(t *testing.T) {
	doc := twoClinicDoctor()
	s := NewScheduleStore(doc.ID)
	c := NewDragController(s, doc)

	r, err := drag(t, c, Friday, "15:00", "15:30")
	if err != nil || r == nil {
		t.Fatalf("expected resolver, got %v, %v", r, err)
	}
	if err := r.Resolve(10); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	blocks, err := Compress(s)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(blocks) != 1 || blocks[0] != (Block{Day: Friday, Clinic: 10, Start: 900, End: 960}) {
		t.Errorf("unexpected blocks %v", blocks)
	}
}

func TestDrag_AddSkipsOccupiedCells(t *testing.T) {
	doc := twoClinicDoctor()
	s := NewScheduleStore(doc.ID)
	mustInsert(t, s, Monday, "09:00", 5)
	c := NewDragController(s, doc)

	r, err := drag(t, c, Monday, "08:30", "09:00", "09:30")
	if err != nil || r == nil {
		t.Fatalf("expected resolver, got %v, %v", r, err)
	}
	if got := r.Ticks(); len(got) != 2 || got[0] != 510 || got[1] != 570 {
		t.Errorf("resolver should only hold the new slots, got %v", got)
	}
	if err := r.Resolve(10); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if c, _ := s.Clinic(Monday, 540); c != 5 {
		t.Errorf("existing slot was overwritten with %d", c)
	}
}

func TestDrag_RemoveLeavesOtherDays(t *testing.T) {
	doc := twoClinicDoctor()
	s := NewScheduleStore(doc.ID)
	for _, tick := range []string{"08:00", "08:30", "09:00", "10:00"} {
		mustInsert(t, s, Wednesday, tick, 5)
		mustInsert(t, s, Thursday, tick, 5)
	}
	c := NewDragController(s, doc)

	if err := c.PointerDown(Wednesday, 480); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if c.Mode() != ModeRemove {
		t.Fatalf("expected remove mode, got %v", c.Mode())
	}
	c.PointerEnter(Wednesday, 510)
	c.PointerEnter(Thursday, 540) // other row
	c.PointerEnter(Wednesday, 540)
	c.PointerEnter(Wednesday, 570) // already empty
	if r, err := c.PointerUp(); r != nil || err != nil {
		t.Fatalf("PointerUp = %v, %v", r, err)
	}

	if got := s.Day(Wednesday); len(got) != 1 || got[0].Tick != 600 {
		t.Errorf("unexpected Wednesday %+v", got)
	}
	if got := s.Day(Thursday); len(got) != 4 {
		t.Errorf("Thursday must be untouched, got %+v", got)
	}
}

func TestDrag_RevisitingCellDoesNotToggle(t *testing.T) {
	doc := oneClinicDoctor()
	s := NewScheduleStore(doc.ID)
	c := NewDragController(s, doc)

	if _, err := drag(t, c, Saturday, "08:00", "08:30", "08:00", "08:30", "09:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 slots, got %d", s.Len())
	}
}

func TestDrag_StateErrors(t *testing.T) {
	doc := oneClinicDoctor()
	c := NewDragController(NewScheduleStore(doc.ID), doc)

	if _, err := c.PointerUp(); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if r, err := c.PointerLeave(); r != nil || err != nil {
		t.Errorf("PointerLeave while idle = %v, %v", r, err)
	}
	if err := c.PointerDown(Monday, 1200); err == nil {
		t.Error("expected off-grid PointerDown to fail")
	}
	if c.Dragging() {
		t.Error("failed PointerDown must not start a gesture")
	}
	if err := c.PointerDown(Monday, 480); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if err := c.PointerDown(Monday, 510); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
	if _, err := c.PointerLeave(); err != nil {
		t.Errorf("PointerLeave should end the gesture: %v", err)
	}
	if c.Dragging() {
		t.Error("gesture should be over")
	}
}

func TestDrag_NoClinicsRollsBack(t *testing.T) {
	doc := oneClinicDoctor()
	doc.Clinics = nil
	s := NewScheduleStore(doc.ID)
	c := NewDragController(s, doc)

	_, err := drag(t, c, Monday, "08:00", "08:30")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected added slots rolled back, got %d", s.Len())
	}
}
