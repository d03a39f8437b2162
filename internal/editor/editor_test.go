package editor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/panel/internal/domain/availability"
	"github.com/clinic/panel/internal/domain/roster"
)

type fakeBackend struct {
	doctors []roster.Doctor
	rows    map[int64][]availability.StoredBlock
	loadErr error
	saveErr error
	saves   []availability.ReplaceRequest
	onSave  func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		doctors: []roster.Doctor{
			{ID: 1, Name: "Dr. Abara", Clinics: []roster.Clinic{{ID: 10, Name: "Northside"}}},
			{ID: 2, Name: "Dr. Brandt", Clinics: []roster.Clinic{{ID: 5, Name: "Harbour"}, {ID: 10, Name: "Northside"}}},
		},
		rows: map[int64][]availability.StoredBlock{},
	}
}

func (f *fakeBackend) ListDoctors(context.Context) ([]roster.Doctor, error) {
	return f.doctors, nil
}

func (f *fakeBackend) GetAvailability(_ context.Context, id int64) ([]availability.StoredBlock, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.rows[id], nil
}

func (f *fakeBackend) ReplaceAvailability(_ context.Context, id int64, req availability.ReplaceRequest) ([]availability.StoredBlock, error) {
	if f.onSave != nil {
		f.onSave()
	}
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saves = append(f.saves, req)
	out := make([]availability.StoredBlock, 0, len(req.Availability))
	for _, in := range req.Availability {
		out = append(out, availability.StoredBlock{
			DayOfWeek: in.DayOfWeek, ClinicID: in.ClinicID,
			StartTime: in.StartTime + ":00", EndTime: in.EndTime + ":00",
		})
	}
	f.rows[id] = out
	return out, nil
}

func newTestEditor(t *testing.T) (*Editor, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	ed := New(b, b, nil, zerolog.Nop())
	require.NoError(t, ed.LoadRoster(context.Background()))
	return ed, b
}

func TestEditor_SingleClinicDragAndSave(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))

	require.NoError(t, ed.PointerDown(availability.Monday, 540))
	for _, tick := range []availability.Tick{570, 600, 630} {
		ed.PointerEnter(availability.Monday, tick)
	}
	require.NoError(t, ed.PointerUp())
	assert.Nil(t, ed.PendingChoice())
	assert.True(t, ed.Dirty())

	sel := ed.Store().Selections()
	require.Len(t, sel, 4)
	for _, s := range sel {
		assert.Equal(t, availability.ClinicID(10), s.Clinic)
	}

	require.NoError(t, ed.Save(ctx))
	assert.False(t, ed.Dirty())
	require.Len(t, b.saves, 1)
	assert.Equal(t, []availability.BlockInput{
		{DayOfWeek: 1, ClinicID: 10, StartTime: "09:00", EndTime: "11:00"},
	}, b.saves[0].Availability)
}

func TestEditor_MultiClinicChoice(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 2))

	require.NoError(t, ed.PointerDown(availability.Friday, 480))
	ed.PointerEnter(availability.Friday, 510)
	ed.PointerEnter(availability.Friday, 540)
	require.NoError(t, ed.PointerUp())

	r := ed.PendingChoice()
	require.NotNil(t, r)
	assert.Len(t, r.Ticks(), 3)

	err := ed.Save(ctx)
	assert.ErrorIs(t, err, availability.ErrChoicePending)
	assert.Empty(t, b.saves)

	var ve *availability.ValidationError
	require.ErrorAs(t, ed.ChooseClinic(99), &ve)
	require.NotNil(t, ed.PendingChoice(), "rejected clinic keeps the choice open")

	require.NoError(t, ed.ChooseClinic(5))
	assert.Nil(t, ed.PendingChoice())
	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, int64(5), b.saves[0].Availability[0].ClinicID)
}

func TestEditor_CancelRestoresState(t *testing.T) {
	ed, b := newTestEditor(t)
	b.rows[2] = []availability.StoredBlock{{DayOfWeek: 3, ClinicID: 10, StartTime: "12:00:00", EndTime: "13:00:00"}}
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 2))
	before := ed.Store().Clone()

	require.NoError(t, ed.PointerDown(availability.Wednesday, 480))
	ed.PointerEnter(availability.Wednesday, 510)
	ed.PointerEnter(availability.Wednesday, 540)
	require.NoError(t, ed.PointerUp())
	require.Len(t, ed.Store().Pending(availability.Wednesday), 3)
	assert.True(t, ed.Dirty())

	require.NoError(t, ed.CancelChoice())
	assert.True(t, ed.Store().Equal(before))
	assert.False(t, ed.Dirty())
	assert.ErrorIs(t, ed.CancelChoice(), availability.ErrNothingPending)
}

func TestEditor_UndoneEditIsClean(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))

	require.NoError(t, ed.PointerDown(availability.Friday, 600))
	require.NoError(t, ed.PointerUp())
	require.True(t, ed.Dirty())

	require.NoError(t, ed.PointerDown(availability.Friday, 600))
	require.NoError(t, ed.PointerUp())
	assert.False(t, ed.Dirty())
	assert.Zero(t, ed.Store().Len())
}

func TestEditor_RemoveDragKeepsOtherDays(t *testing.T) {
	ed, b := newTestEditor(t)
	b.rows[1] = []availability.StoredBlock{
		{DayOfWeek: 1, ClinicID: 10, StartTime: "08:00:00", EndTime: "10:00:00"},
		{DayOfWeek: 2, ClinicID: 10, StartTime: "08:00:00", EndTime: "10:00:00"},
	}
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))

	require.NoError(t, ed.PointerDown(availability.Monday, 480))
	ed.PointerEnter(availability.Monday, 510)
	ed.PointerEnter(availability.Tuesday, 540)
	require.NoError(t, ed.PointerLeave())

	assert.Len(t, ed.Store().Day(availability.Monday), 2)
	assert.Len(t, ed.Store().Day(availability.Tuesday), 4)
}

func TestEditor_SelectDoctorDiscardsEdits(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))
	require.NoError(t, ed.PointerDown(availability.Monday, 480))
	require.NoError(t, ed.PointerUp())
	require.True(t, ed.Dirty())

	require.NoError(t, ed.SelectDoctor(ctx, 1))
	assert.False(t, ed.Dirty())
	assert.Equal(t, 0, ed.Store().Len())
	assert.Empty(t, b.saves)
}

func TestEditor_LoadFailureLeavesNoDoctor(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))

	b.loadErr = &availability.NetworkError{Op: "get availability", Status: 502, Err: errors.New("bad gateway")}
	err := ed.SelectDoctor(ctx, 2)
	var ne *availability.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Nil(t, ed.Doctor())
	assert.Nil(t, ed.Store())
	assert.Contains(t, ed.Status(), "Could not load schedule")

	assert.ErrorIs(t, ed.PointerDown(availability.Monday, 480), availability.ErrNoDoctor)
	assert.ErrorIs(t, ed.Save(ctx), availability.ErrNoDoctor)
	assert.NoError(t, ed.PointerLeave())
}

func TestEditor_UnknownDoctor(t *testing.T) {
	ed, _ := newTestEditor(t)
	err := ed.SelectDoctor(context.Background(), 404)
	assert.ErrorIs(t, err, roster.ErrNotFound)
	assert.Nil(t, ed.Doctor())
}

func TestEditor_LoadSkipsBadRowsAndOverlaps(t *testing.T) {
	ed, b := newTestEditor(t)
	b.rows[2] = []availability.StoredBlock{
		{DayOfWeek: 1, ClinicID: 5, StartTime: "08:00:00", EndTime: "10:00:00"},
		{DayOfWeek: 1, ClinicID: 10, StartTime: "09:00:00", EndTime: "11:00:00"},
		{DayOfWeek: 1, ClinicID: 77, StartTime: "14:00:00", EndTime: "15:00:00"},
	}
	require.NoError(t, ed.SelectDoctor(context.Background(), 2))

	c, ok := ed.Store().Clinic(availability.Monday, 570)
	require.True(t, ok)
	assert.Equal(t, availability.ClinicID(5), c, "first block wins")
	assert.False(t, ed.Store().Occupied(availability.Monday, 840))
	assert.Contains(t, ed.Status(), "1 blocks skipped")
}

func TestEditor_SaveFailureKeepsEdits(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))
	require.NoError(t, ed.PointerDown(availability.Sunday, 1170))
	require.NoError(t, ed.PointerUp())
	before := ed.Store().Clone()

	b.saveErr = &availability.NetworkError{Op: "replace availability", Err: errors.New("connection refused")}
	err := ed.Save(ctx)
	var ne *availability.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.True(t, ed.Dirty())
	assert.True(t, ed.Store().Equal(before))
	assert.True(t, strings.HasPrefix(ed.Status(), "Save failed"))

	b.saveErr = nil
	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, "19:30", b.saves[0].Availability[0].StartTime)
	assert.Equal(t, "20:00", b.saves[0].Availability[0].EndTime)
}

func TestEditor_SaveRefusedWhileDragging(t *testing.T) {
	ed, _ := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))
	require.NoError(t, ed.PointerDown(availability.Monday, 480))
	assert.ErrorIs(t, ed.Save(ctx), availability.ErrSessionActive)
}

func TestEditor_SaveIsNotReentrant(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))

	var inner error
	b.onSave = func() {
		b.onSave = nil
		inner = ed.Save(ctx)
	}
	require.NoError(t, ed.Save(ctx))
	assert.ErrorIs(t, inner, availability.ErrSaveInFlight)
	assert.Len(t, b.saves, 1)
}

func TestEditor_SelectionLockedDuringSave(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))
	require.NoError(t, ed.PointerDown(availability.Monday, 540))
	require.NoError(t, ed.PointerUp())

	var selectErr, downErr error
	b.onSave = func() {
		b.onSave = nil
		selectErr = ed.SelectDoctor(ctx, 2)
		downErr = ed.PointerDown(availability.Tuesday, 480)
	}
	require.NoError(t, ed.Save(ctx))
	assert.ErrorIs(t, selectErr, availability.ErrSaveInFlight)
	assert.ErrorIs(t, downErr, availability.ErrSaveInFlight)

	assert.Equal(t, int64(1), ed.Doctor().ID)
	assert.Equal(t, int64(1), ed.Store().DoctorID())
	assert.False(t, ed.Dirty())

	// A later switch and save must not carry doctor 1's grid to doctor 2.
	require.NoError(t, ed.SelectDoctor(ctx, 2))
	assert.Zero(t, ed.Store().Len())
	require.NoError(t, ed.Save(ctx))
	assert.Empty(t, b.rows[2])
}

func TestEditor_SaveResultIgnoredForOtherDoctor(t *testing.T) {
	ed, b := newTestEditor(t)
	ctx := context.Background()
	require.NoError(t, ed.SelectDoctor(ctx, 1))
	require.NoError(t, ed.PointerDown(availability.Monday, 540))
	require.NoError(t, ed.PointerUp())

	other := b.doctors[1]
	b.onSave = func() {
		b.onSave = nil
		ed.install(&other, availability.NewScheduleStore(other.ID))
	}
	require.NoError(t, ed.Save(ctx))

	assert.Equal(t, int64(2), ed.Doctor().ID)
	assert.Equal(t, int64(2), ed.Store().DoctorID())
	assert.Zero(t, ed.Store().Len())
	assert.Len(t, b.rows[1], 1)
}

func TestEditor_RowsDisplayOrder(t *testing.T) {
	ed, b := newTestEditor(t)
	assert.Nil(t, ed.Rows())
	b.rows[1] = []availability.StoredBlock{{DayOfWeek: 0, ClinicID: 10, StartTime: "08:00:00", EndTime: "08:30:00"}}
	require.NoError(t, ed.SelectDoctor(context.Background(), 1))

	rows := ed.Rows()
	require.Len(t, rows, 7)
	assert.Equal(t, availability.Monday, rows[0].Day)
	assert.Equal(t, availability.Sunday, rows[6].Day)
	require.Len(t, rows[6].Cells, availability.TicksPerDay)
	assert.True(t, rows[6].Cells[0].Occupied)
	assert.False(t, rows[0].Cells[0].Occupied)
}

func TestScript_EndToEnd(t *testing.T) {
	ed, b := newTestEditor(t)
	var out bytes.Buffer
	s := NewScript(ed, &out)

	script := `
# multi-clinic doctor
select 2
down tue 08:00
enter tue 08:30
enter tue 09:00
up
resolve 10
down mon 13:00
enter mon 13:30
leave
cancel
show
blocks
save
`
	failures, err := s.Run(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, 0, failures, out.String())

	require.Len(t, b.saves, 1)
	assert.Equal(t, []availability.BlockInput{
		{DayOfWeek: 2, ClinicID: 10, StartTime: "08:00", EndTime: "09:30"},
	}, b.saves[0].Availability)

	text := out.String()
	assert.Contains(t, text, "choose one of: 5=Harbour, 10=Northside")
	assert.Contains(t, text, "Tue BBB.....................")
	assert.Contains(t, text, "Tuesday clinic 10 08:00-09:30")
	assert.Contains(t, text, "Saved 1 blocks for Dr. Brandt")
}

func TestScript_Errors(t *testing.T) {
	ed, _ := newTestEditor(t)
	var out bytes.Buffer
	s := NewScript(ed, &out)

	failures, err := s.Run(context.Background(), strings.NewReader("down mon 08:00\nbogus\nselect x\nselect 1\ndown funday 08:00\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, failures)
	assert.Contains(t, out.String(), "line 2: error: unknown command")

	s.StopOnError = true
	out.Reset()
	failures, err = s.Run(context.Background(), strings.NewReader("select 1\nup\nshow\n"))
	require.Error(t, err)
	assert.Equal(t, 1, failures)
	assert.NotContains(t, out.String(), "Mon ")
}
