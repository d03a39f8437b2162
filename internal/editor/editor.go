// Package editor drives the weekly availability grid for one selected doctor
// at a time. It owns the slot store, the drag controller and any open clinic
// choice, and performs the roster, load and save calls around them.
package editor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/clinic/panel/internal/domain/availability"
	"github.com/clinic/panel/internal/domain/roster"
	"github.com/clinic/panel/internal/platform/metrics"
)

// RosterSource lists the doctors the operator can pick from.
type RosterSource interface {
	ListDoctors(ctx context.Context) ([]roster.Doctor, error)
}

// ScheduleSource reads and replaces a doctor's weekly template.
type ScheduleSource interface {
	GetAvailability(ctx context.Context, doctorID int64) ([]availability.StoredBlock, error)
	ReplaceAvailability(ctx context.Context, doctorID int64, req availability.ReplaceRequest) ([]availability.StoredBlock, error)
}

type Editor struct {
	roster    RosterSource
	schedules ScheduleSource
	metrics   *metrics.AvailabilityMetrics
	logger    zerolog.Logger

	doctors []roster.Doctor
	doctor  *roster.Doctor
	store   *availability.ScheduleStore
	drag    *availability.DragController
	// saved is the store as last loaded or saved; Dirty compares against it.
	saved  *availability.ScheduleStore
	status string
	saving atomic.Bool
}

func New(rs RosterSource, ss ScheduleSource, m *metrics.AvailabilityMetrics, logger zerolog.Logger) *Editor {
	return &Editor{roster: rs, schedules: ss, metrics: m, logger: logger}
}

// Status is the last user-facing message.
func (e *Editor) Status() string { return e.status }

// Dirty reports whether the store differs from what was last loaded or
// saved. An edit that is undone, or a cancelled clinic choice, leaves the
// editor clean.
func (e *Editor) Dirty() bool { return e.store != nil && !e.store.Equal(e.saved) }

// Doctor returns the selected doctor, or nil.
func (e *Editor) Doctor() *roster.Doctor { return e.doctor }

// Store returns the selected doctor's edit state, or nil.
func (e *Editor) Store() *availability.ScheduleStore { return e.store }

func (e *Editor) Doctors() []roster.Doctor { return e.doctors }

// Dragging reports whether a pointer gesture is in progress.
func (e *Editor) Dragging() bool { return e.drag != nil && e.drag.Dragging() }

// PendingChoice returns the open clinic choice, or nil.
func (e *Editor) PendingChoice() *availability.ClinicAssignmentResolver {
	if e.drag == nil {
		return nil
	}
	return e.drag.Pending()
}

func (e *Editor) LoadRoster(ctx context.Context) error {
	doctors, err := e.roster.ListDoctors(ctx)
	if err != nil {
		e.status = "Could not load doctors: " + err.Error()
		e.logger.Error().Err(err).Msg("roster load failed")
		return err
	}
	e.doctors = doctors
	e.status = fmt.Sprintf("Loaded %d doctors", len(doctors))
	return nil
}

func (e *Editor) findDoctor(id int64) *roster.Doctor {
	for i := range e.doctors {
		if e.doctors[i].ID == id {
			d := e.doctors[i]
			return &d
		}
	}
	return nil
}

func (e *Editor) clearSelection() {
	e.doctor = nil
	e.store = nil
	e.drag = nil
	e.saved = nil
}

func (e *Editor) install(doctor *roster.Doctor, store *availability.ScheduleStore) {
	e.doctor = doctor
	e.store = store
	e.drag = availability.NewDragController(store, doctor)
	e.saved = store.Clone()
}

func (e *Editor) refuseWhileSaving(op string) error {
	if e.saving.Load() {
		return &availability.StateError{Op: op, Err: availability.ErrSaveInFlight}
	}
	return nil
}

// SelectDoctor switches the editor to doctor id, discarding any unsaved
// edits, and loads that doctor's schedule. If the load fails no doctor is
// selected. It is refused while a save is in flight.
func (e *Editor) SelectDoctor(ctx context.Context, id int64) error {
	if err := e.refuseWhileSaving("select doctor"); err != nil {
		return err
	}
	if e.Dirty() {
		e.logger.Info().Int64("doctor_id", e.doctor.ID).Msg("discarding unsaved availability edits")
	}
	e.clearSelection()

	doctor := e.findDoctor(id)
	if doctor == nil {
		e.status = fmt.Sprintf("Doctor %d is not in the roster", id)
		return fmt.Errorf("select doctor %d: %w", id, roster.ErrNotFound)
	}

	rows, err := e.schedules.GetAvailability(ctx, id)
	if err != nil {
		e.metrics.ObserveLoad("editor", "error")
		e.status = "Could not load schedule: " + err.Error()
		e.logger.Error().Err(err).Int64("doctor_id", id).Msg("schedule load failed")
		return err
	}
	store, report, err := availability.ExpandStored(doctor, rows)
	if err != nil {
		e.metrics.ObserveLoad("editor", "error")
		return err
	}
	e.logReport(id, report)
	e.metrics.ObserveLoad("editor", "ok")

	e.install(doctor, store)
	e.status = fmt.Sprintf("Editing %s", doctor.Name)
	if !report.Clean() {
		e.status += fmt.Sprintf(" (%d blocks skipped, %d overlapping slots)", len(report.Rejected), len(report.Warnings))
	}
	return nil
}

func (e *Editor) logReport(doctorID int64, report *availability.LoadReport) {
	for _, r := range report.Rejected {
		e.logger.Warn().Err(r.Err).Int64("doctor_id", doctorID).Int("row", r.Index).Msg("skipped invalid availability block")
	}
	for _, w := range report.Warnings {
		e.logger.Warn().Int64("doctor_id", doctorID).
			Int("day_of_week", int(w.Day)).Str("tick", w.Tick.String()).
			Int64("kept_clinic", int64(w.Kept)).Int64("dropped_clinic", int64(w.Dropped)).
			Msg("overlapping availability blocks")
	}
	e.metrics.ObserveLoadIssues(len(report.Rejected), len(report.Warnings))
}

func (e *Editor) requireDoctor(op string) error {
	if e.doctor == nil {
		return &availability.StateError{Op: op, Err: availability.ErrNoDoctor}
	}
	return nil
}

func (e *Editor) PointerDown(day availability.Weekday, tick availability.Tick) error {
	if err := e.requireDoctor("pointer down"); err != nil {
		return err
	}
	if err := e.refuseWhileSaving("pointer down"); err != nil {
		return err
	}
	return e.drag.PointerDown(day, tick)
}

func (e *Editor) PointerEnter(day availability.Weekday, tick availability.Tick) {
	if e.drag != nil {
		e.drag.PointerEnter(day, tick)
	}
}

// PointerUp ends the gesture. When the doctor has several clinics and the
// gesture added slots, the editor waits for ChooseClinic or CancelChoice.
func (e *Editor) PointerUp() error {
	if err := e.requireDoctor("pointer up"); err != nil {
		return err
	}
	r, err := e.drag.PointerUp()
	if err != nil {
		e.status = err.Error()
		return err
	}
	if r != nil {
		e.status = fmt.Sprintf("Choose a clinic for %d slots on %s", len(r.Ticks()), r.Day())
	}
	return nil
}

// PointerLeave is PointerUp for a pointer leaving the grid; it is a no-op
// while idle.
func (e *Editor) PointerLeave() error {
	if e.drag == nil || !e.drag.Dragging() {
		return nil
	}
	return e.PointerUp()
}

func (e *Editor) ChooseClinic(id availability.ClinicID) error {
	r := e.PendingChoice()
	if r == nil {
		return &availability.StateError{Op: "choose clinic", Err: availability.ErrNothingPending}
	}
	if err := r.Resolve(id); err != nil {
		return err
	}
	e.status = fmt.Sprintf("Assigned to %s", e.doctor.ClinicName(int64(id)))
	return nil
}

func (e *Editor) CancelChoice() error {
	r := e.PendingChoice()
	if r == nil {
		return &availability.StateError{Op: "cancel clinic choice", Err: availability.ErrNothingPending}
	}
	if err := r.Cancel(); err != nil {
		return err
	}
	e.status = "Selection discarded"
	return nil
}

// Blocks previews what Save would send.
func (e *Editor) Blocks() ([]availability.Block, error) {
	if err := e.requireDoctor("blocks"); err != nil {
		return nil, err
	}
	return availability.Compress(e.store)
}

// Save replaces the doctor's stored template with the compressed store. A
// failed save leaves the store and its edits untouched.
func (e *Editor) Save(ctx context.Context) error {
	if err := e.requireDoctor("save"); err != nil {
		return err
	}
	if e.drag.Dragging() {
		return &availability.StateError{Op: "save", Err: availability.ErrSessionActive}
	}
	if e.drag.Pending() != nil {
		return &availability.StateError{Op: "save", Err: availability.ErrChoicePending}
	}
	if !e.saving.CompareAndSwap(false, true) {
		return &availability.StateError{Op: "save", Err: availability.ErrSaveInFlight}
	}
	defer e.saving.Store(false)

	blocks, err := availability.Compress(e.store)
	if err != nil {
		return err
	}
	doctor := e.doctor
	rows, err := e.schedules.ReplaceAvailability(ctx, doctor.ID, availability.NewReplaceRequest(blocks))
	if err != nil {
		e.metrics.ObserveSave("editor", "error", 0)
		e.status = "Save failed: " + err.Error()
		e.logger.Error().Err(err).Int64("doctor_id", doctor.ID).Msg("availability save failed")
		return err
	}
	e.metrics.ObserveSave("editor", "ok", len(blocks))
	e.logger.Info().Int64("doctor_id", doctor.ID).Int("blocks", len(blocks)).Msg("availability saved")

	// A store belongs to exactly one doctor.
	if e.doctor == nil || e.doctor.ID != doctor.ID {
		e.logger.Warn().Int64("doctor_id", doctor.ID).Msg("selection changed during save; saved rows not applied")
		return nil
	}
	store, report, err := availability.ExpandStored(doctor, rows)
	if err != nil {
		return err
	}
	e.logReport(doctor.ID, report)
	e.install(doctor, store)
	e.status = fmt.Sprintf("Saved %d blocks for %s", len(blocks), doctor.Name)
	return nil
}

// Cell is one grid position as displayed.
type Cell struct {
	Tick     availability.Tick
	Occupied bool
	Clinic   availability.ClinicID
}

// Row is one weekday of the grid.
type Row struct {
	Day   availability.Weekday
	Cells []Cell
}

// Rows snapshots the grid in Monday-first display order.
func (e *Editor) Rows() []Row {
	if e.store == nil {
		return nil
	}
	rows := make([]Row, 0, availability.DaysPerWeek)
	for _, d := range availability.DisplayOrder {
		row := Row{Day: d, Cells: make([]Cell, 0, availability.TicksPerDay)}
		for _, t := range availability.Ticks() {
			c, ok := e.store.Clinic(d, t)
			row.Cells = append(row.Cells, Cell{Tick: t, Occupied: ok, Clinic: c})
		}
		rows = append(rows, row)
	}
	return rows
}
