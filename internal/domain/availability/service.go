package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinic/panel/internal/domain/roster"
	"github.com/clinic/panel/internal/platform/metrics"
)

// DoctorLookup resolves a doctor and its clinic affiliations. RefreshDoctor
// bypasses any cached copy.
type DoctorLookup interface {
	GetDoctor(ctx context.Context, id int64) (*roster.Doctor, error)
	RefreshDoctor(ctx context.Context, id int64) (*roster.Doctor, error)
}

type Service struct {
	repo    Repository
	doctors DoctorLookup
	metrics *metrics.AvailabilityMetrics
	logger  zerolog.Logger
}

func NewService(repo Repository, doctors DoctorLookup, m *metrics.AvailabilityMetrics, logger zerolog.Logger) *Service {
	return &Service{repo: repo, doctors: doctors, metrics: m, logger: logger}
}

// GetAvailability returns the doctor's stored weekly template unchanged.
func (s *Service) GetAvailability(ctx context.Context, doctorID int64) ([]StoredBlock, error) {
	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		s.metrics.ObserveLoad("api", "error")
		return nil, err
	}
	rows, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		s.metrics.ObserveLoad("api", "error")
		return nil, err
	}
	s.metrics.ObserveLoad("api", "ok")
	return rows, nil
}

// ReplaceAvailability validates the whole payload, merges it into maximal
// blocks and replaces the doctor's template. Any invalid entry rejects the
// request; nothing is written.
func (s *Service) ReplaceAvailability(ctx context.Context, doctorID int64, req ReplaceRequest) ([]StoredBlock, error) {
	doctor, err := s.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		s.metrics.ObserveSave("api", "error", 0)
		return nil, err
	}

	blocks := make([]Block, 0, len(req.Availability))
	for i, in := range req.Availability {
		b, err := FromWire(in.DayOfWeek, in.ClinicID, in.StartTime, in.EndTime)
		if err != nil {
			s.metrics.ObserveSave("api", "invalid", 0)
			return nil, fmt.Errorf("availability[%d]: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	merged, err := Normalize(doctor, blocks)
	if isAffiliationError(err) {
		// The cached affiliations may predate a roster change.
		if fresh, ferr := s.doctors.RefreshDoctor(ctx, doctorID); ferr == nil {
			merged, err = Normalize(fresh, blocks)
		}
	}
	if err != nil {
		s.metrics.ObserveSave("api", "invalid", 0)
		return nil, err
	}
	if len(merged) != len(blocks) {
		s.logger.Debug().Int64("doctor_id", doctorID).
			Int("submitted", len(blocks)).Int("stored", len(merged)).
			Msg("merged adjacent availability blocks")
	}

	if err := s.repo.ReplaceForDoctor(ctx, doctorID, merged); err != nil {
		status := "error"
		if IsValidation(err) {
			status = "invalid"
		}
		s.metrics.ObserveSave("api", status, 0)
		return nil, err
	}
	s.metrics.ObserveSave("api", "ok", len(merged))
	s.logger.Info().Int64("doctor_id", doctorID).Int("blocks", len(merged)).Msg("availability replaced")

	out := make([]StoredBlock, 0, len(merged))
	for _, b := range merged {
		out = append(out, b.ToStored())
	}
	return out, nil
}

func isAffiliationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Field == "clinic_id" && ve.Value != ""
}

// IsValidation reports whether err is a client input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
