package roster

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

type Service struct {
	doctors DoctorRepository
	cache   Cache
	logger  zerolog.Logger
}

// NewService builds the roster service. cache may be nil.
func NewService(doctors DoctorRepository, cache Cache, logger zerolog.Logger) *Service {
	return &Service{doctors: doctors, cache: cache, logger: logger}
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	if id <= 0 {
		return nil, fmt.Errorf("doctor id must be positive")
	}
	if s.cache != nil {
		d, err := s.cache.Get(ctx, id)
		if err != nil {
			// A cache outage degrades to a database read.
			s.logger.Warn().Err(err).Int64("doctor_id", id).Msg("roster cache read failed")
		} else if d != nil {
			return d, nil
		}
	}
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, d); err != nil {
			s.logger.Warn().Err(err).Int64("doctor_id", id).Msg("roster cache write failed")
		}
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// RefreshDoctor drops any cached copy of the doctor and reads it again from
// the database.
func (s *Service) RefreshDoctor(ctx context.Context, id int64) (*Doctor, error) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int64("doctor_id", id).Msg("roster cache invalidate failed")
		}
	}
	return s.GetDoctor(ctx, id)
}
