package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// AvailabilityService lets verified doctors publish their weekly hours.
type AvailabilityService struct {
	directory *Directory
	store     AvailabilityStore
	logger    *logging.Logger
}

func NewAvailabilityService(directory *Directory, store AvailabilityStore, logger *logging.Logger) *AvailabilityService {
	if directory == nil || store == nil {
		panic("directory: directory and availability store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityService{directory: directory, store: store, logger: logger}
}

// List returns every availability row of a bookable doctor.
func (s *AvailabilityService) List(ctx context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	if err := s.directory.EnsureBookable(ctx, doctorID); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []scheduling.WeeklyAvailability{}
	}
	return records, nil
}

// Set replaces the doctor's window for day.
func (s *AvailabilityService) Set(ctx context.Context, doctorID uuid.UUID, day time.Weekday, start, end string) (scheduling.WeeklyAvailability, error) {
	if err := s.ensureManager(ctx, doctorID); err != nil {
		return scheduling.WeeklyAvailability{}, err
	}
	rec := scheduling.WeeklyAvailability{
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		IsActive:  true,
	}
	if err := rec.Validate(); err != nil {
		return scheduling.WeeklyAvailability{}, err
	}
	saved, err := s.store.Set(ctx, rec)
	if err != nil {
		return scheduling.WeeklyAvailability{}, fmt.Errorf("directory: set availability: %w", err)
	}
	s.logger.Info("weekly availability updated", "doctor_id", doctorID, "day_of_week", int(day), "start_time", start, "end_time", end)
	return saved, nil
}

// Delete removes one of the doctor's rows.
func (s *AvailabilityService) Delete(ctx context.Context, doctorID, availabilityID uuid.UUID) error {
	if err := s.ensureManager(ctx, doctorID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doctorID, availabilityID); err != nil {
		return err
	}
	s.logger.Info("weekly availability deleted", "doctor_id", doctorID, "availability_id", availabilityID)
	return nil
}

func (s *AvailabilityService) ensureManager(ctx context.Context, doctorID uuid.UUID) error {
	if _, err := s.directory.BookableDoctor(ctx, doctorID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.ErrNotAuthorized.WithMessage("only verified doctors can manage availability")
		}
		return err
	}
	return nil
}
