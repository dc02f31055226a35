package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/observability/metrics"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

var schedulingTracer = otel.Tracer("telehealth.internal.scheduling")

// DoctorChecker confirms a doctor can take bookings, returning
// apperr.ErrDoctorUnavailable otherwise.
type DoctorChecker interface {
	EnsureBookable(ctx context.Context, doctorID uuid.UUID) error
}

// AvailabilitySource reads a doctor's active weekly windows.
type AvailabilitySource interface {
	ActiveAvailability(ctx context.Context, doctorID uuid.UUID) ([]WeeklyAvailability, error)
}

// BookedSource returns the spans of SCHEDULED appointments that intersect window.
type BookedSource interface {
	ScheduledIntervals(ctx context.Context, doctorID uuid.UUID, window Interval) ([]Interval, error)
}

// SlotService answers "which 30-minute slots can I book with this doctor".
type SlotService struct {
	doctors      DoctorChecker
	availability AvailabilitySource
	booked       BookedSource
	generator    Generator
	clock        Clock
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
}

// NewSlotService wires the read path. clock defaults to the system clock.
func NewSlotService(doctors DoctorChecker, availability AvailabilitySource, booked BookedSource, generator Generator, clock Clock, m *metrics.BookingMetrics, logger *logging.Logger) *SlotService {
	if doctors == nil || availability == nil || booked == nil {
		panic("scheduling: doctors, availability and booked sources required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotService{
		doctors:      doctors,
		availability: availability,
		booked:       booked,
		generator:    generator,
		clock:        clock,
		metrics:      m,
		logger:       logger,
	}
}

// GetAvailableSlots returns the free slots for the next WindowDays days,
// one entry per day. A doctor without configured availability gets empty
// days rather than an error.
func (s *SlotService) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID) ([]DaySlots, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("telehealth.doctor_id", doctorID.String()))

	started := time.Now()
	days, err := s.availableSlots(ctx, doctorID)
	outcome := "ok"
	if err != nil {
		outcome = apperr.CodeOf(err)
		span.RecordError(err)
	}
	s.metrics.ObserveSlotQuery(outcome, time.Since(started).Seconds())
	return days, err
}

func (s *SlotService) availableSlots(ctx context.Context, doctorID uuid.UUID) ([]DaySlots, error) {
	if err := s.doctors.EnsureBookable(ctx, doctorID); err != nil {
		return nil, err
	}
	now := s.clock.Now()

	records, err := s.availability.ActiveAvailability(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load availability: %w", err)
	}
	if len(records) == 0 {
		// A valid and common state; the UI shows "no slots".
		return s.generator.Generate(now, nil, nil)
	}

	booked, err := s.booked.ScheduledIntervals(ctx, doctorID, s.generator.Window(now))
	if err != nil {
		return nil, fmt.Errorf("scheduling: load booked appointments: %w", err)
	}

	days, err := s.generator.Generate(now, records, booked)
	if err != nil {
		var cfgErr *apperr.Error
		if errors.As(err, &cfgErr) && cfgErr.Kind == apperr.KindConfiguration {
			s.logger.Warn("doctor availability misconfigured", "doctor_id", doctorID, "error", err)
		}
		return nil, err
	}
	return days, nil
}
