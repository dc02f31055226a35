package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/directory"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/internal/observability/metrics"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/internal/video"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

var appointmentsTracer = otel.Tracer("telehealth.internal.appointments")

const (
	// DefaultJoinLead is how long before the start participants may join.
	DefaultJoinLead = 30 * time.Minute
	// DefaultJoinGrace is how long after the end tokens stay valid.
	DefaultJoinGrace = time.Hour

	defaultPageLimit = 10
	maxPageLimit     = 50
	maxPage          = 10000
)

// Directory resolves the users involved in an appointment.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (directory.User, error)
	BookableDoctor(ctx context.Context, id uuid.UUID) (directory.User, error)
}

// Booker reserves doctor time and manages the resulting appointments.
type Booker struct {
	repo      Repository
	tx        TxManager
	ledger    credits.Ledger
	directory Directory
	video     video.Provisioner
	clock     scheduling.Clock
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger

	joinLead  time.Duration
	joinGrace time.Duration
}

// NewBooker wires the booking transactor. repo and ledger serve reads
// outside transactions; tx provides the transactional views.
func NewBooker(repo Repository, tx TxManager, ledger credits.Ledger, dir Directory, provisioner video.Provisioner, clock scheduling.Clock, m *metrics.BookingMetrics, logger *logging.Logger) *Booker {
	if repo == nil || tx == nil || ledger == nil || dir == nil || provisioner == nil {
		panic("appointments: repository, tx manager, ledger, directory and provisioner required")
	}
	if clock == nil {
		clock = scheduling.SystemClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Booker{
		repo:      repo,
		tx:        tx,
		ledger:    ledger,
		directory: dir,
		video:     provisioner,
		clock:     clock,
		metrics:   m,
		logger:    logger,
		joinLead:  DefaultJoinLead,
		joinGrace: DefaultJoinGrace,
	}
}

func (b *Booker) WithJoinWindow(lead, grace time.Duration) *Booker {
	if lead >= 0 {
		b.joinLead = lead
	}
	if grace >= 0 {
		b.joinGrace = grace
	}
	return b
}

// ScheduledIntervals feeds the slot generator with booked spans.
func (b *Booker) ScheduledIntervals(ctx context.Context, doctorID uuid.UUID, window scheduling.Interval) ([]scheduling.Interval, error) {
	return b.repo.ScheduledIntervals(ctx, doctorID, window)
}

// BookAppointment reserves [StartTime, EndTime) with the doctor, moves the
// booking cost from patient to doctor and attaches a fresh video session.
// Either all of it is committed or none of it is.
func (b *Booker) BookAppointment(ctx context.Context, req BookRequest) (Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("telehealth.doctor_id", req.DoctorID.String()),
		attribute.String("telehealth.patient_id", req.PatientID.String()),
	)

	started := time.Now()
	appt, err := b.book(ctx, req)
	code := "ok"
	if err != nil {
		code = apperr.CodeOf(err)
		span.RecordError(err)
		b.logger.Warn("booking rejected", "doctor_id", req.DoctorID, "patient_id", req.PatientID, "code", code, "error", err)
	} else {
		span.SetAttributes(attribute.String("telehealth.appointment_id", appt.ID.String()))
		b.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor_id", appt.DoctorID, "patient_id", appt.PatientID, "start_time", appt.StartTime)
	}
	b.metrics.ObserveBooking(code, time.Since(started).Seconds())
	return appt, err
}

func (b *Booker) book(ctx context.Context, req BookRequest) (Appointment, error) {
	if err := req.validate(); err != nil {
		return Appointment{}, err
	}
	slot := scheduling.Interval{Start: req.StartTime, End: req.EndTime}.UTC()

	doctor, err := b.directory.BookableDoctor(ctx, req.DoctorID)
	if err != nil {
		return Appointment{}, err
	}
	patient, err := b.directory.GetUser(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return Appointment{}, apperr.ErrValidation.WithMessage("patient not found")
		}
		return Appointment{}, fmt.Errorf("appointments: load patient: %w", err)
	}

	balance, err := b.ledger.Balance(ctx, req.PatientID)
	if err != nil && !errors.Is(err, credits.ErrUnknownAccount) {
		return Appointment{}, fmt.Errorf("appointments: read balance: %w", err)
	}
	if balance < credits.BookingCost {
		return Appointment{}, apperr.ErrInsufficientCredits
	}

	taken, err := b.repo.HasScheduledOverlap(ctx, req.DoctorID, slot)
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: %w", err)
	}
	if taken {
		return Appointment{}, apperr.ErrSlotConflict
	}

	var booked Appointment
	err = b.tx.WithDoctorTx(ctx, req.DoctorID, func(ctx context.Context, repos Repos) error {
		taken, err := repos.Appointments.HasScheduledOverlap(ctx, req.DoctorID, slot)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrSlotConflict
		}

		sessionID, err := b.video.CreateSession(ctx)
		if err != nil {
			return apperr.ErrSessionProvisioningFailed.Wrap(err)
		}

		now := b.clock.Now().UTC()
		appt := Appointment{
			ID:             uuid.New(),
			DoctorID:       req.DoctorID,
			PatientID:      req.PatientID,
			StartTime:      slot.Start,
			EndTime:        slot.End,
			Status:         StatusScheduled,
			Description:    req.Description,
			VideoSessionID: sessionID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := repos.Ledger.Debit(ctx, patient.ID, credits.BookingCost, credits.Entry{
			Type:          credits.TypeAppointmentDeduction,
			AppointmentID: appt.ID,
			Description:   "Video consultation with Dr. " + doctor.FullName(),
		}); err != nil {
			return err
		}
		if err := repos.Ledger.Credit(ctx, doctor.ID, credits.BookingCost, credits.Entry{
			Type:          credits.TypeAppointmentEarning,
			AppointmentID: appt.ID,
			Description:   "Consultation with " + patient.FullName(),
		}); err != nil {
			return err
		}
		if err := repos.Appointments.Insert(ctx, appt); err != nil {
			return err
		}
		if _, err := repos.Events.Append(ctx, events.AppointmentAggregate(appt.ID.String()), chimiddleware.GetReqID(ctx), events.AppointmentBookedV1{
			AppointmentID:  appt.ID.String(),
			DoctorID:       doctor.ID.String(),
			DoctorName:     doctor.FullName(),
			DoctorEmail:    doctor.Email,
			PatientID:      patient.ID.String(),
			PatientName:    patient.FullName(),
			PatientEmail:   patient.Email,
			StartTime:      appt.StartTime,
			EndTime:        appt.EndTime,
			VideoSessionID: sessionID,
			CreditsCharged: credits.BookingCost,
			BookedAt:       now,
		}); err != nil {
			return err
		}
		booked = appt
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return Appointment{}, err
		}
		return Appointment{}, fmt.Errorf("appointments: book: %w", err)
	}
	return booked, nil
}

// GenerateJoinToken issues a fresh publisher token for a participant and
// stores it on the appointment, replacing any earlier one.
func (b *Booker) GenerateJoinToken(ctx context.Context, appointmentID, requesterID uuid.UUID) (JoinToken, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.join_token")
	defer span.End()
	span.SetAttributes(attribute.String("telehealth.appointment_id", appointmentID.String()))

	token, err := b.joinToken(ctx, appointmentID, requesterID)
	code := "ok"
	if err != nil {
		code = apperr.CodeOf(err)
		span.RecordError(err)
	}
	b.metrics.ObserveJoinToken(code)
	return token, err
}

func (b *Booker) joinToken(ctx context.Context, appointmentID, requesterID uuid.UUID) (JoinToken, error) {
	appt, err := b.repo.Get(ctx, appointmentID)
	if err != nil {
		return JoinToken{}, err
	}
	if !appt.Participant(requesterID) {
		return JoinToken{}, apperr.ErrNotAuthorized
	}
	if appt.Status != StatusScheduled || appt.VideoSessionID == "" {
		return JoinToken{}, apperr.ErrAppointmentNotJoinable
	}

	now := b.clock.Now()
	if now.Before(appt.StartTime.Add(-b.joinLead)) {
		return JoinToken{}, apperr.ErrTooEarlyToJoin
	}
	expires := appt.EndTime.Add(b.joinGrace)
	if now.After(expires) {
		return JoinToken{}, apperr.ErrAppointmentNotJoinable.WithMessage("this appointment has already ended")
	}

	requester, err := b.directory.GetUser(ctx, requesterID)
	if err != nil {
		return JoinToken{}, fmt.Errorf("appointments: load requester: %w", err)
	}
	token, err := b.video.IssueToken(ctx, appt.VideoSessionID, video.TokenRequest{
		Role:      video.RolePublisher,
		ExpiresAt: expires,
		Metadata: map[string]string{
			"name":   requester.FullName(),
			"role":   string(requester.Role),
			"userId": requester.ID.String(),
		},
	})
	if err != nil {
		return JoinToken{}, apperr.ErrSessionProvisioningFailed.WithMessage("failed to generate video token").Wrap(err)
	}
	if err := b.repo.SetToken(ctx, appt.ID, token, now); err != nil {
		return JoinToken{}, err
	}
	return JoinToken{AppointmentID: appt.ID, SessionID: appt.VideoSessionID, Token: token, ExpiresAt: expires.UTC()}, nil
}

// Cancel moves a scheduled appointment to CANCELLED on behalf of either participant.
func (b *Booker) Cancel(ctx context.Context, appointmentID, actorID uuid.UUID, reason string) (Appointment, error) {
	if len([]rune(reason)) > maxReasonLen {
		return Appointment{}, apperr.ErrValidation.WithMessage(fmt.Sprintf("cancellation reason cannot exceed %d characters", maxReasonLen))
	}
	appt, err := b.repo.Get(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if !appt.Participant(actorID) {
		return Appointment{}, apperr.ErrNotAuthorized.WithMessage("only participants can cancel this appointment")
	}
	return b.transition(ctx, appt, StatusCancelled, StatusChange{CancelReason: reason}, actorID)
}

// Complete closes a scheduled appointment with the doctor's notes.
func (b *Booker) Complete(ctx context.Context, appointmentID, actorID uuid.UUID, notes CompletionNotes) (Appointment, error) {
	if err := notes.validate(); err != nil {
		return Appointment{}, err
	}
	appt, err := b.repo.Get(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if appt.DoctorID != actorID {
		return Appointment{}, apperr.ErrNotAuthorized.WithMessage("only the doctor can complete this appointment")
	}
	return b.transition(ctx, appt, StatusCompleted, StatusChange{Notes: notes}, actorID)
}

func (b *Booker) transition(ctx context.Context, appt Appointment, to Status, change StatusChange, actorID uuid.UUID) (Appointment, error) {
	if !CanTransition(appt.Status, to) {
		return Appointment{}, apperr.ErrInvalidTransition
	}
	change.From = StatusScheduled
	change.To = to
	change.At = b.clock.Now().UTC()

	var updated Appointment
	err := b.tx.WithDoctorTx(ctx, appt.DoctorID, func(ctx context.Context, repos Repos) error {
		var err error
		updated, err = repos.Appointments.UpdateStatus(ctx, appt.ID, change)
		if err != nil {
			return err
		}
		var evt events.CanonicalEvent
		switch to {
		case StatusCancelled:
			evt = events.AppointmentCancelledV1{
				AppointmentID: appt.ID.String(),
				DoctorID:      appt.DoctorID.String(),
				PatientID:     appt.PatientID.String(),
				CancelledBy:   actorID.String(),
				Reason:        change.CancelReason,
				StartTime:     appt.StartTime,
				CancelledAt:   change.At,
			}
		case StatusCompleted:
			evt = events.AppointmentCompletedV1{
				AppointmentID: appt.ID.String(),
				DoctorID:      appt.DoctorID.String(),
				PatientID:     appt.PatientID.String(),
				CompletedAt:   change.At,
			}
		}
		_, err = repos.Events.Append(ctx, events.AppointmentAggregate(appt.ID.String()), chimiddleware.GetReqID(ctx), evt)
		return err
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return Appointment{}, err
		}
		return Appointment{}, fmt.Errorf("appointments: %s: %w", to, err)
	}
	b.metrics.ObserveTransition(string(to))
	b.logger.Info("appointment status changed", "appointment_id", appt.ID, "status", to, "actor_id", actorID)
	return updated, nil
}

// ListForDoctor pages through a doctor's appointments in start order.
// status defaults to SCHEDULED; limit defaults to 10 and is capped at 50.
// Pages past maxPage are rejected so the offset stays in range.
func (b *Booker) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status Status, page, limit int) (Page, error) {
	if status == "" {
		status = StatusScheduled
	}
	if page > maxPage {
		return Page{}, apperr.ErrValidation.WithMessage(fmt.Sprintf("page cannot exceed %d", maxPage))
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	appts, total, err := b.repo.ListForDoctor(ctx, doctorID, status, limit, (page-1)*limit)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Appointments: appts,
		Total:        total,
		Page:         page,
		Limit:        limit,
		TotalPages:   (total + limit - 1) / limit,
	}, nil
}
