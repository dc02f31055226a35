package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type badEvent struct{}

func (badEvent) EventType() string { return "" }

func TestNewEnvelope(t *testing.T) {
	fixedNow := time.Unix(0, 123456000).UTC()
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	env, err := NewEnvelope(AppointmentAggregate("appt-1"), "corr-1", AppointmentBookedV1{
		AppointmentID: "appt-1",
		DoctorID:      "doc-1",
		PatientID:     "pat-1",
		StartTime:     fixedNow,
		EndTime:       fixedNow.Add(30 * time.Minute),
	}, WithEventID(id))
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.EventID != id {
		t.Fatalf("expected event id override, got %s", env.EventID)
	}
	if env.TimestampMicros != fixedNow.UnixMicro() {
		t.Fatalf("unexpected timestamp: %d", env.TimestampMicros)
	}
	if env.EventType != TypeAppointmentBookedV1 {
		t.Fatalf("unexpected type: %s", env.EventType)
	}
	if env.Aggregate != "appointment:appt-1" {
		t.Fatalf("unexpected aggregate: %s", env.Aggregate)
	}

	var decoded AppointmentBookedV1
	if err := env.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.DoctorID != "doc-1" || !decoded.EndTime.Equal(fixedNow.Add(30*time.Minute)) {
		t.Fatalf("unexpected payload: %#v", decoded)
	}
}

func TestEnvelopeValidation(t *testing.T) {
	if _, err := NewEnvelope("", "", AppointmentCancelledV1{}); err == nil {
		t.Fatal("expected aggregate error")
	}
	if _, err := NewEnvelope("agg", "", nil); err == nil {
		t.Fatal("expected nil event error")
	}
	if _, err := NewEnvelope("agg", "", badEvent{}); err == nil {
		t.Fatal("expected event type error")
	}
}

func TestWithTimestampOption(t *testing.T) {
	target := time.Unix(50, 123000).UTC()
	env, err := NewEnvelope("agg", "", AppointmentCompletedV1{AppointmentID: "x"}, WithTimestamp(target))
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.TimestampMicros != target.UnixMicro() {
		t.Fatalf("expected timestamp override, got %d", env.TimestampMicros)
	}
}
