package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/telehealth-scheduling/internal/config"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/internal/notify"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

type flakyPublisher struct {
	fail  bool
	calls int
}

func (p *flakyPublisher) Handle(context.Context, events.OutboxEntry) error {
	p.calls++
	if p.fail {
		return errors.New("sqs unavailable")
	}
	return nil
}

func bookedEntry(t *testing.T) events.OutboxEntry {
	t.Helper()
	outbox := events.NewMemoryOutbox()
	_, err := outbox.Append(context.Background(), "appointment:1", "", events.AppointmentBookedV1{
		AppointmentID: "1", PatientEmail: "ada@example.com", PatientName: "Ada", DoctorName: "Grace",
	})
	require.NoError(t, err)
	return outbox.Entries()[0]
}

func TestBuildHandlerRetriesOnlyFailedConsumer(t *testing.T) {
	tracker := events.NewMemoryProcessed()
	publisher := &flakyPublisher{fail: true}
	email := notify.NewStubEmailSender(logging.New("error"))
	handler := buildHandler(tracker, publisher, email, &appconfig.Config{Timezone: "UTC"}, logging.New("error"))
	entry := bookedEntry(t)

	require.Error(t, handler.Handle(context.Background(), entry))
	assert.Len(t, email.Sent(), 1)

	publisher.fail = false
	require.NoError(t, handler.Handle(context.Background(), entry))
	assert.Equal(t, 2, publisher.calls)
	assert.Len(t, email.Sent(), 1, "email is not resent on redelivery")

	require.NoError(t, handler.Handle(context.Background(), entry))
	assert.Equal(t, 2, publisher.calls)
}

func TestBuildHandlerWithoutPublisher(t *testing.T) {
	email := notify.NewStubEmailSender(logging.New("error"))
	handler := buildHandler(events.NewMemoryProcessed(), nil, email, &appconfig.Config{}, logging.New("error"))

	require.NoError(t, handler.Handle(context.Background(), bookedEntry(t)))
	assert.Len(t, email.Sent(), 1)
}
