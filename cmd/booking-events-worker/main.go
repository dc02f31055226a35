package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/wolfman30/telehealth-scheduling/cmd/mainconfig"
	"github.com/wolfman30/telehealth-scheduling/internal/app/bootstrap"
	appconfig "github.com/wolfman30/telehealth-scheduling/internal/config"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/internal/notify"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

const consumerSQSPublisher = "events.sqs-publisher"

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("booking events worker requires DATABASE_URL")
		os.Exit(1)
	}
	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var publisher events.DeliveryHandler
	if cfg.BookingEventsQueueURL != "" {
		publisher = events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.BookingEventsQueueURL)
	} else {
		logger.Warn("BOOKING_EVENTS_QUEUE_URL not set; events will not be published to SQS")
	}
	email := bootstrap.BuildEmailSender(cfg, &awsCfg, logger)

	handler := buildHandler(events.NewProcessedStore(pool), publisher, email, cfg, logger)
	deliverer := events.NewDeliverer(events.NewOutboxStore(pool), handler, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)

	logger.Info("booking events worker started", "queue_url", cfg.BookingEventsQueueURL, "email_provider", cfg.EmailProvider)
	deliverer.Start(ctx)
	logger.Info("booking events worker stopped")
}

// buildHandler fans each outbox entry out to SQS and the confirmation email.
// Each consumer is deduplicated on its own so a partial failure only retries
// the consumer that failed.
func buildHandler(tracker events.ProcessedTracker, publisher events.DeliveryHandler, email notify.EmailSender, cfg *appconfig.Config, logger *logging.Logger) events.DeliveryHandler {
	var handlers events.MultiHandler
	if publisher != nil {
		handlers = append(handlers, events.Deduplicate(consumerSQSPublisher, tracker, publisher))
	}
	notifier := notify.NewBookingNotifier(email, cfg.Location(), logger)
	handlers = append(handlers, events.Deduplicate(notify.ConsumerBookingEmail, tracker,
		events.TypeFilter(notifier, events.TypeAppointmentBookedV1)))
	return handlers
}
