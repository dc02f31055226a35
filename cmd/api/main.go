package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/telehealth-scheduling/internal/api/router"
	"github.com/wolfman30/telehealth-scheduling/internal/app/bootstrap"
	"github.com/wolfman30/telehealth-scheduling/internal/appointments"
	appconfig "github.com/wolfman30/telehealth-scheduling/internal/config"
	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/directory"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	httpmiddleware "github.com/wolfman30/telehealth-scheduling/internal/http/middleware"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/notify"
	"github.com/wolfman30/telehealth-scheduling/internal/observability/metrics"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth scheduling API",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsHandler, bookingMetrics := setupMetrics()

	pool, err := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	provisioner, err := bootstrap.BuildProvisioner(cfg, bookingMetrics, logger)
	if err != nil {
		logger.Error("failed to build video provisioner", "error", err)
		os.Exit(1)
	}

	stores := buildStores(pool, redisClient, cfg, logger)
	if stores.memoryOutbox != nil {
		// Without Postgres there is no booking-events worker, so deliver in-process.
		notifier := notify.NewBookingNotifier(bootstrap.BuildEmailSender(cfg, nil, logger), cfg.Location(), logger)
		deliverer := events.NewDeliverer(stores.memoryOutbox,
			events.Deduplicate(notify.ConsumerBookingEmail, events.NewMemoryProcessed(), notifier), logger).
			WithInterval(cfg.OutboxPollInterval)
		go deliverer.Start(ctx)
	}

	clock := scheduling.SystemClock{}
	dir := directory.New(stores.users)
	booker := appointments.NewBooker(stores.appointments, stores.tx, stores.ledger, dir, provisioner, clock, bookingMetrics, logger)
	slots := scheduling.NewSlotService(dir, stores.availability, booker, scheduling.NewGenerator(cfg.Location()), clock, bookingMetrics, logger)

	health := router.NewHealthHandler()
	if pool != nil {
		health.WithCheck("postgres", pool)
	}
	if redisClient != nil {
		health.WithCheck("redis", router.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }))
	}

	r := router.New(&router.Config{
		Logger:              logger,
		SlotsHandler:        scheduling.NewHandler(slots, logger),
		AvailabilityHandler: directory.NewHandler(directory.NewAvailabilityService(dir, stores.availability, logger), logger),
		AppointmentsHandler: appointments.NewHandler(booker, logger),
		Health:              health,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  httpmiddleware.ParseOrigins(cfg.CORSAllowedOrigins),
		AuthSecret:          cfg.AuthJWTSecret,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

type stores struct {
	users        directory.Users
	availability directory.AvailabilityStore
	appointments appointments.Repository
	tx           appointments.TxManager
	ledger       credits.Ledger
	memoryOutbox *events.MemoryOutbox
}

// buildStores picks Postgres-backed stores when a pool is available and an
// in-memory stack with demo data otherwise.
func buildStores(pool *pgxpool.Pool, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) stores {
	var s stores
	if pool != nil {
		s = stores{
			users:        directory.NewPostgresUsers(pool),
			availability: directory.NewPostgresAvailability(pool),
			appointments: appointments.NewPostgresRepository(pool),
			tx:           appointments.NewPostgresTxManager(pool, cfg.DBTxTimeout),
			ledger:       credits.NewPostgresLedger(pool),
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores with demo data")
		users := directory.NewMemoryUsers()
		availability := directory.NewMemoryAvailability()
		ledger := credits.NewMemoryLedger()
		repo := appointments.NewMemoryRepository()
		outbox := events.NewMemoryOutbox()
		seedDemo(users, availability, ledger, logger)
		s = stores{
			users:        users,
			availability: availability,
			appointments: repo,
			tx:           appointments.NewMemoryTxManager(repo, ledger, outbox),
			ledger:       ledger,
			memoryOutbox: outbox,
		}
	}
	if redisClient != nil {
		s.availability = directory.NewCachedAvailability(s.availability, redisClient, cfg.AvailabilityCacheTTL, logger)
	}
	return s
}

// seedDemo registers one verified doctor (weekdays 09:00-17:00) and one
// patient with enough credits for a few bookings.
func seedDemo(users *directory.MemoryUsers, availability *directory.MemoryAvailability, ledger *credits.MemoryLedger, logger *logging.Logger) {
	doctor := directory.User{ID: uuid.New(), FirstName: "Demo", LastName: "Doctor", Email: "doctor@example.com",
		Role: identity.RoleDoctor, VerificationStatus: directory.VerificationVerified}
	patient := directory.User{ID: uuid.New(), FirstName: "Demo", LastName: "Patient", Email: "patient@example.com",
		Role: identity.RolePatient}
	users.Put(doctor)
	users.Put(patient)
	ledger.Open(doctor.ID, 0)
	ledger.Open(patient.ID, 10)
	for day := time.Monday; day <= time.Friday; day++ {
		availability.Insert(scheduling.WeeklyAvailability{
			ID: uuid.New(), DoctorID: doctor.ID, DayOfWeek: day, StartTime: "09:00", EndTime: "17:00", IsActive: true,
		})
	}
	logger.Info("demo data seeded", "doctor_id", doctor.ID, "patient_id", patient.ID)
}
