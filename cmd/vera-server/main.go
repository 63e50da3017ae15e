package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/verawork/vera-backend/internal/audit"
	"github.com/verawork/vera-backend/internal/auth"
	"github.com/verawork/vera-backend/internal/auth/jwt"
	"github.com/verawork/vera-backend/internal/calendar"
	"github.com/verawork/vera-backend/internal/compliance"
	"github.com/verawork/vera-backend/internal/holidays"
	"github.com/verawork/vera-backend/internal/jobs"
	"github.com/verawork/vera-backend/internal/notify"
	payrollhandler "github.com/verawork/vera-backend/internal/payroll/handler"
	payrollrepo "github.com/verawork/vera-backend/internal/payroll/repository"
	payrollsvc "github.com/verawork/vera-backend/internal/payroll/service"
	schedulehandler "github.com/verawork/vera-backend/internal/schedule/handler"
	schedulerepo "github.com/verawork/vera-backend/internal/schedule/repository"
	schedulesvc "github.com/verawork/vera-backend/internal/schedule/service"
	staffhandler "github.com/verawork/vera-backend/internal/staff/handler"
	staffrepo "github.com/verawork/vera-backend/internal/staff/repository"
	staffsvc "github.com/verawork/vera-backend/internal/staff/service"
	"github.com/verawork/vera-backend/internal/tenants"
	"github.com/verawork/vera-backend/pkg/config"
	"github.com/verawork/vera-backend/pkg/database"
	"github.com/verawork/vera-backend/pkg/httputil"
	"github.com/verawork/vera-backend/pkg/logger"
	"github.com/verawork/vera-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.Load("vera-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("vera-server", cfg.Server.Environment)
	log.Info().Msg("starting VERA server")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeEvents, "vera-server", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Shared domain services
	holidayCalendar := holidays.NewCalendar()
	jwtManager := jwt.NewManager(&cfg.JWT)

	// Repositories
	tenantRepo := tenants.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	employeeRepo := staffrepo.NewEmployeeRepository(db)
	contractRepo := staffrepo.NewContractRepository(db)
	absenceRepo := staffrepo.NewAbsenceRepository(db)
	shiftRepo := schedulerepo.NewShiftRepository(db)
	templateRepo := schedulerepo.NewTemplateRepository(db)
	recurringRepo := schedulerepo.NewRecurringRepository(db)
	profileRepo := schedulerepo.NewProfileRepository(db)
	payrollRepo := payrollrepo.NewPayrollRepository(db)
	notifyRepo := notify.NewRepository(db)

	// Services
	complianceSvc := compliance.NewService(shiftRepo, employeeRepo, payrollRepo, holidayCalendar, log)
	shiftSvc := schedulesvc.NewShiftService(shiftRepo, holidayCalendar, auditRepo, complianceSvc, publisher, log)
	templateSvc := schedulesvc.NewTemplateService(templateRepo)
	profileSvc := schedulesvc.NewProfileService(profileRepo, log)
	expanderSvc := schedulesvc.NewExpanderService(recurringRepo, shiftRepo, profileRepo, holidayCalendar, publisher, log)
	employeeSvc := staffsvc.NewEmployeeService(employeeRepo, contractRepo, log)
	contractSvc := staffsvc.NewContractService(contractRepo, employeeRepo)
	absenceSvc := staffsvc.NewAbsenceService(absenceRepo, employeeRepo, shiftRepo, publisher, log)
	payrollSvc := payrollsvc.NewPayrollService(payrollRepo, shiftRepo, employeeRepo, contractRepo, holidayCalendar, publisher, log)
	dispatcher := notify.NewDispatcher(notifyRepo, cfg, log)

	// Handlers
	shiftHandler := schedulehandler.NewShiftHandler(shiftSvc, log)
	templateHandler := schedulehandler.NewTemplateHandler(templateSvc)
	recurringHandler := schedulehandler.NewRecurringHandler(expanderSvc, recurringRepo, log)
	profileHandler := schedulehandler.NewProfileHandler(profileSvc, log)
	employeeHandler := staffhandler.NewEmployeeHandler(employeeSvc, contractSvc, log)
	absenceHandler := staffhandler.NewAbsenceHandler(absenceSvc, log)
	complianceHandler := compliance.NewHandler(complianceSvc, shiftRepo)
	payrollHandler := payrollhandler.NewPayrollHandler(payrollSvc, payrollRepo, employeeRepo, tenantRepo, log)
	calendarHandler := calendar.NewHandler(employeeRepo, shiftRepo, profileRepo, holidayCalendar, log)
	notifyHandler := notify.NewHandler(notifyRepo, &cfg.WebPush, log)

	// Notification consumer
	notifyConsumer := notify.NewConsumer(dispatcher, shiftRepo, employeeRepo, absenceRepo, log)
	consumer, err := messaging.NewConsumer(rmq, messaging.QueueNotifications, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create notification consumer")
	}
	if err := notifyConsumer.Register(consumer); err != nil {
		log.Fatal().Err(err).Msg("failed to register notification consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start notification consumer")
	}

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = jobs.NewScheduler(cfg.Scheduler, tenantRepo, shiftRepo, employeeRepo, payrollSvc, publisher, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job scheduler")
		}
		scheduler.Start()
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "vera-server",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Public calendar feed; the token is the credential
	r.Get("/api/v1/calendar/{token}", calendarHandler.Feed)

	// Authenticated API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(jwtManager))

		r.Get("/auth/me", auth.Me)

		r.Get("/calendar/vacation-data", calendarHandler.Vacations)

		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", shiftHandler.List)
			r.Post("/", shiftHandler.Create)
			r.Post("/bulk", shiftHandler.CreateBulk)
			r.Get("/{id}", shiftHandler.Get)
			r.Put("/{id}", shiftHandler.Update)
			r.Delete("/{id}", shiftHandler.Delete)
			r.Post("/{id}/confirm", shiftHandler.Confirm)
			r.Post("/{id}/claim", shiftHandler.Claim)
		})

		r.Route("/shift-templates", func(r chi.Router) {
			r.Get("/", templateHandler.List)
			r.Post("/", templateHandler.Create)
			r.Put("/{id}", templateHandler.Update)
		})

		r.Route("/recurring-shifts", func(r chi.Router) {
			r.Get("/", recurringHandler.List)
			r.Post("/", recurringHandler.Create)
			r.Post("/preview", recurringHandler.Preview)
			r.Put("/{id}", recurringHandler.Update)
			r.Post("/{id}/update-from", recurringHandler.UpdateFrom)
			r.Delete("/{id}", recurringHandler.Delete)
		})

		r.Route("/holiday-profiles", func(r chi.Router) {
			r.Get("/", profileHandler.List)
			r.Post("/", profileHandler.Create)
			r.Get("/{id}", profileHandler.Get)
			r.Put("/{id}", profileHandler.Update)
			r.Delete("/{id}", profileHandler.Delete)
			r.Post("/{id}/periods", profileHandler.AddPeriod)
			r.Delete("/{id}/periods/{pid}", profileHandler.RemovePeriod)
			r.Post("/{id}/custom-days", profileHandler.AddCustomDay)
			r.Delete("/{id}/custom-days/{did}", profileHandler.RemoveCustomDay)
		})

		r.Route("/absences", func(r chi.Router) {
			r.Get("/", absenceHandler.List)
			r.Post("/", absenceHandler.Create)
			r.Get("/{id}", absenceHandler.Get)
			r.Put("/{id}", absenceHandler.Decide)
		})

		r.Route("/care-absences", func(r chi.Router) {
			r.Get("/", absenceHandler.ListCare)
			r.Post("/", absenceHandler.CreateCare)
		})

		r.Route("/compliance", func(r chi.Router) {
			r.Use(auth.RequirePrivileged)
			r.Get("/violations", complianceHandler.ListViolations)
			r.Post("/run", complianceHandler.Run)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", payrollHandler.List)
			r.Get("/{id}", payrollHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePrivileged)
				r.Post("/calculate", payrollHandler.Calculate)
				r.Post("/calculate-all", payrollHandler.CalculateAll)
				r.Put("/{id}", payrollHandler.UpdateStatus)
				r.Get("/{id}/pdf", payrollHandler.PDF)
				r.Get("/export", payrollHandler.Export)
			})
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", employeeHandler.List)
			r.Post("/", employeeHandler.Create)
			r.Get("/me", employeeHandler.Me)
			r.Put("/me", employeeHandler.UpdateMe)
			r.Get("/{id}", employeeHandler.Get)
			r.Put("/{id}", employeeHandler.Update)
			r.Delete("/{id}", employeeHandler.Delete)
			r.Post("/{id}/rotate-ical-token", employeeHandler.RotateToken)
			r.Get("/{id}/contracts", employeeHandler.ListContracts)
			r.Post("/{id}/contracts", employeeHandler.AddContract)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/log", notifyHandler.ListLogs)
			r.Get("/vapid-public-key", notifyHandler.VAPIDPublicKey)
			r.Post("/push-subscriptions", notifyHandler.Subscribe)
			r.Delete("/push-subscriptions", notifyHandler.Unsubscribe)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consumers and jobs
	cancel()
	if scheduler != nil {
		scheduler.Stop()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
