package server

import (
	"brz/certificate"
	"brz/config"
	controllers "brz/controllers/registration"
	"brz/logger"
	"brz/middleware"
	"brz/repository"
	"brz/routers/registrationRoutes"
	"brz/services"
	"brz/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Services is the wired service graph.
type Services struct {
	Registrations *services.RegistrationService
	Notifications *services.NotificationService
	Verifier      *services.VerificationService
	Reminders     *services.ReminderScheduler
}

// NewServices builds every service over db and blobs. Sinks receive each
// notification after it has been persisted.
func NewServices(cfg *config.Config, db *gorm.DB, blobs storage.BlobStore, renderer *certificate.Renderer, log logger.Logger, sinks ...services.Sink) *Services {
	registrations := repository.NewRegistrationRepository(db)
	notifier := services.NewNotificationService(repository.NewNotificationRepository(db), log, sinks...)

	return &Services{
		Registrations: services.NewRegistrationService(
			registrations,
			repository.NewProgramRepository(db),
			storage.NewArtifactStore(blobs, cfg.Upload.MaxBytes),
			services.NewCertificateService(renderer, blobs, cfg.Certificate, log),
			notifier,
			log,
			services.RegistrationServiceConfig{PaymentFolder: cfg.Upload.PaymentFolder},
		),
		Notifications: notifier,
		Verifier:      services.NewVerificationService(registrations, cfg.Certificate.Issuer, cfg.VerifyTTL),
		Reminders:     services.NewReminderScheduler(registrations, notifier, cfg.Reminder.StaleDays, log),
	}
}

// NewApp builds the Fiber application with every route mounted.
func NewApp(cfg *config.Config, svc *Services, log logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		// Multipart bodies carry up to three images plus form fields.
		BodyLimit: int(cfg.Upload.MaxBytes)*3 + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return middleware.JsonResponse(c, e.Code, false, e.Message, nil)
			}
			return middleware.ErrorResponse(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	if cfg.Storage.Driver == "local" || cfg.Storage.Driver == "" {
		app.Static(cfg.Storage.PublicPrefix, cfg.Storage.Root)
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	h := controllers.NewHandler(svc.Registrations, svc.Notifications, svc.Verifier, log)
	registrationRoutes.SetupRegistrationRoutes(app, h, cfg.Upload.MaxBytes)
	registrationRoutes.SetupAdminRegistrationRoutes(app, h, cfg.Upload.MaxBytes)

	return app
}
