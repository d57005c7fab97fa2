package registrationRoutes

import (
	controllers "brz/controllers/registration"
	"brz/middleware"
	"brz/models"
	validators "brz/validators/registration"

	"github.com/gofiber/fiber/v2"
)

// SetupRegistrationRoutes wires the applicant and public endpoints.
func SetupRegistrationRoutes(app *fiber.App, h *controllers.Handler, maxUploadBytes int64) {
	regGroup := app.Group("/registration")
	regGroup.Post("/", middleware.OptionalJWT, validators.SubmitRegistration(maxUploadBytes), h.Submit)
	regGroup.Get("/mine", middleware.JWTMiddleware, h.ListMine)
	regGroup.Get("/:id", middleware.JWTMiddleware, validators.RegistrationID(), h.Get)
	regGroup.Put("/:id", middleware.JWTMiddleware, validators.UpdateRegistration(), h.UpdateProfile)
	regGroup.Put("/:id/payment-proof", middleware.JWTMiddleware, validators.PaymentProof(maxUploadBytes), h.ReplacePaymentProof)
	regGroup.Delete("/:id", middleware.JWTMiddleware, validators.RegistrationID(), h.Cancel)

	app.Get("/certificate/verify/:code", validators.CertificateCode(), h.VerifyCertificate)

	notifGroup := app.Group("/notifications", middleware.JWTMiddleware)
	notifGroup.Get("/", validators.ListNotifications(), h.ListNotifications)
	notifGroup.Put("/:id/read", validators.NotificationID(), h.MarkNotificationRead)
}

// SetupAdminRegistrationRoutes wires the operator endpoints.
func SetupAdminRegistrationRoutes(app *fiber.App, h *controllers.Handler, maxUploadBytes int64) {
	adminGroup := app.Group("/admin/registration", middleware.JWTMiddleware, middleware.RequireRole(models.RoleOperator))

	adminGroup.Get("/list", validators.ListRegistrations(), h.AdminList)
	adminGroup.Get("/:id", validators.RegistrationID(), h.Get)
	adminGroup.Post("/:id/decide", validators.Decide(), h.Decide)
	adminGroup.Post("/:id/certificate", validators.IssueCertificate(maxUploadBytes), h.IssueCertificate)
	adminGroup.Post("/:id/complete-without-certificate", validators.RegistrationID(), h.CompleteWithoutCertificate)
	adminGroup.Delete("/:id", validators.RegistrationID(), h.AdminDelete)
}
