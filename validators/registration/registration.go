package registrationValidator

import (
	"brz/middleware"
	"brz/models"
	"brz/repository"
	"brz/services"
	"brz/storage"
	"brz/utils"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s-]{6,19}$`)

type registrationBody struct {
	ProgramID       string   `json:"program_id" form:"program_id"`
	FullName        string   `json:"full_name" form:"full_name"`
	BirthDate       string   `json:"birth_date" form:"birth_date"`
	Gender          string   `json:"gender" form:"gender"`
	Address         string   `json:"address" form:"address"`
	Phone           string   `json:"phone" form:"phone"`
	Email           string   `json:"email" form:"email"`
	Packages        []string `json:"packages" form:"packages"`
	Schedule        string   `json:"schedule" form:"schedule"`
	Experience      string   `json:"experience" form:"experience"`
	TrainingHistory string   `json:"training_history" form:"training_history"`
	PaymentProof    string   `json:"payment_proof" form:"payment_proof"`
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// splitPackages accepts repeated form values or a single comma separated value.
func splitPackages(in []string) []string {
	if len(in) == 1 && strings.Contains(in[0], ",") {
		in = strings.Split(in[0], ",")
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// uploadFrom reads an image either from a multipart file field or from a base64
// data URL sent in the same field name.
func uploadFrom(c *fiber.Ctx, field, dataURL string, maxBytes int64) (storage.UploadPayload, error) {
	if isMultipart(c) {
		if file, err := c.FormFile(field); err == nil {
			payload, err := utils.ReadUploadedFile(file, maxBytes)
			if err != nil {
				return nil, err
			}
			return payload, nil
		}
	}
	if strings.TrimSpace(dataURL) != "" {
		return storage.Base64Payload{DataURL: dataURL}, nil
	}
	return nil, nil
}

func parseID(c *fiber.Ctx, param string) (uint, bool) {
	raw := strings.TrimSpace(c.Params(param))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// SubmitRegistration validates a multipart or JSON registration and stores a
// *services.SubmitInput under "validatedRegistration".
func SubmitRegistration(maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(registrationBody)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		reqData.ProgramID = strings.ToLower(strings.TrimSpace(reqData.ProgramID))
		reqData.FullName = strings.TrimSpace(reqData.FullName)
		reqData.BirthDate = strings.TrimSpace(reqData.BirthDate)
		reqData.Phone = strings.TrimSpace(reqData.Phone)
		reqData.Email = strings.TrimSpace(reqData.Email)
		reqData.Packages = splitPackages(reqData.Packages)

		if reqData.ProgramID == "" {
			errors["program_id"] = "Program is required!"
		}

		if reqData.FullName == "" {
			errors["full_name"] = "Full name is required!"
		} else if len(reqData.FullName) < 2 {
			errors["full_name"] = "Full name must be at least 2 characters long!"
		}

		if reqData.BirthDate == "" {
			errors["birth_date"] = "Birth date is required!"
		} else if d, err := time.Parse("2006-01-02", reqData.BirthDate); err != nil {
			errors["birth_date"] = "Birth date must use the YYYY-MM-DD format!"
		} else if d.After(time.Now()) {
			errors["birth_date"] = "Birth date cannot be in the future!"
		}

		if reqData.Phone == "" {
			errors["phone"] = "Phone number is required!"
		} else if !phonePattern.MatchString(reqData.Phone) {
			errors["phone"] = "Invalid phone number!"
		}

		if len(reqData.Packages) == 0 {
			errors["packages"] = "Select at least one package!"
		}

		proof, err := uploadFrom(c, "payment_proof", reqData.PaymentProof, maxBytes)
		if err != nil {
			errors["payment_proof"] = "Payment proof could not be read!"
		} else if proof == nil {
			errors["payment_proof"] = "Payment proof is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRegistration", &services.SubmitInput{
			ProgramID: reqData.ProgramID,
			Profile: services.ProfileInput{
				FullName:        reqData.FullName,
				BirthDate:       reqData.BirthDate,
				Gender:          reqData.Gender,
				Address:         reqData.Address,
				Phone:           reqData.Phone,
				Email:           reqData.Email,
				Packages:        reqData.Packages,
				Schedule:        reqData.Schedule,
				Experience:      reqData.Experience,
				TrainingHistory: reqData.TrainingHistory,
			},
			PaymentProof: proof,
		})
		return c.Next()
	}
}

// RegistrationID validates the :id route parameter.
func RegistrationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Registration ID!", nil)
		}
		c.Locals("registrationId", id)
		return c.Next()
	}
}

// UpdateRegistration validates a partial profile edit.
func UpdateRegistration() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Registration ID!", nil)
		}

		reqData := new(services.ProfileUpdate)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		required := map[string]*string{
			"full_name":  reqData.FullName,
			"gender":     reqData.Gender,
			"address":    reqData.Address,
			"phone":      reqData.Phone,
			"schedule":   reqData.Schedule,
			"experience": reqData.Experience,
		}
		for field, v := range required {
			if v != nil && strings.TrimSpace(*v) == "" {
				errors[field] = "This field cannot be empty!"
			}
		}
		if _, blank := errors["phone"]; !blank && reqData.Phone != nil && !phonePattern.MatchString(strings.TrimSpace(*reqData.Phone)) {
			errors["phone"] = "Invalid phone number!"
		}
		if reqData.Packages != nil {
			packages := splitPackages(*reqData.Packages)
			if len(packages) == 0 {
				errors["packages"] = "Select at least one package!"
			}
			reqData.Packages = &packages
		}
		if *reqData == (services.ProfileUpdate{}) {
			errors["body"] = "No fields to update!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("registrationId", id)
		c.Locals("validatedProfileUpdate", reqData)
		return c.Next()
	}
}

// PaymentProof validates a replacement proof upload.
func PaymentProof(maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Registration ID!", nil)
		}

		reqData := new(struct {
			PaymentProof string `json:"payment_proof" form:"payment_proof"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		proof, err := uploadFrom(c, "payment_proof", reqData.PaymentProof, maxBytes)
		if err != nil || proof == nil {
			return middleware.ValidationErrorResponse(c, map[string]string{"payment_proof": "Payment proof is required!"})
		}

		c.Locals("registrationId", id)
		c.Locals("validatedPaymentProof", proof)
		return c.Next()
	}
}

// DecisionRequest is stored under "validatedDecision".
type DecisionRequest struct {
	Outcome services.Outcome
	Notes   string
}

func Decide() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Registration ID!", nil)
		}

		reqData := new(struct {
			Outcome string `json:"outcome" form:"outcome"`
			Notes   string `json:"notes" form:"notes"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		outcome := services.Outcome(strings.ToLower(strings.TrimSpace(reqData.Outcome)))
		if outcome != services.OutcomeApprove && outcome != services.OutcomeReject {
			errors["outcome"] = "Outcome must be approve or reject!"
		}
		if len(reqData.Notes) > 1000 {
			errors["notes"] = "Notes must not exceed 1000 characters!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("registrationId", id)
		c.Locals("validatedDecision", &DecisionRequest{Outcome: outcome, Notes: reqData.Notes})
		return c.Next()
	}
}

// IssueCertificate accepts optional signature overrides as multipart files
// (signature_a, signature_b) or data URLs, plus printed names and roles.
func IssueCertificate(maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Registration ID!", nil)
		}

		reqData := new(struct {
			SignatureA string `json:"signature_a" form:"signature_a"`
			SignatureB string `json:"signature_b" form:"signature_b"`
			SignerA    string `json:"signer_a_name" form:"signer_a_name"`
			SignerB    string `json:"signer_b_name" form:"signer_b_name"`
			RoleA      string `json:"signer_a_role" form:"signer_a_role"`
			RoleB      string `json:"signer_b_role" form:"signer_b_role"`
		})
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}

		errors := make(map[string]string)
		sigA, err := uploadFrom(c, "signature_a", reqData.SignatureA, maxBytes)
		if err != nil {
			errors["signature_a"] = "Signature image could not be read!"
		}
		sigB, err := uploadFrom(c, "signature_b", reqData.SignatureB, maxBytes)
		if err != nil {
			errors["signature_b"] = "Signature image could not be read!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("registrationId", id)
		c.Locals("validatedIssueRequest", &services.IssueRequest{
			Signatures: [2]services.SignatureInput{
				{Image: sigA, Name: strings.TrimSpace(reqData.SignerA), Role: strings.TrimSpace(reqData.RoleA)},
				{Image: sigB, Name: strings.TrimSpace(reqData.SignerB), Role: strings.TrimSpace(reqData.RoleB)},
			},
		})
		return c.Next()
	}
}

// ListRegistrations validates operator list filters from the query string.
func ListRegistrations() fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := repository.RegistrationFilter{
			ProgramID: strings.TrimSpace(c.Query("program")),
			Search:    strings.TrimSpace(c.Query("search")),
			Page:      c.QueryInt("page", 1),
			Limit:     c.QueryInt("limit", 10),
		}

		if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
			switch models.RegistrationStatus(status) {
			case models.StatusWaiting, models.StatusApproved, models.StatusRejected, models.StatusCompleted:
				filter.Status = models.RegistrationStatus(status)
			default:
				return middleware.ValidationErrorResponse(c, map[string]string{
					"status": "Status must be one of waiting, approved, rejected, completed!",
				})
			}
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 || filter.Limit > 100 {
			filter.Limit = 10
		}

		c.Locals("registrationFilter", &filter)
		return c.Next()
	}
}

// CertificateCode validates the public :code parameter.
func CertificateCode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.TrimSpace(c.Params("code"))
		if code == "" || len(code) > 64 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Certificate code is required!", nil)
		}
		c.Locals("certificateCode", code)
		return c.Next()
	}
}

// NotificationID validates the :id parameter of notification routes.
func NotificationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Notification ID!", nil)
		}
		c.Locals("notificationId", id)
		return c.Next()
	}
}

// NotificationQuery is stored under "notificationQuery".
type NotificationQuery struct {
	UnreadOnly bool
	Limit      int
}

func ListNotifications() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			return middleware.ValidationErrorResponse(c, map[string]string{"limit": "Limit must be between 1 and 200!"})
		}
		c.Locals("notificationQuery", &NotificationQuery{
			UnreadOnly: c.QueryBool("unread", false),
			Limit:      limit,
		})
		return c.Next()
	}
}
