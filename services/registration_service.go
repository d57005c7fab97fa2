package services

import (
	"brz/apperrors"
	"brz/logger"
	"brz/metrics"
	"brz/models"
	"brz/repository"
	"brz/storage"
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

const birthDateLayout = "2006-01-02"

// Outcome is the operator's decision on a waiting registration.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// ProfileInput is the applicant profile captured at submission.
type ProfileInput struct {
	FullName        string   `json:"full_name" validate:"required,max=191"`
	BirthDate       string   `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender          string   `json:"gender" validate:"required,max=16"`
	Address         string   `json:"address" validate:"required"`
	Phone           string   `json:"phone" validate:"required,max=32"`
	Email           string   `json:"email" validate:"omitempty,email,max=191"`
	Packages        []string `json:"packages" validate:"required,min=1,max=10,dive,required,max=64"`
	Schedule        string   `json:"schedule" validate:"required,max=64"`
	Experience      string   `json:"experience" validate:"required,max=32"`
	TrainingHistory string   `json:"training_history"`
}

type SubmitInput struct {
	ProgramID    string       `json:"program_id" validate:"required,max=64"`
	Profile      ProfileInput `json:"profile"`
	PaymentProof storage.UploadPayload
}

// ProfileUpdate carries the fields an applicant may edit while waiting. Nil
// fields are left untouched.
type ProfileUpdate struct {
	FullName        *string   `json:"full_name" validate:"omitempty,min=1,max=191"`
	BirthDate       *string   `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender          *string   `json:"gender" validate:"omitempty,min=1,max=16"`
	Address         *string   `json:"address" validate:"omitempty,min=1"`
	Phone           *string   `json:"phone" validate:"omitempty,min=1,max=32"`
	Email           *string   `json:"email" validate:"omitempty,email,max=191"`
	Packages        *[]string `json:"packages" validate:"omitempty,min=1,max=10,dive,required,max=64"`
	Schedule        *string   `json:"schedule" validate:"omitempty,min=1,max=64"`
	Experience      *string   `json:"experience" validate:"omitempty,min=1,max=32"`
	TrainingHistory *string   `json:"training_history"`
}

type RegistrationServiceConfig struct {
	PaymentFolder string
}

// RegistrationService owns the registration lifecycle. Every guarded write is
// preceded by a fresh read and performed as a compare-and-swap on status;
// notifications are dispatched only after the write is persisted.
type RegistrationService struct {
	repo         *repository.RegistrationRepository
	programs     *repository.ProgramRepository
	artifacts    *storage.ArtifactStore
	certificates *CertificateService
	notifier     Notifier
	validate     *validator.Validate
	log          logger.Logger
	cfg          RegistrationServiceConfig
	now          func() time.Time
}

func NewRegistrationService(
	repo *repository.RegistrationRepository,
	programs *repository.ProgramRepository,
	artifacts *storage.ArtifactStore,
	certificates *CertificateService,
	notifier Notifier,
	log logger.Logger,
	cfg RegistrationServiceConfig,
) *RegistrationService {
	if cfg.PaymentFolder == "" {
		cfg.PaymentFolder = "payments"
	}
	return &RegistrationService{
		repo:         repo,
		programs:     programs,
		artifacts:    artifacts,
		certificates: certificates,
		notifier:     notifier,
		validate:     newValidator(),
		log:          log,
		cfg:          cfg,
		now:          time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *RegistrationService) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("invalid input", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldKey(fe)] = fieldMessage(fe)
	}
	return apperrors.Validation("invalid registration data", fields)
}

// fieldKey drops the top-level struct name from the namespace.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required!"
	case "email":
		return "Invalid email format!"
	case "datetime":
		return "Date must use the YYYY-MM-DD format!"
	case "min":
		return "Value is too short!"
	case "max":
		return "Value is too long!"
	default:
		return "Invalid value!"
	}
}

func trimProfile(p *ProfileInput) {
	for _, f := range []*string{&p.FullName, &p.BirthDate, &p.Gender, &p.Address, &p.Phone, &p.Email, &p.Schedule, &p.Experience, &p.TrainingHistory} {
		*f = strings.TrimSpace(*f)
	}
	packages := p.Packages[:0:0]
	for _, pkg := range p.Packages {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			packages = append(packages, pkg)
		}
	}
	p.Packages = packages
}

func (s *RegistrationService) transitioned(from, to models.RegistrationStatus) {
	metrics.RegistrationTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// staleGuard turns a lost compare-and-swap into the error the caller should see.
func (s *RegistrationService) staleGuard(ctx context.Context, id uint, operation string) error {
	fresh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.InvalidState(operation, string(fresh.Status))
}

func requireOperator(actor models.Actor) error {
	if !actor.IsOperator() {
		return apperrors.Forbidden("operator role required")
	}
	return nil
}

// Submit creates a waiting registration. actor is nil for anonymous intake.
func (s *RegistrationService) Submit(ctx context.Context, actor *models.Actor, in SubmitInput) (*models.Registration, error) {
	in.ProgramID = strings.TrimSpace(in.ProgramID)
	trimProfile(&in.Profile)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.PaymentProof == nil {
		return nil, apperrors.Validation("payment proof is required", map[string]string{
			"payment_proof": "Payment proof is required!",
		})
	}
	birthDate, _ := time.Parse(birthDateLayout, in.Profile.BirthDate)

	program, err := s.programs.FindActive(ctx, in.ProgramID)
	if err != nil {
		return nil, err
	}

	var userID *uint
	if actor != nil {
		id := actor.ID
		userID = &id
		active, err := s.repo.HasActive(ctx, id, program.Code)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, apperrors.DuplicateActiveRegistration(program.Code)
		}
	}

	proofRef, err := s.artifacts.Store(ctx, in.PaymentProof, s.cfg.PaymentFolder)
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		UserID:          userID,
		ProgramID:       program.Code,
		ProgramName:     program.Name,
		FullName:        in.Profile.FullName,
		BirthDate:       birthDate,
		Gender:          in.Profile.Gender,
		Address:         in.Profile.Address,
		Phone:           in.Profile.Phone,
		Email:           in.Profile.Email,
		Packages:        in.Profile.Packages,
		Schedule:        in.Profile.Schedule,
		Experience:      in.Profile.Experience,
		TrainingHistory: in.Profile.TrainingHistory,
		PaymentProofURL: proofRef,
		PaymentStatus:   models.PaymentPending,
		Status:          models.StatusWaiting,
		ActiveKey:       models.ActiveKeyFor(userID, program.Code),
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		s.log.Warn("payment proof orphaned by failed submission", map[string]interface{}{
			"payment_proof": proofRef,
			"program_id":    program.Code,
			"error":         err,
		})
		return nil, err
	}

	s.transitioned("none", models.StatusWaiting)
	s.log.Info("registration submitted", map[string]interface{}{"registration_id": reg.ID, "program_id": reg.ProgramID})
	s.notifier.Dispatch(ctx, EventSubmitted, reg, nil)
	return reg, nil
}

// loadOwnedWaiting is the precondition shared by applicant self-service edits.
func (s *RegistrationService) loadOwnedWaiting(ctx context.Context, actor models.Actor, id uint, operation string) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reg.OwnedBy(actor.ID) {
		return nil, apperrors.Forbidden("you do not own this registration")
	}
	if reg.Status != models.StatusWaiting {
		return nil, apperrors.InvalidState(operation, string(reg.Status))
	}
	return reg, nil
}

func (s *RegistrationService) UpdateProfile(ctx context.Context, actor models.Actor, id uint, upd ProfileUpdate) (*models.Registration, error) {
	trimUpdate(&upd)
	if err := s.check(upd); err != nil {
		return nil, err
	}
	reg, err := s.loadOwnedWaiting(ctx, actor, id, "update")
	if err != nil {
		return nil, err
	}

	updates := profileUpdates(upd)
	if len(updates) == 0 {
		return reg, nil
	}
	ok, err := s.repo.UpdateGuarded(ctx, id, models.StatusWaiting, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleGuard(ctx, id, "update")
	}
	return s.repo.FindByID(ctx, id)
}

// trimUpdate trims every present text field so a whitespace-only value fails
// the min=1 rule instead of blanking a required column.
func trimUpdate(upd *ProfileUpdate) {
	for _, f := range []*string{upd.FullName, upd.BirthDate, upd.Gender, upd.Address, upd.Phone, upd.Email, upd.Schedule, upd.Experience, upd.TrainingHistory} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func profileUpdates(upd ProfileUpdate) map[string]any {
	updates := map[string]any{}
	text := map[string]*string{
		"full_name":        upd.FullName,
		"gender":           upd.Gender,
		"address":          upd.Address,
		"phone":            upd.Phone,
		"email":            upd.Email,
		"schedule":         upd.Schedule,
		"experience":       upd.Experience,
		"training_history": upd.TrainingHistory,
	}
	for column, v := range text {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	if upd.BirthDate != nil {
		if d, err := time.Parse(birthDateLayout, strings.TrimSpace(*upd.BirthDate)); err == nil {
			updates["birth_date"] = d
		}
	}
	if upd.Packages != nil {
		p := ProfileInput{Packages: *upd.Packages}
		trimProfile(&p)
		updates["packages"] = datatypes.JSONSlice[string](p.Packages)
	}
	return updates
}

// ReplacePaymentProof swaps the proof image while the registration is waiting.
func (s *RegistrationService) ReplacePaymentProof(ctx context.Context, actor models.Actor, id uint, payload storage.UploadPayload) (*models.Registration, error) {
	if _, err := s.loadOwnedWaiting(ctx, actor, id, "replace the payment proof of"); err != nil {
		return nil, err
	}
	ref, err := s.artifacts.Store(ctx, payload, s.cfg.PaymentFolder)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateGuarded(ctx, id, models.StatusWaiting, map[string]any{
		"payment_proof_url": ref,
		"payment_status":    models.PaymentPending,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn("payment proof orphaned by concurrent transition", map[string]interface{}{"registration_id": id, "payment_proof": ref})
		return nil, s.staleGuard(ctx, id, "replace the payment proof of")
	}
	return s.repo.FindByID(ctx, id)
}

// Get returns a registration to its owner or to any operator.
func (s *RegistrationService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Registration, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsOperator() && !reg.OwnedBy(actor.ID) {
		return nil, apperrors.Forbidden("you do not own this registration")
	}
	return reg, nil
}

func (s *RegistrationService) ListMine(ctx context.Context, actor models.Actor) ([]models.Registration, error) {
	return s.repo.ListByUser(ctx, actor.ID)
}

func (s *RegistrationService) List(ctx context.Context, actor models.Actor, filter repository.RegistrationFilter) ([]models.Registration, int64, error) {
	if err := requireOperator(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// Decide approves or rejects a waiting registration. Of two concurrent calls
// exactly one wins; the other sees INVALID_STATE.
func (s *RegistrationService) Decide(ctx context.Context, actor models.Actor, id uint, outcome Outcome, notes string) (*models.Registration, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}

	target, payment, event := models.StatusApproved, models.PaymentVerified, EventApproved
	switch outcome {
	case OutcomeApprove:
	case OutcomeReject:
		target, payment, event = models.StatusRejected, models.PaymentRejected, EventRejected
	default:
		return nil, apperrors.Validation("invalid decision", map[string]string{
			"outcome": "Outcome must be approve or reject!",
		})
	}

	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(reg.Status, target) {
		return nil, apperrors.InvalidState("decide", string(reg.Status))
	}

	decidedAt := s.now()
	var notesValue *string
	if n := strings.TrimSpace(notes); n != "" {
		notesValue = &n
	}
	updates := map[string]any{
		"status":         target,
		"payment_status": payment,
		"admin_notes":    notesValue,
		"decided_by":     actor.ID,
		"decided_at":     decidedAt,
	}
	if target.IsTerminal() {
		updates["active_key"] = nil
	}

	ok, err := s.repo.UpdateGuarded(ctx, id, reg.Status, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleGuard(ctx, id, "decide")
	}
	s.transitioned(reg.Status, target)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("registration decided", map[string]interface{}{"registration_id": id, "status": string(target), "operator_id": actor.ID})
	s.notifier.Dispatch(ctx, event, updated, nil)
	return updated, nil
}

// IssueCertificateAndComplete renders the certificate for an approved
// registration and moves it to completed. A missing template aborts with
// CONFIGURATION_ERROR and leaves the registration approved.
func (s *RegistrationService) IssueCertificateAndComplete(ctx context.Context, actor models.Actor, id uint, req IssueRequest) (*models.Registration, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(reg.Status, models.StatusCompleted) {
		return nil, apperrors.InvalidState("issue a certificate for", string(reg.Status))
	}

	completedAt := s.now()
	cert, err := s.certificates.Issue(ctx, reg, req, completedAt)
	if err != nil {
		s.log.Error("certificate issuance failed", map[string]interface{}{
			"registration_id": id,
			"error_code":      string(apperrors.CodeOf(err)),
			"error":           err,
		})
		return nil, err
	}

	ok, err := s.repo.UpdateGuarded(ctx, id, models.StatusApproved, map[string]any{
		"status":                     models.StatusCompleted,
		"certificate_code":           cert.Code,
		"certificate_url":            cert.URL,
		"certificate_recipient_name": cert.RecipientName,
		"certificate_skill_label":    cert.SkillLabel,
		"certificate_date_text":      cert.DateText,
		"completed_at":               completedAt,
		"active_key":                 nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn("rendered certificate orphaned by concurrent transition", map[string]interface{}{"registration_id": id, "certificate_url": cert.URL})
		return nil, s.staleGuard(ctx, id, "issue a certificate for")
	}
	s.transitioned(models.StatusApproved, models.StatusCompleted)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("certificate issued", map[string]interface{}{"registration_id": id, "certificate_code": cert.Code})
	s.notifier.Dispatch(ctx, EventCertificateIssued, updated, nil)
	return updated, nil
}

// MarkCompletedWithoutCertificate flips an approved registration to completed
// without rendering, flagging it as a legacy completion.
func (s *RegistrationService) MarkCompletedWithoutCertificate(ctx context.Context, actor models.Actor, id uint) (*models.Registration, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(reg.Status, models.StatusCompleted) {
		return nil, apperrors.InvalidState("complete", string(reg.Status))
	}

	ok, err := s.repo.UpdateGuarded(ctx, id, models.StatusApproved, map[string]any{
		"status":            models.StatusCompleted,
		"legacy_completion": true,
		"completed_at":      s.now(),
		"active_key":        nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.staleGuard(ctx, id, "complete")
	}
	s.transitioned(models.StatusApproved, models.StatusCompleted)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Warn("registration completed without certificate", map[string]interface{}{"registration_id": id, "operator_id": actor.ID})
	s.notifier.Dispatch(ctx, EventCompletedWithoutCertificate, updated, nil)
	return updated, nil
}

// Cancel deletes the applicant's own registration while it is still waiting.
func (s *RegistrationService) Cancel(ctx context.Context, actor models.Actor, id uint) error {
	if _, err := s.loadOwnedWaiting(ctx, actor, id, "cancel"); err != nil {
		return err
	}
	ok, err := s.repo.DeleteGuarded(ctx, id, models.StatusWaiting)
	if err != nil {
		return err
	}
	if !ok {
		return s.staleGuard(ctx, id, "cancel")
	}
	s.log.Info("registration cancelled", map[string]interface{}{"registration_id": id, "user_id": actor.ID})
	return nil
}

// OperatorDelete removes a registration in any status and returns the deleted
// row so callers can drop derived state.
func (s *RegistrationService) OperatorDelete(ctx context.Context, actor models.Actor, id uint) (*models.Registration, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("registration")
	}
	s.log.Warn("registration deleted by operator", map[string]interface{}{"registration_id": id, "operator_id": actor.ID, "status": string(reg.Status)})
	return reg, nil
}
