package services

import (
	"brz/apperrors"
	"brz/database"
	"brz/models"
	"brz/repository"
	"brz/storage"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationLifecycle_BasicProgram(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg := h.submit(t, jane, "basic")
	assert.Equal(t, uint(1), reg.ID)
	assert.Equal(t, models.StatusWaiting, reg.Status)
	assert.Equal(t, models.PaymentPending, reg.PaymentStatus)
	assert.Regexp(t, `^/uploads/payments/\d{14}-[0-9a-f]{8}\.jpg$`, reg.PaymentProofURL)

	approved, err := h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, models.PaymentVerified, approved.PaymentStatus)
	assert.Nil(t, approved.CertificateURL)

	notes := h.notificationsFor(t, reg.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, models.AudienceOperator, notes[0].Audience)
	assert.Equal(t, models.AudienceApplicant, notes[1].Audience)
	assert.Equal(t, models.NotificationSuccess, notes[1].Type)
	assert.Equal(t, jane.ID, *notes[1].UserID)

	completed, err := h.service.IssueCertificateAndComplete(ctx, operator, reg.ID, IssueRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CertificateCode)
	require.NotNil(t, completed.CertificateURL)
	require.NotNil(t, completed.CompletedAt)
	assert.Regexp(t, regexp.MustCompile(`^BRZ-BAS-\d{6}-0001-[A-Z0-9]{4}$`), *completed.CertificateCode)
	assert.Equal(t, fmt.Sprintf("/uploads/certificates/%d.png", completed.ID), *completed.CertificateURL)
	assert.Equal(t, "Jane Doe", *completed.CertificateRecipientName)

	rendered, err := h.blobs.Read(ctx, *completed.CertificateURL)
	require.NoError(t, err)
	assert.NotEmpty(t, rendered)

	notes = h.notificationsFor(t, reg.ID)
	require.Len(t, notes, 3)
	assert.Contains(t, notes[2].Title, "certificate")
	assert.Contains(t, notes[2].Message, *completed.CertificateCode)

	view, err := h.verifier.Verify(ctx, *completed.CertificateCode)
	require.NoError(t, err)
	assert.Equal(t, PublicCertificateView{
		RecipientName: "Jane Doe",
		ProgramName:   "Basic Barista Class",
		IssuedBy:      testIssuer,
	}, *view)
}

func TestSubmit_DuplicateActiveRegistration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.submit(t, jane, "basic")

	_, err := h.service.Submit(ctx, &jane, submitInput("basic", "Jane Doe"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveRegistration)

	_, err = h.service.Decide(ctx, operator, first.ID, OutcomeApprove, "")
	require.NoError(t, err)
	_, err = h.service.Submit(ctx, &jane, submitInput("basic", "Jane Doe"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveRegistration, "approved still holds the slot")

	_, err = h.service.IssueCertificateAndComplete(ctx, operator, first.ID, IssueRequest{})
	require.NoError(t, err)
	second, err := h.service.Submit(ctx, &jane, submitInput("basic", "Jane Doe"))
	require.NoError(t, err, "completed releases the slot")

	_, err = h.service.Decide(ctx, operator, second.ID, OutcomeReject, "Schedule is full")
	require.NoError(t, err)
	_, err = h.service.Submit(ctx, &jane, submitInput("basic", "Jane Doe"))
	assert.NoError(t, err, "rejected releases the slot")
}

func TestSubmit_ConcurrentDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.service.Submit(ctx, &jane, submitInput("latte-art", "Jane Doe"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveRegistration)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSubmit_AnonymousIntake(t *testing.T) {
	h := newHarness(t)

	reg, err := h.service.Submit(context.Background(), nil, submitInput("basic", "Walk In"))
	require.NoError(t, err)
	assert.Nil(t, reg.UserID)
	assert.Nil(t, reg.ActiveKey)

	_, err = h.service.Submit(context.Background(), nil, submitInput("basic", "Walk In"))
	assert.NoError(t, err, "anonymous intake has no owner to deduplicate on")
}

func TestSubmit_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := submitInput("basic", "  ")
	in.Profile.Phone = ""
	in.Profile.Email = "not-an-email"
	in.Profile.BirthDate = "02/04/1998"
	in.Profile.Packages = []string{" "}
	_, err := h.service.Submit(ctx, &jane, in)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	for _, field := range []string{"profile.full_name", "profile.phone", "profile.email", "profile.birth_date", "profile.packages"} {
		assert.Contains(t, appErr.Fields, field)
	}

	in = submitInput("basic", "Jane Doe")
	in.PaymentProof = nil
	_, err = h.service.Submit(ctx, &jane, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	in = submitInput("basic", "Jane Doe")
	in.PaymentProof = proofOfSize(6 << 20)
	_, err = h.service.Submit(ctx, &jane, in)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSubmit_UnknownProgram(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.Submit(context.Background(), &jane, submitInput("cupping", "Jane Doe"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	name := "Jane A. Doe"
	packages := []string{"latte art"}
	updated, err := h.service.UpdateProfile(ctx, jane, reg.ID, ProfileUpdate{FullName: &name, Packages: &packages})
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", updated.FullName)
	assert.Equal(t, []string{"latte art"}, []string(updated.Packages))
	assert.Equal(t, "+628123456789", updated.Phone, "untouched fields stay")

	_, err = h.service.UpdateProfile(ctx, other, reg.ID, ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = h.service.UpdateProfile(ctx, operator, reg.ID, ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "operators do not edit applicant profiles")

	bad := "nope"
	_, err = h.service.UpdateProfile(ctx, jane, reg.ID, ProfileUpdate{Email: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	blank := "   "
	_, err = h.service.UpdateProfile(ctx, jane, reg.ID, ProfileUpdate{FullName: &blank, Address: &blank})
	require.ErrorIs(t, err, apperrors.ErrValidation, "whitespace-only values cannot clear required fields")
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "full_name")
	assert.Contains(t, appErr.Fields, "address")

	stored, err := h.registrations.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", stored.FullName)
	assert.Equal(t, "Jl. Kopi No. 7, Bandung", stored.Address)

	padded := "  Jane Doe  "
	updated, err = h.service.UpdateProfile(ctx, jane, reg.ID, ProfileUpdate{FullName: &padded})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.FullName)

	_, err = h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)
	_, err = h.service.UpdateProfile(ctx, jane, reg.ID, ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestReplacePaymentProof(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	updated, err := h.service.ReplacePaymentProof(ctx, jane, reg.ID, proof())
	require.NoError(t, err)
	assert.NotEmpty(t, updated.PaymentProofURL)

	_, err = h.service.ReplacePaymentProof(ctx, other, reg.ID, proof())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = h.service.Decide(ctx, operator, reg.ID, OutcomeReject, "Transfer not received")
	require.NoError(t, err)
	_, err = h.service.ReplacePaymentProof(ctx, jane, reg.ID, proof())
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDecide_ConcurrentCallsOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	outcomes := []Outcome{OutcomeApprove, OutcomeReject, OutcomeApprove, OutcomeReject}
	errs := make([]error, len(outcomes))
	var wg sync.WaitGroup
	for i, outcome := range outcomes {
		wg.Add(1)
		go func(i int, outcome Outcome) {
			defer wg.Done()
			_, errs[i] = h.service.Decide(ctx, operator, reg.ID, outcome, "")
		}(i, outcome)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	}
	assert.Equal(t, 1, wins)
}

func TestDecide_RejectionCarriesReason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	rejected, err := h.service.Decide(ctx, operator, reg.ID, OutcomeReject, "  Payment proof is unreadable  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, models.PaymentRejected, rejected.PaymentStatus)
	require.NotNil(t, rejected.AdminNotes)
	assert.Equal(t, "Payment proof is unreadable", *rejected.AdminNotes)
	require.NotNil(t, rejected.DecidedBy)
	assert.Equal(t, operator.ID, *rejected.DecidedBy)

	notes := h.notificationsFor(t, reg.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, models.NotificationError, notes[1].Type)
	assert.Contains(t, notes[1].Message, "Payment proof is unreadable")
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	waiting := h.submit(t, jane, "basic")
	_, err := h.service.IssueCertificateAndComplete(ctx, operator, waiting.ID, IssueRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = h.service.MarkCompletedWithoutCertificate(ctx, operator, waiting.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = h.service.Decide(ctx, operator, waiting.ID, OutcomeReject, "")
	require.NoError(t, err)
	_, err = h.service.Decide(ctx, operator, waiting.ID, OutcomeApprove, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = h.service.IssueCertificateAndComplete(ctx, operator, waiting.ID, IssueRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = h.service.Decide(ctx, operator, waiting.ID, Outcome("maybe"), "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.service.Decide(ctx, jane, waiting.ID, OutcomeApprove, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = h.service.Decide(ctx, operator, 4242, OutcomeApprove, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIssueCertificate_MissingTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")
	_, err := h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)

	h.certificates.cfg.TemplatePath = "assets/missing.png"
	_, err = h.service.IssueCertificateAndComplete(ctx, operator, reg.ID, IssueRequest{})
	require.ErrorIs(t, err, apperrors.ErrConfiguration)

	still, err := h.registrations.FindByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, still.Status)
	assert.Nil(t, still.CertificateCode)
}

func TestIssueCertificate_SignatureOverrides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "latte-art")
	_, err := h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)

	completed, err := h.service.IssueCertificateAndComplete(ctx, operator, reg.ID, IssueRequest{
		Signatures: [2]SignatureInput{
			{Image: proof(), Name: "Rina", Role: "Lead Trainer"},
			{Name: "Dewi"},
		},
	})
	require.NoError(t, err, "an undecodable signature image must not fail issuance")
	assert.Regexp(t, `^BRZ-LAT-`, *completed.CertificateCode)
}

func TestMarkCompletedWithoutCertificate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "manual-brew")
	_, err := h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)
	h.notifier.Wait()

	done, err := h.service.MarkCompletedWithoutCertificate(ctx, operator, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.True(t, done.LegacyCompletion)
	assert.Nil(t, done.CertificateCode)
	assert.NotNil(t, done.CompletedAt)

	notes := h.notificationsFor(t, reg.ID)
	require.Len(t, notes, 3)
	assert.Equal(t, "Class completed", notes[2].Title)

	_, err = h.service.Submit(ctx, &jane, submitInput("manual-brew", "Jane Doe"))
	assert.NoError(t, err)
}

func TestCertificateReferenceOnlyWhenCompleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.submit(t, models.Actor{ID: 10, Role: models.RoleApplicant}, "basic")
	b := h.submit(t, models.Actor{ID: 11, Role: models.RoleApplicant}, "basic")
	c := h.submit(t, models.Actor{ID: 12, Role: models.RoleApplicant}, "basic")
	h.submit(t, models.Actor{ID: 13, Role: models.RoleApplicant}, "basic")

	_, err := h.service.Decide(ctx, operator, a.ID, OutcomeApprove, "")
	require.NoError(t, err)
	_, err = h.service.IssueCertificateAndComplete(ctx, operator, a.ID, IssueRequest{})
	require.NoError(t, err)
	_, err = h.service.Decide(ctx, operator, b.ID, OutcomeApprove, "")
	require.NoError(t, err)
	_, err = h.service.Decide(ctx, operator, c.ID, OutcomeReject, "")
	require.NoError(t, err)

	all, _, err := h.service.List(ctx, operator, repository.RegistrationFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, reg := range all {
		hasCert := reg.CertificateURL != nil
		assert.Equal(t, reg.Status == models.StatusCompleted && !reg.LegacyCompletion, hasCert, "registration %d in %s", reg.ID, reg.Status)
		assert.Equal(t, reg.Status.IsTerminal(), reg.ActiveKey == nil, "registration %d active key", reg.ID)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	assert.ErrorIs(t, h.service.Cancel(ctx, other, reg.ID), apperrors.ErrForbidden)
	require.NoError(t, h.service.Cancel(ctx, jane, reg.ID))

	_, err := h.service.Get(ctx, jane, reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	approved := h.submit(t, jane, "basic")
	_, err = h.service.Decide(ctx, operator, approved.ID, OutcomeApprove, "")
	require.NoError(t, err)
	assert.ErrorIs(t, h.service.Cancel(ctx, jane, approved.ID), apperrors.ErrInvalidState)
}

func TestOperatorDeleteAndAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	reg := h.submit(t, jane, "basic")

	_, err := h.service.Get(ctx, other, reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	got, err := h.service.Get(ctx, operator, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, got.ID)

	mine, err := h.service.ListMine(ctx, jane)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, _, err = h.service.List(ctx, jane, repository.RegistrationFilter{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = h.service.OperatorDelete(ctx, jane, reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)
	deleted, err := h.service.OperatorDelete(ctx, operator, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, deleted.Status)

	_, err = h.service.OperatorDelete(ctx, operator, reg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

type failingSink struct{ panics bool }

func (f failingSink) Name() string { return "failing" }

func (f failingSink) Deliver(context.Context, Delivery) error {
	if f.panics {
		panic("sink exploded")
	}
	return assert.AnError
}

func TestNotificationFailuresDoNotBlockTransitions(t *testing.T) {
	h := newHarness(t, failingSink{}, failingSink{panics: true})
	ctx := context.Background()

	reg := h.submit(t, jane, "basic")
	approved, err := h.service.Decide(ctx, operator, reg.ID, OutcomeApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	broken, err := database.OpenSQLite(filepath.Join(t.TempDir(), "broken.db"))
	require.NoError(t, err)
	sqlDB, err := broken.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	h.notifier.Wait()
	h.notifier.repo = repository.NewNotificationRepository(broken)

	completed, err := h.service.IssueCertificateAndComplete(ctx, operator, reg.ID, IssueRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
}

func proofOfSize(n int) storage.FilePayload {
	data := make([]byte, n)
	copy(data, jpegMagic)
	return storage.FilePayload{Data: data, DeclaredMIME: "image/jpeg"}
}
