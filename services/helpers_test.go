package services

import (
	"brz/certificate"
	"brz/config"
	"brz/database"
	"brz/logger"
	"brz/models"
	"brz/repository"
	"brz/storage"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	templateKey = "assets/certificate-template.png"
	testIssuer  = "Brewzone Coffee Academy"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	operator  = models.Actor{ID: 900, Role: models.RoleOperator}
	jane      = models.Actor{ID: 1, Role: models.RoleApplicant}
	other     = models.Actor{ID: 2, Role: models.RoleApplicant}
)

type harness struct {
	db            *gorm.DB
	blobs         *storage.LocalBlobStore
	registrations *repository.RegistrationRepository
	notifications *repository.NotificationRepository
	notifier      *NotificationService
	certificates  *CertificateService
	service       *RegistrationService
	verifier      *VerificationService
}

func newHarness(t *testing.T, sinks ...Sink) *harness {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	require.NoError(t, database.SeedPrograms(db))

	log := logger.NewNoOpLogger()
	blobs := storage.NewLocalBlobStore(t.TempDir(), "/uploads")
	_, err = blobs.Write(context.Background(), templateKey, templatePNG(t))
	require.NoError(t, err)

	renderer, err := certificate.NewRenderer(certificate.DefaultLayout(), log)
	require.NoError(t, err)

	h := &harness{
		db:            db,
		blobs:         blobs,
		registrations: repository.NewRegistrationRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}
	h.notifier = NewNotificationService(h.notifications, log, sinks...)
	t.Cleanup(h.notifier.Wait)

	h.certificates = NewCertificateService(renderer, blobs, config.CertificateConfig{
		TemplatePath:  templateKey,
		OutputFolder:  "certificates",
		Issuer:        testIssuer,
		SignerAName:   "Head Barista",
		SignerARole:   "Instructor",
		SignerBName:   "Academy Director",
		SignerBRole:   "Director",
		RenderTimeout: 20 * time.Second,
	}, log)

	h.service = NewRegistrationService(
		h.registrations,
		repository.NewProgramRepository(db),
		storage.NewArtifactStore(blobs, storage.DefaultMaxArtifactBytes),
		h.certificates,
		h.notifier,
		log,
		RegistrationServiceConfig{PaymentFolder: "payments"},
	)
	h.verifier = NewVerificationService(h.registrations, testIssuer, time.Minute)
	return h
}

func templatePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.RGBA{R: 0xF5, G: 0xEC, B: 0xDC, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func proof() storage.UploadPayload {
	data := make([]byte, 2048)
	copy(data, jpegMagic)
	return storage.FilePayload{Data: data, DeclaredMIME: "image/jpeg"}
}

func submitInput(program, name string) SubmitInput {
	return SubmitInput{
		ProgramID: program,
		Profile: ProfileInput{
			FullName:   name,
			BirthDate:  "1998-04-02",
			Gender:     "female",
			Address:    "Jl. Kopi No. 7, Bandung",
			Phone:      "+628123456789",
			Email:      "jane@example.com",
			Packages:   []string{"espresso", "milk steaming"},
			Schedule:   "weekend",
			Experience: "none",
		},
		PaymentProof: proof(),
	}
}

func (h *harness) submit(t *testing.T, actor models.Actor, program string) *models.Registration {
	t.Helper()
	reg, err := h.service.Submit(context.Background(), &actor, submitInput(program, "Jane Doe"))
	require.NoError(t, err)
	h.notifier.Wait()
	return reg
}

func (h *harness) notificationsFor(t *testing.T, regID uint) []models.Notification {
	t.Helper()
	h.notifier.Wait()
	out, err := h.notifications.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	return out
}

type recordedEvent struct {
	event Event
	reg   *models.Registration
	extra map[string]string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Dispatch(_ context.Context, event Event, reg *models.Registration, extra map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, reg: reg, extra: extra})
}
