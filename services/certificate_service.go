package services

import (
	"brz/apperrors"
	"brz/certificate"
	"brz/config"
	"brz/logger"
	"brz/metrics"
	"brz/models"
	"brz/storage"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CompletionDateLayout formats the date printed on certificates.
const CompletionDateLayout = "2 January 2006"

// SignatureInput overrides one signer slot at issuance. Empty fields fall back
// to the configured signer.
type SignatureInput struct {
	Image storage.UploadPayload
	Name  string
	Role  string
}

type IssueRequest struct {
	Signatures [2]SignatureInput
}

// IssuedCertificate is what gets copied onto the registration. The text fields
// are frozen at render time.
type IssuedCertificate struct {
	Code          string
	URL           string
	RecipientName string
	SkillLabel    string
	DateText      string
}

type CertificateService struct {
	renderer *certificate.Renderer
	blobs    storage.BlobStore
	cfg      config.CertificateConfig
	rand     certificate.RandSource
	tracer   trace.Tracer
	log      logger.Logger
}

func NewCertificateService(renderer *certificate.Renderer, blobs storage.BlobStore, cfg config.CertificateConfig, log logger.Logger) *CertificateService {
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	return &CertificateService{
		renderer: renderer,
		blobs:    blobs,
		cfg:      cfg,
		rand:     certificate.CryptoSource(),
		tracer:   otel.Tracer("brz/certificate"),
		log:      log,
	}
}

// WithRandSource swaps the code suffix source, for deterministic tests.
func (s *CertificateService) WithRandSource(r certificate.RandSource) *CertificateService {
	s.rand = r
	return s
}

// Issue generates a code, renders the certificate and writes it to
// <output folder>/<code>.png. It does not touch the registration row.
func (s *CertificateService) Issue(ctx context.Context, reg *models.Registration, req IssueRequest, at time.Time) (*IssuedCertificate, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.issue", trace.WithAttributes(
		attribute.Int64("registration.id", int64(reg.ID)),
		attribute.String("registration.program", reg.ProgramID),
	))
	defer span.End()

	issued, err := s.issue(ctx, reg, req, at)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("certificate.code", issued.Code))
	return issued, nil
}

func (s *CertificateService) issue(ctx context.Context, reg *models.Registration, req IssueRequest, at time.Time) (*IssuedCertificate, error) {
	tmpl, err := s.blobs.Read(ctx, s.cfg.TemplatePath)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, apperrors.Configuration(fmt.Sprintf("certificate template %q is missing", s.cfg.TemplatePath), err)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to read certificate template", err)
	}

	issued := &IssuedCertificate{
		Code:          certificate.GenerateCode(reg.ID, reg.ProgramID, at, s.rand),
		RecipientName: reg.FullName,
		SkillLabel:    reg.ProgramName,
		DateText:      at.Format(CompletionDateLayout),
	}

	png, err := s.render(ctx, certificate.Input{
		Template:       tmpl,
		RecipientName:  issued.RecipientName,
		SkillLabel:     issued.SkillLabel,
		CompletionDate: issued.DateText,
		Issuer:         s.cfg.Issuer,
		Signatures:     s.signatures(ctx, reg.ID, req),
	})
	if err != nil {
		return nil, err
	}

	// Keyed on the registration so a retried issuance overwrites its earlier render.
	ref, err := s.blobs.Write(ctx, CertificateKey(s.cfg.OutputFolder, reg.ID), png)
	if err != nil {
		return nil, apperrors.Internal("failed to store certificate", err)
	}
	issued.URL = ref
	return issued, nil
}

// CertificateKey is the blob key of a registration's rendered certificate.
func CertificateKey(folder string, registrationID uint) string {
	return path.Join(folder, fmt.Sprintf("%d.png", registrationID))
}

// render bounds the CPU-bound render with the configured timeout.
func (s *CertificateService) render(ctx context.Context, in certificate.Input) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "certificate.render")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	type result struct {
		png []byte
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		png, err := s.renderer.Render(in)
		done <- result{png: png, err: err}
	}()

	select {
	case <-ctx.Done():
		metrics.CertificateRenderDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		return nil, apperrors.Internal("certificate rendering timed out", ctx.Err())
	case r := <-done:
		label := "ok"
		if r.err != nil {
			label = "error"
		}
		metrics.CertificateRenderDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		return r.png, r.err
	}
}

func (s *CertificateService) signatures(ctx context.Context, regID uint, req IssueRequest) [2]certificate.Signature {
	defaults := [2]struct{ name, role, path string }{
		{s.cfg.SignerAName, s.cfg.SignerARole, s.cfg.SignatureAPath},
		{s.cfg.SignerBName, s.cfg.SignerBRole, s.cfg.SignatureBPath},
	}

	var out [2]certificate.Signature
	for i, in := range req.Signatures {
		out[i] = certificate.Signature{Name: in.Name, Role: in.Role}
		if out[i].Name == "" {
			out[i].Name = defaults[i].name
		}
		if out[i].Role == "" {
			out[i].Role = defaults[i].role
		}

		if in.Image != nil {
			raw, err := storage.Resolve(in.Image, storage.DefaultMaxArtifactBytes)
			if err == nil {
				out[i].Image = raw.Data
				continue
			}
			s.log.Warn("signature upload ignored", map[string]interface{}{"registration_id": regID, "slot": i, "error": err})
		}
		if defaults[i].path == "" {
			continue
		}
		data, err := s.blobs.Read(ctx, defaults[i].path)
		if err != nil {
			s.log.Warn("configured signature unavailable", map[string]interface{}{"registration_id": regID, "slot": i, "error": err})
			continue
		}
		out[i].Image = data
	}
	return out
}
