package services

import (
	"brz/apperrors"
	"brz/certificate"
	"brz/models"
	"brz/repository"
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// PublicCertificateView is everything an unauthenticated verifier may see.
type PublicCertificateView struct {
	RecipientName string `json:"recipientName"`
	ProgramName   string `json:"programName"`
	IssuedBy      string `json:"issuedBy"`
}

type VerificationService struct {
	repo   *repository.RegistrationRepository
	issuer string
	cache  *cache.Cache
}

func NewVerificationService(repo *repository.RegistrationRepository, issuer string, ttl time.Duration) *VerificationService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &VerificationService{
		repo:   repo,
		issuer: issuer,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Verify resolves a certificate code. Malformed and unknown codes both report
// NOT_FOUND so the endpoint leaks nothing about the code format.
func (s *VerificationService) Verify(ctx context.Context, code string) (*PublicCertificateView, error) {
	normalized, ok := certificate.NormalizeCode(code)
	if !ok {
		return nil, apperrors.NotFound("certificate")
	}
	if v, found := s.cache.Get(normalized); found {
		view := v.(PublicCertificateView)
		return &view, nil
	}

	reg, err := s.repo.FindByCertificateCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.StatusCompleted {
		return nil, apperrors.NotFound("certificate")
	}

	view := PublicCertificateView{
		RecipientName: deref(reg.CertificateRecipientName, reg.FullName),
		ProgramName:   deref(reg.CertificateSkillLabel, reg.ProgramName),
		IssuedBy:      s.issuer,
	}
	s.cache.SetDefault(normalized, view)
	return &view, nil
}

// Forget drops a cached code, used when an operator deletes the registration.
func (s *VerificationService) Forget(code string) {
	if normalized, ok := certificate.NormalizeCode(code); ok {
		s.cache.Delete(normalized)
	}
}

func deref(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
