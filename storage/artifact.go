package storage

import (
	"brz/apperrors"
	"brz/metrics"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxArtifactBytes is the payment proof size ceiling (5 MiB).
const DefaultMaxArtifactBytes = 5 << 20

// AllowedImageTypes is the payment proof MIME allow-list.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// UploadPayload is either a direct file upload or a legacy base64 data URL.
type UploadPayload interface {
	isUploadPayload()
}

// FilePayload is a binary upload with the MIME type the client declared.
type FilePayload struct {
	Data         []byte
	DeclaredMIME string
}

// Base64Payload is the legacy "data:<mime>;base64,<data>" form. A bare base64
// string without the data: header is accepted and sniffed.
type Base64Payload struct {
	DataURL string
}

func (FilePayload) isUploadPayload()   {}
func (Base64Payload) isUploadPayload() {}

// RawArtifact is the single internal shape both payload encodings resolve to.
type RawArtifact struct {
	Data         []byte
	DeclaredMIME string
}

// Resolve turns a payload into a RawArtifact. maxBytes bounds the decoded size so
// an oversized base64 body is rejected before it is decoded.
func Resolve(p UploadPayload, maxBytes int64) (RawArtifact, error) {
	switch v := p.(type) {
	case FilePayload:
		return RawArtifact{Data: v.Data, DeclaredMIME: normalizeMIME(v.DeclaredMIME)}, nil
	case *FilePayload:
		return Resolve(*v, maxBytes)
	case Base64Payload:
		return decodeDataURL(v.DataURL, maxBytes)
	case *Base64Payload:
		return decodeDataURL(v.DataURL, maxBytes)
	case nil:
		return RawArtifact{}, apperrors.Validation("payment proof is required", map[string]string{
			"payment_proof": "Payment proof is required!",
		})
	default:
		return RawArtifact{}, apperrors.Validation("unsupported upload payload", nil)
	}
}

func decodeDataURL(dataURL string, maxBytes int64) (RawArtifact, error) {
	dataURL = strings.TrimSpace(dataURL)
	declared := ""
	encoded := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		header, body, ok := strings.Cut(dataURL, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return RawArtifact{}, invalidProof("Payment proof must be a base64 data URL!")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = body
	}

	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxBytes+2 {
		return RawArtifact{}, tooLarge(maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return RawArtifact{}, invalidProof("Payment proof is not valid base64!")
	}
	return RawArtifact{Data: data, DeclaredMIME: normalizeMIME(declared)}, nil
}

// ArtifactStore validates payment proofs and persists them in a blob store.
type ArtifactStore struct {
	blobs    BlobStore
	maxBytes int64
	now      func() time.Time
}

func NewArtifactStore(blobs BlobStore, maxBytes int64) *ArtifactStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArtifactBytes
	}
	return &ArtifactStore{blobs: blobs, maxBytes: maxBytes, now: time.Now}
}

// Store validates the payload and writes it under folder with a collision-resistant
// name, returning the public reference.
func (s *ArtifactStore) Store(ctx context.Context, payload UploadPayload, folder string) (string, error) {
	raw, err := Resolve(payload, s.maxBytes)
	if err != nil {
		metrics.PaymentUploads.WithLabelValues("rejected").Inc()
		return "", err
	}

	ext, err := s.validate(raw)
	if err != nil {
		metrics.PaymentUploads.WithLabelValues("rejected").Inc()
		return "", err
	}

	name := fmt.Sprintf("%s-%s%s", s.now().UTC().Format("20060102150405"), strings.ReplaceAll(uuid.NewString(), "-", "")[:8], ext)
	ref, err := s.blobs.Write(ctx, path.Join(folder, name), raw.Data)
	if err != nil {
		metrics.PaymentUploads.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("store payment proof: %w", err)
	}

	metrics.PaymentUploads.WithLabelValues("stored").Inc()
	return ref, nil
}

func (s *ArtifactStore) validate(raw RawArtifact) (string, error) {
	if len(raw.Data) == 0 {
		return "", invalidProof("Payment proof is empty!")
	}
	if int64(len(raw.Data)) > s.maxBytes {
		return "", tooLarge(s.maxBytes)
	}
	if raw.DeclaredMIME != "" && !allowed(raw.DeclaredMIME) {
		return "", invalidProof("Payment proof must be a JPEG, PNG or WebP image!")
	}

	detected := mimetype.Detect(raw.Data)
	if !allowed(detected.String()) {
		return "", invalidProof("Payment proof must be a JPEG, PNG or WebP image!")
	}
	return detected.Extension(), nil
}

func allowed(mime string) bool {
	for _, t := range AllowedImageTypes {
		if t == mime {
			return true
		}
	}
	return false
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return "image/jpeg"
	}
	return mime
}

func invalidProof(msg string) error {
	return apperrors.Validation("invalid payment proof", map[string]string{"payment_proof": msg})
}

func tooLarge(maxBytes int64) error {
	return invalidProof(fmt.Sprintf("Payment proof must not exceed %d MiB!", maxBytes>>20))
}
