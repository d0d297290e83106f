package cloudinary

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// UploadError wraps any attachment-host failure. Uploads are not idempotent:
// a retried upload may create a duplicate remote object, so callers fall back
// instead of retrying.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Service hosts attachment payloads on Cloudinary and returns durable view links.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload decodes the base64 payload, sends it to Cloudinary and returns a
// secure view link. Folder hints (level, student, task) only organize the
// remote tree; they never affect correctness.
func (s *Service) Upload(ctx context.Context, contentBase64, name, mimeType string, folderHints ...string) (string, error) {
	content, err := decodeBase64Payload(contentBase64)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	segments := []string{strings.Trim(s.folder, "/")}
	for _, hint := range folderHints {
		if cleaned := sanitizeSegment(hint); cleaned != "" {
			segments = append(segments, cleaned)
		}
	}

	params := uploader.UploadParams{
		Folder:       strings.Join(segments, "/"),
		PublicID:     buildPublicID(name),
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(content), params)
	if err != nil {
		return "", &UploadError{Name: name, Err: err}
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Str("mime_type", mimeType).
		Msg("attachment uploaded to cloudinary")

	return result.SecureURL, nil
}

// decodeBase64Payload accepts raw base64 or a data URI and returns the bytes.
func decodeBase64Payload(payload string) ([]byte, error) {
	trimmed := strings.TrimSpace(payload)
	if idx := strings.Index(trimmed, ";base64,"); idx >= 0 && strings.HasPrefix(trimmed, "data:") {
		trimmed = trimmed[idx+len(";base64,"):]
	}

	if trimmed == "" {
		return nil, fmt.Errorf("empty payload")
	}

	content, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		content, err = base64.RawStdEncoding.DecodeString(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return content, nil
}

func sanitizeSegment(segment string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, segment)

	return strings.Trim(cleaned, "-")
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = sanitizeSegment(base)
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d", base, time.Now().Unix())
}
