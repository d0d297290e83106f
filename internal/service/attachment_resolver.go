package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/aulacode/tareas-api/internal/models"
)

// Default per-field ceilings imposed by the record store. The limits are
// undocumented upstream; these values are known-safe.
const (
	DefaultMaxInlineAttachmentChars = 90000
	DefaultMaxDrawingChars          = 100000
)

// AttachmentUploader sends a base64 payload to the external attachment host
// and returns a durable view link. A nil uploader means the host is not
// configured.
type AttachmentUploader interface {
	Upload(ctx context.Context, contentBase64, name, mimeType string, folderHints ...string) (string, error)
}

// ResolvedContent is the storable outcome of attachment resolution.
type ResolvedContent struct {
	Files    []models.Attachment
	Drawing  string
	Manifest []string
}

// AttachmentResolver decides, per attachment, whether to host it externally,
// inline it, or drop its content. The submission always survives; only
// fidelity degrades.
type AttachmentResolver struct {
	uploader        AttachmentUploader
	maxInlineChars  int
	maxDrawingChars int
	logger          zerolog.Logger
}

// NewAttachmentResolver constructs the resolver. A nil uploader disables
// external hosting; non-positive ceilings fall back to the defaults.
func NewAttachmentResolver(uploader AttachmentUploader, maxInlineChars, maxDrawingChars int, logger zerolog.Logger) *AttachmentResolver {
	if maxInlineChars <= 0 {
		maxInlineChars = DefaultMaxInlineAttachmentChars
	}
	if maxDrawingChars <= 0 {
		maxDrawingChars = DefaultMaxDrawingChars
	}

	return &AttachmentResolver{
		uploader:        uploader,
		maxInlineChars:  maxInlineChars,
		maxDrawingChars: maxDrawingChars,
		logger:          logger.With().Str("component", "attachment_resolver").Logger(),
	}
}

// Resolve converts client-supplied attachments and drawing into storable form
// and builds the human-readable manifest appended to the submission's output,
// so graders can see what was kept even when content had to be dropped.
func (r *AttachmentResolver) Resolve(ctx context.Context, files []models.Attachment, drawing string, folderHints ...string) ResolvedContent {
	resolved := ResolvedContent{}

	if drawing != "" {
		resolved.Drawing = r.resolveDrawing(drawing)
		resolved.Manifest = append(resolved.Manifest, "🎨 Dibujo incluido")
	}

	if len(files) > 0 {
		resolved.Files = make([]models.Attachment, 0, len(files))
		names := make([]string, 0, len(files))
		for _, attachment := range files {
			resolved.Files = append(resolved.Files, r.resolveFile(ctx, attachment, folderHints...))
			names = append(names, attachment.Name)
		}
		resolved.Manifest = append(resolved.Manifest,
			fmt.Sprintf("📎 %d archivo(s): %s", len(files), strings.Join(names, ", ")))
	}

	return resolved
}

// resolveFile applies the policy cascade: hosted pass-through, upload,
// inline, drop. Name and type always survive for display.
func (r *AttachmentResolver) resolveFile(ctx context.Context, attachment models.Attachment, folderHints ...string) models.Attachment {
	result := models.Attachment{Name: attachment.Name, Type: attachment.Type}

	if attachment.URL != "" {
		result.URL = attachment.URL
		return result
	}

	if attachment.Data == "" {
		return result
	}

	if result.Type == "" {
		result.Type = detectMimeType(attachment.Data)
	}

	if r.uploader != nil {
		viewLink, err := r.uploader.Upload(ctx, attachment.Data, attachment.Name, result.Type, folderHints...)
		if err == nil {
			result.URL = viewLink
			return result
		}

		// Uploads are not idempotent, so no retry; fall back to inlining.
		r.logger.Warn().Err(err).Str("name", attachment.Name).Msg("attachment upload failed, falling back to inline")
	}

	if len(attachment.Data) <= r.maxInlineChars {
		result.Data = attachment.Data
		return result
	}

	r.logger.Warn().
		Str("name", attachment.Name).
		Int("size", len(attachment.Data)).
		Msg("attachment too large to inline, content dropped")

	return result
}

func (r *AttachmentResolver) resolveDrawing(drawing string) string {
	if len(drawing) <= r.maxDrawingChars {
		return drawing
	}

	r.logger.Warn().Int("size", len(drawing)).Msg("drawing too large, replaced with placeholder")
	return models.DrawingTooLargePlaceholder
}

// detectMimeType sniffs the content type from the decoded payload when the
// client did not supply one.
func detectMimeType(contentBase64 string) string {
	trimmed := strings.TrimSpace(contentBase64)
	if idx := strings.Index(trimmed, ";base64,"); idx >= 0 && strings.HasPrefix(trimmed, "data:") {
		trimmed = trimmed[idx+len(";base64,"):]
	}

	content, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		content, err = base64.RawStdEncoding.DecodeString(trimmed)
	}
	if err != nil || len(content) == 0 {
		return ""
	}

	return mimetype.Detect(content).String()
}
