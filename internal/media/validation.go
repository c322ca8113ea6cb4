package media

import (
	"fmt"
	"mime"
	"strings"

	pkgerrors "github.com/angelmondragon/catalog-backend/pkg/errors"
)

const (
	DefaultMaxUploadBytes = 5 << 20
	imageMediaPrefix      = "image/"
	bytesPerMB            = 1024 * 1024
)

// Validator enforces per-file image limits.
type Validator struct {
	MaxBytes int64
}

func NewValidator(maxBytes int64) Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return Validator{MaxBytes: maxBytes}
}

// Filter drops empty files and validates the rest. Any invalid file rejects
// the whole batch.
func (v Validator) Filter(uploads []Upload) ([]Upload, error) {
	out := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if u.Size == 0 {
			continue
		}
		if err := v.Check(u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Check validates a single non-empty upload.
func (v Validator) Check(u Upload) error {
	max := v.MaxBytes
	if max <= 0 {
		max = DefaultMaxUploadBytes
	}
	if u.Size > max {
		return pkgerrors.Newf(pkgerrors.CodeValidation,
			"File %q is too large (%.2fMB). Maximum size is %sMB.",
			u.FileName, float64(u.Size)/bytesPerMB, formatMB(max),
		).WithDetails(map[string]any{
			"file":      u.FileName,
			"size":      u.Size,
			"max_bytes": max,
		})
	}
	mediaType, err := sniffMimeType(u.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, imageMediaPrefix) {
		return pkgerrors.Newf(pkgerrors.CodeValidation,
			"File %q is not a valid image format.", u.FileName,
		).WithDetails(map[string]any{
			"file":         u.FileName,
			"content_type": u.ContentType,
		})
	}
	return nil
}

func formatMB(n int64) string {
	mb := float64(n) / bytesPerMB
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d", int64(mb))
	}
	return fmt.Sprintf("%.2f", mb)
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}
