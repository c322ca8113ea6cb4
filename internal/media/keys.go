package media

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultUpdateFolder is used when appending images to a product whose stored folder is empty.
const DefaultUpdateFolder = "default"

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FolderFromName derives a storage prefix from a product name.
func FolderFromName(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "_")
}

// BuildKey returns {folder}/{unixMillis}_{index}_{filename}.
func BuildKey(folder string, at time.Time, index int, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = "image"
	}
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	return fmt.Sprintf("%s/%d_%d_%s", folder, at.UnixMilli(), index, cleanName)
}

// sanitizeFileName keeps the client name readable, non-ASCII included, but
// strips path separators and control characters.
func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	clean = norm.NFC.String(clean)
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
