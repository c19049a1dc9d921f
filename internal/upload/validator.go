// Package upload validates user-submitted media before it reaches object
// storage: size caps, content-type allow-lists, filename sanitization, and
// deterministic storage key derivation.
package upload

import (
	"fmt"
	"strings"
	"time"

	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
)

// maxNameLength bounds sanitized filenames so derived storage keys stay
// well under provider key limits.
const maxNameLength = 100

// defaultName replaces filenames that sanitize down to nothing.
const defaultName = "file"

// ImageTypes is the allow-list for image upload categories.
var ImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Validate checks a declared upload against the category's constraints.
// Size is checked first: the transport layer knows the declared size before
// the payload is read, so oversize requests are rejected as early as
// possible. The declared content type is then matched against the explicit
// allow-list; it is never inferred from the filename extension.
//
// Returns nil, apperrors.ErrSizeExceeded, or apperrors.ErrTypeRejected.
func Validate(size int64, contentType string, allowedTypes []string, maxBytes int64) error {
	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrSizeExceeded, size, maxBytes)
	}

	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q not in allow-list", apperrors.ErrTypeRejected, contentType)
}

// SanitizeName normalizes a client-supplied filename into a string safe to
// embed in a storage key:
//
//   - every character outside [a-zA-Z0-9._-] becomes an underscore
//   - runs of replacement underscores collapse to one; literal underscores
//     pass through untouched
//   - leading dots are stripped (defeats dotfile and relative-path tricks)
//   - the result is truncated to a bounded length
//   - an empty result falls back to "file"
//
// Path separators never survive, so a sanitized name cannot traverse out of
// its derived key prefix.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastReplacement := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastReplacement = false
		default:
			if !lastReplacement {
				b.WriteByte('_')
				lastReplacement = true
			}
		}
	}

	safe := strings.TrimLeft(b.String(), ".")

	if len(safe) > maxNameLength {
		safe = safe[:maxNameLength]
	}
	if safe == "" {
		return defaultName
	}
	return safe
}

// ObjectKey derives the storage key for an upload:
//
//	{ownerID}/{resourceID}/{unixMillis}-{sanitizedName}
//
// Owner and resource scoping plus the millisecond timestamp make keys
// unique per upload without a coordination service. A collision would need
// the same owner uploading the same sanitized name to the same resource in
// the same millisecond, which is treated as negligible.
func ObjectKey(ownerID, resourceID, filename string) string {
	return fmt.Sprintf("%s/%s/%d-%s", ownerID, resourceID, time.Now().UnixMilli(), SanitizeName(filename))
}
