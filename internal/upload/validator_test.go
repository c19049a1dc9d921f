package upload

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	const maxBytes = 10 << 20

	t.Run("accepts allowed types within size", func(t *testing.T) {
		for _, contentType := range ImageTypes {
			assert.NoError(t, Validate(1024, contentType, ImageTypes, maxBytes))
		}
	})

	t.Run("rejects oversize payloads", func(t *testing.T) {
		err := Validate(maxBytes+1, "image/jpeg", ImageTypes, maxBytes)
		assert.ErrorIs(t, err, apperrors.ErrSizeExceeded)
	})

	t.Run("accepts payload exactly at the cap", func(t *testing.T) {
		assert.NoError(t, Validate(maxBytes, "image/png", ImageTypes, maxBytes))
	})

	t.Run("rejects disallowed types", func(t *testing.T) {
		for _, contentType := range []string{"text/html", "application/pdf", "image/svg+xml", ""} {
			err := Validate(1024, contentType, ImageTypes, maxBytes)
			assert.ErrorIs(t, err, apperrors.ErrTypeRejected, "type %q", contentType)
		}
	})

	t.Run("size is checked before type", func(t *testing.T) {
		// An oversize payload with a bad type reports the size failure: it
		// can be rejected before the body is ever read.
		err := Validate(maxBytes+1, "text/html", ImageTypes, maxBytes)
		assert.ErrorIs(t, err, apperrors.ErrSizeExceeded)
		assert.NotErrorIs(t, err, apperrors.ErrTypeRejected)
	})

	t.Run("type never inferred from extension", func(t *testing.T) {
		err := Validate(1024, "application/octet-stream", ImageTypes, maxBytes)
		assert.ErrorIs(t, err, apperrors.ErrTypeRejected)
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name untouched", "photo.jpg", "photo.jpg"},
		{"spaces replaced", "my vacation photo.jpg", "my_vacation_photo.jpg"},
		{"unicode replaced", "héllo wörld.png", "h_llo_w_rld.png"},
		{"path traversal neutralized", "../../etc/passwd", "_.._etc_passwd"},
		{"slashes replaced", "a/b/c.png", "a_b_c.png"},
		{"backslashes replaced", `a\b\c.png`, "a_b_c.png"},
		{"replacement runs collapse", "a!!!???b.gif", "a_b.gif"},
		{"literal underscores preserved", "a___b.gif", "a___b.gif"},
		{"literal underscore next to replacement", "a_!b.gif", "a__b.gif"},
		{"leading dots stripped", ".hidden.png", "hidden.png"},
		{"only dots falls back", "...", "file"},
		{"empty falls back", "", "file"},
		{"hyphens preserved", "my-photo-2.jpg", "my-photo-2.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}

	t.Run("long names truncated", func(t *testing.T) {
		long := strings.Repeat("a", 300) + ".jpg"
		got := SanitizeName(long)
		assert.Len(t, got, 100)
	})

	t.Run("never contains a path separator", func(t *testing.T) {
		for _, input := range []string{"../../x", "a/b", `a\b`, "/etc/shadow", "..\\..\\win"} {
			got := SanitizeName(input)
			assert.NotContains(t, got, "/")
			assert.NotContains(t, got, `\`)
		}
	})
}

func TestObjectKey(t *testing.T) {
	ownerID := uuid.New().String()

	key := ObjectKey(ownerID, "setup-1", "my photo.jpg")

	pattern := fmt.Sprintf(`^%s/setup-1/\d+-my_photo\.jpg$`, regexp.QuoteMeta(ownerID))
	assert.Regexp(t, regexp.MustCompile(pattern), key)

	t.Run("keys scoped under owner and resource", func(t *testing.T) {
		parts := strings.SplitN(key, "/", 3)
		require.Len(t, parts, 3)
		assert.Equal(t, ownerID, parts[0])
		assert.Equal(t, "setup-1", parts[1])
	})

	t.Run("hostile filename stays inside its prefix", func(t *testing.T) {
		key := ObjectKey(ownerID, "setup-1", "../../../etc/passwd")
		assert.Equal(t, 2, strings.Count(key, "/"), "only the two scoping separators survive")
	})
}
