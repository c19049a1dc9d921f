// Package handlers implements the HTTP endpoints of the trust-and-access
// core: login and session management, media uploads, and health checks.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/ieraasyl/StorefrontCore/internal/middleware"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/internal/ratelimit"
	"github.com/ieraasyl/StorefrontCore/internal/upload"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes caps a single media upload. The multipart form parser is
// given a little extra headroom for the non-file fields.
const (
	maxUploadBytes = 10 << 20 // 10 MiB
	formOverhead   = 1 << 20
)

// Gate is the authorization surface the upload endpoints need.
type Gate interface {
	RequireUser(ctx context.Context, token string) (*models.User, error)
	RequireAdmin(ctx context.Context, token string) (*models.User, error)
}

// ObjectStore is the storage surface the upload endpoints need.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
	DeleteFiles(ctx context.Context, bucket string, keys []string)
}

// UploadHandler sequences every media upload the same way: authorization
// gate, rate limiter, validator, object storage. Nothing downstream runs
// once an earlier stage rejects; in particular a rate-limited request
// never touches storage.
type UploadHandler struct {
	gate    Gate
	limits  ratelimit.Store
	storage ObjectStore
	cfg     *config.Config
}

// NewUploadHandler creates the upload endpoints.
func NewUploadHandler(gate Gate, limits ratelimit.Store, storage ObjectStore, cfg *config.Config) *UploadHandler {
	return &UploadHandler{
		gate:    gate,
		limits:  limits,
		storage: storage,
		cfg:     cfg,
	}
}

// uploadRequest is a parsed and authorized upload, ready for storage.
type uploadRequest struct {
	user        *models.User
	resourceID  string
	data        []byte
	filename    string
	contentType string
}

// GalleryUpload handles POST /api/v1/uploads/gallery. Multipart form with
// "file", "userId", and "setupId". Any authenticated user may upload to
// their own gallery.
func (h *UploadHandler) GalleryUpload(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "gallery", "setupId", h.cfg.Storage.GalleryBucket, h.cfg.RateLimit.Gallery, false)
}

// ProductUpload handles POST /api/v1/uploads/products. Multipart form with
// "file", "userId", and "slug". Admin only.
func (h *UploadHandler) ProductUpload(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "product", "slug", h.cfg.Storage.ProductBucket, h.cfg.RateLimit.Product, true)
}

// ReviewUpload handles POST /api/v1/uploads/reviews. Multipart form with
// "file", "userId", and "reviewId".
func (h *UploadHandler) ReviewUpload(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, "review", "reviewId", h.cfg.Storage.ReviewBucket, h.cfg.RateLimit.Review, false)
}

// handleUpload runs the gate → limiter → validator → storage sequence for
// one resource category.
//
// Status contract: 200 {url}, 400 malformed payload, 403 unauthenticated
// or identity mismatch, 413 size exceeded, 415 disallowed type, 429 rate
// limited, 500 storage failure.
func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request, category, resourceField, bucket string, limit config.CategoryLimit, adminOnly bool) {
	token := middleware.Token(r.Context())

	var user *models.User
	var err error
	if adminOnly {
		user, err = h.gate.RequireAdmin(r.Context(), token)
	} else {
		user, err = h.gate.RequireUser(r.Context(), token)
	}
	if err != nil {
		middleware.RecordUpload(category, "unauthorized", 0)
		h.respondError(w, r, category, err)
		return
	}

	// The limiter runs before the body is touched, so a throttled caller
	// costs nothing beyond the form headers. Anonymous traffic is already
	// throttled per-IP at the router; this identifier adds the
	// authenticated dimension.
	identifier := fmt.Sprintf("%s:%s:%s", category, utils.ExtractClientIP(r), user.ID)
	allowed, err := h.limits.Allow(r.Context(), identifier, limit.Max, limit.Window)
	if err != nil {
		// Fail open: a counter-store blip must not block uploads.
		log.Error().Err(err).Str("identifier", identifier).Msg("Rate limit check failed")
	} else if !allowed {
		middleware.RecordUpload(category, "rate_limited", 0)
		middleware.RecordRateLimitRejection(category)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limit.Window.Seconds())))
		h.respondError(w, r, category, apperrors.ErrRateLimited)
		return
	}

	// The transport layer already knows the payload size; an honestly
	// declared oversize body is rejected before a single byte is read, and
	// MaxBytesReader caps what a dishonest one can make the parser consume.
	if r.ContentLength > maxUploadBytes+formOverhead {
		middleware.RecordUpload(category, "rejected_size", 0)
		h.respondError(w, r, category,
			fmt.Errorf("%w: declared %d bytes exceeds limit of %d", apperrors.ErrSizeExceeded, r.ContentLength, maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+formOverhead)

	req, err := h.parseUpload(r, user, resourceField)
	if err != nil {
		if errors.Is(err, apperrors.ErrSizeExceeded) {
			middleware.RecordUpload(category, "rejected_size", 0)
		} else {
			middleware.RecordUpload(category, "rejected_payload", 0)
		}
		h.respondError(w, r, category, err)
		return
	}

	if err := upload.Validate(int64(len(req.data)), req.contentType, upload.ImageTypes, maxUploadBytes); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrSizeExceeded):
			middleware.RecordUpload(category, "rejected_size", 0)
		default:
			middleware.RecordUpload(category, "rejected_type", 0)
		}
		h.respondError(w, r, category, err)
		return
	}

	key := upload.ObjectKey(user.ID.String(), req.resourceID, req.filename)
	url, err := h.storage.UploadFile(r.Context(), bucket, key, req.data, req.contentType)
	if err != nil {
		middleware.RecordUpload(category, "storage_error", 0)
		log.Error().
			Err(err).
			Str("category", category).
			Str("user_id", user.ID.String()).
			Str("bucket", bucket).
			Str("key", key).
			Msg("Upload transfer failed")
		h.respondError(w, r, category, err)
		return
	}

	middleware.RecordUpload(category, "accepted", int64(len(req.data)))
	utils.RespondWithJSON(w, r, http.StatusOK, map[string]string{"url": url})
}

// parseUpload extracts and authorizes the multipart payload: the declared
// owner must match the authenticated user, the resource field must be
// present, and the file part must exist. The caller has already capped the
// body with MaxBytesReader; tripping that cap mid-parse is a size failure,
// not a malformed form.
func (h *UploadHandler) parseUpload(r *http.Request, user *models.User, resourceField string) (*uploadRequest, error) {
	if err := r.ParseMultipartForm(maxUploadBytes + formOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: body exceeds limit of %d bytes", apperrors.ErrSizeExceeded, maxUploadBytes)
		}
		return nil, fmt.Errorf("%w: unparsable multipart form", apperrors.ErrBadRequest)
	}

	claimedID := r.FormValue("userId")
	if claimedID == "" {
		return nil, fmt.Errorf("%w: missing userId field", apperrors.ErrBadRequest)
	}
	ownerID, err := uuid.Parse(claimedID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid userId field", apperrors.ErrBadRequest)
	}
	// Ownership comes from the session, not the form; a mismatch is a
	// privilege violation, not a malformed payload.
	if ownerID != user.ID {
		return nil, fmt.Errorf("%w: upload owner mismatch", apperrors.ErrForbidden)
	}

	resourceID := r.FormValue(resourceField)
	if resourceID == "" {
		return nil, fmt.Errorf("%w: missing %s field", apperrors.ErrBadRequest, resourceField)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", apperrors.ErrBadRequest)
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", apperrors.ErrSizeExceeded, header.Size, maxUploadBytes)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable file part", apperrors.ErrBadRequest)
	}

	return &uploadRequest{
		user:        user,
		resourceID:  upload.SanitizeName(resourceID),
		data:        data,
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
	}, nil
}

// deleteRequest is the admin batch-delete payload.
type deleteRequest struct {
	Bucket string   `json:"bucket"`
	Keys   []string `json:"keys"`
}

// DeleteMedia handles DELETE /api/v1/uploads (admin only): best-effort
// batch removal of objects, used when moderating content. Storage-side
// failures are logged and swallowed, so the response only reflects
// request-shape problems.
func (h *UploadHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r.Context())

	if _, err := h.gate.RequireAdmin(r.Context(), token); err != nil {
		utils.RespondWithError(w, r, apperrors.StatusCode(err), apperrors.Message(err))
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Bucket == "" || len(req.Keys) == 0 {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Malformed delete request")
		return
	}

	h.storage.DeleteFiles(r.Context(), req.Bucket, req.Keys)
	utils.RespondWithMessage(w, r, http.StatusOK, "Delete scheduled")
}

// respondError maps taxonomy errors to the upload endpoint contract.
// Uploads report 403 for unauthenticated callers (the storefront treats
// both missing identity and wrong identity the same at this surface); the
// authn/authz distinction is preserved in the error values and logs.
func (h *UploadHandler) respondError(w http.ResponseWriter, r *http.Request, category string, err error) {
	status := apperrors.StatusCode(err)
	if status == http.StatusUnauthorized {
		status = http.StatusForbidden
	}

	log.Debug().
		Err(err).
		Str("category", category).
		Int("status", status).
		Msg("Upload rejected")

	utils.RespondWithError(w, r, status, apperrors.Message(err))
}
