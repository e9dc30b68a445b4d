package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	apperrors "github.com/hautex/visual-fashion-finder/pkg/errors"
	"github.com/hautex/visual-fashion-finder/pkg/httputil"
	"github.com/hautex/visual-fashion-finder/pkg/middleware"
)

// ImageField is the multipart field carrying the upload.
const ImageField = "image"

// RootMessage is the body of GET /.
const RootMessage = "Visual Fashion Finder API is running"

// multipartOverhead is allowed on top of the file limit for boundaries and
// part headers.
const multipartOverhead = 64 << 10

// Client-facing messages for rejected uploads.
const (
	msgNoImage     = "Aucune image fournie"
	msgNotAnImage  = "Seules les images sont acceptées"
	msgBadForm     = "Formulaire multipart invalide"
	msgSingleImage = "Une seule image est acceptée"
)

// SearchService is the pipeline behind the search endpoints.
type SearchService interface {
	Search(ctx context.Context, img domain.Image) (*domain.SearchOutcome, error)
	Mock(ctx context.Context) (*domain.SearchOutcome, error)
}

// SearchHandler handles the image upload endpoints.
type SearchHandler struct {
	service  SearchService
	maxBytes int64
	logger   *slog.Logger
}

// NewSearchHandler creates a search handler accepting files up to maxBytes.
func NewSearchHandler(svc SearchService, maxBytes int64, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service:  svc,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Search handles POST /api/search (multipart/form-data, field "image").
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	img, err := h.readImage(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	outcome, err := h.service.Search(r.Context(), img)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	writeOutcome(w, outcome)
}

// Mock handles POST /api/search/mock. The upload is validated and then
// ignored.
func (h *SearchHandler) Mock(w http.ResponseWriter, r *http.Request) {
	if _, err := h.readImage(w, r); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	outcome, err := h.service.Mock(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// The client is gone or the route timed out; nobody reads this.
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	writeOutcome(w, outcome)
}

// Root handles GET /.
func (h *SearchHandler) Root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, RootMessage)
}

func writeOutcome(w http.ResponseWriter, outcome *domain.SearchOutcome) {
	if outcome.Degraded {
		w.Header().Set(middleware.DegradedHeader, "true")
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// readImage extracts and validates the uploaded image. Every rejection is
// a 400.
func (h *SearchHandler) readImage(w http.ResponseWriter, r *http.Request) (domain.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return domain.Image{}, apperrors.FileTooLarge(h.maxBytes)
		case errors.Is(err, http.ErrNotMultipart):
			return domain.Image{}, apperrors.InvalidInput(msgNoImage)
		default:
			return domain.Image{}, apperrors.InvalidInput(msgBadForm)
		}
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[ImageField]
	switch len(headers) {
	case 0:
		return domain.Image{}, apperrors.InvalidInput(msgNoImage)
	case 1:
	default:
		return domain.Image{}, apperrors.InvalidInput(msgSingleImage)
	}
	header := headers[0]

	file, err := header.Open()
	if err != nil {
		return domain.Image{}, apperrors.InvalidInput(msgBadForm)
	}
	defer func() { _ = file.Close() }()

	if header.Size > h.maxBytes {
		return domain.Image{}, apperrors.FileTooLarge(h.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return domain.Image{}, apperrors.InvalidInput(msgBadForm)
	}
	if int64(len(data)) > h.maxBytes {
		return domain.Image{}, apperrors.FileTooLarge(h.maxBytes)
	}
	if len(data) == 0 {
		return domain.Image{}, apperrors.InvalidInput(msgNoImage)
	}

	contentType := declaredType(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.Image{}, apperrors.InvalidInput(msgNotAnImage)
	}

	return domain.Image{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// declaredType strips parameters from a part's Content-Type.
func declaredType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
