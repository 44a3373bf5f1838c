package handler

import (
	"net/http"
	"strings"

	"listing-service/internal/listing"
	"listing-service/internal/middleware"
	"listing-service/pkg/logger"
	"listing-service/pkg/storage"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxDocumentSize is the largest document a presigned upload is issued for
const maxDocumentSize = 10 << 20

var allowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// UploadHandler issues presigned document uploads
type UploadHandler struct {
	storage storage.IDocumentStorage
}

// NewUploadHandler creates an upload handler
func NewUploadHandler(s storage.IDocumentStorage) *UploadHandler {
	return &UploadHandler{storage: s}
}

// DocumentUploadRequest defines the body of a presign request
type DocumentUploadRequest struct {
	ListingID   string `json:"listingId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// PresignDocument returns an upload URL and the path to send back in documents[].path
func (h *UploadHandler) PresignDocument(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		return writeError(c, log, listing.ErrUnauthenticated)
	}

	var req DocumentUploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	req.ContentType = strings.ToLower(strings.TrimSpace(req.ContentType))
	if strings.TrimSpace(req.FileName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fileName is required"})
	}
	if !allowedDocumentTypes[req.ContentType] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported content type"})
	}
	if req.Size < 0 || req.Size > maxDocumentSize {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
	}

	upload, err := h.storage.PresignDocumentUpload(c.Request().Context(), userID, strings.TrimSpace(req.ListingID), req.FileName, req.ContentType)
	if err != nil {
		log.Error("Failed to presign document upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create upload"})
	}

	log.Info("Document upload presigned", zap.String("path", upload.Path))
	return c.JSON(http.StatusOK, upload)
}
