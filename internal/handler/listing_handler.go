package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"listing-service/internal/listing"
	"listing-service/internal/middleware"
	"listing-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListingHandler serves the listings endpoints
type ListingHandler struct {
	service listing.IListingService
}

// NewListingHandler creates a listing handler
func NewListingHandler(service listing.IListingService) *ListingHandler {
	return &ListingHandler{service: service}
}

// UpsertRequest defines the body of a create/update request
type UpsertRequest struct {
	Vertical      string                  `json:"vertical"`
	ListingID     string                  `json:"listingId"`
	Listing       map[string]interface{}  `json:"listing"`
	Detail        map[string]interface{}  `json:"detail"`
	Images        []listing.ImageInput    `json:"images"`
	Documents     []listing.DocumentInput `json:"documents"`
	ReplaceImages *bool                   `json:"replaceImages"`
}

// List handles the public catalogue
func (h *ListingHandler) List(c echo.Context) error {
	log := logger.FromContext(c)

	q := listing.ListQuery{
		Vertical: listing.Vertical(strings.ToLower(strings.TrimSpace(c.QueryParam("vertical")))),
		Type:     strings.TrimSpace(c.QueryParam("type")),
		Keyword:  strings.TrimSpace(c.QueryParam("keyword")),
		City:     strings.TrimSpace(c.QueryParam("city")),
		Currency: strings.TrimSpace(c.QueryParam("currency")),
	}
	var err error
	if q.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return badRequest(c, err)
	}
	if q.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return badRequest(c, err)
	}
	if q.Limit, q.Offset, err = queryWindow(c); err != nil {
		return badRequest(c, err)
	}

	page, err := h.service.List(c.Request().Context(), q)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Mine handles the caller's own listings
func (h *ListingHandler) Mine(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		return writeError(c, log, listing.ErrUnauthenticated)
	}

	q := listing.MineQuery{
		Vertical: listing.Vertical(strings.ToLower(strings.TrimSpace(c.QueryParam("vertical")))),
		Type:     strings.TrimSpace(c.QueryParam("type")),
		Status:   strings.ToLower(strings.TrimSpace(c.QueryParam("status"))),
	}
	var err error
	if q.Limit, q.Offset, err = queryWindow(c); err != nil {
		return badRequest(c, err)
	}

	page, err := h.service.ListMine(c.Request().Context(), userID, q)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// FindByID handles a single published listing
func (h *ListingHandler) FindByID(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	summary, err := h.service.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, log, err)
	}
	if summary == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}
	return c.JSON(http.StatusOK, summary)
}

// ListMedia handles the ordered images of a listing
func (h *ListingHandler) ListMedia(c echo.Context) error {
	log := logger.FromContext(c)

	media, err := h.service.ListMedia(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": media})
}

// Upsert handles create and update of the caller's listing
func (h *ListingHandler) Upsert(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetAuthUserID(c)
	if !ok {
		return writeError(c, log, listing.ErrUnauthenticated)
	}

	var req UpsertRequest
	if err := c.Bind(&req); err != nil {
		log.Warn("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	vertical, err := listing.ParseVertical(req.Vertical)
	if err != nil {
		return badRequest(c, err)
	}
	replaceImages := true
	if req.ReplaceImages != nil {
		replaceImages = *req.ReplaceImages
	}

	result, err := h.service.UpsertListing(c.Request().Context(), listing.UpsertInput{
		Vertical:      vertical,
		ListingID:     strings.TrimSpace(req.ListingID),
		AuthUserID:    userID,
		Listing:       req.Listing,
		Detail:        req.Detail,
		ReplaceImages: replaceImages,
		Images:        req.Images,
		Documents:     req.Documents,
	})
	if err != nil {
		return writeError(c, log, err)
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, result)
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &f, nil
}

func queryWindow(c echo.Context) (int, int, error) {
	limit, offset := 0, 0
	var err error
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("limit must be an integer")
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("offset must be an integer")
		}
	}
	return limit, offset, nil
}
