package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// Version is reported by the health check
const Version = "1.0.0"

// Tracker is the subset of the tracker service the HTTP layer needs
type Tracker interface {
	Run(ctx context.Context, date time.Time) (*domain.RunResult, error)
	Series(ctx context.Context, vendor string) ([]domain.SeriesPoint, error)
	ComponentSeries(ctx context.Context, vendor string) ([]domain.ComponentPoint, error)
	LatestTotal(ctx context.Context, vendor string, date time.Time) (int64, error)
	Vendors() []string
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// TotalResponse is the body of the vendor total endpoint
type TotalResponse struct {
	Vendor string `json:"vendor"`
	Date   string `json:"date"`
	Total  int64  `json:"total"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tracker Tracker
	now     func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(tracker Tracker) *Handler {
	return &Handler{
		tracker: tracker,
		now:     time.Now,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": Version,
	})
}

// TriggerRun prices every vendor for today, or for the date given as ?date=YYYY-MM-DD
func (h *Handler) TriggerRun(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	result, err := h.tracker.Run(c.Request.Context(), date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSeries returns the deduplicated total series, optionally filtered by ?vendor=
func (h *Handler) GetSeries(c *gin.Context) {
	vendor := c.Query("vendor")
	if vendor != "" && !h.knownVendor(vendor) {
		h.respondError(c, domain.ErrUnknownVendor)
		return
	}

	series, err := h.tracker.Series(c.Request.Context(), vendor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// GetComponents returns the deduplicated per-component series, optionally filtered by ?vendor=
func (h *Handler) GetComponents(c *gin.Context) {
	vendor := c.Query("vendor")
	if vendor != "" && !h.knownVendor(vendor) {
		h.respondError(c, domain.ErrUnknownVendor)
		return
	}

	points, err := h.tracker.ComponentSeries(c.Request.Context(), vendor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"components": points})
}

// GetVendorTotal returns a vendor's latest total on or before ?date= (default today)
func (h *Handler) GetVendorTotal(c *gin.Context) {
	vendor := c.Param("vendor")
	if !h.knownVendor(vendor) {
		h.respondError(c, domain.ErrUnknownVendor)
		return
	}

	date, ok := h.dateParam(c)
	if !ok {
		return
	}

	total, err := h.tracker.LatestTotal(c.Request.Context(), vendor, date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TotalResponse{Vendor: vendor, Date: domain.FormatDate(date), Total: total})
}

// dateParam parses ?date=, defaulting to today. It writes a 400 and returns false on bad input.
func (h *Handler) dateParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.now(), true
	}

	date, err := domain.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "date must be formatted as YYYY-MM-DD",
			Code:  "invalid_request",
		})
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) knownVendor(vendor string) bool {
	for _, v := range h.tracker.Vendors() {
		if v == vendor {
			return true
		}
	}
	return false
}

// respondError maps domain errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	var storeErr *domain.StoreError

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	case errors.Is(err, domain.ErrUnknownVendor):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "unknown_vendor"})
	case errors.As(err, &storeErr):
		zap.L().Error("http: history unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "price history is unavailable", Code: "store_unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request canceled", Code: "canceled"})
	default:
		zap.L().Error("http: request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal"})
	}
}
