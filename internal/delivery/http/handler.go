package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
	"github.com/ecoscan/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	aggregator      *usecase.Aggregator
	recommendations *usecase.RecommendationService
	scans           domain.ScanRepository
	maxAlternatives int
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(aggregator *usecase.Aggregator, recommendations *usecase.RecommendationService, scans domain.ScanRepository, maxAlternatives int, logger *zap.Logger) *Handler {
	return &Handler{
		aggregator:      aggregator,
		recommendations: recommendations,
		scans:           scans,
		maxAlternatives: maxAlternatives,
		logger:          logger,
	}
}

// Root returns basic service information
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ecoscan-backend",
		"version": "1.0.0",
		"docs":    "/api/health",
	})
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"endpoints": gin.H{
			"scan":            "/api/scan",
			"health":          "/api/health",
			"history":         "/api/history/:userId",
			"stats":           "/api/stats/:userId",
			"recommendations": "/api/recommendations",
		},
	})
}

// ScanClothing handles the main scanning endpoint. It accepts the clothing
// image (required) and the care-tag image (optional), runs the full
// analysis pipeline, and persists the result for history.
func (h *Handler) ScanClothing(c *gin.Context) {
	clothingImage, clothingName, err := readImageFile(c, "clothing_image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clothing_image file is required"})
		return
	}

	tagImage, _, err := readImageFile(c, "tag_image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag_image could not be read"})
		return
	}

	userID := c.PostForm("user_id")
	ctx := c.Request.Context()

	h.logger.Info("processing scan",
		zap.String("user_id", userID),
		zap.Int("clothing_bytes", len(clothingImage)),
		zap.Int("tag_bytes", len(tagImage)))

	analysis, err := h.aggregator.AggregatePrimary(ctx, clothingImage, clothingName, tagImage)
	if err != nil {
		h.logger.Error("scan analysis failed", zap.Error(err))
		c.JSON(statusForError(err), gin.H{"error": "Scan failed: " + err.Error()})
		return
	}

	alternatives := h.aggregator.AggregateAlternatives(ctx, clothingImage, clothingName, h.maxAlternatives)

	scan := BuildScanResult(analysis, alternatives, userID)
	if err := h.scans.AddScan(ctx, scan); err != nil {
		h.logger.Warn("failed to persist scan", zap.String("scan_id", scan.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": scan})
}

// GetScan returns one stored scan by ID
func (h *Handler) GetScan(c *gin.Context) {
	scan, err := h.scans.GetScan(c.Request.Context(), c.Param("scanId"))
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scan)
}

// DeleteScan removes one stored scan by ID
func (h *Handler) DeleteScan(c *gin.Context) {
	err := h.scans.DeleteScan(c.Request.Context(), c.Param("scanId"))
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetHistory returns a user's scans, newest first. The optional limit query
// parameter caps the result.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	history, err := h.scans.GetHistory(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": history, "count": len(history)})
}

// GetStats returns aggregate statistics over a user's scan history
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.scans.GetStats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRecommendations returns the curated sustainable picks, scored
func (h *Handler) GetRecommendations(c *gin.Context) {
	picks := h.recommendations.Recommendations(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"recommendations": picks, "count": len(picks)})
}

// readImageFile pulls one uploaded file out of the multipart form. A
// missing optional file surfaces as http.ErrMissingFile.
func readImageFile(c *gin.Context, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

// statusForError maps pipeline failures onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmptyOCRText), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
