package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/morph-inspector-go/internal/config"
	apperrors "github.com/anime-shed/morph-inspector-go/internal/errors"
	"github.com/anime-shed/morph-inspector-go/internal/logger"
	"github.com/anime-shed/morph-inspector-go/internal/service"
	"github.com/anime-shed/morph-inspector-go/pkg/models"
	"github.com/anime-shed/morph-inspector-go/pkg/services"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// maxBatchLocations bounds a single /detect/batch request
const maxBatchLocations = 64

type BatchRequest struct {
	Locations []string `json:"locations" binding:"required"`
}

type BatchResponse struct {
	Success bool               `json:"success"`
	Summary services.Summary   `json:"summary"`
	Items   []models.BatchItem `json:"items"`
}

// StatusProvider returns runtime details merged into the /health response
type StatusProvider func() map[string]interface{}

type handler struct {
	detection service.MorphDetectionService
	batch     *services.BatchDetectionService
	locations *validation.LocationValidator
	status    StatusProvider
	cfg       *config.Config
}

// NewHandler builds the HTTP routes. status may be nil.
func NewHandler(
	detection service.MorphDetectionService,
	batch *services.BatchDetectionService,
	gatherer prometheus.Gatherer,
	status StatusProvider,
	cfg *config.Config,
) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{
		detection: detection,
		batch:     batch,
		locations: validation.NewLocationValidatorWithURLs(cfg.URLValidator()),
		status:    status,
		cfg:       cfg,
	}

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.POST("/detect", h.detect)
	r.POST("/detect/upload", h.detectUpload)
	r.POST("/detect/batch", h.detectBatch)

	return r
}

func (h *handler) detect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequest(c, "Processing morph detection request")

	var req models.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if (req.URL == "") == (req.Path == "") {
		err := apperrors.NewValidationError("exactly one of url or path must be set", nil)
		respondError(c, err.StatusCode, "invalid request", err)
		return
	}

	location := req.Location()
	if err := h.checkLocation(location); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid image location", err)
		return
	}

	response, err := h.detection.DetectFromLocation(ctx, location)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "morph detection failed", err)
		return
	}

	logCompletion(response)
	c.JSON(http.StatusOK, response)
}

func (h *handler) detectUpload(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequest(c, "Processing morph detection upload")

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "missing multipart field \"image\"", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to open upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	response, err := h.detection.DetectFromBytes(ctx, data, fileHeader.Filename)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "morph detection failed", err)
		return
	}

	logCompletion(response)
	c.JSON(http.StatusOK, response)
}

func (h *handler) detectBatch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequest(c, "Processing batch morph detection request")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if len(req.Locations) == 0 || len(req.Locations) > maxBatchLocations {
		err := apperrors.NewValidationError(fmt.Sprintf("locations must hold 1 to %d entries", maxBatchLocations), nil)
		respondError(c, err.StatusCode, "invalid request", err)
		return
	}
	for _, location := range req.Locations {
		if err := h.checkLocation(location); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid image location", err)
			return
		}
	}

	items, err := h.batch.DetectAll(ctx, req.Locations)
	if err != nil {
		timeout := apperrors.NewTimeoutError("batch detection did not finish", err)
		respondError(c, timeout.StatusCode, "batch detection failed", timeout)
		return
	}

	c.JSON(http.StatusOK, BatchResponse{
		Success: true,
		Summary: services.Summarize(items),
		Items:   items,
	})
}

// checkLocation rejects local paths unless LOCAL_IMAGE_ROOT is configured
func (h *handler) checkLocation(location string) error {
	kind, err := h.locations.Classify(location)
	if err != nil {
		return err
	}
	if kind == validation.LocationLocal && h.cfg.LocalImageRoot == "" {
		return apperrors.NewValidationError("local paths are disabled on this server", nil)
	}
	return nil
}

func (h *handler) healthCheck(c *gin.Context) {
	body := gin.H{}
	if h.status != nil {
		for k, v := range h.status() {
			body[k] = v
		}
	}
	body["status"] = "available"
	body["version"] = Version
	body["time"] = time.Now().UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, body)
}

func logRequest(c *gin.Context, msg string) {
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info(msg)
}

func logCompletion(response *models.DetectionResponse) {
	logger.WithFields(logrus.Fields{
		"analysis_id":        response.AnalysisID,
		"source":             response.Source,
		"prediction":         response.Prediction,
		"morph_probability":  response.MorphProbability,
		"processing_time_ms": int64(response.ProcessingTimeSec * 1000),
	}).Info("Morph detection completed successfully")
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Success: false,
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
