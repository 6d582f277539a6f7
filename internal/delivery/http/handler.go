package http

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/logger"
	"github.com/labelpadega/backend/internal/usecase"
)

const (
	serviceName    = "labelpadega-backend"
	serviceVersion = "2.0.0"

	defaultMaxUpload = 10 << 20
)

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Services are the use cases served over HTTP. A nil service answers 501.
type Services struct {
	Products  *usecase.ProductService
	Nutrition *usecase.NutritionService
	Analysis  *usecase.AnalysisService
	Labels    *usecase.LabelService
	Medicines *usecase.MedicineService
	Chat      *usecase.ChatService
	Cache     domain.CacheRepository
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	products  *usecase.ProductService
	nutrition *usecase.NutritionService
	analysis  *usecase.AnalysisService
	labels    *usecase.LabelService
	medicines *usecase.MedicineService
	chat      *usecase.ChatService
	cache     domain.CacheRepository

	aiEnabled bool
	maxUpload int64
	logger    *zap.Logger
}

// HandlerOption customizes a Handler
type HandlerOption func(*Handler)

// WithMaxUpload caps image uploads at n bytes
func WithMaxUpload(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithAIEnabled reports the AI status on the health endpoint
func WithAIEnabled(enabled bool) HandlerOption {
	return func(h *Handler) { h.aiEnabled = enabled }
}

// NewHandler creates a new HTTP handler
func NewHandler(s Services, log *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		products:  s.Products,
		nutrition: s.Nutrition,
		analysis:  s.Analysis,
		labels:    s.Labels,
		medicines: s.Medicines,
		chat:      s.Chat,
		cache:     s.Cache,
		maxUpload: defaultMaxUpload,
		logger:    logger.OrNop(log),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    serviceName,
		"version":    serviceVersion,
		"ai_enabled": h.aiEnabled,
	})
}

// ClearCache drops every cache entry
func (h *Handler) ClearCache(c *gin.Context) {
	if h.cache == nil {
		notConfigured(c, "cache")
		return
	}
	if err := h.cache.Clear(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("cache cleared", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// respondError maps domain errors to HTTP statuses in one place
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
		message = "no product found"
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
		message = "session not found"
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUpstreamFailure):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrAIUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		// client went away; the status is never seen
		status = 499
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func notConfigured(c *gin.Context, feature string) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": fmt.Sprintf("%s service not configured", feature),
	})
}

// imageUpload is the JSON alternative to a multipart image upload
type imageUpload struct {
	ImageBase64 string `json:"image_base64"`
	MediaType   string `json:"media_type"`
}

// readImage reads the "image" part of a multipart form, capped at maxUpload bytes
func (h *Handler) readImage(c *gin.Context) (domain.Image, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidRequest, h.maxUpload)
		}
		return domain.Image{}, fmt.Errorf("%w: image file is required", domain.ErrInvalidRequest)
	}
	if header.Size > h.maxUpload {
		return domain.Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidRequest, h.maxUpload)
	}

	f, err := header.Open()
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return domain.Image{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return h.toImage(data, header.Header.Get("Content-Type"))
}

// decodeImage turns a base64 upload, with or without a data: URL prefix, into an image
func (h *Handler) decodeImage(u imageUpload) (domain.Image, error) {
	raw := strings.TrimSpace(u.ImageBase64)
	mediaType := u.MediaType
	if strings.HasPrefix(raw, "data:") {
		if comma := strings.Index(raw, ","); comma > 0 {
			if mediaType == "" {
				mediaType = strings.TrimSuffix(strings.TrimPrefix(raw[:comma], "data:"), ";base64")
			}
			raw = raw[comma+1:]
		}
	}
	if raw == "" {
		return domain.Image{}, fmt.Errorf("%w: image is required", domain.ErrInvalidRequest)
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: image is not valid base64", domain.ErrInvalidRequest)
	}
	return h.toImage(data, mediaType)
}

func (h *Handler) toImage(data []byte, declared string) (domain.Image, error) {
	if len(data) == 0 {
		return domain.Image{}, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}
	if int64(len(data)) > h.maxUpload {
		return domain.Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidRequest, h.maxUpload)
	}

	mediaType := http.DetectContentType(data)
	if !supportedImageTypes[mediaType] {
		mediaType = strings.ToLower(strings.TrimSpace(declared))
	}
	if !supportedImageTypes[mediaType] {
		return domain.Image{}, fmt.Errorf("%w: unsupported image type, use JPEG, PNG, GIF or WebP", domain.ErrInvalidRequest)
	}
	return domain.Image{MediaType: mediaType, Data: data}, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}
