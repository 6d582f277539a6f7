package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/usecase"
)

// LookupBarcode handles GET /products/barcode/:barcode. A session_id query
// parameter makes the product the subject of that session's product chat.
func (h *Handler) LookupBarcode(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "product")
		return
	}

	lookup, err := h.products.LookupBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if id := c.Query("session_id"); id != "" && h.chat != nil {
		if err := h.chat.RecordProduct(c.Request.Context(), id, lookup.Product); err != nil {
			h.logger.Warn("failed to record product in session", zap.String("session_id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, lookup)
}

// SearchProducts handles GET /products/search?q=&brand=
func (h *Handler) SearchProducts(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "product")
		return
	}

	var req domain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "query parameter q is required")
		return
	}

	matches, err := h.products.SearchProducts(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    req.ProductName,
		"count":    len(matches),
		"products": matches,
	})
}

// SearchNutrition handles GET /nutrition/search?q=&brand= and POST /nutrition/search.
// A low-confidence match is still returned with low_confidence set.
func (h *Handler) SearchNutrition(c *gin.Context) {
	if h.nutrition == nil {
		notConfigured(c, "nutrition")
		return
	}

	var req domain.SearchRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		badRequest(c, "productName is required")
		return
	}

	data, err := h.nutrition.SearchNutrition(c.Request.Context(), &req)
	switch {
	case errors.Is(err, domain.ErrLowConfidence) && data != nil:
		c.JSON(http.StatusOK, gin.H{"data": data, "low_confidence": true})
	case err != nil:
		h.respondError(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"data": data, "low_confidence": false})
	}
}

// ProductReport handles POST /products/report
func (h *Handler) ProductReport(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "product")
		return
	}

	var req usecase.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid report request")
		return
	}

	report, err := h.products.Report(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type regulationCheckRequest struct {
	ProductName string `json:"product_name"`
	BrandName   string `json:"brand_name"`
	Ingredients string `json:"ingredients"`
}

// CheckRegulations handles POST /regulations/check
func (h *Handler) CheckRegulations(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "product")
		return
	}

	var req regulationCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid regulation check request")
		return
	}
	if strings.TrimSpace(req.ProductName) == "" && strings.TrimSpace(req.Ingredients) == "" {
		badRequest(c, "product_name or ingredients is required")
		return
	}

	report := h.products.CheckRegulations(domain.ProductRecord{
		ProductName: req.ProductName,
		BrandName:   req.BrandName,
		Details:     domain.ProductDetails{Ingredients: req.Ingredients},
	})
	c.JSON(http.StatusOK, gin.H{
		"has_concerns": report.HasConcerns(),
		"report":       report,
	})
}

type complianceRequest struct {
	Ingredients string `json:"ingredients" binding:"required"`
	Region      string `json:"region"`
}

// CheckCompliance handles POST /regulations/compliance
func (h *Handler) CheckCompliance(c *gin.Context) {
	if h.products == nil {
		notConfigured(c, "product")
		return
	}

	var req complianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ingredients is required")
		return
	}
	c.JSON(http.StatusOK, h.products.CheckCompliance(req.Ingredients, req.Region))
}
