package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
)

// routeKinds maps the :kind path segment to an analysis kind
var routeKinds = map[string]string{
	"health":        domain.KindHealth,
	"environmental": domain.KindEnvironmental,
	"allergen":      domain.KindAllergen,
	"recipes":       domain.KindRecipes,
	"certification": "",
}

type analysisRequest struct {
	Product       domain.ProductRecord `json:"product"`
	Allergies     []string             `json:"allergies"`
	Certification string               `json:"certification"`
	SessionID     string               `json:"session_id"`
}

// Analyze handles POST /analysis/:kind. AI failures come back as 200 with success=false.
func (h *Handler) Analyze(c *gin.Context) {
	if h.analysis == nil {
		notConfigured(c, "analysis")
		return
	}

	kind, ok := routeKinds[c.Param("kind")]
	if !ok {
		badRequest(c, "analysis kind must be health, environmental, allergen, recipes or certification")
		return
	}

	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid analysis request")
		return
	}
	if kind == "" && strings.TrimSpace(req.Certification) == "" {
		badRequest(c, "certification name is required")
		return
	}
	if kind != "" {
		req.Certification = ""
	}

	result, err := h.analysis.Analyze(c.Request.Context(), domain.AnalysisRequest{
		Kind:          kind,
		Certification: req.Certification,
		Product:       req.Product,
		Allergies:     req.Allergies,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.SessionID != "" && h.chat != nil && result.Success {
		if err := h.chat.RecordAnalysis(c.Request.Context(), req.SessionID, *result); err != nil {
			h.logger.Warn("failed to record analysis in session", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeLabel handles POST /labels/analyze with a multipart "image" and an
// optional "profile" JSON field or "session_id" whose profile is used instead
func (h *Handler) AnalyzeLabel(c *gin.Context) {
	if h.labels == nil {
		notConfigured(c, "label")
		return
	}

	img, err := h.readImage(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var profile domain.UserProfile
	if raw := c.PostForm("profile"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			badRequest(c, "profile must be a JSON object")
			return
		}
	} else if id := c.PostForm("session_id"); id != "" && h.chat != nil {
		sess, err := h.chat.GetSession(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		profile = sess.Profile
	}

	result, err := h.labels.Analyze(c.Request.Context(), img, profile)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeFood handles POST /foods/analyze with a multipart "image" of a meal
func (h *Handler) AnalyzeFood(c *gin.Context) {
	if h.labels == nil {
		notConfigured(c, "label")
		return
	}

	img, err := h.readImage(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.labels.AnalyzeFoodImage(c.Request.Context(), img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
