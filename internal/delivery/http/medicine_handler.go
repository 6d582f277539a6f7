package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labelpadega/backend/internal/domain"
)

type medicineAnalyzeRequest struct {
	Text      string                 `json:"text"`
	Type      string                 `json:"type"`
	Language  string                 `json:"language"`
	Profile   domain.MedicineProfile `json:"profile"`
	SessionID string                 `json:"session_id"`
	imageUpload
}

// ExtractMedicineText handles POST /medicines/extract with a multipart "image"
// or a JSON body carrying image_base64
func (h *Handler) ExtractMedicineText(c *gin.Context) {
	if h.medicines == nil {
		notConfigured(c, "medicine")
		return
	}

	var img domain.Image
	var err error
	if isMultipart(c) {
		img, err = h.readImage(c)
	} else {
		var upload imageUpload
		if bindErr := c.ShouldBindJSON(&upload); bindErr != nil {
			badRequest(c, "image is required")
			return
		}
		img, err = h.decodeImage(upload)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.medicines.ExtractText(c.Request.Context(), img)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeMedicine handles POST /medicines/analyze. Text is analyzed directly; an
// image (multipart "image" or image_base64) is read first and its text analyzed.
// A session_id fills a missing profile and receives the scan.
func (h *Handler) AnalyzeMedicine(c *gin.Context) {
	if h.medicines == nil {
		notConfigured(c, "medicine")
		return
	}

	var req medicineAnalyzeRequest
	var img *domain.Image

	if isMultipart(c) {
		image, err := h.readImage(c)
		if err != nil {
			h.respondError(c, err)
			return
		}
		img = &image
		req.Type = c.PostForm("type")
		req.Language = c.PostForm("language")
		req.SessionID = c.PostForm("session_id")
		if raw := c.PostForm("profile"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Profile); err != nil {
				badRequest(c, "profile must be a JSON object")
				return
			}
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid medicine request")
			return
		}
		if strings.TrimSpace(req.Text) == "" && req.ImageBase64 != "" {
			image, err := h.decodeImage(req.imageUpload)
			if err != nil {
				h.respondError(c, err)
				return
			}
			img = &image
		}
	}

	ctx := c.Request.Context()
	if req.SessionID != "" && h.chat != nil {
		sess, err := h.chat.GetSession(ctx, req.SessionID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if isZeroProfile(req.Profile) {
			req.Profile = sess.Profile.Medicine
		}
		if req.Language == "" {
			req.Language = sess.Profile.Language
		}
	}

	analyzeReq := domain.MedicineRequest{
		Text:     req.Text,
		Type:     req.Type,
		Language: req.Language,
		Profile:  req.Profile,
	}

	var analysis *domain.MedicineAnalysis
	var extraction *domain.MedicineExtraction
	var err error
	if img != nil {
		analysis, extraction, err = h.medicines.AnalyzeImage(ctx, *img, analyzeReq)
	} else {
		analysis, err = h.medicines.Analyze(ctx, analyzeReq)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if analysis == nil {
		// the image could not be read; the extraction says why
		c.JSON(http.StatusOK, gin.H{"success": false, "extraction": extraction})
		return
	}

	if req.SessionID != "" && h.chat != nil && analysis.Success {
		if err := h.chat.RecordScan(ctx, req.SessionID, *analysis); err != nil {
			h.logger.Warn("failed to record medicine scan", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    analysis.Success,
		"analysis":   analysis,
		"extraction": extraction,
	})
}

func isZeroProfile(p domain.MedicineProfile) bool {
	return p.Age == 0 && !p.Pregnant &&
		len(p.Conditions) == 0 && len(p.Allergies) == 0 && len(p.CurrentMedications) == 0
}
