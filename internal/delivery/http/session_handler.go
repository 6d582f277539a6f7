package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/usecase"
)

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	sess, err := h.chat.CreateSession(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetSession handles GET /sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	sess, err := h.chat.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	if err := h.chat.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateProfile handles PUT /sessions/:id/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	var profile domain.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, "profile must be a JSON object")
		return
	}

	sess, err := h.chat.UpdateProfile(c.Request.Context(), c.Param("id"), profile)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Chat handles POST /sessions/:id/chat
func (h *Handler) Chat(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	var req usecase.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "message is required")
		return
	}

	reply, err := h.chat.Send(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ClearHistory handles DELETE /sessions/:id/history
func (h *Handler) ClearHistory(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	sess, err := h.chat.ClearHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ExportSession handles GET /sessions/:id/export as a JSON download
func (h *Handler) ExportSession(c *gin.Context) {
	if h.chat == nil {
		notConfigured(c, "chat")
		return
	}

	export, err := h.chat.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("labelpadega-session-%s.json", export.Session.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, export)
}
