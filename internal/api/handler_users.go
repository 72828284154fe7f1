package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aerium-backend/internal/auth"
)

type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// GetProfile returns the caller's profile.
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentUser(c))
}

// UpdateProfile applies partial updates to the caller's profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := h.currentUser(c)
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword verifies the current password and stores a new hash.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := h.currentUser(c)
	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is wrong"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.serverError(c, err)
		return
	}
	user.PasswordHash = hash

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// ListUsers returns every user account. Admin only.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
