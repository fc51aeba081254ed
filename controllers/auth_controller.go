package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"MindMateGo/middleware"
	"MindMateGo/models"
	"MindMateGo/services"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Me 当前用户信息
func (ac *AuthController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	respond(c, http.StatusOK, user.ToResponse(time.Now()), "")
}

// UpdatePreferences 更新通知、提醒时间和时区
func (ac *AuthController) UpdatePreferences(c *gin.Context) {
	var req models.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid preferences payload")
		return
	}

	user, err := ac.users.UpdatePreferences(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		handleError(c, err, "User not found", "Failed to update preferences")
		return
	}
	respond(c, http.StatusOK, user.ToResponse(time.Now()), "Preferences updated successfully")
}

// Logout 令牌由身份提供方管理，这里只做确认
func (ac *AuthController) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}
