package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/services"
	"MindMateGo/utils"
)

const (
	// ContextUserID gin.Context 中的用户ID
	ContextUserID = "uid"
	// ContextUser gin.Context 中的 *models.User
	ContextUser = "user"
)

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// AuthMiddleware 校验令牌，首次访问时同步用户
func AuthMiddleware(verifier *utils.TokenVerifier, users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "No token provided, authorization denied")
			return
		}

		claims, err := verifier.ParseToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Token is not valid")
			return
		}

		user, err := users.Ensure(c.Request.Context(), services.Identity{
			Subject: claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
		})
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				abort(c, http.StatusUnauthorized, "Token is not valid")
				return
			}
			config.Logger.Errorw("同步用户失败", "uid", claims.Subject, "error", err)
			abort(c, http.StatusInternalServerError, "Failed to load user")
			return
		}

		// 将 uid 存储在 gin.Context 中
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// PremiumMiddleware 需要有效会员
func PremiumMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !user.HasActivePremium(time.Now()) {
			abort(c, http.StatusForbidden, "Premium subscription required")
			return
		}
		c.Next()
	}
}

// CurrentUser 取出认证中间件写入的用户
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
