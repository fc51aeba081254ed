package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"MindMateGo/config"
	"MindMateGo/middleware"
	"MindMateGo/services"
)

func respond(c *gin.Context, status int, data any, message string) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// handleError 按错误类型映射状态码，未知错误只返回通用提示
func handleError(c *gin.Context, err error, notFound, failure string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, "Forbidden")
	default:
		_ = c.Error(err)
		config.Logger.Errorw(failure,
			"path", c.FullPath(),
			"uid", currentUserID(c),
			"requestID", c.GetString("requestID"),
			"error", err,
		)
		fail(c, http.StatusInternalServerError, failure)
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// queryDays 解析 ?days=，非法值按默认处理
func queryDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil {
		return 0
	}
	return days
}
