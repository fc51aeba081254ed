package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	started time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{started: time.Now()}
}

func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(hc.started).Seconds(),
	})
}

// NotFound 未匹配的路由
func NotFound(c *gin.Context) {
	fail(c, http.StatusNotFound, "Route not found")
}
