package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"MindMateGo/models"
	"MindMateGo/services"
)

type MoodController struct {
	moods     *services.MoodService
	analytics *services.AnalyticsService
}

func NewMoodController(moods *services.MoodService, analytics *services.AnalyticsService) *MoodController {
	return &MoodController{moods: moods, analytics: analytics}
}

// CheckIn 每日打卡，首次 201，更新 200
func (mc *MoodController) CheckIn(c *gin.Context) {
	var req models.MoodCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid mood value")
		return
	}

	entry, created, err := mc.moods.CheckIn(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		handleError(c, err, "Not found", "Failed to save mood")
		return
	}
	if created {
		respond(c, http.StatusCreated, entry, "Mood checked in successfully")
		return
	}
	respond(c, http.StatusOK, entry, "Mood updated successfully")
}

func (mc *MoodController) Today(c *gin.Context) {
	entry, err := mc.moods.Today(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch today's mood")
		return
	}
	respond(c, http.StatusOK, entry, "")
}

func (mc *MoodController) History(c *gin.Context) {
	entries, err := mc.moods.History(c.Request.Context(), currentUserID(c), queryDays(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch mood history")
		return
	}
	respond(c, http.StatusOK, entries, "")
}

func (mc *MoodController) Stats(c *gin.Context) {
	stats, err := mc.analytics.MoodStats(c.Request.Context(), currentUserID(c), queryDays(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch mood statistics")
		return
	}
	respond(c, http.StatusOK, stats, "")
}

// Analytics 情绪仪表盘
func (mc *MoodController) Analytics(c *gin.Context) {
	resp, err := mc.analytics.MoodAnalytics(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch mood analytics")
		return
	}
	respond(c, http.StatusOK, resp, "")
}
