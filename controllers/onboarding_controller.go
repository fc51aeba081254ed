package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"MindMateGo/models"
	"MindMateGo/services"
)

type OnboardingController struct {
	onboarding *services.OnboardingService
}

func NewOnboardingController(onboarding *services.OnboardingService) *OnboardingController {
	return &OnboardingController{onboarding: onboarding}
}

// SaveStep 保存一道引导问题的回答
func (oc *OnboardingController) SaveStep(c *gin.Context) {
	var req models.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, `Invalid payload. "question" and "response" are required.`)
		return
	}

	_, created, err := oc.onboarding.SaveStep(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		handleError(c, err, "Not found", "Internal server error.")
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Onboarding response saved."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Onboarding response updated."})
}
