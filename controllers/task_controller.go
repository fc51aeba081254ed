package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"MindMateGo/models"
	"MindMateGo/services"
)

type TaskController struct {
	tasks     *services.TaskService
	analytics *services.AnalyticsService
}

func NewTaskController(tasks *services.TaskService, analytics *services.AnalyticsService) *TaskController {
	return &TaskController{tasks: tasks, analytics: analytics}
}

// Daily 获取或生成今天的任务
func (tc *TaskController) Daily(c *gin.Context) {
	task, created, err := tc.tasks.Daily(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err, "Task not found", "Failed to generate daily task")
		return
	}
	if created {
		respond(c, http.StatusCreated, task, "Daily task generated successfully")
		return
	}
	respond(c, http.StatusOK, task, "Today's task already exists")
}

// ByDate 某天的任务，没有时 data 为 null
func (tc *TaskController) ByDate(c *gin.Context) {
	task, err := tc.tasks.ForDate(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err, "Task not found", "Failed to fetch task")
		return
	}
	respond(c, http.StatusOK, task, "")
}

func (tc *TaskController) UpdateStep(c *gin.Context) {
	var req models.StepUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, `"completed" must be a boolean`)
		return
	}

	task, err := tc.tasks.UpdateStep(c.Request.Context(), currentUserID(c), c.Param("stepId"), *req.Completed)
	if err != nil {
		handleError(c, err, "Task or step not found", "Failed to update step")
		return
	}
	respond(c, http.StatusOK, task, "Step updated successfully")
}

func (tc *TaskController) Complete(c *gin.Context) {
	task, err := tc.tasks.Complete(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err, "Task not found", "Failed to complete task")
		return
	}
	respond(c, http.StatusOK, task, "Task completed successfully")
}

func (tc *TaskController) Calendar(c *gin.Context) {
	year, yerr := strconv.Atoi(c.Param("year"))
	month, merr := strconv.Atoi(c.Param("month"))
	if yerr != nil || merr != nil {
		fail(c, http.StatusBadRequest, "invalid year or month")
		return
	}

	calendar, err := tc.analytics.TaskCalendar(c.Request.Context(), currentUserID(c), year, month)
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch calendar data")
		return
	}
	respond(c, http.StatusOK, calendar, "")
}

func (tc *TaskController) Stats(c *gin.Context) {
	stats, err := tc.analytics.TaskStats(c.Request.Context(), currentUserID(c), queryDays(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch task statistics")
		return
	}
	respond(c, http.StatusOK, stats, "")
}
