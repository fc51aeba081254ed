package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"MindMateGo/models"
	"MindMateGo/services"
)

type ChatController struct {
	chats     *services.ChatService
	analytics *services.AnalyticsService
}

func NewChatController(chats *services.ChatService, analytics *services.AnalyticsService) *ChatController {
	return &ChatController{chats: chats, analytics: analytics}
}

// SendMessage 发送消息，满足条件时在会话内生成任务
func (cc *ChatController) SendMessage(c *gin.Context) {
	var req models.ChatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := cc.chats.SendMessage(c.Request.Context(), currentUserID(c), req.SessionID, req.Message)
	if err != nil {
		handleError(c, err, "Chat session not found", "Failed to process chat message")
		return
	}
	respond(c, http.StatusOK, resp, "")
}

// History 最近的会话
func (cc *ChatController) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	chats, err := cc.chats.History(c.Request.Context(), currentUserID(c), c.Query("sessionId"), limit)
	if err != nil {
		handleError(c, err, "Chat session not found", "Failed to fetch chat history")
		return
	}
	respond(c, http.StatusOK, chats, "")
}

func (cc *ChatController) Session(c *gin.Context) {
	chat, err := cc.chats.Session(c.Request.Context(), currentUserID(c), c.Param("sessionId"))
	if err != nil {
		handleError(c, err, "Chat session not found", "Failed to fetch chat session")
		return
	}
	respond(c, http.StatusOK, chat, "")
}

func (cc *ChatController) DeleteSession(c *gin.Context) {
	if err := cc.chats.DeleteSession(c.Request.Context(), currentUserID(c), c.Param("sessionId")); err != nil {
		handleError(c, err, "Chat session not found", "Failed to delete chat session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat session deleted successfully"})
}

// Analytics 最近 N 天的聊天统计
func (cc *ChatController) Analytics(c *gin.Context) {
	resp, err := cc.analytics.ChatAnalytics(c.Request.Context(), currentUserID(c), queryDays(c))
	if err != nil {
		handleError(c, err, "Not found", "Failed to fetch chat analytics")
		return
	}
	respond(c, http.StatusOK, resp, "")
}
