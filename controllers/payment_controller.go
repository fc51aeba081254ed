package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"MindMateGo/config"
	"MindMateGo/middleware"
	"MindMateGo/services"
)

// SignatureHeader 支付回调签名头
const SignatureHeader = "X-Webhook-Signature"

// 回调请求体上限
const maxWebhookBody = 1 << 20

type PaymentController struct {
	subscriptions *services.SubscriptionService
}

func NewPaymentController(subscriptions *services.SubscriptionService) *PaymentController {
	return &PaymentController{subscriptions: subscriptions}
}

// Webhook 校验失败返回纯文本，与支付方约定一致
func (pc *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	processed, err := pc.subscriptions.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if err != nil {
		if errors.Is(err, services.ErrSignature) || errors.Is(err, services.ErrValidation) {
			config.Logger.Warnw("支付回调校验失败", "error", err)
			c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
			return
		}
		config.Logger.Errorw("支付回调处理失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook handling failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": !processed})
}

// Status 当前用户的会员状态
func (pc *PaymentController) Status(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	respond(c, http.StatusOK, pc.subscriptions.Status(user), "")
}
