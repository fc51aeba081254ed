package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/store"
)

// ErrSignature 回调签名校验失败
var ErrSignature = errors.New("invalid webhook signature")

// SubscriptionService 处理支付回调和会员状态
type SubscriptionService struct {
	users  store.UserStore
	events store.SubscriptionStore
	secret []byte
	locker SessionLocker
	now    func() time.Time
}

func NewSubscriptionService(users store.UserStore, events store.SubscriptionStore, secret string, locker SessionLocker) *SubscriptionService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &SubscriptionService{
		users:  users,
		events: events,
		secret: []byte(secret),
		locker: locker,
		now:    time.Now,
	}
}

// Sign 计算回调签名（十六进制 HMAC-SHA256）
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SubscriptionService) verify(payload []byte, signature string) error {
	if len(s.secret) == 0 {
		return fmt.Errorf("%w: webhook secret not configured", ErrSignature)
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return fmt.Errorf("%w: missing signature", ErrSignature)
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrSignature)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("%w: signature mismatch", ErrSignature)
	}
	return nil
}

// HandleWebhook 校验签名并处理事件，同一事件ID只处理一次；返回事件是否被本次处理
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	if err := s.verify(payload, signature); err != nil {
		return false, err
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if event.ID == "" || event.Type == "" {
		return false, fmt.Errorf("%w: event id and type are required", ErrSignature)
	}

	now := s.now()
	record := &models.SubscriptionEvent{
		ID:          event.ID,
		Type:        event.Type,
		UserID:      event.Data.UserID,
		Plan:        event.Data.Plan,
		ProcessedAt: now,
	}
	fresh, err := s.events.RecordEvent(ctx, record)
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	if !fresh {
		config.Logger.Infow("重复的支付回调，已忽略", "eventId", event.ID, "type", event.Type)
		return false, nil
	}

	if err := s.apply(ctx, event, now); err != nil {
		if derr := s.events.DeleteEvent(ctx, event.ID); derr != nil {
			config.Logger.Errorw("撤销回调记录失败", "eventId", event.ID, "error", derr)
		}
		return false, err
	}
	return true, nil
}

func (s *SubscriptionService) apply(ctx context.Context, event models.WebhookEvent, now time.Time) error {
	switch event.Type {
	case models.EventSubscriptionActivated, models.EventSubscriptionCanceled:
	default:
		config.Logger.Infow("未处理的回调类型", "eventId", event.ID, "type", event.Type)
		return nil
	}

	userID := event.Data.UserID
	if userID == "" {
		return invalid("event is missing userId")
	}

	unlock, err := s.locker.Lock(ctx, LockKey(userID, "premium"))
	if err != nil {
		return fmt.Errorf("lock premium: %w", err)
	}
	defer unlock()

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		user = models.NewUser(userID, "", "", now)
	} else if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	switch event.Type {
	case models.EventSubscriptionActivated:
		plan := event.Data.Plan
		if !models.ValidPlan(plan) {
			return invalid(fmt.Sprintf("invalid plan %q", plan))
		}
		expires := event.Data.ExpiresAt
		if expires == nil {
			t := now.AddDate(0, 1, 0)
			if plan == "yearly" {
				t = now.AddDate(1, 0, 0)
			}
			expires = &t
		}
		user.IsPremium = true
		user.PremiumPlan = plan
		user.PremiumExpiresAt = expires
	case models.EventSubscriptionCanceled:
		user.IsPremium = false
		user.PremiumPlan = ""
		user.PremiumExpiresAt = nil
	}
	user.UpdatedAt = now

	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	config.Logger.Infow("会员状态已更新",
		"userId", userID,
		"type", event.Type,
		"isPremium", user.IsPremium,
	)
	return nil
}

// Status 会员状态：inactive、active 或 expired
func (s *SubscriptionService) Status(user *models.User) models.PaymentStatusResponse {
	resp := models.PaymentStatusResponse{Status: "inactive", Plan: user.PremiumPlan}
	active := user.HasActivePremium(s.now())
	if user.IsPremium {
		resp.Status = "active"
		resp.NextBillingDate = user.PremiumExpiresAt
		if !active {
			resp.Status = "expired"
		}
	}
	resp.IsPremium = active
	resp.Features = models.PaymentFeatures{
		AIChat:            active,
		AdvancedAnalytics: active,
		CustomTasks:       active,
		ExportData:        active,
	}
	return resp
}
