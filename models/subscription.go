package models

import (
	"time"
)

const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCanceled  = "subscription.canceled"
)

var premiumPlans = map[string]bool{"monthly": true, "yearly": true}

// ValidPlan 会员方案是否合法
func ValidPlan(plan string) bool { return premiumPlans[plan] }

// SubscriptionEvent 已处理的支付回调事件，用于去重
type SubscriptionEvent struct {
	ID          string    `gorm:"type:varchar(100);primaryKey" json:"id"`
	Type        string    `gorm:"type:varchar(50)" json:"type"`
	UserID      string    `gorm:"type:varchar(100);index" json:"userId"`
	Plan        string    `gorm:"type:varchar(20)" json:"plan"`
	ProcessedAt time.Time `json:"processedAt"`
}
