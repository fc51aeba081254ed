package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MindMateGo/models"
	"MindMateGo/store"
)

const testWebhookSecret = "whsec_test"

func newSubscriptionFixture() (*SubscriptionService, *store.MemoryStore) {
	st := store.NewMemoryStore()
	svc := NewSubscriptionService(st, st, testWebhookSecret, NewMemoryLocker())
	svc.now = fixedClock(testNow)
	return svc, st
}

func signed(payload string) ([]byte, string) {
	body := []byte(payload)
	return body, Sign([]byte(testWebhookSecret), body)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _ := newSubscriptionFixture()
	body := []byte(`{"id":"evt_1","type":"subscription.activated","data":{"userId":"u1","plan":"monthly"}}`)

	_, err := svc.HandleWebhook(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, ErrSignature)

	_, err = svc.HandleWebhook(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrSignature)

	_, err = svc.HandleWebhook(context.Background(), body, "not-hex")
	assert.ErrorIs(t, err, ErrSignature)
}

func TestWebhookActivateAndReplay(t *testing.T) {
	ctx := context.Background()
	svc, st := newSubscriptionFixture()

	body, sig := signed(`{"id":"evt_1","type":"subscription.activated","data":{"userId":"u1","plan":"yearly"}}`)
	processed, err := svc.HandleWebhook(ctx, body, "sha256="+sig)
	require.NoError(t, err)
	assert.True(t, processed)

	user, err := st.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsPremium)
	assert.Equal(t, "yearly", user.PremiumPlan)
	require.NotNil(t, user.PremiumExpiresAt)
	assert.True(t, user.PremiumExpiresAt.Equal(testNow.AddDate(1, 0, 0)))

	// 取消之后重放激活事件不会恢复会员
	cancelBody, cancelSig := signed(`{"id":"evt_2","type":"subscription.canceled","data":{"userId":"u1"}}`)
	processed, err = svc.HandleWebhook(ctx, cancelBody, cancelSig)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	assert.False(t, processed)

	user, err = st.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.IsPremium)
	assert.Nil(t, user.PremiumExpiresAt)
}

func TestWebhookInvalidPlanCanBeRetried(t *testing.T) {
	ctx := context.Background()
	svc, st := newSubscriptionFixture()

	body, sig := signed(`{"id":"evt_1","type":"subscription.activated","data":{"userId":"u1","plan":"lifetime"}}`)
	_, err := svc.HandleWebhook(ctx, body, sig)
	require.ErrorIs(t, err, ErrValidation)

	// 失败的事件不会被记为已处理
	fresh, err := st.RecordEvent(ctx, &models.SubscriptionEvent{ID: "evt_1"})
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestWebhookIgnoresUnknownType(t *testing.T) {
	svc, st := newSubscriptionFixture()

	body, sig := signed(`{"id":"evt_9","type":"invoice.created","data":{"userId":"u1"}}`)
	processed, err := svc.HandleWebhook(context.Background(), body, sig)
	require.NoError(t, err)
	assert.True(t, processed)

	_, err = st.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPaymentStatus(t *testing.T) {
	svc, _ := newSubscriptionFixture()

	free := models.NewUser("u1", "", "", testNow)
	status := svc.Status(free)
	assert.Equal(t, "inactive", status.Status)
	assert.False(t, status.Features.AIChat)

	future := testNow.Add(48 * time.Hour)
	premium := models.NewUser("u2", "", "", testNow)
	premium.IsPremium = true
	premium.PremiumPlan = "monthly"
	premium.PremiumExpiresAt = &future
	status = svc.Status(premium)
	assert.Equal(t, "active", status.Status)
	assert.True(t, status.IsPremium)
	assert.True(t, status.Features.ExportData)
	assert.Equal(t, &future, status.NextBillingDate)

	past := testNow.Add(-time.Hour)
	premium.PremiumExpiresAt = &past
	status = svc.Status(premium)
	assert.Equal(t, "expired", status.Status)
	assert.False(t, status.IsPremium)
	assert.False(t, status.Features.AdvancedAnalytics)
}
