package models

import (
	"time"
)

// User 用户模型，ID 为身份提供方的 subject
type User struct {
	ID               string     `gorm:"type:varchar(100);primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(100)" json:"name"`
	Email            string     `gorm:"type:varchar(100);index" json:"email"`
	IsPremium        bool       `json:"isPremium"`
	PremiumPlan      string     `gorm:"type:varchar(20)" json:"premiumPlan"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt"`
	StreakCount      int        `json:"streakCount"`
	LastCheckIn      *time.Time `json:"lastCheckIn"`
	Timezone         string     `gorm:"type:varchar(50)" json:"timezone"`
	Notifications    bool       `json:"notifications"`
	ReminderTime     string     `gorm:"type:varchar(5)" json:"reminderTime"` // HH:MM
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// NewUser 按默认偏好创建用户
func NewUser(id, name, email string, now time.Time) *User {
	return &User{
		ID:            id,
		Name:          name,
		Email:         email,
		Timezone:      "UTC",
		Notifications: true,
		ReminderTime:  "09:00",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (u *User) GetDisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// HasActivePremium 会员是否有效，未设置到期时间视为长期有效
func (u *User) HasActivePremium(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || u.PremiumExpiresAt.After(now)
}

// UpdateStreak 根据打卡日期更新连续天数
func (u *User) UpdateStreak(now time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	today := dayStart(now, loc)
	if u.LastCheckIn != nil {
		last := dayStart(*u.LastCheckIn, loc)
		switch diff := calendarDays(last, today); {
		case diff == 0:
			return
		case diff == 1:
			u.StreakCount++
		default:
			u.StreakCount = 1
		}
	} else {
		u.StreakCount = 1
	}
	ts := now
	u.LastCheckIn = &ts
}

// Clone 深拷贝
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.PremiumExpiresAt != nil {
		t := *u.PremiumExpiresAt
		c.PremiumExpiresAt = &t
	}
	if u.LastCheckIn != nil {
		t := *u.LastCheckIn
		c.LastCheckIn = &t
	}
	return &c
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

func calendarDays(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
