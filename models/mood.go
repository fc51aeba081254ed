package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// MoodLevel 五级情绪
type MoodLevel string

const (
	MoodVerySad   MoodLevel = "very_sad"
	MoodSad       MoodLevel = "sad"
	MoodNeutral   MoodLevel = "neutral"
	MoodHappy     MoodLevel = "happy"
	MoodVeryHappy MoodLevel = "very_happy"
)

// MoodLevels 按分值升序排列
var MoodLevels = []MoodLevel{MoodVerySad, MoodSad, MoodNeutral, MoodHappy, MoodVeryHappy}

// ParseMoodLevel 校验并转换情绪值
func ParseMoodLevel(s string) (MoodLevel, error) {
	for _, m := range MoodLevels {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid mood value %q", s)
}

// Valid 是否为合法情绪
func (m MoodLevel) Valid() bool {
	_, err := ParseMoodLevel(string(m))
	return err == nil
}

// Score 情绪分值 1-5，未知情绪按 neutral 计
func (m MoodLevel) Score() int {
	switch m {
	case MoodVerySad:
		return 1
	case MoodSad:
		return 2
	case MoodHappy:
		return 4
	case MoodVeryHappy:
		return 5
	default:
		return 3
	}
}

// JourneyPercentage 情绪旅程图上的百分比
func (m MoodLevel) JourneyPercentage() int {
	switch m {
	case MoodVerySad:
		return 10
	case MoodSad:
		return 30
	case MoodHappy:
		return 80
	case MoodVeryHappy:
		return 95
	default:
		return 60
	}
}

// Describe 用于提示词的情绪描述
func (m MoodLevel) Describe() string {
	switch m {
	case MoodVerySad:
		return "extremely low and sad"
	case MoodSad:
		return "low and sad"
	case MoodHappy:
		return "good and happy"
	case MoodVeryHappy:
		return "excellent and very happy"
	default:
		return "neutral"
	}
}

// Sentiment 三态情感倾向
type Sentiment string

const (
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
)

// ParseSentiment 非法值一律视为 neutral
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentNegative, SentimentPositive:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

// MoodFactor 情绪影响因素
type MoodFactor string

var moodFactors = map[string]bool{
	"work": true, "relationships": true, "health": true, "sleep": true,
	"exercise": true, "weather": true, "social": true, "other": true,
}

// ValidateFactors 校验影响因素
func ValidateFactors(factors []string) error {
	for _, f := range factors {
		if !moodFactors[f] {
			return fmt.Errorf("invalid factor %q", f)
		}
	}
	return nil
}

// MoodEntry 每日情绪打卡，(UserID, Day) 唯一
type MoodEntry struct {
	ID            string                      `gorm:"type:varchar(50);primaryKey" json:"id"`
	UserID        string                      `gorm:"type:varchar(100);not null;uniqueIndex:uidx_mood_user_day" json:"userId"`
	Day           string                      `gorm:"type:varchar(10);not null;uniqueIndex:uidx_mood_user_day" json:"day"`
	Mood          MoodLevel                   `gorm:"type:varchar(20);not null" json:"mood"`
	Score         int                         `gorm:"not null" json:"moodScore"`
	Notes         string                      `gorm:"type:varchar(500)" json:"notes"`
	Factors       datatypes.JSONSlice[string] `json:"factors"`
	ChatReference *string                     `gorm:"type:varchar(50)" json:"chatReference"`
	Date          time.Time                   `gorm:"index" json:"date"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// SetMood 分值始终由情绪推导
func (e *MoodEntry) SetMood(m MoodLevel) {
	e.Mood = m
	e.Score = m.Score()
}

// Clone 深拷贝
func (e *MoodEntry) Clone() *MoodEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Factors = cloneStrings(e.Factors)
	if e.ChatReference != nil {
		ref := *e.ChatReference
		c.ChatReference = &ref
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
