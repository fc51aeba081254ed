package utils

import "time"

// DayLayout 自然日的字符串形式
const DayLayout = "2006-01-02"

// StartOfDay 返回 t 在 loc 时区下当天 00:00
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayKey 返回 t 在 loc 时区下的日期，如 2024-03-25
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay 按 loc 解析 YYYY-MM-DD
func ParseDay(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DayLayout, day, loc)
}

// StartOfWeek 返回 t 所在周的周一 00:00
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	// Sunday == 0
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// DaysBetween 两个日期之间相差的自然日数 (b - a)
func DaysBetween(a, b time.Time, loc *time.Location) int {
	da := StartOfDay(a, loc)
	db := StartOfDay(b, loc)
	// 按日历日期计算，避免夏令时导致的 23/25 小时
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// ShortWeekday 返回 Mon, Tue ... 形式的星期
func ShortWeekday(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Weekday().String()[:3]
}
