package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/store"
	"MindMateGo/utils"
)

// DefaultInsights 没有情绪数据或生成失败时的洞察
var DefaultInsights = []string{
	"Start tracking your mood to get personalized insights",
	"Regular check-ins help identify patterns in your emotional well-being",
	"Consider setting up a daily mood tracking routine",
}

// AnalyticsService 只读的统计服务
type AnalyticsService struct {
	chats store.ChatStore
	tasks store.TaskStore
	moods store.MoodStore
	ai    *AIService
	cache InsightsCache
	loc   *time.Location
	now   func() time.Time
}

func NewAnalyticsService(chats store.ChatStore, tasks store.TaskStore, moods store.MoodStore, ai *AIService, cache InsightsCache, loc *time.Location) *AnalyticsService {
	if cache == nil {
		cache = NoopInsightsCache{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{
		chats: chats,
		tasks: tasks,
		moods: moods,
		ai:    ai,
		cache: cache,
		loc:   loc,
		now:   time.Now,
	}
}

// roundHalfUp 与前端一致的四舍五入，-2.5 取 -2
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func (s *AnalyticsService) weekBounds() (current, next, previous time.Time) {
	current = utils.StartOfWeek(s.now(), s.loc)
	return current, current.AddDate(0, 0, 7), current.AddDate(0, 0, -7)
}

func (s *AnalyticsService) moodChats(ctx context.Context, userID string, since, until time.Time) ([]*models.Chat, error) {
	return s.chats.ListChats(ctx, store.ChatQuery{
		UserID:   userID,
		Since:    since,
		Until:    until,
		MoodOnly: true,
		Order:    store.OldestFirst,
	})
}

// CurrentStreak 从最近一天起连续有记录的天数
func CurrentStreak(times []time.Time, loc *time.Location) int {
	days := distinctDays(times, loc)
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 1
	for i := 1; i < len(days); i++ {
		if utils.DaysBetween(days[i], days[i-1], loc) != 1 {
			break
		}
		streak++
	}
	return streak
}

func distinctDays(times []time.Time, loc *time.Location) []time.Time {
	seen := make(map[string]bool, len(times))
	var days []time.Time
	for _, t := range times {
		key := utils.DayKey(t, loc)
		if seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, utils.StartOfDay(t, loc))
	}
	return days
}

// TaskStreak 当前连续活跃天数
func (s *AnalyticsService) TaskStreak(ctx context.Context, userID string) (int, error) {
	chats, err := s.chats.ListChats(ctx, store.ChatQuery{UserID: userID, Order: store.NewestFirst})
	if err != nil {
		return 0, err
	}
	times := make([]time.Time, 0, len(chats))
	for _, c := range chats {
		times = append(times, c.CreatedAt)
	}
	return CurrentStreak(times, s.loc), nil
}

// ActivityCount 会话总数
func (s *AnalyticsService) ActivityCount(ctx context.Context, userID string) (int64, error) {
	return s.chats.CountChats(ctx, userID)
}

// WeeklyGoal 本周有会话的天数
func (s *AnalyticsService) WeeklyGoal(ctx context.Context, userID string) (int, error) {
	monday, _, _ := s.weekBounds()
	chats, err := s.chats.ListChats(ctx, store.ChatQuery{UserID: userID, Since: monday})
	if err != nil {
		return 0, err
	}
	times := make([]time.Time, 0, len(chats))
	for _, c := range chats {
		times = append(times, c.CreatedAt)
	}
	return len(distinctDays(times, s.loc)), nil
}

// MoodJourney 本周每天首次检测到的情绪
func (s *AnalyticsService) MoodJourney(ctx context.Context, userID string) ([]models.JourneyDay, error) {
	monday, next, _ := s.weekBounds()
	chats, err := s.moodChats(ctx, userID, monday, next)
	if err != nil {
		return nil, err
	}
	return buildJourney(chats, monday, s.loc), nil
}

func buildJourney(chats []*models.Chat, monday time.Time, loc *time.Location) []models.JourneyDay {
	journey := make([]models.JourneyDay, 7)
	set := make([]bool, 7)
	for i := range journey {
		journey[i] = models.JourneyDay{
			Day:        utils.ShortWeekday(monday.AddDate(0, 0, i), loc),
			Mood:       models.MoodNeutral,
			Percentage: models.MoodNeutral.JourneyPercentage(),
		}
	}
	for _, c := range chats {
		if c.MoodDetected == nil {
			continue
		}
		idx := utils.DaysBetween(monday, c.CreatedAt, loc)
		if idx < 0 || idx > 6 || set[idx] {
			continue
		}
		set[idx] = true
		journey[idx].Mood = *c.MoodDetected
		journey[idx].Percentage = c.MoodDetected.JourneyPercentage()
	}
	return journey
}

// CommonMood 本周出现最多的情绪，并列时取最早出现的
func (s *AnalyticsService) CommonMood(ctx context.Context, userID string) (models.CommonMood, error) {
	monday, next, _ := s.weekBounds()
	chats, err := s.moodChats(ctx, userID, monday, next)
	if err != nil {
		return models.CommonMood{}, err
	}
	return commonMood(chats), nil
}

func commonMood(chats []*models.Chat) models.CommonMood {
	counts := make(map[models.MoodLevel]int)
	var order []models.MoodLevel
	total := 0
	for _, c := range chats {
		if c.MoodDetected == nil {
			continue
		}
		m := *c.MoodDetected
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
		total++
	}
	if total == 0 {
		return models.CommonMood{Mood: models.MoodNeutral, Percentage: 0}
	}

	best := order[0]
	for _, m := range order[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return models.CommonMood{
		Mood:       best,
		Percentage: roundHalfUp(float64(counts[best]) / float64(total) * 100),
	}
}

// WeeklyScore 情绪均值映射到 0-100，无数据为 0
func WeeklyScore(chats []*models.Chat) int {
	sum, n := 0, 0
	for _, c := range chats {
		if c.MoodDetected == nil {
			continue
		}
		sum += c.MoodDetected.Score()
		n++
	}
	if n == 0 {
		return 0
	}
	return roundHalfUp(float64(sum) / float64(n) * 20)
}

// StabilityLabel 稳定度分档
func StabilityLabel(score int) string {
	switch {
	case score <= 40:
		return "Low emotional balance"
	case score <= 70:
		return "Needs attention"
	case score <= 90:
		return "Good emotional balance"
	default:
		return "Excellent balance"
	}
}

func stability(current, previous int) models.StabilityScore {
	change := 0
	if previous > 0 {
		change = roundHalfUp(float64(current-previous) / float64(previous) * 100)
	}
	return models.StabilityScore{
		StabilityScore:     current,
		ChangeFromLastWeek: change,
		IsImproved:         current > previous,
		Message:            StabilityLabel(current),
	}
}

// StabilityScore 本周与上周的情绪稳定度
func (s *AnalyticsService) StabilityScore(ctx context.Context, userID string) (models.StabilityScore, error) {
	monday, next, prevMonday := s.weekBounds()
	current, err := s.moodChats(ctx, userID, monday, next)
	if err != nil {
		return models.StabilityScore{}, err
	}
	previous, err := s.moodChats(ctx, userID, prevMonday, monday)
	if err != nil {
		return models.StabilityScore{}, err
	}
	return stability(WeeklyScore(current), WeeklyScore(previous)), nil
}

func (s *AnalyticsService) dayMoods(chats []*models.Chat) []DayMood {
	out := make([]DayMood, 0, len(chats))
	for _, c := range chats {
		if c.MoodDetected == nil {
			continue
		}
		out = append(out, DayMood{Day: utils.ShortWeekday(c.CreatedAt, s.loc), Mood: *c.MoodDetected})
	}
	return out
}

func insightsKey(userID string, monday time.Time, current, previous []DayMood) string {
	h := fnv.New64a()
	for _, m := range current {
		fmt.Fprintf(h, "c%s=%s;", m.Day, m.Mood)
	}
	for _, m := range previous {
		fmt.Fprintf(h, "p%s=%s;", m.Day, m.Mood)
	}
	return fmt.Sprintf("%s:%s:%x", userID, monday.Format(utils.DayLayout), h.Sum64())
}

// WeeklyInsights 每周洞察，没有数据时不调用模型
func (s *AnalyticsService) WeeklyInsights(ctx context.Context, userID string) (models.WeeklyInsights, error) {
	monday, next, prevMonday := s.weekBounds()
	currentChats, err := s.moodChats(ctx, userID, monday, next)
	if err != nil {
		return models.WeeklyInsights{}, err
	}
	previousChats, err := s.moodChats(ctx, userID, prevMonday, monday)
	if err != nil {
		return models.WeeklyInsights{}, err
	}

	current, previous := s.dayMoods(currentChats), s.dayMoods(previousChats)
	if len(current) == 0 && len(previous) == 0 {
		return models.WeeklyInsights{Insights: append([]string{}, DefaultInsights...)}, nil
	}

	key := insightsKey(userID, monday, current, previous)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return models.WeeklyInsights{Insights: cached}, nil
	}

	insights, err := s.ai.WeeklyInsights(ctx, current, previous)
	if err != nil {
		config.Logger.Warnw("生成每周洞察失败，使用默认内容", "userId", userID, "error", err)
		return models.WeeklyInsights{Insights: append([]string{}, DefaultInsights...)}, nil
	}
	s.cache.Set(ctx, key, insights)
	return models.WeeklyInsights{Insights: insights}, nil
}

// TodaysTasks 今天及之后日期的任务
func (s *AnalyticsService) TodaysTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	tasks, err := s.tasks.ListTasks(ctx, store.TaskQuery{
		UserID: userID,
		Since:  utils.StartOfDay(s.now(), s.loc),
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// MoodAnalytics 仪表盘，各项统计并行查询
func (s *AnalyticsService) MoodAnalytics(ctx context.Context, userID string) (*models.MoodAnalyticsResponse, error) {
	var resp models.MoodAnalyticsResponse
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		resp.Progress.TaskStreak, err = s.TaskStreak(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.Progress.MoodCheckIns, err = s.ActivityCount(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.Progress.WeeklyGoal, err = s.WeeklyGoal(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.TodaysTask, err = s.TodaysTasks(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.MoodJourney, err = s.MoodJourney(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.CommonMood, err = s.CommonMood(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.StabilityScore, err = s.StabilityScore(gctx, userID)
		return
	})
	g.Go(func() (err error) {
		resp.WeeklyInsights, err = s.WeeklyInsights(gctx, userID)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("mood analytics: %w", err)
	}
	return &resp, nil
}

func normalizeDays(days int) int {
	if days <= 0 {
		return 30
	}
	if days > 365 {
		return 365
	}
	return days
}

// ChatAnalytics 最近 N 天的会话统计
func (s *AnalyticsService) ChatAnalytics(ctx context.Context, userID string, days int) (*models.ChatAnalyticsResponse, error) {
	since := s.now().AddDate(0, 0, -normalizeDays(days))
	chats, err := s.chats.ListChats(ctx, store.ChatQuery{UserID: userID, Since: since})
	if err != nil {
		return nil, err
	}

	resp := &models.ChatAnalyticsResponse{
		MoodDistribution:      map[string]int{},
		SentimentDistribution: map[string]int{},
		TopTopics:             []models.TopicCount{},
	}
	topics := map[string]int{}
	for _, c := range chats {
		resp.TotalSessions++
		resp.TotalMessages += len(c.Messages)
		if c.MoodDetected != nil {
			resp.MoodDistribution[string(*c.MoodDetected)]++
		}
		if c.Sentiment != "" {
			resp.SentimentDistribution[string(c.Sentiment)]++
		}
		for _, t := range c.Topics {
			if t != "" {
				topics[t]++
			}
		}
	}
	if resp.TotalSessions > 0 {
		resp.AverageMessagesPerSession = roundHalfUp(float64(resp.TotalMessages) / float64(resp.TotalSessions))
	}

	for t, n := range topics {
		resp.TopTopics = append(resp.TopTopics, models.TopicCount{Topic: t, Count: n})
	}
	sort.Slice(resp.TopTopics, func(i, j int) bool {
		a, b := resp.TopTopics[i], resp.TopTopics[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Topic < b.Topic
	})
	if len(resp.TopTopics) > 10 {
		resp.TopTopics = resp.TopTopics[:10]
	}
	return resp, nil
}

func averageScore(entries []*models.MoodEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.Score
	}
	return float64(sum) / float64(len(entries))
}

// MoodStats 打卡统计，趋势比较最近 7 条与之前 7 条
func (s *AnalyticsService) MoodStats(ctx context.Context, userID string, days int) (*models.MoodStatsResponse, error) {
	since := s.now().AddDate(0, 0, -normalizeDays(days))
	entries, err := s.moods.ListMoods(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	resp := &models.MoodStatsResponse{
		TotalEntries:     len(entries),
		MoodDistribution: map[string]int{},
		Trend:            "neutral",
	}
	if len(entries) == 0 {
		return resp, nil
	}
	for _, e := range entries {
		resp.MoodDistribution[string(e.Mood)]++
	}
	resp.AverageScore = math.Round(averageScore(entries)*100) / 100

	recent := entries[:min(7, len(entries))]
	var previous []*models.MoodEntry
	if len(entries) > 7 {
		previous = entries[7:min(14, len(entries))]
	}
	if len(previous) > 0 {
		r, p := averageScore(recent), averageScore(previous)
		switch {
		case r > p+0.3:
			resp.Trend = "improving"
		case r < p-0.3:
			resp.Trend = "declining"
		}
	}
	return resp, nil
}

// TaskStats 最近 N 天的任务完成情况
func (s *AnalyticsService) TaskStats(ctx context.Context, userID string, days int) (*models.TaskStatsResponse, error) {
	since := s.now().AddDate(0, 0, -normalizeDays(days))
	tasks, err := s.tasks.ListTasks(ctx, store.TaskQuery{UserID: userID, Since: since})
	if err != nil {
		return nil, err
	}

	resp := &models.TaskStatsResponse{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			resp.Completed++
		case models.TaskInProgress:
			resp.InProgress++
		default:
			resp.Pending++
		}
	}
	if resp.Total > 0 {
		resp.CompletionRate = roundHalfUp(float64(resp.Completed) / float64(resp.Total) * 100)
	}
	return resp, nil
}

// TaskCalendar 某月每天的任务状态，同一天优先展示每日任务
func (s *AnalyticsService) TaskCalendar(ctx context.Context, userID string, year, month int) (map[int]models.CalendarDay, error) {
	if month < 1 || month > 12 || year < 1970 || year > 9999 {
		return nil, invalid("invalid year or month")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	tasks, err := s.tasks.ListTasks(ctx, store.TaskQuery{
		UserID: userID,
		Since:  start,
		Until:  start.AddDate(0, 1, 0),
	})
	if err != nil {
		return nil, err
	}

	calendar := make(map[int]models.CalendarDay)
	daily := make(map[int]bool)
	for _, t := range tasks {
		day := t.Date.In(s.loc).Day()
		if _, ok := calendar[day]; ok && (daily[day] || t.Scope != models.ScopeDaily) {
			continue
		}
		calendar[day] = models.CalendarDay{Status: t.Status, CompletedAt: t.CompletedAt}
		daily[day] = t.Scope == models.ScopeDaily
	}
	return calendar, nil
}
