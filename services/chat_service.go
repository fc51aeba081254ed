package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MindMateGo/config"
	"MindMateGo/models"
	"MindMateGo/store"
	"MindMateGo/utils"
)

// offerTurn 第几次用户发言时提出行动建议
const offerTurn = 2

const maxMessageLength = 4000

var affirmativeTokens = []string{"yes", "please", "sure", "okay", "ok", "yeah", "yep", "mate"}

// IsAffirmative 消息中是否包含同意的词，按子串匹配且不区分大小写
func IsAffirmative(message string) bool {
	lower := strings.ToLower(message)
	for _, token := range affirmativeTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// ChatService 聊天会话及会话内的任务触发
type ChatService struct {
	chats    store.ChatStore
	tasks    store.TaskStore
	contexts store.ContextStore
	ai       *AIService
	locker   SessionLocker
	now      func() time.Time
	newID    func() string
}

func NewChatService(chats store.ChatStore, tasks store.TaskStore, contexts store.ContextStore, ai *AIService, locker SessionLocker) *ChatService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &ChatService{
		chats:    chats,
		tasks:    tasks,
		contexts: contexts,
		ai:       ai,
		locker:   locker,
		now:      time.Now,
		newID:    utils.GenerateID,
	}
}

// SendMessage 处理一条用户消息
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID, message string) (*models.ChatSendResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("Message is required")
	}
	if len([]rune(message)) > maxMessageLength {
		return nil, invalid(fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	unlock, err := s.locker.Lock(ctx, LockKey(userID, "chat:"+sessionID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	chat, err := s.chats.GetChat(ctx, userID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		chat = models.NewChat(s.newID(), userID, sessionID, s.now())
	} else if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}

	// 用户消息先落库，后续生成失败也会保留
	chat.Append(s.newID(), models.RoleUser, message, s.now())
	if err := s.chats.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}

	s.detectMood(ctx, chat)

	resp := &models.ChatSendResponse{SessionID: sessionID}
	turns := chat.UserTurns()

	if chat.AwaitingConfirmation && turns > offerTurn && IsAffirmative(message) {
		task, err := s.dispatchTask(ctx, chat)
		if err != nil {
			return nil, err
		}
		resp.GenerateTask = true
		resp.Task = task
		resp.Response = TaskReadyMessage
	} else {
		offer := turns >= offerTurn && !chat.AwaitingConfirmation
		reply, err := s.ai.ChatReply(ctx, chat.Messages, chat.MoodDetected, offer)
		if err != nil {
			// 情绪检测结果仍然保存
			if serr := s.chats.SaveChat(ctx, chat); serr != nil {
				config.Logger.Errorw("保存会话失败", "sessionId", sessionID, "error", serr)
			}
			return nil, err
		}
		if offer {
			chat.AwaitingConfirmation = true
		}
		resp.Response = reply
	}

	reply := chat.Append(s.newID(), models.RoleAssistant, resp.Response, s.now())
	if err := s.chats.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("save chat: %w", err)
	}

	resp.Timestamp = reply.Timestamp
	resp.MoodDetected = chat.MoodDetected
	resp.Sentiment = chat.Sentiment
	return resp, nil
}

// detectMood 每个会话只分析一次首条用户消息
func (s *ChatService) detectMood(ctx context.Context, chat *models.Chat) {
	if chat.MoodDetected != nil {
		return
	}
	first, ok := chat.FirstUserMessage()
	if !ok {
		return
	}
	analysis, err := s.ai.AnalyzeMood(ctx, first.Content)
	if err != nil {
		config.Logger.Warnw("情绪检测失败", "sessionId", chat.SessionID, "error", err)
		return
	}
	mood := analysis.Mood
	chat.MoodDetected = &mood
	chat.Sentiment = analysis.Sentiment
	chat.Topics = analysis.Topics
}

func (s *ChatService) dispatchTask(ctx context.Context, chat *models.Chat) (*models.Task, error) {
	summary := s.ai.Summarize(ctx, chat.Messages)

	unlock, err := s.locker.Lock(ctx, LockKey(chat.UserID, "tasks"))
	if err != nil {
		return nil, fmt.Errorf("lock tasks: %w", err)
	}
	defer unlock()

	pending, err := s.tasks.ListTasks(ctx, store.TaskQuery{UserID: chat.UserID, Status: models.TaskPending})
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	titles := make([]string, 0, len(pending))
	for _, t := range pending {
		titles = append(titles, t.Title)
	}

	mood := models.MoodNeutral
	if chat.MoodDetected != nil {
		mood = *chat.MoodDetected
	}
	result := s.ai.GenerateTask(ctx, TaskInput{
		Mood:          mood,
		Notes:         summary,
		PendingTitles: titles,
		Background:    loadBackground(ctx, s.contexts, chat.UserID),
	})
	if result.Fallback {
		config.Logger.Warnw("任务生成回退到预设模板", "sessionId", chat.SessionID, "error", result.Err)
	}

	now := s.now()
	task, err := s.tasks.GetTask(ctx, chat.UserID, models.SessionKey(chat.SessionID))
	if errors.Is(err, store.ErrNotFound) {
		task = &models.Task{
			ID:        s.newID(),
			UserID:    chat.UserID,
			Scope:     models.ScopeSession,
			ScopeKey:  chat.SessionID,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, fmt.Errorf("load session task: %w", err)
	}

	applyGenerated(task, result, now, s.newID)
	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("save session task: %w", err)
	}

	config.Logger.Infow("会话任务已生成",
		"userId", chat.UserID,
		"sessionId", chat.SessionID,
		"taskId", task.ID,
		"fallback", result.Fallback,
	)
	return task, nil
}

// applyGenerated 用生成结果覆盖任务内容
func applyGenerated(task *models.Task, result TaskResult, now time.Time, newID func() string) {
	prompt := result.Prompt
	task.Title = result.Task.Title
	task.Description = result.Task.Description
	task.Category = result.Task.Category
	task.Difficulty = result.Task.Difficulty
	task.GeneratedBy = models.GeneratedByAI
	task.AIPrompt = &prompt
	task.Date = now
	task.UpdatedAt = now
	task.ReplaceSteps(result.Task.Steps, newID)
	task.RefreshStatus(now)
}

func loadBackground(ctx context.Context, contexts store.ContextStore, userID string) []string {
	if contexts == nil {
		return nil
	}
	ec, err := contexts.GetContext(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			config.Logger.Warnw("读取情绪背景失败", "userId", userID, "error", err)
		}
		return nil
	}
	return ec.Lines()
}

// History 最近更新的会话
func (s *ChatService) History(ctx context.Context, userID, sessionID string, limit int) ([]*models.Chat, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	chats, err := s.chats.ListChats(ctx, store.ChatQuery{
		UserID:    userID,
		SessionID: sessionID,
		Order:     store.RecentlyUpdated,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []*models.Chat{}
	}
	return chats, nil
}

// Session 获取单个会话
func (s *ChatService) Session(ctx context.Context, userID, sessionID string) (*models.Chat, error) {
	return s.chats.GetChat(ctx, userID, sessionID)
}

// DeleteSession 删除会话
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	unlock, err := s.locker.Lock(ctx, LockKey(userID, "chat:"+sessionID))
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	return s.chats.DeleteChat(ctx, userID, sessionID)
}
