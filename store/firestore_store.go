package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"MindMateGo/models"
)

// FirestoreStore 基于 Firestore 的文档存储，文档ID由自然键生成
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore 创建 Firestore 存储
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func docKey(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.Join(escaped, "__")
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *FirestoreStore) chatsCol() *firestore.CollectionRef    { return s.client.Collection("chats") }
func (s *FirestoreStore) moodsCol() *firestore.CollectionRef    { return s.client.Collection("moods") }
func (s *FirestoreStore) tasksCol() *firestore.CollectionRef    { return s.client.Collection("tasks") }
func (s *FirestoreStore) contextsCol() *firestore.CollectionRef { return s.client.Collection("emotional_contexts") }
func (s *FirestoreStore) usersCol() *firestore.CollectionRef    { return s.client.Collection("users") }
func (s *FirestoreStore) eventsCol() *firestore.CollectionRef   { return s.client.Collection("subscription_events") }

// ---- documents ----

type messageDoc struct {
	ID        string    `firestore:"id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	Timestamp time.Time `firestore:"timestamp"`
}

type chatDoc struct {
	ID                   string       `firestore:"id"`
	UserID               string       `firestore:"user_id"`
	SessionID            string       `firestore:"session_id"`
	Messages             []messageDoc `firestore:"messages"`
	MoodDetected         *string      `firestore:"mood_detected"`
	Sentiment            string       `firestore:"sentiment"`
	Topics               []string     `firestore:"topics"`
	AwaitingConfirmation bool         `firestore:"awaiting_confirmation"`
	IsActive             bool         `firestore:"is_active"`
	CreatedAt            time.Time    `firestore:"created_at"`
	UpdatedAt            time.Time    `firestore:"updated_at"`
}

func toChatDoc(c *models.Chat) chatDoc {
	doc := chatDoc{
		ID:                   c.ID,
		UserID:               c.UserID,
		SessionID:            c.SessionID,
		Messages:             make([]messageDoc, 0, len(c.Messages)),
		Sentiment:            string(c.Sentiment),
		Topics:               append([]string{}, c.Topics...),
		AwaitingConfirmation: c.AwaitingConfirmation,
		IsActive:             c.IsActive,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	if c.MoodDetected != nil {
		m := string(*c.MoodDetected)
		doc.MoodDetected = &m
	}
	for _, m := range c.Messages {
		doc.Messages = append(doc.Messages, messageDoc{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return doc
}

func (d chatDoc) toModel() *models.Chat {
	c := &models.Chat{
		ID:                   d.ID,
		UserID:               d.UserID,
		SessionID:            d.SessionID,
		Messages:             make([]models.Message, 0, len(d.Messages)),
		Sentiment:            models.ParseSentiment(d.Sentiment),
		Topics:               append([]string{}, d.Topics...),
		AwaitingConfirmation: d.AwaitingConfirmation,
		IsActive:             d.IsActive,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	if d.MoodDetected != nil {
		m := models.MoodLevel(*d.MoodDetected)
		c.MoodDetected = &m
	}
	for i, m := range d.Messages {
		c.Messages = append(c.Messages, models.Message{
			ID:        m.ID,
			ChatID:    d.ID,
			Position:  i,
			Role:      models.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return c
}

type moodDoc struct {
	ID            string    `firestore:"id"`
	UserID        string    `firestore:"user_id"`
	Day           string    `firestore:"day"`
	Mood          string    `firestore:"mood"`
	Score         int       `firestore:"mood_score"`
	Notes         string    `firestore:"notes"`
	Factors       []string  `firestore:"factors"`
	ChatReference *string   `firestore:"chat_reference"`
	Date          time.Time `firestore:"date"`
	CreatedAt     time.Time `firestore:"created_at"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

func toMoodDoc(e *models.MoodEntry) moodDoc {
	return moodDoc{
		ID:            e.ID,
		UserID:        e.UserID,
		Day:           e.Day,
		Mood:          string(e.Mood),
		Score:         e.Score,
		Notes:         e.Notes,
		Factors:       append([]string{}, e.Factors...),
		ChatReference: e.ChatReference,
		Date:          e.Date,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (d moodDoc) toModel() *models.MoodEntry {
	return &models.MoodEntry{
		ID:            d.ID,
		UserID:        d.UserID,
		Day:           d.Day,
		Mood:          models.MoodLevel(d.Mood),
		Score:         d.Score,
		Notes:         d.Notes,
		Factors:       append([]string{}, d.Factors...),
		ChatReference: d.ChatReference,
		Date:          d.Date,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type stepDoc struct {
	ID          string     `firestore:"id"`
	Label       string     `firestore:"label"`
	Completed   bool       `firestore:"completed"`
	CompletedAt *time.Time `firestore:"completed_at"`
}

type taskDoc struct {
	ID          string     `firestore:"id"`
	UserID      string     `firestore:"user_id"`
	Scope       string     `firestore:"scope"`
	ScopeKey    string     `firestore:"scope_key"`
	Date        time.Time  `firestore:"date"`
	Title       string     `firestore:"task_title"`
	Description string     `firestore:"description"`
	Steps       []stepDoc  `firestore:"steps"`
	StepIDs     []string   `firestore:"step_ids"`
	Status      string     `firestore:"status"`
	GeneratedBy string     `firestore:"generated_by"`
	Difficulty  string     `firestore:"difficulty"`
	Category    string     `firestore:"category"`
	CompletedAt *time.Time `firestore:"completed_at"`
	AIPrompt    *string    `firestore:"ai_prompt"`
	CreatedAt   time.Time  `firestore:"created_at"`
	UpdatedAt   time.Time  `firestore:"updated_at"`
}

func toTaskDoc(t *models.Task) taskDoc {
	doc := taskDoc{
		ID:          t.ID,
		UserID:      t.UserID,
		Scope:       string(t.Scope),
		ScopeKey:    t.ScopeKey,
		Date:        t.Date,
		Title:       t.Title,
		Description: t.Description,
		Steps:       make([]stepDoc, 0, len(t.Steps)),
		StepIDs:     t.StepIDs(),
		Status:      string(t.Status),
		GeneratedBy: t.GeneratedBy,
		Difficulty:  t.Difficulty,
		Category:    t.Category,
		CompletedAt: t.CompletedAt,
		AIPrompt:    t.AIPrompt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for _, st := range t.Steps {
		doc.Steps = append(doc.Steps, stepDoc{
			ID:          st.ID,
			Label:       st.Label,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		})
	}
	return doc
}

func (d taskDoc) toModel() *models.Task {
	t := &models.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Scope:       models.TaskScope(d.Scope),
		ScopeKey:    d.ScopeKey,
		Date:        d.Date,
		Title:       d.Title,
		Description: d.Description,
		Steps:       make([]models.TaskStep, 0, len(d.Steps)),
		Status:      models.TaskStatus(d.Status),
		GeneratedBy: d.GeneratedBy,
		Difficulty:  d.Difficulty,
		Category:    d.Category,
		CompletedAt: d.CompletedAt,
		AIPrompt:    d.AIPrompt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, st := range d.Steps {
		t.Steps = append(t.Steps, models.TaskStep{
			ID:          st.ID,
			TaskID:      d.ID,
			UserID:      d.UserID,
			Position:    i,
			Label:       st.Label,
			Completed:   st.Completed,
			CompletedAt: st.CompletedAt,
		})
	}
	return t
}

// ---- chats ----

func (s *FirestoreStore) chatDoc(userID, sessionID string) *firestore.DocumentRef {
	return s.chatsCol().Doc(docKey(userID, sessionID))
}

func (s *FirestoreStore) GetChat(ctx context.Context, userID, sessionID string) (*models.Chat, error) {
	snap, err := s.chatDoc(userID, sessionID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetChat: %w", err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetChat decode: %w", err)
	}
	return doc.toModel(), nil
}

func (s *FirestoreStore) SaveChat(ctx context.Context, chat *models.Chat) error {
	if _, err := s.chatDoc(chat.UserID, chat.SessionID).Set(ctx, toChatDoc(chat)); err != nil {
		return fmt.Errorf("firestore SaveChat: %w", err)
	}
	return nil
}

func (s *FirestoreStore) DeleteChat(ctx context.Context, userID, sessionID string) error {
	ref := s.chatDoc(userID, sessionID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("firestore DeleteChat: %w", err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteChat: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListChats(ctx context.Context, q ChatQuery) ([]*models.Chat, error) {
	query := s.chatsCol().Where("user_id", "==", q.UserID)
	if q.SessionID != "" {
		query = query.Where("session_id", "==", q.SessionID)
	}
	if !q.Since.IsZero() {
		query = query.Where("created_at", ">=", q.Since)
	}
	if !q.Until.IsZero() {
		query = query.Where("created_at", "<", q.Until)
	}
	if q.Order == OldestFirst {
		query = query.OrderBy("created_at", firestore.Asc)
	} else {
		query = query.OrderBy("created_at", firestore.Desc)
	}
	// 情绪过滤和按更新时间排序在内存中完成
	pushLimit := q.Limit > 0 && !q.MoodOnly && q.Order != RecentlyUpdated
	if pushLimit {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*models.Chat
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListChats: %w", err)
		}

		var doc chatDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode chatDoc: %w", err)
		}
		if q.MoodOnly && doc.MoodDetected == nil {
			continue
		}
		out = append(out, doc.toModel())
	}

	if q.Order == RecentlyUpdated {
		sortChats(out, RecentlyUpdated)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *FirestoreStore) CountChats(ctx context.Context, userID string) (int64, error) {
	q := s.chatsCol().Where("user_id", "==", userID)
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("firestore CountChats: %w", err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("firestore CountChats: unexpected result %T", res["all"])
	}
	return v.GetIntegerValue(), nil
}

// ---- moods ----

func (s *FirestoreStore) moodDoc(userID, day string) *firestore.DocumentRef {
	return s.moodsCol().Doc(docKey(userID, day))
}

func (s *FirestoreStore) GetMood(ctx context.Context, userID, day string) (*models.MoodEntry, error) {
	snap, err := s.moodDoc(userID, day).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetMood: %w", err)
	}
	var doc moodDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetMood decode: %w", err)
	}
	return doc.toModel(), nil
}

func (s *FirestoreStore) SaveMood(ctx context.Context, entry *models.MoodEntry) error {
	ref := s.moodDoc(entry.UserID, entry.Day)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err == nil {
			var existing moodDoc
			if err := snap.DataTo(&existing); err != nil {
				return err
			}
			entry.ID = existing.ID
			entry.CreatedAt = existing.CreatedAt
		}
		return tx.Set(ref, toMoodDoc(entry))
	})
	if err != nil {
		return fmt.Errorf("firestore SaveMood: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListMoods(ctx context.Context, userID string, since time.Time) ([]*models.MoodEntry, error) {
	iter := s.moodsCol().
		Where("user_id", "==", userID).
		Where("date", ">=", since).
		OrderBy("date", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []*models.MoodEntry
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListMoods: %w", err)
		}
		var doc moodDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode moodDoc: %w", err)
		}
		out = append(out, doc.toModel())
	}
	return out, nil
}

// ---- tasks ----

func (s *FirestoreStore) taskDoc(userID string, key models.TaskKey) *firestore.DocumentRef {
	return s.tasksCol().Doc(docKey(userID, string(key.Scope), key.Key))
}

func (s *FirestoreStore) firstTask(ctx context.Context, q firestore.Query) (*models.Task, error) {
	iter := q.Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore task query: %w", err)
	}
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode taskDoc: %w", err)
	}
	return doc.toModel(), nil
}

func (s *FirestoreStore) GetTask(ctx context.Context, userID string, key models.TaskKey) (*models.Task, error) {
	snap, err := s.taskDoc(userID, key).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetTask: %w", err)
	}
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetTask decode: %w", err)
	}
	return doc.toModel(), nil
}

func (s *FirestoreStore) GetTaskByID(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return s.firstTask(ctx, s.tasksCol().Where("user_id", "==", userID).Where("id", "==", taskID))
}

func (s *FirestoreStore) GetTaskByStep(ctx context.Context, userID, stepID string) (*models.Task, error) {
	return s.firstTask(ctx, s.tasksCol().Where("user_id", "==", userID).Where("step_ids", "array-contains", stepID))
}

func (s *FirestoreStore) SaveTask(ctx context.Context, task *models.Task) error {
	ref := s.taskDoc(task.UserID, task.Key())
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err == nil {
			id, _ := snap.DataAt("id")
			if existing, _ := id.(string); existing != "" && existing != task.ID {
				return ErrDuplicate
			}
		}
		return tx.Set(ref, toTaskDoc(task))
	})
	if err != nil {
		return fmt.Errorf("firestore SaveTask: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ListTasks(ctx context.Context, q TaskQuery) ([]*models.Task, error) {
	query := s.tasksCol().Where("user_id", "==", q.UserID)
	if q.Status != "" {
		query = query.Where("status", "==", string(q.Status))
	}
	if !q.Since.IsZero() {
		query = query.Where("date", ">=", q.Since)
	}
	if !q.Until.IsZero() {
		query = query.Where("date", "<", q.Until)
	}
	query = query.OrderBy("date", firestore.Desc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*models.Task
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListTasks: %w", err)
		}
		var doc taskDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode taskDoc: %w", err)
		}
		out = append(out, doc.toModel())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ---- emotional context ----

type contextDoc struct {
	UserID    string                   `firestore:"user_id"`
	Responses []models.ContextResponse `firestore:"responses"`
	CreatedAt time.Time                `firestore:"created_at"`
	UpdatedAt time.Time                `firestore:"updated_at"`
}

func (s *FirestoreStore) GetContext(ctx context.Context, userID string) (*models.EmotionalContext, error) {
	snap, err := s.contextsCol().Doc(docKey(userID)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetContext: %w", err)
	}
	var doc contextDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetContext decode: %w", err)
	}
	return &models.EmotionalContext{
		UserID:    doc.UserID,
		Responses: doc.Responses,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *FirestoreStore) SaveContext(ctx context.Context, ec *models.EmotionalContext) error {
	doc := contextDoc{
		UserID:    ec.UserID,
		Responses: ec.Responses,
		CreatedAt: ec.CreatedAt,
		UpdatedAt: ec.UpdatedAt,
	}
	if _, err := s.contextsCol().Doc(docKey(ec.UserID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveContext: %w", err)
	}
	return nil
}

// ---- users ----

type userDoc struct {
	Name             string     `firestore:"name"`
	Email            string     `firestore:"email"`
	IsPremium        bool       `firestore:"is_premium"`
	PremiumPlan      string     `firestore:"premium_plan"`
	PremiumExpiresAt *time.Time `firestore:"premium_expires_at"`
	StreakCount      int        `firestore:"streak_count"`
	LastCheckIn      *time.Time `firestore:"last_check_in"`
	Timezone         string     `firestore:"timezone"`
	Notifications    bool       `firestore:"notifications"`
	ReminderTime     string     `firestore:"reminder_time"`
	CreatedAt        time.Time  `firestore:"created_at"`
	UpdatedAt        time.Time  `firestore:"updated_at"`
}

func (s *FirestoreStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.usersCol().Doc(docKey(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetUser: %w", err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetUser decode: %w", err)
	}
	return &models.User{
		ID:               id,
		Name:             doc.Name,
		Email:            doc.Email,
		IsPremium:        doc.IsPremium,
		PremiumPlan:      doc.PremiumPlan,
		PremiumExpiresAt: doc.PremiumExpiresAt,
		StreakCount:      doc.StreakCount,
		LastCheckIn:      doc.LastCheckIn,
		Timezone:         doc.Timezone,
		Notifications:    doc.Notifications,
		ReminderTime:     doc.ReminderTime,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}, nil
}

func (s *FirestoreStore) SaveUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		Name:             user.Name,
		Email:            user.Email,
		IsPremium:        user.IsPremium,
		PremiumPlan:      user.PremiumPlan,
		PremiumExpiresAt: user.PremiumExpiresAt,
		StreakCount:      user.StreakCount,
		LastCheckIn:      user.LastCheckIn,
		Timezone:         user.Timezone,
		Notifications:    user.Notifications,
		ReminderTime:     user.ReminderTime,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
	if _, err := s.usersCol().Doc(docKey(user.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveUser: %w", err)
	}
	return nil
}

// ---- subscription events ----

type eventDoc struct {
	Type        string    `firestore:"type"`
	UserID      string    `firestore:"user_id"`
	Plan        string    `firestore:"plan"`
	ProcessedAt time.Time `firestore:"processed_at"`
}

func (s *FirestoreStore) RecordEvent(ctx context.Context, event *models.SubscriptionEvent) (bool, error) {
	doc := eventDoc{
		Type:        event.Type,
		UserID:      event.UserID,
		Plan:        event.Plan,
		ProcessedAt: event.ProcessedAt,
	}
	_, err := s.eventsCol().Doc(docKey(event.ID)).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, fmt.Errorf("firestore RecordEvent: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) DeleteEvent(ctx context.Context, eventID string) error {
	if _, err := s.eventsCol().Doc(docKey(eventID)).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteEvent: %w", err)
	}
	return nil
}
