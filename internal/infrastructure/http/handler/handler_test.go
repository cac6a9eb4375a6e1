package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/application/chat"
	"github.com/rezkam/taskhub/internal/application/task"
	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
	"github.com/rezkam/taskhub/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskhub/internal/infrastructure/identity"
)

// In-memory repositories backing the HTTP tests. The services are real;
// only persistence and the chat agent are faked.

type taskRepoFake struct {
	mu            sync.Mutex
	tasks         map[string]*domain.Task
	history       []domain.TaskHistory
	series        map[string]*domain.RecurringTaskSeries
	notifications map[string]*domain.Notification
}

func newTaskRepoFake() *taskRepoFake {
	return &taskRepoFake{
		tasks:         map[string]*domain.Task{},
		series:        map[string]*domain.RecurringTaskSeries{},
		notifications: map[string]*domain.Notification{},
	}
}

func (f *taskRepoFake) CreateTask(_ context.Context, t *domain.Task, h *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tasks[t.ID] = &cp
	f.history = append(f.history, *h)
	return nil
}

func (f *taskRepoFake) FindTaskByID(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *taskRepoFake) ListTasks(_ context.Context, userID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsCompleted != out[j].IsCompleted {
			return !out[i].IsCompleted
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *taskRepoFake) UpdateTask(_ context.Context, t *domain.Task, h *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[t.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *t
	f.tasks[t.ID] = &cp
	f.history = append(f.history, *h)
	return nil
}

func (f *taskRepoFake) DeleteTask(_ context.Context, id string, h *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.tasks, id)
	detached := *h
	detached.TaskID = nil
	f.history = append(f.history, detached)
	return nil
}

func (f *taskRepoFake) ListHistory(_ context.Context, userID string, params domain.ListHistoryParams) ([]domain.TaskHistory, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []domain.TaskHistory
	for _, h := range f.history {
		if h.UserID != userID {
			continue
		}
		if params.TaskID != nil && (h.TaskID == nil || *h.TaskID != *params.TaskID) {
			continue
		}
		if params.Action != nil && h.Action != *params.Action {
			continue
		}
		matched = append(matched, h)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	total := len(matched)
	offset := (params.Page - 1) * params.Limit
	if params.Offset != nil {
		offset = *params.Offset
	}
	if offset > total {
		offset = total
	}
	end := offset + params.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *taskRepoFake) FindHistoryByID(_ context.Context, id string) (*domain.TaskHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.history {
		if h.ID == id {
			cp := h
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *taskRepoFake) DeleteHistory(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, h := range f.history {
		if h.ID == id {
			f.history = append(f.history[:i], f.history[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *taskRepoFake) WeeklyStats(_ context.Context, userID string, weekStart, weekEnd time.Time) (*domain.WeeklyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.WeeklyStats{}
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		stats.TotalTasks++
		if t.IsCompleted {
			stats.TotalCompleted++
		} else {
			stats.TotalIncomplete++
		}
		if !t.CreatedAt.Before(weekStart) && !t.CreatedAt.After(weekEnd) {
			stats.TasksCreatedThisWeek++
		}
		if t.CompletedAt != nil && !t.CompletedAt.Before(weekStart) && !t.CompletedAt.After(weekEnd) {
			stats.TasksCompletedThisWeek++
		}
	}
	return stats, nil
}

func (f *taskRepoFake) CreateSeries(ctx context.Context, series *domain.RecurringTaskSeries, firstTask *domain.Task, h *domain.TaskHistory) error {
	f.mu.Lock()
	cp := *series
	f.series[series.ID] = &cp
	f.mu.Unlock()
	return f.CreateTask(ctx, firstTask, h)
}

func (f *taskRepoFake) FindSeriesByID(_ context.Context, id string) (*domain.RecurringTaskSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *taskRepoFake) ListSeries(_ context.Context, userID string, includeInactive bool) ([]domain.RecurringTaskSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RecurringTaskSeries
	for _, s := range f.series {
		if s.UserID == userID && (includeInactive || s.IsActive) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *taskRepoFake) UpdateSeries(_ context.Context, series *domain.RecurringTaskSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.series[series.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *series
	f.series[series.ID] = &cp
	return nil
}

func (f *taskRepoFake) DeactivateSeries(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.IsActive = false
	s.UpdatedAt = now
	return nil
}

func (f *taskRepoFake) ListSeriesTasks(_ context.Context, seriesID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.SeriesID != nil && *t.SeriesID == seriesID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *taskRepoFake) CreateNotification(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.notifications[n.ID] = &cp
	return nil
}

func (f *taskRepoFake) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.notifications {
		if n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *taskRepoFake) FindNotificationByID(_ context.Context, id string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *taskRepoFake) MarkNotificationRead(_ context.Context, id string, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.ReadAt = &readAt
	return nil
}

func (f *taskRepoFake) MarkAllNotificationsRead(_ context.Context, userID string, readAt time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

func (f *taskRepoFake) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

type chatRepoFake struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	messages      []domain.Message
}

func newChatRepoFake() *chatRepoFake {
	return &chatRepoFake{conversations: map[string]*domain.Conversation{}}
}

func (f *chatRepoFake) CreateConversation(_ context.Context, c *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.conversations[c.ID] = &cp
	return nil
}

func (f *chatRepoFake) FindConversationByID(_ context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *chatRepoFake) TouchConversation(_ context.Context, id string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.UpdatedAt = updatedAt
	return nil
}

func (f *chatRepoFake) ListConversations(_ context.Context, userID string, limit, offset int) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (f *chatRepoFake) CreateMessage(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	if c, ok := f.conversations[m.ConversationID]; ok {
		c.UpdatedAt = m.CreatedAt
	}
	return nil
}

func (f *chatRepoFake) ListMessages(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *chatRepoFake) DeleteExpiredMessages(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []domain.Message
	deleted := 0
	for _, m := range f.messages {
		if m.ExpiresAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.messages = kept
	return deleted, nil
}

type userRepoFake struct {
	mu    sync.Mutex
	users map[string]*domain.User // by id
}

func newUserRepoFake() *userRepoFake {
	return &userRepoFake{users: map[string]*domain.User{}}
}

func (f *userRepoFake) CreateUser(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *userRepoFake) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *userRepoFake) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// scriptedStream and scriptedAgent replay a fixed assistant response.

type scriptedStream struct {
	chunks []chat.Chunk
	pos    int
}

func (s *scriptedStream) Recv() (chat.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return chat.Chunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedAgent struct {
	chunks   []chat.Chunk
	failWith error
}

func (a *scriptedAgent) Stream(_ context.Context, _ string, _ []chat.HistoryEntry, _ string) (chat.Stream, error) {
	if a.failWith != nil {
		return nil, a.failWith
	}
	return &scriptedStream{chunks: a.chunks}, nil
}

type noopSink struct{}

func (noopSink) Publish(_ context.Context, _ string, _ events.Envelope) error { return nil }

// testAPI bundles the router and the backing fakes for one test.
type testAPI struct {
	router   http.Handler
	taskRepo *taskRepoFake
	chatRepo *chatRepoFake
	agent    *scriptedAgent
}

const bcryptTestCost = 4

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	taskRepo := newTaskRepoFake()
	chatRepo := newChatRepoFake()
	userRepo := newUserRepoFake()
	agent := &scriptedAgent{}

	authService, err := auth.NewService(userRepo, identity.NewBcryptHasher(bcryptTestCost), []byte("test-secret"))
	require.NoError(t, err)

	taskService := task.NewService(taskRepo, noopSink{})
	chatService := chat.NewService(chatRepo)
	turner := chat.NewTurner(chatService, agent)

	h := New(taskService, chatService, turner, authService, Config{})

	router := chi.NewRouter()
	h.PublicRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.NewAuth(authService).Validate)
		h.Routes(r)
	})

	return &testAPI{
		router:   router,
		taskRepo: taskRepo,
		chatRepo: chatRepo,
		agent:    agent,
	}
}

// do issues a request against the router. A non-empty token is sent as
// a Bearer header.
func (api *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and returns its id and token.
func (api *testAPI) signup(t *testing.T, email string) (userID, token string) {
	t.Helper()

	rec := api.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope struct {
		Data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.User.ID)
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.User.ID, envelope.Data.Token
}

// seedNotification plants an unread notification directly in the fake
// repository, standing in for the reminder scheduler.
func seedNotification(t *testing.T, api *testAPI, userID, taskID, message string) {
	t.Helper()

	err := api.taskRepo.CreateNotification(context.Background(), &domain.Notification{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TaskID:    taskID,
		UserID:    userID,
		Message:   message,
		Priority:  domain.TaskPriorityVeryImportant,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

// decodeData unmarshals the envelope's data field into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, v))
}
