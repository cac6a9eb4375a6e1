package task

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskhub/internal/domain"
	"github.com/rezkam/taskhub/internal/events"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	mu            sync.Mutex
	tasks         map[string]*domain.Task
	history       []domain.TaskHistory
	series        map[string]*domain.RecurringTaskSeries
	notifications map[string]*domain.Notification
	failWith      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:         map[string]*domain.Task{},
		series:        map[string]*domain.RecurringTaskSeries{},
		notifications: map[string]*domain.Notification{},
	}
}

func (f *fakeRepo) CreateTask(_ context.Context, task *domain.Task, history *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.tasks {
		if existing.SeriesID != nil && task.SeriesID != nil &&
			*existing.SeriesID == *task.SeriesID &&
			existing.DueDate != nil && task.DueDate != nil &&
			existing.DueDate.Equal(*task.DueDate) {
			return domain.ErrConflict
		}
	}
	cp := *task
	f.tasks[task.ID] = &cp
	f.history = append(f.history, *history)
	return nil
}

func (f *fakeRepo) FindTaskByID(_ context.Context, id string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (f *fakeRepo) ListTasks(_ context.Context, userID string) ([]domain.Task, error) {
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

func (f *fakeRepo) UpdateTask(_ context.Context, task *domain.Task, history *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *task
	f.tasks[task.ID] = &cp
	f.history = append(f.history, *history)
	return nil
}

func (f *fakeRepo) DeleteTask(_ context.Context, id string, history *domain.TaskHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.tasks, id)
	for nid, n := range f.notifications {
		if n.TaskID == id {
			delete(f.notifications, nid)
		}
	}
	h := *history
	h.TaskID = nil
	f.history = append(f.history, h)
	return nil
}

func (f *fakeRepo) ListHistory(_ context.Context, userID string, params domain.ListHistoryParams) ([]domain.TaskHistory, int, error) {
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

func (f *fakeRepo) FindHistoryByID(_ context.Context, id string) (*domain.TaskHistory, error) {
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

func (f *fakeRepo) DeleteHistory(_ context.Context, id string) error {
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

func (f *fakeRepo) WeeklyStats(_ context.Context, userID string, weekStart, weekEnd time.Time) (*domain.WeeklyStats, error) {
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

func (f *fakeRepo) CreateSeries(_ context.Context, series *domain.RecurringTaskSeries, firstTask *domain.Task, history *domain.TaskHistory) error {
	f.mu.Lock()
	sc := *series
	f.series[series.ID] = &sc
	f.mu.Unlock()
	return f.CreateTask(context.Background(), firstTask, history)
}

func (f *fakeRepo) FindSeriesByID(_ context.Context, id string) (*domain.RecurringTaskSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) ListSeries(_ context.Context, userID string, includeInactive bool) ([]domain.RecurringTaskSeries, error) {
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

func (f *fakeRepo) UpdateSeries(_ context.Context, series *domain.RecurringTaskSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.series[series.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *series
	f.series[series.ID] = &cp
	return nil
}

func (f *fakeRepo) DeactivateSeries(_ context.Context, id string, now time.Time) error {
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

func (f *fakeRepo) ListSeriesTasks(_ context.Context, seriesID string) ([]domain.Task, error) {
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

func (f *fakeRepo) CreateNotification(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.notifications[n.ID] = &cp
	return nil
}

func (f *fakeRepo) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
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

func (f *fakeRepo) FindNotificationByID(_ context.Context, id string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeRepo) MarkNotificationRead(_ context.Context, id string, readAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.ReadAt = &readAt
	return nil
}

func (f *fakeRepo) MarkAllNotificationsRead(_ context.Context, userID string, readAt time.Time) (int, error) {
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

func (f *fakeRepo) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
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

// recordingSink captures published envelopes.
type recordingSink struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	users     []string
	failWith  error
}

func (r *recordingSink) Publish(_ context.Context, userID string, envelope events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.envelopes = append(r.envelopes, envelope)
	r.users = append(r.users, userID)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.envelopes))
	for i, e := range r.envelopes {
		out[i] = e.Type
	}
	return out
}

var testNow = time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo, sink *recordingSink) *Service {
	clock := testNow
	return NewService(repo, sink, WithClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}))
}

func TestCreate_AndRetrieve(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "Buy groceries", Description: "Milk"})
	require.NoError(t, err)

	assert.Equal(t, "Buy groceries", created.Title)
	assert.False(t, created.IsCompleted)
	assert.Nil(t, created.CompletedAt)
	assert.Equal(t, domain.TaskStatusNotStarted, created.Status)
	assert.Equal(t, domain.TaskPriorityLow, created.Priority)
	assert.Equal(t, []string{}, created.Tags)

	all, err := svc.ListAll(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)

	got, err := svc.Get(ctx, "U1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	assert.Equal(t, []string{events.TypeTaskCreated}, sink.types())
}

func TestCreate_PriorityKeyword(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingSink{})

	created, err := svc.Create(context.Background(), "U1", CreateParams{Title: "Urgent: fix production bug"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityVeryImportant, created.Priority)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingSink{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "U1", CreateParams{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	_, err = svc.Create(ctx, "U1", CreateParams{Title: "ok", Tags: []string{"Nope"}})
	assert.ErrorIs(t, err, domain.ErrInvalidTags)
}

func TestGet_OwnershipForbiddenNotNotFound(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "private"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "U2", created.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, "U2", "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkComplete_ThenIncomplete(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "cycle"})
	require.NoError(t, err)

	completed, err := svc.MarkComplete(ctx, "U1", created.ID)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, domain.TaskStatusCompleted, completed.Status)

	reverted, err := svc.MarkIncomplete(ctx, "U1", created.ID)
	require.NoError(t, err)
	assert.False(t, reverted.IsCompleted)
	assert.Nil(t, reverted.CompletedAt)
	assert.Equal(t, domain.TaskStatusNotStarted, reverted.Status)

	// History rows in chronological order: CREATED, COMPLETED, INCOMPLETED.
	page, err := svc.ListHistory(ctx, "U1", domain.ListHistoryParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, domain.HistoryActionIncompleted, page.Items[0].Action)
	assert.Equal(t, domain.HistoryActionCompleted, page.Items[1].Action)
	assert.Equal(t, domain.HistoryActionCreated, page.Items[2].Action)

	assert.Equal(t, []string{
		events.TypeTaskCreated,
		events.TypeTaskCompleted,
		events.TypeTaskUpdated,
	}, sink.types())
}

func TestMarkComplete_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "once"})
	require.NoError(t, err)

	_, err = svc.MarkComplete(ctx, "U1", created.ID)
	require.NoError(t, err)
	_, err = svc.MarkComplete(ctx, "U1", created.ID)
	require.NoError(t, err)

	// Second completion is a no-op: one completed event, one history row.
	assert.Equal(t, []string{events.TypeTaskCreated, events.TypeTaskCompleted}, sink.types())
}

func TestUpdate_EmptyPatchRejected(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingSink{})

	_, err := svc.Update(context.Background(), "U1", "some-id", domain.UpdateTaskParams{})
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)
}

func TestUpdate_ReclassifiesOnDueDateChange(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "plain task"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityLow, created.Priority)

	due := testNow.Add(2 * time.Hour)
	updated, err := svc.Update(ctx, "U1", created.ID, domain.UpdateTaskParams{
		DueDate:    &due,
		DueDateSet: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPriorityVeryImportant, updated.Priority)

	// The updated_fields payload carries only changed keys.
	last := sink.envelopes[len(sink.envelopes)-1]
	assert.Equal(t, events.TypeTaskUpdated, last.Type)
	assert.Contains(t, string(last.Data), "due_date")
	assert.Contains(t, string(last.Data), "priority")
	assert.NotContains(t, string(last.Data), "description")
}

func TestUpdate_AbsentDueDateNeverClears(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	due := testNow.Add(48 * time.Hour)
	created, err := svc.Create(ctx, "U1", CreateParams{Title: "with due", DueDate: &due})
	require.NoError(t, err)

	title := "with due renamed"
	updated, err := svc.Update(ctx, "U1", created.ID, domain.UpdateTaskParams{Title: &title})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.True(t, updated.DueDate.Equal(due))
}

func TestUpdate_StatusSyncsCompletion(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "sync"})
	require.NoError(t, err)

	status := domain.TaskStatusCompleted
	updated, err := svc.Update(ctx, "U1", created.ID, domain.UpdateTaskParams{Status: &status})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
	require.NotNil(t, updated.CompletedAt)

	status = domain.TaskStatusInProgress
	updated, err = svc.Update(ctx, "U1", created.ID, domain.UpdateTaskParams{Status: &status})
	require.NoError(t, err)
	assert.False(t, updated.IsCompleted)
	assert.Nil(t, updated.CompletedAt)
}

func TestDelete_CascadesNotificationsAndKeepsHistory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateParams{Title: "doomed"})
	require.NoError(t, err)

	require.NoError(t, repo.CreateNotification(ctx, &domain.Notification{
		ID: "n1", TaskID: created.ID, UserID: "U1", Message: "m",
	}))

	require.NoError(t, svc.Delete(ctx, "U1", created.ID))

	assert.Empty(t, repo.notifications)

	page, err := svc.ListHistory(ctx, "U1", domain.ListHistoryParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.HistoryActionDeleted, page.Items[0].Action)
	assert.Nil(t, page.Items[0].TaskID)
	assert.Equal(t, "doomed", page.Items[0].TaskTitle)
}

func TestListAll_OrdersIncompleteFirst(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	first, err := svc.Create(ctx, "U1", CreateParams{Title: "older"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "U1", CreateParams{Title: "newer"})
	require.NoError(t, err)
	_, err = svc.MarkComplete(ctx, "U1", second.ID)
	require.NoError(t, err)

	all, err := svc.ListAll(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestPublishFailure_DoesNotFailMutation(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{failWith: fmt.Errorf("broker down")}
	svc := newTestService(repo, sink)

	created, err := svc.Create(context.Background(), "U1", CreateParams{Title: "still persisted"})
	require.NoError(t, err)

	stored, err := repo.FindTaskByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "still persisted", stored.Title)
}

func TestListHistory_LimitBounds(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingSink{})
	ctx := context.Background()

	_, err := svc.ListHistory(ctx, "U1", domain.ListHistoryParams{Page: 1, Limit: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidPageLimit)

	_, err = svc.ListHistory(ctx, "U1", domain.ListHistoryParams{Page: 1, Limit: 101})
	assert.ErrorIs(t, err, domain.ErrInvalidPageLimit)
}

func TestWeeklyStats_WindowIsMondayToSunday(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})

	stats, err := svc.WeeklyStats(context.Background(), "U1")
	require.NoError(t, err)

	// 2026-01-14 is a Wednesday; the window is Mon Jan 12 through Sun Jan 18.
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), stats.WeekStart)
	assert.Equal(t, time.Date(2026, 1, 18, 23, 59, 59, 0, time.UTC), stats.WeekEnd)
	assert.Equal(t, time.Monday, stats.WeekStart.Weekday())
	assert.Equal(t, time.Sunday, stats.WeekEnd.Weekday())
}

func TestCreateSeries_GeneratesFirstInstanceDueNow(t *testing.T) {
	repo := newFakeRepo()
	sink := &recordingSink{}
	svc := newTestService(repo, sink)
	ctx := context.Background()

	series, first, err := svc.CreateSeries(ctx, "U1", CreateSeriesParams{
		Template:          domain.SeriesTemplate{Title: "Water plants", Tags: []string{"Personal"}},
		RecurrencePattern: "FREQ=DAILY;INTERVAL=1",
	})
	require.NoError(t, err)

	assert.True(t, series.IsActive)
	require.NotNil(t, first.SeriesID)
	assert.Equal(t, series.ID, *first.SeriesID)
	require.NotNil(t, first.DueDate)
	require.NotNil(t, first.RecurrencePattern)
	assert.Equal(t, "FREQ=DAILY;INTERVAL=1", *first.RecurrencePattern)
	assert.Equal(t, []string{events.TypeTaskCreated}, sink.types())
}

func TestCreateSeries_RejectsBadRule(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingSink{})

	_, _, err := svc.CreateSeries(context.Background(), "U1", CreateSeriesParams{
		Template:          domain.SeriesTemplate{Title: "x"},
		RecurrencePattern: "FREQ=HOURLY",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrenceRule)
}

func TestDeleteSeries_SoftDeletePreservesInstances(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	series, first, err := svc.CreateSeries(ctx, "U1", CreateSeriesParams{
		Template:          domain.SeriesTemplate{Title: "recurring"},
		RecurrencePattern: "DAILY",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSeries(ctx, "U1", series.ID))

	stored, err := repo.FindSeriesByID(ctx, series.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	// The generated instance survives.
	_, err = svc.Get(ctx, "U1", first.ID)
	assert.NoError(t, err)
}

func TestGenerateInstance_DuplicateDueDateConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	series, _, err := svc.CreateSeries(ctx, "U1", CreateSeriesParams{
		Template:          domain.SeriesTemplate{Title: "daily"},
		RecurrencePattern: "DAILY",
	})
	require.NoError(t, err)

	due := testNow.Add(24 * time.Hour)
	_, err = svc.GenerateInstance(ctx, series, due)
	require.NoError(t, err)

	_, err = svc.GenerateInstance(ctx, series, due)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestNotifications_OwnershipAndReadFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingSink{})
	ctx := context.Background()

	require.NoError(t, repo.CreateNotification(ctx, &domain.Notification{
		ID: "n1", TaskID: "t1", UserID: "U1", Message: "due soon",
	}))

	_, err := svc.MarkNotificationRead(ctx, "U2", "n1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	n, err := svc.MarkNotificationRead(ctx, "U1", "n1")
	require.NoError(t, err)
	assert.True(t, n.IsRead())

	count, err := svc.CountUnreadNotifications(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
