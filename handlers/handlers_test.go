package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/FausT-VX/reminder-server/database"
	"github.com/FausT-VX/reminder-server/handlers"
	"github.com/FausT-VX/reminder-server/models"
	"github.com/FausT-VX/reminder-server/service/scheduler"
)

func newTestServer(t *testing.T) (*chi.Mux, database.TasksStore, *sqlx.DB) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.CreateDB(dbFile))

	db, err := sqlx.Connect("sqlite", dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := database.NewTasksStore(db)

	handler, err := handlers.New(store, "../web")
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Get("/", handler.Index)
	router.Post("/add", handler.Add)
	router.Post("/complete/{id}", handler.Complete)
	router.Post("/snooze/{id}", handler.Snooze)
	router.Post("/delete/{id}", handler.Delete)
	router.Get("/reminder-data", handler.ReminderData)
	return router, store, db
}

func postForm(t *testing.T, router *chi.Mux, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func flashMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "flash" && cookie.MaxAge >= 0 {
			msg, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return ""
}

func TestAddTask(t *testing.T) {
	router, store, _ := newTestServer(t)

	rec := postForm(t, router, "/add", url.Values{
		"title":     {"water plants"},
		"date":      {"2026-08-30"},
		"time":      {"10:00"},
		"frequency": {"daily"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Task added successfully!", flashMessage(t, rec))

	tasks, err := store.ListTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "water plants", tasks[0].Title)
	assert.Equal(t, models.FreqDaily, tasks[0].Frequency)
}

func TestAddTaskValidation(t *testing.T) {
	router, store, _ := newTestServer(t)

	rec := postForm(t, router, "/add", url.Values{
		"title": {""},
		"date":  {"2026-08-30"},
		"time":  {"10:00"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Title, date, and time are required!", flashMessage(t, rec))

	rec = postForm(t, router, "/add", url.Values{
		"title": {"broken"},
		"date":  {"tomorrow"},
		"time":  {"10:00"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Invalid date or time value!", flashMessage(t, rec))

	tasks, err := store.ListTasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCompleteRecurringTask(t *testing.T) {
	router, store, _ := newTestServer(t)

	now := time.Now()
	past := now.AddDate(0, 0, -3).Add(-time.Hour)
	id, err := store.InsertTask(models.Task{
		Title:     "water plants",
		Date:      past.Format("2006-01-02"),
		Time:      past.Format("15:04:05"),
		Frequency: models.FreqDaily,
	})
	require.NoError(t, err)

	rec := postForm(t, router, "/complete/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	task, err := store.GetTaskByID(id)
	require.NoError(t, err)
	assert.False(t, task.Completed)

	next, err := scheduler.Normalize(task.Date, task.Time)
	require.NoError(t, err)
	assert.True(t, next.After(now), "next occurrence %v must be in the future", next)

	entries, err := store.ListHistoryByTaskID(id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Missed)
	assert.Equal(t, "missed occurrences: 3", entries[0].Notes)
}

func TestCompleteOneTimeTask(t *testing.T) {
	router, store, _ := newTestServer(t)

	id, err := store.InsertTask(models.Task{
		Title:     "dentist",
		Date:      "2020-01-15",
		Time:      "09:00",
		Frequency: models.FreqNone,
	})
	require.NoError(t, err)

	rec := postForm(t, router, "/complete/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Task marked as completed.", flashMessage(t, rec))

	task, err := store.GetTaskByID(id)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	// дата и время разовой задачи не меняются
	assert.Equal(t, "2020-01-15", task.Date)
	assert.Equal(t, "09:00", task.Time)

	entries, err := store.ListHistoryByTaskID(id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Missed)
	assert.Equal(t, "one-time task", entries[0].Notes)
}

func TestCompleteUnknownTask(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := postForm(t, router, "/complete/999", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Task not found.", flashMessage(t, rec))
}

func TestCompleteUnsupportedFrequency(t *testing.T) {
	router, store, _ := newTestServer(t)

	id, err := store.InsertTask(models.Task{
		Title:     "broken",
		Date:      "2020-01-15",
		Time:      "09:00",
		Frequency: "weekly",
	})
	require.NoError(t, err)

	rec := postForm(t, router, "/complete/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, flashMessage(t, rec), "Cannot complete task")

	// задача не изменилась и история не записана
	task, err := store.GetTaskByID(id)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-15", task.Date)
	assert.False(t, task.Completed)
	entries, err := store.ListHistoryByTaskID(id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// сбой записи истории не мешает отметке выполнения
func TestCompleteSurvivesHistoryWriteFailure(t *testing.T) {
	router, store, db := newTestServer(t)

	id, err := store.InsertTask(models.Task{
		Title:     "dentist",
		Date:      "2020-01-15",
		Time:      "09:00",
		Frequency: models.FreqNone,
	})
	require.NoError(t, err)

	_, err = db.Exec("DROP TABLE history")
	require.NoError(t, err)

	rec := postForm(t, router, "/complete/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	task, err := store.GetTaskByID(id)
	require.NoError(t, err)
	assert.True(t, task.Completed)
}

func TestSnoozeTask(t *testing.T) {
	router, store, _ := newTestServer(t)

	id, err := store.InsertTask(models.Task{
		Title:     "call back",
		Date:      "2020-01-15",
		Time:      "09:00",
		Frequency: models.FreqNone,
	})
	require.NoError(t, err)

	now := time.Now()
	rec := postForm(t, router, "/snooze/"+strconv.FormatInt(id, 10), url.Values{"minutes": {"60"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Task snoozed for 60 minutes.", flashMessage(t, rec))

	task, err := store.GetTaskByID(id)
	require.NoError(t, err)
	point, err := scheduler.Normalize(task.Date, task.Time)
	require.NoError(t, err)
	assert.True(t, point.After(now.Add(58*time.Minute)))
	assert.True(t, point.Before(now.Add(62*time.Minute)))
}

func TestDeleteTask(t *testing.T) {
	router, store, _ := newTestServer(t)

	id, err := store.InsertTask(models.Task{
		Title:     "obsolete",
		Date:      "2026-08-30",
		Time:      "10:00",
		Frequency: models.FreqNone,
	})
	require.NoError(t, err)

	rec := postForm(t, router, "/delete/"+strconv.FormatInt(id, 10), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Task deleted.", flashMessage(t, rec))

	_, err = store.GetTaskByID(id)
	assert.ErrorIs(t, err, database.ErrTaskNotFound)
}

func TestReminderData(t *testing.T) {
	router, store, _ := newTestServer(t)

	_, err := store.InsertTask(models.Task{
		Title:     "water plants",
		Date:      "2026-08-30",
		Time:      "8:30", // время в свободной записи приводится к формату 15:04
		Frequency: models.FreqDaily,
	})
	require.NoError(t, err)

	doneID, err := store.InsertTask(models.Task{
		Title:     "done already",
		Date:      "2026-08-30",
		Time:      "09:00",
		Frequency: models.FreqNone,
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkTaskCompleted(doneID))

	req := httptest.NewRequest(http.MethodGet, "/reminder-data", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	items := []models.ReminderItem{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "water plants", items[0].Title)
	assert.Equal(t, "2026-08-30", items[0].Date)
	assert.Equal(t, "08:30", items[0].Time)
}

func TestIndexPage(t *testing.T) {
	router, store, _ := newTestServer(t)

	_, err := store.InsertTask(models.Task{
		Title:     "water plants",
		Date:      "2026-08-30",
		Time:      "10:00",
		Frequency: models.FreqDaily,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "water plants")
	assert.Contains(t, rec.Body.String(), "/complete/")
}
