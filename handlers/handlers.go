// handlers/handlers.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/FausT-VX/reminder-server/database"
	"github.com/FausT-VX/reminder-server/models"
	"github.com/FausT-VX/reminder-server/service/scheduler"
	"github.com/FausT-VX/reminder-server/settings"
	"github.com/go-chi/chi/v5"
)

// Handler - обработчики web-интерфейса и JSON-ленты напоминаний.
// Хранилище передается явно, без глобального состояния
type Handler struct {
	store database.TasksStore
	tmpl  *template.Template
}

// New создает Handler, загружая шаблон списка задач из каталога webDir
func New(store database.TasksStore, webDir string) (*Handler, error) {
	tmpl, err := template.ParseFiles(filepath.Join(webDir, "index.html"))
	if err != nil {
		return nil, err
	}
	return &Handler{store: store, tmpl: tmpl}, nil
}

// страница списка задач
type indexPage struct {
	Tasks []models.Task
	Flash string
}

// Index обработчик отображает страницу со списком задач и формой добавления
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page := indexPage{Tasks: tasks, Flash: popFlash(w, r)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, page); err != nil {
		log.Printf("Handler Index: template error: %v", err)
	}
}

// Add обработчик создает новую задачу по данным формы
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	dateInput := r.FormValue("date")
	timeInput := r.FormValue("time")
	frequency := r.FormValue("frequency")

	if title == "" || dateInput == "" || timeInput == "" {
		setFlash(w, "Title, date, and time are required!")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if frequency == "" {
		frequency = models.FreqNone
	}

	// проверяем что дату и время вообще можно разобрать
	if _, err := scheduler.Normalize(dateInput, timeInput); err != nil {
		setFlash(w, "Invalid date or time value!")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	task := models.Task{Title: title, Date: dateInput, Time: timeInput, Frequency: frequency}
	id, err := h.store.InsertTask(task)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("Handler Add: id = %v; task = %v", id, task)

	setFlash(w, "Task added successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Complete обработчик отмечает выполнение задачи: разовая задача получает
// признак выполнения, повторяющаяся переносится на следующее будущее
// вхождение; в обоих случаях пишется запись истории
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskFromURL(w, r)
	if !ok {
		return
	}

	now := time.Now()
	result, err := scheduler.Reconcile(task, now)
	if err != nil {
		// дата, время или правило повторения не распознаны: задача не изменяется
		setFlash(w, "Cannot complete task: "+err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	log.Printf("Handler Complete: id = %v; result = %+v", task.ID, result)

	if task.IsRecurring() {
		updated, err := h.store.UpdateTaskSchedule(task,
			result.NextOccurrence.Format(settings.DateFormat),
			result.NextOccurrence.Format(settings.TimeLongFormat))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !updated {
			setFlash(w, "Task was rescheduled concurrently, please retry.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		setFlash(w, fmt.Sprintf("Task completed, next occurrence %s %s.",
			result.NextOccurrence.Format(settings.DateFormat),
			result.NextOccurrence.Format(settings.TimeFormat)))
	} else {
		if err := h.store.MarkTaskCompleted(task.ID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		setFlash(w, "Task marked as completed.")
	}

	// история пишется по возможности и не блокирует перенос задачи
	if err := h.store.InsertHistory(result.HistoryEntry(task, now)); err != nil {
		log.Printf("Handler Complete: history write failed for task %d: %v", task.ID, err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Snooze обработчик откладывает задачу на указанное в форме число минут
// (по умолчанию settings.SnoozeMinutes)
func (h *Handler) Snooze(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskFromURL(w, r)
	if !ok {
		return
	}

	minutes := settings.SnoozeMinutes
	if m, err := strconv.Atoi(r.FormValue("minutes")); err == nil && m > 0 {
		minutes = m
	}

	target := time.Now().Add(time.Duration(minutes) * time.Minute)
	updated, err := h.store.UpdateTaskSchedule(task,
		target.Format(settings.DateFormat), target.Format(settings.TimeLongFormat))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !updated {
		setFlash(w, "Task was rescheduled concurrently, please retry.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	log.Printf("Handler Snooze: id = %v; minutes = %v", task.ID, minutes)

	setFlash(w, fmt.Sprintf("Task snoozed for %d minutes.", minutes))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Delete обработчик удаляет задачу вместе с историей
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskFromURL(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTaskByID(task.ID); err != nil {
		if errors.Is(err, database.ErrTaskNotFound) {
			setFlash(w, "Task not found.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("Handler Delete: id = %v", task.ID)

	setFlash(w, "Task deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ReminderData обработчик возвращает активные напоминания в формате JSON
// c датой в формате 2006-01-02 и временем в формате 15:04
func (h *Handler) ReminderData(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListIncompleteTasks()
	if err != nil {
		http.Error(w, errorJSON(err), http.StatusInternalServerError)
		return
	}

	items := []models.ReminderItem{}
	for _, task := range tasks {
		// дата и время в базе могли оказаться в разных представлениях,
		// поэтому приводим их через нормализацию
		point, err := scheduler.Normalize(task.Date, task.Time)
		if err != nil {
			log.Printf("Handler ReminderData: task %d has malformed schedule: %v", task.ID, err)
			continue
		}
		items = append(items, models.ReminderItem{
			ID:    task.ID,
			Title: task.Title,
			Date:  point.Format(settings.DateFormat),
			Time:  point.Format(settings.TimeFormat),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(items)
}

// taskFromURL получает задачу по параметру id из пути запроса.
// При отсутствии задачи выставляет flash-сообщение и редирект на список
func (h *Handler) taskFromURL(w http.ResponseWriter, r *http.Request) (models.Task, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid task ID", http.StatusBadRequest)
		return models.Task{}, false
	}

	task, err := h.store.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, database.ErrTaskNotFound) {
			setFlash(w, "Task not found.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return models.Task{}, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return models.Task{}, false
	}
	return task, true
}

// setFlash сохраняет сообщение для показа на странице списка
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:  "flash",
		Value: url.QueryEscape(msg),
		Path:  "/",
	})
}

// popFlash возвращает сохраненное сообщение и удаляет его
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie("flash")
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: "", Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// errorJSON возвращает json-строку с ошибкой
func errorJSON(err error) string {
	jsonError, err := json.Marshal(map[string]string{"error": err.Error()})
	if err != nil {
		return ""
	}
	return string(jsonError)
}
