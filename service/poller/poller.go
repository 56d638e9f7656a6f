// service/poller/poller.go
package poller

import (
	"fmt"
	"log"
	"time"

	"github.com/FausT-VX/reminder-server/database"
	"github.com/FausT-VX/reminder-server/models"
	"github.com/FausT-VX/reminder-server/service/scheduler"
	"github.com/FausT-VX/reminder-server/settings"
	"github.com/robfig/cron/v3"
)

// Poller - фоновый опрос напоминаний: с заданным интервалом просматривает
// невыполненные задачи, объявляет наступившие и переносит повторяющиеся
// на следующее будущее вхождение
type Poller struct {
	store database.TasksStore
	cron  *cron.Cron
}

func New(store database.TasksStore) *Poller {
	return &Poller{store: store, cron: cron.New()}
}

// Start запускает опрос с интервалом interval
func (p *Poller) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}
	spec := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := p.cron.AddFunc(spec, func() { p.CheckDueTasks(time.Now()) }); err != nil {
		return err
	}
	p.cron.Start()
	log.Printf("Reminder poller started, interval %v", interval)
	return nil
}

// Stop останавливает опрос, дожидаясь завершения текущего прохода
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// CheckDueTasks выполняет один проход по невыполненным задачам.
// Ошибки отдельных задач не прерывают проход
func (p *Poller) CheckDueTasks(now time.Time) {
	tasks, err := p.store.ListIncompleteTasks()
	if err != nil {
		log.Printf("Poller: list tasks error: %v", err)
		return
	}

	for _, task := range tasks {
		due, err := scheduler.Normalize(task.Date, task.Time)
		if err != nil {
			log.Printf("Poller: task %d has malformed schedule: %v", task.ID, err)
			continue
		}
		if due.After(now) {
			continue
		}

		log.Printf("🔔 Reminder: %s is due now!", task.Title)

		if !task.IsRecurring() {
			// разовая задача остается как есть и будет объявлена снова
			log.Printf("⏰ Will remind %q again on the next pass until completed", task.Title)
			continue
		}

		if err := p.reschedule(task, due, now); err != nil {
			log.Printf("Poller: reschedule task %d error: %v", task.ID, err)
		}
	}
}

// reschedule переносит повторяющуюся задачу на ближайшее будущее вхождение
func (p *Poller) reschedule(task models.Task, due, now time.Time) error {
	next := due
	for !next.After(now) {
		var err error
		if next, err = scheduler.NextOccurrence(next, task.Frequency); err != nil {
			return err
		}
	}

	updated, err := p.store.UpdateTaskSchedule(task,
		next.Format(settings.DateFormat), next.Format(settings.TimeLongFormat))
	if err != nil {
		return err
	}
	if !updated {
		// задачу параллельно перенес запрос пользователя
		log.Printf("Poller: task %d already rescheduled elsewhere, skipping", task.ID)
		return nil
	}
	log.Printf("Poller: task %d rescheduled to %s %s", task.ID,
		next.Format(settings.DateFormat), next.Format(settings.TimeFormat))
	return nil
}
