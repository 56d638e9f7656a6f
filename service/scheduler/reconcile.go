package scheduler

import (
	"fmt"
	"time"

	"github.com/FausT-VX/reminder-server/models"
	"github.com/FausT-VX/reminder-server/settings"
)

// Пороги опоздания при выполнении задачи
const (
	onceMissedAfter      = time.Minute     // для разовых задач
	recurringMissedAfter = 5 * time.Second // для повторяющихся задач
)

// Result - итог сверки выполнения задачи.
// Для разовых задач NextOccurrence остается нулевым значением
type Result struct {
	CompletedOccurrence time.Time // вхождение, которое считается выполненным
	NextOccurrence      time.Time // ближайшее будущее вхождение
	Missed              bool      // выполнение произошло заметно позже срока
	MissedCount         int       // количество пропущенных вхождений
}

// Reconcile сверяет выполнение задачи с текущим моментом now:
// определяет какое вхождение выполнено, сколько вхождений пропущено
// и на какое будущее вхождение перенести задачу.
//
// Разовая задача завершается на своем запланированном вхождении.
// Для повторяющейся задачи выполняется проход вперед от сохраненного
// вхождения: пока очередной шаг не превышает now, вхождение считается
// пропущенным. Вхождение, совпадающее с now, считается уже прошедшим,
// поэтому следующее вхождение всегда строго больше now
func Reconcile(task models.Task, now time.Time) (Result, error) {
	scheduled, err := Normalize(task.Date, task.Time)
	if err != nil {
		return Result{}, err
	}

	if !task.IsRecurring() {
		return Result{
			CompletedOccurrence: scheduled,
			Missed:              now.Sub(scheduled) > onceMissedAfter,
		}, nil
	}

	completed := scheduled
	missedCount := 0
	if !scheduled.After(now) {
		for {
			nxt, err := NextOccurrence(completed, task.Frequency)
			if err != nil {
				return Result{}, err
			}
			if nxt.After(now) {
				break
			}
			completed = nxt
			missedCount++
		}
	}

	// хотя бы один шаг: вхождение равное now уже прошло
	next, err := NextOccurrence(completed, task.Frequency)
	if err != nil {
		return Result{}, err
	}
	for !next.After(now) {
		if next, err = NextOccurrence(next, task.Frequency); err != nil {
			return Result{}, err
		}
	}

	return Result{
		CompletedOccurrence: completed,
		NextOccurrence:      next,
		Missed:              now.Sub(completed) > recurringMissedAfter,
		MissedCount:         missedCount,
	}, nil
}

// HistoryEntry формирует запись истории по итогам сверки
func (r Result) HistoryEntry(task models.Task, now time.Time) models.HistoryEntry {
	notes := "one-time task"
	if task.IsRecurring() {
		notes = fmt.Sprintf("missed occurrences: %d", r.MissedCount)
	}
	return models.HistoryEntry{
		TaskID:      task.ID,
		Title:       task.Title,
		ScheduledAt: r.CompletedOccurrence.Format(settings.StampFormat),
		CompletedAt: now.Format(settings.StampFormat),
		Missed:      r.Missed,
		Notes:       notes,
	}
}
