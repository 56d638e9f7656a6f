package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/FausT-VX/reminder-server/models"
)

// ErrUnsupportedFrequency - правило повторения не входит в список допустимых
var ErrUnsupportedFrequency = errors.New("unsupported frequency")

// LastDayOfMonth определяет последнее число месяца
func LastDayOfMonth(year int, month time.Month) int {
	ld := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local)
	return ld.Day()
}

// NextOccurrence возвращает следующее запланированное вхождение задачи
// относительно отметки t по правилу повторения frequency.
// Время суток во всех случаях сохраняется без изменений
func NextOccurrence(t time.Time, frequency string) (time.Time, error) {
	switch frequency {
	case models.FreqDaily:
		return t.AddDate(0, 0, 1), nil

	case models.FreqMonthly:
		y, m, d := t.Date()
		m++
		if m > time.December {
			m = time.January
			y++
		}
		// 31-е число переносится на последний день короткого месяца
		if last := LastDayOfMonth(y, m); d > last {
			d = last
		}
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil

	case models.FreqYearly:
		y, m, d := t.Date()
		y++
		// 29 февраля в невисокосный год становится 28-м
		if last := LastDayOfMonth(y, m); d > last {
			d = last
		}
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, frequency)
}
