// models/models.go
package models

// Допустимые правила повторения задачи
const (
	FreqNone    = "none"
	FreqDaily   = "daily"
	FreqMonthly = "monthly"
	FreqYearly  = "yearly"
)

// Task - задача с датой и временем следующего выполнения.
// Пара date + time всегда указывает на ближайшее невыполненное вхождение
type Task struct {
	ID        int64  `json:"id"        db:"id"`
	Title     string `json:"title"     db:"title"`
	Date      string `json:"date"      db:"date"`
	Time      string `json:"time"      db:"time"`
	Frequency string `json:"frequency" db:"frequency"`
	Completed bool   `json:"completed" db:"completed"`
}

// TableName задает имя таблицы для структуры Task.
func (Task) TableName() string {
	return "tasks"
}

// IsRecurring сообщает, является ли задача повторяющейся
func (t Task) IsRecurring() bool {
	return t.Frequency != "" && t.Frequency != FreqNone
}

// HistoryEntry - запись истории о выполнении одного вхождения задачи.
// Записи только добавляются и удаляются каскадом вместе с задачей
type HistoryEntry struct {
	ID          int64  `json:"id"           db:"id"`
	TaskID      int64  `json:"task_id"      db:"task_id"`
	Title       string `json:"title"        db:"title"`
	ScheduledAt string `json:"scheduled_at" db:"scheduled_at"`
	CompletedAt string `json:"completed_at" db:"completed_at"`
	Missed      bool   `json:"missed"       db:"missed"`
	Notes       string `json:"notes"        db:"notes"`
}

// структура активного напоминания для возврата в формате json
type ReminderItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}
