package settings

import (
	"os"
	"strconv"
	"time"
)

// Настройки по умолчанию
const (
	DateFormat     = "2006-01-02"          // Формат даты задачи
	TimeFormat     = "15:04"               // Формат времени задачи
	TimeLongFormat = "15:04:05"            // Формат времени с секундами
	StampFormat    = "2006-01-02 15:04:05" // Формат отметок в истории
	DBPath         = "./reminders.db"      // Путь к базе данных
	Port           = ":7540"               // Порт сервера
	WebDir         = "./web"               // Директория для web файлов
)

// Параметры фонового опроса и откладывания задач
const (
	PollInterval  = 5 * time.Minute // Интервал проверки напоминаний
	SnoozeMinutes = 5               // Откладывание задачи по умолчанию, минут
)

var EnvDBFile = os.Getenv("TODO_DBFILE") // Файл БД из переменной окружения TODO_DBFILE
var EnvPort = os.Getenv("TODO_PORT")     // Порт из переменной окружения TODO_PORT

// EnvPollInterval возвращает интервал фонового опроса из переменной окружения
// TODO_POLL_MINUTES либо значение по умолчанию PollInterval
func EnvPollInterval() time.Duration {
	mins, err := strconv.Atoi(os.Getenv("TODO_POLL_MINUTES"))
	if err != nil || mins <= 0 {
		return PollInterval
	}
	return time.Duration(mins) * time.Minute
}
