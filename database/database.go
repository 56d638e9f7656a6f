// database/database.go
package database

import (
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/FausT-VX/reminder-server/models"
	"github.com/FausT-VX/reminder-server/settings"
	"github.com/jmoiron/sqlx"
)

// ErrTaskNotFound - задача с указанным id отсутствует в базе
var ErrTaskNotFound = errors.New("task not found")

type TasksStore struct {
	db *sqlx.DB
}

func NewTasksStore(db *sqlx.DB) TasksStore {
	return TasksStore{db: db}
}

var info = log.New(os.Stdout, "reminder-server INF: ", log.Ldate|log.Ltime)

// CreateDB - создает базу данных по указанному пути dbPath
func CreateDB(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Printf("func CreateDB. Error: %v", err)
		return err
	}
	defer db.Close()

	// Создание таблиц tasks, history и индекса по полям date, time
	queryCreate := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title VARCHAR(128) NOT NULL DEFAULT "",
		date CHAR(10) NOT NULL DEFAULT "",
		time CHAR(8) NOT NULL DEFAULT "",
		frequency VARCHAR(16) NOT NULL DEFAULT "none",
		completed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS tasks_date_time ON tasks (date, time);
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		title VARCHAR(128) NOT NULL DEFAULT "",
		scheduled_at CHAR(19) NOT NULL DEFAULT "",
		completed_at CHAR(19) NOT NULL DEFAULT "",
		missed INTEGER NOT NULL DEFAULT 0,
		notes VARCHAR(1000) NOT NULL DEFAULT ""
	);
	CREATE INDEX IF NOT EXISTS history_task_id ON history (task_id);
	`

	_, err = db.Exec(queryCreate)
	if err != nil {
		log.Printf("func CreateDB. Error creating tables: %v", err)
		return err
	}

	return nil
}

// ConnectDB создает подключение к базе данных по указанному пути dbPath
func ConnectDB(dbPath string) (*sqlx.DB, error) {
	// если файл БД не существует, то создаём базу данных по указанному пути
	dbFile := settings.EnvDBFile
	if dbFile == "" {
		appPath, err := os.Getwd()
		if err != nil {
			log.Fatalf("func ConnectDB. Error: %v", err)
		}
		dbFile = filepath.Join(appPath, dbPath)
	}
	_, err := os.Stat(dbFile)

	var install bool
	if err != nil {
		install = true
	}
	// если install равен true, после открытия БД требуется выполнить
	// sql-запрос с CREATE TABLE и CREATE INDEX
	if install {
		if err := CreateDB(dbFile); err != nil {
			return nil, err
		}
		info.Println("Database has been successfully created")
	} else {
		info.Println("Database already exists")
	}

	db, err := sqlx.Connect("sqlite", dbFile)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetTaskByID - получение задачи по id
func (s TasksStore) GetTaskByID(id int64) (models.Task, error) {
	task := models.Task{}
	err := s.db.Get(&task, "SELECT id, title, date, time, frequency, completed FROM tasks WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks - получение всех задач, отсортированных по дате и времени
func (s TasksStore) ListTasks() ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, "SELECT id, title, date, time, frequency, completed FROM tasks ORDER BY date, time")
	if err != nil {
		return []models.Task{}, err
	}
	return tasks, nil
}

// ListIncompleteTasks - получение невыполненных задач, отсортированных по дате и времени
func (s TasksStore) ListIncompleteTasks() ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.Select(&tasks, "SELECT id, title, date, time, frequency, completed FROM tasks WHERE completed = 0 ORDER BY date, time")
	if err != nil {
		return []models.Task{}, err
	}
	return tasks, nil
}

// InsertTask - добавление задачи, возвращает присвоенный базой id
func (s TasksStore) InsertTask(task models.Task) (int64, error) {
	resultDB, err := s.db.NamedExec("INSERT INTO tasks (title, date, time, frequency) VALUES (:title, :date, :time, :frequency)", &task)
	if err != nil {
		return 0, err
	}
	// Получаем ID последней вставленной записи
	lastInsertId, err := resultDB.LastInsertId()
	if err != nil {
		return 0, err
	}
	return lastInsertId, nil
}

// UpdateTaskSchedule переносит невыполненную задачу на новую дату и время.
// Перенос выполняется только если запись все еще хранит дату и время,
// прочитанные вызывающей стороной: запись могла быть параллельно перенесена
// фоновым опросом либо запросом пользователя. Возвращает false если
// запись уже изменена другим путем
func (s TasksStore) UpdateTaskSchedule(task models.Task, newDate, newTime string) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE tasks SET date = ?, time = ? WHERE id = ? AND date = ? AND time = ? AND completed = 0",
		newDate, newTime, task.ID, task.Date, task.Time)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// MarkTaskCompleted - установка признака выполнения разовой задачи
func (s TasksStore) MarkTaskCompleted(id int64) error {
	result, err := s.db.Exec("UPDATE tasks SET completed = 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteTaskByID - удаление задачи по id вместе с ее историей
func (s TasksStore) DeleteTaskByID(id int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM history WHERE task_id = ?", id); err != nil {
		return err
	}
	result, err := tx.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return tx.Commit()
}

// InsertHistory - добавление записи истории выполнения.
// Запись истории не критична для переноса задачи: вызывающая сторона
// логирует ошибку и продолжает работу
func (s TasksStore) InsertHistory(entry models.HistoryEntry) error {
	_, err := s.db.NamedExec(
		"INSERT INTO history (task_id, title, scheduled_at, completed_at, missed, notes) VALUES (:task_id, :title, :scheduled_at, :completed_at, :missed, :notes)",
		&entry)
	return err
}

// ListHistoryByTaskID - получение истории выполнения задачи, свежие записи первыми
func (s TasksStore) ListHistoryByTaskID(taskID int64) ([]models.HistoryEntry, error) {
	entries := []models.HistoryEntry{}
	err := s.db.Select(&entries, "SELECT id, task_id, title, scheduled_at, completed_at, missed, notes FROM history WHERE task_id = ? ORDER BY id DESC", taskID)
	if err != nil {
		return []models.HistoryEntry{}, err
	}
	return entries, nil
}
