package main

import (
	"log"
	"net/http"

	_ "modernc.org/sqlite"

	"github.com/FausT-VX/reminder-server/database"
	"github.com/FausT-VX/reminder-server/handlers"
	"github.com/FausT-VX/reminder-server/service/poller"
	"github.com/FausT-VX/reminder-server/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("reminder-server: ")
	log.Println("Starting application...")

	// Соединение с базой данных
	db, err := database.ConnectDB(settings.DBPath)
	if err != nil {
		log.Println(err)
		return
	}
	defer db.Close()
	store := database.NewTasksStore(db)

	// обработчики и шаблон страницы списка
	handler, err := handlers.New(store, settings.WebDir)
	if err != nil {
		log.Printf("Handlers init error: %s", err.Error())
		return
	}

	// инициализация маршрутизатора
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/", handler.Index)
	router.Post("/add", handler.Add)
	router.Post("/complete/{id}", handler.Complete)
	router.Post("/snooze/{id}", handler.Snooze)
	router.Post("/delete/{id}", handler.Delete)
	router.Get("/reminder-data", handler.ReminderData)

	// фоновый опрос напоминаний
	reminderPoller := poller.New(store)
	if err := reminderPoller.Start(settings.EnvPollInterval()); err != nil {
		log.Printf("Poller start error: %s", err.Error())
		return
	}
	defer reminderPoller.Stop()

	port := ":" + settings.EnvPort
	if port == ":" {
		port = settings.Port
	}

	log.Printf("Starting server on port %s...\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		log.Printf("Start server error: %s", err.Error())
		return
	}
}
