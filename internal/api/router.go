package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clienthub/clienthub/internal/config"
	"github.com/clienthub/clienthub/internal/middleware"
	"github.com/clienthub/clienthub/internal/store"
	"github.com/clienthub/clienthub/internal/ws"
)

var startTime = time.Now()

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// NewRouter wires every handler onto one chi router. Auth endpoints are
// public; everything else under /api requires a bearer token.
func NewRouter(cfg config.Config, logger *zap.Logger, db *sql.DB) http.Handler {
	r := chi.NewRouter()

	hub := ws.NewHub(logger)
	go hub.Run()

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret)

	users := store.NewUserStore(db)
	clients := store.NewClientStore(db)
	tasks := store.NewTaskStore(db)
	timers := store.NewTimerStore(db)
	profitability := store.NewProfitabilityStore(db)
	objectives := store.NewObjectiveStore(db)
	activity := store.NewActivityStore(db)
	reference := store.NewReferenceStore(db)

	authHandler := &AuthHandler{Users: users, Auth: auth, TokenTTL: cfg.Auth.TokenTTL}
	clientHandler := &ClientHandler{Clients: clients}
	taskHandler := &TaskHandler{Tasks: tasks, Hub: hub}
	timerHandler := &TimerHandler{Timers: timers, Profitability: profitability, Hub: hub, Logger: logger}
	profitabilityHandler := &ProfitabilityHandler{Profitability: profitability}
	impactHandler := &ImpactHandler{Tasks: tasks, Logger: logger}
	objectiveHandler := &ObjectiveHandler{Objectives: objectives}
	activityHandler := &ActivityHandler{Activity: activity}
	referenceHandler := &ReferenceHandler{Reference: reference}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(RequestLogger(logger))
	r.Use(Metrics)

	r.Get("/health", handleHealth)
	r.Get("/", handleRoot)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", &ws.Handler{Hub: hub, Auth: auth})

	r.Post("/api/auth/signup", authHandler.Signup)
	r.Post("/api/auth/login", authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Get("/api/me", authHandler.Me)

		r.Get("/api/clients", clientHandler.List)
		r.Post("/api/clients", clientHandler.Create)
		r.Get("/api/clients/{id}", clientHandler.Get)
		r.Put("/api/clients/{id}", clientHandler.Update)
		r.Delete("/api/clients/{id}", clientHandler.Delete)

		r.Put("/api/clients/{id}/profitability", profitabilityHandler.Upsert)
		r.Get("/api/clients/{id}/profitability", profitabilityHandler.Get)

		r.Get("/api/tasks", taskHandler.List)
		r.Post("/api/tasks", taskHandler.Create)
		r.Get("/api/tasks/{id}", taskHandler.Get)
		r.Patch("/api/tasks/{id}", taskHandler.Update)
		r.Post("/api/tasks/{id}/complete", taskHandler.Complete)
		r.Delete("/api/tasks/{id}", taskHandler.Delete)

		r.Post("/api/timers/start", timerHandler.Start)
		r.Get("/api/timers/active", timerHandler.Active)
		r.Get("/api/timers", timerHandler.List)
		r.Post("/api/timers/{id}/pause", timerHandler.Pause)
		r.Post("/api/timers/{id}/resume", timerHandler.Resume)
		r.Post("/api/timers/{id}/stop", timerHandler.Stop)

		r.Get("/api/impact/analysis", impactHandler.Analyze)
		r.Post("/api/impact/apply", impactHandler.Apply)

		r.Get("/api/objectives", objectiveHandler.List)
		r.Post("/api/objectives", objectiveHandler.Create)
		r.Put("/api/objectives/{id}", objectiveHandler.Update)
		r.Delete("/api/objectives/{id}", objectiveHandler.Delete)

		r.Get("/api/activity", activityHandler.List)

		r.Get("/api/badges", referenceHandler.ListBadges)
		r.Get("/api/levels", referenceHandler.ListLevels)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   getVersion(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"name":    "ClientHub",
		"tagline": "Task and client management for small teams",
		"health":  "/health",
	})
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
