package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/chat"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	"github.com/Shreya-nipunge/Glowra/internal/meditation"
	mw "github.com/Shreya-nipunge/Glowra/internal/middleware"
	"github.com/Shreya-nipunge/Glowra/internal/planner"
)

type Deps struct {
	Activity    *activity.Service
	Planner     *planner.Engine
	Chat        *chat.Service
	Meditation  *meditation.Service
	Insights    *insights.Summarizer
	Progression *gamification.Progression
	Auth        *mw.AuthMiddleware
	Logger      *zap.Logger

	Environment    string
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.DevUserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(60 * time.Second))

	progress := NewProgressHandler(d.Activity, d.Insights, d.Logger)
	journal := NewJournalHandler(d.Activity, d.Insights, d.Logger)
	plans := NewPlannerHandler(d.Planner, d.Insights, d.Logger)
	talk := NewChatHandler(d.Chat, d.Insights, d.Logger)
	sessions := NewMeditationHandler(d.Meditation, d.Insights, d.Logger)
	game := NewGamificationHandler(d.Insights, d.Logger)
	auth := NewAuthHandler(d.Progression.Ledger(), d.Logger)

	r.Get("/health", health(d.Environment))

	r.Route("/api", func(api chi.Router) {
		api.Use(d.Auth.RequireAuth)

		api.Post("/auth/verify", auth.Verify)

		api.Route("/progress", func(pr chi.Router) {
			pr.Post("/mood-logs", progress.CreateMoodLog)
			pr.Get("/mood-logs", progress.ListMoodLogs)
			pr.Get("/weekly", progress.Weekly)
			pr.Get("/insights", progress.Insights)
		})

		api.Route("/journal", func(jr chi.Router) {
			jr.Post("/", journal.Create)
			jr.Get("/", journal.List)
			jr.Get("/insights/summary", journal.Summary)
			jr.Get("/{entryID}", journal.Get)
		})

		api.Route("/planner", func(pl chi.Router) {
			pl.Get("/today", plans.Today)
			pl.Get("/history", plans.History)
			pl.Get("/plans/{date}", plans.ForDate)
			pl.Post("/task/{taskID}/complete", plans.CompleteTask)
			pl.Post("/task/{taskID}/skip", plans.SkipTask)
		})

		api.Route("/chat", func(cr chi.Router) {
			cr.Post("/", talk.Send)
			cr.Get("/conversations", talk.Conversations)
			cr.Get("/conversations/{conversationID}", talk.Conversation)
			cr.Get("/suggestions", talk.Suggestions)
		})

		api.Route("/meditations", func(mr chi.Router) {
			mr.Get("/history", sessions.History)
			mr.Post("/{meditationID}/start", sessions.Start)
			mr.Post("/sessions/{sessionID}/complete", sessions.Complete)
		})

		api.Route("/gamification", func(gr chi.Router) {
			gr.Get("/badges", game.Badges)
			gr.Get("/stats", game.Stats)
		})

		api.Post("/import", progress.Import)
	})

	return r
}

func health(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "ok",
			"service":     "glowra-backend",
			"environment": env,
		})
	}
}
