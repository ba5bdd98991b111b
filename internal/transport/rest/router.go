package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quizdeck/internal/cache"
	"quizdeck/internal/config"
	"quizdeck/internal/crowdsource"
	"quizdeck/internal/game"
	"quizdeck/internal/repository"
	"quizdeck/internal/resume"
	"quizdeck/internal/service"
	"quizdeck/internal/transport/rest/handler"
	"quizdeck/internal/transport/rest/middleware"
	"quizdeck/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService        *service.AuthService
	GameService        *game.Service
	CrowdsourceService *crowdsource.Service
	AnswerService      *service.AnswerService
	Activities         repository.ActivityRepo
	Leaderboard        cache.Leaderboard
	Resume             *resume.Manager
	WSHub              *ws.Hub
	Game               config.Game
	Logger             *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	activityHandler := handler.NewActivityHandler(c.Activities)
	sessionHandler := handler.NewSessionHandler(
		c.GameService, c.Activities, c.AuthService, c.AnswerService,
		c.Leaderboard, c.Resume, c.Game, c.Logger)
	crowdsourceHandler := handler.NewCrowdsourceHandler(c.CrowdsourceService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{pin}/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{pin}/host", wsHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{pin}/player", wsHandler.PlayerWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/activities", activityHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/activities", activityHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/activities/{activityId}", activityHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/activities/{activityId}", activityHandler.Update).Methods("PUT", "OPTIONS")
	hostRoutes.HandleFunc("/activities/{activityId}", activityHandler.Delete).Methods("DELETE", "OPTIONS")

	hostRoutes.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	// Registered before /sessions/{pin} so "resume" is not read as a PIN.
	hostRoutes.HandleFunc("/sessions/resume", sessionHandler.Resume).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}", sessionHandler.Get).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}", sessionHandler.Cancel).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/start", sessionHandler.Start).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/questions/start", sessionHandler.StartQuestion).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/questions/finish", sessionHandler.FinishQuestion).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/slides/show", sessionHandler.ShowSlide).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/advance", sessionHandler.Advance).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/ranking/start", sessionHandler.StartRanking).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/ranking/end", sessionHandler.EndRanking).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/collecting/end", sessionHandler.EndCollecting).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/end", sessionHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/leaderboard", sessionHandler.Leaderboard).Methods("GET", "OPTIONS")

	hostRoutes.HandleFunc("/sessions/{pin}/submissions", crowdsourceHandler.List).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/submissions/lock", crowdsourceHandler.Lock).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/submissions/evaluate", crowdsourceHandler.Evaluate).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/submissions/selection", crowdsourceHandler.SaveSelection).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/sessions/{pin}/submissions/{submissionId}/toggle", crowdsourceHandler.ToggleSelection).Methods("POST", "OPTIONS")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/sessions/{pin}/answers", sessionHandler.SubmitAnswer).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/sessions/{pin}/submissions", crowdsourceHandler.Submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
