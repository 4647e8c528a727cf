package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/authapi/infrastructure/http/handler"
	"github.com/fixora/authapi/infrastructure/http/middleware"
	"github.com/fixora/authapi/infrastructure/http/response"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type Config struct {
	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CorrelationIDHeader  string
	RequestLogEnabled    bool
}

type Handlers struct {
	Auth          *handler.AuthHandler
	PasswordReset *handler.PasswordResetHandler
	Users         *handler.UserHandler
	Health        *handler.HealthHandler
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

type Middlewares struct {
	Auth      *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
	Observer  middleware.HTTPObserver
}

// New builds the API routes:
//
//	POST /api/user/register
//	POST /api/user/authenticate
//	POST /api/user/refresh
//	GET  /api/user, /api/user/           (bearer token)
//	POST /api/user/send-reset-email/{email}
//	POST /api/user/reset-password
//	GET  /health
//	GET  /metrics
func New(config Config, h Handlers, m Middlewares, log logger.Logger) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Message(w, http.StatusNotFound, "Not found")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	r.Use(middleware.Recovery(log))
	var requestLog logger.Logger
	if config.RequestLogEnabled {
		requestLog = log
	}
	r.Use(middleware.RequestLogger(requestLog, m.Observer))

	r.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet).Name("health")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet).Name("metrics")
	}

	// Subrouters do not inherit the parent's fallback handlers.
	api := r.PathPrefix("/api/user").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	limited := func(f http.HandlerFunc) http.Handler {
		if m.RateLimit == nil {
			return f
		}
		return m.RateLimit.RateLimit(f)
	}

	api.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost).Name("register")
	api.Handle("/authenticate", limited(h.Auth.Authenticate)).Methods(http.MethodPost).Name("authenticate")
	api.Handle("/refresh", limited(h.Auth.Refresh)).Methods(http.MethodPost).Name("refresh")
	api.Handle("/send-reset-email/{email}", limited(h.PasswordReset.SendResetEmail)).Methods(http.MethodPost).Name("send_reset_email")
	api.Handle("/reset-password", limited(h.PasswordReset.ResetPassword)).Methods(http.MethodPost).Name("reset_password")
	listUsers := m.Auth.RequireAuth(http.HandlerFunc(h.Users.ListUsers))
	api.Handle("", listUsers).Methods(http.MethodGet).Name("list_users_bare")
	api.Handle("/", listUsers).Methods(http.MethodGet).Name("list_users")

	var root http.Handler = r
	if config.CORSEnabled {
		root = middleware.CORSMiddleware(config.CORSAllowedOrigins, config.CORSAllowCredentials)(root)
	}
	return middleware.CorrelationIDMiddleware(config.CorrelationIDHeader)(root)
}
