package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quickienotes/quickie/internal/auth"
	"github.com/quickienotes/quickie/internal/db"
)

// Server is the remote store backend: auth, note documents and attachment
// blobs behind a bearer token.
type Server struct {
	db      *db.DB
	jwt     *auth.JWTManager
	baseURL string
	router  *chi.Mux
}

type contextKey string

const userContextKey contextKey = "user"

func New(database *db.DB, jwtManager *auth.JWTManager, baseURL string) *Server {
	s := &Server{
		db:      database,
		jwt:     jwtManager,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	authLimiter := NewAuthRateLimiter()
	apiLimiter := NewAPIRateLimiter()

	s.router.Get("/health", s.healthHandler)

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.loginHandler)
		r.Post("/register", s.registerHandler)
	})

	s.router.Route("/api/notes", func(r chi.Router) {
		r.Use(apiLimiter.Middleware)
		r.Use(s.authMiddleware)
		r.Get("/", s.listNotesHandler)
		r.Post("/", s.createNoteHandler)
		r.Get("/{id}", s.getNoteHandler)
		r.Put("/{id}", s.updateNoteHandler)
		r.Delete("/{id}", s.deleteNoteHandler)
		r.Put("/{id}/attachments/{name}", s.uploadAttachmentHandler)
		r.Get("/{id}/attachments/{name}", s.getAttachmentHandler)
		r.Delete("/{id}/attachments/{name}", s.deleteAttachmentHandler)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			jsonError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			jsonError(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := s.jwt.Validate(parts[1])
		if err != nil {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := s.db.GetUserByID(claims.UserID)
		if err != nil || user == nil || !user.Active {
			jsonError(w, "user not found or inactive", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserFromContext(r *http.Request) *db.User {
	user, _ := r.Context().Value(userContextKey).(*db.User)
	return user
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}
