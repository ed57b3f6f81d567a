package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/five82/recast/internal/api"
)

// BasePath is where the API is mounted.
const BasePath = "/api/v1"

// DefaultStep is how long a job spends in each non-terminal status.
const DefaultStep = 5 * time.Second

const timestampLayout = "2006-01-02T15:04:05.999999"

// Options configure a Server.
type Options struct {
	// Step is the time a job spends pending and then processing.
	Step   time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

type user struct {
	api.User
	password string
}

type jobRecord struct {
	job       api.Job
	created   time.Time
	fileName  string
	contentID string
	outputs   map[api.Platform]api.Output
}

// Server is an in-memory implementation of the REST contract the client
// consumes.
type Server struct {
	step time.Duration
	now  func() time.Time
	log  zerolog.Logger

	mu     sync.Mutex
	users  map[string]*user // by email
	tokens map[string]string
	jobs   map[string]*jobRecord
}

// New builds an empty Server.
func New(opts Options) *Server {
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		step:   step,
		now:    now,
		log:    opts.Logger.With().Str("component", "mockapi").Logger(),
		users:  make(map[string]*user),
		tokens: make(map[string]string),
		jobs:   make(map[string]*jobRecord),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLogger(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(BasePath, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.With(s.authenticate).Post("/logout", s.logout)
			r.With(s.authenticate).Get("/me", s.me)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/jobs", s.listJobs)
			r.Get("/jobs/{id}", s.getJob)
			r.Post("/jobs/{id}/cancel", s.cancelJob)
			r.Delete("/jobs/{id}", s.deleteJob)

			r.Get("/outputs/{id}/all", s.jobOutputs)
			r.Post("/outputs/{id}/regenerate", s.regenerate)

			r.Get("/analytics/", s.analytics)
			r.Post("/content/upload", s.upload)
		})
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			l.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		userID, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID, token)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
