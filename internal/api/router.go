package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-picker/internal/api/handlers"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// Handlers groups the API handlers; nil handlers leave their routes unregistered
type Handlers struct {
	Pick      *handlers.PickHandler
	Publish   *handlers.PublishHandler
	News      *handlers.NewsHandler
	Shortlist *handlers.ShortlistHandler
}

// NewRouter creates and configures the HTTP router.
// m may be nil, which disables /metrics and request timing.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, m *metrics.Registry, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// /api 경로는 루트 라우터에 직접 등록 (메서드 불일치 → 405)
	// Pick endpoints
	if h.Pick != nil {
		r.HandleFunc("/api/pick/run", h.Pick.RunPick).Methods("POST")
		r.HandleFunc("/api/pick/latest", h.Pick.LatestPick).Methods("GET")
	}

	// Publish endpoints
	if h.Publish != nil {
		r.HandleFunc("/api/publish", h.Publish.Publish).Methods("POST")
	}

	// News endpoints
	if h.News != nil {
		r.HandleFunc("/api/news/candidates", h.News.Candidates).Methods("GET")
		r.HandleFunc("/api/news/refresh", h.News.Refresh).Methods("POST")
	}

	// Shortlist endpoints
	if h.Shortlist != nil {
		r.HandleFunc("/api/shortlist", h.Shortlist.Today).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log, m))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "aegis-picker-api",
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and records their duration
func loggingMiddleware(log *logger.Logger, m *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			// Call next handler
			next.ServeHTTP(rec, r)

			// 경로 템플릿을 라벨로 사용
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			duration := time.Since(start)
			m.ObserveHTTP(route, r.Method, strconv.Itoa(rec.status), duration)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": duration,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]interface{}{
						"ok":     false,
						"reason": handlers.ReasonInternal,
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
