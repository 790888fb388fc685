package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/aegis-picker/pkg/config"
	"github.com/wonny/aegis-picker/pkg/logger"
	"github.com/wonny/aegis-picker/pkg/metrics"
)

// shutdownGrace bounds how long in-flight requests may drain
const shutdownGrace = 30 * time.Second

// Server runs one HTTP listener until its context is cancelled
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	grace      time.Duration

	mu   sync.Mutex
	addr string // 실제 바인딩 주소 (":0" 테스트용)
}

// New creates the picker API server on cfg.Port
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	// 동기 픽 실행이 S3/S4 타임아웃을 넘지 않도록
	writeTimeout := 15*time.Second + cfg.Picker.TechTimeout + cfg.Picker.NewsTimeout
	return newServer(":"+cfg.Port, router, writeTimeout, log.WithModule("api"))
}

// NewMetricsServer serves only /metrics on cfg.MetricsPort (scheduler process)
func NewMetricsServer(cfg *config.Config, m *metrics.Registry, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return newServer(":"+cfg.MetricsPort, mux, 10*time.Second, log.WithModule("metrics"))
}

func newServer(addr string, h http.Handler, writeTimeout time.Duration, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger: log,
		grace:  shutdownGrace,
	}
}

// Addr returns the bound address once Run is listening, "" before
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens and serves until ctx is cancelled, then drains in-flight requests.
// A listener failure is returned immediately; a clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.WithField("addr", ln.Addr().String()).Info("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
