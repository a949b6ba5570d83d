package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/chat"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/session"
)

// Answerer streams answers to chat queries. *chat.Agent implements it.
type Answerer interface {
	Answer(ctx context.Context, sessionID, query string, onDelta func(string) error) (chat.Answer, error)
}

type Config struct {
	Store    *cache.Store
	Sessions *session.Manager
	Agent    Answerer
	// Limit bounds the commits returned by the insights endpoint.
	Limit int
	// StaticDir, when set, is served at / with index.html as the fallback.
	StaticDir string
	Log       *logger.Logger
}

// CORS allows the dashboard dev servers to call the API.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:5174",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
			"http://127.0.0.1:5174",
		},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	})
}

// RequestLogger logs one debug line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func NewRouter(cfg Config) *gin.Engine {
	log := logger.OrNop(cfg.Log)
	h := &handler{cfg: cfg, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(CORS())

	r.GET("/healthcheck", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws", h.chatSocket)

	api := r.Group("/api")
	{
		api.GET("/insights", h.insights)
		api.GET("/sessions", h.listSessions)
		api.GET("/sessions/:id", h.getSession)
		api.DELETE("/sessions/:id", h.deleteSession)
	}

	if cfg.StaticDir != "" {
		static := http.FileServer(http.Dir(cfg.StaticDir))
		index := filepath.Join(cfg.StaticDir, "index.html")
		r.NoRoute(func(c *gin.Context) {
			if _, err := os.Stat(filepath.Join(cfg.StaticDir, filepath.Clean("/"+c.Request.URL.Path))); err == nil {
				static.ServeHTTP(c.Writer, c.Request)
				return
			}
			c.File(index)
		})
	}
	return r
}

// Server is the dashboard HTTP server.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func NewServer(port int, cfg Config) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger.OrNop(cfg.Log),
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown failed: %w", err)
	}
	s.log.Info("dashboard stopped")
	return nil
}
