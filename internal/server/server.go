// Package server exposes sentence checking over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/record"
	"github.com/ppiankov/sentcheck/internal/score"
)

const shutdownTimeout = 10 * time.Second

// Server routes API requests to a checker and a record store
type Server struct {
	checker *check.Checker
	store   record.Store
	scorer  *score.Scorer
	router  *gin.Engine
}

// New builds the router. store may be nil, in which case nothing is recorded
// and the record endpoints return empty tables.
func New(checker *check.Checker, store record.Store) *Server {
	if store == nil {
		store = record.NewMemoryStore()
	}

	s := &Server{
		checker: checker,
		store:   store,
		scorer:  score.NewScorer(),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", s.health)

	v1 := router.Group("/v1")
	{
		v1.GET("/policies", s.policies)
		v1.POST("/check", s.check)
		v1.GET("/records/queries.csv", s.queriesCSV)
		v1.GET("/records/tokens.csv", s.tokensCSV)
		v1.GET("/report", s.report)
	}

	s.router = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("api shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
