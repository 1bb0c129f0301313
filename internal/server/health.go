// Package server exposes the process's HTTP surface: liveness and readiness
// probes over the consumer pipeline.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/interestgraph-backend/internal/consumers"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

type HealthServer struct {
	log    *logger.Logger
	srv    *http.Server
	states func() map[string]consumers.State
}

// NewHealthServer serves /healthz (process liveness) and /readyz (all
// consumers subscribed or consuming).
func NewHealthServer(log *logger.Logger, addr string, states func() map[string]consumers.State) *HealthServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &HealthServer{
		log:    log.With("component", "HealthServer"),
		states: states,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		st := h.states()
		ready := len(st) > 0
		for _, s := range st {
			if s != consumers.StateSubscribed && s != consumers.StateConsuming {
				ready = false
			}
		}
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"ready": ready, "consumers": st})
	})

	h.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (h *HealthServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("health server listening", "addr", h.srv.Addr)
		if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
