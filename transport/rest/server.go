package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/memorymatch-backend/internal/transport"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger  *slog.Logger
	adapter transport.Adapter
}

func New(logger *slog.Logger, adapter transport.Adapter) *Server {
	return &Server{
		logger:  logger.With("component", "rest"),
		adapter: adapter,
	}
}

// Start - starts HTTP server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown http server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), that.logRequests)

	router.GET("/ping", that.handlePing)

	rooms := router.Group("/api/rooms")
	rooms.POST("", that.handleCreateRoom)
	rooms.GET("/:code", that.handleGetRoom)
	rooms.POST("/:code/join", that.handleJoinRoom)
	rooms.POST("/:code/leave", that.handleLeaveRoom)

	return router
}

func (that *Server) logRequests(ctx *gin.Context) {
	start := time.Now()

	ctx.Next()

	that.logger.Debug("request served",
		"method", ctx.Request.Method,
		"path", ctx.FullPath(),
		"status", ctx.Writer.Status(),
		"duration", time.Since(start),
	)
}
