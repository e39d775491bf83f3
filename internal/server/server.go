// Package server exposes the order-session and order operations over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mercadia/orderdesk/internal/orders"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	DB   *gorm.DB
	Port int
	Out  io.Writer

	// Conversations overrides the default store-backed resolver. Optional.
	Conversations orders.ConversationResolver
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := NewRouter(opts.DB, opts.Conversations)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Orderdesk API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(db *gorm.DB, conversations orders.ConversationResolver) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, db, orders.NewBuilder(db, conversations))
	return router
}
