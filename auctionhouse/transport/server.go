package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/economy/auction"
	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

// Server exposes the registry over HTTP and websockets.
type Server struct {
	registry *auction.Registry
	hub      *Hub
	router   *gin.Engine
}

func NewServer(registry *auction.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		registry: registry,
		hub:      NewHub(registry),
		router:   gin.New(),
	}
	s.router.Use(requestLogger(), gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/ws", s.hub.HandleWebSocket)

	auctions := s.router.Group("/auctions")
	{
		auctions.GET("", s.listByCategory)
		auctions.GET("/ending-soon", s.listEndingSoon)
		auctions.GET("/search", s.search)
		auctions.GET("/:id", s.getAuction)
		auctions.GET("/:id/events", s.events)

		authed := auctions.Group("", requireIdentity())
		authed.POST("", s.createAuction)
		authed.POST("/:id/bids", s.submitBid)
		authed.POST("/:id/cancel", s.cancelAuction)
		authed.POST("/:id/settlement/retry", s.retrySettlement)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is done, then drains connections
// for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogSystem("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
