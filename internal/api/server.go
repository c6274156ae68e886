// Package api exposes the notification engine over REST.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/engine"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

type Server struct {
	subs       *store.Subscriptions
	logs       *store.DeliveryLogs
	prefs      *store.Preferences
	dispatcher *engine.Dispatcher
	logger     *slog.Logger
}

func NewServer(subs *store.Subscriptions, logs *store.DeliveryLogs, prefs *store.Preferences, dispatcher *engine.Dispatcher, logger *slog.Logger) *Server {
	return &Server{subs: subs, logs: logs, prefs: prefs, dispatcher: dispatcher, logger: logger}
}

// Router builds the gin engine. A nil limiter disables rate limiting (tests).
func (s *Server) Router(limiter gin.HandlerFunc) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	n := router.Group("/notifications")
	if limiter != nil {
		n.Use(limiter)
	}
	{
		n.POST("/subscribe", s.subscribe)
		n.DELETE("/:id", s.unsubscribe)
		n.GET("/user/:userId", s.listUserSubscriptions)
		n.GET("/product/:productId", s.listProductSubscribers)
		n.GET("/logs/user/:userId", s.listUserLogs)
		n.GET("/logs/failed", s.listFailedLogs)
		n.POST("/logs/:logId/retry", s.retry)
		n.GET("/preferences/:userId", s.getPreferences)
		n.PUT("/preferences/:userId", s.updatePreferences)
	}

	// HTTP form of the inventory trigger, for collaborators not on the queue.
	router.POST("/internal/restock", s.restock)
	return router
}

// renderError maps the domain error taxonomy onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrRetryExhausted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
