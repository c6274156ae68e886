package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/inventory"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id: " + c.Param(param)})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) subscribe(c *gin.Context) {
	var req struct {
		UserID    uint `json:"user_id"`
		ProductID uint `json:"product_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sub, created, err := s.subs.Subscribe(c.Request.Context(), req.UserID, req.ProductID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, sub)
}

func (s *Server) unsubscribe(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.subs.Unsubscribe(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unsubscribed"})
}

func (s *Server) listUserSubscriptions(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	subs, err := s.subs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) listProductSubscribers(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	subs, err := s.subs.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (s *Server) listUserLogs(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	entries, err := s.logs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) listFailedLogs(c *gin.Context) {
	entries, err := s.logs.ListFailed(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) retry(c *gin.Context) {
	logID, ok := parseID(c, "logId")
	if !ok {
		return
	}
	entry, err := s.dispatcher.Retry(c.Request.Context(), logID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) getPreferences(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	pref, err := s.prefs.Get(c.Request.Context(), userID)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (s *Server) updatePreferences(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	var upd store.PreferenceUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	pref, err := s.prefs.Update(c.Request.Context(), userID, upd)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

// restock is the HTTP form of the inventory trigger. Non-edge events are
// acknowledged and ignored so callers can report every stock change.
func (s *Server) restock(c *gin.Context) {
	var ev inventory.StockEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !ev.Restocked() {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err := s.dispatcher.OnRestock(c.Request.Context(), ev.ProductID, ev.NewStock); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "dispatched"})
}
