package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// HealthHandler serves GET /health.
type HealthHandler struct {
	store *store.Store
}

// NewHealthHandler returns a HealthHandler.
func NewHealthHandler(s *store.Store) *HealthHandler {
	return &HealthHandler{store: s}
}

// Get runs a trivial SELECT 1 to confirm database connectivity.
func (h *HealthHandler) Get(c *gin.Context) {
	var one int
	if err := h.store.Get(&one, "SELECT 1"); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
