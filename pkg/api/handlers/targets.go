// Package handlers implements GenTrack's HTTP/JSON control plane: the
// target CRUD, manual-check, history, incidents, reliability and
// dashboard endpoints from spec section 6.
package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ferreiragah-dev/gentrack/pkg/scheduler"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// TargetHandler serves the /api/targets family of endpoints.
type TargetHandler struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
}

// NewTargetHandler returns a TargetHandler.
func NewTargetHandler(s *store.Store, sch *scheduler.Scheduler) *TargetHandler {
	return &TargetHandler{store: s, scheduler: sch}
}

type createTargetRequest struct {
	Name              string   `json:"name" binding:"required"`
	URL               string   `json:"url" binding:"required"`
	IntervalSeconds   int      `json:"interval_seconds"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
	ExpectedSubstring *string  `json:"expected_substring"`
	ExpectedJSONKeys  []string `json:"expected_json_keys"`
	MaxLatencyMs      *int     `json:"max_latency_ms"`
}

func (req *createTargetRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if req.IntervalSeconds < 1 {
		return fmt.Errorf("interval_seconds must be >= 1")
	}
	if req.TimeoutSeconds < 1 || req.TimeoutSeconds > 60 {
		return fmt.Errorf("timeout_seconds must be between 1 and 60")
	}
	if req.MaxLatencyMs != nil && *req.MaxLatencyMs < 1 {
		return fmt.Errorf("max_latency_ms must be >= 1")
	}
	return nil
}

// List returns target summaries for the dashboard/targets list.
func (h *TargetHandler) List(c *gin.Context) {
	summaries, err := h.store.SelectTargetSummaries(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load targets"})
		return
	}
	c.JSON(http.StatusOK, toTargetSummaryResponses(summaries))
}

// Create registers a target and immediately probes it.
func (h *TargetHandler) Create(c *gin.Context) {
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := &store.Target{
		Name:            req.Name,
		URL:             req.URL,
		IntervalSeconds: req.IntervalSeconds,
		TimeoutSeconds:  req.TimeoutSeconds,
	}
	if req.ExpectedSubstring != nil {
		target.ExpectedSubstring.String, target.ExpectedSubstring.Valid = *req.ExpectedSubstring, true
	}
	if req.MaxLatencyMs != nil {
		target.MaxLatencyMs.Int64, target.MaxLatencyMs.Valid = int64(*req.MaxLatencyMs), true
	}
	if err := target.SetExpectedJSONKeys(req.ExpectedJSONKeys); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected_json_keys"})
		return
	}

	created, err := h.store.InsertTarget(target)
	if err != nil {
		if err == store.ErrDuplicateURL {
			c.JSON(http.StatusConflict, gin.H{"error": "url already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create target"})
		return
	}

	if _, err := h.scheduler.CheckTarget(c.Request.Context(), created); err != nil {
		// The target is created regardless; the caller can still fetch
		// its summary via List. Surfacing the probe failure here would
		// conflate "created" with "reachable".
		_ = err
	}

	summaries, err := h.store.SelectTargetSummaries(time.Now().UTC().Add(-24 * time.Hour))
	if err == nil {
		for _, s := range summaries {
			if s.ID == created.ID {
				c.JSON(http.StatusCreated, toTargetSummaryResponse(s))
				return
			}
		}
	}
	c.JSON(http.StatusCreated, toTargetSummaryResponse(store.TargetSummary{Target: *created}))
}

// Delete removes a target and its checks/incidents.
func (h *TargetHandler) Delete(c *gin.Context) {
	id, ok := parseTargetID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTarget(id); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete target"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ManualCheck runs one probe cycle for a target on the request thread.
func (h *TargetHandler) ManualCheck(c *gin.Context) {
	id, ok := parseTargetID(c)
	if !ok {
		return
	}
	target, err := h.store.GetTargetByID(id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load target"})
		return
	}

	check, err := h.scheduler.CheckTarget(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "probe failed"})
		return
	}
	c.JSON(http.StatusOK, toCheckResponse(*check))
}

// History returns the most recent checks for a target.
func (h *TargetHandler) History(c *gin.Context) {
	id, ok := parseTargetID(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c, 100, 1, 500)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.store.GetTargetByID(id); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load target"})
		return
	}

	checks, err := h.store.SelectHistory(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, toCheckResponses(checks))
}

// Incidents returns the most recent incidents for a target.
func (h *TargetHandler) Incidents(c *gin.Context) {
	id, ok := parseTargetID(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c, 50, 1, 300)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.store.GetTargetByID(id); err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load target"})
		return
	}

	incidents, err := h.store.SelectIncidents(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load incidents"})
		return
	}
	c.JSON(http.StatusOK, toIncidentResponses(incidents, ""))
}

// Reliability returns the MTTR/MTBF/incident-count summary for one target.
func (h *TargetHandler) Reliability(c *gin.Context) {
	id, ok := parseTargetID(c)
	if !ok {
		return
	}
	target, err := h.store.GetTargetByID(id)
	if err != nil {
		if err == store.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load target"})
		return
	}

	summary, err := h.store.SelectReliability(&id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute reliability"})
		return
	}
	c.JSON(http.StatusOK, toReliabilityResponse(summary, target.Name))
}

func parseTargetID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "target not found"})
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context, def, min, max int) (int, error) {
	raw := c.DefaultQuery("limit", strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if n < min || n > max {
		return 0, fmt.Errorf("limit must be between %d and %d", min, max)
	}
	return n, nil
}
