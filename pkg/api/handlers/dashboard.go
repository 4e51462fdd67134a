package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// DashboardHandler serves the aggregate /api/dashboard endpoint.
type DashboardHandler struct {
	store *store.Store
}

// NewDashboardHandler returns a DashboardHandler.
func NewDashboardHandler(s *store.Store) *DashboardHandler {
	return &DashboardHandler{store: s}
}

type dashboardResponse struct {
	TotalTargets   int                     `json:"total_targets"`
	UpNow          int                     `json:"up_now"`
	DownNow        int                     `json:"down_now"`
	UnknownNow     int                     `json:"unknown_now"`
	AvgUptime24h   *float64                `json:"avg_uptime_24h"`
	IncidentSummary reliabilityResponse    `json:"incident_summary"`
	Targets        []targetSummaryResponse `json:"targets"`
}

// Get computes the dashboard aggregate from spec section 6.
func (h *DashboardHandler) Get(c *gin.Context) {
	summaries, err := h.store.SelectTargetSummaries(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load targets"})
		return
	}

	resp := dashboardResponse{
		TotalTargets: len(summaries),
		Targets:      toTargetSummaryResponses(summaries),
	}

	var uptimeSum float64
	var uptimeCount int
	for _, s := range summaries {
		switch {
		case s.LastIsUp.Valid && s.LastIsUp.Bool:
			resp.UpNow++
		case s.LastIsUp.Valid && !s.LastIsUp.Bool:
			resp.DownNow++
		default:
			resp.UnknownNow++
		}
		if s.Uptime24h.Valid {
			uptimeSum += s.Uptime24h.Float64
			uptimeCount++
		}
	}
	if uptimeCount > 0 {
		avg := math.Round((uptimeSum/float64(uptimeCount))*100) / 100
		resp.AvgUptime24h = &avg
	}

	reliability, err := h.store.SelectReliability(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute reliability"})
		return
	}
	resp.IncidentSummary = toReliabilityResponse(reliability, "")

	c.JSON(http.StatusOK, resp)
}
