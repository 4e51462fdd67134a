package handlers

import (
	"time"

	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

type targetSummaryResponse struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	URL               string   `json:"url"`
	IntervalSeconds   int      `json:"interval_seconds"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
	ExpectedSubstring *string  `json:"expected_substring,omitempty"`
	ExpectedJSONKeys  []string `json:"expected_json_keys,omitempty"`
	MaxLatencyMs      *int     `json:"max_latency_ms,omitempty"`
	CreatedAt         string   `json:"created_at"`

	LastCheckedAt    *string `json:"last_checked_at"`
	LastStatusCode   *int64  `json:"last_status_code"`
	LastLatencyMs    *int64  `json:"last_latency_ms"`
	LastIsUp         *bool   `json:"last_is_up"`
	LastReasonCode   *string `json:"last_reason_code"`
	LastErrorMessage *string `json:"last_error_message"`
	Uptime24h        *float64 `json:"uptime_24h"`
}

func toTargetSummaryResponse(s store.TargetSummary) targetSummaryResponse {
	resp := targetSummaryResponse{
		ID:                s.ID,
		Name:              s.Name,
		URL:               s.URL,
		IntervalSeconds:   s.IntervalSeconds,
		TimeoutSeconds:    s.TimeoutSeconds,
		ExpectedSubstring: s.ExpectedSubstringPtr(),
		ExpectedJSONKeys:  s.ExpectedJSONKeys(),
		MaxLatencyMs:      s.MaxLatencyMsPtr(),
		CreatedAt:         s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.LastCheckedAt.Valid {
		v := s.LastCheckedAt.Time.UTC().Format(time.RFC3339)
		resp.LastCheckedAt = &v
	}
	if s.LastStatusCode.Valid {
		resp.LastStatusCode = &s.LastStatusCode.Int64
	}
	if s.LastLatencyMs.Valid {
		resp.LastLatencyMs = &s.LastLatencyMs.Int64
	}
	if s.LastIsUp.Valid {
		resp.LastIsUp = &s.LastIsUp.Bool
	}
	if s.LastReasonCode.Valid {
		resp.LastReasonCode = &s.LastReasonCode.String
	}
	if s.LastErrorMessage.Valid {
		resp.LastErrorMessage = &s.LastErrorMessage.String
	}
	if s.Uptime24h.Valid {
		resp.Uptime24h = &s.Uptime24h.Float64
	}
	return resp
}

func toTargetSummaryResponses(summaries []store.TargetSummary) []targetSummaryResponse {
	out := make([]targetSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toTargetSummaryResponse(s))
	}
	return out
}

type checkResponse struct {
	ID           int64   `json:"id"`
	TargetID     int64   `json:"target_id"`
	CheckedAt    string  `json:"checked_at"`
	StatusCode   *int64  `json:"status_code"`
	LatencyMs    *int64  `json:"latency_ms"`
	IsUp         bool    `json:"is_up"`
	ReasonCode   *string `json:"reason_code"`
	ErrorMessage *string `json:"error_message"`
}

func toCheckResponse(c store.Check) checkResponse {
	resp := checkResponse{
		ID:        c.ID,
		TargetID:  c.TargetID,
		CheckedAt: c.CheckedAt.UTC().Format(time.RFC3339),
		IsUp:      c.IsUp,
	}
	if c.StatusCode.Valid {
		resp.StatusCode = &c.StatusCode.Int64
	}
	if c.LatencyMs.Valid {
		resp.LatencyMs = &c.LatencyMs.Int64
	}
	if c.ReasonCode.Valid {
		resp.ReasonCode = &c.ReasonCode.String
	}
	if c.ErrorMessage.Valid {
		resp.ErrorMessage = &c.ErrorMessage.String
	}
	return resp
}

func toCheckResponses(checks []store.Check) []checkResponse {
	out := make([]checkResponse, 0, len(checks))
	for _, c := range checks {
		out = append(out, toCheckResponse(c))
	}
	return out
}

type incidentResponse struct {
	ID              int64   `json:"id"`
	TargetID        int64   `json:"target_id"`
	TargetName      *string `json:"target_name,omitempty"`
	StartedAt       string  `json:"started_at"`
	EndedAt         *string `json:"ended_at"`
	DurationSeconds *int64  `json:"duration_seconds"`
	IsResolved      bool    `json:"is_resolved"`
	ReasonCode      *string `json:"reason_code"`
	ReasonMessage   *string `json:"reason_message"`
	StartCheckID    int64   `json:"start_check_id"`
	RecoveryCheckID *int64  `json:"recovery_check_id"`
}

func toIncidentResponse(i store.Incident, targetName string) incidentResponse {
	resp := incidentResponse{
		ID:           i.ID,
		TargetID:     i.TargetID,
		StartedAt:    i.StartedAt.UTC().Format(time.RFC3339),
		IsResolved:   i.IsResolved,
		StartCheckID: i.StartCheckID,
	}
	if targetName != "" {
		resp.TargetName = &targetName
	}
	if i.EndedAt.Valid {
		v := i.EndedAt.Time.UTC().Format(time.RFC3339)
		resp.EndedAt = &v
	}
	if i.DurationSeconds.Valid {
		resp.DurationSeconds = &i.DurationSeconds.Int64
	}
	if i.ReasonCode.Valid {
		resp.ReasonCode = &i.ReasonCode.String
	}
	if i.ReasonMessage.Valid {
		resp.ReasonMessage = &i.ReasonMessage.String
	}
	if i.RecoveryCheckID.Valid {
		resp.RecoveryCheckID = &i.RecoveryCheckID.Int64
	}
	return resp
}

func toIncidentResponses(incidents []store.Incident, targetName string) []incidentResponse {
	out := make([]incidentResponse, 0, len(incidents))
	for _, i := range incidents {
		out = append(out, toIncidentResponse(i, targetName))
	}
	return out
}

type reliabilityResponse struct {
	LastIncident   *incidentResponse `json:"last_incident"`
	MTTRSeconds    *float64          `json:"mttr_seconds"`
	MTBFSeconds    *float64          `json:"mtbf_seconds"`
	IncidentsDay   int               `json:"incidents_day"`
	IncidentsWeek  int               `json:"incidents_week"`
	IncidentsMonth int               `json:"incidents_month"`
}

func toReliabilityResponse(s *store.ReliabilitySummary, targetName string) reliabilityResponse {
	resp := reliabilityResponse{
		MTTRSeconds:    s.MTTRSeconds,
		MTBFSeconds:    s.MTBFSeconds,
		IncidentsDay:   s.IncidentsDay,
		IncidentsWeek:  s.IncidentsWeek,
		IncidentsMonth: s.IncidentsMonth,
	}
	if s.LastIncident != nil {
		name := targetName
		if name == "" {
			name = s.LastTargetName
		}
		r := toIncidentResponse(*s.LastIncident, name)
		resp.LastIncident = &r
	}
	return resp
}
