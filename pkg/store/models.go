package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Target is a registered HTTP/HTTPS endpoint, per spec section 3.
type Target struct {
	ID                 int64          `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	URL                string         `db:"url" json:"url"`
	IntervalSeconds    int            `db:"interval_seconds" json:"interval_seconds"`
	TimeoutSeconds     int            `db:"timeout_seconds" json:"timeout_seconds"`
	ExpectedSubstring  sql.NullString `db:"expected_substring" json:"-"`
	ExpectedJSONKeysRaw sql.NullString `db:"expected_json_keys" json:"-"`
	MaxLatencyMs       sql.NullInt64  `db:"max_latency_ms" json:"-"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// ExpectedJSONKeys decodes the stored JSON array of dotted paths.
func (t *Target) ExpectedJSONKeys() []string {
	if !t.ExpectedJSONKeysRaw.Valid || t.ExpectedJSONKeysRaw.String == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(t.ExpectedJSONKeysRaw.String), &keys); err != nil {
		return nil
	}
	return keys
}

// SetExpectedJSONKeys encodes keys into the raw storage column.
func (t *Target) SetExpectedJSONKeys(keys []string) error {
	if len(keys) == 0 {
		t.ExpectedJSONKeysRaw = sql.NullString{}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	t.ExpectedJSONKeysRaw = sql.NullString{String: string(data), Valid: true}
	return nil
}

// MaxLatencyMsPtr returns the validation rule as *int, nil when unset.
func (t *Target) MaxLatencyMsPtr() *int {
	if !t.MaxLatencyMs.Valid {
		return nil
	}
	v := int(t.MaxLatencyMs.Int64)
	return &v
}

// ExpectedSubstringPtr returns the validation rule as *string, nil when unset.
func (t *Target) ExpectedSubstringPtr() *string {
	if !t.ExpectedSubstring.Valid {
		return nil
	}
	v := t.ExpectedSubstring.String
	return &v
}

// Check is an immutable probe record, per spec section 3.
type Check struct {
	ID           int64          `db:"id" json:"id"`
	TargetID     int64          `db:"target_id" json:"target_id"`
	CheckedAt    time.Time      `db:"checked_at" json:"checked_at"`
	StatusCode   sql.NullInt64  `db:"status_code" json:"status_code"`
	LatencyMs    sql.NullInt64  `db:"latency_ms" json:"latency_ms"`
	IsUp         bool           `db:"is_up" json:"is_up"`
	ReasonCode   sql.NullString `db:"reason_code" json:"reason_code"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
}

// Incident is a contiguous run of down checks for one target, per spec section 3.
type Incident struct {
	ID               int64          `db:"id" json:"id"`
	TargetID         int64          `db:"target_id" json:"target_id"`
	StartedAt        time.Time      `db:"started_at" json:"started_at"`
	EndedAt          sql.NullTime   `db:"ended_at" json:"ended_at"`
	DurationSeconds  sql.NullInt64  `db:"duration_seconds" json:"duration_seconds"`
	IsResolved       bool           `db:"is_resolved" json:"is_resolved"`
	ReasonCode       sql.NullString `db:"reason_code" json:"reason_code"`
	ReasonMessage    sql.NullString `db:"reason_message" json:"reason_message"`
	StartCheckID     int64          `db:"start_check_id" json:"start_check_id"`
	RecoveryCheckID  sql.NullInt64  `db:"recovery_check_id" json:"recovery_check_id"`
}

// TargetSummary is a target joined with its latest check and a 24h
// uptime ratio, the shape spec section 4.3's select_target_summaries
// returns.
type TargetSummary struct {
	Target
	LastCheckedAt    sql.NullTime   `db:"last_checked_at" json:"last_checked_at"`
	LastStatusCode   sql.NullInt64  `db:"last_status_code" json:"last_status_code"`
	LastLatencyMs    sql.NullInt64  `db:"last_latency_ms" json:"last_latency_ms"`
	LastIsUp         sql.NullBool   `db:"last_is_up" json:"last_is_up"`
	LastReasonCode   sql.NullString `db:"last_reason_code" json:"last_reason_code"`
	LastErrorMessage sql.NullString `db:"last_error_message" json:"last_error_message"`
	Uptime24h        sql.NullFloat64 `db:"uptime_24h" json:"uptime_24h"`
}

// ReliabilitySummary is the aggregate spec section 4.3's
// select_reliability and section 6's reliability object describe.
type ReliabilitySummary struct {
	LastIncident   *Incident `json:"last_incident"`
	LastTargetName string    `json:"-"`
	MTTRSeconds    *float64  `json:"mttr_seconds"`
	MTBFSeconds    *float64  `json:"mtbf_seconds"`
	IncidentsDay   int       `json:"incidents_day"`
	IncidentsWeek  int       `json:"incidents_week"`
	IncidentsMonth int       `json:"incidents_month"`
}
