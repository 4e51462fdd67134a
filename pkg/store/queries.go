package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicateURL is returned by InsertTarget when the url column's
// unique constraint is violated.
var ErrDuplicateURL = errors.New("target url already registered")

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// BeginTx starts a transaction for the caller to drive the
// advisory-lock, insert-check, apply-incident, commit sequence spec
// section 5 requires.
func (s *Store) BeginTx() (*sqlx.Tx, error) {
	return s.Beginx()
}

// LockTarget takes the target-scoped advisory lock recommended by
// spec section 5, serializing scheduled ticks against manual checks
// for the same target within tx's lifetime.
func LockTarget(tx *sqlx.Tx, targetID int64) error {
	_, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext('target:' || $1::text))`, targetID)
	if err != nil {
		return fmt.Errorf("failed to acquire target lock: %w", err)
	}
	return nil
}

// InsertTarget creates a target and returns it with id/created_at
// populated. It fails with ErrDuplicateURL on a unique violation.
func (s *Store) InsertTarget(t *Target) (*Target, error) {
	query := `
		INSERT INTO targets (name, url, interval_seconds, timeout_seconds, expected_substring, expected_json_keys, max_latency_ms)
		VALUES (:name, :url, :interval_seconds, :timeout_seconds, :expected_substring, :expected_json_keys, :max_latency_ms)
		RETURNING id, created_at
	`
	rows, err := s.NamedQuery(query, t)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("failed to insert target: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&t.ID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inserted target: %w", err)
		}
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// DeleteTarget removes a target; its checks and incidents cascade.
// Returns ErrNotFound when no such target exists.
func (s *Store) DeleteTarget(id int64) error {
	res, err := s.Exec(`DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTargetByID loads a single target, or ErrNotFound.
func (s *Store) GetTargetByID(id int64) (*Target, error) {
	var t Target
	err := s.Get(&t, `SELECT * FROM targets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return &t, nil
}

// InsertCheckReturningID inserts an immutable check row within tx and
// returns its assigned id.
func InsertCheckReturningID(tx *sqlx.Tx, c *Check) (int64, error) {
	query := `
		INSERT INTO checks (target_id, checked_at, status_code, latency_ms, is_up, reason_code, error_message)
		VALUES (:target_id, :checked_at, :status_code, :latency_ms, :is_up, :reason_code, :error_message)
		RETURNING id
	`
	rows, err := tx.NamedQuery(query, c)
	if err != nil {
		return 0, fmt.Errorf("failed to insert check: %w", err)
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan inserted check id: %w", err)
		}
	}
	c.ID = id
	return id, nil
}

// SelectLastCheck returns the most recent check for target_id, or nil
// when the target has never been checked.
func (s *Store) SelectLastCheck(targetID int64) (*Check, error) {
	var c Check
	query := `SELECT * FROM checks WHERE target_id = $1 ORDER BY checked_at DESC, id DESC LIMIT 1`
	err := s.Get(&c, query, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select last check: %w", err)
	}
	return &c, nil
}

// SelectLastCheckTx is SelectLastCheck run inside tx. Callers must
// invoke it after LockTarget so the read is covered by the
// target-scoped advisory lock, not just the insert that follows it.
func SelectLastCheckTx(tx *sqlx.Tx, targetID int64) (*Check, error) {
	var c Check
	query := `SELECT * FROM checks WHERE target_id = $1 ORDER BY checked_at DESC, id DESC LIMIT 1`
	err := tx.Get(&c, query, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select last check: %w", err)
	}
	return &c, nil
}

// SelectOpenIncident returns the unresolved incident for target_id
// within tx, or nil when none is open.
func SelectOpenIncident(tx *sqlx.Tx, targetID int64) (*Incident, error) {
	var inc Incident
	query := `SELECT * FROM incidents WHERE target_id = $1 AND is_resolved = false LIMIT 1`
	err := tx.Get(&inc, query, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select open incident: %w", err)
	}
	return &inc, nil
}

// InsertIncident opens a new incident within tx.
func InsertIncident(tx *sqlx.Tx, inc *Incident) error {
	query := `
		INSERT INTO incidents (target_id, started_at, is_resolved, reason_code, reason_message, start_check_id)
		VALUES (:target_id, :started_at, false, :reason_code, :reason_message, :start_check_id)
		RETURNING id
	`
	rows, err := tx.NamedQuery(query, inc)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&inc.ID); err != nil {
			return fmt.Errorf("failed to scan inserted incident id: %w", err)
		}
	}
	return nil
}

// UpdateIncidentResolution closes an open incident within tx.
func UpdateIncidentResolution(tx *sqlx.Tx, incidentID int64, endedAt time.Time, durationSeconds int64, recoveryCheckID int64) error {
	query := `
		UPDATE incidents
		SET ended_at = $1, duration_seconds = $2, is_resolved = true, recovery_check_id = $3
		WHERE id = $4
	`
	_, err := tx.Exec(query, endedAt, durationSeconds, recoveryCheckID, incidentID)
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}
	return nil
}

// SelectDueTargets returns targets, ordered by id ascending, that have
// never been checked or whose interval has elapsed as of now.
func (s *Store) SelectDueTargets(now time.Time) ([]Target, error) {
	query := `
		SELECT t.* FROM targets t
		WHERE (
			SELECT c.checked_at FROM checks c
			WHERE c.target_id = t.id
			ORDER BY c.checked_at DESC, c.id DESC LIMIT 1
		) IS NULL
		OR $1 - (
			SELECT c.checked_at FROM checks c
			WHERE c.target_id = t.id
			ORDER BY c.checked_at DESC, c.id DESC LIMIT 1
		) >= (t.interval_seconds || ' seconds')::interval
		ORDER BY t.id ASC
	`
	var targets []Target
	if err := s.Select(&targets, query, now); err != nil {
		return nil, fmt.Errorf("failed to select due targets: %w", err)
	}
	return targets, nil
}

// SelectHistory returns the most recent limit checks for a target,
// newest first.
func (s *Store) SelectHistory(targetID int64, limit int) ([]Check, error) {
	query := `SELECT * FROM checks WHERE target_id = $1 ORDER BY checked_at DESC, id DESC LIMIT $2`
	var checks []Check
	if err := s.Select(&checks, query, targetID, limit); err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	return checks, nil
}

// SelectIncidents returns the most recent limit incidents for a
// target, newest first.
func (s *Store) SelectIncidents(targetID int64, limit int) ([]Incident, error) {
	query := `SELECT * FROM incidents WHERE target_id = $1 ORDER BY started_at DESC, id DESC LIMIT $2`
	var incidents []Incident
	if err := s.Select(&incidents, query, targetID, limit); err != nil {
		return nil, fmt.Errorf("failed to select incidents: %w", err)
	}
	return incidents, nil
}

// SelectTargetSummaries joins every target with its most recent check
// and a 24h uptime ratio computed over checks since cutoff.
func (s *Store) SelectTargetSummaries(cutoff time.Time) ([]TargetSummary, error) {
	query := `
		SELECT
			t.*,
			lc.checked_at AS last_checked_at,
			lc.status_code AS last_status_code,
			lc.latency_ms AS last_latency_ms,
			lc.is_up AS last_is_up,
			lc.reason_code AS last_reason_code,
			lc.error_message AS last_error_message,
			up.uptime_24h AS uptime_24h
		FROM targets t
		LEFT JOIN LATERAL (
			SELECT c.checked_at, c.status_code, c.latency_ms, c.is_up, c.reason_code, c.error_message
			FROM checks c
			WHERE c.target_id = t.id
			ORDER BY c.checked_at DESC, c.id DESC
			LIMIT 1
		) lc ON true
		LEFT JOIN LATERAL (
			SELECT ROUND(100 * AVG(CASE WHEN c.is_up THEN 1 ELSE 0 END)::numeric, 2) AS uptime_24h
			FROM checks c
			WHERE c.target_id = t.id AND c.checked_at >= $1
		) up ON true
		ORDER BY t.id ASC
	`
	var summaries []TargetSummary
	if err := s.Select(&summaries, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to select target summaries: %w", err)
	}
	return summaries, nil
}

// SelectReliability computes the reliability aggregate from spec
// section 4.3: last incident, MTTR, MTBF, and incident counts over
// day/week/calendar-month windows. When targetID is nil the
// aggregate spans all targets (used by the dashboard).
func (s *Store) SelectReliability(targetID *int64) (*ReliabilitySummary, error) {
	var filter string
	args := []interface{}{}
	if targetID != nil {
		filter = "WHERE target_id = $1"
		args = append(args, *targetID)
	}

	out := &ReliabilitySummary{}

	lastQuery := fmt.Sprintf(`SELECT * FROM incidents %s ORDER BY started_at DESC, id DESC LIMIT 1`, filter)
	var last Incident
	err := s.Get(&last, lastQuery, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// no incidents at all; leave LastIncident nil
	case err != nil:
		return nil, fmt.Errorf("failed to select last incident: %w", err)
	default:
		out.LastIncident = &last
		var name string
		if err := s.Get(&name, `SELECT name FROM targets WHERE id = $1`, last.TargetID); err == nil {
			out.LastTargetName = name
		}
	}

	mttrQuery := fmt.Sprintf(`SELECT AVG(duration_seconds) FROM incidents %s %s is_resolved = true`,
		filter, boolAnd(filter))
	var mttr sql.NullFloat64
	if err := s.Get(&mttr, mttrQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to compute mttr: %w", err)
	}
	if mttr.Valid {
		v := mttr.Float64
		out.MTTRSeconds = &v
	}

	mtbfQuery := fmt.Sprintf(`
		WITH resolved AS (
			SELECT target_id, started_at, ended_at,
				LAG(ended_at) OVER (PARTITION BY target_id ORDER BY started_at) AS prev_ended_at
			FROM incidents
			%s %s is_resolved = true
		)
		SELECT AVG(EXTRACT(EPOCH FROM (started_at - prev_ended_at)))
		FROM resolved
		WHERE prev_ended_at IS NOT NULL AND started_at > prev_ended_at
	`, filter, boolAnd(filter))
	var mtbf sql.NullFloat64
	if err := s.Get(&mtbf, mtbfQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to compute mtbf: %w", err)
	}
	if mtbf.Valid {
		v := mtbf.Float64
		out.MTBFSeconds = &v
	}

	windows := []struct {
		clause string
		dest   *int
	}{
		{"started_at >= now() - interval '1 day'", &out.IncidentsDay},
		{"started_at >= now() - interval '7 days'", &out.IncidentsWeek},
		{"started_at >= date_trunc('month', now())", &out.IncidentsMonth},
	}
	for _, w := range windows {
		q := fmt.Sprintf(`SELECT COUNT(*) FROM incidents %s %s %s`, filter, boolAnd(filter), w.clause)
		var n int
		if err := s.Get(&n, q, args...); err != nil {
			return nil, fmt.Errorf("failed to count incidents window: %w", err)
		}
		*w.dest = n
	}

	return out, nil
}

func boolAnd(filter string) string {
	if strings.TrimSpace(filter) == "" {
		return "WHERE"
	}
	return "AND"
}
