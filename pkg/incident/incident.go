// Package incident implements the Up/Down/Unknown transition engine
// from spec section 4.4: given the previous check for a target and
// the newly inserted check, it opens or closes incidents inside the
// same transaction that inserted the check.
package incident

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// Engine applies check transitions to a target's incident timeline.
type Engine struct{}

// New returns an incident Engine.
func New() *Engine {
	return &Engine{}
}

// Apply runs the transition table from spec section 4.4 against tx.
// prev is nil when the target has never been checked before. curr
// must already have its ID populated (i.e. already inserted).
func (e *Engine) Apply(tx *sqlx.Tx, targetID int64, prev *store.Check, curr *store.Check) error {
	open, err := store.SelectOpenIncident(tx, targetID)
	if err != nil {
		return fmt.Errorf("failed to load open incident: %w", err)
	}

	prevUp, known := prevUpState(prev)

	switch {
	case !curr.IsUp && open == nil:
		// Covers both prev_up ∈ {true, nil} and prev_up = false with no
		// open incident: the defensive reopen from spec section 9,
		// which tolerates a previously crashed transaction that
		// inserted a down-check without creating its incident. Its
		// started_at is the current check's time, not the earlier
		// (lost) down-transition time — this is intended, not a bug.
		inc := &store.Incident{
			TargetID:      targetID,
			StartedAt:     curr.CheckedAt,
			ReasonCode:    curr.ReasonCode,
			ReasonMessage: curr.ErrorMessage,
			StartCheckID:  curr.ID,
		}
		if err := store.InsertIncident(tx, inc); err != nil {
			return fmt.Errorf("failed to open incident: %w", err)
		}
		return nil

	case !curr.IsUp && open != nil:
		return nil

	case curr.IsUp && open != nil && known && !prevUp:
		durationSeconds := int64(curr.CheckedAt.Sub(open.StartedAt).Seconds())
		if durationSeconds < 0 {
			durationSeconds = 0
		}
		if err := store.UpdateIncidentResolution(tx, open.ID, curr.CheckedAt, durationSeconds, curr.ID); err != nil {
			return fmt.Errorf("failed to resolve incident: %w", err)
		}
		return nil

	default:
		// prev_up ∈ {nil, true}, curr_up = true: no-op.
		return nil
	}
}

// prevUpState reports the previous check's up state and whether a
// previous check exists at all.
func prevUpState(prev *store.Check) (up bool, known bool) {
	if prev == nil {
		return false, false
	}
	return prev.IsUp, true
}
