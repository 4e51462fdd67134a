// Package scheduler drives the single poll loop from spec section
// 4.5: every tick it selects due targets and runs each serially
// through Prober → Classifier → Store → Incident Engine.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferreiragah-dev/gentrack/pkg/classifier"
	"github.com/ferreiragah-dev/gentrack/pkg/clock"
	"github.com/ferreiragah-dev/gentrack/pkg/incident"
	"github.com/ferreiragah-dev/gentrack/pkg/metrics"
	"github.com/ferreiragah-dev/gentrack/pkg/prober"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// Scheduler is the single background poll-loop worker. It may be
// started at most once per process.
type Scheduler struct {
	store     *store.Store
	prober    *prober.Prober
	incidents *incident.Engine
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	pollInterval time.Duration

	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a Scheduler. pollInterval is MONITOR_POLL_SECONDS.
func New(s *store.Store, p *prober.Prober, eng *incident.Engine, c clock.Clock, m *metrics.Metrics, logger zerolog.Logger, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:        s,
		prober:       p,
		incidents:    eng,
		clock:        c,
		metrics:      m,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Start begins the poll loop in a background goroutine. Calling
// Start more than once on the same Scheduler is a no-op after the
// first call.
func (sch *Scheduler) Start() {
	if !sch.started.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sch.cancel = cancel

	sch.wg.Add(1)
	go sch.run(ctx)
}

// Stop cancels the poll loop and waits for the in-flight tick to
// finish.
func (sch *Scheduler) Stop() {
	if sch.cancel != nil {
		sch.cancel()
	}
	sch.wg.Wait()
}

func (sch *Scheduler) run(ctx context.Context) {
	defer sch.wg.Done()

	ticker := time.NewTicker(sch.pollInterval)
	defer ticker.Stop()

	sch.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sch.tick(ctx)
		}
	}
}

func (sch *Scheduler) tick(ctx context.Context) {
	tickStarted := sch.clock.Monotonic()
	defer func() {
		if sch.metrics != nil {
			sch.metrics.ObserveTick(time.Since(tickStarted))
		}
	}()

	due, err := sch.store.SelectDueTargets(sch.clock.Now())
	if err != nil {
		sch.logger.Error().Err(err).Msg("[monitor] erro: falha ao selecionar alvos pendentes")
		return
	}

	for _, t := range due {
		if _, err := sch.CheckTarget(ctx, &t); err != nil {
			sch.logger.Error().Err(err).Int64("target_id", t.ID).Msgf("[monitor] erro: %v", err)
		}
	}
}

// CheckTarget runs one probe-classify-store-incident cycle for a
// single target: the shared procedure used by both the tick loop and
// the manual-check control-plane path.
func (sch *Scheduler) CheckTarget(ctx context.Context, t *store.Target) (*store.Check, error) {
	probeStarted := sch.clock.Monotonic()
	outcome := sch.prober.Probe(ctx, prober.Target{URL: t.URL, TimeoutSeconds: t.TimeoutSeconds})
	if sch.metrics != nil {
		sch.metrics.ObserveProbeDuration(time.Since(probeStarted))
	}

	result := classifier.Classify(classifier.Rules{
		ExpectedSubstring: t.ExpectedSubstringPtr(),
		ExpectedJSONKeys:  t.ExpectedJSONKeys(),
		MaxLatencyMs:      t.MaxLatencyMsPtr(),
	}, outcome)

	check, err := sch.recordCheck(t.ID, outcome, result)
	if sch.metrics != nil && err == nil {
		sch.metrics.IncChecksTotal(reasonCodeLabel(result))
	}
	return check, err
}

func (sch *Scheduler) recordCheck(targetID int64, outcome prober.Outcome, result classifier.Result) (*store.Check, error) {
	tx, err := sch.store.BeginTx()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := store.LockTarget(tx, targetID); err != nil {
		return nil, err
	}

	prev, err := store.SelectLastCheckTx(tx, targetID)
	if err != nil {
		return nil, err
	}

	check := outcomeToCheck(targetID, outcome, result)
	if _, err := store.InsertCheckReturningID(tx, check); err != nil {
		return nil, err
	}

	if err := sch.incidents.Apply(tx, targetID, prev, check); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return check, nil
}

func outcomeToCheck(targetID int64, outcome prober.Outcome, result classifier.Result) *store.Check {
	c := &store.Check{
		TargetID:  targetID,
		CheckedAt: outcome.StartedAt,
		IsUp:      result.IsUp,
	}
	c.LatencyMs.Int64, c.LatencyMs.Valid = outcome.LatencyMs, true
	if outcome.StatusCode != 0 {
		c.StatusCode.Int64, c.StatusCode.Valid = int64(outcome.StatusCode), true
	}
	if !result.IsUp {
		c.ReasonCode.String, c.ReasonCode.Valid = result.ReasonCode, true
		c.ErrorMessage.String, c.ErrorMessage.Valid = result.ErrorMessage, true
	}
	return c
}

func reasonCodeLabel(result classifier.Result) string {
	if result.IsUp {
		return "ok"
	}
	return result.ReasonCode
}
