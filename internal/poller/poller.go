// Package poller implements the ingestion-convergence state machine: it
// repeatedly asks the storage backend how many records a data stream holds
// and decides, on every tick, whether the run has converged on the expected
// count, should keep waiting, or has run out of time.
package poller

import (
	"context"
	"time"

	"github.com/tinytelemetry/sluice/internal/esbackend"
)

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomeConverged means the observed count reached the expected
	// count before the deadline.
	OutcomeConverged Outcome = iota
	// OutcomeTimedOut means the deadline elapsed first.
	OutcomeTimedOut
)

func (o Outcome) String() string {
	if o == OutcomeConverged {
		return "converged"
	}
	return "timed-out"
}

// Counter is the narrow backend contract the poller needs.
type Counter interface {
	Count(ctx context.Context, stream string, window time.Duration) (esbackend.CountResult, error)
}

// Observation is one tick's view of the run, emitted for progress display.
// It is created fresh each tick and carries no cumulative state.
type Observation struct {
	Tick     int
	Elapsed  time.Duration
	Observed int64
	Expected int64
	NotFound bool
	Err      error
}

// Config holds the per-run polling parameters.
type Config struct {
	Stream   string
	Expected int64
	Interval time.Duration
	Timeout  time.Duration
	// Window restricts counting to recent records; zero counts everything.
	Window time.Duration
	// OnTick, when set, receives every observation.
	OnTick func(Observation)
}

// Result is the terminal summary of a run.
type Result struct {
	Outcome       Outcome
	Expected      int64
	Observed      int64
	Ticks         int
	NotFoundTicks int
	Elapsed       time.Duration
	// LastError holds the text of the most recent transient backend
	// failure, for the run report. Empty when the backend never failed.
	LastError string
}

// Poller drives one verification run. It is single-threaded: each tick is a
// blocking count query followed by a blocking interval sleep, and both the
// deadline and external cancellation are checked at tick boundaries only.
type Poller struct {
	cfg     Config
	counter Counter
	clock   Clock
}

// New creates a poller. A nil clock selects the system clock.
func New(cfg Config, counter Counter, clock Clock) *Poller {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Poller{cfg: cfg, counter: counter, clock: clock}
}

// Run polls until the run converges, the deadline elapses, or ctx is
// cancelled. Transient backend failures never end a run early; if they
// persist, the run surfaces as TimedOut like any other non-convergence.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	res := Result{Expected: p.cfg.Expected}

	// Nothing to verify: converge without touching the backend.
	if p.cfg.Expected == 0 {
		res.Outcome = OutcomeConverged
		return res, nil
	}

	start := p.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			res.Elapsed = p.clock.Now().Sub(start)
			return res, err
		}

		elapsed := p.clock.Now().Sub(start)
		if elapsed >= p.cfg.Timeout {
			res.Outcome = OutcomeTimedOut
			res.Elapsed = elapsed
			return res, nil
		}

		obs := Observation{
			Tick:     res.Ticks,
			Elapsed:  elapsed,
			Expected: p.cfg.Expected,
		}

		count, err := p.counter.Count(ctx, p.cfg.Stream, p.cfg.Window)
		res.Ticks++
		switch {
		case err != nil && esbackend.IsTransient(err):
			// Recovered locally: keep the last good observation and
			// retry on the next tick.
			res.LastError = err.Error()
			obs.Observed = res.Observed
			obs.Err = err
		case err != nil:
			res.Elapsed = p.clock.Now().Sub(start)
			return res, err
		case !count.Found:
			// The stream has not been created yet; normal early in a
			// run, compared as zero.
			res.NotFoundTicks++
			res.Observed = 0
			obs.NotFound = true
		default:
			res.Observed = count.Count
			obs.Observed = count.Count
		}

		if p.cfg.OnTick != nil {
			p.cfg.OnTick(obs)
		}

		if err == nil && count.Found && count.Count >= p.cfg.Expected {
			// At-least semantics: a stream shared with a prior run may
			// already hold more records than this run sent.
			res.Outcome = OutcomeConverged
			res.Elapsed = p.clock.Now().Sub(start)
			return res, nil
		}

		if err := p.clock.Sleep(ctx, p.cfg.Interval); err != nil {
			res.Elapsed = p.clock.Now().Sub(start)
			return res, err
		}
	}
}
