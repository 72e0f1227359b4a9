package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = 30 * time.Second
	// QRPollTimeout covers flows where the customer has to pick up a
	// second device and scan a code.
	QRPollTimeout = 5 * time.Minute
)

// StatusFetcher retrieves the current intent status from the server.
type StatusFetcher interface {
	IntentStatus(ctx context.Context, intentID string) (stripe.IntentStatus, error)
}

// Poller re-checks an intent's status on a self-rescheduling timer until
// the status reaches a terminal state, the timeout elapses, or the context
// is canceled. A `processing` status is reported as soon as it is seen,
// but polling continues: the payment may still upgrade to `succeeded`
// within the budget. There is no blocking loop: each check schedules the
// next one, so Stop and teardown leave no orphaned timers behind.
type Poller struct {
	fetch    StatusFetcher
	interval time.Duration
	timeout  time.Duration

	onSettled func(stripe.IntentStatus)
	onTimeout func(stripe.IntentStatus)

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	reported bool
}

type PollerParams struct {
	Fetch    StatusFetcher
	Interval time.Duration
	Timeout  time.Duration

	// OnSettled fires when the status reaches the settled set. It fires
	// at most once per status: once if `processing` is observed, and once
	// more if the intent later reaches a terminal state.
	OnSettled func(stripe.IntentStatus)
	// OnTimeout fires once with the last observed status when the budget
	// runs out before anything settled. The outcome is unknown, not
	// failed.
	OnTimeout func(stripe.IntentStatus)
}

func NewPoller(params PollerParams) *Poller {
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Poller{
		fetch:     params.Fetch,
		interval:  interval,
		timeout:   timeout,
		onSettled: params.OnSettled,
		onTimeout: params.OnTimeout,
	}
}

// Start begins polling the intent. The first check runs immediately.
func (p *Poller) Start(ctx context.Context, intentID string) {
	deadline := time.Now().Add(p.timeout)

	p.mu.Lock()
	p.stopped = false
	p.reported = false
	p.mu.Unlock()

	stop := context.AfterFunc(ctx, p.Stop)
	p.schedule(0, func() {
		p.check(ctx, intentID, deadline, stop)
	})
}

// Stop cancels any pending check. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Poller) markReported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	already := p.reported
	p.reported = true
	return already
}

func (p *Poller) hasReported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reported
}

func (p *Poller) schedule(delay time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.timer = time.AfterFunc(delay, fn)
}

func (p *Poller) check(ctx context.Context, intentID string, deadline time.Time, stopWatch func() bool) {
	if ctx.Err() != nil {
		return
	}

	status, err := p.fetch.IntentStatus(ctx, intentID)
	if err == nil {
		if status.Terminal() {
			p.Stop()
			stopWatch()
			if p.onSettled != nil {
				p.onSettled(status)
			}
			return
		}
		if status == stripe.IntentStatusProcessing && !p.markReported() {
			if p.onSettled != nil {
				p.onSettled(status)
			}
		}
	}

	// Transient fetch errors are retried within the same budget.
	if time.Now().After(deadline) {
		p.Stop()
		stopWatch()
		if !p.hasReported() && p.onTimeout != nil {
			p.onTimeout(status)
		}
		return
	}

	p.schedule(p.interval, func() {
		p.check(ctx, intentID, deadline, stopWatch)
	})
}
