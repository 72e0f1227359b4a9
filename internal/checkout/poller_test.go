package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pmartell/storefront-checkout/pkg/stripe"
)

type scriptedFetcher struct {
	mu       sync.Mutex
	statuses []stripe.IntentStatus
	calls    int
}

func (f *scriptedFetcher) IntentStatus(ctx context.Context, intentID string) (stripe.IntentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.statuses[len(f.statuses)-1]
	if f.calls < len(f.statuses) {
		status = f.statuses[f.calls]
	}
	f.calls++
	return status, nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerStopsAtSucceeded(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []stripe.IntentStatus{
		stripe.IntentStatusProcessing,
		stripe.IntentStatusProcessing,
		stripe.IntentStatusSucceeded,
	}}

	var (
		mu       sync.Mutex
		settled  []stripe.IntentStatus
		timedOut bool
	)
	done := make(chan struct{})

	poller := NewPoller(PollerParams{
		Fetch:    fetcher,
		Interval: time.Millisecond,
		Timeout:  5 * time.Second,
		OnSettled: func(status stripe.IntentStatus) {
			mu.Lock()
			settled = append(settled, status)
			mu.Unlock()
			if status == stripe.IntentStatusSucceeded {
				close(done)
			}
		},
		OnTimeout: func(stripe.IntentStatus) {
			mu.Lock()
			timedOut = true
			mu.Unlock()
		},
	})
	poller.Start(context.Background(), "pi_1")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller never reached succeeded")
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if timedOut {
		t.Fatal("poller must not report a timeout")
	}
	if len(settled) != 2 || settled[0] != stripe.IntentStatusProcessing || settled[1] != stripe.IntentStatusSucceeded {
		t.Fatalf("expected [processing succeeded], got %v", settled)
	}
	if fetcher.callCount() != 3 {
		t.Fatalf("poller must stop at succeeded, made %d calls", fetcher.callCount())
	}
}

func TestPollerTimeoutIsNotAnError(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []stripe.IntentStatus{stripe.IntentStatusRequiresAction}}

	var settled []stripe.IntentStatus
	timeoutCh := make(chan stripe.IntentStatus, 1)

	poller := NewPoller(PollerParams{
		Fetch:    fetcher,
		Interval: 2 * time.Millisecond,
		Timeout:  30 * time.Millisecond,
		OnSettled: func(status stripe.IntentStatus) {
			settled = append(settled, status)
		},
		OnTimeout: func(last stripe.IntentStatus) {
			timeoutCh <- last
		},
	})
	poller.Start(context.Background(), "pi_1")

	select {
	case last := <-timeoutCh:
		if last != stripe.IntentStatusRequiresAction {
			t.Fatalf("expected last status requires_action, got %q", last)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller never timed out")
	}
	if len(settled) != 0 {
		t.Fatalf("timeout must not settle, got %v", settled)
	}
}

func TestPollerNoTimeoutAfterProcessing(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []stripe.IntentStatus{stripe.IntentStatusProcessing}}

	settledCh := make(chan stripe.IntentStatus, 1)
	timeoutCh := make(chan stripe.IntentStatus, 1)

	poller := NewPoller(PollerParams{
		Fetch:    fetcher,
		Interval: 2 * time.Millisecond,
		Timeout:  30 * time.Millisecond,
		OnSettled: func(status stripe.IntentStatus) {
			settledCh <- status
		},
		OnTimeout: func(last stripe.IntentStatus) {
			timeoutCh <- last
		},
	})
	poller.Start(context.Background(), "pi_1")

	select {
	case status := <-settledCh:
		if status != stripe.IntentStatusProcessing {
			t.Fatalf("expected processing, got %q", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("processing was never reported")
	}

	select {
	case <-timeoutCh:
		t.Fatal("timeout must not fire after processing was reported")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []stripe.IntentStatus{stripe.IntentStatusRequiresAction}}
	ctx, cancel := context.WithCancel(context.Background())

	poller := NewPoller(PollerParams{
		Fetch:    fetcher,
		Interval: 2 * time.Millisecond,
		Timeout:  time.Minute,
	})
	poller.Start(ctx, "pi_1")

	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	calls := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	if fetcher.callCount() != calls {
		t.Fatal("poller kept polling after context cancel")
	}
}
