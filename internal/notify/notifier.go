package notify

import (
	"context"
	"log"
	"sync"

	"stocktrack-api/internal/model"
)

// Notifier is a single delivery channel for pending-approval alerts.
type Notifier interface {
	// Name identifies the channel in results and logs.
	Name() string

	// Send delivers the alert. An error marks the channel failed for
	// this alert; there is no retry.
	Send(ctx context.Context, alert model.OutboundAlert) error
}

// Dispatcher fans an alert out to every configured channel. Channels are
// attempted concurrently and independently: one failing never stops the
// others, and no failure ever propagates to the operation that triggered
// the alert. The caller gets a per-channel summary for user feedback.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given channels. Nil
// entries are skipped so callers can pass conditionally configured
// channels directly.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Channels returns the number of configured channels.
func (d *Dispatcher) Channels() int {
	return len(d.notifiers)
}

// Dispatch attempts delivery on every channel and aggregates the results.
func (d *Dispatcher) Dispatch(ctx context.Context, alert model.OutboundAlert) model.DispatchSummary {
	results := make([]model.ChannelResult, len(d.notifiers))

	var wg sync.WaitGroup
	for i, n := range d.notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()

			result := model.ChannelResult{Channel: n.Name()}
			if err := n.Send(ctx, alert); err != nil {
				result.Error = err.Error()
				log.Printf("[Dispatcher] %s delivery failed for request %s: %v", n.Name(), alert.RequestID, err)
			} else {
				result.Delivered = true
				log.Printf("[Dispatcher] %s delivered alert for request %s", n.Name(), alert.RequestID)
			}
			results[i] = result
		}(i, n)
	}
	wg.Wait()

	return model.DispatchSummary{Results: results}
}
