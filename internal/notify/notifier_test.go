package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stocktrack-api/internal/model"
)

// fakeNotifier is a scripted channel for dispatcher tests.
type fakeNotifier struct {
	name string
	fail bool

	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(ctx context.Context, alert model.OutboundAlert) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return errors.New("channel down")
	}
	return nil
}

func testAlert() model.OutboundAlert {
	return model.OutboundAlert{
		RequestID: "req-1",
		ItemName:  "Widget",
		Quantity:  4,
		Notes:     "warehouse transfer",
		CreatedBy: "user@example.com",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatch_AllDelivered(t *testing.T) {
	a := &fakeNotifier{name: "a"}
	b := &fakeNotifier{name: "b"}
	d := NewDispatcher(a, b)

	summary := d.Dispatch(context.Background(), testAlert())

	if summary.Delivered() != 2 {
		t.Errorf("expected 2 delivered, got %d", summary.Delivered())
	}
	if summary.Summary() != "all notifications delivered" {
		t.Errorf("unexpected summary: %q", summary.Summary())
	}
}

func TestDispatch_ChannelIsolation(t *testing.T) {
	failing := &fakeNotifier{name: "failing", fail: true}
	working := &fakeNotifier{name: "working"}
	d := NewDispatcher(failing, working)

	summary := d.Dispatch(context.Background(), testAlert())

	// The failing channel never stops the other one.
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("expected both channels attempted, got %d and %d", failing.calls, working.calls)
	}
	if summary.Delivered() != 1 {
		t.Errorf("expected 1 delivered, got %d", summary.Delivered())
	}
	if summary.Summary() != "some notifications failed" {
		t.Errorf("unexpected summary: %q", summary.Summary())
	}

	for _, r := range summary.Results {
		switch r.Channel {
		case "failing":
			if r.Delivered || r.Error == "" {
				t.Errorf("failing channel result wrong: %+v", r)
			}
		case "working":
			if !r.Delivered || r.Error != "" {
				t.Errorf("working channel result wrong: %+v", r)
			}
		default:
			t.Errorf("unexpected channel %q", r.Channel)
		}
	}
}

func TestDispatch_AllFailed(t *testing.T) {
	d := NewDispatcher(&fakeNotifier{name: "a", fail: true}, &fakeNotifier{name: "b", fail: true})

	summary := d.Dispatch(context.Background(), testAlert())

	if summary.Delivered() != 0 {
		t.Errorf("expected 0 delivered, got %d", summary.Delivered())
	}
	if summary.Summary() != "notifications could not be sent" {
		t.Errorf("unexpected summary: %q", summary.Summary())
	}
}

func TestDispatch_NoChannels(t *testing.T) {
	d := NewDispatcher()

	summary := d.Dispatch(context.Background(), testAlert())

	if len(summary.Results) != 0 {
		t.Errorf("expected no results, got %d", len(summary.Results))
	}
	if summary.Summary() != "no notification channels configured" {
		t.Errorf("unexpected summary: %q", summary.Summary())
	}
}

func TestNewDispatcher_SkipsNilChannels(t *testing.T) {
	// Unconfigured channels come back nil from their constructors.
	telegram := NewTelegramNotifier("", "", 0)
	email := NewEmailJSNotifier("svc", "", "key", "ops@example.com", "", 0)
	working := &fakeNotifier{name: "working"}

	d := NewDispatcher(telegram, email, working)

	if d.Channels() != 1 {
		t.Fatalf("expected 1 channel, got %d", d.Channels())
	}
	summary := d.Dispatch(context.Background(), testAlert())
	if summary.Delivered() != 1 {
		t.Errorf("expected 1 delivered, got %d", summary.Delivered())
	}
}
