package model

import "time"

// OutboundAlert is the payload delivered to notification channels when
// an outbound request is created and waits for approval.
type OutboundAlert struct {
	RequestID string
	ItemName  string
	Quantity  int
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// ChannelResult is the delivery outcome for a single notification channel.
type ChannelResult struct {
	Channel   string `json:"channel"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// DispatchSummary aggregates per-channel results for the caller. The
// owning create operation reports it but never fails because of it.
type DispatchSummary struct {
	Results []ChannelResult `json:"results"`
}

// Delivered counts the channels that accepted the alert.
func (s DispatchSummary) Delivered() int {
	n := 0
	for _, r := range s.Results {
		if r.Delivered {
			n++
		}
	}
	return n
}

// Summary renders a short human-readable delivery status.
func (s DispatchSummary) Summary() string {
	switch {
	case len(s.Results) == 0:
		return "no notification channels configured"
	case s.Delivered() == len(s.Results):
		return "all notifications delivered"
	case s.Delivered() > 0:
		return "some notifications failed"
	default:
		return "notifications could not be sent"
	}
}
