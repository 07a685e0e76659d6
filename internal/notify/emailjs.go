package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stocktrack-api/internal/model"
)

const emailJSAPIURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSNotifier delivers alerts via the EmailJS transactional email API.
type EmailJSNotifier struct {
	serviceID    string
	templateID   string
	publicKey    string
	recipient    string
	dashboardURL string
	apiURL       string
	client       *http.Client
}

// NewEmailJSNotifier creates an email channel. Returns nil when any of
// the service id, template id, public key or recipient is missing so
// the channel stays disabled.
func NewEmailJSNotifier(serviceID, templateID, publicKey, recipient, dashboardURL string, timeout time.Duration) Notifier {
	if serviceID == "" || templateID == "" || publicKey == "" || recipient == "" {
		return nil
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &EmailJSNotifier{
		serviceID:    serviceID,
		templateID:   templateID,
		publicKey:    publicKey,
		recipient:    recipient,
		dashboardURL: dashboardURL,
		apiURL:       emailJSAPIURL,
		client:       &http.Client{Timeout: timeout},
	}
}

// Name implements Notifier.
func (e *EmailJSNotifier) Name() string {
	return "email"
}

// Send submits the alert through the configured EmailJS template. The
// template receives the full parameter mapping including a deep link
// back to the approval view.
func (e *EmailJSNotifier) Send(ctx context.Context, alert model.OutboundAlert) error {
	payload, err := json.Marshal(map[string]interface{}{
		"service_id":  e.serviceID,
		"template_id": e.templateID,
		"user_id":     e.publicKey,
		"template_params": map[string]interface{}{
			"to_email":       e.recipient,
			"item_name":      alert.ItemName,
			"item_quantity":  alert.Quantity,
			"notes":          alert.Notes,
			"created_by":     alert.CreatedBy,
			"created_at":     alert.CreatedAt.Format("2006-01-02 15:04:05"),
			"item_id":        alert.RequestID,
			"dashboard_link": e.dashboardURL + "/admin/outbound",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode emailjs payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Ensure EmailJSNotifier implements Notifier
var _ Notifier = (*EmailJSNotifier)(nil)
