package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds one webhook POST.
	DefaultTimeout = 10 * time.Second

	// RateLimit is the maximum outbound notifications per second.
	RateLimit = 5.0
)

// Webhook posts events as JSON to a notification service endpoint,
// rate-limited so a burst of assignments cannot flood the receiver. Sends
// run in the caller's goroutine up to the rate limit wait; errors are
// counted and dropped.
type Webhook struct {
	url        string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.Mutex
	dropped int
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithToken sets a bearer token for the notification endpoint.
func WithToken(token string) WebhookOption {
	return func(w *Webhook) {
		w.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.httpClient = hc
	}
}

// NewWebhook creates a webhook notifier targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Notify implements Notifier. Failures are swallowed after being counted;
// the workflow operation that produced the event has already committed.
func (w *Webhook) Notify(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	if err := w.limiter.Wait(ctx); err != nil {
		w.drop()
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		w.drop()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.drop()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.drop()
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.drop()
	}
}

// Dropped reports how many events failed to deliver.
func (w *Webhook) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *Webhook) drop() {
	w.mu.Lock()
	w.dropped++
	w.mu.Unlock()
}
