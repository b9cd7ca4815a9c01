package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoWebhook is returned when a message is sent without a webhook URL.
var ErrNoWebhook = errors.New("no webhook URL configured")

// Notifier delivers one message to a webhook.
type Notifier interface {
	Notify(ctx context.Context, webhookURL, text string) error
}

// StatusError is a non-2xx reply from the webhook endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("discord webhook error: status %d, body: %s", e.StatusCode, e.Body)
}

// DiscordNotifier posts messages to Discord incoming webhooks.
type DiscordNotifier struct {
	Client  *http.Client
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	Logger  zerolog.Logger
}

// NewDiscordNotifier creates a notifier with optional proxy support.
func NewDiscordNotifier(proxyURL string, retries int, logger zerolog.Logger) *DiscordNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &DiscordNotifier{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Retries: retries,
		Backoff: time.Second,
		Logger:  logger,
	}
}

// Send posts text once. Any 2xx reply (Discord answers 204) is success.
func (d *DiscordNotifier) Send(ctx context.Context, webhookURL, text string) error {
	if webhookURL == "" {
		return ErrNoWebhook
	}
	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (d *DiscordNotifier) SendWithRetry(ctx context.Context, webhookURL, text string, maxRetries int) error {
	if webhookURL == "" {
		return ErrNoWebhook
	}
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := d.Send(ctx, webhookURL, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := d.Backoff * time.Duration(1<<uint(i))
		d.Logger.Warn().
			Err(err).
			Int("attempt", i+1).
			Int("max_attempts", maxRetries+1).
			Dur("retry_in", backoff).
			Msg("discord send failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

// Notify implements Notifier using the configured retry count.
func (d *DiscordNotifier) Notify(ctx context.Context, webhookURL, text string) error {
	return d.SendWithRetry(ctx, webhookURL, text, d.Retries)
}

func (d *DiscordNotifier) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}
