package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// BridgeClient talks to a broker bridge: a small REST service in front of
// the actual trading terminal. Outbound calls are rate-limited because the
// terminal side throttles aggressively.
type BridgeClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewBridgeClient creates a bridge client with the given per-request timeout
func NewBridgeClient(baseURL string, timeout time.Duration) *BridgeClient {
	return &BridgeClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(10), 10), // 10 req/s against the bridge
	}
}

// Ping performs a lightweight authentication check against the bridge
func (b *BridgeClient) Ping(ctx context.Context, creds Credentials) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/ping/%s", b.baseURL, url.PathEscape(creds.Login)), nil)
	if err != nil {
		return err
	}
	b.authorize(req, creds)

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuthFailed
	default:
		return fmt.Errorf("%w: bridge returned %d", ErrUnavailable, resp.StatusCode)
	}
}

// GetDeals fetches executed deals for [from, to]
func (b *BridgeClient) GetDeals(ctx context.Context, creds Credentials, from, to time.Time) ([]Deal, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/history/%s?from=%s&to=%s",
		b.baseURL,
		url.PathEscape(creds.Login),
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	b.authorize(req, creds)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthFailed
	default:
		return nil, fmt.Errorf("%w: bridge returned %d", ErrUnavailable, resp.StatusCode)
	}

	var deals []Deal
	if err := json.NewDecoder(resp.Body).Decode(&deals); err != nil {
		return nil, fmt.Errorf("failed to decode deal batch: %w", err)
	}
	return deals, nil
}

// ValidateConnection pings with exponential backoff, for interactive
// credential checks where one transient bridge hiccup shouldn't fail the
// whole validation
func (b *BridgeClient) ValidateConnection(ctx context.Context, creds Credentials, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	retry := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = b.Ping(ctx, creds)
		if lastErr == nil {
			return nil
		}
		// Rejected credentials won't get better with retries
		if lastErr == ErrAuthFailed {
			return lastErr
		}

		log.Debug().
			Str("component", "broker_bridge").
			Int("attempt", attempt).
			Err(lastErr).
			Msg("connection validation attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.Duration()):
		}
	}
	return lastErr
}

func (b *BridgeClient) authorize(req *http.Request, creds Credentials) {
	req.Header.Set("X-Broker-Server", creds.Server)
	req.Header.Set("Authorization", "Bearer "+creds.Secret)
}
