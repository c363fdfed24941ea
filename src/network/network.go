package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"product-filter/src/helpers"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/models"
)

// HTTPStatusError is returned for a non-2xx answer.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt may succeed
func (e *HTTPStatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusForbidden || e.StatusCode >= 500
}

// -----------------------------------------------------------------------------

// NetworkManager performs outbound HTTP calls with retries and proxy rotation.
type NetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	mu     sync.Mutex
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, log *logger.Logger) *NetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &NetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent, log),
		Logger:       log,
		sleep:        sleepCtx,
	}
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient() *http.Client {
	transport := &http.Transport{}

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	nm.mu.Lock()
	nm.client = nm.createClient()
	nm.mu.Unlock()
}

func (nm *NetworkManager) currentClient() *http.Client {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// PostJSON sends body as JSON and returns the response body. Blocked,
// throttled and server-side failures are retried with a quadratic delay and
// a fresh proxy; other client errors return at once.
func (nm *NetworkManager) PostJSON(ctx context.Context, urlStr string, headers map[string]string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	maxRetries := nm.Config.Network.MaxRetries
	baseDelay := time.Duration(nm.Config.Network.RetryDelayMs) * time.Millisecond
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			if err := nm.sleep(ctx, time.Duration(i*i)*baseDelay); err != nil {
				return nil, err
			}
			nm.rotateProxy()
		}

		respBody, err := nm.post(ctx, urlStr, headers, payload)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		var statusErr *HTTPStatusError
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, err
		}
		nm.Logger.Info("Request to %s failed (attempt %d/%d): %v", urlStr, i+1, maxRetries+1, err)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) post(ctx context.Context, urlStr string, headers map[string]string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := nm.currentClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(data) > 512 {
			data = data[:512]
		}
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// -----------------------------------------------------------------------------

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
