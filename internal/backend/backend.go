// Package backend is the client for the portal backend API: the network-info
// endpoint the cache refresh job polls and the usage endpoint the metrics
// job posts to. Requests authenticate with the router and contract
// identifier headers and are paced by a shared rate limiter so a tight cron
// schedule cannot hammer the backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zonenet/splashgate/pkg/models"
)

const (
	headerRouterID   = "X-Router-Id"
	headerContractID = "X-Contract-Id"
)

// maxResponseSize caps response bodies read from the backend.
const maxResponseSize = 1 << 20

// Client talks to the portal backend.
type Client struct {
	http       *http.Client
	base       string
	routerID   string
	contractID string
	limiter    *rate.Limiter
	log        *zap.Logger
}

// New creates a Client for the backend at baseURL, authenticating as the
// given router and contract.
func New(log *zap.Logger, baseURL, routerID, contractID string) *Client {
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		base:       baseURL,
		routerID:   routerID,
		contractID: contractID,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		log:        log,
	}
}

// FetchNetInfo GETs the network-info endpoint and returns the raw response
// body. Callers decide whether the payload is acceptable; the client only
// handles transport.
func (c *Client) FetchNetInfo(ctx context.Context) ([]byte, error) {
	req, err := c.request(ctx, http.MethodGet, "api/netinfo", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("netinfo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("netinfo: read body: %w", err)
	}
	return data, nil
}

// PushUsage POSTs a batch of usage records. Any 2xx response counts as
// acknowledged; everything else is an error so the caller keeps the records
// spooled.
func (c *Client) PushUsage(ctx context.Context, records []models.UsageRecord) error {
	body, err := json.Marshal(models.UsageBatch{Records: records})
	if err != nil {
		return fmt.Errorf("usage: marshal batch: %w", err)
	}

	req, err := c.request(ctx, http.MethodPost, "api/usage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("usage: status %d", resp.StatusCode)
	}
	c.log.Debug("usage batch acknowledged", zap.Int("records", len(records)))
	return nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.JoinPath(c.base, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(headerRouterID, c.routerID)
	req.Header.Set(headerContractID, c.contractID)
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return resp, nil
}
