package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentstudio/internal/protocol"
)

// DefaultTimeout bounds each discovery request.
const DefaultTimeout = 3 * time.Second

const maxBodySize = 1 << 20

// HTTPDoer abstracts HTTP clients used for discovery.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source answers the discovery queries.
type Source interface {
	Providers(ctx context.Context) (map[string]bool, error)
	Models(ctx context.Context) (map[string][]string, error)
	Status(ctx context.Context) (protocol.StatusResponse, error)
}

// Client queries the backend discovery endpoints.
type Client struct {
	baseURL string
	timeout time.Duration
	doer    HTTPDoer
}

var _ Source = (*Client)(nil)

// NewClient constructs a client for the given base URL. A zero timeout
// uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, doer HTTPDoer) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if doer == nil {
		doer = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		doer:    doer,
	}
}

// Providers returns reachability per provider kind.
func (c *Client) Providers(ctx context.Context) (map[string]bool, error) {
	var res protocol.ProvidersResponse
	if err := c.get(ctx, "/api/providers", &res); err != nil {
		return nil, err
	}
	if res.Providers == nil {
		res.Providers = map[string]bool{}
	}
	return res.Providers, nil
}

// Models returns the model ids each reachable provider serves.
func (c *Client) Models(ctx context.Context) (map[string][]string, error) {
	var res protocol.ModelsResponse
	if err := c.get(ctx, "/api/models", &res); err != nil {
		return nil, err
	}
	if res.Models == nil {
		res.Models = map[string][]string{}
	}
	return res.Models, nil
}

// Status probes whether the backend is up.
func (c *Client) Status(ctx context.Context) (protocol.StatusResponse, error) {
	var res protocol.StatusResponse
	if err := c.get(ctx, "/api/status", &res); err != nil {
		return protocol.StatusResponse{}, err
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: http %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
