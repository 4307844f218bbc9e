package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
)

var _ port.ExecutionEngine = (*Client)(nil)

// Client 通过 HTTP API 驱动本 pod 内的函数执行引擎。
// 引擎对同一 ID 的重复部署幂等（最后一次注册生效）。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Deploy(ctx context.Context, fn *domain.Function) error {
	body, err := json.Marshal(fn)
	if err != nil {
		return fmt.Errorf("engine: encode function: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/functions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("engine: deploy status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Undeploy(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/functions/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("engine: undeploy status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) GetFunction(ctx context.Context, id string) (*domain.Function, error) {
	resp, err := c.do(ctx, http.MethodGet, "/functions/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFunctionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: get status %d", resp.StatusCode)
	}

	var fn domain.Function
	if err := json.NewDecoder(resp.Body).Decode(&fn); err != nil {
		return nil, fmt.Errorf("engine: decode function: %w", err)
	}
	return &fn, nil
}

func (c *Client) Invoke(ctx context.Context, id string, payload []byte) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, "/functions/"+id+"/invoke", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFunctionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: invoke status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) InvokeHTTP(ctx context.Context, id string, event *port.HTTPEvent) (*port.HTTPResult, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("engine: encode event: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/functions/"+id+"/http", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFunctionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: invoke-http status %d", resp.StatusCode)
	}

	var result port.HTTPResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("engine: decode result: %w", err)
	}
	return &result, nil
}

func (c *Client) GetLogs(ctx context.Context, id string, limit int) ([]port.LogEntry, error) {
	path := "/functions/" + id + "/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFunctionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: logs status %d", resp.StatusCode)
	}

	var entries []port.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("engine: decode logs: %w", err)
	}
	return entries, nil
}

func (c *Client) GetMetrics(ctx context.Context, id string) (*port.Metrics, error) {
	resp, err := c.do(ctx, http.MethodGet, "/functions/"+id+"/metrics", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFunctionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine: metrics status %d", resp.StatusCode)
	}

	var m port.Metrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("engine: decode metrics: %w", err)
	}
	return &m, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("engine: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("engine: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("engine: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return resp, nil
}
