package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
)

var _ port.ContentStore = (*Client)(nil)

// Client 通过 HTTP API 访问内容寻址存储与其公共网关。
// 存储服务负责按内容哈希铸造标识；这里只做传输。
type Client struct {
	storeURL   string
	gatewayURL string
	httpClient *http.Client
}

func NewClient(storeURL, gatewayURL string, timeout time.Duration) *Client {
	return &Client{
		storeURL:   strings.TrimRight(storeURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Exists(ctx context.Context, cid string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.storeURL+"/blobs/"+cid, nil)
	if err != nil {
		return false, fmt.Errorf("content store: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("content store: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("content store: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL+"/blobs", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("content store: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("content store: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("content store: upload status %d", resp.StatusCode)
	}

	var payload struct {
		CID string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("content store: decode upload response: %w", err)
	}
	if payload.CID == "" {
		return "", fmt.Errorf("content store: upload response missing cid")
	}
	return payload.CID, nil
}

func (c *Client) Get(ctx context.Context, cid string) ([]byte, string, error) {
	return c.fetch(ctx, c.storeURL+"/blobs/"+cid)
}

func (c *Client) GetPath(ctx context.Context, cid, path string) ([]byte, string, error) {
	return c.fetch(ctx, c.gatewayURL+"/"+cid+"/"+strings.TrimPrefix(path, "/"))
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("content store: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("content store: %w: %v", domain.ErrUpstreamTimeout, err)
		}
		return nil, "", fmt.Errorf("content store: %w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("content store: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("content store: read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
