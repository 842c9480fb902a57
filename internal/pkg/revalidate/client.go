package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrNoEndpoint = errors.New("revalidate endpoint not configured")

// Client 调用前端站点的重新验证接口
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

type revalidateRequest struct {
	Path   string `json:"path"`
	Secret string `json:"secret"`
}

// NewClient 创建客户端
func NewClient(endpoint, secret string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Revalidate 请求前端重新生成 path 对应的页面
func (c *Client) Revalidate(ctx context.Context, path string) error {
	if c.endpoint == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(revalidateRequest{Path: path, Secret: c.secret})
	if err != nil {
		return fmt.Errorf("failed to marshal revalidate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate %s: unexpected status %d", path, resp.StatusCode)
	}

	return nil
}
