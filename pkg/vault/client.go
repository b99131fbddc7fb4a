package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ritzau/notegraph/pkg/logging"
	"github.com/ritzau/notegraph/pkg/model"
	"github.com/sony/gobreaker"
)

// Vault HTTP endpoints, shared by Client and Handler
const (
	FilesPath  = "/api/files"
	WritePath  = "/api/files/write"
	DeletePath = "/api/files/delete"
)

type writeRequest struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

type deleteRequest struct {
	FilePath string `json:"filePath"`
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ClientOptions configures a Client. Zero values pick defaults.
type ClientOptions struct {
	HTTPClient *http.Client
	// BreakerTimeout is how long the breaker stays open before probing again
	BreakerTimeout time.Duration
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures uint32
}

// Client talks to a vault served over HTTP.
type Client struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a client for the vault server at baseURL
func NewClient(baseURL string, opts ClientOptions) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}

	maxFailures := opts.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vault",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("vault circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		breaker: cb,
	}
}

// List fetches the full listing
func (c *Client) List(ctx context.Context) ([]model.FileEntry, error) {
	var entries []model.FileEntry
	if err := c.do(ctx, http.MethodGet, FilesPath, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}
	return entries, nil
}

// Write replaces the note at path
func (c *Client) Write(ctx context.Context, path, content string) error {
	var resp mutationResponse
	if err := c.do(ctx, http.MethodPost, WritePath, writeRequest{FilePath: path, Content: content}, &resp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to write %s: %s", path, resp.Error)
	}
	return nil
}

// Delete removes the note at path
func (c *Client) Delete(ctx context.Context, path string) error {
	var resp mutationResponse
	if err := c.do(ctx, http.MethodPost, DeletePath, deleteRequest{FilePath: path}, &resp); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if !resp.Success {
		return fmt.Errorf("failed to delete %s: %s", path, resp.Error)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}
