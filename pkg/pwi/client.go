// Package pwi implements an HTTP client for PlaneWave Interface (PWI)
// telescope mount and focuser controllers.
//
// PWI controllers expose their command surface as plain HTTP GET
// endpoints with url-encoded query parameters and line-oriented
// plain-text status payloads. This package wraps that surface in typed
// device interfaces with an explicit connection state machine and a
// bounded-retry initialisation supervisor.
package pwi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultHost is the controller host used when none is configured.
	DefaultHost = "localhost"
	// DefaultPort is the PWI controller HTTP port.
	DefaultPort = 8220
	// DefaultTimeout applies uniformly to the connect, read and write
	// phases of every request.
	DefaultTimeout = 3 * time.Second
)

// ClientConfig holds the transport configuration for one controller.
type ClientConfig struct {
	// Host is the controller hostname or IP address
	Host string
	// Port is the controller HTTP port
	Port int
	// Timeout bounds connect, read and write for each request
	Timeout time.Duration
}

// Validate checks the configuration and fills in defaults.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %v", c.Timeout)
	}
	return nil
}

// Client issues synchronous HTTP GET commands against one PWI
// controller. It is a retry-free primitive: a non-success response is
// reported as a *StatusCodeError and never retried here.
//
// A Client is owned by a single device interface and is not meant to be
// shared across goroutines without external synchronisation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the controller at config.Host:Port.
// A nil config selects the defaults (localhost:8220, 3s timeout).
func NewClient(config *ClientConfig, logger *zap.Logger) (*Client, error) {
	if config == nil {
		config = &ClientConfig{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dialer := &net.Dialer{Timeout: config.Timeout}

	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", config.Host, config.Port),
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: config.Timeout,
			},
		},
		logger: logger.With(zap.String("component", "pwi_client")),
	}, nil
}

// BaseURL returns the controller base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request for path with the given query parameters and
// returns the raw response body. A response outside the 2xx range fails
// with a *StatusCodeError carrying the status code.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Command rejected by controller",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &StatusCodeError{Path: path, Code: resp.StatusCode}
	}

	return body, nil
}
