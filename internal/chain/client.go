// Package chain provides ledger JSON-RPC access for the savings service.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nestfund/savings_layer/internal/httputil"
	"github.com/nestfund/savings_layer/internal/metrics"
)

// Commitment levels accepted by the RPC node.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

const maxResponseBytes = 16 << 20

// Client provides ledger RPC client functionality. It is safe for concurrent
// use; the underlying http.Client is shared across requests.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	commitment string
	metrics    *metrics.Metrics
	nextID     atomic.Uint64
}

// Config holds client configuration.
type Config struct {
	RPCURL     string
	Commitment string
	Timeout    time.Duration
	Metrics    *metrics.Metrics
}

// NewClient creates a new ledger RPC client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	commitment := cfg.Commitment
	switch commitment {
	case "":
		commitment = CommitmentConfirmed
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
	default:
		return nil, fmt.Errorf("unsupported commitment %q", commitment)
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		commitment: commitment,
		metrics:    cfg.Metrics,
	}, nil
}

// Commitment returns the commitment level used for reads.
func (c *Client) Commitment() string {
	return c.commitment
}

// =============================================================================
// Core RPC Methods
// =============================================================================

// Call makes an RPC call to the ledger node.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (result json.RawMessage, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRPCCall(method, err, time.Since(start))
	}()

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := httputil.ReadAllStrict(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 256)}
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// GetHealth returns nil when the node reports itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	result, err := c.Call(ctx, "getHealth", nil)
	if err != nil {
		return err
	}

	var status string
	if err := json.Unmarshal(result, &status); err != nil {
		return fmt.Errorf("decode health: %w", err)
	}
	if status != "ok" {
		return fmt.Errorf("node unhealthy: %s", status)
	}
	return nil
}

func (c *Client) commitmentConfig() map[string]interface{} {
	return map[string]interface{}{"commitment": c.commitment}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
