package chain

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"
)

// maxMultipleAccounts is the node's per-request limit for getMultipleAccounts.
const maxMultipleAccounts = 100

// =============================================================================
// Account Methods
// =============================================================================

// GetAccountInfo fetches one account. It returns nil, nil when the account
// does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	result, err := c.Call(ctx, "getAccountInfo", []interface{}{address, c.accountConfig()})
	if err != nil {
		return nil, err
	}

	value := gjson.GetBytes(result, "value")
	if !value.Exists() {
		return nil, fmt.Errorf("getAccountInfo: malformed result")
	}
	return parseAccount(value)
}

// GetMultipleAccounts fetches accounts in order. Missing accounts are nil in
// the returned slice. Requests above the node limit are split.
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []string) ([]*AccountInfo, error) {
	out := make([]*AccountInfo, 0, len(addresses))
	for start := 0; start < len(addresses); start += maxMultipleAccounts {
		end := start + maxMultipleAccounts
		if end > len(addresses) {
			end = len(addresses)
		}

		result, err := c.Call(ctx, "getMultipleAccounts", []interface{}{addresses[start:end], c.accountConfig()})
		if err != nil {
			return nil, err
		}

		values := gjson.GetBytes(result, "value")
		if !values.IsArray() {
			return nil, fmt.Errorf("getMultipleAccounts: malformed result")
		}
		items := values.Array()
		if len(items) != end-start {
			return nil, fmt.Errorf("getMultipleAccounts: got %d accounts, want %d", len(items), end-start)
		}
		for _, item := range items {
			info, err := parseAccount(item)
			if err != nil {
				return nil, err
			}
			out = append(out, info)
		}
	}
	return out, nil
}

// GetBalance returns the native balance of an address in lamports.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	result, err := c.Call(ctx, "getBalance", []interface{}{address, c.commitmentConfig()})
	if err != nil {
		return 0, err
	}

	value := gjson.GetBytes(result, "value")
	if value.Type != gjson.Number {
		return 0, fmt.Errorf("getBalance: malformed result")
	}
	return value.Uint(), nil
}

// GetLatestBlockhash returns a recent blockhash to anchor new transactions.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	result, err := c.Call(ctx, "getLatestBlockhash", []interface{}{c.commitmentConfig()})
	if err != nil {
		return nil, err
	}

	hash := gjson.GetBytes(result, "value.blockhash")
	if hash.String() == "" {
		return nil, fmt.Errorf("getLatestBlockhash: missing blockhash")
	}
	return &Blockhash{
		Hash:                 hash.String(),
		LastValidBlockHeight: gjson.GetBytes(result, "value.lastValidBlockHeight").Uint(),
	}, nil
}

func (c *Client) accountConfig() map[string]interface{} {
	return map[string]interface{}{
		"encoding":   "base64",
		"commitment": c.commitment,
	}
}

func parseAccount(value gjson.Result) (*AccountInfo, error) {
	if value.Type == gjson.Null {
		return nil, nil
	}

	data := value.Get("data")
	if !data.IsArray() || data.Get("1").String() != "base64" {
		return nil, fmt.Errorf("account data: unexpected encoding %s", data.Raw)
	}
	raw, err := base64.StdEncoding.DecodeString(data.Get("0").String())
	if err != nil {
		return nil, fmt.Errorf("account data: %w", err)
	}

	return &AccountInfo{
		Lamports:   value.Get("lamports").Uint(),
		Owner:      value.Get("owner").String(),
		Data:       raw,
		Executable: value.Get("executable").Bool(),
		RentEpoch:  value.Get("rentEpoch").Uint(),
	}, nil
}
