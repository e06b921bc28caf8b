// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"sync"
	"sync/atomic"

	"solana-token-aggregator/internal/solana"
)

// RPCClient implements solana.RPCClient from in-memory maps.
type RPCClient struct {
	mu       sync.RWMutex
	accounts map[string]*solana.AccountInfo
	errs     map[string]error

	// HealthErr is returned by GetHealth.
	HealthErr error
	// Slot is returned by GetSlot.
	Slot int64

	calls atomic.Int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts: make(map[string]*solana.AccountInfo),
		errs:     make(map[string]error),
	}
}

// SetAccount registers raw account data for pubkey.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[pubkey] = info
}

// SetError makes GetAccountInfo fail for pubkey.
func (c *RPCClient) SetError(pubkey string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[pubkey] = err
}

// GetAccountInfo returns the registered account, or nil if unknown.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.calls.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.errs[pubkey]; ok {
		return nil, err
	}
	return c.accounts[pubkey], nil
}

// GetHealth returns HealthErr.
func (c *RPCClient) GetHealth(context.Context) error {
	return c.HealthErr
}

// GetSlot returns Slot.
func (c *RPCClient) GetSlot(context.Context) (int64, error) {
	return c.Slot, nil
}

// Calls returns the number of GetAccountInfo calls made.
func (c *RPCClient) Calls() int64 {
	return c.calls.Load()
}

var _ solana.RPCClient = (*RPCClient)(nil)
