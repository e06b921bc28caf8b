package solana

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RPCClient is the subset of the Solana JSON-RPC API used by the aggregator.
type RPCClient interface {
	// GetAccountInfo retrieves an account by public key. Returns nil, nil if absent.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetHealth returns nil when the node reports "ok".
	GetHealth(ctx context.Context) error

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// DecodeData returns the raw account bytes.
func (a *AccountInfo) DecodeData() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return data, nil
}
