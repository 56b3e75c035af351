package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet is a linked, watch-only blockchain wallet whose trade history the
// journal tracks. The journal never holds keys; Address is purely an
// identifier for the import feed.
type Wallet struct {
	Address   string
	Label     string
	Chain     string // "ethereum", "solana", ...
	Source    string // which feed imports this wallet's trades
	CreatedAt time.Time
}

// NormalizeAddress lowercases EVM addresses so the same wallet never appears
// under two casings. Non-EVM addresses are left as-is (base58 is case
// sensitive).
func NormalizeAddress(chain, address string) string {
	if chain == "ethereum" {
		return strings.ToLower(address)
	}
	return address
}

// Validate checks the wallet is well-formed enough to register. EVM addresses
// are checked structurally; other chains only require a non-empty address.
func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Address) == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidWallet)
	}
	if w.Chain == "ethereum" && !common.IsHexAddress(w.Address) {
		return fmt.Errorf("%w: %q is not a valid EVM address", ErrInvalidWallet, w.Address)
	}
	return nil
}
