package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// WalletService manages the set of wallets the journal tracks.
type WalletService struct {
	wallets domain.WalletStore
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewWalletService creates a WalletService.
func NewWalletService(wallets domain.WalletStore, audit domain.AuditStore, logger *slog.Logger) *WalletService {
	return &WalletService{wallets: wallets, audit: audit, logger: logger}
}

// Link registers a wallet for tracking. The address is normalized before
// validation so the same wallet written with different casing maps to one
// record. Returns domain.ErrAlreadyExists for an address already linked.
func (s *WalletService) Link(ctx context.Context, address, label, chain, source string) (domain.Wallet, error) {
	w := domain.Wallet{
		Address: domain.NormalizeAddress(chain, address),
		Label:   label,
		Chain:   chain,
		Source:  source,
	}
	if err := w.Validate(); err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet_service: link %s: %w", address, err)
	}

	if err := s.wallets.Create(ctx, w); err != nil {
		return domain.Wallet{}, fmt.Errorf("wallet_service: link %s: %w", w.Address, err)
	}

	if err := s.audit.Log(ctx, "wallet_linked", map[string]any{
		"wallet": w.Address,
		"chain":  w.Chain,
		"label":  w.Label,
	}); err != nil {
		s.logger.WarnContext(ctx, "wallet_service: audit log failed",
			slog.String("wallet", w.Address),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wallet_service: wallet linked",
		slog.String("wallet", w.Address),
		slog.String("chain", w.Chain),
	)
	return w, nil
}

// Unlink removes a wallet; its trades and derived positions cascade away.
func (s *WalletService) Unlink(ctx context.Context, address, chain string) error {
	normalized := domain.NormalizeAddress(chain, address)
	if err := s.wallets.Delete(ctx, normalized); err != nil {
		return fmt.Errorf("wallet_service: unlink %s: %w", normalized, err)
	}

	if err := s.audit.Log(ctx, "wallet_unlinked", map[string]any{
		"wallet": normalized,
	}); err != nil {
		s.logger.WarnContext(ctx, "wallet_service: audit log failed",
			slog.String("wallet", normalized),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// List returns all tracked wallets.
func (s *WalletService) List(ctx context.Context) ([]domain.Wallet, error) {
	wallets, err := s.wallets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet_service: list: %w", err)
	}
	return wallets, nil
}
