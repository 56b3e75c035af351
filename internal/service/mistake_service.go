package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// validCategories is the closed set of mistake classifications the journal
// accepts.
var validCategories = map[domain.MistakeCategory]bool{
	domain.MistakeFOMO:          true,
	domain.MistakeOversize:      true,
	domain.MistakeNoStopLoss:    true,
	domain.MistakeEarlyExit:     true,
	domain.MistakeLateExit:      true,
	domain.MistakeRevengeTrade:  true,
	domain.MistakeNoThesis:      true,
	domain.MistakeOtherCategory: true,
}

// MistakeService journals trading mistakes against reconstructed positions
// and surfaces recurring patterns per wallet.
type MistakeService struct {
	mistakes  domain.MistakeStore
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewMistakeService creates a MistakeService.
func NewMistakeService(mistakes domain.MistakeStore, positions domain.PositionStore, logger *slog.Logger) *MistakeService {
	return &MistakeService{mistakes: mistakes, positions: positions, logger: logger}
}

// Tag attaches a mistake to a position. The position must exist; tagging a
// phantom position is a client error, not a silent insert.
func (s *MistakeService) Tag(ctx context.Context, positionID string, category domain.MistakeCategory, note string) (domain.Mistake, error) {
	if !validCategories[category] {
		return domain.Mistake{}, fmt.Errorf("mistake_service: unknown category %q", category)
	}

	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return domain.Mistake{}, fmt.Errorf("mistake_service: position %s: %w", positionID, err)
	}

	m := domain.Mistake{
		WalletAddress: pos.WalletAddress,
		PositionID:    pos.ID,
		Category:      category,
		Note:          note,
	}
	id, err := s.mistakes.Create(ctx, m)
	if err != nil {
		return domain.Mistake{}, fmt.Errorf("mistake_service: tag position %s: %w", positionID, err)
	}
	m.ID = id

	s.logger.InfoContext(ctx, "mistake_service: position tagged",
		slog.String("position_id", positionID),
		slog.String("category", string(category)),
	)
	return m, nil
}

// Untag removes a journaled mistake.
func (s *MistakeService) Untag(ctx context.Context, id int64) error {
	if err := s.mistakes.Delete(ctx, id); err != nil {
		return fmt.Errorf("mistake_service: untag %d: %w", id, err)
	}
	return nil
}

// ListForPosition returns the mistakes journaled against a position.
func (s *MistakeService) ListForPosition(ctx context.Context, positionID string) ([]domain.Mistake, error) {
	mistakes, err := s.mistakes.ListByPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("mistake_service: list for position %s: %w", positionID, err)
	}
	return mistakes, nil
}

// ListForWallet returns a wallet's journaled mistakes, newest first.
func (s *MistakeService) ListForWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Mistake, error) {
	mistakes, err := s.mistakes.ListByWallet(ctx, wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("mistake_service: list for wallet %s: %w", wallet, err)
	}
	return mistakes, nil
}

// Summary counts a wallet's mistakes per category, most frequent first.
func (s *MistakeService) Summary(ctx context.Context, wallet string) ([]domain.MistakeSummary, error) {
	summary, err := s.mistakes.SummarizeByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("mistake_service: summary for %s: %w", wallet, err)
	}
	return summary, nil
}
