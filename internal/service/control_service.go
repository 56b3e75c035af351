package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// Control file actions.
const (
	actionLinkWallet   = "link_wallet"
	actionUnlinkWallet = "unlink_wallet"
	actionTagMistake   = "tag_mistake"
	actionUntagMistake = "untag_mistake"
)

// controlRecord is one line of a dropped control file. Which fields matter
// depends on the action.
type controlRecord struct {
	Action string `json:"action"`

	// link_wallet / unlink_wallet
	Address string `json:"address,omitempty"`
	Label   string `json:"label,omitempty"`
	Chain   string `json:"chain,omitempty"`
	Source  string `json:"source,omitempty"`

	// tag_mistake / untag_mistake
	PositionID string `json:"position_id,omitempty"`
	Category   string `json:"category,omitempty"`
	Note       string `json:"note,omitempty"`
	MistakeID  int64  `json:"mistake_id,omitempty"`
}

// ControlService applies operator actions dropped as JSONL files into the
// bucket's control folder: linking and unlinking wallets, tagging and
// untagging mistakes. The journal has no API surface, so this folder is how
// the operator steers it between sync passes. Processed files are parked
// under the imported prefix the same way trade drops are.
type ControlService struct {
	blobs           domain.BlobReader
	wallets         *WalletService
	mistakes        *MistakeService
	controlPrefix   string
	processedPrefix string
	logger          *slog.Logger
}

// NewControlService creates a ControlService reading from controlPrefix and
// parking processed files under processedPrefix.
func NewControlService(
	blobs domain.BlobReader,
	wallets *WalletService,
	mistakes *MistakeService,
	controlPrefix, processedPrefix string,
	logger *slog.Logger,
) *ControlService {
	return &ControlService{
		blobs:           blobs,
		wallets:         wallets,
		mistakes:        mistakes,
		controlPrefix:   strings.TrimSuffix(controlPrefix, "/"),
		processedPrefix: strings.TrimSuffix(processedPrefix, "/"),
		logger:          logger.With(slog.String("component", "control_service")),
	}
}

// Process applies every pending control file, oldest listing order first.
// A file that fails to parse is left in place and aborts the pass so a
// corrected re-drop starts clean; an action that parses but fails to apply
// (unknown category, phantom position) is logged and skipped, because one
// bad line must not wedge the folder forever.
func (s *ControlService) Process(ctx context.Context) error {
	infos, err := s.blobs.List(ctx, s.controlPrefix+"/")
	if err != nil {
		return fmt.Errorf("control_service: list %s: %w", s.controlPrefix, err)
	}

	for _, info := range infos {
		if !strings.HasSuffix(info.Path, ".jsonl") {
			continue
		}

		records, err := s.readFile(ctx, info.Path)
		if err != nil {
			return err
		}

		applied := 0
		for i, rec := range records {
			if err := s.apply(ctx, rec); err != nil {
				s.logger.ErrorContext(ctx, "control action failed",
					slog.String("file", info.Path),
					slog.Int("line", i+1),
					slog.String("action", rec.Action),
					slog.String("error", err.Error()),
				)
				continue
			}
			applied++
		}

		dest := s.processedPrefix + "/control/" + path.Base(info.Path)
		if err := s.blobs.Move(ctx, info.Path, dest); err != nil {
			return fmt.Errorf("control_service: move %s to processed: %w", info.Path, err)
		}
		s.logger.InfoContext(ctx, "control file processed",
			slog.String("file", info.Path),
			slog.Int("actions", len(records)),
			slog.Int("applied", applied),
		)
	}
	return nil
}

func (s *ControlService) readFile(ctx context.Context, key string) ([]controlRecord, error) {
	body, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("control_service: get %s: %w", key, err)
	}
	defer body.Close()

	var records []controlRecord
	scanner := bufio.NewScanner(body)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec controlRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("control_service: parse %s line %d: %w", key, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("control_service: scan %s: %w", key, err)
	}
	return records, nil
}

func (s *ControlService) apply(ctx context.Context, rec controlRecord) error {
	switch rec.Action {
	case actionLinkWallet:
		source := rec.Source
		if source == "" {
			source = "control"
		}
		_, err := s.wallets.Link(ctx, rec.Address, rec.Label, rec.Chain, source)
		return err

	case actionUnlinkWallet:
		return s.wallets.Unlink(ctx, rec.Address, rec.Chain)

	case actionTagMistake:
		m, err := s.mistakes.Tag(ctx, rec.PositionID, domain.MistakeCategory(rec.Category), rec.Note)
		if err != nil {
			return err
		}
		tagged, err := s.mistakes.ListForPosition(ctx, m.PositionID)
		if err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "mistake tagged",
			slog.Int64("mistake_id", m.ID),
			slog.String("position_id", m.PositionID),
			slog.Int("position_total", len(tagged)),
		)
		return nil

	case actionUntagMistake:
		return s.mistakes.Untag(ctx, rec.MistakeID)

	default:
		return fmt.Errorf("control_service: unknown action %q", rec.Action)
	}
}
