package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// S3ImportFeed implements domain.TradeFeed by reading JSONL trade files
// dropped into an object-store folder. Exports from exchanges or on-chain
// indexers land under {dropPrefix}/{wallet}/; each processed file is moved
// under {importedPrefix}/ so a re-run never reads it twice.
type S3ImportFeed struct {
	blobs          domain.BlobReader
	dropPrefix     string
	importedPrefix string
	logger         *slog.Logger
}

// NewS3ImportFeed creates a drop-folder importer reading from dropPrefix and
// parking processed files under importedPrefix.
func NewS3ImportFeed(blobs domain.BlobReader, dropPrefix, importedPrefix string, logger *slog.Logger) *S3ImportFeed {
	return &S3ImportFeed{
		blobs:          blobs,
		dropPrefix:     strings.TrimSuffix(dropPrefix, "/"),
		importedPrefix: strings.TrimSuffix(importedPrefix, "/"),
		logger:         logger.With(slog.String("component", "s3_import_feed")),
	}
}

// Name identifies this feed in sync job records.
func (f *S3ImportFeed) Name() string {
	return "s3_drop"
}

// tradeRecord is the JSONL line format of a dropped trade file.
type tradeRecord struct {
	Signature string           `json:"signature"`
	Type      string           `json:"type"`
	TokenIn   string           `json:"token_in"`
	TokenOut  string           `json:"token_out"`
	AmountIn  decimal.Decimal  `json:"amount_in"`
	AmountOut decimal.Decimal  `json:"amount_out"`
	PriceIn   *decimal.Decimal `json:"price_in,omitempty"`
	PriceOut  *decimal.Decimal `json:"price_out,omitempty"`
	Fees      decimal.Decimal  `json:"fees"`
	BlockTime time.Time        `json:"block_time"`
	Success   *bool            `json:"success,omitempty"`
}

// FetchTrades reads every pending file in the wallet's drop folder, parses
// its JSONL lines into trades newer than since, and moves each fully parsed
// file into the imported folder. A malformed file aborts the fetch before
// anything is moved, so a corrected re-drop starts clean.
func (f *S3ImportFeed) FetchTrades(ctx context.Context, wallet domain.Wallet, since time.Time) ([]domain.Trade, error) {
	prefix := f.dropPrefix + "/" + wallet.Address + "/"
	infos, err := f.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("feed: list drop folder %s: %w", prefix, err)
	}
	if len(infos) == 0 {
		return nil, nil
	}

	var trades []domain.Trade
	var processed []string
	for _, info := range infos {
		if !strings.HasSuffix(info.Path, ".jsonl") {
			continue
		}

		fileTrades, err := f.readFile(ctx, info.Path, wallet, since)
		if err != nil {
			return nil, err
		}
		trades = append(trades, fileTrades...)
		processed = append(processed, info.Path)
	}

	for _, p := range processed {
		dest := f.importedPrefix + "/" + wallet.Address + "/" + path.Base(p)
		if err := f.blobs.Move(ctx, p, dest); err != nil {
			return nil, fmt.Errorf("feed: move %s to imported: %w", p, err)
		}
		f.logger.Info("drop file imported",
			slog.String("file", p), slog.String("wallet", wallet.Address))
	}

	return trades, nil
}

func (f *S3ImportFeed) readFile(ctx context.Context, key string, wallet domain.Wallet, since time.Time) ([]domain.Trade, error) {
	body, err := f.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("feed: get drop file %s: %w", key, err)
	}
	defer body.Close()

	var trades []domain.Trade
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec tradeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("feed: parse %s line %d: %w", key, lineNo, err)
		}
		if !rec.BlockTime.After(since) {
			continue
		}

		success := true
		if rec.Success != nil {
			success = *rec.Success
		}

		trades = append(trades, domain.Trade{
			Signature:     rec.Signature,
			WalletAddress: wallet.Address,
			Type:          domain.TradeType(rec.Type),
			TokenIn:       rec.TokenIn,
			TokenOut:      rec.TokenOut,
			AmountIn:      rec.AmountIn,
			AmountOut:     rec.AmountOut,
			PriceIn:       rec.PriceIn,
			PriceOut:      rec.PriceOut,
			Fees:          rec.Fees,
			BlockTime:     rec.BlockTime,
			Success:       success,
			Source:        f.Name(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: scan drop file %s: %w", key, err)
	}

	return trades, nil
}

// Compile-time interface check.
var _ domain.TradeFeed = (*S3ImportFeed)(nil)
