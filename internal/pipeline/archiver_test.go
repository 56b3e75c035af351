package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestParseCron(t *testing.T) {
	c, err := parseCron("0 3 1 * *")
	require.NoError(t, err)

	assert.True(t, c.matchesTime(time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, c.matchesTime(time.Date(2025, 6, 1, 3, 1, 0, 0, time.UTC)))
	assert.False(t, c.matchesTime(time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)))
}

func TestParseCron_Lists(t *testing.T) {
	c, err := parseCron("0,30 * * * *")
	require.NoError(t, err)

	assert.True(t, c.matchesTime(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, c.matchesTime(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)))
	assert.False(t, c.matchesTime(time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC)))
}

func TestParseCron_Invalid(t *testing.T) {
	_, err := parseCron("0 3 1 *")
	assert.Error(t, err, "four fields must be rejected")

	_, err = parseCron("x 3 1 * *")
	assert.Error(t, err)
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC), next)

	// A match on the current minute must advance to the next occurrence.
	next, err = nextCronTime("30 10 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 16, 10, 30, 0, 0, time.UTC), next)
}

type fakeBlobArchiver struct {
	archived int64
	err      error
	cutoff   time.Time
}

func (f *fakeBlobArchiver) ArchiveTrades(_ context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	return f.archived, f.err
}

func (f *fakeBlobArchiver) ExportPositions(context.Context, string, []domain.Position) (string, error) {
	return "", nil
}

type fakeTradeStore struct {
	deleted   int64
	deleteErr error
	calls     int
}

func (f *fakeTradeStore) InsertBatch(context.Context, []domain.Trade) (int64, error) {
	return 0, nil
}
func (f *fakeTradeStore) ListByWalletAsc(context.Context, string) ([]domain.Trade, error) {
	return nil, nil
}
func (f *fakeTradeStore) GetLastBlockTime(context.Context, string) (time.Time, error) {
	return time.Time{}, nil
}
func (f *fakeTradeStore) ListByWallet(context.Context, string, domain.ListOpts) ([]domain.Trade, error) {
	return nil, nil
}
func (f *fakeTradeStore) ListBefore(context.Context, time.Time) ([]domain.Trade, error) {
	return nil, nil
}
func (f *fakeTradeStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	f.calls++
	return f.deleted, f.deleteErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiverRun_DeletesAfterUpload(t *testing.T) {
	blob := &fakeBlobArchiver{archived: 42}
	trades := &fakeTradeStore{deleted: 42}
	a := NewArchiver(blob, trades, 30, discardLogger())

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, 1, trades.calls)

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	assert.WithinDuration(t, wantCutoff, blob.cutoff, time.Minute)
}

func TestArchiverRun_NothingToArchive(t *testing.T) {
	blob := &fakeBlobArchiver{archived: 0}
	trades := &fakeTradeStore{}
	a := NewArchiver(blob, trades, 30, discardLogger())

	require.NoError(t, a.Run(context.Background()))
	assert.Zero(t, trades.calls, "no rows may be deleted when nothing was archived")
}

func TestArchiverRun_UploadFailureSkipsDelete(t *testing.T) {
	blob := &fakeBlobArchiver{err: errors.New("bucket unavailable")}
	trades := &fakeTradeStore{}
	a := NewArchiver(blob, trades, 30, discardLogger())

	require.Error(t, a.Run(context.Background()))
	assert.Zero(t, trades.calls)
}
