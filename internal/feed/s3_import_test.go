package feed

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

// memBlobs is an in-memory domain.BlobReader backed by a path->content map.
type memBlobs struct {
	objects map[string]string
	moves   [][2]string
}

func newMemBlobs(objects map[string]string) *memBlobs {
	return &memBlobs{objects: objects}
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (m *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for path := range m.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{Path: path, Size: int64(len(m.objects[path]))})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

func (m *memBlobs) Move(_ context.Context, from, to string) error {
	data, ok := m.objects[from]
	if !ok {
		return domain.ErrNotFound
	}
	m.objects[to] = data
	delete(m.objects, from)
	m.moves = append(m.moves, [2]string{from, to})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testAddr = "0x9a1f78c3d4e5b2a60718293a4b5c6d7e8f901234"

func testWallet() domain.Wallet {
	return domain.Wallet{Address: testAddr, Chain: "ethereum", Source: "s3_drop"}
}

func TestFetchTrades_ParsesAndMoves(t *testing.T) {
	lines := strings.Join([]string{
		`{"signature":"sig-1","type":"buy","token_in":"USDC","token_out":"ETH","amount_in":"2500","amount_out":"1","price_out":"2500","fees":"1.5","block_time":"2025-06-01T12:00:00Z"}`,
		``,
		`{"signature":"sig-2","type":"sell","token_in":"ETH","token_out":"USDC","amount_in":"1","amount_out":"2600","price_in":"2600","fees":"1.5","block_time":"2025-06-02T12:00:00Z","success":false}`,
	}, "\n")

	blobs := newMemBlobs(map[string]string{
		"drops/" + testAddr + "/export-1.jsonl": lines,
		"drops/" + testAddr + "/notes.txt":      "ignore me",
	})
	feed := NewS3ImportFeed(blobs, "drops", "imported", testLogger())

	trades, err := feed.FetchTrades(context.Background(), testWallet(), time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 2)

	first := trades[0]
	assert.Equal(t, "sig-1", first.Signature)
	assert.Equal(t, domain.TradeTypeBuy, first.Type)
	assert.Equal(t, testAddr, first.WalletAddress)
	assert.Equal(t, "s3_drop", first.Source)
	assert.True(t, first.Success, "success defaults to true when omitted")
	require.NotNil(t, first.PriceOut)
	assert.True(t, first.PriceOut.Equal(trades[0].AmountIn.Div(trades[0].AmountOut)))

	assert.False(t, trades[1].Success)

	// The parsed file moved to the imported folder; the non-jsonl file stayed.
	_, stillThere := blobs.objects["drops/"+testAddr+"/export-1.jsonl"]
	assert.False(t, stillThere)
	_, moved := blobs.objects["imported/"+testAddr+"/export-1.jsonl"]
	assert.True(t, moved)
	_, kept := blobs.objects["drops/"+testAddr+"/notes.txt"]
	assert.True(t, kept)
}

func TestFetchTrades_FiltersBySince(t *testing.T) {
	lines := strings.Join([]string{
		`{"signature":"old","type":"buy","token_in":"USDC","token_out":"ETH","amount_in":"100","amount_out":"1","fees":"0","block_time":"2025-06-01T12:00:00Z"}`,
		`{"signature":"new","type":"buy","token_in":"USDC","token_out":"ETH","amount_in":"100","amount_out":"1","fees":"0","block_time":"2025-06-03T12:00:00Z"}`,
	}, "\n")

	blobs := newMemBlobs(map[string]string{
		"drops/" + testAddr + "/export.jsonl": lines,
	})
	feed := NewS3ImportFeed(blobs, "drops", "imported", testLogger())

	since := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	trades, err := feed.FetchTrades(context.Background(), testWallet(), since)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "new", trades[0].Signature)
}

func TestFetchTrades_MalformedFileAbortsBeforeMove(t *testing.T) {
	blobs := newMemBlobs(map[string]string{
		"drops/" + testAddr + "/a-good.jsonl": `{"signature":"ok","type":"buy","token_in":"USDC","token_out":"ETH","amount_in":"1","amount_out":"1","fees":"0","block_time":"2025-06-01T12:00:00Z"}`,
		"drops/" + testAddr + "/b-bad.jsonl":  `{not json}`,
	})
	feed := NewS3ImportFeed(blobs, "drops", "imported", testLogger())

	_, err := feed.FetchTrades(context.Background(), testWallet(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b-bad.jsonl")

	// Nothing moved: a corrected re-drop starts clean.
	assert.Empty(t, blobs.moves)
	_, ok := blobs.objects["drops/"+testAddr+"/a-good.jsonl"]
	assert.True(t, ok)
}

func TestFetchTrades_EmptyDropFolder(t *testing.T) {
	blobs := newMemBlobs(map[string]string{})
	feed := NewS3ImportFeed(blobs, "drops", "imported", testLogger())

	trades, err := feed.FetchTrades(context.Background(), testWallet(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}
