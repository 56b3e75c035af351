package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

type fakeControlBlobs struct {
	objects map[string][]byte
	moves   map[string]string // from -> to
}

func newFakeControlBlobs(objects map[string][]byte) *fakeControlBlobs {
	return &fakeControlBlobs{objects: objects, moves: map[string]string{}}
}

func (f *fakeControlBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeControlBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for path := range f.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, domain.BlobInfo{Path: path, Size: int64(len(f.objects[path]))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *fakeControlBlobs) Move(_ context.Context, from, to string) error {
	data, ok := f.objects[from]
	if !ok {
		return domain.ErrNotFound
	}
	delete(f.objects, from)
	f.objects[to] = data
	f.moves[from] = to
	return nil
}

func newControlFixture(blobs *fakeControlBlobs, positions ...domain.Position) (*ControlService, *fakeWalletStore, *fakeMistakeStore) {
	walletStore := newFakeWalletStore()
	mistakeStore := newFakeMistakeStore()
	wallets := NewWalletService(walletStore, &fakeAuditStore{}, testLogger())
	mistakes := NewMistakeService(mistakeStore, newFakePositionStore(positions...), testLogger())
	svc := NewControlService(blobs, wallets, mistakes, "control", "imported", testLogger())
	return svc, walletStore, mistakeStore
}

func TestControlProcess_AppliesActions(t *testing.T) {
	blobs := newFakeControlBlobs(map[string][]byte{
		"control/20250601.jsonl": []byte(
			`{"action":"link_wallet","address":"` + testAddrMixed + `","label":"main","chain":"ethereum"}` + "\n" +
				`{"action":"tag_mistake","position_id":"pos-1","category":"fomo","note":"aped"}` + "\n"),
	})
	svc, walletStore, mistakeStore := newControlFixture(blobs, journaledPosition("pos-1"))

	require.NoError(t, svc.Process(context.Background()))

	w, ok := walletStore.wallets[testAddrLower]
	require.True(t, ok, "wallet must be linked under its normalized address")
	assert.Equal(t, "control", w.Source)

	require.Len(t, mistakeStore.mistakes, 1)
	assert.Equal(t, domain.MistakeFOMO, mistakeStore.mistakes[1].Category)

	// The file was parked under the processed folder.
	assert.Equal(t, "imported/control/20250601.jsonl", blobs.moves["control/20250601.jsonl"])
}

func TestControlProcess_MalformedFileAbortsBeforeMove(t *testing.T) {
	blobs := newFakeControlBlobs(map[string][]byte{
		"control/bad.jsonl": []byte(
			`{"action":"link_wallet","address":"` + testAddrLower + `","chain":"ethereum"}` + "\n" +
				"{not json\n"),
	})
	svc, walletStore, _ := newControlFixture(blobs)

	err := svc.Process(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	// Nothing applied, nothing moved: the corrected re-drop starts clean.
	assert.Empty(t, walletStore.wallets)
	assert.Empty(t, blobs.moves)
}

func TestControlProcess_FailedActionSkipped(t *testing.T) {
	blobs := newFakeControlBlobs(map[string][]byte{
		"control/mixed.jsonl": []byte(
			`{"action":"tag_mistake","position_id":"phantom","category":"fomo"}` + "\n" +
				`{"action":"open_the_pod_bay_doors"}` + "\n" +
				`{"action":"link_wallet","address":"` + testAddrLower + `","chain":"ethereum"}` + "\n"),
	})
	svc, walletStore, mistakeStore := newControlFixture(blobs)

	require.NoError(t, svc.Process(context.Background()))

	// The phantom tag and unknown action are skipped; the link still lands
	// and the file still moves on.
	assert.Empty(t, mistakeStore.mistakes)
	assert.Len(t, walletStore.wallets, 1)
	assert.Len(t, blobs.moves, 1)
}

func TestControlProcess_UnlinkAndUntag(t *testing.T) {
	blobs := newFakeControlBlobs(map[string][]byte{
		"control/cleanup.jsonl": []byte(
			`{"action":"unlink_wallet","address":"` + testAddrMixed + `","chain":"ethereum"}` + "\n" +
				`{"action":"untag_mistake","mistake_id":1}` + "\n"),
	})
	svc, walletStore, mistakeStore := newControlFixture(blobs, journaledPosition("pos-1"))

	walletStore.wallets[testAddrLower] = domain.Wallet{Address: testAddrLower, Chain: "ethereum"}
	mistakeStore.mistakes[1] = domain.Mistake{ID: 1, PositionID: "pos-1", WalletAddress: testAddrLower, Category: domain.MistakeFOMO}
	mistakeStore.nextID = 2

	require.NoError(t, svc.Process(context.Background()))

	assert.Empty(t, walletStore.wallets)
	assert.Empty(t, mistakeStore.mistakes)
}

func TestControlProcess_IgnoresOtherFiles(t *testing.T) {
	blobs := newFakeControlBlobs(map[string][]byte{
		"control/readme.txt": []byte("not a control file"),
	})
	svc, walletStore, _ := newControlFixture(blobs)

	require.NoError(t, svc.Process(context.Background()))
	assert.Empty(t, walletStore.wallets)
	assert.Empty(t, blobs.moves)
}
