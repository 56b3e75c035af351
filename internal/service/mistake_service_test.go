package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

type fakePositionStore struct {
	positions map[string]domain.Position
}

func newFakePositionStore(positions ...domain.Position) *fakePositionStore {
	f := &fakePositionStore{positions: map[string]domain.Position{}}
	for _, p := range positions {
		f.positions[p.ID] = p
	}
	return f
}

func (f *fakePositionStore) ReplaceForWallet(_ context.Context, _ string, positions []domain.Position, _ []domain.PositionTrade) error {
	for _, p := range positions {
		f.positions[p.ID] = p
	}
	return nil
}

func (f *fakePositionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	p, ok := f.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakePositionStore) ListByWallet(_ context.Context, wallet string, _ domain.ListOpts) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range f.positions {
		if p.WalletAddress == wallet {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePositionStore) ListOpen(_ context.Context, wallet string) ([]domain.Position, error) {
	var out []domain.Position
	for _, p := range f.positions {
		if p.WalletAddress == wallet && p.Status == domain.PositionStatusOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePositionStore) ListTrades(_ context.Context, _ string) ([]domain.PositionTrade, error) {
	return nil, nil
}

type fakeMistakeStore struct {
	mistakes map[int64]domain.Mistake
	nextID   int64
}

func newFakeMistakeStore() *fakeMistakeStore {
	return &fakeMistakeStore{mistakes: map[int64]domain.Mistake{}, nextID: 1}
}

func (f *fakeMistakeStore) Create(_ context.Context, m domain.Mistake) (int64, error) {
	m.ID = f.nextID
	f.mistakes[m.ID] = m
	f.nextID++
	return m.ID, nil
}

func (f *fakeMistakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.mistakes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.mistakes, id)
	return nil
}

func (f *fakeMistakeStore) ListByPosition(_ context.Context, positionID string) ([]domain.Mistake, error) {
	var out []domain.Mistake
	for id := int64(1); id < f.nextID; id++ {
		if m, ok := f.mistakes[id]; ok && m.PositionID == positionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMistakeStore) ListByWallet(_ context.Context, wallet string, opts domain.ListOpts) ([]domain.Mistake, error) {
	var out []domain.Mistake
	for id := f.nextID - 1; id >= 1; id-- {
		m, ok := f.mistakes[id]
		if !ok || m.WalletAddress != wallet {
			continue
		}
		out = append(out, m)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMistakeStore) SummarizeByWallet(_ context.Context, wallet string) ([]domain.MistakeSummary, error) {
	counts := map[domain.MistakeCategory]int{}
	for _, m := range f.mistakes {
		if m.WalletAddress == wallet {
			counts[m.Category]++
		}
	}
	var out []domain.MistakeSummary
	for cat, n := range counts {
		out = append(out, domain.MistakeSummary{Category: cat, Count: n})
	}
	return out, nil
}

func journaledPosition(id string) domain.Position {
	return domain.Position{
		ID:            id,
		WalletAddress: testAddrLower,
		Symbol:        "TOK",
		Status:        domain.PositionStatusClosed,
	}
}

func TestMistakeTag_AttachesToPosition(t *testing.T) {
	positions := newFakePositionStore(journaledPosition("pos-1"))
	store := newFakeMistakeStore()
	svc := NewMistakeService(store, positions, testLogger())

	m, err := svc.Tag(context.Background(), "pos-1", domain.MistakeFOMO, "aped the pump")
	require.NoError(t, err)

	assert.Equal(t, int64(1), m.ID)
	// The wallet comes from the position, not the caller.
	assert.Equal(t, testAddrLower, m.WalletAddress)
	assert.Equal(t, "pos-1", m.PositionID)
}

func TestMistakeTag_RejectsUnknownCategory(t *testing.T) {
	svc := NewMistakeService(newFakeMistakeStore(), newFakePositionStore(), testLogger())

	_, err := svc.Tag(context.Background(), "pos-1", "bad_luck", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestMistakeTag_RequiresExistingPosition(t *testing.T) {
	store := newFakeMistakeStore()
	svc := NewMistakeService(store, newFakePositionStore(), testLogger())

	_, err := svc.Tag(context.Background(), "phantom", domain.MistakeOversize, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.mistakes)
}

func TestMistakeUntag(t *testing.T) {
	positions := newFakePositionStore(journaledPosition("pos-1"))
	store := newFakeMistakeStore()
	svc := NewMistakeService(store, positions, testLogger())

	m, err := svc.Tag(context.Background(), "pos-1", domain.MistakeEarlyExit, "")
	require.NoError(t, err)

	require.NoError(t, svc.Untag(context.Background(), m.ID))
	assert.Empty(t, store.mistakes)

	err = svc.Untag(context.Background(), m.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMistakeListsAndSummary(t *testing.T) {
	positions := newFakePositionStore(journaledPosition("pos-1"), journaledPosition("pos-2"))
	store := newFakeMistakeStore()
	svc := NewMistakeService(store, positions, testLogger())

	_, err := svc.Tag(context.Background(), "pos-1", domain.MistakeFOMO, "")
	require.NoError(t, err)
	_, err = svc.Tag(context.Background(), "pos-1", domain.MistakeLateExit, "")
	require.NoError(t, err)
	_, err = svc.Tag(context.Background(), "pos-2", domain.MistakeFOMO, "")
	require.NoError(t, err)

	forPos, err := svc.ListForPosition(context.Background(), "pos-1")
	require.NoError(t, err)
	assert.Len(t, forPos, 2)

	limited, err := svc.ListForWallet(context.Background(), testAddrLower, domain.ListOpts{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	summary, err := svc.Summary(context.Background(), testAddrLower)
	require.NoError(t, err)
	counts := map[domain.MistakeCategory]int{}
	for _, s := range summary {
		counts[s.Category] = s.Count
	}
	assert.Equal(t, 2, counts[domain.MistakeFOMO])
	assert.Equal(t, 1, counts[domain.MistakeLateExit])
}
