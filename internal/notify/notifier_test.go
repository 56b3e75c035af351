package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_SubscriptionFilter(t *testing.T) {
	s := &recordingSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventSyncCompleted, EventOversellWarning}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventSyncCompleted, "Sync completed", "3 trades"))
	require.NoError(t, n.Notify(context.Background(), EventReport, "Portfolio Report", "net +120"))

	// Only the subscribed event reached the channel.
	assert.Equal(t, []string{"Sync completed"}, s.titles)
}

func TestNotify_EmptySubscriptionAllowsEverything(t *testing.T) {
	s := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventReport, "Portfolio Report", "net +120"))
	assert.Equal(t, []string{"Portfolio Report"}, s.titles)
}

func TestNotifyAll_BypassesFilter(t *testing.T) {
	s := &recordingSender{name: "telegram"}
	n := NewNotifier([]Sender{s}, []string{EventSyncCompleted}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "Sync failed", "boom"))
	assert.Equal(t, []string{"Sync failed"}, s.titles)
}

func TestDispatch_PartialFailureStillDelivers(t *testing.T) {
	sentinel := errors.New("telegram down")
	broken := &recordingSender{name: "telegram", err: sentinel}
	healthy := &recordingSender{name: "discord"}
	n := NewNotifier([]Sender{broken, healthy}, nil, testLogger())

	err := n.Notify(context.Background(), EventError, "Sync failed", "boom")

	// The failure is reported, but the second channel still got the alert.
	require.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "telegram")
	assert.Equal(t, []string{"Sync failed"}, healthy.titles)
}

func TestNotify_NoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	require.NoError(t, n.Notify(context.Background(), EventError, "Sync failed", "boom"))
}
