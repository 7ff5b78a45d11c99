package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"spesefx/internal/bus"
	"spesefx/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gateFetcher blocks every FetchAll until the gate channel yields or closes,
// when a gate is set.
type gateFetcher struct {
	mu      sync.Mutex
	calls   int
	records []core.NormalizedExpense
	err     error
	gate    chan struct{}
}

func (f *gateFetcher) FetchAll(ctx context.Context) ([]core.NormalizedExpense, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]core.NormalizedExpense(nil), f.records...), nil
}

func (f *gateFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *gateFetcher) set(records []core.NormalizedExpense, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func record(id, amount string) core.NormalizedExpense {
	return core.NormalizedExpense{
		ID:                  id,
		Amount:              decimal.RequireFromString(amount),
		Category:            core.Food,
		DisplayCurrencyCode: "USD",
	}
}

func waitIdle(t *testing.T, c *ListCache) {
	t.Helper()
	require.Eventually(t, c.idle, 2*time.Second, 5*time.Millisecond)
}

func TestListCache_StartsEmptyAndStale(t *testing.T) {
	c := NewListCache(&gateFetcher{}, bus.New(nil), nil, 0)
	defer c.Close()

	s := c.Current()
	assert.Empty(t, s.Records)
	assert.True(t, s.Stale)
}

func TestListCache_RefreshIsIdempotent(t *testing.T) {
	f := &gateFetcher{records: []core.NormalizedExpense{record("a", "1"), record("b", "2")}}
	c := NewListCache(f, bus.New(nil), nil, 0)
	defer c.Close()

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)
	snap1 := c.Current()

	second, err := c.Refresh(context.Background())
	require.NoError(t, err)
	snap2 := c.Current()

	assert.Equal(t, first, second)
	assert.Equal(t, snap1.Records, snap2.Records)
	assert.False(t, snap2.Stale)
}

func TestListCache_RefreshesOncePerSignal(t *testing.T) {
	b := bus.New(nil)
	f := &gateFetcher{}
	c := NewListCache(f, b, nil, 0)
	defer c.Close()

	f.set([]core.NormalizedExpense{record("a", "1")}, nil)
	b.Publish()
	waitIdle(t, c)

	assert.Equal(t, 1, f.callCount())
	assert.Len(t, c.Current().Records, 1)
	assert.False(t, c.Current().Stale)

	b.Publish()
	waitIdle(t, c)
	assert.Equal(t, 2, f.callCount())
}

func TestListCache_CoalescesSignalsDuringRefresh(t *testing.T) {
	b := bus.New(nil)
	gate := make(chan struct{})
	f := &gateFetcher{gate: gate, records: []core.NormalizedExpense{record("a", "1")}}
	c := NewListCache(f, b, nil, 0)
	defer c.Close()

	b.Publish()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 10; i++ {
		b.Publish()
	}
	assert.True(t, c.Current().Stale)

	close(gate)
	waitIdle(t, c)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 2, f.callCount(), "in-flight refresh plus exactly one follow-up")
	assert.False(t, c.Current().Stale)
}

func TestListCache_FetchErrorKeepsLastGoodSnapshot(t *testing.T) {
	f := &gateFetcher{records: []core.NormalizedExpense{record("a", "1")}}
	c := NewListCache(f, bus.New(nil), nil, 0)
	defer c.Close()

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	f.set(nil, errors.New("store offline"))
	_, err = c.Refresh(context.Background())

	assert.ErrorIs(t, err, core.ErrFetch)
	s := c.Current()
	require.Len(t, s.Records, 1)
	assert.Equal(t, "a", s.Records[0].ID)
	assert.True(t, s.Stale)
}

// scriptedFetcher fails its first call once release is closed and serves
// records on every later call.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	records []core.NormalizedExpense
}

func (f *scriptedFetcher) FetchAll(context.Context) ([]core.NormalizedExpense, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call == 1 {
		<-f.release
		return nil, errors.New("slow and failed")
	}
	return append([]core.NormalizedExpense(nil), f.records...), nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestListCache_OlderFailureDoesNotMarkNewerSnapshotStale(t *testing.T) {
	f := &scriptedFetcher{release: make(chan struct{}), records: []core.NormalizedExpense{record("a", "1")}}
	c := NewListCache(f, bus.New(nil), nil, 0)
	defer c.Close()

	older := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		older <- err
	}()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.False(t, c.Current().Stale)

	close(f.release)
	assert.ErrorIs(t, <-older, core.ErrFetch)

	s := c.Current()
	assert.False(t, s.Stale)
	require.Len(t, s.Records, 1)
	assert.Equal(t, "a", s.Records[0].ID)
}

func TestListCache_BackgroundFailureLeavesStaleUntilNextSignal(t *testing.T) {
	b := bus.New(nil)
	f := &gateFetcher{records: []core.NormalizedExpense{record("a", "1")}}
	c := NewListCache(f, b, nil, 0)
	defer c.Close()
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	f.set(nil, errors.New("boom"))
	b.Publish()
	waitIdle(t, c)

	s := c.Current()
	assert.True(t, s.Stale)
	assert.Len(t, s.Records, 1)

	f.set([]core.NormalizedExpense{record("a", "1"), record("b", "2")}, nil)
	b.Publish()
	waitIdle(t, c)

	s = c.Current()
	assert.False(t, s.Stale)
	assert.Len(t, s.Records, 2)
}

func TestListCache_CurrentReturnsCopy(t *testing.T) {
	f := &gateFetcher{records: []core.NormalizedExpense{record("a", "1")}}
	c := NewListCache(f, bus.New(nil), nil, 0)
	defer c.Close()
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	s := c.Current()
	s.Records[0].ID = "mutated"

	assert.Equal(t, "a", c.Current().Records[0].ID)
}

func TestListCache_Items(t *testing.T) {
	failed := record("b", "250")
	failed.DisplayCurrencyCode = "TRY"
	failed.ConversionFailed = true
	f := &gateFetcher{records: []core.NormalizedExpense{record("a", "110"), failed}}
	c := NewListCache(f, bus.New(nil), nil, 0)
	defer c.Close()
	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "110.00 USD", items[0].Display)
	assert.Equal(t, "250.00 TRY (unconverted)", items[1].Display)
	assert.Equal(t, "250", c.Current().Records[1].Amount.String())
}

func TestListCache_CloseUnsubscribes(t *testing.T) {
	b := bus.New(nil)
	f := &gateFetcher{}
	c := NewListCache(f, b, nil, 0)
	assert.Equal(t, 1, b.Subscribers())

	c.Close()
	b.Publish()

	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, 0, f.callCount())
}
