package cache

import (
	"context"
	"sync"
	"time"

	"spesefx/internal/bus"
	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/store"
)

// Subscriber is the part of the invalidation bus the cache listens on.
type Subscriber interface {
	Subscribe(h bus.Handler) (unsubscribe func())
}

// Snapshot is the last successfully fetched listing.
type Snapshot struct {
	Records   []core.NormalizedExpense
	Stale     bool
	FetchedAt time.Time
}

// Item is a record plus its human-readable amount.
type Item struct {
	core.NormalizedExpense
	Display string
}

// ListCache holds the expense listing and re-fetches it when the bus signals.
// At most one background refresh runs at a time; signals that arrive while it
// runs collapse into a single follow-up refresh.
type ListCache struct {
	fetcher store.Fetcher
	logger  *log.Logger
	timeout time.Duration
	now     func() time.Time

	mu          sync.Mutex
	snapshot    Snapshot
	fetchSeq    uint64 // fetches started
	appliedSeq  uint64 // fetch whose result is in snapshot
	signalMark  uint64 // fetchSeq at the latest invalidation
	inFlight    bool
	pending     bool
	closed      bool
	wg          sync.WaitGroup
	unsubscribe func()
}

// NewListCache subscribes to sub immediately. The cache starts empty and
// stale; call Refresh to load it.
func NewListCache(fetcher store.Fetcher, sub Subscriber, logger *log.Logger, refreshTimeout time.Duration) *ListCache {
	if logger == nil {
		logger = log.Discard()
	}
	if refreshTimeout <= 0 {
		refreshTimeout = 10 * time.Second
	}
	c := &ListCache{
		fetcher:  fetcher,
		logger:   logger.WithComponent(log.ComponentCache),
		timeout:  refreshTimeout,
		now:      time.Now,
		snapshot: Snapshot{Stale: true},
	}
	c.unsubscribe = sub.Subscribe(c.invalidate)
	return c
}

// Current returns the last known-good listing without doing any I/O.
func (c *ListCache) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshot
	s.Records = append([]core.NormalizedExpense(nil), c.snapshot.Records...)
	return s
}

// Items projects the current listing for display.
func (c *ListCache) Items() []Item {
	records := c.Current().Records
	items := make([]Item, len(records))
	for i, r := range records {
		items[i] = Item{NormalizedExpense: r, Display: core.FormatAmount(r)}
	}
	return items
}

// Refresh re-reads the listing from the store. On failure the previous
// snapshot is kept, marked stale, and a *core.FetchError is returned.
func (c *ListCache) Refresh(ctx context.Context) ([]core.NormalizedExpense, error) {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	records, err := c.fetcher.FetchAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// A newer successful fetch already replaced the snapshot.
		if seq > c.appliedSeq {
			c.snapshot.Stale = true
		}
		return nil, &core.FetchError{Err: err}
	}

	if seq > c.appliedSeq {
		c.appliedSeq = seq
		c.snapshot = Snapshot{
			Records:   append([]core.NormalizedExpense(nil), records...),
			Stale:     c.signalMark >= seq,
			FetchedAt: c.now(),
		}
	}
	return records, nil
}

// Close stops listening and waits for a running refresh to finish.
func (c *ListCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.unsubscribe()
	c.wg.Wait()
}

func (c *ListCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.snapshot.Stale = true
	c.signalMark = c.fetchSeq
	if c.inFlight {
		c.pending = true
		return
	}
	c.inFlight = true
	c.wg.Add(1)
	go c.run()
}

func (c *ListCache) run() {
	defer c.wg.Done()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		records, err := c.Refresh(ctx)
		cancel()
		if err != nil {
			c.logger.Error("Background refresh failed, serving stale listing",
				log.FieldOperation, log.OpRefresh, log.FieldError, err)
		} else {
			c.logger.Debug("Listing refreshed",
				log.FieldOperation, log.OpRefresh, log.FieldRecordCount, len(records))
		}

		c.mu.Lock()
		if c.pending && !c.closed {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.pending = false
		c.inFlight = false
		c.mu.Unlock()
		return
	}
}

// idle reports whether no background refresh is running or queued.
func (c *ListCache) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight && !c.pending
}
