package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"spesefx/internal/bus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePublisher struct {
	mu      sync.Mutex
	origins []string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (p *fakePublisher) PublishExpensesChanged(ctx context.Context, origin string) error {
	p.mu.Lock()
	p.origins = append(p.origins, origin)
	entered, release, err := p.entered, p.release, p.err
	p.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
	return err
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.origins)
}

func runForwarder(t *testing.T, f *Forwarder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestForwarder_PublishesOnSignal(t *testing.T) {
	b := bus.New(nil)
	pub := &fakePublisher{}
	f := NewForwarder(pub, b, "proc-1", nil)
	runForwarder(t, f)

	b.Publish()

	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"proc-1"}, pub.origins)
}

func TestForwarder_CoalescesBursts(t *testing.T) {
	b := bus.New(nil)
	pub := &fakePublisher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := NewForwarder(pub, b, "proc-1", nil)
	runForwarder(t, f)

	b.Publish()
	<-pub.entered

	for i := 0; i < 10; i++ {
		b.Publish()
	}
	close(pub.release)

	require.Eventually(t, func() bool { return pub.calls() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return pub.calls() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestForwarder_PublishErrorDoesNotStopLoop(t *testing.T) {
	b := bus.New(nil)
	pub := &fakePublisher{err: errors.New("broker down")}
	f := NewForwarder(pub, b, "proc-1", nil)
	runForwarder(t, f)

	b.Publish()
	require.Eventually(t, func() bool { return pub.calls() == 1 }, time.Second, 5*time.Millisecond)

	b.Publish()
	require.Eventually(t, func() bool { return pub.calls() == 2 }, time.Second, 5*time.Millisecond)
}

func TestForwarder_CloseUnsubscribes(t *testing.T) {
	b := bus.New(nil)
	f := NewForwarder(&fakePublisher{}, b, "proc-1", nil)
	assert.Equal(t, 1, b.Subscribers())

	f.Close()
	assert.Equal(t, 0, b.Subscribers())
}
