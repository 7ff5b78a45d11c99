package amqp

import (
	"context"

	"spesefx/internal/bus"
	"spesefx/internal/log"
)

// Publisher sends change notifications to other processes.
type Publisher interface {
	PublishExpensesChanged(ctx context.Context, origin string) error
}

// Subscriber is the local invalidation bus.
type Subscriber interface {
	Subscribe(h bus.Handler) (unsubscribe func())
}

// Forwarder relays local bus signals to AMQP. A burst of signals that arrives
// while a publish is in progress results in one more publish, not one each.
type Forwarder struct {
	publisher   Publisher
	origin      string
	logger      *log.Logger
	signal      chan struct{}
	unsubscribe func()
}

func NewForwarder(publisher Publisher, sub Subscriber, origin string, logger *log.Logger) *Forwarder {
	if logger == nil {
		logger = log.Discard()
	}
	f := &Forwarder{
		publisher: publisher,
		origin:    origin,
		logger:    logger.WithComponent(log.ComponentAMQP),
		signal:    make(chan struct{}, 1),
	}
	f.unsubscribe = sub.Subscribe(f.notify)
	return f
}

// notify runs on the publisher's goroutine and must not block.
func (f *Forwarder) notify() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Run publishes one message per coalesced signal until ctx is done.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.signal:
			if err := f.publisher.PublishExpensesChanged(ctx, f.origin); err != nil {
				// Remote consumers also poll, so a lost notification only delays them.
				f.logger.WarnContext(ctx, "Failed to forward expenses changed notification",
					log.FieldOperation, log.OpPublish,
					log.FieldError, err)
			}
		}
	}
}

// Close stops listening to the bus. Run keeps going until its context ends.
func (f *Forwarder) Close() {
	f.unsubscribe()
}
