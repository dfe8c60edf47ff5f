package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/events"
	"github.com/phrazzld/studytools/internal/metrics"
)

// DefaultBufferSize is the per-subscriber queue length used when none is given.
const DefaultBufferSize = 32

// ErrBrokerClosed is returned by Subscribe after Close.
var ErrBrokerClosed = errors.New("feed broker closed")

type topic struct {
	owner    uuid.UUID
	document uuid.UUID
}

// Broker broadcasts task change events to subscribers of the task's
// (owner, document) pair.
type Broker struct {
	mu         sync.RWMutex
	topics     map[topic]map[*Subscription]struct{}
	closed     bool
	bufferSize int
	logger     *slog.Logger
}

var _ events.EventHandler = (*Broker)(nil)

// NewBroker creates a Broker. bufferSize <= 0 uses DefaultBufferSize.
func NewBroker(logger *slog.Logger, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker{
		topics:     make(map[topic]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger.With(slog.String("component", "feed_broker")),
	}
}

// Subscribe registers interest in the owner's tasks for one document. The
// subscription ends when Unsubscribe is called, when ctx is done or when the
// broker closes; its Events channel is then closed.
func (b *Broker) Subscribe(ctx context.Context, ownerID, documentID uuid.UUID) (*Subscription, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("%w: subscription needs an owner", domain.ErrAuth)
	}
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("%w: subscription needs a document ID", domain.ErrValidation)
	}

	sub := &Subscription{
		broker: b,
		topic:  topic{owner: ownerID, document: documentID},
		events: make(chan *events.TaskChangeEvent, b.bufferSize),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	subs, ok := b.topics[sub.topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[sub.topic] = subs
	}
	subs[sub] = struct{}{}
	b.mu.Unlock()

	metrics.FeedSubscribers.Inc()
	b.logger.DebugContext(ctx, "subscription opened",
		slog.String("owner_id", ownerID.String()),
		slog.String("document_id", documentID.String()))

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Unsubscribe()
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

// HandleEvent publishes event to the subscribers of its task's topic.
func (b *Broker) HandleEvent(ctx context.Context, event *events.TaskChangeEvent) error {
	if event == nil || event.Task == nil {
		return errors.New("feed event has no task")
	}
	key := topic{owner: event.Task.OwnerID, document: event.Task.DocumentID}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.topics[key] {
		select {
		case sub.events <- event:
		default:
			metrics.FeedEventsDropped.Inc()
			b.logger.WarnContext(ctx, "subscriber queue full, dropping event",
				slog.String("task_id", event.Task.ID.String()),
				slog.String("kind", string(event.Kind)))
		}
	}
	return nil
}

// SubscriberCount returns the number of open subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.topics {
		n += len(subs)
	}
	return n
}

// Close ends every subscription and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	var all []*Subscription
	for _, subs := range b.topics {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, sub.topic)
		}
	}
	// Closed under the write lock so HandleEvent never sends on a closed channel.
	close(sub.events)
	metrics.FeedSubscribers.Dec()
}

// Subscription is one consumer's view of a topic.
type Subscription struct {
	broker *Broker
	topic  topic
	events chan *events.TaskChangeEvent
	done   chan struct{}
	once   sync.Once
}

// Events returns the channel of change events. It is closed after
// Unsubscribe.
func (s *Subscription) Events() <-chan *events.TaskChangeEvent {
	return s.events
}

// OwnerID returns the owner the subscription is scoped to.
func (s *Subscription) OwnerID() uuid.UUID { return s.topic.owner }

// DocumentID returns the document the subscription is scoped to.
func (s *Subscription) DocumentID() uuid.UUID { return s.topic.document }

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.broker.remove(s)
		s.broker.logger.Debug("subscription closed",
			slog.String("owner_id", s.topic.owner.String()),
			slog.String("document_id", s.topic.document.String()))
	})
}
