package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studytools/internal/domain"
	"github.com/phrazzld/studytools/internal/feed"
)

// Subscriber opens change-feed subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID, documentID uuid.UUID) (*feed.Subscription, error)
}

// TaskReader re-reads tasks by ID.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// Observer tracks the latest known state of one owner's tasks for one
// document. Change events are treated as hints: each one triggers a re-read
// and the result only replaces the held snapshot when it is newer, so
// duplicated or reordered events never move a task backwards.
type Observer struct {
	ownerID    uuid.UUID
	documentID uuid.UUID
	reader     TaskReader
	sub        *feed.Subscription
	logger     *slog.Logger

	mu      sync.RWMutex
	tasks   map[uuid.UUID]*domain.Task
	updates chan *domain.Task
	stopped bool

	done chan struct{}
	once sync.Once
}

// NewObserver subscribes for (ownerID, documentID) and seeds the snapshot
// with initial. The observer stops when ctx is done or Close is called.
func NewObserver(
	ctx context.Context,
	subscriber Subscriber,
	reader TaskReader,
	ownerID, documentID uuid.UUID,
	initial []*domain.Task,
	logger *slog.Logger,
) (*Observer, error) {
	if subscriber == nil || reader == nil {
		return nil, errors.New("observer needs a subscriber and a task reader")
	}
	if logger == nil {
		logger = slog.Default()
	}

	sub, err := subscriber.Subscribe(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	o := &Observer{
		ownerID:    ownerID,
		documentID: documentID,
		reader:     reader,
		sub:        sub,
		logger: logger.With("component", "task_observer",
			"owner_id", ownerID,
			"document_id", documentID),
		tasks:   make(map[uuid.UUID]*domain.Task),
		updates: make(chan *domain.Task, feed.DefaultBufferSize),
		done:    make(chan struct{}),
	}
	o.Seed(initial)

	go o.run(ctx)
	return o, nil
}

func (o *Observer) run(ctx context.Context) {
	defer func() {
		o.mu.Lock()
		o.stopped = true
		close(o.updates)
		o.mu.Unlock()
		close(o.done)
	}()

	for event := range o.sub.Events() {
		task, err := o.reader.GetByID(ctx, event.Task.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logger.WarnContext(ctx, "re-read after change event failed, using event snapshot",
				"task_id", event.Task.ID,
				"error", err)
			task = event.Task
		}
		o.apply(task)
	}
}

// HandleFallback applies a fallback re-read. Tasks outside the observer's
// scope are ignored. It matches FallbackListener.
func (o *Observer) HandleFallback(_ context.Context, task *domain.Task) {
	o.apply(task)
}

// Seed adds tasks read outside the feed to the snapshot without publishing
// them on Updates. Tasks older than the held state are ignored, so seeding
// after subscribing cannot undo an event that already arrived.
func (o *Observer) Seed(tasks []*domain.Task) {
	for _, t := range tasks {
		o.store(t, false)
	}
}

// apply stores task when it is in scope and newer than the held snapshot,
// then publishes it on Updates.
func (o *Observer) apply(task *domain.Task) {
	o.store(task, true)
}

func (o *Observer) store(task *domain.Task, publish bool) {
	if task == nil || task.OwnerID != o.ownerID || task.DocumentID != o.documentID {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	current, ok := o.tasks[task.ID]
	if ok && !newer(task, current) {
		return
	}
	o.tasks[task.ID] = task

	if !publish || o.stopped {
		return
	}
	select {
	case o.updates <- task:
	default:
		o.logger.Debug("update channel full, snapshot still current", "task_id", task.ID)
	}
}

// Updates delivers each snapshot change. It is closed when the observer stops.
func (o *Observer) Updates() <-chan *domain.Task {
	return o.updates
}

// Snapshot returns the latest known state of every observed task, newest
// first.
func (o *Observer) Snapshot() []*domain.Task {
	o.mu.RLock()
	out := make([]*domain.Task, 0, len(o.tasks))
	for _, t := range o.tasks {
		out = append(out, t)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Close unsubscribes and waits for the observer to stop.
func (o *Observer) Close() {
	o.once.Do(func() {
		o.sub.Unsubscribe()
		<-o.done
	})
}

var statusRank = map[domain.TaskStatus]int{
	domain.TaskStatusPending:    0,
	domain.TaskStatusProcessing: 1,
	domain.TaskStatusCompleted:  2,
	domain.TaskStatusFailed:     2,
}

func newer(candidate, current *domain.Task) bool {
	if statusRank[candidate.Status] != statusRank[current.Status] {
		return statusRank[candidate.Status] > statusRank[current.Status]
	}
	return candidate.UpdatedAt.After(current.UpdatedAt)
}
