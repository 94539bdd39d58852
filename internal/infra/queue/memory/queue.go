// Package memory provides in-process queue implementations for tests and
// local development. Delivery is at-least-once: messages that are received
// but never acknowledged return to the queue after the visibility window.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"bundleindex/internal/queue/core"
	"bundleindex/pkg/domain"
)

var _ core.Queue = (*Queue)(nil)

const defaultVisibility = 30 * time.Second

type entry struct {
	msg       core.Message
	invisible time.Time
}

// Queue is an in-memory notification queue.
type Queue struct {
	mu         sync.Mutex
	entries    []*entry
	visibility time.Duration
	nextID     int
}

// NewQueue returns an empty queue with the default visibility window.
func NewQueue() *Queue {
	return &Queue{visibility: defaultVisibility}
}

// SetVisibility overrides the redelivery window. Tests shrink it to exercise
// redelivery without waiting.
func (q *Queue) SetVisibility(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.visibility = d
}

// Push enqueues a notification and returns its message id.
func (q *Queue) Push(n domain.Notification) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	id := strconv.Itoa(q.nextID)
	q.entries = append(q.entries, &entry{msg: core.Message{
		ID:           id,
		Receipt:      id,
		Notification: n,
	}})
	return id
}

// Receive returns up to max visible messages. It does not block; callers poll.
func (q *Queue) Receive(ctx context.Context, max int) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	var out []core.Message
	for _, e := range q.entries {
		if len(out) >= max {
			break
		}
		if e.invisible.After(now) {
			continue
		}
		e.invisible = now.Add(q.visibility)
		out = append(out, e.msg)
	}
	return out, nil
}

// Ack removes a message permanently.
func (q *Queue) Ack(_ context.Context, msg core.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.msg.Receipt == msg.Receipt {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Driver reports the backend identifier.
func (q *Queue) Driver() core.Driver { return core.DriverMemory }

// Len reports the number of messages still held, visible or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

var _ core.FailQueue = (*FailQueue)(nil)

// FailQueue collects terminal failure reports in memory.
type FailQueue struct {
	mu      sync.Mutex
	reports []domain.FailureReport
}

// NewFailQueue returns an empty fail queue.
func NewFailQueue() *FailQueue { return &FailQueue{} }

// Publish records a failure report.
func (f *FailQueue) Publish(_ context.Context, report domain.FailureReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

// Reports returns a copy of everything published so far.
func (f *FailQueue) Reports() []domain.FailureReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FailureReport, len(f.reports))
	copy(out, f.reports)
	return out
}
