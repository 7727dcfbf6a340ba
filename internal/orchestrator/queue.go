package orchestrator

import (
	"sync"

	"github.com/draftwerk/cvpipe/internal/models"
)

// queue is a bounded three-tier priority queue. Higher tiers are always
// served before lower ones; within a tier, order is first-in-first-out.
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tiers    [3][]*models.WorkItem
	size     int
	capacity int
	closed   bool
}

func newQueue(capacity int) *queue {
	q := &queue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues the item into its priority tier.
func (q *queue) push(item *models.WorkItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrStopped
	}
	if q.capacity > 0 && q.size >= q.capacity {
		return ErrQueueFull
	}
	tier := int(item.Priority)
	if tier < 0 || tier >= len(q.tiers) {
		tier = int(models.PriorityNormal)
	}
	q.tiers[tier] = append(q.tiers[tier], item)
	q.size++
	q.cond.Signal()
	return nil
}

// pop blocks until an item is available or the queue is closed. After close
// it returns false immediately; undrained items keep their queued state.
func (q *queue) pop() (*models.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return nil, false
		}
		for tier := len(q.tiers) - 1; tier >= 0; tier-- {
			if len(q.tiers[tier]) > 0 {
				item := q.tiers[tier][0]
				q.tiers[tier] = q.tiers[tier][1:]
				q.size--
				return item, true
			}
		}
		q.cond.Wait()
	}
}

// remove takes the item with the given ID out of the queue, if still queued.
func (q *queue) remove(id string) *models.WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	for tier := range q.tiers {
		for i, item := range q.tiers[tier] {
			if item.ID == id {
				q.tiers[tier] = append(q.tiers[tier][:i], q.tiers[tier][i+1:]...)
				q.size--
				return item
			}
		}
	}
	return nil
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// close wakes all blocked consumers.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
