// Package scheduler admits, orders and drains inference requests under a
// concurrency limit. Ordering is strictly descending priority with FIFO
// among equals; aging lifts long-waiting entries so a stream of fresh
// high-priority work cannot starve them.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mereck/gantry/internal/core/domain"
)

type QueueConfig struct {
	MaxSize         int
	DefaultPriority int
	AgingEnabled    bool
	AgingThreshold  time.Duration
	AgingIncrement  int
	// ProcessingRate is requests/second for wait estimates. Zero falls
	// back to the observed dequeue rate, or 1/s before any history exists.
	ProcessingRate float64
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxSize:         100,
		DefaultPriority: 5,
		AgingEnabled:    true,
		AgingThreshold:  30 * time.Second,
		AgingIncrement:  1,
	}
}

type entry struct {
	req      *domain.InferenceRequest
	seq      uint64
	lastAged time.Time
}

// QueueStats is a point-in-time snapshot of queue counters.
type QueueStats struct {
	Size          int   `json:"size"`
	TotalEnqueued int64 `json:"total_enqueued"`
	TotalDequeued int64 `json:"total_dequeued"`
	TotalDropped  int64 `json:"total_dropped"`
	TotalExpired  int64 `json:"total_expired"`
}

// PriorityQueue is a stable max-priority queue over inference requests.
// One mutex guards the whole structure; operations are short and the
// queue is never the hot path (routing is).
type PriorityQueue struct {
	cfg       QueueConfig
	now       func() time.Time
	onExpired func(*domain.InferenceRequest)
	entries   []*entry
	seq       uint64

	totalEnqueued int64
	totalDequeued int64
	totalDropped  int64
	totalExpired  int64

	firstDequeue time.Time
	mu           sync.Mutex
}

func NewPriorityQueue(cfg QueueConfig) *PriorityQueue {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultQueueConfig().MaxSize
	}
	return &PriorityQueue{
		cfg: cfg,
		now: time.Now,
	}
}

// Enqueue admits a request, generating an id and stamping the arrival time
// when absent. Priority 0 is reserved to mean unset and takes the default;
// an explicit priority must be non-zero (negatives sort below everything).
// Fails with a QueueFullError once size == MaxSize; every rejection bumps
// the dropped counter.
func (q *PriorityQueue) Enqueue(req *domain.InferenceRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.cfg.MaxSize {
		q.totalDropped++
		return &domain.QueueFullError{MaxSize: q.cfg.MaxSize}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := q.now()
	if req.EnqueuedAt.IsZero() {
		req.EnqueuedAt = now
	}
	if req.Priority == 0 {
		req.Priority = q.cfg.DefaultPriority
	}

	q.seq++
	q.entries = append(q.entries, &entry{req: req, seq: q.seq, lastAged: req.EnqueuedAt})
	q.totalEnqueued++
	q.resort()
	return nil
}

// SetExpiredHandler registers a callback for requests discarded because
// they outlived their timeout while queued. Called without the queue lock
// held, so the handler may call back into the queue.
func (q *PriorityQueue) SetExpiredHandler(fn func(*domain.InferenceRequest)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onExpired = fn
}

// Dequeue removes and returns the highest-priority request, or nil when
// the queue is empty. Entries that outlived their timeout while queued are
// discarded and counted, never returned.
func (q *PriorityQueue) Dequeue() *domain.InferenceRequest {
	q.mu.Lock()

	q.age()
	now := q.now()

	var out *domain.InferenceRequest
	var expired []*domain.InferenceRequest
	for len(q.entries) > 0 {
		head := q.entries[0]
		q.entries = q.entries[1:]
		if head.req.Expired(now) {
			q.totalExpired++
			expired = append(expired, head.req)
			continue
		}
		q.totalDequeued++
		if q.firstDequeue.IsZero() {
			q.firstDequeue = now
		}
		out = head.req
		break
	}

	handler := q.onExpired
	q.mu.Unlock()

	if handler != nil {
		for _, req := range expired {
			handler(req)
		}
	}
	return out
}

// PruneExpired discards every queued request that outlived its timeout and
// returns how many were dropped. Dequeue prunes as a side effect; this is
// for queues nothing actively drains, so stale entries cannot pin capacity.
func (q *PriorityQueue) PruneExpired() int {
	q.mu.Lock()

	now := q.now()
	var expired []*domain.InferenceRequest
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.req.Expired(now) {
			q.totalExpired++
			expired = append(expired, e.req)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept

	handler := q.onExpired
	q.mu.Unlock()

	if handler != nil {
		for _, req := range expired {
			handler(req)
		}
	}
	return len(expired)
}

// Peek returns the next request without removing it, or nil when empty.
func (q *PriorityQueue) Peek() *domain.InferenceRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.age()
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0].req
}

// Remove deletes an arbitrary queued request and reports whether it
// existed.
func (q *PriorityQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.req.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePriority re-seats a queued request at a new priority, preserving
// its original arrival order among the new equals.
func (q *PriorityQueue) UpdatePriority(id string, priority int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.req.ID == id {
			e.req.Priority = priority
			q.resort()
			return true
		}
	}
	return false
}

// GetPosition returns the request's rank (0 = next) or -1 when absent.
func (q *PriorityQueue) GetPosition(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.age()
	for i, e := range q.entries {
		if e.req.ID == id {
			return i
		}
	}
	return -1
}

// Size returns the number of queued requests.
func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// GetStats returns a snapshot of the queue counters.
func (q *PriorityQueue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Size:          len(q.entries),
		TotalEnqueued: q.totalEnqueued,
		TotalDequeued: q.totalDequeued,
		TotalDropped:  q.totalDropped,
		TotalExpired:  q.totalExpired,
	}
}

// EstimateWaitTime is a best-effort guess of how long a request at the
// given priority would wait, based on current depth ahead of it and the
// stated or observed processing rate. Advisory only.
func (q *PriorityQueue) EstimateWaitTime(priority int) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.age()
	ahead := 0
	for _, e := range q.entries {
		// equal priorities are ahead too: they arrived first
		if e.req.Priority >= priority {
			ahead++
		}
	}

	rate := q.cfg.ProcessingRate
	if rate <= 0 {
		rate = q.observedRate()
	}
	return time.Duration(float64(ahead) / rate * float64(time.Second))
}

func (q *PriorityQueue) observedRate() float64 {
	if q.totalDequeued == 0 || q.firstDequeue.IsZero() {
		return 1
	}
	elapsed := q.now().Sub(q.firstDequeue).Seconds()
	if elapsed <= 0 {
		return 1
	}
	return float64(q.totalDequeued) / elapsed
}

// age applies the lazy aging boost: one increment per elapsed threshold
// interval since the entry was last aged. Callers hold the mutex.
func (q *PriorityQueue) age() {
	if !q.cfg.AgingEnabled || q.cfg.AgingThreshold <= 0 {
		return
	}

	now := q.now()
	changed := false
	for _, e := range q.entries {
		intervals := int(now.Sub(e.lastAged) / q.cfg.AgingThreshold)
		if intervals < 1 {
			continue
		}
		e.req.Priority += intervals * q.cfg.AgingIncrement
		e.lastAged = e.lastAged.Add(time.Duration(intervals) * q.cfg.AgingThreshold)
		changed = true
	}
	if changed {
		q.resort()
	}
}

// resort restores ordering: priority descending, arrival sequence
// ascending among equals. Callers hold the mutex.
func (q *PriorityQueue) resort() {
	sort.Slice(q.entries, func(i, j int) bool {
		if q.entries[i].req.Priority != q.entries[j].req.Priority {
			return q.entries[i].req.Priority > q.entries[j].req.Priority
		}
		return q.entries[i].seq < q.entries[j].seq
	})
}
