package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mereck/gantry/internal/core/domain"
	"github.com/mereck/gantry/internal/logger"
)

// Handler executes one inference request. The pool treats it as a black
// box; cancellation is cooperative through the context.
type Handler func(ctx context.Context, req *domain.InferenceRequest) (string, error)

// Result is delivered on the channel returned by Submit.
type Result struct {
	Output string
	Err    error
}

// fairnessWindow is how many recent completions feed the fairness score.
const fairnessWindow = 100

// Pool drains a PriorityQueue with up to MaxConcurrent in-flight requests.
// Queued requests that outlive their timeout are rejected with a timeout
// error; Clear rejects everything not yet started.
type Pool struct {
	queue   *PriorityQueue
	handler Handler
	logger  logger.StyledLogger

	maxConcurrent int
	sem           chan struct{}
	notify        chan struct{}
	stop          chan struct{}
	stopped       sync.Once
	wg            sync.WaitGroup

	mu      sync.Mutex
	pending map[string]chan Result
	recent  []string // agent ids of recent completions, ring
	recentN int
}

func NewPool(queue *PriorityQueue, handler Handler, maxConcurrent int, log logger.StyledLogger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	p := &Pool{
		queue:         queue,
		handler:       handler,
		logger:        log,
		maxConcurrent: maxConcurrent,
		sem:           make(chan struct{}, maxConcurrent),
		notify:        make(chan struct{}, 1),
		stop:          make(chan struct{}),
		pending:       make(map[string]chan Result),
		recent:        make([]string, fairnessWindow),
	}
	queue.SetExpiredHandler(func(req *domain.InferenceRequest) {
		p.resolve(req.ID, Result{Err: &domain.RequestTimeoutError{
			RequestID: req.ID,
			Waited:    req.Age(time.Now()),
		}})
	})
	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Submit admits the request and returns a channel that resolves exactly
// once: with the handler's result, a timeout error, a cleared error, or a
// queue-full error immediately.
func (p *Pool) Submit(req *domain.InferenceRequest) <-chan Result {
	ch := make(chan Result, 1)

	if err := p.queue.Enqueue(req); err != nil {
		ch <- Result{Err: err}
		return ch
	}

	p.mu.Lock()
	p.pending[req.ID] = ch
	p.mu.Unlock()

	p.wake()
	return ch
}

// Clear rejects all queued (not yet started) requests. In-flight work is
// unaffected.
func (p *Pool) Clear() {
	for {
		req := p.queue.Dequeue()
		if req == nil {
			break
		}
		p.resolve(req.ID, Result{Err: domain.ErrQueueCleared})
	}
}

// Shutdown stops the dispatcher and waits for in-flight work, then clears
// whatever is still queued.
func (p *Pool) Shutdown() {
	p.stopped.Do(func() { close(p.stop) })
	p.wg.Wait()
	p.Clear()
}

// FairnessScore reports how evenly recent completions were spread across
// distinct agents: 1.0 is perfectly even, 0 is fully skewed. With one or
// zero agents in the window the score is 1.0 by definition.
func (p *Pool) FairnessScore() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := make(map[string]int)
	total := 0
	for i := 0; i < p.recentN && i < fairnessWindow; i++ {
		counts[p.recent[i]]++
		total++
	}
	if len(counts) <= 1 {
		return 1.0
	}

	mean := float64(total) / float64(len(counts))
	var mad float64
	for _, c := range counts {
		d := float64(c) - mean
		if d < 0 {
			d = -d
		}
		mad += d
	}
	mad /= float64(len(counts))

	score := 1.0 - mad/mean
	if score < 0 {
		return 0
	}
	return score
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-p.notify:
		}

		for {
			select {
			case <-p.stop:
				return
			case p.sem <- struct{}{}:
			}

			req := p.queue.Dequeue()
			if req == nil {
				<-p.sem
				break
			}

			p.wg.Add(1)
			go p.run(req)
		}
	}
}

func (p *Pool) run(req *domain.InferenceRequest) {
	defer p.wg.Done()
	defer func() {
		<-p.sem
		p.wake()
	}()

	now := time.Now()
	if req.Expired(now) {
		p.resolve(req.ID, Result{Err: &domain.RequestTimeoutError{RequestID: req.ID, Waited: req.Age(now)}})
		return
	}

	ctx := context.Background()
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout-req.Age(now))
		defer cancel()
	}

	output, err := p.handler(ctx, req)
	if err != nil && ctx.Err() != nil {
		// The backend call is not guaranteed to stop instantly; its result
		// is discarded and the caller sees a timeout.
		err = &domain.RequestTimeoutError{RequestID: req.ID, Waited: req.Age(time.Now())}
	}

	p.recordCompletion(req.AgentID)
	p.resolve(req.ID, Result{Output: output, Err: err})
}

func (p *Pool) resolve(id string, res Result) {
	p.mu.Lock()
	ch, ok := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()

	if ok {
		ch <- res
	}
}

func (p *Pool) recordCompletion(agentID string) {
	p.mu.Lock()
	p.recent[p.recentN%fairnessWindow] = agentID
	p.recentN++
	if p.recentN >= 2*fairnessWindow {
		p.recentN = fairnessWindow + p.recentN%fairnessWindow
	}
	p.mu.Unlock()
}
