package worker

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrDispatcherBusy is returned when the waiting queue is full.
var ErrDispatcherBusy = errors.New("generation queue is full, please try again shortly")

// ErrDispatcherStopped is returned for submissions after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

type keyQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher runs jobs on an elastic worker pool. Keys are served round robin so
// one busy key cannot starve the others.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // entry point for outer jobs

	mu        sync.Mutex
	capacity  int
	pending   int                  // submitted but not yet handed to a worker
	queues    map[string]*keyQueue // job queue for each key
	ready     *list.List           // round robin queue storing keys
	positions map[string]*list.Element
	stopped   bool
	quit      chan struct{}
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	pool := newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout)

	d := &Dispatcher{
		pool:      pool,
		JobQueue:  make(chan Job, cfg.QueueSize),
		capacity:  cfg.QueueSize,
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		quit:      make(chan struct{}),
	}

	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues fn under key without blocking. The returned channel is closed
// once fn has returned.
func (d *Dispatcher) Submit(key string, fn func()) (<-chan struct{}, error) {
	if fn == nil {
		return nil, errors.New("nil job")
	}
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, ErrDispatcherStopped
	}
	if d.pending >= d.capacity {
		d.mu.Unlock()
		debugLog("[dispatcher] reject job for %s: %d pending", key, d.pending)
		return nil, ErrDispatcherBusy
	}
	d.pending++
	d.mu.Unlock()

	job := Job{Type: Run, Key: key, Fn: fn, done: make(chan struct{})}
	select {
	case d.JobQueue <- job:
		return job.done, nil
	default:
		d.mu.Lock()
		d.pending--
		d.mu.Unlock()
		return nil, ErrDispatcherBusy
	}
}

// Do submits fn and waits for it to finish.
func (d *Dispatcher) Do(key string, fn func()) error {
	done, err := d.Submit(key, fn)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Pending reports how many jobs are waiting for a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop refuses new jobs and releases idle workers. Jobs already queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.quit)
	d.mu.Unlock()
	d.pool.close()
}

func (d *Dispatcher) run() {
	for {
		// dispatch one job of the key in the front of the round robin queue
		if !d.dispatchOne() {
			select {
			case job := <-d.JobQueue: // nothing ready, block for work
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		// pick up a new job if one is waiting, without blocking
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.Key]
	if q == nil {
		q = &keyQueue{}
		d.queues[job.Key] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		// key already waiting in the round robin queue
		return
	}
	// new key, enqueue
	q.enqueued = true
	d.positions[job.Key] = d.ready.PushBack(job.Key)
}

// dispatchOne takes the first key in the round robin queue and dispatches its job
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil || d.stopped {
		d.mu.Unlock()
		return false
	}
	key := elem.Value.(string)
	q := d.queues[key]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		// last job of this key, the key leaves the queue
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, key)
		delete(d.queues, key)
	} else {
		d.ready.MoveToBack(elem) // back of the queue for the next turn
	}
	d.mu.Unlock()

	workerChan := d.pool.acquire() // blocks while every worker is busy
	d.mu.Lock()
	d.pending--
	d.mu.Unlock()
	debugLog("[dispatcher] assign job for %s to worker-%d", key, d.pool.workerID(workerChan))
	workerChan <- job
	return true
}
