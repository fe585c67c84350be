package worker

type JobType string

const (
	Run  JobType = "run"
	Stop JobType = "stop"
)

// Job is a unit of work bound to a key. Jobs sharing a key run in submission order.
type Job struct {
	Type JobType
	Key  string
	Fn   func()
	done chan struct{}
}

type Worker struct {
	id         int
	pool       *jobChannelPool
	jobChannel chan Job
}

func newWorker(id int, pool *jobChannelPool) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *Worker) Start() {
	go func() {
		for job := range w.jobChannel {
			if job.Type == Stop {
				debugLog("[worker-%d] stop", w.id)
				w.pool.retire(w.jobChannel)
				return
			}
			w.execute(job)
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}

func (w *Worker) execute(job Job) {
	defer close(job.done)
	defer func() {
		if r := recover(); r != nil {
			debugLog("[worker-%d] job %s panicked: %v", w.id, job.Key, r)
		}
	}()
	debugLog("[worker-%d] run job for %s", w.id, job.Key)
	job.Fn()
}
