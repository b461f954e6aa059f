// services/hal/internal/worker/measure_worker.go
package worker

import (
	"context"
	"errors"
	"sort"
	"time"

	"dht11-go/errcode"
	"dht11-go/services/hal/internal/halcore"
	"dht11-go/services/hal/internal/util"
)

// MeasureWorker owns one shared resource (for single-wire sensors, the
// microsecond timer and the interrupt mask) and runs every Collect on that
// resource from a single goroutine, so two frames are never decoded at once.
type MeasureWorker struct {
	cfg  halcore.WorkerConfig
	reqQ chan halcore.MeasureReq
	sink chan<- halcore.Result // fan-in sink owned by service

	jobs  []*job // ordered by due
	byID  map[string]*job
	timer *time.Timer
	done  chan struct{}
}

type job struct {
	id      string
	adaptor halcore.Adaptor
	due     time.Time
	retries int
	again   bool // read_now arrived while in flight
}

func New(cfg halcore.WorkerConfig, sink chan<- halcore.Result) *MeasureWorker {
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 100 * time.Millisecond
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 250 * time.Millisecond
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 20
	}
	if cfg.InputQueueSize <= 0 {
		cfg.InputQueueSize = 16
	}
	return &MeasureWorker{
		cfg:   cfg,
		reqQ:  make(chan halcore.MeasureReq, cfg.InputQueueSize),
		sink:  sink,
		byID:  map[string]*job{},
		timer: time.NewTimer(time.Hour),
		done:  make(chan struct{}),
	}
}

// Submit queues a request without blocking. Priority requests get a short
// grace period when the queue is full.
func (w *MeasureWorker) Submit(req halcore.MeasureReq) bool {
	select {
	case w.reqQ <- req:
		return true
	default:
	}
	if !req.Prio {
		return false
	}
	select {
	case w.reqQ <- req:
		return true
	case <-time.After(5 * time.Millisecond):
		return false
	}
}

func (w *MeasureWorker) Start(ctx context.Context) {
	if !w.timer.Stop() {
		util.DrainTimer(w.timer)
	}
	go w.loop(ctx)
}

// Done is closed once the worker goroutine has returned.
func (w *MeasureWorker) Done() <-chan struct{} { return w.done }

func (w *MeasureWorker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		if len(w.jobs) == 0 {
			util.ResetTimer(w.timer, time.Hour)
		} else {
			util.ResetTimer(w.timer, time.Until(w.jobs[0].due))
		}
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqQ:
			if j, ok := w.byID[req.ID]; ok {
				// Coalesce: the in-flight read answers this request too.
				if req.Prio {
					j.again = true
				}
				continue
			}
			w.trigger(ctx, &job{id: req.ID, adaptor: req.Adaptor})
		case <-w.timer.C:
			w.collectDue(ctx, time.Now())
		}
	}
}

func (w *MeasureWorker) trigger(ctx context.Context, j *job) {
	tctx, cancel := context.WithTimeout(ctx, w.cfg.TriggerTimeout)
	after, err := j.adaptor.Trigger(tctx)
	cancel()
	if err != nil {
		w.emit(ctx, halcore.Result{ID: j.id, Err: err})
		return
	}
	j.retries = 0
	w.schedule(j, time.Now().Add(after))
}

func (w *MeasureWorker) schedule(j *job, due time.Time) {
	j.due = due
	w.byID[j.id] = j
	w.jobs = append(w.jobs, j)
	sort.SliceStable(w.jobs, func(a, b int) bool { return w.jobs[a].due.Before(w.jobs[b].due) })
}

func (w *MeasureWorker) collectDue(ctx context.Context, now time.Time) {
	var ready []*job
	for len(w.jobs) > 0 && !now.Before(w.jobs[0].due) {
		j := w.jobs[0]
		w.jobs = w.jobs[1:]
		delete(w.byID, j.id)
		ready = append(ready, j)
	}
	for _, j := range ready {
		cctx, cancel := context.WithTimeout(ctx, w.cfg.CollectTimeout)
		s, err := j.adaptor.Collect(cctx)
		cancel()

		switch {
		case err == nil:
			w.emit(ctx, halcore.Result{ID: j.id, Sample: s})
		case errors.Is(err, halcore.ErrNotReady):
			if j.retries < w.cfg.MaxRetries {
				j.retries++
				w.schedule(j, time.Now().Add(w.cfg.RetryBackoff))
				continue
			}
			w.emit(ctx, halcore.Result{ID: j.id, Err: errcode.Wrap(errcode.Busy, "collect", err)})
		default:
			w.emit(ctx, halcore.Result{ID: j.id, Err: err})
			if j.again {
				j.again = false
				w.trigger(ctx, j)
			}
		}
	}
}

// emit blocks until the service takes r; results are never dropped while
// the worker runs.
func (w *MeasureWorker) emit(ctx context.Context, r halcore.Result) {
	select {
	case w.sink <- r:
	case <-ctx.Done():
	}
}
