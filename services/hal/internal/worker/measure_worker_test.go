package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dht11-go/errcode"
	"dht11-go/services/hal/internal/halcore"
)

type fakeAdaptor struct {
	id          string
	delay       time.Duration
	collectErrs int // number of consecutive ErrNotReady before success
	failErr     error

	mu       sync.Mutex
	triggers int
	active   *atomic.Int32 // shared across adaptors on one worker
	overlap  *atomic.Bool
}

func (f *fakeAdaptor) ID() string                      { return f.id }
func (f *fakeAdaptor) Capabilities() []halcore.CapInfo { return nil }
func (f *fakeAdaptor) Trigger(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	f.triggers++
	f.mu.Unlock()
	return f.delay, nil
}
func (f *fakeAdaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	if f.active != nil {
		if f.active.Add(1) > 1 {
			f.overlap.Store(true)
		}
		time.Sleep(2 * time.Millisecond)
		defer f.active.Add(-1)
	}
	if f.failErr != nil {
		return nil, f.failErr
	}
	if f.collectErrs > 0 {
		f.collectErrs--
		return nil, halcore.ErrNotReady
	}
	return halcore.Sample{{Kind: "temperature", Payload: 210, TsMs: time.Now().UnixMilli()}}, nil
}
func (f *fakeAdaptor) Control(string, string, any) (any, error) { return nil, halcore.ErrUnsupported }

func (f *fakeAdaptor) triggerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}

func fastCfg() halcore.WorkerConfig {
	return halcore.WorkerConfig{
		TriggerTimeout: 5 * time.Millisecond,
		CollectTimeout: 10 * time.Millisecond,
		RetryBackoff:   2 * time.Millisecond,
		MaxRetries:     5,
		InputQueueSize: 4,
	}
}

func TestMeasureWorkerSuccessWithRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(fastCfg(), results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "dht0", delay: 1 * time.Millisecond, collectErrs: 2}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}

	select {
	case r := <-results:
		if r.Err != nil || len(r.Sample) == 0 {
			t.Fatalf("unexpected result: %+v", r)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerRetriesExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 1)
	w := New(fastCfg(), results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "dht0", collectErrs: 100}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	select {
	case r := <-results:
		if errcode.Of(r.Err) != errcode.Busy {
			t.Fatalf("err = %v, want busy", r.Err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for result")
	}
}

func TestMeasureWorkerErrorPathAndPrio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 4)
	w := New(halcore.WorkerConfig{}, results)
	w.Start(ctx)

	boom := errors.New("boom")
	ad := &fakeAdaptor{id: "dhtX", delay: 20 * time.Millisecond, failErr: boom}
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
		t.Fatal("submit failed")
	}
	// A read_now while the first read is pending asks for one more attempt
	// after the failure.
	if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad, Prio: true}) {
		t.Fatal("prio submit failed")
	}

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if !errors.Is(r.Err, boom) {
				t.Fatalf("result %d: expected boom, got %+v", i, r)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for error result %d", i)
		}
	}
	if ad.triggerCount() != 2 {
		t.Fatalf("triggers = %d, want 2", ad.triggerCount())
	}
}

func TestMeasureWorkerCoalescesPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 4)
	w := New(fastCfg(), results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "dht0", delay: 20 * time.Millisecond}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})

	if _, ok := <-results; !ok {
		t.Fatal("results closed")
	}
	select {
	case r := <-results:
		t.Fatalf("unexpected second result %+v", r)
	case <-time.After(60 * time.Millisecond):
	}
	if ad.triggerCount() != 1 {
		t.Fatalf("triggers = %d, want 1", ad.triggerCount())
	}
}

func TestMeasureWorkerSerialisesCollects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result, 8)
	w := New(fastCfg(), results)
	w.Start(ctx)

	var active atomic.Int32
	var overlap atomic.Bool
	ads := []*fakeAdaptor{
		{id: "a", active: &active, overlap: &overlap},
		{id: "b", active: &active, overlap: &overlap},
		{id: "c", active: &active, overlap: &overlap},
	}
	for _, ad := range ads {
		w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})
	}
	for range ads {
		select {
		case <-results:
		case <-time.After(300 * time.Millisecond):
			t.Fatal("timeout waiting for results")
		}
	}
	if overlap.Load() {
		t.Fatal("collects overlapped on one worker")
	}
}

func TestMeasureWorkerSlowSinkKeepsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan halcore.Result) // unbuffered, read late
	w := New(fastCfg(), results)
	w.Start(ctx)

	ads := []*fakeAdaptor{{id: "a"}, {id: "b"}, {id: "c"}}
	for _, ad := range ads {
		if !w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad}) {
			t.Fatalf("submit %s failed", ad.id)
		}
	}
	time.Sleep(30 * time.Millisecond)

	seen := map[string]bool{}
	for range ads {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Fatalf("%s: %v", r.ID, r.Err)
			}
			seen[r.ID] = true
		case <-time.After(300 * time.Millisecond):
			t.Fatalf("result lost, got %v", seen)
		}
	}
	if len(seen) != len(ads) {
		t.Fatalf("got %v", seen)
	}
}

func TestMeasureWorkerStopsWhileSinkBlocked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	results := make(chan halcore.Result) // never read
	w := New(fastCfg(), results)
	w.Start(ctx)

	ad := &fakeAdaptor{id: "dht0"}
	w.Submit(halcore.MeasureReq{ID: ad.id, Adaptor: ad})
	time.Sleep(20 * time.Millisecond) // collect done, emit blocked on the sink
	cancel()

	select {
	case <-w.Done():
	case <-time.After(200 * time.Millisecond):
		t.Fatal("worker still blocked on the sink after cancel")
	}
}
