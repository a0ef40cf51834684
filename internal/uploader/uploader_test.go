package uploader

import (
	"context"
	"sync"
	"testing"
	"time"

	"procem/internal/router"
	"procem/pkg/measurement"
)

// fakeClient records every chunk it was asked to write and returns a
// scripted response per call, keyed by call order.
type fakeClient struct {
	mu       sync.Mutex
	calls    [][]measurement.TicketRecord
	scripted []Response
	call     int
}

func (f *fakeClient) WriteChunk(ctx context.Context, deviceID string, chunk []measurement.TicketRecord) Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chunk)
	if f.call >= len(f.scripted) {
		return Response{}
	}
	resp := f.scripted[f.call]
	f.call++
	return resp
}

func item(id int64, ts int64, cycle int) router.UploadItem {
	return router.UploadItem{
		Record: measurement.TicketRecord{Name: "n", Path: "/a", V: measurement.DoubleValue(1), Ts: ts, Unit: "u", Type: "double"},
		Cycle:  cycle,
	}
}

func TestWorkerSucceedsOnFirstTry(t *testing.T) {
	client := &fakeClient{scripted: []Response{{StatusCode: statusOK, TotalWritten: 3, Present: true}}}
	w := &Worker{Client: client, DeviceID: "dev", PacketSize: 500, MaxRetries: 5, MinDelay: time.Millisecond, MaxDataCycles: 5}

	buffer := []router.UploadItem{item(1, 3, 0), item(2, 1, 0), item(3, 2, 0)}
	written := w.Process(context.Background(), buffer)

	if written != 3 {
		t.Fatalf("want 3 written, got %d", written)
	}
	if len(client.calls) != 1 {
		t.Fatalf("want 1 call, got %d", len(client.calls))
	}
	// verify sort by (path, name, ts): all same path/name here, so by ts ascending.
	got := client.calls[0]
	if got[0].Ts != 1 || got[1].Ts != 2 || got[2].Ts != 3 {
		t.Fatalf("buffer not sorted by ts: %+v", got)
	}
}

func TestWorkerCyclesUnwrittenChunkAfterRetriesExhausted(t *testing.T) {
	client := &fakeClient{scripted: []Response{
		{StatusCode: 500, Present: true},
		{StatusCode: 500, Present: true},
	}}

	var requeued []router.UploadItem
	w := &Worker{
		Client: client, DeviceID: "dev", PacketSize: 500, MaxRetries: 2, MinDelay: time.Millisecond, MaxDataCycles: 5,
		Idempotency: NewIdempotencyStore(NewLoggingRedisEvaler(), time.Minute),
		Requeue: func(items []router.UploadItem) {
			requeued = append(requeued, items...)
		},
	}

	buffer := []router.UploadItem{item(1, 1, 0), item(2, 2, 0)}
	written := w.Process(context.Background(), buffer)

	if written != 0 {
		t.Fatalf("want 0 written, got %d", written)
	}
	if len(requeued) != 2 {
		t.Fatalf("want 2 requeued items, got %d: %+v", len(requeued), requeued)
	}
	for _, it := range requeued {
		if it.Cycle != 1 {
			t.Fatalf("want cycle incremented to 1, got %d", it.Cycle)
		}
	}
}

func TestWorkerDropsItemsPastMaxCycle(t *testing.T) {
	client := &fakeClient{scripted: []Response{{StatusCode: 500, Present: true}}}
	var requeued []router.UploadItem
	w := &Worker{
		Client: client, DeviceID: "dev", PacketSize: 500, MaxRetries: 1, MinDelay: time.Millisecond, MaxDataCycles: 2,
		Requeue: func(items []router.UploadItem) { requeued = append(requeued, items...) },
	}

	buffer := []router.UploadItem{item(1, 1, 2)} // already at the cycle limit
	w.Process(context.Background(), buffer)

	if len(requeued) != 0 {
		t.Fatalf("expected item past the cycle limit to be dropped, got %+v", requeued)
	}
}

func TestWorkerPartialSuccessAccumulatesWritten(t *testing.T) {
	client := &fakeClient{scripted: []Response{{StatusCode: statusOK, TotalWritten: 1, Present: true}}}
	w := &Worker{Client: client, DeviceID: "dev", PacketSize: 500, MaxRetries: 1, MinDelay: time.Millisecond, MaxDataCycles: 5}

	buffer := []router.UploadItem{item(1, 1, 0), item(2, 2, 0)}
	written := w.Process(context.Background(), buffer)

	if written != 1 {
		t.Fatalf("want partial-success write count 1, got %d", written)
	}
}

func TestIdempotencyStoreMarksOnlyOnce(t *testing.T) {
	store := NewIdempotencyStore(NewLoggingRedisEvaler(), time.Minute)
	first, err := store.MarkOnce(context.Background(), "commit-1")
	if err != nil || !first {
		t.Fatalf("expected first mark to apply, got applied=%v err=%v", first, err)
	}
	second, err := store.MarkOnce(context.Background(), "commit-1")
	if err != nil || second {
		t.Fatalf("expected second mark to be a no-op, got applied=%v err=%v", second, err)
	}
}

func TestSchedulerDispatchesPartialBufferOnShutdown(t *testing.T) {
	// This test exercises the scheduler's shutdown path rather than waiting
	// for the real 30s idle timeout: pushing the shutdown sentinel with a
	// non-empty buffer must still dispatch it before Run returns.
	client := &fakeClient{scripted: []Response{{StatusCode: statusOK, TotalWritten: 1, Present: true}}}
	queue := make(chan router.UploadQueueItem, 4)
	s := &Scheduler{
		Queue: queue, DeviceID: "dev", Client: client,
		BufferMin: 50, PacketSize: 500, MinDelay: time.Millisecond, MaxRetries: 1, MaxWorkers: 10, MaxDataCycles: 5,
	}

	queue <- router.UploadQueueItem{Batch: router.UploadBatch{DeviceID: "dev", Items: []router.UploadItem{item(1, 1, 0)}}}
	queue <- router.UploadQueueItem{Shutdown: true}

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return after shutdown sentinel")
	}

	if len(client.calls) != 1 || len(client.calls[0]) != 1 {
		t.Fatalf("expected the pending item to be flushed on shutdown, got calls=%+v", client.calls)
	}
}
