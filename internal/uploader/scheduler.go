package uploader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"procem/internal/router"
	"procem/internal/telemetry"
)

// Scheduler drains the router's upload queue into an adaptively sized
// buffer and dispatches it to a bounded pool of Workers, following the
// same buffer-size growth/shrink rules as the original batching loop.
type Scheduler struct {
	Queue chan router.UploadQueueItem

	DeviceID      string
	Client        Client
	Idempotency   *IdempotencyStore
	BufferMin     int
	PacketSize    int
	MinDelay      time.Duration
	MaxRetries    int
	MaxWorkers    int
	MaxDataCycles int

	active int32
	wg     sync.WaitGroup
}

const idleTimeout = 30 * time.Second

// Run blocks until the queue signals shutdown and every in-flight worker
// has returned.
func (s *Scheduler) Run(ctx context.Context) {
	bufferCheckInterval := time.Duration(float64(s.MinDelay) * 0.9)
	maxBufferSize := 1000 * s.PacketSize

	bufferSize := s.BufferMin
	lastBufferCheck := time.Now()
	lastSendTime := lastBufferCheck

	var buffer []router.UploadItem
	running := true

	for running || len(buffer) > 0 {
		var received []router.UploadItem

		if running {
			select {
			case qi, ok := <-s.Queue:
				if !ok {
					running = false
					bufferSize = max(1, len(buffer))
				} else if qi.Shutdown {
					running = false
					bufferSize = max(1, len(buffer))
				} else {
					received = qi.Batch.Items
				}
			case <-time.After(idleTimeout):
				bufferSize = max(1, min(bufferSize, len(buffer)))
			}
		}
		buffer = append(buffer, received...)

		now := time.Now()
		activeWorkers := atomic.LoadInt32(&s.active)
		if now.Sub(lastBufferCheck) > bufferCheckInterval {
			if float64(activeWorkers) < float64(s.MaxWorkers)/2 {
				bufferSize = max(bufferSize/2, len(buffer), 1)
			}
			lastBufferCheck = now
		}

		if len(buffer) >= bufferSize {
			if len(buffer) < maxBufferSize && (int(activeWorkers) >= s.MaxWorkers || now.Sub(lastSendTime) < s.MinDelay) {
				bufferSize += s.BufferMin
				lastBufferCheck = now
			} else {
				lastSendTime = now
				dispatch := buffer
				buffer = nil
				s.dispatch(ctx, dispatch)
			}
		}
	}

	s.wg.Wait()
	fmt.Println("uploader: scheduler stopped, all workers joined")
}

func (s *Scheduler) dispatch(ctx context.Context, buffer []router.UploadItem) {
	atomic.AddInt32(&s.active, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt32(&s.active, -1)

		start := time.Now()
		w := &Worker{
			Client:        s.Client,
			Idempotency:   s.Idempotency,
			DeviceID:      s.DeviceID,
			PacketSize:    s.PacketSize,
			MaxRetries:    s.MaxRetries,
			MinDelay:      s.MinDelay,
			MaxDataCycles: s.MaxDataCycles,
			Requeue:       s.requeue,
		}
		w.Process(ctx, buffer)
		telemetry.UploadBatchSeconds.Observe(time.Since(start).Seconds())
	}()
}

func (s *Scheduler) requeue(items []router.UploadItem) {
	s.Queue <- router.UploadQueueItem{Batch: router.UploadBatch{DeviceID: s.DeviceID, Items: items}}
}
