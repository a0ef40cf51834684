package spill

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ResendWorker runs a periodic re-injection pass against a Sender's spill
// file, pushing recovered lines into a batcher's queue. It is a ticker loop
// with a stop channel and an idempotent Stop.
type ResendWorker struct {
	sender   *Sender
	interval time.Duration
	push     func(line []byte)

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// NewResendWorker builds a worker that invokes sender.ReinjectOnce every
// interval, feeding recovered lines to push.
func NewResendWorker(sender *Sender, interval time.Duration, push func(line []byte)) *ResendWorker {
	return &ResendWorker{sender: sender, interval: interval, push: push, stopChan: make(chan struct{})}
}

// Start runs an initial pass immediately (to pick up a read-side file left
// over from a crash) and then one pass per interval.
func (w *ResendWorker) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *ResendWorker) loop() {
	defer w.wg.Done()

	w.runPass()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.runPass()
		case <-w.stopChan:
			return
		}
	}
}

func (w *ResendWorker) runPass() {
	if err := w.sender.ReinjectOnce(w.push); err != nil {
		fmt.Printf("spill: resend pass failed: %v\n", err)
	}
}

// Stop signals the loop to exit and waits for it to finish. Idempotent.
func (w *ResendWorker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	close(w.stopChan)
	w.wg.Wait()
}
