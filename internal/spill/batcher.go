package spill

import (
	"time"

	"procem/pkg/measurement"
)

// Batcher concatenates encoded records into UDP-sized datagrams before
// handing them to a Sender, enforcing a minimum inter-send interval.
type Batcher struct {
	Queue chan []byte // nil item = shutdown; empty (len 0, non-nil) item = flush now

	sender      *Sender
	useAck      bool
	minInterval time.Duration

	buf []byte
}

// NewBatcher wires a Batcher that flushes through sender.
func NewBatcher(sender *Sender, useAck bool, minInterval time.Duration, queueSize int) *Batcher {
	if minInterval <= 0 {
		minInterval = 10 * time.Millisecond
	}
	return &Batcher{
		Queue:       make(chan []byte, queueSize),
		sender:      sender,
		useAck:      useAck,
		minInterval: minInterval,
	}
}

// Run drains Queue until a nil item is received, flushing whenever the
// current buffer would overflow the UDP payload bound, on an explicit
// flush-now sentinel, and unconditionally before returning on shutdown.
func (b *Batcher) Run() {
	var lastSend time.Time
	flush := func() {
		if len(b.buf) == 0 {
			return
		}
		if wait := b.minInterval - time.Since(lastSend); wait > 0 {
			time.Sleep(wait)
		}
		b.sender.Send(b.buf, b.useAck)
		lastSend = time.Now()
		b.buf = nil
	}

	for item := range b.Queue {
		if item == nil {
			break
		}
		if len(item) == 0 {
			flush()
			continue
		}
		// lines re-injected from the spill file arrive without their
		// terminator; restore it so records stay line-delimited.
		if item[len(item)-1] != '\n' {
			item = append(item, '\n')
		}
		if len(b.buf)+len(item) > measurement.MaxDatagramBytes {
			flush()
		}
		b.buf = append(b.buf, item...)
	}
	flush()
}

// Push enqueues one encoded record for batching.
func (b *Batcher) Push(encoded []byte) { b.Queue <- encoded }

// FlushNow requests an out-of-band flush of whatever is currently buffered.
func (b *Batcher) FlushNow() { b.Queue <- []byte{} }

// Shutdown signals Run to flush and return.
func (b *Batcher) Shutdown() { b.Queue <- nil }
