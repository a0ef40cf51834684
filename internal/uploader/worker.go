package uploader

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"procem/internal/router"
	"procem/internal/telemetry"
	"procem/pkg/measurement"
)

// cycleBatchSize is how many records are grouped together when cycling
// unwritten chunks back onto the upload queue.
const cycleBatchSize = 10

// Worker sends one dispatched buffer to the cloud service, retrying
// chunk-by-chunk and cycling anything still unwritten after the retry
// budget is exhausted.
type Worker struct {
	Client        Client
	Idempotency   *IdempotencyStore
	DeviceID      string
	PacketSize    int
	MaxRetries    int
	MinDelay      time.Duration
	MaxDataCycles int

	// Requeue pushes cycled items back onto the upload queue; nil disables
	// cycling, and the unwritten items are then discarded without being
	// counted as dropped.
	Requeue func(items []router.UploadItem)
}

// Process sorts, chunks, and sends buffer, returning the confirmed
// written count. It blocks for the duration of all retries.
func (w *Worker) Process(ctx context.Context, buffer []router.UploadItem) int {
	if len(buffer) == 0 {
		return 0
	}

	sort.Slice(buffer, func(i, j int) bool {
		a, b := buffer[i].Record, buffer[j].Record
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Ts < b.Ts
	})

	packetSize := w.PacketSize
	if packetSize <= 0 {
		packetSize = len(buffer)
	}
	nChunks := (len(buffer) + packetSize - 1) / packetSize
	considered := make(map[int]bool, nChunks)
	for i := 0; i < nChunks; i++ {
		considered[i] = true
	}

	expected := func(idx int) int {
		if idx < nChunks-1 {
			return packetSize
		}
		rem := len(buffer) % packetSize
		if rem == 0 {
			return packetSize
		}
		return rem
	}

	chunk := func(idx int) []router.UploadItem {
		start := idx * packetSize
		end := start + packetSize
		if end > len(buffer) {
			end = len(buffer)
		}
		return buffer[start:end]
	}

	maxRetries := w.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var confirmedWritten int
	var extraWait bool
	start := time.Now()
	tries := 0

	for try := 1; try <= maxRetries && len(considered) > 0; try++ {
		tries = try
		if try > 1 {
			wait := time.Duration(try) * w.MinDelay
			wait = time.Duration(float64(wait) * (1.0 + rand.Float64()))
			if extraWait {
				wait += 2 * time.Second
			}
			time.Sleep(wait)
		}

		telemetry.UploadTriesTotal.Inc()
		responses := make(map[int]Response, len(considered))
		for idx := range considered {
			responses[idx] = w.Client.WriteChunk(ctx, w.DeviceID, recordsOf(chunk(idx)))
		}

		written, wait := classifyResponses(responses, considered, expected)
		confirmedWritten += written
		extraWait = wait
	}

	telemetry.UploadWrittenTotal.Add(float64(confirmedWritten))
	fmt.Printf("uploader: written %d/%d, tries %d, %s\n",
		confirmedWritten, len(buffer), tries, time.Since(start).Round(time.Millisecond))

	if len(considered) > 0 {
		w.cycleRemaining(ctx, considered, chunk)
	}

	return confirmedWritten
}

func recordsOf(items []router.UploadItem) []measurement.TicketRecord {
	out := make([]measurement.TicketRecord, len(items))
	for i, it := range items {
		out[i] = it.Record
	}
	return out
}

// cycleRemaining re-enqueues every record in a still-unwritten chunk with
// its cycle count incremented, dropping records whose incremented cycle
// count would exceed the configured maximum.
func (w *Worker) cycleRemaining(ctx context.Context, considered map[int]bool, chunk func(int) []router.UploadItem) {
	var toCycle []router.UploadItem
	var dropped int
	for idx := range considered {
		for _, item := range chunk(idx) {
			if item.Cycle >= w.MaxDataCycles {
				dropped++
				continue
			}
			toCycle = append(toCycle, router.UploadItem{Record: item.Record, Cycle: item.Cycle + 1})
		}
	}

	if dropped > 0 {
		telemetry.UploadDroppedTotal.Add(float64(dropped))
	}
	if len(toCycle) == 0 || w.Requeue == nil {
		return
	}

	// Each cycling pass mints a fresh commit id; the marker gates only this
	// pass's requeue.
	commitID := uuid.NewString()
	if w.Idempotency != nil {
		applied, err := w.Idempotency.MarkOnce(ctx, commitID)
		if err != nil {
			fmt.Printf("uploader: idempotency check failed, cycling anyway: %v\n", err)
		} else if !applied {
			return
		}
	}

	telemetry.UploadCycledTotal.Add(float64(len(toCycle)))
	for start := 0; start < len(toCycle); start += cycleBatchSize {
		end := start + cycleBatchSize
		if end > len(toCycle) {
			end = len(toCycle)
		}
		w.Requeue(toCycle[start:end])
	}
}
