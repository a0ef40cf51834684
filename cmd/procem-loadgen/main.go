// Command procem-loadgen fires synthetic measurement datagrams at a
// router's UDP ingress, to exercise the wire codec and the reliable UDP
// sender end-to-end without a real adapter in the loop.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"procem/internal/spill"
	"procem/pkg/measurement"
)

func main() {
	target := flag.String("target", "127.0.0.1:9000", "UDP address of the router's ingress")
	ids := flag.Int("ids", 10, "number of distinct measurement ids to cycle through")
	path := flag.String("path", "/loadgen/demo", "path field for generated records")
	n := flag.Int("n", 10000, "total records to send")
	conc := flag.Int("c", 4, "number of concurrent senders")
	useAck := flag.Bool("use-ack", false, "require an OK acknowledgement per datagram")
	spillDir := flag.String("spill-dir", ".", "directory for the sender's spill file on exhausted retries")
	flag.Parse()

	if *n <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}

	sender, err := spill.New(*target, *spillDir, 500*time.Millisecond, 4)
	if err != nil {
		fmt.Fprintf(os.Stderr, "procem-loadgen: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	var sent, failed int64

	per := *n / *conc
	rem := *n - per**conc

	var wg sync.WaitGroup
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		wg.Add(1)
		go func(workerID, count int) {
			defer wg.Done()
			for i := 0; i < count; i++ {
				rec := measurement.Record{
					Name: fmt.Sprintf("loadgen-%d", workerID),
					Path: *path,
					V:    measurement.DoubleValue(float64(i % 1000)),
					Ts:   time.Now().UnixMilli(),
					Unit: "unit",
					Type: "double",
					ID:   int64((workerID*count + i) % *ids),
				}
				line, err := measurement.Encode(rec)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				if sender.Send(line, *useAck) {
					atomic.AddInt64(&sent, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("procem-loadgen: sent=%d failed=%d elapsed=%s (%.0f/s)\n",
		atomic.LoadInt64(&sent), atomic.LoadInt64(&failed), elapsed, float64(*n)/elapsed.Seconds())
}
