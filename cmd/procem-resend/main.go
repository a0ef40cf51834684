// Command procem-resend periodically retries UDP datagrams an adapter
// could not deliver, independent of whether the adapter process that
// produced them is still running. It drains the same on-disk spill
// directory a live adapter's internal/spill.Sender writes to.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procem/internal/spill"
)

func main() {
	target := flag.String("target", "", "UDP address of the router's ingress (host:port)")
	dir := flag.String("spill-dir", ".", "directory holding the adapter's spill files")
	interval := flag.Duration("interval", 20*time.Minute, "how often to run a resend pass")
	ackTimeout := flag.Duration("ack-timeout", 500*time.Millisecond, "per-attempt acknowledgement timeout")
	maxRetries := flag.Int("max-retries", 4, "per-datagram retry count before re-spilling")
	useAck := flag.Bool("use-ack", true, "require an OK acknowledgement for each resend")
	flag.Parse()

	if *target == "" {
		log.Fatal("procem-resend: -target is required")
	}

	sender, err := spill.New(*target, *dir, *ackTimeout, *maxRetries)
	if err != nil {
		log.Fatalf("procem-resend: %v", err)
	}

	batcher := spill.NewBatcher(sender, *useAck, 10*time.Millisecond, 1024)
	go batcher.Run()

	worker := spill.NewResendWorker(sender, *interval, batcher.Push)
	worker.Start()
	fmt.Printf("procem-resend: watching %s every %s, resending to %s\n", *dir, *interval, *target)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("procem-resend: shutting down")
	worker.Stop()
	batcher.Shutdown()
}
