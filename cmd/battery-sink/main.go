// Command battery-sink is a minimal TCP consumer for the fan-out bridge:
// it accepts the line-delimited JSON internal/fanout's client produces and
// prints each accepted record, replying OK per line. It exists so the
// fan-out bridge has something to talk to outside of unit tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"procem/internal/fanout"
)

func main() {
	addr := flag.String("addr", ":9100", "TCP address to listen on")
	queueSize := flag.Int("queue-size", 1024, "capacity of the accepted-line queue")
	flag.Parse()

	server, err := fanout.NewServer(*addr, *queueSize)
	if err != nil {
		log.Fatalf("battery-sink: %v", err)
	}
	fmt.Printf("battery-sink: listening on %s\n", server.Addr())

	go server.Serve()
	go func() {
		for line := range server.Lines {
			fmt.Println(line)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("battery-sink: shutting down")
	_ = server.Close()
}
