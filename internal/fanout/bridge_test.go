package fanout

import (
	"testing"
	"time"

	"procem/internal/router"
	"procem/pkg/measurement"
)

func TestClientRobustSendRoundTrip(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	client := NewClient(srv.Addr(), 200*time.Millisecond)
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	if !client.RobustSend(`{"id":1,"v":1,"ts":10}`) {
		t.Fatal("expected RobustSend to succeed against a live server")
	}

	select {
	case line := <-srv.Lines:
		if line != `{"id":1,"v":1,"ts":10}` {
			t.Fatalf("unexpected line received: %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server to receive the line")
	}
}

func TestRunForwardsFanoutItems(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", 8)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	client := NewClient(srv.Addr(), 200*time.Millisecond)
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	queue := make(chan router.FanoutItem, 1)
	queue <- router.FanoutItem{ID: 5, V: measurement.LongValue(42), Ts: 99}
	close(queue)

	done := make(chan struct{})
	go func() {
		Run(client, queue)
		close(done)
	}()

	select {
	case line := <-srv.Lines:
		want := `{"id":5,"v":42,"ts":99}`
		if line != want {
			t.Fatalf("want %q got %q", want, line)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded line")
	}
	<-done
}

func TestIgnoreWindowDropsAfterSustainedFailure(t *testing.T) {
	// Dial a client against an address nothing listens on so every send fails.
	client := NewClient("127.0.0.1:1", 10*time.Millisecond)

	for i := 0; i < ignoreThreshold+1; i++ {
		if client.RobustSend("x") {
			t.Fatal("expected sends against a dead peer to fail")
		}
	}
	if !client.inIgnoreWindow() {
		t.Fatal("expected ignore window to be active after sustained failure")
	}
}
