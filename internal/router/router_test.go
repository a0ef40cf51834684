package router

import (
	"net"
	"strconv"
	"testing"
	"time"

	"procem/internal/config"
	"procem/pkg/measurement"
)

func mustDouble(d float64) measurement.Value { return measurement.DoubleValue(d) }

func testRouter(t *testing.T, mutate func(*config.Config)) *Router {
	t.Helper()
	cfg := config.Config{
		DeviceID:          "dev-1",
		BaseURL:           "https://example.test",
		UDPListenAddr:     "127.0.0.1:0",
		MainQueueSize:     16,
		DBQueueSize:       16,
		IoTTicketQueueSize: 16,
		PresentValueCount: 4,
		UseUDPAck:         true,
		ValueSeparator:    ";",
		DBStorageOn:       true,
		IoTTicketSendOn:   true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r := New(cfg)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(r.Stop)
	return r
}

func dial(t *testing.T, r *Router) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, r.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestIngressAcksAndUpdatesStore(t *testing.T) {
	r := testRouter(t, nil)
	go func() {
		for batch := range r.StorageQueue {
			_ = batch
		}
	}()
	go func() {
		for item := range r.UploadQueue {
			_ = item
		}
	}()

	conn := dial(t, r)
	line := []byte(`{"name":"p","path":"/a","v":1.5,"ts":10,"unit":"u","type":"double","id":1,"secret":false}` + "\n")
	if _, err := conn.Write(line); err != nil {
		t.Fatalf("Write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if string(buf[:n]) != "OK" {
		t.Fatalf("expected OK ack, got %q", buf[:n])
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if pts := r.Store.Get(1, 0); len(pts) == 1 && pts[0].Ts == 10 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for store update")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueryResponderReturnsLatestValues(t *testing.T) {
	r := testRouter(t, nil)
	go func() {
		for range r.StorageQueue {
		}
	}()
	go func() {
		for range r.UploadQueue {
		}
	}()
	go r.RunQueryResponder()

	r.Store.Add(7, mustDouble(2.5), 100)

	conn := dial(t, r)
	if _, err := conn.Write([]byte("get_value:7")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	want := "7;2.5;100"
	if string(buf[:n]) != want {
		t.Fatalf("expected %q, got %q", want, buf[:n])
	}
}

func TestBadPathIsDroppedWithNoDownstreamEffect(t *testing.T) {
	r := testRouter(t, nil)
	storageSeen := make(chan StorageBatch, 1)
	go func() {
		for batch := range r.StorageQueue {
			storageSeen <- batch
		}
	}()
	go func() {
		for range r.UploadQueue {
		}
	}()

	conn := dial(t, r)
	line := []byte(`{"name":"p","path":"no-leading-slash","v":1.5,"ts":10,"unit":"u","type":"double","id":1,"secret":false}` + "\n")
	if _, err := conn.Write(line); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case batch := <-storageSeen:
		t.Fatalf("expected no storage batch for invalid record, got %+v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestBatteryDemoCommandGatesFanoutLive(t *testing.T) {
	r := testRouter(t, func(c *config.Config) { c.FanoutAddr = "127.0.0.1:0" })
	go func() {
		for range r.StorageQueue {
		}
	}()
	go func() {
		for range r.UploadQueue {
		}
	}()

	conn := dial(t, r)
	send := func(id int64) {
		line := []byte(`{"name":"p","path":"/a","v":1,"ts":10,"unit":"u","type":"double","id":` +
			strconv.FormatInt(id, 10) + `,"secret":false}` + "\n")
		if _, err := conn.Write(line); err != nil {
			t.Fatalf("Write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		buf := make([]byte, 16)
		if _, err := conn.Read(buf); err != nil {
			t.Fatalf("reading ack: %v", err)
		}
	}

	// battery-demo is off by default: no ids configured, no record should
	// ever reach FanoutQueue.
	send(5)
	select {
	case item := <-r.FanoutQueue:
		t.Fatalf("expected no fan-out item before battery-demo is armed, got %+v", item)
	case <-time.After(100 * time.Millisecond):
	}

	dispatchCommand("battery-demo add 5", r.Flags)
	dispatchCommand("battery-demo on", r.Flags)

	send(5)
	select {
	case item := <-r.FanoutQueue:
		if item.ID != 5 {
			t.Fatalf("expected fan-out item for id 5, got %+v", item)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fan-out item after battery-demo on")
	}

	dispatchCommand("battery-demo off", r.Flags)

	send(5)
	select {
	case item := <-r.FanoutQueue:
		t.Fatalf("expected no fan-out item after battery-demo off, got %+v", item)
	case <-time.After(100 * time.Millisecond):
	}
}
