// Package router is the in-process hub: it owns the UDP listeners, the
// bounded queues between pipeline stages, the latest-value store, and the
// feature-flag snapshot, replacing the original's global singletons with a
// typed value that components receive references to.
package router

import (
	"net"
	"sync"
	"sync/atomic"

	"procem/internal/config"
	"procem/internal/store"
)

// Router owns every queue and listener a running instance needs. Nothing
// outside Router reads or writes package-level state.
type Router struct {
	Cfg   config.Config
	Store *store.Store
	Flags *FlagStore

	MainQueue    chan Datagram
	QueryQueue   chan QueryItem
	StorageQueue chan StorageBatch
	UploadQueue  chan UploadQueueItem
	FanoutQueue  chan FanoutItem

	conn    *net.UDPConn
	wg      sync.WaitGroup
	stopped uint32
}

// New builds a Router with queues sized per cfg, but does not yet bind any
// socket or start any goroutine.
func New(cfg config.Config) *Router {
	r := &Router{
		Cfg:          cfg,
		Store:        store.New(cfg.PresentValueCount),
		Flags:        NewFlagStore(cfg.DBStorageOn, cfg.IoTTicketSendOn, cfg.BatteryDemoOn, cfg.IdsForBattery),
		MainQueue:    make(chan Datagram, cfg.MainQueueSize),
		QueryQueue:   make(chan QueryItem, cfg.MainQueueSize),
		StorageQueue: make(chan StorageBatch, cfg.DBQueueSize),
		UploadQueue:  make(chan UploadQueueItem, cfg.IoTTicketQueueSize),
	}
	if cfg.FanoutAddr != "" {
		r.FanoutQueue = make(chan FanoutItem, cfg.MainQueueSize)
	}
	return r
}

// Start binds the UDP listener and launches the ingress and validator
// goroutines. Downstream consumers (storage writer, uploader, fan-out
// client, query responder) are started separately by the caller so each
// can be wired with its own dependencies.
func (r *Router) Start() error {
	addr, err := net.ResolveUDPAddr("udp", r.Cfg.UDPListenAddr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	r.conn = conn

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.runIngress()
	}()
	go func() {
		defer r.wg.Done()
		r.runValidator()
	}()
	return nil
}

// Stop closes the listening socket, which drains the ingress loop; ingress
// closing MainQueue then drains the validator, which propagates shutdown to
// every downstream queue. Safe to call more than once.
func (r *Router) Stop() {
	if !atomic.CompareAndSwapUint32(&r.stopped, 0, 1) {
		return
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.wg.Wait()
}
