// Command procem-router runs the central telemetry hub: UDP ingress,
// validation, the rolling day-log, the cloud uploader, latest-value
// queries, and the optional TCP fan-out, wired together from a single
// JSON configuration file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procem/internal/config"
	"procem/internal/fanout"
	"procem/internal/filewriter"
	"procem/internal/router"
	"procem/internal/telemetry"
	"procem/internal/uploader"
)

func main() {
	configPath := flag.String("config", "procem.json", "path to the JSON configuration file")
	flag.Parse()
	if flag.NArg() > 0 {
		*configPath = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("procem-router: %v", err)
	}

	r := router.New(cfg)
	if err := r.Start(); err != nil {
		log.Fatalf("procem-router: starting router: %v", err)
	}
	fmt.Printf("procem-router: listening on %s\n", cfg.UDPListenAddr)

	writer, err := filewriter.New(cfg.DayLogDir)
	if err != nil {
		log.Fatalf("procem-router: opening day log in %s: %v", cfg.DayLogDir, err)
	}
	go writer.Run(r.StorageQueue)

	go r.RunQueryResponder()

	var redisEvaler uploader.RedisEvaler
	if cfg.RedisAddr != "" {
		redisEvaler = uploader.NewGoRedisEvaler(cfg.RedisAddr)
	} else {
		redisEvaler = uploader.NewLoggingRedisEvaler()
	}
	uploadScheduler := &uploader.Scheduler{
		Queue:         r.UploadQueue,
		DeviceID:      cfg.DeviceID,
		Client:        uploader.NewHTTPClient(cfg.BaseURL, cfg.Username, cfg.Password, 10*time.Second),
		Idempotency:   uploader.NewIdempotencyStore(redisEvaler, 24*time.Hour),
		BufferMin:     cfg.IoTTicketBufferSize,
		PacketSize:    cfg.IoTTicketMaxPacketSize,
		MinDelay:      cfg.MinimumUploadDelay(),
		MaxRetries:    cfg.IoTTicketMaximumRetries,
		MaxWorkers:    cfg.ProcemIoTTicketWorkers,
		MaxDataCycles: cfg.IoTTicketMaxDataCycles,
	}
	uploaderDone := make(chan struct{})
	go func() {
		uploadScheduler.Run(context.Background())
		close(uploaderDone)
	}()

	var fanoutClient *fanout.Client
	if cfg.FanoutAddr != "" {
		fanoutClient = fanout.NewClient(cfg.FanoutAddr, time.Duration(cfg.FanoutTimeoutMs)*time.Millisecond)
		if err := fanoutClient.Connect(); err != nil {
			log.Printf("procem-router: fan-out: initial connect to %s failed, will retry lazily: %v", cfg.FanoutAddr, err)
		}
		go fanout.Run(fanoutClient, r.FanoutQueue)
	}

	var telemetryServer *telemetry.Server
	if cfg.AdminAddr != "" {
		telemetryServer = telemetry.NewServer(cfg.AdminAddr, nil)
		go func() {
			if err := telemetryServer.ListenAndServe(); err != nil {
				log.Printf("procem-router: telemetry server: %v", err)
			}
		}()
		fmt.Printf("procem-router: telemetry on %s\n", cfg.AdminAddr)
	}

	quit := make(chan struct{})
	go func() {
		router.RunCommandLoop(os.Stdin, r.Flags)
		close(quit)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-quit:
	}

	fmt.Println("procem-router: shutting down")
	r.Stop()
	<-uploaderDone

	if fanoutClient != nil {
		_ = fanoutClient.Close()
	}
	if telemetryServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetryServer.Shutdown(ctx)
	}

	fmt.Println("procem-router: stopped")
}
