// Command procem-backup runs the daily compress/rotate/copy/verify/purge
// pipeline over the day-logs and counter files a procem-router instance
// produces, once per day at a configured local hour.
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

	"procem/internal/backup"
	"procem/internal/config"
)

func main() {
	configPath := flag.String("config", "procem.json", "path to the JSON configuration file shared with procem-router")
	runOnce := flag.Bool("once", false, "run a single backup pass immediately instead of scheduling a daily job")
	flag.Parse()
	if flag.NArg() > 0 {
		*configPath = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("procem-backup: %v", err)
	}
	if !cfg.Backup.Enabled {
		log.Fatal("procem-backup: backup.enabled is false in configuration")
	}

	pipeline := backup.NewPipeline(backup.Config{
		DayLogDir:        cfg.DayLogDir,
		LocalArchiveDir:  cfg.Backup.LocalArchiveDir,
		RemoteServer:     cfg.Backup.RemoteServer,
		RemoteDir:        cfg.Backup.RemoteDir,
		FilePermissions:  cfg.Backup.FilePermissions,
		CompressCmd:      cfg.Backup.CompressCmd,
		CompressExt:      cfg.Backup.CompressExt,
		CompressOKMarker: cfg.Backup.CompressOKMarker,
		KeepDaysCwd:      cfg.Backup.KeepDaysCwd,
		KeepDaysLocal:    cfg.Backup.KeepDaysLocal,
	})

	ctx := context.Background()

	if *runOnce {
		fmt.Println("procem-backup: running a single pass")
		pipeline.RunOnce(ctx, time.Now())
		fmt.Println("procem-backup: pass complete")
		return
	}

	schedule := &backup.Schedule{Pipeline: pipeline, Hour: cfg.Backup.Hour}
	if err := schedule.Start(ctx); err != nil {
		log.Fatalf("procem-backup: %v", err)
	}
	fmt.Printf("procem-backup: scheduled daily at %02d:00 local time\n", cfg.Backup.Hour)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("procem-backup: shutting down")
	if err := schedule.Stop(); err != nil {
		log.Printf("procem-backup: scheduler shutdown: %v", err)
	}
}
