package router

import (
	"log"

	"procem/internal/telemetry"
	"procem/pkg/measurement"
)

// runValidator is the single writer to every downstream queue. It drains
// MainQueue until the ingress loop closes it (socket shutdown), then
// propagates shutdown to storage, upload, and fan-out.
func (r *Router) runValidator() {
	for dg := range r.MainQueue {
		r.validateOne(dg.Bytes)
	}

	close(r.StorageQueue)
	r.UploadQueue <- UploadQueueItem{Shutdown: true}
	if r.FanoutQueue != nil {
		close(r.FanoutQueue)
	}
}

func (r *Router) validateOne(raw []byte) {
	flags := r.Flags.Load()

	records := measurement.ValidateLines(raw, func(line []byte, err error) {
		telemetry.ValidationRejectsTotal.Inc()
		log.Printf("router: validation rejected %q: %v", line, err)
	})
	if len(records) == 0 {
		return
	}

	if flags.DBStorageOn {
		batch := StorageBatch{DeviceID: r.Cfg.DeviceID, Records: records}
		r.StorageQueue <- batch
	}

	if flags.IoTTicketOn {
		items := make([]UploadItem, 0, len(records))
		for _, rec := range records {
			if rec.Secret {
				continue
			}
			items = append(items, UploadItem{Record: rec.ToTicket(), Cycle: 0})
		}
		if len(items) > 0 {
			r.UploadQueue <- UploadQueueItem{Batch: UploadBatch{DeviceID: r.Cfg.DeviceID, Items: items}}
		}
	}

	for _, rec := range records {
		r.Store.Add(rec.ID, rec.V, rec.Ts)

		if r.FanoutQueue != nil && flags.BatteryDemoOn {
			if _, ok := flags.BatteryIDs[rec.ID]; ok {
				r.FanoutQueue <- FanoutItem{ID: rec.ID, V: rec.V, Ts: rec.Ts}
			}
		}
	}
}
