package router

import (
	"net"

	"procem/pkg/measurement"
)

// StorageBatch is the descriptor the validator fan-out pushes to the
// rolling file writer: one device's worth of validated records.
type StorageBatch struct {
	DeviceID string
	Records  []measurement.Record
}

// UploadItem pairs a ticket-shaped record with its cycle count, the hop
// count that rides with it through every upload-side queue.
type UploadItem struct {
	Record measurement.TicketRecord
	Cycle  int
}

// UploadBatch is what the validator (cycle=0) or the uploader's own cycling
// path (cycle>0) pushes onto the upload queue.
type UploadBatch struct {
	DeviceID string
	Items    []UploadItem
}

// UploadQueueItem wraps an UploadBatch with a shutdown flag. The upload
// queue has multiple producers (the validator, and the uploader's own
// cycling path), so shutdown is signalled with a sentinel value rather than
// by closing the channel — closing a multi-producer channel from one
// producer would panic the others.
type UploadQueueItem struct {
	Shutdown bool
	Batch    UploadBatch
}

// FanoutItem is one record forwarded to the downstream TCP consumer.
type FanoutItem struct {
	ID int64
	V  measurement.Value
	Ts int64
}

// QueryItem is a pending "get_value:" request awaiting a reply.
type QueryItem struct {
	IDBytes []byte
	Addr    *net.UDPAddr
}

// Datagram is one inbound UDP payload queued for validation.
type Datagram struct {
	Bytes []byte
}
