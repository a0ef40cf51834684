// Package filewriter implements the rolling day-log: one append-only TSV
// file per local calendar day plus a per-day counter file, with
// counter-compaction shared by the backup pipeline.
package filewriter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"procem/internal/router"
)

const (
	dayLogSuffix     = "_procem.csv"
	counterFileSuffix = "_data_counter.csv"
	dateLayout       = "2006-01-02"
)

// DayLogName returns the day-log filename for date.
func DayLogName(date time.Time) string {
	return date.Format(dateLayout) + dayLogSuffix
}

// CounterFileName returns the counter filename for date.
func CounterFileName(date time.Time) string {
	return date.Format(dateLayout) + counterFileSuffix
}

// Writer owns the currently-open day-log file; no other goroutine should
// touch it while Run is draining the storage queue.
type Writer struct {
	dir      string
	file     *os.File
	buf      *bufio.Writer
	date     time.Time
	counters map[int64]int64
}

// New opens (or creates) today's day-log file under dir.
func New(dir string) (*Writer, error) {
	w := &Writer{dir: dir, counters: make(map[int64]int64)}
	if err := w.openFor(time.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openFor(date time.Time) error {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	path := filepath.Join(w.dir, DayLogName(date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filewriter: opening %s: %w", path, err)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.date = date
	w.counters = make(map[int64]int64)
	return nil
}

// rolloverIfNeeded closes the current day's file and flushes its counter
// file once the local calendar day has changed, then opens the new day.
func (w *Writer) rolloverIfNeeded(now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if today.Equal(w.date) {
		return nil
	}
	if err := w.flushCountersAndClose(); err != nil {
		return err
	}
	return w.openFor(today)
}

func (w *Writer) flushCountersAndClose() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("filewriter: flushing %s: %w", w.file.Name(), err)
	}
	if err := appendCounters(filepath.Join(w.dir, CounterFileName(w.date)), w.counters); err != nil {
		return err
	}
	return w.file.Close()
}

// WriteBatch appends every record in batch as "id\tv\tts\n", rolling over
// to a new day-log first if the local date has advanced.
func (w *Writer) WriteBatch(batch router.StorageBatch) error {
	if err := w.rolloverIfNeeded(time.Now()); err != nil {
		return err
	}
	for _, rec := range batch.Records {
		if _, err := fmt.Fprintf(w.buf, "%d\t%s\t%d\n", rec.ID, rec.V.String(), rec.Ts); err != nil {
			return fmt.Errorf("filewriter: writing to %s: %w", w.file.Name(), err)
		}
		w.counters[rec.ID]++
	}
	return w.buf.Flush()
}

// Run drains storageQueue until it is closed (router shutdown), then
// flushes the final day's counters and closes the file.
func (w *Writer) Run(storageQueue <-chan router.StorageBatch) {
	for batch := range storageQueue {
		if err := w.WriteBatch(batch); err != nil {
			// Filesystem error: logged by the caller via the returned
			// error path would be ideal, but Run owns the loop so we log
			// here and keep going — a transient write failure must not
			// stop the writer from draining the queue.
			fmt.Printf("filewriter: %v\n", err)
		}
	}
	if err := w.flushCountersAndClose(); err != nil {
		fmt.Printf("filewriter: %v\n", err)
	}
}

// appendCounters appends sorted (id, count) rows to the counter file for
// one day. Multiple appends across a day are tolerated; CompactCounters
// later combines them.
func appendCounters(path string, counters map[int64]int64) error {
	if len(counters) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(counters))
	for id := range counters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filewriter: opening counter file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range ids {
		if _, err := fmt.Fprintf(w, "%d\t%d\n", id, counters[id]); err != nil {
			return fmt.Errorf("filewriter: writing counter file %s: %w", path, err)
		}
	}
	return w.Flush()
}
