package backup

import (
	"path/filepath"
	"strings"
	"time"

	"procem/internal/filewriter"
)

// replaceExt swaps filename's own extension for newExt (which already
// carries its leading dot, e.g. ".7z"). If filename has no extension, or
// already ends in newExt, newExt is simply appended/kept as-is.
func replaceExt(filename, newExt string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == newExt {
		return filename + strings.TrimPrefix(newExt, ext)
	}
	return strings.TrimSuffix(filename, ext) + newExt
}

// dayLogGlob and counterGlob match every day-log / counter file regardless
// of date, following filewriter's fixed suffix convention.
func dayLogGlob(dir string) string          { return filepath.Join(dir, "*_procem.csv") }
func counterGlob(dir string) string         { return filepath.Join(dir, "*_data_counter.csv") }
func compressedGlob(dir, ext string) string { return filepath.Join(dir, "*_procem"+ext) }

// currentFileNames returns the base names of today's day-log, its
// would-be compressed form, and today's counter file — these are never
// touched by compression, backup, or purge on the day they are still
// open for writing.
func currentFileNames(now time.Time, compressExt string) map[string]bool {
	dayLog := filewriter.DayLogName(now)
	return map[string]bool{
		dayLog:                          true,
		replaceExt(dayLog, compressExt): true,
		filewriter.CounterFileName(now): true,
	}
}

// keepFileNames returns the set of base names for the days fromDay through
// toDay before now, inclusive (today itself is covered by
// currentFileNames).
func keepFileNames(now time.Time, fromDay, toDay int, compressExt string) map[string]bool {
	keep := make(map[string]bool)
	for day := fromDay; day <= toDay; day++ {
		dt := now.AddDate(0, 0, -day)
		dayLog := filewriter.DayLogName(dt)
		keep[dayLog] = true
		keep[replaceExt(dayLog, compressExt)] = true
		keep[filewriter.CounterFileName(dt)] = true
	}
	return keep
}
