package filewriter

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// CompactCounters rewrites a counter file so that multiple (id, count) rows
// for the same id become a single summed row, sorted by id. The file is
// always rewritten; rows that are not a tab-separated pair of integers are
// dropped. Used by the backup pipeline before archiving a day's counter
// file.
func CompactCounters(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("filewriter: opening %s for compaction: %w", path, err)
	}
	totals := make(map[int64]int64)
	var order []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			continue
		}
		id, err1 := strconv.ParseInt(fields[0], 10, 64)
		count, err2 := strconv.ParseInt(fields[1], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] += count
	}
	scanErr := scanner.Err()
	f.Close()
	if scanErr != nil {
		return fmt.Errorf("filewriter: reading %s for compaction: %w", path, scanErr)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out, err := os.CreateTemp(tempDirFor(path), "compact-*.tmp")
	if err != nil {
		return fmt.Errorf("filewriter: creating compaction temp file: %w", err)
	}
	w := bufio.NewWriter(out)
	for _, id := range order {
		if _, err := fmt.Fprintf(w, "%d\t%d\n", id, totals[id]); err != nil {
			out.Close()
			os.Remove(out.Name())
			return fmt.Errorf("filewriter: writing compaction temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(out.Name())
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return err
	}
	return os.Rename(out.Name(), path)
}

func tempDirFor(path string) string {
	dir := path[:strings.LastIndex(path, string(os.PathSeparator))+1]
	if dir == "" {
		return "."
	}
	return dir
}
