package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"procem/internal/filewriter"
	"procem/internal/telemetry"
)

// Config configures one pipeline run. It carries the day-log directory and
// the pipeline fields of config.BackupConfig (not Enabled or Hour); kept as
// a separate type so this package has no import-time dependency on
// internal/config.
type Config struct {
	DayLogDir        string
	LocalArchiveDir  string
	RemoteServer     string // empty disables remote backup
	RemoteDir        string
	FilePermissions  string
	CompressCmd      string
	CompressExt      string
	CompressOKMarker string
	KeepDaysCwd      int
	KeepDaysLocal    int
}

// Pipeline runs the daily compress/rotate/copy/verify/purge state machine.
type Pipeline struct {
	Cfg    Config
	Runner Runner
}

// NewPipeline builds a Pipeline backed by real external tools.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{Cfg: cfg, Runner: ExecRunner{}}
}

// RunOnce executes one full pass of the state machine for "now". It never
// returns on a single file failure — failures are logged and the
// corresponding file is skipped for deletion, to be retried next run.
func (p *Pipeline) RunOnce(ctx context.Context, now time.Time) {
	current := currentFileNames(now, p.Cfg.CompressExt)

	p.compressDayLogs(ctx, current)
	p.compactCounters()

	cwdKeep := currentFileNames(now, p.Cfg.CompressExt)
	for k, v := range keepFileNames(now, 1, p.Cfg.KeepDaysCwd, p.Cfg.CompressExt) {
		cwdKeep[k] = v
	}
	localKeep := make(map[string]bool, len(cwdKeep))
	for k, v := range cwdKeep {
		localKeep[k] = v
	}
	for k, v := range keepFileNames(now, p.Cfg.KeepDaysCwd+1, p.Cfg.KeepDaysLocal, p.Cfg.CompressExt) {
		localKeep[k] = v
	}

	localFailed := p.backupToLocal(ctx, current)
	p.purge(p.Cfg.DayLogDir, compressedAndCounterFiles(p.Cfg.DayLogDir, p.Cfg.CompressExt), cwdKeep, localFailed)

	if p.Cfg.RemoteServer != "" {
		remoteFailed := p.backupToRemote(ctx, current)
		p.purge(p.Cfg.LocalArchiveDir, compressedAndCounterFiles(p.Cfg.LocalArchiveDir, p.Cfg.CompressExt), localKeep, remoteFailed)
	}

	telemetry.BackupTransitionsTotal.WithLabelValues("cycle_complete").Inc()
}

func compressedAndCounterFiles(dir, compressExt string) []string {
	var files []string
	if matches, err := filepath.Glob(compressedGlob(dir, compressExt)); err == nil {
		files = append(files, matches...)
	}
	if matches, err := filepath.Glob(counterGlob(dir)); err == nil {
		files = append(files, matches...)
	}
	return files
}

// compressDayLogs compresses every day-log that is not today's, deleting
// the source only when the configured success marker appears in stdout.
func (p *Pipeline) compressDayLogs(ctx context.Context, current map[string]bool) {
	matches, err := filepath.Glob(dayLogGlob(p.Cfg.DayLogDir))
	if err != nil {
		fmt.Printf("backup: globbing day logs: %v\n", err)
		return
	}

	prog, baseArgs := splitCommand(p.Cfg.CompressCmd)
	for _, path := range matches {
		base := filepath.Base(path)
		if current[base] {
			continue
		}
		compressed := replaceExt(base, p.Cfg.CompressExt)
		args := append(append([]string{}, baseArgs...), filepath.Join(p.Cfg.DayLogDir, compressed), path)

		out, err := p.Runner.Run(ctx, prog, args...)
		if err != nil {
			fmt.Printf("backup: compressing %s: %v\n", path, err)
			continue
		}
		if !strings.Contains(out, p.Cfg.CompressOKMarker) {
			continue
		}
		if err := os.Remove(path); err != nil {
			fmt.Printf("backup: removing compressed source %s: %v\n", path, err)
			continue
		}
		telemetry.BackupTransitionsTotal.WithLabelValues("compress").Inc()
	}
}

// compactCounters sums duplicate (id, count) rows in every counter file
// in the working directory, so a single entry per id remains.
func (p *Pipeline) compactCounters() {
	matches, err := filepath.Glob(counterGlob(p.Cfg.DayLogDir))
	if err != nil {
		fmt.Printf("backup: globbing counter files: %v\n", err)
		return
	}
	for _, path := range matches {
		if err := filewriter.CompactCounters(path); err != nil {
			fmt.Printf("backup: compacting %s: %v\n", path, err)
		}
	}
}

// backupToLocal copies every compressed day-log and counter file to the
// local archive directory, returning the set of base names that failed.
func (p *Pipeline) backupToLocal(ctx context.Context, current map[string]bool) map[string]bool {
	failed := make(map[string]bool)
	for _, path := range compressedAndCounterFiles(p.Cfg.DayLogDir, p.Cfg.CompressExt) {
		base := filepath.Base(path)
		if current[base] {
			continue
		}
		ok := p.backupFile(ctx, path, p.Cfg.LocalArchiveDir, p.Cfg.FilePermissions, "")
		if !ok {
			failed[base] = true
		} else {
			telemetry.BackupTransitionsTotal.WithLabelValues("local_copy").Inc()
		}
	}
	return failed
}

// backupToRemote copies every locally archived compressed/counter file to
// the configured remote server, returning the set of base names that
// failed.
func (p *Pipeline) backupToRemote(ctx context.Context, current map[string]bool) map[string]bool {
	failed := make(map[string]bool)
	for _, path := range compressedAndCounterFiles(p.Cfg.LocalArchiveDir, p.Cfg.CompressExt) {
		base := filepath.Base(path)
		if current[base] {
			continue
		}
		ok := p.backupFile(ctx, path, p.Cfg.RemoteDir, p.Cfg.FilePermissions, p.Cfg.RemoteServer)
		if !ok {
			failed[base] = true
		} else {
			telemetry.BackupTransitionsTotal.WithLabelValues("remote_copy").Inc()
		}
	}
	return failed
}

// backupFile copies source into targetDir (optionally on remoteServer via
// scp/ssh), verifying the copy already matches before re-copying, and
// setting permissions afterward. Returns true on success or if the target
// already matched.
func (p *Pipeline) backupFile(ctx context.Context, source, targetDir, permissions, remoteServer string) bool {
	base := filepath.Base(source)
	target := filepath.Join(targetDir, base)

	if remoteServer == "" {
		if out, err := p.Runner.Run(ctx, "cmp", source, target); err == nil && out == "" {
			return true
		}
		if _, err := p.Runner.Run(ctx, "cp", source, targetDir); err != nil {
			fmt.Printf("backup: copying %s to %s: %v\n", source, targetDir, err)
			return false
		}
	} else {
		targetMD5, _ := p.md5sum(ctx, target, remoteServer)
		if targetMD5 != "" {
			if sourceMD5, _ := p.md5sum(ctx, source, ""); sourceMD5 != "" && sourceMD5 == targetMD5 {
				return true
			}
		}
		dest := remoteServer + ":" + targetDir
		if _, err := p.Runner.Run(ctx, "scp", source, dest); err != nil {
			fmt.Printf("backup: scp %s to %s: %v\n", source, dest, err)
			return false
		}
	}

	return p.chmod(ctx, target, permissions, remoteServer)
}

func (p *Pipeline) chmod(ctx context.Context, target, permissions, remoteServer string) bool {
	if permissions == "" {
		return true
	}
	args := []string{"chmod", permissions, target}
	if remoteServer != "" {
		args = append([]string{remoteServer}, args...)
		_, err := p.Runner.Run(ctx, "ssh", args...)
		return err == nil
	}
	_, err := p.Runner.Run(ctx, args[0], args[1:]...)
	return err == nil
}

func (p *Pipeline) md5sum(ctx context.Context, path, remoteServer string) (string, error) {
	var out string
	var err error
	if remoteServer == "" {
		out, err = p.Runner.Run(ctx, "md5sum", path)
	} else {
		out, err = p.Runner.Run(ctx, "ssh", remoteServer, "md5sum", path)
	}
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("backup: empty md5sum output for %s", path)
	}
	return fields[0], nil
}

// purge removes every file in files whose base name is not in keep and
// was not marked failed, so a failed copy is retried on the next run
// instead of being lost.
func (p *Pipeline) purge(dir string, files []string, keep, failed map[string]bool) {
	for _, path := range files {
		base := filepath.Base(path)
		if keep[base] || failed[base] {
			continue
		}
		if err := os.Remove(path); err != nil {
			fmt.Printf("backup: purging %s: %v\n", path, err)
			continue
		}
		telemetry.BackupTransitionsTotal.WithLabelValues("purge").Inc()
	}
	_ = dir
}
