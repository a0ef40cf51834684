// Package backup implements the daily compress/rotate/copy/verify/purge
// pipeline over the day-logs and counter files the rolling file writer
// produces, scheduled once per day at a configured local hour.
package backup

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its combined stdout.
// The production implementation shells out via os/exec; tests supply a
// scripted fake so the pipeline never depends on host tools like 7z, scp,
// or md5sum being installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, err error)
}

// ExecRunner shells out using os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// splitCommand splits a space-separated command string (e.g. "7z a") into
// its program and leading arguments, matching the original's
// `command.split(" ")` convention for a configurable compressor.
func splitCommand(cmd string) (string, []string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
