package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type runnerCall struct {
	name string
	args []string
}

// FakeRunner scripts responses for external commands by program name, so
// tests never depend on 7z/cp/scp/md5sum/ssh being installed on the host.
// Unscripted cp and scp perform the real copy via os, so tests can observe
// the copied files.
type FakeRunner struct {
	mu    sync.Mutex
	calls []runnerCall

	// Scripted maps a program name to a queue of (stdout, err) pairs. The
	// first queued response is consumed and removed on the first matching
	// call, then the next, etc. Once exhausted, cp and scp copy for real,
	// chmod and ssh succeed without doing anything, cmp and md5sum return
	// an error, and anything else returns an empty success.
	Scripted map[string][]FakeResult
}

// FakeResult is one scripted response for a single command invocation.
type FakeResult struct {
	Stdout string
	Err    error
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Scripted: make(map[string][]FakeResult)}
}

func (f *FakeRunner) Script(name string, results ...FakeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scripted[name] = append(f.Scripted[name], results...)
}

func (f *FakeRunner) Calls() []runnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runnerCall(nil), f.calls...)
}

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{name: name, args: args})
	queue := f.Scripted[name]
	if len(queue) > 0 {
		next := queue[0]
		f.Scripted[name] = queue[1:]
		f.mu.Unlock()
		return next.Stdout, next.Err
	}
	f.mu.Unlock()

	switch name {
	case "cp":
		return "", realCopy(args[0], args[1])
	case "scp":
		_, dest, _ := strings.Cut(args[1], ":")
		return "", realCopy(args[0], dest)
	case "chmod", "ssh":
		return "", nil
	case "cmp":
		return "", fmt.Errorf("fake runner: no scripted cmp result and files differ by default")
	case "md5sum":
		return "", fmt.Errorf("fake runner: no scripted md5sum result")
	default:
		return "", nil
	}
}

func realCopy(src, dstDirOrFile string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(dstDirOrFile)
	dst := dstDirOrFile
	if err == nil && info.IsDir() {
		dst = filepath.Join(dstDirOrFile, filepath.Base(src))
	}
	return os.WriteFile(dst, data, 0o644)
}
