package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// HeldError reports a lock owned by another live process
type HeldError struct {
	Path string
	PID  int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("%s is held by another facsim process (PID %d)", e.Path, e.PID)
}

// PIDFile is a single-writer lock kept next to a sqlite database file
type PIDFile struct {
	path string
}

// New creates a lock at path
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// ForDatabase returns the lock guarding a sqlite database file
func ForDatabase(dbPath string) *PIDFile {
	return New(dbPath + ".pid")
}

func (p *PIDFile) Path() string { return p.path }

// Acquire writes the current PID. Stale or unreadable files are replaced.
func (p *PIDFile) Acquire() error {
	if pid, ok := p.owner(); ok && pid != os.Getpid() && isProcessRunning(pid) {
		return &HeldError{Path: p.path, PID: pid}
	}

	data := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(p.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Release removes the lock if this process still owns it
func (p *PIDFile) Release() error {
	if pid, ok := p.owner(); ok && pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

func (p *PIDFile) owner() (int, bool) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// isProcessRunning probes pid with signal 0
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM: the process exists but belongs to someone else
	return errors.Is(err, syscall.EPERM)
}
