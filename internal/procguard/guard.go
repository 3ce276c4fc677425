// Package procguard enforces the single-consumer guarantee: at most
// one process may hold the consumer role at any instant. It uses a
// non-blocking exclusive flock on a well-known path, with the holder's
// PID recorded in the file so a contender can tell a live owner from a
// stale lock left by a crash.
package procguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// Guard is an advisory process lock keyed by a file path. Zero value is
// not usable; construct with New.
type Guard struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// New creates a guard for the given lock file path.
func New(path string) *Guard {
	return &Guard{path: path}
}

// Path returns the lock file path.
func (g *Guard) Path() string {
	return g.path
}

// Acquire takes the lock or reports why it cannot.
//
// On success the current PID is written into the lock file. On
// contention the recorded owner is probed: a live owner means abstain
// (domain.ErrLockHeld); a dead owner means the lock is stale, so the
// file is removed and acquisition retried exactly once.
func (g *Guard) Acquire() error {
	if err := g.tryAcquire(); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrLockHeld) {
		return err
	}

	pid, err := g.OwnerPID()
	if err != nil {
		return fmt.Errorf("lock busy and owner unreadable: %w", err)
	}

	if pidAlive(pid) {
		return fmt.Errorf("held by live pid %d: %w", pid, domain.ErrLockHeld)
	}

	logger.Warn("reclaiming stale lock %s left by dead pid %d", g.path, pid)
	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale lock: %w", err)
	}

	// One retry only; losing the race again means a real contender won.
	if err := g.tryAcquire(); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("lost reacquisition race: %w", domain.ErrLockHeld)
		}
		return err
	}
	return nil
}

// Release drops the lock and removes the file. Safe to call more than
// once; callers register it on every process exit path, not just the
// happy one.
func (g *Guard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return nil
	}

	fd := int(g.file.Fd())
	_ = syscall.Flock(fd, syscall.LOCK_UN)
	err := g.file.Close()
	g.file = nil

	if removeErr := os.Remove(g.path); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}

	logger.Info("process lock released")
	return err
}

// OwnerPID reads the PID recorded in the lock file. Absence of the file
// means nothing holds the lock and domain.ErrNotFound is returned.
func (g *Guard) OwnerPID() (int, error) {
	data, err := os.ReadFile(g.path)
	if os.IsNotExist(err) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing lock file owner: %w", err)
	}
	return pid, nil
}

// errLockBusy marks flock contention inside tryAcquire.
var errLockBusy = fmt.Errorf("flock busy: %w", domain.ErrLockHeld)

// tryAcquire performs one non-blocking flock attempt and, on success,
// records the current PID.
func (g *Guard) tryAcquire() error {
	if dir := filepath.Dir(g.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating lock directory: %w", err)
		}
	}

	f, err := os.OpenFile(g.path, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return fmt.Errorf("opening lock file %s: %w", g.path, err)
	}

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return errLockBusy
	}

	if err := f.Truncate(0); err != nil {
		_ = syscall.Flock(fd, syscall.LOCK_UN)
		_ = f.Close()
		return fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		_ = syscall.Flock(fd, syscall.LOCK_UN)
		_ = f.Close()
		return fmt.Errorf("recording owner pid: %w", err)
	}

	g.mu.Lock()
	g.file = f
	g.mu.Unlock()

	logger.Info("process lock acquired at %s (pid %d)", g.path, os.Getpid())
	return nil
}

// pidAlive probes whether a process exists. Signal 0 performs the
// permission and existence checks without delivering anything.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return err == syscall.EPERM
}
