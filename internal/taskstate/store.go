package taskstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	recordFileName = "current_task.json"
	lockFileName   = "state.lock"

	// pollInterval bounds how often PollUntilTerminal re-reads the record.
	pollInterval = 500 * time.Millisecond
)

var (
	// ErrNoRecord means the slot is empty.
	ErrNoRecord = errors.New("taskstate: no record")

	// ErrMalformedRecord means the record file exists but cannot be trusted.
	ErrMalformedRecord = errors.New("taskstate: malformed record")

	// ErrInvalidTransition means a writer attempted an out-of-order state
	// change (e.g. completing a record that never entered in_progress) or
	// presented a stale epoch. The record is left unchanged.
	ErrInvalidTransition = errors.New("taskstate: invalid transition")

	// ErrTimeout means the record never reached a terminal state within the
	// polling deadline.
	ErrTimeout = errors.New("taskstate: timed out waiting for terminal state")

	// ErrLocked means another process holds the state directory.
	ErrLocked = errors.New("taskstate: state directory is locked by another run")
)

// Store is a file-backed single-record mailbox rooted at a state directory.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed and returns a store for it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) recordPath() string {
	return filepath.Join(s.dir, recordFileName)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, lockFileName)
}

// AcquireLock takes the advisory run lock for this state directory. Only one
// run may use a state directory at a time; a second caller gets ErrLocked.
// A lock left behind by a dead process is reclaimed rather than honored.
// The returned release function removes the lock file.
func (s *Store) AcquireLock() (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if err := f.Close(); err != nil {
				return nil, fmt.Errorf("writing state lock: %w", err)
			}
			return func() {
				if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
					fmt.Fprintf(os.Stderr, "Warning: failed to release state lock: %v\n", err)
				}
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquiring state lock: %w", err)
		}

		pid, readErr := s.lockOwner()
		if readErr != nil {
			return nil, fmt.Errorf("%w (unreadable lock file %s; delete it if no run is active)", ErrLocked, s.lockPath())
		}
		if processAlive(pid) {
			return nil, fmt.Errorf("%w (held by pid %d, lock file: %s)", ErrLocked, pid, s.lockPath())
		}

		slog.Warn("reclaiming stale state lock", "pid", pid, "path", s.lockPath())
		if rmErr := os.Remove(s.lockPath()); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing stale state lock: %w", rmErr)
		}
	}
	return nil, fmt.Errorf("%w (lock file: %s)", ErrLocked, s.lockPath())
}

// lockOwner reads the pid recorded in the lock file.
func (s *Store) lockOwner() (int, error) {
	data, err := os.ReadFile(s.lockPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("lock file does not name a pid: %q", strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// processAlive reports whether the pid still names a running process. A
// permission error on signal 0 means the process exists under another user.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	sigErr := proc.Signal(syscall.Signal(0))
	return sigErr == nil || errors.Is(sigErr, syscall.EPERM)
}

// Create writes a fresh pending record into the slot, destroying any leftover
// record from a prior task. The record's epoch is set to one past the epoch
// of whatever occupied the slot before, so writes against the old record are
// rejected from this point on.
func (s *Store) Create(rec *Record) error {
	epoch := int64(0)
	if prev, err := s.Read(); err == nil {
		epoch = prev.Epoch
	}

	rec.Epoch = epoch + 1
	rec.Status = StatusPending
	if rec.StartTime == 0 {
		rec.StartTime = float64(time.Now().UnixNano()) / float64(time.Second)
	}

	return s.write(rec)
}

// Read returns the current record, validating the file against the record
// schema first. Returns ErrNoRecord or ErrMalformedRecord as appropriate.
func (s *Store) Read() (*Record, error) {
	data, err := os.ReadFile(s.recordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}

	if err := validateRecordBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &rec, nil
}

// Begin is the session-side claim on the pending record: iff the record
// exists and is pending, it moves to in_progress and is returned. A missing
// record or any other status is a no-op returning ErrInvalidTransition, which
// protects an unrelated task's record from a stale or duplicate session.
func (s *Store) Begin() (*Record, error) {
	rec, err := s.Read()
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if rec.Status != StatusPending {
		return nil, fmt.Errorf("%w: begin on status %q", ErrInvalidTransition, rec.Status)
	}

	rec.Status = StatusInProgress
	if err := s.write(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Complete is the session-side terminal write. It is valid only against an
// in_progress record whose epoch matches the one the session read at Begin.
// The terminal record is the only channel back to the coordinator, so it
// carries everything the coordinator persists, token usage included.
func (s *Store) Complete(epoch int64, answer string, score float64, tokens int) error {
	return s.finish(epoch, func(rec *Record) {
		rec.Status = StatusCompleted
		rec.ActualAnswer = answer
		rec.Score = &score
		rec.TokensUsed = tokens
	})
}

// Fail marks the record failed with an error description. Same validity
// rules as Complete.
func (s *Store) Fail(epoch int64, errMsg string) error {
	return s.finish(epoch, func(rec *Record) {
		rec.Status = StatusFailed
		rec.Error = errMsg
	})
}

func (s *Store) finish(epoch int64, apply func(*Record)) error {
	rec, err := s.Read()
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return ErrInvalidTransition
		}
		return err
	}

	if rec.Epoch != epoch {
		return fmt.Errorf("%w: epoch %d does not match current %d", ErrInvalidTransition, epoch, rec.Epoch)
	}
	if rec.Status != StatusInProgress {
		return fmt.Errorf("%w: terminal write on status %q", ErrInvalidTransition, rec.Status)
	}

	apply(rec)
	return s.write(rec)
}

// PollUntilTerminal re-reads the record at a fixed interval until it reaches
// a terminal state, the timeout elapses, or ctx is canceled. It never blocks
// longer than one poll interval past cancellation.
func (s *Store) PollUntilTerminal(ctx context.Context, epoch int64, timeout time.Duration) (*Record, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		rec, err := s.Read()
		if err == nil && rec.Epoch == epoch && rec.Status.Terminal() {
			return rec, nil
		}
		if err != nil && !errors.Is(err, ErrNoRecord) && !errors.Is(err, ErrMalformedRecord) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}
}

// Clear removes the record from the slot. Missing records are fine.
func (s *Store) Clear() error {
	if err := os.Remove(s.recordPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing record: %w", err)
	}
	return nil
}

// write atomically replaces the record file via a temp file and rename, so a
// concurrent reader never observes a torn write.
func (s *Store) write(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp record: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.recordPath()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing record: %w", err)
	}
	return nil
}
