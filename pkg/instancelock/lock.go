// Package instancelock keeps two monitors from watching the same program.
package instancelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"

	"github.com/gofrs/flock"
)

// Lock is an acquired per-program file lock. The operating system releases
// it if the process dies without calling Release.
type Lock struct {
	l *flock.Flock
}

// Path returns the lock file used for program inside dir
func Path(dir, program string) string {
	return filepath.Join(dir, fmt.Sprintf("supervisor-monitor-%s.lock", sanitize(program)))
}

// Acquire takes the lock without waiting. A lock held elsewhere yields a
// locked DomainError.
func Acquire(dir, program string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewIOError("failed to create lock directory", err).WithContext("dir", dir)
	}

	path := Path(dir, program)
	l := flock.New(path)

	locked, err := l.TryLock()
	if err != nil {
		return nil, errors.NewIOError("failed to acquire instance lock", err).WithContext("path", path)
	}
	if !locked {
		return nil, errors.NewLockedError(fmt.Sprintf("another monitor already watches %s", program), nil).WithContext("path", path)
	}
	return &Lock{l: l}, nil
}

func (l *Lock) Path() string {
	return l.l.Path()
}

func (l *Lock) Release() error {
	return l.l.Unlock()
}

// sanitize keeps supervisor group names such as "group:web" usable as file names
func sanitize(program string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, program)
}
