package instancelock

import (
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_Exclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "web")
	require.NoError(t, err)

	_, err = Acquire(dir, "web")
	require.Error(t, err)
	assert.True(t, errors.IsLockedError(err))

	other, err := Acquire(dir, "worker")
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, first.Release())

	again, err := Acquire(dir, "web")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestPath_SanitizesProgramName(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "supervisor-monitor-group_web.lock"), Path(dir, "group:web"))
	assert.Equal(t, filepath.Join(dir, "supervisor-monitor-.._etc.lock"), Path(dir, "../etc"))
}

func TestAcquire_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")

	lock, err := Acquire(dir, "web")
	require.NoError(t, err)
	defer lock.Release()

	assert.FileExists(t, lock.Path())
}
