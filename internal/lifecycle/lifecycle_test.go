package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenffff/infotransform-engine/internal/logging"
)

func writeTempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	return path
}

func TestReferenceCountingDeletesAtZeroRefs(t *testing.T) {
	path := writeTempFile(t)
	m := New(StrategyReferenceCounting, time.Hour, time.Hour, logging.NewDevelopment("lifecycle-test"))

	m.Acquire(path)
	m.Acquire(path)
	m.Release(path)
	_, err := os.Stat(path)
	assert.NoError(t, err, "file should still exist with one outstanding reference")

	m.Release(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should be removed once refcount reaches zero")
}

func TestStreamCompleteStrategyDoesNotDeleteImmediately(t *testing.T) {
	path := writeTempFile(t)
	m := New(StrategyStreamComplete, time.Hour, time.Hour, logging.NewDevelopment("lifecycle-test"))

	m.Acquire(path)
	m.Release(path)
	m.MarkStreamComplete([]string{path})

	_, err := os.Stat(path)
	assert.NoError(t, err, "stream_complete strategy defers deletion to the age-based sweeper")
}

func TestBatchContextReleasesOnError(t *testing.T) {
	path := writeTempFile(t)
	m := New(StrategyReferenceCounting, time.Hour, time.Hour, logging.NewDevelopment("lifecycle-test"))

	err := m.BatchContext([]string{path}, func() error {
		return assertErr("boom")
	})
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "BatchContext must release (and clean up) even when fn fails")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestReleaseUntrackedPathIsNoop(t *testing.T) {
	m := New(StrategyReferenceCounting, time.Hour, time.Hour, logging.NewDevelopment("lifecycle-test"))
	assert.NotPanics(t, func() { m.Release("/never/acquired") })
}
