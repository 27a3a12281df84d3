package logbuffer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/logbuffer"
)

const testTermLength = int64(64 * 1024)

func createTestLogFile(t *testing.T) string {
	t.Helper()

	length := testTermLength*logbuffer.PartitionCount + 4096
	path := filepath.Join(t.TempDir(), "test.logbuffer")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(length))
	require.NoError(t, f.Close())

	return path
}

func TestWrapLaysOutPartitionsAndMetaData(t *testing.T) {
	path := createTestLogFile(t)

	buffers := logbuffer.Wrap(path)
	defer buffers.Close()

	for i := 0; i < logbuffer.PartitionCount; i++ {
		require.EqualValues(t, testTermLength, buffers.Buffer(i).Capacity())
	}
	require.EqualValues(t, 4096, buffers.Buffer(logbuffer.LogMetaDataSectionIndex).Capacity())
}

func TestRefCountingLifecycle(t *testing.T) {
	path := createTestLogFile(t)
	buffers := logbuffer.Wrap(path)
	defer buffers.Close()

	require.EqualValues(t, 0, buffers.RefCount())
	require.EqualValues(t, 1, buffers.IncRef())
	require.EqualValues(t, 2, buffers.IncRef())
	require.EqualValues(t, 1, buffers.DecRef())
	require.EqualValues(t, 0, buffers.DecRef())

	buffers.SetTimeOfLastStateChange(42)
	require.EqualValues(t, 42, buffers.TimeOfLastStateChange())
}

func TestDeleteUnmapsAndIsIdempotentWithClose(t *testing.T) {
	path := createTestLogFile(t)
	buffers := logbuffer.Wrap(path)

	require.NoError(t, buffers.Delete())
	require.NoError(t, buffers.Close())
}
