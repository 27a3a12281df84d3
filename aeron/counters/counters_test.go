package counters_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/counters"
)

func TestCreateNewAndMapFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cnc.dat")

	created, createdFile, err := counters.CreateNew(path, 1024, 1024, 4096, 4096, 1024, 10_000_000_000)
	require.NoError(t, err)
	defer createdFile.Close()

	require.EqualValues(t, 10_000_000_000, created.ClientLivenessTo.Get())
	require.EqualValues(t, 1024, created.ToDriverBuf.Get().Capacity())
	require.EqualValues(t, 1024, created.ToClientsBuf.Get().Capacity())
	require.EqualValues(t, 4096, created.ValuesBuf.Get().Capacity())

	createdFile.Close()

	mapped, mappedFile, err := counters.MapFileErr(path)
	require.NoError(t, err)
	defer mappedFile.Close()
	require.EqualValues(t, 10_000_000_000, mapped.ClientLivenessTo.Get())
}

func TestCountersReaderReadsValueSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cnc.dat")
	created, createdFile, err := counters.CreateNew(path, 64, 64, 64, 4096, 64, 1000)
	require.NoError(t, err)
	defer createdFile.Close()

	reader := counters.NewCountersReader(created.ValuesBuf.Get())
	created.ValuesBuf.Get().PutInt64(3*64, 555)
	require.EqualValues(t, 555, reader.GetCounterValue(3))
}
