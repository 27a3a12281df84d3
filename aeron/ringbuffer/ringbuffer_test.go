package ringbuffer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/ringbuffer"
)

func TestWriteReadRoundTrip(t *testing.T) {
	backing := atomic.MakeBuffer(1024)
	var rb ringbuffer.ManyToOne
	rb.Init(backing)

	src := atomic.MakeBuffer(16)
	src.PutInt64(0, 424242)

	require.NoError(t, rb.Write(7, src, 0, 8))

	var gotType int32
	var gotValue int64
	n := rb.Read(func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32) {
		gotType = msgTypeID
		gotValue = buffer.GetInt64(offset)
	}, 10)

	require.EqualValues(t, 1, n)
	require.EqualValues(t, 7, gotType)
	require.EqualValues(t, 424242, gotValue)
}

func TestReadRespectsMessageCountLimit(t *testing.T) {
	backing := atomic.MakeBuffer(1024)
	var rb ringbuffer.ManyToOne
	rb.Init(backing)

	src := atomic.MakeBuffer(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, rb.Write(1, src, 0, 8))
	}

	count := 0
	n := rb.Read(func(int32, *atomic.Buffer, int32, int32) { count++ }, 2)
	require.EqualValues(t, 2, n)
	require.Equal(t, 2, count)

	remaining := rb.Read(func(int32, *atomic.Buffer, int32, int32) { count++ }, 10)
	require.EqualValues(t, 3, remaining)
	require.Equal(t, 5, count)
}

func TestWriteRejectsInvalidMessageTypeID(t *testing.T) {
	backing := atomic.MakeBuffer(256)
	var rb ringbuffer.ManyToOne
	rb.Init(backing)

	src := atomic.MakeBuffer(8)
	require.Error(t, rb.Write(0, src, 0, 8))
	require.Error(t, rb.Write(-1, src, 0, 8))
}

func TestWriteReadSurvivesManyWrapsAroundBuffer(t *testing.T) {
	backing := atomic.MakeBuffer(128)
	var rb ringbuffer.ManyToOne
	rb.Init(backing)

	src := atomic.MakeBuffer(8)

	for i := int64(0); i < 50; i++ {
		src.PutInt64(0, i)
		require.NoError(t, rb.Write(1, src, 0, 8))

		var got int64
		n := rb.Read(func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32) {
			got = buffer.GetInt64(offset)
		}, 10)
		require.EqualValues(t, 1, n)
		require.Equal(t, i, got)
	}
}
