package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/broadcast"
)

const testBufferCapacity = int32(128 + 8)

func TestCopyReceiverDeliversTransmittedMessages(t *testing.T) {
	buf := atomic.MakeBuffer(testBufferCapacity)
	tx := broadcast.NewTransmitter(buf)

	src := atomic.MakeBuffer(8)
	src.PutInt64(0, 777)
	tx.Transmit(42, src, 0, 8)

	rx := broadcast.NewReceiver(buf)
	copyRx := broadcast.NewCopyReceiver(rx)

	var gotType int32
	var gotValue int64
	n := copyRx.Receive(func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32) {
		gotType = msgTypeID
		gotValue = buffer.GetInt64(offset)
	})

	require.Equal(t, 1, n)
	require.EqualValues(t, 42, gotType)
	require.EqualValues(t, 777, gotValue)
}

func TestReceiveReturnsZeroWhenNothingNew(t *testing.T) {
	buf := atomic.MakeBuffer(testBufferCapacity)
	rx := broadcast.NewReceiver(buf)
	copyRx := broadcast.NewCopyReceiver(rx)

	n := copyRx.Receive(func(int32, *atomic.Buffer, int32, int32) {
		t.Fatal("handler should not be called")
	})
	require.Equal(t, 0, n)
}

func TestMultipleReceiversEachSeeEveryMessage(t *testing.T) {
	buf := atomic.MakeBuffer(testBufferCapacity)
	tx := broadcast.NewTransmitter(buf)
	src := atomic.MakeBuffer(8)
	src.PutInt64(0, 1)
	tx.Transmit(1, src, 0, 8)

	rxA := broadcast.NewCopyReceiver(broadcast.NewReceiver(buf))
	rxB := broadcast.NewCopyReceiver(broadcast.NewReceiver(buf))

	gotA, gotB := 0, 0
	rxA.Receive(func(int32, *atomic.Buffer, int32, int32) { gotA++ })
	rxB.Receive(func(int32, *atomic.Buffer, int32, int32) { gotB++ })

	require.Equal(t, 1, gotA)
	require.Equal(t, 1, gotB)
}

func TestTransmitWrapsWithPaddingRecord(t *testing.T) {
	buf := atomic.MakeBuffer(testBufferCapacity)
	tx := broadcast.NewTransmitter(buf)
	rx := broadcast.NewReceiver(buf)

	src := atomic.MakeBuffer(64)
	// Each record is header(8) + 64 = 72 bytes, so only one fits in the 128
	// byte buffer: every later transmit pads the 56 bytes left before the end
	// and wraps to offset 0. The receiver reads after each transmit, skipping
	// the padding record each time.
	var seen []int32
	for _, msgTypeID := range []int32{1, 2, 3} {
		tx.Transmit(msgTypeID, src, 0, 64)
		for rx.ReceiveNext() {
			seen = append(seen, rx.MsgTypeID())
		}
	}

	require.Equal(t, []int32{1, 2, 3}, seen)
}
