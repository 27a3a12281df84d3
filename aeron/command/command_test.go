package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/command"
)

func TestPublicationMessageRoundTrip(t *testing.T) {
	buf := atomic.MakeBuffer(256)

	var msg command.PublicationMessage
	msg.Wrap(buf, 0)
	msg.SetClientID(11)
	msg.SetCorrelationID(7)
	msg.SetStreamID(10)
	end := msg.SetChannel("aeron:udp?endpoint=localhost:40123")

	require.EqualValues(t, 11, msg.ClientID())
	require.EqualValues(t, 7, msg.CorrelationID())
	require.EqualValues(t, 10, msg.StreamID())
	require.Equal(t, "aeron:udp?endpoint=localhost:40123", msg.Channel())

	length, err := command.PublicationMessageLength(buf, 0, end)
	require.NoError(t, err)
	require.Equal(t, end, length)
}

func TestPublicationMessageLengthRejectsTruncatedFrame(t *testing.T) {
	buf := atomic.MakeBuffer(256)
	var msg command.PublicationMessage
	msg.Wrap(buf, 0)
	msg.SetClientID(1)
	msg.SetCorrelationID(2)
	msg.SetStreamID(3)
	msg.SetChannel("aeron:ipc")

	_, err := command.PublicationMessageLength(buf, 0, 10)
	require.Error(t, err)
	var malformed *command.MalformedCommandError
	require.ErrorAs(t, err, &malformed)
}

func TestRemoveMessageRoundTrip(t *testing.T) {
	buf := atomic.MakeBuffer(64)
	var msg command.RemoveMessage
	msg.Wrap(buf, 0)
	msg.SetClientID(1)
	msg.SetCorrelationID(8)
	msg.SetRegistrationID(7)

	require.EqualValues(t, 8, msg.CorrelationID())
	require.EqualValues(t, 7, msg.RegistrationID())
}

func TestPublicationBuffersReadyRoundTrip(t *testing.T) {
	buf := atomic.MakeBuffer(256)
	var msg command.PublicationBuffersReady
	msg.Wrap(buf, 0)
	msg.SetCorrelationID(7)
	msg.SetRegistrationID(7)
	msg.SetStreamID(10)
	msg.SetSessionID(0x11111111)
	msg.SetPublicationLimitID(3)
	msg.SetChannelStatusIndicatorID(5)
	msg.SetLogFileName("/tmp/pub-7.log")

	require.EqualValues(t, 7, msg.CorrelationID())
	require.EqualValues(t, 7, msg.RegistrationID())
	require.EqualValues(t, 10, msg.StreamID())
	require.EqualValues(t, 0x11111111, msg.SessionID())
	require.EqualValues(t, 3, msg.PublicationLimitID())
	require.EqualValues(t, 5, msg.ChannelStatusIndicatorID())
	require.Equal(t, "/tmp/pub-7.log", msg.LogFileName())
}

func TestCounterMessageRoundTrip(t *testing.T) {
	buf := atomic.MakeBuffer(256)
	var msg command.CounterMessage
	msg.Wrap(buf, 0)
	msg.SetClientID(1)
	msg.SetCorrelationID(9)
	msg.SetTypeID(42)
	keyEnd := msg.SetKey([]byte{1, 2, 3})
	msg.SetLabel(keyEnd-24, "my-counter")

	require.EqualValues(t, 42, msg.TypeID())
	require.Equal(t, []byte{1, 2, 3}, msg.Key())
	require.Equal(t, "my-counter", msg.Label(keyEnd-24))
}
