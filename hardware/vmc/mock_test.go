package vmc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockQueueAndRecord(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	require.NoError(t, mock.Open("", 9600))
	assert.True(t, mock.Connected())

	request := NewGetDeviceID().Encode()
	require.NoError(t, mock.Send(request))

	mock.ExpectFrame(CommandGetDeviceID, []byte("WTR-0001-ABCDEF")...)
	bs, err := mock.Receive(time.Millisecond)
	require.NoError(t, err)
	f, err := Decode(bs)
	require.NoError(t, err)
	assert.Equal(t, HeaderDevice, f.Header)

	sent := mock.SentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, CommandGetDeviceID, sent[0].Command)
}

func TestMockTimeoutSlot(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	require.NoError(t, mock.Open("", 9600))

	mock.ExpectTimeout()
	mock.ExpectFrame(CommandRemoveFault, 0x01)

	bs, err := mock.Receive(time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, bs, "timeout slot yields no data")

	bs, err = mock.Receive(time.Millisecond)
	require.NoError(t, err)
	assert.NotNil(t, bs)
}

func TestMockObserverAndClear(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	require.NoError(t, mock.Open("", 9600))

	var observed []byte
	mock.SetObserver(func(bs []byte) { observed = append(observed, bs...) })
	mock.ExpectFrame(CommandRemoveFault, 0x01)
	bs, err := mock.Receive(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, bs, observed)

	mock.ExpectFrame(CommandRemoveFault, 0x01)
	require.NoError(t, mock.ClearBuffers())
	bs, err = mock.Receive(time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, bs, "cleared queue behaves like silent device")
}
