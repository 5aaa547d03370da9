package vmc

import (
	"encoding/hex"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWire(t *testing.T) {
	t.Parallel()

	f, err := NewDeliver(3, 1)
	require.NoError(t, err)
	assert.Equal(t, "ff0055410203019c", hex.EncodeToString(f.Encode()))
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	must := func(f Frame, err error) Frame {
		require.NoError(t, err)
		return f
	}
	cases := []struct {
		name  string
		frame Frame
	}{
		{"get-device-id", NewGetDeviceID()},
		{"deliver", must(NewDeliver(3, 1))},
		{"deliver-max", must(NewDeliver(255, 255))},
		{"remove-fault", NewRemoveFault()},
		{"query-status", must(NewQueryStatus(7, 2))},
		{"query-balance", NewQueryBalance()},
		{"payment", must(NewPayment(1000, PaymentCoin, 5))},
		{"coin-change", NewCoinChange()},
		{"cashless-cancel", NewCashlessCancel()},
		{"debit", must(NewDebit(1000))},
		{"age-recognition", must(NewAgeRecognition(18))},
		{"query-coin-change-status", NewQueryCoinChangeStatus()},
		{"query-age-verification", NewQueryAgeVerification()},
		{"device-response", NewFrame(HeaderDevice, CommandQueryStatus, []byte{StatusSuccess})},
		{"empty-payload", NewFrame(HeaderHost, 0x99, nil)},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			decoded, err := Decode(c.frame.Encode())
			require.NoError(t, err)
			assert.Equal(t, c.frame.Header, decoded.Header)
			assert.Equal(t, c.frame.Command, decoded.Command)
			assert.Equal(t, c.frame.Payload, append([]byte(nil), decoded.Payload...))
		})
	}
}

func TestDecodeChecksumBitFlip(t *testing.T) {
	t.Parallel()

	f, err := NewDeliver(3, 1)
	require.NoError(t, err)
	wire := f.Encode()
	for bit := uint(0); bit < 8; bit++ {
		corrupt := append([]byte(nil), wire...)
		corrupt[5] ^= 1 << bit // first payload byte
		_, err := Decode(corrupt)
		require.Error(t, err, "bit=%d", bit)
		assert.IsType(t, InvalidChecksum{}, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		wire string
	}{
		{"empty", ""},
		{"short", "ff005541"},
		{"five-bytes", "ff00554102"},
		{"length-over", "ff0055410503019c"},
		{"length-under", "ff005541000301"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			bs, err := hex.DecodeString(c.wire)
			require.NoError(t, err)
			_, err = Decode(bs)
			assert.Error(t, err)
		})
	}
}

func TestPayloadBound(t *testing.T) {
	t.Parallel()

	_, err := NewFrameChecked(HeaderHost, 0x41, make([]byte, PayloadMaxLength+1))
	require.Error(t, err)
	assert.True(t, errors.IsNotValid(err), "expected NotValid, got %v", err)

	f, err := NewFrameChecked(HeaderHost, 0x41, make([]byte, PayloadMaxLength))
	require.NoError(t, err)
	decoded, err := Decode(f.Encode())
	require.NoError(t, err)
	assert.Len(t, decoded.Payload, PayloadMaxLength)
}

func TestAmountCodec(t *testing.T) {
	t.Parallel()

	amount, err := DecodeAmount([]byte{0xe8, 0x03, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), amount)

	assert.Equal(t, []byte{0xe8, 0x03, 0x00, 0x00}, EncodeAmount(1000))

	_, err = DecodeAmount([]byte{0xe8, 0x03})
	assert.Error(t, err)
}
