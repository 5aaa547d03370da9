// Package vmc implements the byte-level serial protocol of the vending
// machine control board: frame codec, command builders and response decoding.
package vmc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/juju/errors"
)

const (
	FrameAddress  byte = 0xff
	FrameSequence byte = 0x00

	HeaderHost   byte = 0x55 // host -> device
	HeaderDevice byte = 0xaa // device -> host

	// address + sequence + header + command + length + checksum
	frameMinLength = 6

	PayloadMaxLength = 255
)

// Frame is one complete protocol message. Created transiently per
// exchange, not retained.
type Frame struct {
	Header  byte
	Command byte
	Payload []byte
}

type InvalidChecksum struct {
	Received byte
	Actual   byte
}

func (self InvalidChecksum) Error() string {
	return fmt.Sprintf("vmc: invalid checksum received=%02x actual=%02x", self.Received, self.Actual)
}

func checksum(header, command byte, payload []byte) byte {
	chk := header + command + byte(len(payload))
	for _, b := range payload {
		chk += b
	}
	return chk
}

// NewFrame trusts the caller to respect PayloadMaxLength; command
// builders never exceed it. Untrusted payloads go through
// NewFrameChecked.
func NewFrame(header, command byte, payload []byte) Frame {
	return Frame{Header: header, Command: command, Payload: payload}
}

// NewFrameChecked bounds the payload so the one-byte declared length
// can not wrap and desynchronize the line.
func NewFrameChecked(header, command byte, payload []byte) (Frame, error) {
	if len(payload) > PayloadMaxLength {
		return Frame{}, errors.NotValidf("vmc: payload length=%d max=%d", len(payload), PayloadMaxLength)
	}
	return NewFrame(header, command, payload), nil
}

func (self Frame) Checksum() byte { return checksum(self.Header, self.Command, self.Payload) }

func (self Frame) Encode() []byte {
	bs := make([]byte, 0, frameMinLength+len(self.Payload))
	bs = append(bs, FrameAddress, FrameSequence, self.Header, self.Command, byte(len(self.Payload)))
	bs = append(bs, self.Payload...)
	bs = append(bs, self.Checksum())
	return bs
}

func (self Frame) Format() string { return hex.EncodeToString(self.Encode()) }

func Decode(bs []byte) (Frame, error) {
	if len(bs) < frameMinLength {
		return Frame{}, errors.NotValidf("vmc: frame too short len=%d", len(bs))
	}
	declared := int(bs[4])
	if len(bs) != frameMinLength+declared {
		return Frame{}, errors.NotValidf("vmc: frame length declared=%d wire=%d", declared, len(bs)-frameMinLength)
	}
	f := Frame{
		Header:  bs[2],
		Command: bs[3],
		Payload: append([]byte(nil), bs[5:5+declared]...),
	}
	received := bs[len(bs)-1]
	if actual := f.Checksum(); actual != received {
		return Frame{}, InvalidChecksum{Received: received, Actual: actual}
	}
	return f, nil
}

// Multi-byte amounts on the wire are little-endian 32 bit.
func EncodeAmount(a uint32) []byte {
	bs := make([]byte, 4)
	binary.LittleEndian.PutUint32(bs, a)
	return bs
}

func DecodeAmount(bs []byte) (uint32, error) {
	if len(bs) != 4 {
		return 0, errors.NotValidf("vmc: amount payload=%x", bs)
	}
	return binary.LittleEndian.Uint32(bs), nil
}
