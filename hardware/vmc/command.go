package vmc

import (
	"math"

	"github.com/juju/errors"
)

const (
	CommandGetDeviceID    byte = 0x31
	CommandDeliver        byte = 0x41
	CommandRemoveFault    byte = 0xa2
	CommandPayment        byte = 0x11
	CommandAgeRecognition byte = 0x12
	CommandCoinChange     byte = 0xb1
	CommandCashlessCancel byte = 0xb2
	CommandDebit          byte = 0xb3

	// One wire code serves both status and balance queries, inherited
	// hardware quirk. Caller intent selects the decoder, see DecodeMode.
	CommandQueryStatus  byte = 0xe1
	CommandQueryBalance byte = 0xe1

	CommandQueryCoinChangeStatus byte = 0x07
	CommandQueryAgeVerification  byte = 0x06
)

const (
	StatusSuccess byte = 0x01
	FaultMotor    byte = 0x02
	FaultOptical  byte = 0x03
)

type PaymentMethod byte

const (
	PaymentCancel   PaymentMethod = 0x00
	PaymentCoin     PaymentMethod = 0x01
	PaymentCashless PaymentMethod = 0x02
	PaymentBill     PaymentMethod = 0x03
)

const (
	broadcastByte  byte = 0xff
	deviceIDMarker byte = 0x01
	queryMarker    byte = 0x01
)

func hostFrame(command byte, payload []byte) Frame {
	return NewFrame(HeaderHost, command, payload)
}

func NewGetDeviceID() Frame {
	return hostFrame(CommandGetDeviceID, []byte{deviceIDMarker})
}

func NewDeliver(slot, quantity int) (Frame, error) {
	if slot < 1 || slot > 255 {
		return Frame{}, errors.NotValidf("deliver slot=%d", slot)
	}
	if quantity < 1 || quantity > 255 {
		return Frame{}, errors.NotValidf("deliver quantity=%d", quantity)
	}
	return hostFrame(CommandDeliver, []byte{byte(slot), byte(quantity)}), nil
}

func NewRemoveFault() Frame {
	return hostFrame(CommandRemoveFault, []byte{broadcastByte})
}

func NewQueryStatus(slot, quantity int) (Frame, error) {
	if slot < 1 || slot > 255 {
		return Frame{}, errors.NotValidf("query-status slot=%d", slot)
	}
	if quantity < 1 || quantity > 255 {
		return Frame{}, errors.NotValidf("query-status quantity=%d", quantity)
	}
	return hostFrame(CommandQueryStatus, []byte{byte(slot), byte(quantity)}), nil
}

func NewQueryBalance() Frame {
	return hostFrame(CommandQueryBalance, []byte{0, 0, 0, 0})
}

func NewPayment(amount int64, method PaymentMethod, slot int) (Frame, error) {
	if amount < 0 || amount > math.MaxUint32 {
		return Frame{}, errors.NotValidf("payment amount=%d", amount)
	}
	if slot < 0 || slot > 255 {
		return Frame{}, errors.NotValidf("payment slot=%d", slot)
	}
	payload := make([]byte, 0, 6)
	payload = append(payload, EncodeAmount(uint32(amount))...)
	payload = append(payload, byte(method), byte(slot))
	return hostFrame(CommandPayment, payload), nil
}

func NewCoinChange() Frame {
	return hostFrame(CommandCoinChange, []byte{broadcastByte})
}

func NewCashlessCancel() Frame {
	return hostFrame(CommandCashlessCancel, []byte{broadcastByte})
}

func NewDebit(amount int64) (Frame, error) {
	if amount < 0 || amount > math.MaxUint32 {
		return Frame{}, errors.NotValidf("debit amount=%d", amount)
	}
	return hostFrame(CommandDebit, EncodeAmount(uint32(amount))), nil
}

func NewAgeRecognition(requiredAge int) (Frame, error) {
	if requiredAge <= 0 || requiredAge >= 100 {
		return Frame{}, errors.NotValidf("age-recognition age=%d", requiredAge)
	}
	return hostFrame(CommandAgeRecognition, []byte{byte(requiredAge)}), nil
}

func NewQueryCoinChangeStatus() Frame {
	return hostFrame(CommandQueryCoinChangeStatus, []byte{queryMarker})
}

func NewQueryAgeVerification() Frame {
	return hostFrame(CommandQueryAgeVerification, []byte{queryMarker})
}
