package vmc

import (
	"github.com/juju/errors"
)

// DecodeMode selects interpretation of the shared 0xe1 wire code.
// query-status and query-balance responses are indistinguishable by
// command byte so the caller must declare intent.
type DecodeMode uint8

const (
	ModeStatus DecodeMode = iota
	ModeBalance
)

const deviceIDLength = 15

// Response is a closed union, one concrete type per response kind.
type Response interface{ vmcResponse() }

type DeviceID struct{ ID string }

type Delivery struct {
	Slot     uint8
	Quantity uint8
}

type Status struct {
	Success   bool
	ErrorCode byte
	Amount    uint32
	HasAmount bool
}

type Balance struct{ Amount uint32 }

type Payment struct{ Success bool }

// Simple covers single success-sentinel responses: remove-fault,
// coin-change, cashless-cancel, debit-instruction, age-recognition.
type Simple struct{ Success bool }

type CoinChangeStatus struct{ CanRefund bool }

type AgeVerification struct{ Verified bool }

func (DeviceID) vmcResponse()         {}
func (Delivery) vmcResponse()         {}
func (Status) vmcResponse()           {}
func (Balance) vmcResponse()          {}
func (Payment) vmcResponse()          {}
func (Simple) vmcResponse()           {}
func (CoinChangeStatus) vmcResponse() {}
func (AgeVerification) vmcResponse()  {}

// DecodeResponse types an inbound frame. The frame header is checked by
// the engine before this point.
func DecodeResponse(f Frame, mode DecodeMode) (Response, error) {
	switch f.Command {
	case CommandGetDeviceID:
		if len(f.Payload) != deviceIDLength {
			return nil, errors.NotValidf("device-id payload=%x", f.Payload)
		}
		return DeviceID{ID: string(f.Payload)}, nil

	case CommandDeliver:
		if len(f.Payload) != 2 {
			return nil, errors.NotValidf("deliver payload=%x", f.Payload)
		}
		return Delivery{Slot: f.Payload[0], Quantity: f.Payload[1]}, nil

	case CommandQueryStatus: // == CommandQueryBalance
		return decodeStatusOrBalance(f.Payload, mode)

	case CommandPayment:
		b, err := sentinelByte("payment", f.Payload)
		if err != nil {
			return nil, err
		}
		return Payment{Success: b == StatusSuccess}, nil

	case CommandRemoveFault, CommandCoinChange, CommandCashlessCancel, CommandDebit, CommandAgeRecognition:
		b, err := sentinelByte("simple", f.Payload)
		if err != nil {
			return nil, err
		}
		return Simple{Success: b == StatusSuccess}, nil

	case CommandQueryCoinChangeStatus:
		b, err := sentinelByte("coin-change-status", f.Payload)
		if err != nil {
			return nil, err
		}
		return CoinChangeStatus{CanRefund: b == 0x00}, nil

	case CommandQueryAgeVerification:
		b, err := sentinelByte("age-verification", f.Payload)
		if err != nil {
			return nil, err
		}
		return AgeVerification{Verified: b == 0x01}, nil
	}
	return nil, errors.NotSupportedf("unknown command response %02x", f.Command)
}

func decodeStatusOrBalance(payload []byte, mode DecodeMode) (Response, error) {
	if mode == ModeBalance {
		amount, err := DecodeAmount(payload)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return Balance{Amount: amount}, nil
	}
	// Status mode. Some firmware answers the status query with a 4 byte
	// balance amount, keep that as success with amount attached.
	if len(payload) == 4 {
		amount, err := DecodeAmount(payload)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return Status{Success: true, Amount: amount, HasAmount: true}, nil
	}
	b, err := sentinelByte("status", payload)
	if err != nil {
		return nil, err
	}
	if b == StatusSuccess {
		return Status{Success: true}, nil
	}
	return Status{Success: false, ErrorCode: b}, nil
}

func sentinelByte(tag string, payload []byte) (byte, error) {
	if len(payload) < 1 {
		return 0, errors.NotValidf("%s empty payload", tag)
	}
	return payload[0], nil
}
