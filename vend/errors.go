package vend

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/aquavend/vmc/hardware/vmc"
)

// Failure taxonomy, distinguishable by callers:
//   argument errors    errors.IsNotValid (raised by vmc builders, pre-I/O)
//   connection errors  IsConnectionError
//   protocol errors    IsProtocolError
//   timeout errors     errors.IsTimeout
//   hardware faults    IsHardwareFault

var ErrNotConnected = errors.New("vend: transport not connected")

func IsConnectionError(err error) bool { return errors.Cause(err) == ErrNotConnected }

// ProtocolError covers malformed frames, checksum and header mismatches,
// send failures and unknown command responses. Distinct from device
// reported hardware faults.
type ProtocolError struct {
	Reason string
	Err    error
}

func (self *ProtocolError) Error() string {
	if self.Err == nil {
		return "vend: protocol: " + self.Reason
	}
	return fmt.Sprintf("vend: protocol: %s: %s", self.Reason, self.Err.Error())
}

func protocolErrorf(wrap error, format string, args ...interface{}) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...), Err: wrap}
}

func IsProtocolError(err error) bool {
	_, ok := errors.Cause(err).(*ProtocolError)
	return ok
}

// HardwareFault is a device-reported known fault code, distinct from a
// communication failure.
type HardwareFault struct {
	Code byte
}

func (self *HardwareFault) Error() string {
	return "vend: hardware fault: " + FaultMessage(self.Code)
}

func IsHardwareFault(err error) bool {
	_, ok := errors.Cause(err).(*HardwareFault)
	return ok
}

func FaultMessage(code byte) string {
	switch code {
	case vmc.FaultMotor:
		return "motor failure"
	case vmc.FaultOptical:
		return "optical eye failure"
	}
	return fmt.Sprintf("unknown fault code=%02x", code)
}

// knownFault reports device fault codes the dispense state machine
// terminates on; other codes mean work in progress.
func knownFault(code byte) bool {
	return code == vmc.FaultMotor || code == vmc.FaultOptical
}
