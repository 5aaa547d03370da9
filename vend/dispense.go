package vend

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"
)

// DispenseResult is produced once per DispenseWater invocation and
// returned to the caller, never cached. ErrorMessage is directly
// displayable, recoverable failures do not propagate as errors.
type DispenseResult struct {
	Success      bool
	Slot         uint8
	ErrorCode    byte
	ErrorMessage string
	Elapsed      time.Duration
}

func (self DispenseResult) ElapsedMs() int64 { return int64(self.Elapsed / time.Millisecond) }

func (self DispenseResult) String() string {
	return fmt.Sprintf("dispense slot=%d success=%t code=%02x msg=%q elapsed=%s",
		self.Slot, self.Success, self.ErrorCode, self.ErrorMessage, self.Elapsed)
}

// DispenseWater runs the composite trigger-and-confirm operation:
// deliver(slot, 1), then poll query-status until success, a known fault
// code, or poll attempts run out. The engine never retries the delivery
// step, retry policy belongs to the caller (see RetryPolicy).
//
// Total duration is bounded by commandTimeout*(1+attempts) plus sleep
// time; an overall cap is the caller's responsibility via ctx.
func (self *Engine) DispenseWater(ctx context.Context, slot int) DispenseResult {
	begin := atomic_clock.Now()
	result := DispenseResult{}
	if slot >= 1 && slot <= 255 {
		result.Slot = uint8(slot)
	}
	finish := func(r DispenseResult) DispenseResult {
		r.Elapsed = atomic_clock.Since(begin)
		self.Log.Infof("vend.%s", r.String())
		return r
	}
	fail := func(format string, args ...interface{}) DispenseResult {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf(format, args...)
		return finish(result)
	}

	if !self.alive.Add(1) {
		return fail("engine stopped")
	}
	defer self.alive.Done()

	// Sending. Argument and transport failures terminate immediately,
	// no poll attempts follow a failed delivery step.
	echo, err := self.Deliver(ctx, slot, 1)
	switch {
	case err == nil:
	case errors.IsNotValid(err):
		return fail("invalid slot: %s", err.Error())
	default:
		return fail("delivery failed: %s", err.Error())
	}
	if int(echo.Slot) != slot || echo.Quantity != 1 {
		return fail("delivery echo slot=%d quantity=%d expected slot=%d quantity=1", echo.Slot, echo.Quantity, slot)
	}

	// Polling.
	interval := self.config.PollInterval()
	attempts := self.config.PollAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fail("dispense cancelled: %s", ctx.Err().Error())
		case <-self.alive.StopChan():
			timer.Stop()
			return fail("dispense cancelled: engine stopped")
		}

		status, err := self.QueryStatus(ctx, slot, 1)
		if err != nil {
			return fail("status poll attempt=%d failed: %s", attempt, err.Error())
		}
		if status.Success {
			result.Success = true
			return finish(result)
		}
		if knownFault(status.ErrorCode) {
			result.ErrorCode = status.ErrorCode
			return fail("hardware fault: %s", FaultMessage(status.ErrorCode))
		}
		self.Log.Debugf("vend.dispense slot=%d attempt=%d/%d status=%02x busy",
			slot, attempt, attempts, status.ErrorCode)
	}
	return fail("dispense timeout: no completion after %d status polls", attempts)
}
