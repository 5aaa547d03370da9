package vend

import (
	"context"
)

// RetryPolicy composes "clear faults then dispense again" above the
// engine. The engine itself never retries, keeping the dispense state
// machine exhaustively testable.
type RetryPolicy struct {
	Engine *Engine

	// Attempts counts total DispenseWater calls, minimum 1.
	Attempts int

	// ClearFaults issues remove-fault between attempts after a device
	// reported fault code.
	ClearFaults bool
}

func (self *RetryPolicy) DispenseWater(ctx context.Context, slot int) DispenseResult {
	attempts := self.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var result DispenseResult
	for attempt := 1; attempt <= attempts; attempt++ {
		result = self.Engine.DispenseWater(ctx, slot)
		if result.Success {
			return result
		}
		if ctx.Err() != nil {
			return result
		}
		if attempt == attempts {
			break
		}
		if self.ClearFaults && result.ErrorCode != 0 {
			if ok, err := self.Engine.ClearFaults(ctx); err != nil || !ok {
				self.Engine.Log.Errorf("vend.retry clear-faults ok=%t err=%v", ok, err)
				return result
			}
		}
		self.Engine.Log.Infof("vend.retry slot=%d attempt=%d/%d msg=%q", slot, attempt, attempts, result.ErrorMessage)
	}
	return result
}
