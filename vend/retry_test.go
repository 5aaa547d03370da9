package vend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavend/vmc/hardware/vmc"
)

func TestRetryClearFaultThenSuccess(t *testing.T) {
	t.Parallel()

	e, mock := newTestEngine(t, fastConfig())
	// attempt 1: fault
	expectDeliveryEcho(mock, 3)
	mock.ExpectFrame(vmc.CommandQueryStatus, vmc.FaultMotor)
	// remove-fault ack
	mock.ExpectFrame(vmc.CommandRemoveFault, 0x01)
	// attempt 2: success
	expectDeliveryEcho(mock, 3)
	mock.ExpectFrame(vmc.CommandQueryStatus, vmc.StatusSuccess)

	p := &RetryPolicy{Engine: e, Attempts: 2, ClearFaults: true}
	r := p.DispenseWater(context.Background(), 3)
	assert.True(t, r.Success)

	sent := mock.SentFrames()
	require.Len(t, sent, 5)
	assert.Equal(t, vmc.CommandRemoveFault, sent[2].Command)
}

func TestRetryGivesUp(t *testing.T) {
	t.Parallel()

	e, mock := newTestEngine(t, fastConfig())
	for i := 0; i < 2; i++ {
		expectDeliveryEcho(mock, 3)
		mock.ExpectFrame(vmc.CommandQueryStatus, vmc.FaultMotor)
		mock.ExpectFrame(vmc.CommandRemoveFault, 0x01)
	}

	p := &RetryPolicy{Engine: e, Attempts: 2, ClearFaults: true}
	r := p.DispenseWater(context.Background(), 3)
	assert.False(t, r.Success)
	assert.Equal(t, vmc.FaultMotor, r.ErrorCode)
	assert.Contains(t, r.ErrorMessage, "motor")
}

func TestRetryNoClearOnCommFailure(t *testing.T) {
	t.Parallel()

	e, mock := newTestEngine(t, fastConfig())
	// both attempts: silent device on delivery

	p := &RetryPolicy{Engine: e, Attempts: 2, ClearFaults: true}
	r := p.DispenseWater(context.Background(), 3)
	assert.False(t, r.Success)

	for _, f := range mock.SentFrames() {
		assert.NotEqual(t, vmc.CommandRemoveFault, f.Command, "comm failure must not trigger remove-fault")
	}
}
