package tele

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavend/vmc/log2"
	tele_config "github.com/aquavend/vmc/tele/config"
	"github.com/aquavend/vmc/vend"
)

func TestDisabledIsNoop(t *testing.T) {
	t.Parallel()

	reporter := New(log2.NewTest(t, log2.LDebug), tele_config.Config{Enabled: false})
	assert.Nil(t, reporter)

	// nil reporter must be safe to use everywhere
	require.NoError(t, reporter.Init())
	reporter.ReportDispense(vend.DispenseResult{Success: true, Slot: 3})
	reporter.ReportFault(0x02, "motor failure")
	reporter.Close()
}

func TestDispenseEventShape(t *testing.T) {
	t.Parallel()

	event := DispenseEvent{
		VmId:      42,
		Slot:      3,
		Success:   false,
		ErrorCode: 0x02,
		Message:   "hardware fault: motor failure",
		ElapsedMs: int64(1250 * time.Millisecond / time.Millisecond),
		At:        1700000000,
	}
	bs, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"vm_id": 42,
		"slot": 3,
		"success": false,
		"error_code": 2,
		"message": "hardware fault: motor failure",
		"elapsed_ms": 1250,
		"at": 1700000000
	}`, string(bs))

	// zero error code is omitted on success
	bs, err = json.Marshal(DispenseEvent{VmId: 1, Slot: 2, Success: true, ElapsedMs: 10, At: 5})
	require.NoError(t, err)
	assert.NotContains(t, string(bs), "error_code")
	assert.NotContains(t, string(bs), "message")
}

func TestFaultEventShape(t *testing.T) {
	t.Parallel()

	bs, err := json.Marshal(FaultEvent{
		VmId:    42,
		Code:    0x02,
		Message: "motor failure",
		At:      1700000000,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"vm_id": 42,
		"code": 2,
		"message": "motor failure",
		"at": 1700000000
	}`, string(bs))
}
