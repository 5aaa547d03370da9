package state

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquavend/vmc/log2"
)

const testConfig = `
hardware {
  vmc {
    uart_device = "/dev/ttyUSB0"
    uart_baud = 115200
  }
}
vend {
  command_timeout_ms = 500
  poll_interval_ms = 100
  max_poll_attempts = 10
}
tele {
  enable = true
  vm_id = 42
  mqtt_broker = "tcp://broker.example:1883"
}
`

func writeTempConfig(t testing.TB, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "vmc-config")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "vmc.hcl")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadConfig(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	c, err := ReadConfig(log, writeTempConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", c.Hardware.VMC.UartDevice)
	assert.Equal(t, 115200, c.Baud())
	assert.Equal(t, 500*time.Millisecond, c.Vend.CommandTimeout())
	assert.Equal(t, 100*time.Millisecond, c.Vend.PollInterval())
	assert.Equal(t, 10, c.Vend.PollAttempts())
	assert.True(t, c.Tele.Enabled)
	assert.Equal(t, 42, c.Tele.VmId)
	assert.Equal(t, "tcp://broker.example:1883", c.Tele.MqttBroker)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	c, err := ReadConfig(log, writeTempConfig(t, ``))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaud, c.Baud())
	assert.Equal(t, 1*time.Second, c.Vend.CommandTimeout())
	assert.Equal(t, 200*time.Millisecond, c.Vend.PollInterval())
	assert.Equal(t, 30, c.Vend.PollAttempts())
	assert.False(t, c.Tele.Enabled)
}

func TestReadConfigMissingFile(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	_, err := ReadConfig(log, "/no/such/path.hcl")
	assert.Error(t, err)
}
