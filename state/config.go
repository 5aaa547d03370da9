// Package state holds the machine-wide configuration read from HCL.
package state

import (
	"io/ioutil"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/aquavend/vmc/helpers"
	"github.com/aquavend/vmc/log2"
	tele_config "github.com/aquavend/vmc/tele/config"
	vend_config "github.com/aquavend/vmc/vend/config"
)

const DefaultBaud = 9600

type Config struct {
	Hardware struct {
		VMC struct {
			UartDevice string `hcl:"uart_device"`
			UartBaud   int    `hcl:"uart_baud"`
			LogDebug   bool   `hcl:"log_debug"`
		} `hcl:"vmc"`
	} `hcl:"hardware"`

	Vend vend_config.Config `hcl:"vend"`
	Tele tele_config.Config `hcl:"tele"`
}

func (c *Config) Baud() int {
	if c.Hardware.VMC.UartBaud == 0 {
		return DefaultBaud
	}
	return c.Hardware.VMC.UartBaud
}

func ReadConfig(log *log2.Log, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}
	c := new(Config)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		log.Debugf("config reading path=%s", name)
		bs, err := ioutil.ReadFile(name)
		if err != nil {
			errs = append(errs, errors.Annotatef(err, "config source=%s", name))
			continue
		}
		if err = hcl.Unmarshal(bs, c); err != nil {
			errs = append(errs, errors.Annotatef(err, "config unmarshal source=%s", name))
		}
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, names ...string) *Config {
	c, err := ReadConfig(log, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
