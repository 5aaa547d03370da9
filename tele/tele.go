// Package tele reports machine events (dispense outcomes, device
// faults) to an MQTT broker. Optional: a nil *Tele is a no-op so the
// engine works unplugged from telemetry.
package tele

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/aquavend/vmc/helpers"
	"github.com/aquavend/vmc/log2"
	tele_config "github.com/aquavend/vmc/tele/config"
	"github.com/aquavend/vmc/vend"
)

const defaultNetworkTimeout = 30 * time.Second

type Tele struct {
	log  *log2.Log
	conf tele_config.Config
	m    mqtt.Client

	topicDispense string
	topicFault    string
}

// New returns nil when telemetry is disabled by config.
func New(log *log2.Log, conf tele_config.Config) *Tele {
	if !conf.Enabled {
		return nil
	}
	return &Tele{log: log, conf: conf}
}

func (self *Tele) Init() error {
	if self == nil {
		return nil
	}
	clientId := fmt.Sprintf("vm%d", self.conf.VmId)
	self.topicDispense = clientId + "/w/dispense"
	self.topicFault = clientId + "/w/fault"

	mqttLog := self.log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if self.conf.LogDebug {
		mqtt.DEBUG = mqttLog
	}

	networkTimeout := helpers.IntSecondDefault(self.conf.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	keepalive := helpers.IntSecondDefault(self.conf.KeepaliveSec, networkTimeout/2)

	tlsconf := new(tls.Config)
	if self.conf.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(self.conf.TlsCaFile)
		if err != nil {
			return errors.Annotatef(err, "tele: tls_ca_file=%s", self.conf.TlsCaFile)
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}
	opt := mqtt.NewClientOptions().
		AddBroker(self.conf.MqttBroker).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetClientID(clientId).
		SetConnectTimeout(networkTimeout * 3).
		SetCredentialsProvider(func() (string, string) { return clientId, self.conf.MqttPassword }).
		SetKeepAlive(keepalive).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout)
	self.m = mqtt.NewClient(opt)
	return self.tokenWait(self.m.Connect(), "connect")
}

func (self *Tele) Close() {
	if self == nil || self.m == nil {
		return
	}
	self.m.Disconnect(uint(time.Second / time.Millisecond))
}

type DispenseEvent struct {
	VmId      int    `json:"vm_id"`
	Slot      uint8  `json:"slot"`
	Success   bool   `json:"success"`
	ErrorCode byte   `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	At        int64  `json:"at"`
}

func (self *Tele) ReportDispense(r vend.DispenseResult) {
	if self == nil {
		return
	}
	event := DispenseEvent{
		VmId:      self.conf.VmId,
		Slot:      r.Slot,
		Success:   r.Success,
		ErrorCode: r.ErrorCode,
		Message:   r.ErrorMessage,
		ElapsedMs: r.ElapsedMs(),
		At:        time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		self.log.Errorf("tele: dispense marshal err=%v", err)
		return
	}
	_ = self.tokenWait(self.m.Publish(self.topicDispense, 1, false, payload), "publish dispense")
}

type FaultEvent struct {
	VmId    int    `json:"vm_id"`
	Code    byte   `json:"code"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

func (self *Tele) ReportFault(code byte, message string) {
	if self == nil {
		return
	}
	event := FaultEvent{
		VmId:    self.conf.VmId,
		Code:    code,
		Message: message,
		At:      time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		self.log.Errorf("tele: fault marshal err=%v", err)
		return
	}
	_ = self.tokenWait(self.m.Publish(self.topicFault, 1, false, payload), "publish fault")
}

func (self *Tele) tokenWait(t mqtt.Token, tag string) error {
	if !t.Wait() {
		err := errors.Errorf("%s timeout", tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
