// Package vend drives the vending machine control board over a serial
// Transport: single command exchanges and the composite dispense
// operation on top of them.
package vend

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/aquavend/vmc/currency"
	"github.com/aquavend/vmc/hardware/vmc"
	"github.com/aquavend/vmc/log2"
	vend_config "github.com/aquavend/vmc/vend/config"
)

type Engine struct {
	Log *log2.Log

	alive     *alive.Alive
	config    vend_config.Config
	transport vmc.Transport
	lk        sync.Mutex // single shared half-duplex line
}

func NewEngine(log *log2.Log, transport vmc.Transport, config vend_config.Config) *Engine {
	return &Engine{
		Log:       log,
		alive:     alive.NewAlive(),
		config:    config,
		transport: transport,
	}
}

func (self *Engine) Transport() vmc.Transport { return self.transport }
func (self *Engine) Alive() *alive.Alive      { return self.alive }

// Stop cancels in-progress polling and prevents new dispense operations.
func (self *Engine) Stop() { self.alive.Stop() }

// ExecuteCommand runs one request/response exchange. Exchanges are
// serialized per transport so no two commands interleave bytes on the
// line, concurrent callers queue behind the lock.
func (self *Engine) ExecuteCommand(ctx context.Context, request vmc.Frame, mode vmc.DecodeMode) (vmc.Response, error) {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.lockedExecute(ctx, request, mode)
}

func (self *Engine) lockedExecute(ctx context.Context, request vmc.Frame, mode vmc.DecodeMode) (vmc.Response, error) {
	if !self.transport.Connected() {
		return nil, errors.Trace(ErrNotConnected)
	}
	timeout := self.config.CommandTimeout()
	wire := request.Encode()
	self.Log.Debugf("vend.tx > (%02d) %s", len(wire), request.Format())
	if err := self.transport.Send(wire); err != nil {
		return nil, protocolErrorf(err, "send failed command=%02x", request.Command)
	}
	bs, err := self.transport.Receive(timeout)
	if err != nil {
		return nil, protocolErrorf(err, "receive command=%02x", request.Command)
	}
	self.Log.Debugf("vend.rx < (%02d) %x", len(bs), bs)
	// A caller cancelled mid-exchange still waited for the response
	// above; discard it so the next exchange starts on a clean line.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Trace(ctxErr)
	}
	if bs == nil {
		return nil, errors.Timeoutf("vend: command=%02x no response within %s", request.Command, timeout)
	}
	frame, err := vmc.Decode(bs)
	if err != nil {
		return nil, protocolErrorf(err, "frame decode")
	}
	if frame.Header != vmc.HeaderDevice {
		return nil, protocolErrorf(nil, "header=%02x expected device-originated=%02x", frame.Header, vmc.HeaderDevice)
	}
	response, err := vmc.DecodeResponse(frame, mode)
	if err != nil {
		return nil, protocolErrorf(err, "response decode command=%02x", frame.Command)
	}
	return response, nil
}

func (self *Engine) GetDeviceID(ctx context.Context) (string, error) {
	r, err := self.ExecuteCommand(ctx, vmc.NewGetDeviceID(), vmc.ModeStatus)
	if err != nil {
		return "", errors.Trace(err)
	}
	id, ok := r.(vmc.DeviceID)
	if !ok {
		return "", protocolErrorf(nil, "get-device-id unexpected response %#v", r)
	}
	return id.ID, nil
}

// Probe checks the board answers at all, logs its identity.
func (self *Engine) Probe(ctx context.Context) error {
	id, err := self.GetDeviceID(ctx)
	if err != nil {
		return errors.Annotate(err, "vend.probe")
	}
	self.Log.Infof("vend.probe device-id=%s", id)
	return nil
}

// Deliver triggers the delivery motor for one slot. This is the raw
// primitive, completion must be confirmed by QueryStatus polling, see
// DispenseWater.
func (self *Engine) Deliver(ctx context.Context, slot, quantity int) (vmc.Delivery, error) {
	request, err := vmc.NewDeliver(slot, quantity)
	if err != nil {
		return vmc.Delivery{}, errors.Trace(err)
	}
	r, err := self.ExecuteCommand(ctx, request, vmc.ModeStatus)
	if err != nil {
		return vmc.Delivery{}, errors.Trace(err)
	}
	d, ok := r.(vmc.Delivery)
	if !ok {
		return vmc.Delivery{}, protocolErrorf(nil, "deliver unexpected response %#v", r)
	}
	return d, nil
}

func (self *Engine) QueryStatus(ctx context.Context, slot, quantity int) (vmc.Status, error) {
	request, err := vmc.NewQueryStatus(slot, quantity)
	if err != nil {
		return vmc.Status{}, errors.Trace(err)
	}
	r, err := self.ExecuteCommand(ctx, request, vmc.ModeStatus)
	if err != nil {
		return vmc.Status{}, errors.Trace(err)
	}
	st, ok := r.(vmc.Status)
	if !ok {
		return vmc.Status{}, protocolErrorf(nil, "query-status unexpected response %#v", r)
	}
	return st, nil
}

func (self *Engine) ClearFaults(ctx context.Context) (bool, error) {
	return self.simple(ctx, "remove-fault", vmc.NewRemoveFault())
}

func (self *Engine) QueryBalance(ctx context.Context) (currency.Amount, error) {
	r, err := self.ExecuteCommand(ctx, vmc.NewQueryBalance(), vmc.ModeBalance)
	if err != nil {
		return 0, errors.Trace(err)
	}
	b, ok := r.(vmc.Balance)
	if !ok {
		return 0, protocolErrorf(nil, "query-balance unexpected response %#v", r)
	}
	return currency.Amount(b.Amount), nil
}

func (self *Engine) Payment(ctx context.Context, amount currency.Amount, method vmc.PaymentMethod, slot int) (bool, error) {
	request, err := vmc.NewPayment(int64(amount), method, slot)
	if err != nil {
		return false, errors.Trace(err)
	}
	r, err := self.ExecuteCommand(ctx, request, vmc.ModeStatus)
	if err != nil {
		return false, errors.Trace(err)
	}
	p, ok := r.(vmc.Payment)
	if !ok {
		return false, protocolErrorf(nil, "payment unexpected response %#v", r)
	}
	return p.Success, nil
}

func (self *Engine) CoinChange(ctx context.Context) (bool, error) {
	return self.simple(ctx, "coin-change", vmc.NewCoinChange())
}

func (self *Engine) CashlessCancel(ctx context.Context) (bool, error) {
	return self.simple(ctx, "cashless-cancel", vmc.NewCashlessCancel())
}

func (self *Engine) Debit(ctx context.Context, amount currency.Amount) (bool, error) {
	request, err := vmc.NewDebit(int64(amount))
	if err != nil {
		return false, errors.Trace(err)
	}
	return self.simple(ctx, "debit", request)
}

func (self *Engine) AgeRecognition(ctx context.Context, requiredAge int) (bool, error) {
	request, err := vmc.NewAgeRecognition(requiredAge)
	if err != nil {
		return false, errors.Trace(err)
	}
	return self.simple(ctx, "age-recognition", request)
}

func (self *Engine) QueryCoinChangeStatus(ctx context.Context) (bool, error) {
	r, err := self.ExecuteCommand(ctx, vmc.NewQueryCoinChangeStatus(), vmc.ModeStatus)
	if err != nil {
		return false, errors.Trace(err)
	}
	s, ok := r.(vmc.CoinChangeStatus)
	if !ok {
		return false, protocolErrorf(nil, "coin-change-status unexpected response %#v", r)
	}
	return s.CanRefund, nil
}

func (self *Engine) QueryAgeVerification(ctx context.Context) (bool, error) {
	r, err := self.ExecuteCommand(ctx, vmc.NewQueryAgeVerification(), vmc.ModeStatus)
	if err != nil {
		return false, errors.Trace(err)
	}
	a, ok := r.(vmc.AgeVerification)
	if !ok {
		return false, protocolErrorf(nil, "age-verification unexpected response %#v", r)
	}
	return a.Verified, nil
}

func (self *Engine) simple(ctx context.Context, tag string, request vmc.Frame) (bool, error) {
	r, err := self.ExecuteCommand(ctx, request, vmc.ModeStatus)
	if err != nil {
		return false, errors.Annotate(err, "vend."+tag)
	}
	s, ok := r.(vmc.Simple)
	if !ok {
		return false, protocolErrorf(nil, "%s unexpected response %#v", tag, r)
	}
	return s.Success, nil
}
