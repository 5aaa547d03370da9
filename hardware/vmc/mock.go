package vmc

// Public API to easy create VMC stubs to test your code.

import (
	"sync"
	"time"

	"github.com/juju/errors"
)

// mockNoReply marks a queue slot where the device stays silent and
// Receive runs into timeout.
var mockNoReply = []byte(nil)

// MockTransport replays a canned response queue and records every sent
// frame. Zero value is unusable, call NewMockTransport.
type MockTransport struct {
	lk        sync.Mutex
	connected bool
	queue     [][]byte
	sent      [][]byte
	sendErr   error
	observer  func([]byte)
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (self *MockTransport) Open(path string, baud int) error {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.connected = true
	return nil
}

func (self *MockTransport) Close() error {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.connected = false
	return nil
}

func (self *MockTransport) Connected() bool {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.connected
}

// SetSendError forces following Send calls to fail.
func (self *MockTransport) SetSendError(err error) {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.sendErr = err
}

func (self *MockTransport) Send(bs []byte) error {
	self.lk.Lock()
	defer self.lk.Unlock()
	if !self.connected {
		return errors.New("mock: transport closed")
	}
	if self.sendErr != nil {
		return self.sendErr
	}
	self.sent = append(self.sent, append([]byte(nil), bs...))
	return nil
}

func (self *MockTransport) Receive(timeout time.Duration) ([]byte, error) {
	self.lk.Lock()
	if len(self.queue) == 0 {
		self.lk.Unlock()
		return nil, nil // silent device
	}
	bs := self.queue[0]
	self.queue = self.queue[1:]
	observer := self.observer
	self.lk.Unlock()
	if bs == nil {
		return nil, nil
	}
	if observer != nil {
		observer(bs)
	}
	return bs, nil
}

func (self *MockTransport) SetObserver(fn func(bs []byte)) {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.observer = fn
}

func (self *MockTransport) ClearBuffers() error {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.queue = nil
	return nil
}

// Expect enqueues raw wire responses in order.
func (self *MockTransport) Expect(responses ...[]byte) {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.queue = append(self.queue, responses...)
}

// ExpectFrame enqueues one encoded device frame.
func (self *MockTransport) ExpectFrame(command byte, payload ...byte) {
	self.Expect(NewFrame(HeaderDevice, command, payload).Encode())
}

// ExpectTimeout enqueues one silent slot.
func (self *MockTransport) ExpectTimeout() {
	self.Expect(mockNoReply)
}

// Sent returns raw wire bytes of every frame sent so far.
func (self *MockTransport) Sent() [][]byte {
	self.lk.Lock()
	defer self.lk.Unlock()
	out := make([][]byte, len(self.sent))
	copy(out, self.sent)
	return out
}

// SentFrames decodes the sent record, panics on malformed outbound data
// to fail tests loudly.
func (self *MockTransport) SentFrames() []Frame {
	raw := self.Sent()
	fs := make([]Frame, 0, len(raw))
	for _, bs := range raw {
		f, err := Decode(bs)
		if err != nil {
			panic(err)
		}
		fs = append(fs, f)
	}
	return fs
}
