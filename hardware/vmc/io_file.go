package vmc

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/aquavend/vmc/log2"
)

var baudFlags = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// fileTransport talks 8N1 serial through a tty device file.
type fileTransport struct {
	Log *log2.Log

	f        *os.File
	observer func([]byte)
	buf      []byte
}

func NewFileTransport(log *log2.Log) Transport {
	return &fileTransport{Log: log}
}

func (self *fileTransport) Open(path string, baud int) (err error) {
	if self.f != nil {
		self.f.Close()
	}
	speed, ok := baudFlags[baud]
	if !ok {
		return errors.NotSupportedf("vmc: baud=%d", baud)
	}
	self.f, err = os.OpenFile(path, syscall.O_RDWR|syscall.O_NOCTTY, 0600)
	if err != nil {
		return errors.Trace(err)
	}
	t := unix.Termios{
		Iflag:  unix.IGNBRK,
		Cflag:  unix.CLOCAL | unix.CREAD | unix.CS8 | speed,
		Ispeed: speed,
		Ospeed: speed,
	}
	// 8 data bits, 1 stop bit, no parity, no flow control.
	// VMIN=0 VTIME=1: read returns after at most 100ms of line silence.
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 1
	if err = unix.IoctlSetTermios(int(self.f.Fd()), unix.TCSETSF, &t); err != nil {
		self.f.Close()
		self.f = nil
		return errors.Annotatef(err, "vmc: termios path=%s", path)
	}
	self.buf = make([]byte, 0, frameMinLength+PayloadMaxLength)
	return nil
}

func (self *fileTransport) Close() error {
	if self.f == nil {
		return nil
	}
	err := self.f.Close()
	self.f = nil
	return errors.Trace(err)
}

func (self *fileTransport) Connected() bool { return self.f != nil }

func (self *fileTransport) Send(bs []byte) error {
	if self.f == nil {
		return errors.New("vmc: transport closed")
	}
	self.Log.Debugf("vmc.send  out=%x", bs)
	_, err := self.f.Write(bs)
	return errors.Trace(err)
}

func (self *fileTransport) Receive(timeout time.Duration) ([]byte, error) {
	if self.f == nil {
		return nil, errors.New("vmc: transport closed")
	}
	self.buf = self.buf[:0]
	deadline := time.Now().Add(timeout)
	chunk := make([]byte, 64)
	for {
		n, err := self.f.Read(chunk)
		if err != nil && err != io.EOF {
			return nil, errors.Trace(err)
		}
		if n > 0 {
			if self.observer != nil {
				self.observer(chunk[:n])
			}
			self.buf = append(self.buf, chunk[:n]...)
			if complete, total := frameComplete(self.buf); complete {
				bs := append([]byte(nil), self.buf[:total]...)
				self.Log.Debugf("vmc.recv  in=%x", bs)
				return bs, nil
			}
		}
		if time.Now().After(deadline) {
			if len(self.buf) > 0 {
				self.Log.Debugf("vmc.recv incomplete=%x", self.buf)
			}
			return nil, nil
		}
	}
}

// frameComplete reports whether buf holds at least one whole frame and
// its wire length, using the declared payload length at offset 4.
func frameComplete(buf []byte) (bool, int) {
	if len(buf) < frameMinLength-1 {
		return false, 0
	}
	total := frameMinLength + int(buf[4])
	return len(buf) >= total, total
}

func (self *fileTransport) SetObserver(fn func(bs []byte)) { self.observer = fn }

func (self *fileTransport) ClearBuffers() error {
	if self.f == nil {
		return nil
	}
	err := unix.IoctlSetInt(int(self.f.Fd()), unix.TCFLSH, unix.TCIOFLUSH)
	return errors.Trace(err)
}
