package transport

import (
	"fmt"
	"time"

	"github.com/daedaluz/radfu/internal/serial"
)

var baudFlags = map[int]serial.CFlag{
	9600:    serial.B9600,
	19200:   serial.B19200,
	38400:   serial.B38400,
	57600:   serial.B57600,
	115200:  serial.B115200,
	230400:  serial.B230400,
	460800:  serial.B460800,
	500000:  serial.B500000,
	576000:  serial.B576000,
	921600:  serial.B921600,
	1000000: serial.B1000000,
	1152000: serial.B1152000,
	1500000: serial.B1500000,
	2000000: serial.B2000000,
	2500000: serial.B2500000,
	3000000: serial.B3000000,
	3500000: serial.B3500000,
	4000000: serial.B4000000,
}

// Serial is the Transport implementation for a real USB-CDC/UART
// device node, built on internal/serial's termios/ioctl backend.
type Serial struct {
	port *serial.Port
}

// OpenSerial opens name at the initial line rate (9600 8N1, no flow
// control), puts it in raw mode, and flushes both directions.
func OpenSerial(name string) (*Serial, error) {
	port, err := serial.Open(name, serial.NewOptions().SetReadTimeout(InitialTimeout))
	if err != nil {
		return nil, &TransportError{Op: "open", Err: err}
	}
	s := &Serial{port: port}
	if err := s.configure(InitialBaud); err != nil {
		port.Close()
		return nil, err
	}
	if err := s.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

func (s *Serial) configure(rate int) error {
	flag, ok := baudFlags[rate]
	if !ok {
		return &TransportError{Op: "set-baud", Err: fmt.Errorf("unsupported rate %d", rate)}
	}
	attrs, err := s.port.GetAttr()
	if err != nil {
		return &TransportError{Op: "get-attr", Err: err}
	}
	attrs.MakeRaw()
	attrs.SetSpeed(flag)
	attrs.Cflag |= serial.CREAD | serial.CLOCAL
	if err := s.port.SetAttr(serial.TCSANOW, attrs); err != nil {
		return &TransportError{Op: "set-attr", Err: err}
	}
	return nil
}

func (s *Serial) Send(data []byte) error {
	n, err := s.port.Write(data)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	if n != len(data) {
		return &TransportError{Op: "send", Err: fmt.Errorf("short write: %d/%d bytes", n, len(data))}
	}
	return nil
}

func (s *Serial) Recv(buf []byte, timeout time.Duration) (int, error) {
	n, err := s.port.ReadTimeout(buf, timeout)
	if err != nil {
		return 0, &TransportError{Op: "recv", Err: err}
	}
	return n, nil
}

func (s *Serial) Flush() error {
	if err := s.port.Flush(serial.TCIOFLUSH); err != nil {
		return &TransportError{Op: "flush", Err: err}
	}
	return nil
}

// SetBaud reprograms the local line rate to match a device that has
// already acknowledged protocol.CmdBaud for the same rate.
func (s *Serial) SetBaud(rate int) error {
	return s.configure(rate)
}

func (s *Serial) Close() error {
	if err := s.port.Close(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}
