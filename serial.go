package plclink

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	// SERIAL_POLL_INTERVAL bounds each blocking read so deadlines are noticed.
	SERIAL_POLL_INTERVAL = 10 * time.Millisecond
)

// serialTransport wraps a serial.Port to
// 1) satisfy the Transport interface and
// 2) add context deadline support to Read().
type serialTransport struct {
	conf SerialConfig
	port serial.Port
}

func openSerial(conf SerialConfig) (*serialTransport, error) {
	mode, err := serialMode(conf)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(conf.Device, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(SERIAL_POLL_INTERVAL); err != nil {
		_ = port.Close()
		return nil, err
	}
	return &serialTransport{conf: conf, port: port}, nil
}

func serialMode(conf SerialConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: conf.BaudRate,
		DataBits: conf.DataBits,
	}
	switch conf.Parity {
	case ParityNone:
		mode.Parity = serial.NoParity
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		return nil, paramErrorf("unsupported parity %d", conf.Parity)
	}
	switch conf.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, paramErrorf("unsupported stop bits %d", conf.StopBits)
	}
	return mode, nil
}

// Write sends the whole payload. Serial writes are not interruptible; ctx is only
// checked before the first byte goes out.
func (t *serialTransport) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for len(payload) > 0 {
		n, err := t.port.Write(payload)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("serial port %s accepted no bytes", t.conf.Device)
		}
		payload = payload[n:]
	}
	return nil
}

// Read polls the port until at least one byte arrives or ctx is done. The port
// returns (0, nil) whenever SERIAL_POLL_INTERVAL passes without data.
func (t *serialTransport) Read(ctx context.Context, buf []byte) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := t.port.Read(buf)
		if err != nil {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
