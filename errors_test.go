package plclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"param", paramErrorf("count %d", 0), KindInvalidParameter},
		{"address", AddressError{Register: "Q1", Err: ErrInvalidCategory}, KindInvalidAddress},
		{"not connected", NotConnectedError{}, KindNotConnected},
		{"timeout", ResponseTimeoutError{Timeout: time.Second}, KindTimeout},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"socket deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), KindTimeout},
		{"comm", CommError{Op: "read reply", Err: io.ErrUnexpectedEOF}, KindCommunication},
		{"device", DeviceError{Protocol: ProtocolNewtocol, Code: 41}, KindDevice},
		{"wrapped device", fmt.Errorf("retry: %w", DeviceError{Protocol: ProtocolMC3E, Code: 0xC059}), KindDevice},
		{"wrapped not connected", fmt.Errorf("poll: %w", NotConnectedError{}), KindNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid parameter: read length must not be 0", paramErrorf("read length must not be 0").Error())
	assert.Equal(t, `invalid register "D1A": invalid register offset`, AddressError{Register: "D1A", Err: ErrInvalidNumeric}.Error())
	assert.Equal(t, "plc not connected", NotConnectedError{}.Error())
	assert.Equal(t, "plc response timeout after 300ms", ResponseTimeoutError{Timeout: 300 * time.Millisecond}.Error())
	assert.Equal(t, "plc read reply: EOF", CommError{Op: "read reply", Err: io.EOF}.Error())

	mc := lookupDeviceError(ProtocolMC3E, mcEndCodes, 0xC059)
	assert.Equal(t, "MC3E device error 0xC059: command or subcommand is wrong", mc.Error())

	nt := lookupDeviceError(ProtocolNewtocol, newtocolErrorCodes, 40)
	assert.Equal(t, "Newtocol device error 40: BCC error", nt.Error())

	unknown := lookupDeviceError(ProtocolNewtocol, newtocolErrorCodes, 99)
	assert.Equal(t, unknownDeviceError, unknown.Description)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "device error", KindDevice.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
