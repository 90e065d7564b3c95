package plclink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidCategory is wrapped by AddressError when the register header is not in the protocol's table.
	ErrInvalidCategory = errors.New("invalid register category")
	// ErrInvalidNumeric is wrapped by AddressError when the register offset cannot be parsed.
	ErrInvalidNumeric = errors.New("invalid register offset")
	// ErrMisalignedCoil is wrapped by AddressError when a coil is accessed by word off a 16-point boundary.
	ErrMisalignedCoil = errors.New("coil word access must start on a multiple of 16")
)

// ErrorKind groups every error returned by the client into one of a few categories.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidParameter
	KindInvalidAddress
	KindNotConnected
	KindTimeout
	KindCommunication
	KindDevice
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidParameter:
		return "invalid parameter"
	case KindInvalidAddress:
		return "invalid address"
	case KindNotConnected:
		return "not connected"
	case KindTimeout:
		return "timeout"
	case KindCommunication:
		return "communication failure"
	case KindDevice:
		return "device error"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Context deadline errors count as timeouts.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var (
		paramErr  ParamError
		addrErr   AddressError
		timeout   ResponseTimeoutError
		commErr   CommError
		deviceErr DeviceError
	)
	switch {
	case errors.As(err, &paramErr):
		return KindInvalidParameter
	case errors.As(err, &addrErr):
		return KindInvalidAddress
	case errors.Is(err, NotConnectedError{}):
		return KindNotConnected
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.As(err, &deviceErr):
		return KindDevice
	case errors.As(err, &commErr):
		return KindCommunication
	}
	return KindUnknown
}

// ParamError reports a count or value shape the protocol cannot carry.
type ParamError struct {
	Reason string
}

func (e ParamError) Error() string {
	return fmt.Sprintf("invalid parameter: %s", e.Reason)
}

func paramErrorf(format string, args ...interface{}) ParamError {
	return ParamError{Reason: fmt.Sprintf(format, args...)}
}

// AddressError reports a register name that could not be resolved.
type AddressError struct {
	Register string
	Err      error
}

func (e AddressError) Error() string {
	return fmt.Sprintf("invalid register %q: %v", e.Register, e.Err)
}

func (e AddressError) Unwrap() error { return e.Err }

// NotConnectedError is returned when an operation is attempted without a live transport.
type NotConnectedError struct{}

func (NotConnectedError) Error() string {
	return "plc not connected"
}

// ResponseTimeoutError is returned when the client timeout elapses while sending or receiving.
type ResponseTimeoutError struct {
	Timeout time.Duration
}

func (e ResponseTimeoutError) Error() string {
	return fmt.Sprintf("plc response timeout after %v", e.Timeout)
}

// CommError wraps transport failures and malformed replies.
type CommError struct {
	Op  string
	Err error
}

func (e CommError) Error() string {
	return fmt.Sprintf("plc %s: %v", e.Op, e.Err)
}

func (e CommError) Unwrap() error { return e.Err }

func commErrorf(op, format string, args ...interface{}) CommError {
	return CommError{Op: op, Err: fmt.Errorf(format, args...)}
}

// DeviceError is a complete, well-formed reply in which the device rejected the request.
type DeviceError struct {
	Protocol    Protocol
	Code        uint16
	Description string
}

func (e DeviceError) Error() string {
	if e.Protocol == ProtocolMC3E {
		return fmt.Sprintf("%s device error 0x%04X: %s", e.Protocol, e.Code, e.Description)
	}
	return fmt.Sprintf("%s device error %d: %s", e.Protocol, e.Code, e.Description)
}

const unknownDeviceError = "unknown device error"

// mcEndCodes maps MC protocol end codes to their cause.
var mcEndCodes = map[uint16]string{
	0x0055: "write requested while the CPU is in RUN and online change is disabled",
	0xC050: "ASCII data that cannot be converted to binary was received",
	0xC056: "read or write request exceeds the maximum address",
	0xC058: "request data length after ASCII conversion does not match the character count",
	0xC059: "command or subcommand is wrong",
	0xC05B: "the CPU cannot read or write the specified device",
	0xC05C: "request content is wrong",
	0xC05D: "monitor registration was not performed",
	0xC05F: "request cannot be executed on the target CPU",
	0xC060: "request content is wrong (bit device data specification)",
	0xC061: "request data length does not match the number of data items",
	0xC06F: "communication data code (binary/ASCII) does not match the PLC setting",
	0xC070: "device memory extension cannot be specified for the target station",
	0xC0B5: "data the CPU cannot handle was specified",
	0xC200: "remote password is wrong",
	0xC201: "the port is locked by the remote password",
	0xC204: "request does not come from the device that unlocked the remote password",
}

// newtocolErrorCodes maps Newtocol error response codes to their cause.
var newtocolErrorCodes = map[uint16]string{
	20: "not defined",
	21: "NACK error",
	22: "WACK error",
	23: "unit number overlap",
	24: "transmission format error",
	25: "hardware error",
	26: "unit number setting error",
	27: "not supported",
	28: "no response",
	29: "buffer closed",
	30: "time out",
	40: "BCC error",
	41: "format error",
	42: "not supported command",
	43: "multiple frames procedure error",
	50: "link setting error",
	51: "transmission time-out",
	52: "transmission disable",
	53: "busy",
	60: "parameter error",
	61: "data error",
	62: "registration error",
	63: "PLC mode error",
	65: "protect error",
	66: "address error",
	67: "missing data",
}

func lookupDeviceError(p Protocol, table map[uint16]string, code uint16) DeviceError {
	desc, ok := table[code]
	if !ok {
		desc = unknownDeviceError
	}
	return DeviceError{Protocol: p, Code: code, Description: desc}
}
