package plclink

import (
	"bytes"
	"fmt"
	"strconv"
)

// IPCSUN EIO1608I: 16 inputs/outputs reported by IOGETALL, 8 relay outputs driven by
// OPEN/CLOSE point lists. Every command and reply line ends with CR LF.
const (
	EIO_POINTS        = 16
	EIO_OUTPUTS       = 8
	EIO_MAX_REPLY     = 1024
	eioReadCommand    = "IOGETALL\r\n"
	eioOpenCommand    = "OPEN"
	eioCloseCommand   = "CLOSE"
	eioStateClosed    = '0' // reported for a point switched on
	eioStateOpen      = '1'
	eioReadReplySize  = EIO_POINTS + 2
	eioLineTerminator = "\r\n"
)

var eioWriteAck = []byte("OK\r\n")

// EioRegister is a 1-based point number on the IO module.
type EioRegister struct {
	registerBase
}

// ParseEioRegister resolves a point number between 1 and 16.
func ParseEioRegister(name string, dataType DataType) (EioRegister, error) {
	point, err := strconv.ParseUint(name, 10, 8)
	if err != nil || point < 1 || point > EIO_POINTS {
		return EioRegister{}, AddressError{Register: name, Err: ErrInvalidNumeric}
	}
	return EioRegister{registerBase{name: name, offset: uint32(point), dataType: dataType}}, nil
}

func eioWriteFrame(reg EioRegister, values []uint16) ([]byte, error) {
	var buf bytes.Buffer
	switch values[0] {
	case 0:
		buf.WriteString(eioCloseCommand)
	case 1:
		buf.WriteString(eioOpenCommand)
	default:
		return nil, paramErrorf("IO module values must all be 0 or all be 1, got %d", values[0])
	}
	for i, v := range values {
		if v != values[0] {
			return nil, paramErrorf("IO module values must all be 0 or all be 1, got %v", values)
		}
		fmt.Fprintf(&buf, "%d,", reg.Offset()+uint32(i))
	}
	buf.WriteString(eioLineTerminator)
	return buf.Bytes(), nil
}

// classifyEioRead waits for the 16 state digits followed by CR LF.
func classifyEioRead(buf []byte) Outcome {
	if len(buf) < eioReadReplySize {
		return incomplete
	}
	p := bytes.Index(buf[EIO_POINTS:], []byte(eioLineTerminator))
	if p < 0 {
		return incomplete
	}
	p += EIO_POINTS
	return valid(buf[p-EIO_POINTS : p])
}

// classifyEioWrite waits for the OK acknowledgement.
func classifyEioWrite(buf []byte) Outcome {
	if len(buf) < len(eioWriteAck) {
		return incomplete
	}
	p := bytes.Index(buf, eioWriteAck)
	if p < 0 {
		return incomplete
	}
	return valid(buf[p : p+len(eioWriteAck)])
}

// decodeEioStates maps device digits to logical states: '0' is on, '1' is off.
func decodeEioStates(frame []byte, reg EioRegister, count int) ([]uint16, error) {
	first := int(reg.Offset()) - 1
	if len(frame) < first+count {
		return nil, commErrorf("decode reply", "IO module reported %d points, need %d", len(frame), first+count)
	}
	values := make([]uint16, count)
	for i, state := range frame[first : first+count] {
		switch state {
		case eioStateClosed:
			values[i] = 1
		case eioStateOpen:
			values[i] = 0
		default:
			return nil, commErrorf("decode reply", "IO module point %d has invalid state %q", first+i+1, state)
		}
	}
	return values, nil
}

func eioReadRequest(name string, dataType DataType, count uint16) (request, error) {
	n := int(count)
	if n == 0 || n > EIO_POINTS {
		return request{}, paramErrorf("IO module read length %d out of range [1~%d]", n, EIO_POINTS)
	}
	if dataType != Bit {
		return request{}, paramErrorf("IO module supports bit access only")
	}
	reg, err := ParseEioRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	if int(reg.Offset())+n-1 > EIO_POINTS {
		return request{}, paramErrorf("IO module read of %d points from %d passes point %d", n, reg.Offset(), EIO_POINTS)
	}
	return request{
		frame:    []byte(eioReadCommand),
		classify: classifyEioRead,
		decode: func(frame []byte) ([]uint16, error) {
			return decodeEioStates(frame, reg, n)
		},
		maxReply: EIO_MAX_REPLY,
	}, nil
}

func eioWriteRequest(name string, dataType DataType, values []uint16) (request, error) {
	n := len(values)
	if n == 0 || n > EIO_OUTPUTS {
		return request{}, paramErrorf("IO module write length %d out of range [1~%d]", n, EIO_OUTPUTS)
	}
	if dataType != Bit {
		return request{}, paramErrorf("IO module supports bit access only")
	}
	reg, err := ParseEioRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	if reg.Offset() > EIO_OUTPUTS {
		return request{}, AddressError{Register: name, Err: fmt.Errorf("%w: outputs are 1~%d", ErrInvalidNumeric, EIO_OUTPUTS)}
	}
	if int(reg.Offset())+n-1 > EIO_OUTPUTS {
		return request{}, paramErrorf("IO module write of %d points from %d passes output %d", n, reg.Offset(), EIO_OUTPUTS)
	}
	frame, err := eioWriteFrame(reg, values)
	if err != nil {
		return request{}, err
	}
	return request{
		frame:    frame,
		classify: classifyEioWrite,
		decode: func([]byte) ([]uint16, error) {
			return nil, nil
		},
		maxReply: EIO_MAX_REPLY,
	}, nil
}
