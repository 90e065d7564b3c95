package plclink

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	MC_MAX_READ_POINTS  = 960
	MC_MAX_WRITE_POINTS = 720
	MC_MAX_OFFSET       = 0xFFFFFF // offsets travel as 3 bytes
	MC_MAX_REPLY_SIZE   = 4096

	mcCommandBatchRead  uint16 = 0x0401
	mcCommandBatchWrite uint16 = 0x1401
	mcSubcommandWord    uint16 = 0x0000
	mcSubcommandBit     uint16 = 0x0001
)

// mcDeviceCodes maps MC device headers to their binary device code.
var mcDeviceCodes = map[string]byte{
	"SM": 0x91,
	"SD": 0xA9,
	"X":  0x9C,
	"Y":  0x9D,
	"M":  0x90,
	"L":  0x92,
	"F":  0x93,
	"V":  0x94,
	"B":  0xA0,
	"D":  0xA8,
	"W":  0xB4,
	"TS": 0xC1,
	"TC": 0xC0,
	"TN": 0xC2,
	"SS": 0xC7,
	"SC": 0xC6,
	"SN": 0xC8,
	"CS": 0xC4,
	"CC": 0xC3,
	"CN": 0xC5,
	"SB": 0xA1,
	"SW": 0xB5,
	"S":  0x98,
	"DX": 0xA2,
	"DY": 0xA3,
	"Z":  0xCC,
	"R":  0xAF,
	"ZR": 0xB0,
}

// mcHexDevices are addressed in hexadecimal; every other device is decimal.
var mcHexDevices = map[string]bool{
	"X": true, "Y": true, "B": true, "W": true,
	"SB": true, "SW": true, "DX": true, "DY": true, "ZR": true,
}

// McRegister is a register on a Mitsubishi controller speaking MC 3E binary.
type McRegister struct {
	registerBase
	deviceCode byte
}

// DeviceCode returns the binary device code sent on the wire.
func (r McRegister) DeviceCode() byte { return r.deviceCode }

// ParseMcRegister resolves names such as "D100", "X1F" or "ZR200".
func ParseMcRegister(name string, dataType DataType) (McRegister, error) {
	if len(name) < 2 {
		return McRegister{}, AddressError{Register: name, Err: ErrInvalidCategory}
	}
	header, digits, ok := splitHeader(name, func(h string) bool {
		_, found := mcDeviceCodes[h]
		return found
	})
	if !ok {
		return McRegister{}, AddressError{Register: name, Err: ErrInvalidCategory}
	}
	base := 10
	if mcHexDevices[header] {
		base = 16
	}
	offset, err := parseOffset(name, digits, base)
	if err != nil {
		return McRegister{}, err
	}
	if offset > MC_MAX_OFFSET {
		return McRegister{}, AddressError{Register: name, Err: ErrInvalidNumeric}
	}
	return McRegister{
		registerBase: registerBase{name: name, header: header, offset: offset, dataType: dataType},
		deviceCode:   mcDeviceCodes[header],
	}, nil
}

func mcSubcommand(dataType DataType) uint16 {
	if dataType == Bit {
		return mcSubcommandBit
	}
	return mcSubcommandWord
}

// mcDeviceSpec encodes command, subcommand, start device and point count.
func mcDeviceSpec(command uint16, reg McRegister, points int) []byte {
	spec := make([]byte, 10)
	binary.LittleEndian.PutUint16(spec[0:2], command)
	binary.LittleEndian.PutUint16(spec[2:4], mcSubcommand(reg.DataType()))
	spec[4] = byte(reg.Offset())
	spec[5] = byte(reg.Offset() >> 8)
	spec[6] = byte(reg.Offset() >> 16)
	spec[7] = reg.DeviceCode()
	binary.LittleEndian.PutUint16(spec[8:10], uint16(points))
	return spec
}

func mcReadFrame(reg McRegister, count uint16) []byte {
	frame := defaultMcHeader().encode(MC_READ_BODY_SIZE)
	return append(frame, mcDeviceSpec(mcCommandBatchRead, reg, int(count))...)
}

func mcWriteFrame(reg McRegister, values []uint16) []byte {
	payload := mcPackPayload(reg.DataType(), values)
	frame := defaultMcHeader().encode(MC_READ_BODY_SIZE + len(payload))
	frame = append(frame, mcDeviceSpec(mcCommandBatchWrite, reg, len(values))...)
	return append(frame, payload...)
}

// mcPackPayload packs bits two per byte (first value in the high nibble) or words
// little endian.
func mcPackPayload(dataType DataType, values []uint16) []byte {
	if dataType == Bit {
		payload := make([]byte, (len(values)+1)/2)
		for i, v := range values {
			var nibble byte
			if v != 0 {
				nibble = 0x01
			}
			if i%2 == 0 {
				payload[i/2] |= nibble << 4
			} else {
				payload[i/2] |= nibble
			}
		}
		return payload
	}
	payload := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(payload[i*2:i*2+2], v)
	}
	return payload
}

// classifyMcReply looks for the first complete 3E reply in buf.
func classifyMcReply(buf []byte) Outcome {
	start := bytes.Index(buf, mcReplySubheader[:])
	if start < 0 {
		return incomplete
	}
	frame := buf[start:]
	if len(frame) < MC_REPLY_PREFIX_SIZE {
		return incomplete
	}
	bodyLen := int(binary.LittleEndian.Uint16(frame[MC_BODY_LEN_INDEX : MC_BODY_LEN_INDEX+2]))
	if bodyLen < 2 {
		return malformed("MC reply body length %d is shorter than the end code", bodyLen)
	}
	total := MC_REPLY_PREFIX_SIZE + bodyLen
	if len(frame) < total {
		return incomplete
	}
	endCode := binary.LittleEndian.Uint16(frame[MC_END_CODE_INDEX : MC_END_CODE_INDEX+2])
	if endCode != 0 {
		return rejected(lookupDeviceError(ProtocolMC3E, mcEndCodes, endCode))
	}
	return valid(frame[:total])
}

// decodeMcReply unpacks count values from a Valid 3E reply.
func decodeMcReply(frame []byte, dataType DataType, count uint16) ([]uint16, error) {
	n := int(count)
	if len(frame) < MC_DATA_INDEX {
		return nil, commErrorf("decode reply", "MC reply too short: %d bytes", len(frame))
	}
	data := frame[MC_DATA_INDEX:]
	need := 2 * n
	if dataType == Bit {
		need = (n + 1) / 2
	}
	if len(data) < need {
		return nil, commErrorf("decode reply", "MC reply carries %d data bytes, need %d", len(data), need)
	}
	values := make([]uint16, n)
	for i := 0; i < n; i++ {
		if dataType == Bit {
			b := data[i/2]
			if i%2 == 0 {
				b >>= 4
			}
			if b&0x0F != 0 {
				values[i] = 1
			}
			continue
		}
		values[i] = binary.LittleEndian.Uint16(data[i*2 : i*2+2])
	}
	return values, nil
}

func mcCheckCount(op string, n, max int) error {
	if n == 0 {
		return paramErrorf("%s length must not be 0", op)
	}
	if n > max {
		return paramErrorf("%s length %d exceeds %d", op, n, max)
	}
	return nil
}

func mcReadRequest(name string, dataType DataType, count uint16) (request, error) {
	if err := mcCheckCount("read", int(count), MC_MAX_READ_POINTS); err != nil {
		return request{}, err
	}
	reg, err := ParseMcRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	return request{
		frame:    mcReadFrame(reg, count),
		classify: classifyMcReply,
		decode: func(frame []byte) ([]uint16, error) {
			return decodeMcReply(frame, dataType, count)
		},
		maxReply: MC_MAX_REPLY_SIZE,
	}, nil
}

func mcWriteRequest(name string, dataType DataType, values []uint16) (request, error) {
	if err := mcCheckCount("write", len(values), MC_MAX_WRITE_POINTS); err != nil {
		return request{}, err
	}
	if dataType == Bit {
		for i, v := range values {
			if v > 1 {
				return request{}, paramErrorf("bit value %d at index %d is not 0 or 1", v, i)
			}
		}
	}
	reg, err := ParseMcRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	return request{
		frame:    mcWriteFrame(reg, values),
		classify: classifyMcReply,
		maxReply: MC_MAX_REPLY_SIZE,
	}, nil
}

func (r McRegister) String() string {
	return fmt.Sprintf("%s (device 0x%02X, offset %d)", r.Name(), r.deviceCode, r.Offset())
}
