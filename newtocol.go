package plclink

import (
	"bytes"
	"fmt"
	"strconv"
)

const (
	NEWTOCOL_MAX_READ_POINTS  = 960
	NEWTOCOL_MAX_WRITE_POINTS = 960
	NEWTOCOL_MAX_BIT_POINTS   = 8 // RCP/WCP carry at most 8 contacts
	NEWTOCOL_MAX_REPLY_SIZE   = 4096
	NEWTOCOL_MAX_DATA_ADDRESS = 99999
	NEWTOCOL_MAX_WORD_NUMBER  = 0xFFFF
	NEWTOCOL_MAX_COIL_OFFSET  = NEWTOCOL_MAX_WORD_NUMBER<<4 | 0x0F
	NEWTOCOL_MAX_COIL_POINT   = 0xFFFF // RCS/RCP/WCS/WCP carry 4 hex digits
	NEWTOCOL_MAX_DATA_POINT   = 9999   // 4 decimal digits for data area points

	newtocolStart = '%'
	newtocolFix   = '#'
	newtocolOK    = '$'
	newtocolErr   = '!'
	newtocolEnd   = '\r'

	// reply layout: % station(2) marker command(2) data... bcc(2) CR
	newtocolMarkerIndex  = 3
	newtocolCommandIndex = 4
	newtocolDataIndex    = 6
	newtocolMinReply     = 7 // % station marker bcc CR
	newtocolBCCSkip      = "**"
)

var newtocolWordHeaders = map[string]bool{
	"D": true, "L": true, "F": true, "S": true, "K": true,
	"IX": true, "IY": true, "WX": true, "WY": true, "WR": true,
}

var newtocolCoilHeaders = map[string]bool{
	"X": true, "Y": true, "R": true, "T": true, "C": true, "L": true,
}

// NewtocolRegister is a register on a Panasonic controller speaking Newtocol.
type NewtocolRegister struct {
	registerBase
	coil bool
}

// IsCoil reports whether the register lives in a bit-addressed contact area.
func (r NewtocolRegister) IsCoil() bool { return r.coil }

// ParseNewtocolRegister resolves names such as "D100", "R1F" or "WR3". Contact
// offsets are hexadecimal and, when read by word, must sit on a 16-point boundary.
func ParseNewtocolRegister(name string, dataType DataType) (NewtocolRegister, error) {
	if len(name) < 2 {
		return NewtocolRegister{}, AddressError{Register: name, Err: ErrInvalidCategory}
	}
	header, digits, ok := splitHeader(name, func(h string) bool {
		return newtocolWordHeaders[h] || newtocolCoilHeaders[h]
	})
	if !ok {
		return NewtocolRegister{}, AddressError{Register: name, Err: ErrInvalidCategory}
	}
	coil := !newtocolWordHeaders[header]
	base := 10
	if coil {
		base = 16
	}
	offset, err := parseOffset(name, digits, base)
	if err != nil {
		return NewtocolRegister{}, err
	}
	if (coil && offset > NEWTOCOL_MAX_COIL_OFFSET) || (!coil && offset > NEWTOCOL_MAX_DATA_ADDRESS) {
		return NewtocolRegister{}, AddressError{Register: name, Err: ErrInvalidNumeric}
	}
	if coil && dataType == Word && offset%16 != 0 {
		return NewtocolRegister{}, AddressError{Register: name, Err: ErrMisalignedCoil}
	}
	return NewtocolRegister{
		registerBase: registerBase{name: name, header: header, offset: offset, dataType: dataType},
		coil:         coil,
	}, nil
}

// point formats the address of the i-th contact after r.
func (r NewtocolRegister) point(i int) string {
	if r.coil {
		return fmt.Sprintf("%s%04X", r.Header(), r.Offset()+uint32(i))
	}
	return fmt.Sprintf("%s%04d", r.Header(), r.Offset()+uint32(i))
}

// bitWindow reports the contact word range covering count bits from r.
func (r NewtocolRegister) bitWindow(count int) (first, last uint32) {
	return r.Offset() >> 4, (r.Offset() + uint32(count) - 1) >> 4
}

// readsBitsAsWords reports whether a bit read cannot fit a single RCP frame and must
// go through a word-range read.
func (r NewtocolRegister) readsBitsAsWords(count int) bool {
	return int(r.Offset()&0x0F)+count > NEWTOCOL_MAX_BIT_POINTS
}

// newtocolFrame accumulates one command frame.
type newtocolFrame struct {
	buf bytes.Buffer
}

func newNewtocolFrame(station byte, command string) *newtocolFrame {
	f := &newtocolFrame{}
	f.buf.WriteByte(newtocolStart)
	fmt.Fprintf(&f.buf, "%02X", station)
	f.buf.WriteByte(newtocolFix)
	f.buf.WriteString(command)
	return f
}

func (f *newtocolFrame) printf(format string, args ...interface{}) *newtocolFrame {
	fmt.Fprintf(&f.buf, format, args...)
	return f
}

func (f *newtocolFrame) words(values []uint16) *newtocolFrame {
	for _, v := range values {
		fmt.Fprintf(&f.buf, "%04X", swapBytes(v))
	}
	return f
}

// bytes closes the frame with BCC and CR.
func (f *newtocolFrame) bytes() []byte {
	f.buf.WriteString(bcc(f.buf.Bytes()))
	f.buf.WriteByte(newtocolEnd)
	return f.buf.Bytes()
}

func newtocolReadFrame(reg NewtocolRegister, count int, station byte) []byte {
	if reg.DataType() == Bit {
		switch {
		case reg.coil && reg.readsBitsAsWords(count):
			first, last := reg.bitWindow(count)
			return newNewtocolFrame(station, "RCC").printf("%s%04X%04X", reg.Header(), first, last).bytes()
		case count == 1:
			return newNewtocolFrame(station, "RCS").printf("%s", reg.point(0)).bytes()
		default:
			f := newNewtocolFrame(station, "RCP").printf("%d", count)
			for i := 0; i < count; i++ {
				f.printf("%s", reg.point(i))
			}
			return f.bytes()
		}
	}
	if reg.coil {
		start := reg.Offset() >> 4
		return newNewtocolFrame(station, "RCC").
			printf("%s%04X%04X", reg.Header(), start, start+uint32(count)-1).bytes()
	}
	return newNewtocolFrame(station, "RD").
		printf("%s%05d%05d", reg.Header(), reg.Offset(), reg.Offset()+uint32(count)).bytes()
}

func newtocolWriteFrame(reg NewtocolRegister, values []uint16, station byte) []byte {
	count := len(values)
	if reg.DataType() == Bit {
		if count == 1 {
			return newNewtocolFrame(station, "WCS").printf("%s%d", reg.point(0), values[0]).bytes()
		}
		f := newNewtocolFrame(station, "WCP").printf("%d", count)
		for i, v := range values {
			f.printf("%s%d", reg.point(i), v)
		}
		return f.bytes()
	}
	if reg.coil {
		start := reg.Offset() >> 4
		return newNewtocolFrame(station, "WCC").
			printf("%s%04X%04X", reg.Header(), start, start+uint32(count)-1).words(values).bytes()
	}
	return newNewtocolFrame(station, "WD").
		printf("%s%05d%05d", reg.Header(), reg.Offset(), reg.Offset()+uint32(count)-1).words(values).bytes()
}

// bcc is the XOR of content rendered as two uppercase hex digits.
func bcc(content []byte) string {
	var sum byte
	for _, b := range content {
		sum ^= b
	}
	return fmt.Sprintf("%02X", sum)
}

// swapBytes exchanges the high and low byte of v.
func swapBytes(v uint16) uint16 {
	return v<<8 | v>>8
}

// newtocolBCCMatches checks the BCC of a frame running from '%' through CR.
func newtocolBCCMatches(frame []byte) bool {
	if len(frame) < newtocolMinReply {
		return false
	}
	body := frame[:len(frame)-3]
	got := string(frame[len(frame)-3 : len(frame)-1])
	if got == newtocolBCCSkip {
		return true
	}
	want, err := strconv.ParseUint(got, 16, 8)
	if err != nil {
		return false
	}
	var sum byte
	for _, b := range body {
		sum ^= b
	}
	return sum == byte(want)
}

// classifyNewtocolReply finds the first complete, checksum-clean reply in buf. Frames
// whose BCC does not match are skipped as torn fragments.
func classifyNewtocolReply(buf []byte) Outcome {
	from := 0
	for {
		start := bytes.IndexByte(buf[from:], newtocolStart)
		if start < 0 {
			return incomplete
		}
		start += from
		end := bytes.IndexByte(buf[start:], newtocolEnd)
		if end < 0 {
			return incomplete
		}
		end += start
		frame := buf[start : end+1]
		from = start + 1
		if len(frame) < newtocolMinReply {
			continue
		}
		switch frame[newtocolMarkerIndex] {
		case newtocolErr:
			code, err := strconv.ParseUint(string(frame[newtocolCommandIndex:newtocolDataIndex]), 10, 16)
			if err != nil {
				return malformed("Newtocol error reply %q has a non-numeric error code", frame)
			}
			return rejected(lookupDeviceError(ProtocolNewtocol, newtocolErrorCodes, uint16(code)))
		case newtocolOK:
			if newtocolBCCMatches(frame) {
				return valid(frame)
			}
		default:
			return malformed("Newtocol reply %q has neither %q nor %q marker", frame, newtocolOK, newtocolErr)
		}
	}
}

// newtocolPayload checks the echoed command of a Valid frame and returns its data field.
func newtocolPayload(frame []byte, command string) ([]byte, error) {
	if len(frame) < newtocolDataIndex+3 {
		return nil, commErrorf("decode reply", "Newtocol reply %q too short", frame)
	}
	if got := string(frame[newtocolCommandIndex:newtocolDataIndex]); got != command {
		return nil, commErrorf("decode reply", "Newtocol reply echoes command %q, want %q", got, command)
	}
	return frame[newtocolDataIndex : len(frame)-3], nil
}

func decodeNewtocolWords(payload []byte, count int) ([]uint16, error) {
	if len(payload) < 4*count {
		return nil, commErrorf("decode reply", "Newtocol reply carries %d data digits, need %d", len(payload), 4*count)
	}
	values := make([]uint16, count)
	for i := range values {
		v, err := strconv.ParseUint(string(payload[i*4:i*4+4]), 16, 16)
		if err != nil {
			return nil, commErrorf("decode reply", "Newtocol word %q is not hexadecimal", payload[i*4:i*4+4])
		}
		values[i] = swapBytes(uint16(v))
	}
	return values, nil
}

func decodeNewtocolPoints(payload []byte, count int) ([]uint16, error) {
	if len(payload) < count {
		return nil, commErrorf("decode reply", "Newtocol reply carries %d contacts, need %d", len(payload), count)
	}
	values := make([]uint16, count)
	for i := range values {
		switch payload[i] {
		case '0':
		case '1':
			values[i] = 1
		default:
			return nil, commErrorf("decode reply", "Newtocol contact state %q is not 0 or 1", payload[i])
		}
	}
	return values, nil
}

// decodeNewtocolBitWindow extracts count contacts from the words of an RCC reply. Bit 0
// of each word is the contact whose last address digit is 0.
func decodeNewtocolBitWindow(payload []byte, reg NewtocolRegister, count int) ([]uint16, error) {
	first, last := reg.bitWindow(count)
	words, err := decodeNewtocolWords(payload, int(last-first)+1)
	if err != nil {
		return nil, err
	}
	values := make([]uint16, count)
	skip := int(reg.Offset() & 0x0F)
	for i := range values {
		n := skip + i
		values[i] = (words[n/16] >> uint(n%16)) & 0x01
	}
	return values, nil
}

func decodeNewtocolReply(frame []byte, reg NewtocolRegister, count int) ([]uint16, error) {
	if reg.DataType() == Word {
		command := "RD"
		if reg.coil {
			command = "RC"
		}
		payload, err := newtocolPayload(frame, command)
		if err != nil {
			return nil, err
		}
		return decodeNewtocolWords(payload, count)
	}
	payload, err := newtocolPayload(frame, "RC")
	if err != nil {
		return nil, err
	}
	if reg.coil && reg.readsBitsAsWords(count) {
		return decodeNewtocolBitWindow(payload, reg, count)
	}
	return decodeNewtocolPoints(payload, count)
}

// newtocolCheckRange makes sure every address field of the frame fits its digits.
// points is set when the frame names each contact (RCS/RCP/WCS/WCP).
func newtocolCheckRange(reg NewtocolRegister, count int, points bool) error {
	first := uint64(reg.Offset())
	last := first + uint64(count) - 1
	if points {
		limit := uint64(NEWTOCOL_MAX_DATA_POINT)
		if reg.coil {
			limit = NEWTOCOL_MAX_COIL_POINT
		}
		if last > limit {
			return paramErrorf("contact range of %s passes point %d", reg.Name(), limit)
		}
		return nil
	}
	if reg.coil {
		lastWord := last >> 4
		if reg.DataType() == Word {
			lastWord = first>>4 + uint64(count) - 1
		}
		if lastWord > NEWTOCOL_MAX_WORD_NUMBER {
			return paramErrorf("contact range of %s exceeds word %d", reg.Name(), NEWTOCOL_MAX_WORD_NUMBER)
		}
		return nil
	}
	if first+uint64(count) > NEWTOCOL_MAX_DATA_ADDRESS {
		return paramErrorf("register range of %s exceeds %d", reg.Name(), NEWTOCOL_MAX_DATA_ADDRESS)
	}
	return nil
}

func newtocolReadRequest(name string, dataType DataType, count uint16, station byte) (request, error) {
	n := int(count)
	if n == 0 {
		return request{}, paramErrorf("read length must not be 0")
	}
	if n > NEWTOCOL_MAX_READ_POINTS {
		return request{}, paramErrorf("read length %d exceeds %d", n, NEWTOCOL_MAX_READ_POINTS)
	}
	reg, err := ParseNewtocolRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	if dataType == Bit && !reg.coil && n > NEWTOCOL_MAX_BIT_POINTS {
		return request{}, paramErrorf("bit read of %s supports 1~%d points", name, NEWTOCOL_MAX_BIT_POINTS)
	}
	points := dataType == Bit && !(reg.coil && reg.readsBitsAsWords(n))
	if err := newtocolCheckRange(reg, n, points); err != nil {
		return request{}, err
	}
	return request{
		frame:    newtocolReadFrame(reg, n, station),
		classify: classifyNewtocolReply,
		decode: func(frame []byte) ([]uint16, error) {
			return decodeNewtocolReply(frame, reg, n)
		},
		maxReply: NEWTOCOL_MAX_REPLY_SIZE,
	}, nil
}

func newtocolWriteRequest(name string, dataType DataType, values []uint16, station byte) (request, error) {
	n := len(values)
	if n == 0 {
		return request{}, paramErrorf("write length must not be 0")
	}
	if n > NEWTOCOL_MAX_WRITE_POINTS {
		return request{}, paramErrorf("write length %d exceeds %d", n, NEWTOCOL_MAX_WRITE_POINTS)
	}
	if dataType == Bit {
		if n > NEWTOCOL_MAX_BIT_POINTS {
			return request{}, paramErrorf("bit write supports 1~%d points, got %d", NEWTOCOL_MAX_BIT_POINTS, n)
		}
		for i, v := range values {
			if v > 1 {
				return request{}, paramErrorf("bit value %d at index %d is not 0 or 1", v, i)
			}
		}
	}
	reg, err := ParseNewtocolRegister(name, dataType)
	if err != nil {
		return request{}, err
	}
	if err := newtocolCheckRange(reg, n, dataType == Bit); err != nil {
		return request{}, err
	}
	command := "WD"
	if dataType == Bit || reg.coil {
		command = "WC"
	}
	return request{
		frame:    newtocolWriteFrame(reg, values, station),
		classify: classifyNewtocolReply,
		decode: func(frame []byte) ([]uint16, error) {
			_, err := newtocolPayload(frame, command)
			return nil, err
		},
		maxReply: NEWTOCOL_MAX_REPLY_SIZE,
	}, nil
}
