package plclink

import "encoding/binary"

const (
	// MC 3E binary frame layout
	MC_HEADER_SIZE       = 11 // subheader through monitoring timer (request) or end code (reply)
	MC_REPLY_PREFIX_SIZE = 9  // subheader through body length
	MC_BODY_LEN_INDEX    = 7
	MC_END_CODE_INDEX    = 9
	MC_DATA_INDEX        = 11
	MC_READ_BODY_SIZE    = 12 // timer + command + subcommand + device + count

	DEFAULT_MC_MONITOR_TIMER = 0x000A // 250ms units
)

var (
	mcRequestSubheader = [2]byte{0x50, 0x00}
	mcReplySubheader   = [2]byte{0xD0, 0x00}
)

// mcHeader is the routing part of an MC 3E frame.
type mcHeader struct {
	network      byte
	pcNo         byte
	ioNo         uint16
	station      byte
	monitorTimer uint16
}

func defaultMcHeader() mcHeader {
	h := mcHeader{}
	h.network = 0x00
	h.pcNo = 0xFF
	h.ioNo = 0x03FF
	h.station = 0x00
	h.monitorTimer = DEFAULT_MC_MONITOR_TIMER
	return h
}

// encode writes the header for a request whose body (timer onward) is bodyLen bytes.
func (h mcHeader) encode(bodyLen int) []byte {
	bytes := make([]byte, MC_HEADER_SIZE)
	bytes[0] = mcRequestSubheader[0]
	bytes[1] = mcRequestSubheader[1]
	bytes[2] = h.network
	bytes[3] = h.pcNo
	binary.LittleEndian.PutUint16(bytes[4:6], h.ioNo)
	bytes[6] = h.station
	binary.LittleEndian.PutUint16(bytes[7:9], uint16(bodyLen))
	binary.LittleEndian.PutUint16(bytes[9:11], h.monitorTimer)
	return bytes
}
