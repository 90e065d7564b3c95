package plclink

import (
	"net"
	"strconv"
)

// Parity of a serial line.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// SerialConfig describes a serial line.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int // 1 or 2
	Parity   Parity
}

// DefaultSerialConfig returns 9600 baud, 8 data bits, 1 stop bit, odd parity.
func DefaultSerialConfig(device string) SerialConfig {
	return SerialConfig{
		Device:   device,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   ParityOdd,
	}
}

// NetworkAddress A TCP host and port
type NetworkAddress struct {
	Host string
	Port int
}

func (a NetworkAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Endpoint is where a controller can be reached: exactly one of Network or Serial is set.
type Endpoint struct {
	Network *NetworkAddress
	Serial  *SerialConfig
}

func NewNetworkEndpoint(host string, port int) Endpoint {
	return Endpoint{
		Network: &NetworkAddress{
			Host: host,
			Port: port,
		},
	}
}

func NewSerialEndpoint(cfg SerialConfig) Endpoint {
	return Endpoint{Serial: &cfg}
}

// DefaultNetworkEndpoint is 192.168.1.100:6000.
func DefaultNetworkEndpoint() Endpoint {
	return NewNetworkEndpoint("192.168.1.100", 6000)
}

func (e Endpoint) String() string {
	switch {
	case e.Network != nil:
		return e.Network.String()
	case e.Serial != nil:
		return e.Serial.Device
	default:
		return "<none>"
	}
}

func (e Endpoint) validate(p Protocol) error {
	switch {
	case e.Network != nil && e.Serial != nil:
		return paramErrorf("endpoint sets both network and serial parameters")
	case e.Network != nil:
		if e.Network.Port <= 0 || e.Network.Port > 65535 {
			return paramErrorf("network port %d out of range", e.Network.Port)
		}
		return nil
	case e.Serial != nil:
		if p != ProtocolNewtocol {
			return paramErrorf("%s requires a network endpoint, got serial %s", p, e.Serial.Device)
		}
		if e.Serial.Device == "" {
			return paramErrorf("serial device name is empty")
		}
		return nil
	default:
		return paramErrorf("endpoint is empty")
	}
}
