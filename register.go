package plclink

import "strconv"

// DataType selects how register units are interpreted.
type DataType int

const (
	// Bit reads or writes one boolean point per value (0 or 1).
	Bit DataType = iota
	// Word reads or writes one 16-bit unit per value.
	Word
)

func (d DataType) String() string {
	switch d {
	case Bit:
		return "bit"
	case Word:
		return "word"
	default:
		return "DataType(" + strconv.Itoa(int(d)) + ")"
	}
}

// Register is a resolved register address. The set of implementations is closed:
// McRegister, NewtocolRegister and EioRegister.
type Register interface {
	// Name returns the symbolic name the register was resolved from.
	Name() string
	// Header returns the category prefix ("D", "X", "DX", ...).
	Header() string
	// Offset returns the numeric address within the category.
	Offset() uint32
	// DataType returns the access granularity requested for the register.
	DataType() DataType

	register()
}

type registerBase struct {
	name     string
	header   string
	offset   uint32
	dataType DataType
}

func (r registerBase) Name() string       { return r.name }
func (r registerBase) Header() string     { return r.header }
func (r registerBase) Offset() uint32     { return r.offset }
func (r registerBase) DataType() DataType { return r.dataType }
func (registerBase) register()            {}

// splitHeader finds the category prefix of name: the two-character prefix wins when
// known, otherwise the one-character prefix is tried.
func splitHeader(name string, known func(string) bool) (header, rest string, ok bool) {
	if len(name) >= 2 && known(name[:2]) {
		return name[:2], name[2:], true
	}
	if len(name) >= 1 && known(name[:1]) {
		return name[:1], name[1:], true
	}
	return "", "", false
}

func parseOffset(name, digits string, base int) (uint32, error) {
	if digits == "" {
		return 0, AddressError{Register: name, Err: ErrInvalidNumeric}
	}
	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, AddressError{Register: name, Err: ErrInvalidNumeric}
	}
	return uint32(v), nil
}
