package plclink

// OutcomeStatus is the classification of a reply buffer at one point in time.
type OutcomeStatus int

const (
	// Incomplete means more bytes are needed before the reply can be judged.
	Incomplete OutcomeStatus = iota
	// Valid means a complete frame passed its integrity and status checks.
	Valid
	// Rejected means a complete frame reported a device-level fault.
	Rejected
	// Malformed means a complete frame cannot belong to any valid reply.
	Malformed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Incomplete:
		return "incomplete"
	case Valid:
		return "valid"
	case Rejected:
		return "rejected"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the result of classifying a cumulative reply buffer.
// Frame is set for Valid, Err for Rejected and Malformed.
type Outcome struct {
	Status OutcomeStatus
	Frame  []byte
	Err    error
}

var incomplete = Outcome{Status: Incomplete}

func valid(frame []byte) Outcome {
	return Outcome{Status: Valid, Frame: frame}
}

func rejected(err DeviceError) Outcome {
	return Outcome{Status: Rejected, Err: err}
}

func malformed(format string, args ...interface{}) Outcome {
	return Outcome{Status: Malformed, Err: commErrorf("decode reply", format, args...)}
}

// classifier inspects the whole buffer received so far for one request.
type classifier func(buf []byte) Outcome

// decoder turns a Valid frame into register values.
type decoder func(frame []byte) ([]uint16, error)

// request is everything the exchange loop needs for one operation.
type request struct {
	frame    []byte
	classify classifier
	decode   decoder // optional for writes
	maxReply int
}
