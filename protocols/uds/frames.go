package uds

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Frame is a single UDS message as it travels over the wire. Requests are
// built as:
//
//	Service
//	Address (3 bytes, big-endian, optional)
//	Length (1 byte, optional)
//	Payload (optional)
//
// There is no padding, checksum, or length prefix.
type Frame []byte

// Hex renders the frame as space separated, upper-case hex bytes e.g. "7F 23 31".
func (f Frame) Hex() string {
	return fmt.Sprintf("% X", []byte(f))
}

// NegativeFrame builds the negative response an ECU would send when rejecting
// the service with the given code.
func NegativeFrame(s Service, code NRC) Frame {
	return Frame{NegativeResponseSID, byte(s), byte(code)}
}

// ErrInvalidHex is returned when hex text can't be decoded into bytes.
var ErrInvalidHex = errors.New("invalid hex")

// Payload is the service-specific data appended to a request.
type Payload []byte

// PayloadFromHex decodes hex text such as "AA BB CC" or "aabbcc" into a payload.
// Whitespace between digits is ignored.
func PayloadFromHex(s string) (Payload, error) {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidHex, "payload %q: %v", s, err)
	}
	return Payload(b), nil
}

// PayloadFromRaw copies the given bytes into a payload.
func PayloadFromRaw(b []byte) Payload {
	p := make(Payload, len(b))
	copy(p, b)
	return p
}

// Request is a typed diagnostic request. The zero value of each optional
// field is "absent"; use the With* methods to set them. Requests are values,
// so the With* methods never modify the receiver.
type Request struct {
	service Service

	address    uint32
	hasAddress bool

	length    byte
	hasLength bool

	payload Payload
}

// NewRequest returns a request for the given service with no optional fields.
func NewRequest(s Service) Request {
	return Request{service: s}
}

// Service returns the request's service.
func (r Request) Service() Service { return r.service }

// WithAddress returns a copy of the request with the memory address set.
func (r Request) WithAddress(a uint32) Request {
	r.address = a
	r.hasAddress = true
	return r
}

// WithLength returns a copy of the request with the length byte set.
func (r Request) WithLength(l byte) Request {
	r.length = l
	r.hasLength = true
	return r
}

// WithPayload returns a copy of the request with the payload set.
func (r Request) WithPayload(p Payload) Request {
	r.payload = PayloadFromRaw(p)
	return r
}

// Encode builds the outbound frame for the request. An ECU reset is always
// the single service byte, whatever else the request carries.
func Encode(r Request) Frame {
	if r.service == ServiceECUReset {
		return Frame{byte(ServiceECUReset)}
	}

	f := make(Frame, 0, 1+3+1+len(r.payload))
	f = append(f, byte(r.service))
	if r.hasAddress {
		// the address space tops out at 0xFFFFF, so only the low 3 bytes are sent
		f = append(f, byte(r.address>>16), byte(r.address>>8), byte(r.address))
	}
	if r.hasLength {
		f = append(f, r.length)
	}
	if r.payload != nil {
		f = append(f, r.payload...)
	}

	return f
}
