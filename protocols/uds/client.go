package uds

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxAddress is the highest memory address the ECU exposes.
const MaxAddress uint32 = 0xFFFFF

// Exchanger sends a frame to the ECU and returns its raw response.
type Exchanger interface {
	Exchange(ctx context.Context, frame Frame) (Frame, error)
}

// noResponseFallbacks are the responses assumed when the ECU doesn't answer.
// Writes are treated as fire-and-forget, and many ECUs drop the connection
// straight after a reset without acknowledging it. Reads have no fallback.
var noResponseFallbacks = map[Service]Frame{
	ServiceWriteMemory: {ServiceWriteMemory.PositiveResponse()},
	ServiceECUReset:    {ServiceECUReset.PositiveResponse()},
}

// Client provides the supported diagnostic operations. Every operation
// returns an Outcome; failures are described by the outcome, never returned
// as errors.
type Client struct {
	session Exchanger
	logger  Logger
}

// NewClient returns a Client that dispatches requests over session.
func NewClient(session Exchanger, l Logger) *Client {
	if l == nil {
		l = NopLogger
	}
	return &Client{session: session, logger: l}
}

// ReadMemory reads length bytes starting at the hex address.
func (c *Client) ReadMemory(ctx context.Context, address string, length int) Outcome {
	addr, err := parseHex(address)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Reject(ServiceReadMemory, NRCIncorrectMessageLength, err.Error())
	}
	if err != nil || addr < 0 || addr > int64(MaxAddress) {
		return Reject(ServiceReadMemory, NRCRequestOutOfRange, "Address out of range")
	}
	if length < 1 || length > 255 {
		return Reject(ServiceReadMemory, NRCRequestOutOfRange, "Invalid length (1-255)")
	}

	req := NewRequest(ServiceReadMemory).
		WithAddress(uint32(addr)).
		WithLength(byte(length))
	return c.dispatch(ctx, req)
}

// WriteMemory writes the hex encoded value starting at the hex address.
func (c *Client) WriteMemory(ctx context.Context, address, value string) Outcome {
	addr, addrErr := parseHex(address)
	if addrErr != nil && !errors.Is(addrErr, strconv.ErrRange) {
		return Reject(ServiceWriteMemory, NRCIncorrectMessageLength, addrErr.Error())
	}
	payload, err := PayloadFromHex(value)
	if err != nil {
		return Reject(ServiceWriteMemory, NRCIncorrectMessageLength, err.Error())
	}
	if addrErr != nil || addr < 0 || addr > int64(MaxAddress) {
		return Reject(ServiceWriteMemory, NRCRequestOutOfRange, "Address out of range")
	}

	req := NewRequest(ServiceWriteMemory).
		WithAddress(uint32(addr)).
		WithPayload(payload)
	return c.dispatch(ctx, req)
}

// ReadDataByIdentifier reads the data item with the hex encoded 2-byte identifier.
func (c *Client) ReadDataByIdentifier(ctx context.Context, dataID string) Outcome {
	did, err := parseHex(dataID)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Reject(ServiceReadDataByIdentifier, NRCIncorrectMessageLength, err.Error())
	}
	if err != nil || did < 0 || did > 0xFFFF {
		return Reject(ServiceReadDataByIdentifier, NRCRequestOutOfRange, "Data identifier out of range (0000-FFFF)")
	}

	req := NewRequest(ServiceReadDataByIdentifier).
		WithPayload(Payload{byte(did >> 8), byte(did)})
	return c.dispatch(ctx, req)
}

// ECUReset asks the ECU to reset.
func (c *Client) ECUReset(ctx context.Context) Outcome {
	return c.dispatch(ctx, NewRequest(ServiceECUReset))
}

func (c *Client) dispatch(ctx context.Context, req Request) Outcome {
	s := req.Service()

	resp, err := c.session.Exchange(ctx, Encode(req))
	if err != nil {
		c.logger.Debugf("%s: %v", s, err)
		resp = nil
	}
	if resp != nil {
		return Decode(resp)
	}

	if fallback, ok := noResponseFallbacks[s]; ok {
		c.logger.Debugf("%s: no response, assuming %s", s, fallback.Hex())
		return Decode(fallback)
	}

	out := Decode(nil)
	out.RawHex = NegativeFrame(s, NRCGeneralReject).Hex()
	return out
}

// parseHex parses hex text with an optional 0x prefix. Valid hex too large
// for an int64 returns an error matching strconv.ErrRange.
func parseHex(s string) (int64, error) {
	t := strings.TrimSpace(s)
	if len(t) > 2 && (t[:2] == "0x" || t[:2] == "0X") {
		t = t[2:]
	}
	v, err := strconv.ParseInt(t, 16, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, errors.Wrapf(err, "%q", s)
	}
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidHex, "%q", s)
	}
	return v, nil
}
