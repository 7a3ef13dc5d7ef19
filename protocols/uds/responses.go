package uds

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Outcome is the decoded result of a diagnostic exchange.
type Outcome struct {
	Success bool   `json:"success"`
	RawHex  string `json:"raw_response"`
	Message string `json:"message"`
}

// Messages used for responses that carry no diagnostic content.
const (
	MessageNoResponse    = "No response from ECU"
	MessageEmptyResponse = "Empty response"
)

// Reject builds the outcome for a request that was refused before it was sent,
// shaped like the negative response an ECU would give so callers can handle
// both the same way.
func Reject(s Service, code NRC, reason string) Outcome {
	return Outcome{
		RawHex:  NegativeFrame(s, code).Hex(),
		Message: errorMessage(byte(s), reason),
	}
}

// Decode decodes a raw response. A nil frame means the ECU never answered.
func Decode(resp Frame) Outcome {
	if resp == nil {
		return Outcome{Message: MessageNoResponse}
	}
	return DecodeHex(resp.Hex())
}

// DecodeHex decodes a response given as hex text e.g. "63 AA BB".
func DecodeHex(s string) Outcome {
	if s == "" {
		return Outcome{Message: MessageNoResponse}
	}

	tokens := strings.Fields(strings.ToUpper(s))
	if len(tokens) == 0 {
		return Outcome{Message: MessageEmptyResponse}
	}

	b, err := parseTokens(tokens)
	if err != nil {
		return Outcome{
			RawHex:  strings.Join(tokens, " "),
			Message: "Invalid response format: " + err.Error(),
		}
	}

	out := Outcome{RawHex: b.Hex()}
	switch {
	case b[0] == NegativeResponseSID:
		if len(b) < 3 {
			out.Message = "Invalid response format: truncated negative response"
			return out
		}
		out.Message = errorMessage(b[1], NRC(b[2]).Reason())
	case b[0]&PositiveResponseMask != 0:
		s := Service(b[0] - PositiveResponseMask)
		out.Success = true
		out.Message = fmt.Sprintf("Success (Service 0x%02X): %s", byte(s), positiveDetail(s, b))
	default:
		out.Message = "Unknown Response: " + s
	}

	return out
}

func errorMessage(service byte, reason string) string {
	return fmt.Sprintf("Error (Service 0x%02X): %s", service, reason)
}

func parseTokens(tokens []string) (Frame, error) {
	b := make(Frame, len(tokens))
	for i, t := range tokens {
		v, err := strconv.ParseUint(t, 16, 8)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidHex, "byte %d (%q)", i, t)
		}
		b[i] = byte(v)
	}
	return b, nil
}

func positiveDetail(s Service, b Frame) string {
	data := b[1:]

	switch s {
	case ServiceReadMemory:
		if len(data) == 0 {
			return "No data"
		}
		return data.Hex()
	case ServiceWriteMemory:
		return "Write successful"
	case ServiceECUReset:
		if len(data) == 0 {
			return "Reset successful"
		}
		return data.Hex()
	case ServiceReadDataByIdentifier:
		if len(b) < 3 {
			return data.Hex()
		}
		did := uint16(b[1])<<8 | uint16(b[2])
		record := b[3:]
		if len(record) == 0 {
			return fmt.Sprintf("DID 0x%04X: No data", did)
		}
		if text, ok := asciiText(record); ok {
			return fmt.Sprintf("DID 0x%04X: %s (%s)", did, text, record.Hex())
		}
		return fmt.Sprintf("DID 0x%04X: %s", did, record.Hex())
	}

	return data.Hex()
}

func asciiText(b []byte) (string, bool) {
	for _, c := range b {
		if c > 0x7F {
			return "", false
		}
	}
	return strings.TrimSpace(string(b)), true
}
