package uds

import "fmt"

// Service identifies a UDS diagnostic service by its request SID.
type Service byte

// The services supported by the gateway.
const (
	ServiceECUReset             Service = 0x11
	ServiceReadDataByIdentifier Service = 0x22
	ServiceReadMemory           Service = 0x23
	ServiceWriteMemory          Service = 0x3D
)

const (
	// NegativeResponseSID is the first byte of every negative response frame.
	NegativeResponseSID byte = 0x7F
	// PositiveResponseMask is OR'd into the request SID to form the positive response SID.
	PositiveResponseMask byte = 0x40
)

var serviceNames = map[Service]string{
	ServiceECUReset:             "ECU Reset",
	ServiceReadDataByIdentifier: "Read Data By Identifier",
	ServiceReadMemory:           "Read Memory By Address",
	ServiceWriteMemory:          "Write Memory By Address",
}

func (s Service) String() string {
	if name, ok := serviceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", byte(s))
}

// PositiveResponse returns the SID an ECU answers with when it accepts the service.
func (s Service) PositiveResponse() byte {
	return byte(s) | PositiveResponseMask
}

// NRC is a negative response code reported by the ECU.
type NRC byte

// Negative response codes with a known reason.
const (
	NRCGeneralReject             NRC = 0x10
	NRCServiceNotSupported       NRC = 0x11
	NRCSubFunctionNotSupported   NRC = 0x12
	NRCIncorrectMessageLength    NRC = 0x13
	NRCConditionsNotCorrect      NRC = 0x22
	NRCRequestOutOfRange         NRC = 0x31
	NRCSecurityAccessDenied      NRC = 0x33
	NRCGeneralProgrammingFailure NRC = 0x72
)

var nrcReasons = map[NRC]string{
	NRCGeneralReject:             "General reject",
	NRCServiceNotSupported:       "Service not supported",
	NRCSubFunctionNotSupported:   "Sub-function not supported",
	NRCIncorrectMessageLength:    "Incorrect message length",
	NRCConditionsNotCorrect:      "Conditions not correct",
	NRCRequestOutOfRange:         "Request out of range",
	NRCSecurityAccessDenied:      "Security access denied",
	NRCGeneralProgrammingFailure: "General programming failure",
}

// Reason returns a short English description of the code.
func (n NRC) Reason() string {
	if reason, ok := nrcReasons[n]; ok {
		return reason
	}
	return fmt.Sprintf("Unknown error (NRC=0x%02X)", byte(n))
}
