// Package ecusim simulates an ECU that answers the UDS services the gateway
// supports. It's meant for development and tests, not for emulating any
// particular vehicle.
package ecusim

import (
	"sync"

	"github.com/gavinwade12/udsgateway/protocols/uds"
)

// MemorySize is the size of the simulated ECU's address space.
const MemorySize = 1024 * 1024

// Data identifiers the simulated ECU knows about.
const (
	DIDSerialNumber    uint16 = 0xF100
	DIDSoftwareVersion uint16 = 0xF200
)

const (
	defaultSerialNumber = "ECU12345"
	defaultSWVersion    = "1.0.0"
)

// Handler answers requests against an in-memory ECU. It's safe for concurrent use.
type Handler struct {
	mu     sync.Mutex
	memory []byte
	dids   map[uint16][]byte
}

// NewHandler returns a Handler with its memory seeded to the power-on pattern.
func NewHandler() *Handler {
	h := &Handler{
		memory: make([]byte, MemorySize),
		dids: map[uint16][]byte{
			DIDSerialNumber:    []byte(defaultSerialNumber),
			DIDSoftwareVersion: []byte(defaultSWVersion),
		},
	}
	h.seed()
	return h
}

func (h *Handler) seed() {
	for i := range h.memory {
		h.memory[i] = 0
	}

	copy(h.memory[0x1000:], []byte{0xAA, 0xBB, 0xCC})
	// configuration bytes
	copy(h.memory[0x2000:], []byte{0x01, 0x02})
	// high address markers
	h.memory[0x10000] = 0xAA
	h.memory[0xFFFFF] = 0xBB
}

// ProcessRequest returns the ECU's response to a single request frame.
func (h *Handler) ProcessRequest(req uds.Frame) uds.Frame {
	if len(req) == 0 {
		return uds.Frame{uds.NegativeResponseSID, 0x00}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch s := uds.Service(req[0]); s {
	case uds.ServiceReadMemory:
		return h.readMemory(req)
	case uds.ServiceWriteMemory:
		return h.writeMemory(req)
	case uds.ServiceECUReset:
		h.seed()
		return uds.Frame{s.PositiveResponse()}
	case uds.ServiceReadDataByIdentifier:
		return h.readDataByIdentifier(req)
	default:
		return uds.NegativeFrame(s, uds.NRCServiceNotSupported)
	}
}

func address(req uds.Frame) int {
	return int(req[1])<<16 | int(req[2])<<8 | int(req[3])
}

func (h *Handler) readMemory(req uds.Frame) uds.Frame {
	if len(req) < 5 {
		return uds.NegativeFrame(uds.ServiceReadMemory, uds.NRCIncorrectMessageLength)
	}

	addr, length := address(req), int(req[4])
	if addr+length > len(h.memory) {
		return uds.NegativeFrame(uds.ServiceReadMemory, uds.NRCRequestOutOfRange)
	}

	resp := uds.Frame{uds.ServiceReadMemory.PositiveResponse()}
	return append(resp, h.memory[addr:addr+length]...)
}

func (h *Handler) writeMemory(req uds.Frame) uds.Frame {
	if len(req) < 5 {
		return uds.NegativeFrame(uds.ServiceWriteMemory, uds.NRCIncorrectMessageLength)
	}

	addr, data := address(req), req[4:]
	if addr+len(data) > len(h.memory) {
		return uds.NegativeFrame(uds.ServiceWriteMemory, uds.NRCRequestOutOfRange)
	}

	copy(h.memory[addr:], data)
	return uds.Frame{uds.ServiceWriteMemory.PositiveResponse()}
}

func (h *Handler) readDataByIdentifier(req uds.Frame) uds.Frame {
	if len(req) < 3 {
		return uds.NegativeFrame(uds.ServiceReadDataByIdentifier, uds.NRCIncorrectMessageLength)
	}

	did := uint16(req[1])<<8 | uint16(req[2])
	record, ok := h.dids[did]
	if !ok {
		return uds.NegativeFrame(uds.ServiceReadDataByIdentifier, uds.NRCRequestOutOfRange)
	}

	resp := uds.Frame{uds.ServiceReadDataByIdentifier.PositiveResponse(), req[1], req[2]}
	return append(resp, record...)
}
