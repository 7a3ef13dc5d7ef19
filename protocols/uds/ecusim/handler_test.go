package ecusim_test

import (
	"bytes"
	"testing"

	"github.com/gavinwade12/udsgateway/protocols/uds"
	"github.com/gavinwade12/udsgateway/protocols/uds/ecusim"
)

func TestProcessRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      uds.Frame
		expected uds.Frame
	}{
		{"Empty", uds.Frame{}, uds.Frame{0x7F, 0x00}},
		{"UnsupportedService", uds.Frame{0x10, 0x01}, uds.Frame{0x7F, 0x10, 0x11}},
		{"ReadMemory", uds.Frame{0x23, 0x00, 0x10, 0x00, 0x03}, uds.Frame{0x63, 0xAA, 0xBB, 0xCC}},
		{"ReadMemoryConfig", uds.Frame{0x23, 0x00, 0x20, 0x00, 0x02}, uds.Frame{0x63, 0x01, 0x02}},
		{"ReadMemoryLastByte", uds.Frame{0x23, 0x0F, 0xFF, 0xFF, 0x01}, uds.Frame{0x63, 0xBB}},
		{"ReadMemoryPastEnd", uds.Frame{0x23, 0x0F, 0xFF, 0xFF, 0x02}, uds.Frame{0x7F, 0x23, 0x31}},
		{"ReadMemoryOutOfRange", uds.Frame{0x23, 0x10, 0x00, 0x00, 0x01}, uds.Frame{0x7F, 0x23, 0x31}},
		{"ReadMemoryTooShort", uds.Frame{0x23, 0x00, 0x10}, uds.Frame{0x7F, 0x23, 0x13}},
		{"WriteMemoryTooShort", uds.Frame{0x3D, 0x00, 0x10, 0x00}, uds.Frame{0x7F, 0x3D, 0x13}},
		{"WriteMemoryOutOfRange", uds.Frame{0x3D, 0x0F, 0xFF, 0xFF, 0x01, 0x02}, uds.Frame{0x7F, 0x3D, 0x31}},
		{"SerialNumber", uds.Frame{0x22, 0xF1, 0x00}, append(uds.Frame{0x62, 0xF1, 0x00}, "ECU12345"...)},
		{"SoftwareVersion", uds.Frame{0x22, 0xF2, 0x00}, append(uds.Frame{0x62, 0xF2, 0x00}, "1.0.0"...)},
		{"UnknownDID", uds.Frame{0x22, 0x12, 0x34}, uds.Frame{0x7F, 0x22, 0x31}},
		{"DIDTooShort", uds.Frame{0x22, 0xF1}, uds.Frame{0x7F, 0x22, 0x13}},
		{"Reset", uds.Frame{0x11}, uds.Frame{0x51}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ecusim.NewHandler().ProcessRequest(tt.req)
			if !bytes.Equal(resp, tt.expected) {
				t.Fatalf("want %s. got: %s.", tt.expected.Hex(), resp.Hex())
			}
		})
	}
}

func TestWriteThenResetRestoresMemory(t *testing.T) {
	h := ecusim.NewHandler()

	resp := h.ProcessRequest(uds.Frame{0x3D, 0x00, 0x10, 0x00, 0x11, 0x22})
	if !bytes.Equal(resp, uds.Frame{0x7D}) {
		t.Fatalf("want 7D. got: %s.", resp.Hex())
	}

	read := uds.Frame{0x23, 0x00, 0x10, 0x00, 0x03}
	resp = h.ProcessRequest(read)
	if !bytes.Equal(resp, uds.Frame{0x63, 0x11, 0x22, 0xCC}) {
		t.Fatalf("want 63 11 22 CC. got: %s.", resp.Hex())
	}

	h.ProcessRequest(uds.Frame{0x11})
	resp = h.ProcessRequest(read)
	if !bytes.Equal(resp, uds.Frame{0x63, 0xAA, 0xBB, 0xCC}) {
		t.Fatalf("want 63 AA BB CC after reset. got: %s.", resp.Hex())
	}
}
