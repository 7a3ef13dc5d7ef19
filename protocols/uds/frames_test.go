package uds_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gavinwade12/udsgateway/protocols/uds"
)

func TestEncode(t *testing.T) {
	t.Run("ReadMemory", func(t *testing.T) {
		req := uds.NewRequest(uds.ServiceReadMemory).
			WithAddress(0x01234).
			WithLength(3)

		f := uds.Encode(req)
		expected := uds.Frame{0x23, 0x00, 0x12, 0x34, 0x03}
		if !bytes.Equal(f, expected) {
			t.Fatalf("want %s. got: %s.", expected.Hex(), f.Hex())
		}
	})

	t.Run("WriteMemory", func(t *testing.T) {
		req := uds.NewRequest(uds.ServiceWriteMemory).
			WithAddress(0xFFFFF).
			WithPayload(uds.Payload{0xAA, 0xBB})

		f := uds.Encode(req)
		expected := uds.Frame{0x3D, 0x0F, 0xFF, 0xFF, 0xAA, 0xBB}
		if !bytes.Equal(f, expected) {
			t.Fatalf("want %s. got: %s.", expected.Hex(), f.Hex())
		}
	})

	t.Run("ReadDataByIdentifier", func(t *testing.T) {
		req := uds.NewRequest(uds.ServiceReadDataByIdentifier).
			WithPayload(uds.Payload{0xF1, 0x00})

		f := uds.Encode(req)
		expected := uds.Frame{0x22, 0xF1, 0x00}
		if !bytes.Equal(f, expected) {
			t.Fatalf("want %s. got: %s.", expected.Hex(), f.Hex())
		}
	})

	t.Run("ECUResetIgnoresOtherFields", func(t *testing.T) {
		req := uds.NewRequest(uds.ServiceECUReset).
			WithAddress(0x1000).
			WithLength(1).
			WithPayload(uds.Payload{0x01})

		f := uds.Encode(req)
		if !bytes.Equal(f, uds.Frame{0x11}) {
			t.Fatalf("want 11. got: %s.", f.Hex())
		}
	})

	t.Run("AddressUsesLowThreeBytes", func(t *testing.T) {
		req := uds.NewRequest(uds.ServiceReadMemory).
			WithAddress(0xAB123456).
			WithLength(1)

		f := uds.Encode(req)
		expected := uds.Frame{0x23, 0x12, 0x34, 0x56, 0x01}
		if !bytes.Equal(f, expected) {
			t.Fatalf("want %s. got: %s.", expected.Hex(), f.Hex())
		}
	})

	t.Run("WithMethodsDontModifyReceiver", func(t *testing.T) {
		base := uds.NewRequest(uds.ServiceReadMemory)
		_ = base.WithAddress(0x1000).WithLength(1)

		f := uds.Encode(base)
		if !bytes.Equal(f, uds.Frame{0x23}) {
			t.Fatalf("want 23. got: %s.", f.Hex())
		}
	})
}

func TestPayloadFromHex(t *testing.T) {
	tests := map[string]uds.Payload{
		"AABBCC":     {0xAA, 0xBB, 0xCC},
		"aa bb cc":   {0xAA, 0xBB, 0xCC},
		" 01\t02\n ": {0x01, 0x02},
		"":           {},
	}
	for in, expected := range tests {
		p, err := uds.PayloadFromHex(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if !bytes.Equal(p, expected) {
			t.Fatalf("want % X for %q. got: % X.", []byte(expected), in, []byte(p))
		}
	}

	for _, in := range []string{"ZZ", "ABC", "0xAB"} {
		_, err := uds.PayloadFromHex(in)
		if !errors.Is(err, uds.ErrInvalidHex) {
			t.Fatalf("expected ErrInvalidHex for %q. got: %v.", in, err)
		}
	}
}

func TestPayloadFromRawCopies(t *testing.T) {
	b := []byte{0x01, 0x02}
	p := uds.PayloadFromRaw(b)
	b[0] = 0xFF

	if p[0] != 0x01 {
		t.Fatalf("expected payload to be unaffected by changes to the source. got: % X.", []byte(p))
	}
}

func TestFrameHex(t *testing.T) {
	if h := (uds.Frame{0x7F, 0x23, 0x31}).Hex(); h != "7F 23 31" {
		t.Fatalf("want 7F 23 31. got: %s.", h)
	}
	if h := (uds.Frame{}).Hex(); h != "" {
		t.Fatalf("want empty string. got: %q.", h)
	}
}
