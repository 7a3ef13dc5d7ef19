package uds_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gavinwade12/udsgateway/protocols/uds"
)

type testExchanger struct {
	requests []uds.Frame
	resp     uds.Frame
	err      error
}

func (e *testExchanger) Exchange(ctx context.Context, frame uds.Frame) (uds.Frame, error) {
	e.requests = append(e.requests, frame)
	return e.resp, e.err
}

func TestClientValidation(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *uds.Client) uds.Outcome
		rawHex   string
		contains string
	}{
		{
			name:     "ReadMemoryAddressTooHigh",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "100000", 1) },
			rawHex:   "7F 23 31",
			contains: "Address out of range",
		},
		{
			name:     "ReadMemoryNegativeAddress",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "-1", 1) },
			rawHex:   "7F 23 31",
			contains: "Address out of range",
		},
		{
			name:     "ReadMemoryAddressOverflow",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "1FFFFFFFFFFFFFFFF", 1) },
			rawHex:   "7F 23 31",
			contains: "Address out of range",
		},
		{
			name:     "ReadMemoryZeroLength",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "1000", 0) },
			rawHex:   "7F 23 31",
			contains: "Invalid length",
		},
		{
			name:     "ReadMemoryLengthTooLong",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "1000", 256) },
			rawHex:   "7F 23 31",
			contains: "Invalid length",
		},
		{
			name:     "ReadMemoryInvalidAddress",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadMemory(context.Background(), "XYZ", 1) },
			rawHex:   "7F 23 13",
			contains: "invalid hex",
		},
		{
			name:     "WriteMemoryInvalidValue",
			call:     func(c *uds.Client) uds.Outcome { return c.WriteMemory(context.Background(), "1000", "ZZ") },
			rawHex:   "7F 3D 13",
			contains: "invalid hex",
		},
		{
			name:     "WriteMemoryAddressTooHigh",
			call:     func(c *uds.Client) uds.Outcome { return c.WriteMemory(context.Background(), "0x100000", "AA") },
			rawHex:   "7F 3D 31",
			contains: "Address out of range",
		},
		{
			name:     "WriteMemoryAddressOverflow",
			call:     func(c *uds.Client) uds.Outcome { return c.WriteMemory(context.Background(), "0xFFFFFFFFFFFFFFFFFF", "AA") },
			rawHex:   "7F 3D 31",
			contains: "Address out of range",
		},
		{
			name:     "WriteMemoryAddressOverflowInvalidValue",
			call:     func(c *uds.Client) uds.Outcome { return c.WriteMemory(context.Background(), "FFFFFFFFFFFFFFFFFF", "ZZ") },
			rawHex:   "7F 3D 13",
			contains: "invalid hex",
		},
		{
			name:     "ReadDataByIdentifierOverflow",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadDataByIdentifier(context.Background(), "F1000000000000000000") },
			rawHex:   "7F 22 31",
			contains: "out of range",
		},
		{
			name:     "ReadDataByIdentifierTooHigh",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadDataByIdentifier(context.Background(), "10000") },
			rawHex:   "7F 22 31",
			contains: "out of range",
		},
		{
			name:     "ReadDataByIdentifierInvalid",
			call:     func(c *uds.Client) uds.Outcome { return c.ReadDataByIdentifier(context.Background(), "") },
			rawHex:   "7F 22 13",
			contains: "invalid hex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &testExchanger{resp: uds.Frame{0x7F, 0x00, 0x10}}
			out := tt.call(uds.NewClient(e, nil))

			if out.Success {
				t.Fatal("expected failure")
			}
			if out.RawHex != tt.rawHex {
				t.Fatalf("want %s. got: %s.", tt.rawHex, out.RawHex)
			}
			if !strings.Contains(out.Message, tt.contains) {
				t.Fatalf("expected message to contain %q. got: %s.", tt.contains, out.Message)
			}
			if len(e.requests) != 0 {
				t.Fatalf("expected no transport calls. got: %d.", len(e.requests))
			}
		})
	}
}

func TestClientRequests(t *testing.T) {
	t.Run("ReadMemory", func(t *testing.T) {
		e := &testExchanger{resp: uds.Frame{0x63, 0xAA, 0xBB, 0xCC}}
		out := uds.NewClient(e, nil).ReadMemory(context.Background(), "0x1000", 3)

		if len(e.requests) != 1 || !bytes.Equal(e.requests[0], uds.Frame{0x23, 0x00, 0x10, 0x00, 0x03}) {
			t.Fatalf("unexpected requests: %v", e.requests)
		}
		expected := uds.Outcome{Success: true, RawHex: "63 AA BB CC", Message: "Success (Service 0x23): AA BB CC"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
	})

	t.Run("WriteMemory", func(t *testing.T) {
		e := &testExchanger{resp: uds.Frame{0x7D}}
		out := uds.NewClient(e, nil).WriteMemory(context.Background(), "FFFFF", "aa bb")

		if len(e.requests) != 1 || !bytes.Equal(e.requests[0], uds.Frame{0x3D, 0x0F, 0xFF, 0xFF, 0xAA, 0xBB}) {
			t.Fatalf("unexpected requests: %v", e.requests)
		}
		if !out.Success {
			t.Fatalf("expected success: %+v", out)
		}
	})

	t.Run("ReadDataByIdentifier", func(t *testing.T) {
		e := &testExchanger{resp: uds.Frame{0x62, 0xF1, 0x00, 'E', 'C', 'U'}}
		out := uds.NewClient(e, nil).ReadDataByIdentifier(context.Background(), " F100 ")

		if len(e.requests) != 1 || !bytes.Equal(e.requests[0], uds.Frame{0x22, 0xF1, 0x00}) {
			t.Fatalf("unexpected requests: %v", e.requests)
		}
		if out.Message != "Success (Service 0x22): DID 0xF100: ECU (45 43 55)" {
			t.Fatalf("unexpected message: %s", out.Message)
		}
	})

	t.Run("ECUReset", func(t *testing.T) {
		e := &testExchanger{resp: uds.Frame{0x51}}
		out := uds.NewClient(e, nil).ECUReset(context.Background())

		if len(e.requests) != 1 || !bytes.Equal(e.requests[0], uds.Frame{0x11}) {
			t.Fatalf("unexpected requests: %v", e.requests)
		}
		if !out.Success {
			t.Fatalf("expected success: %+v", out)
		}
	})

	t.Run("NegativeResponse", func(t *testing.T) {
		e := &testExchanger{resp: uds.Frame{0x7F, 0x22, 0x31}}
		out := uds.NewClient(e, nil).ReadDataByIdentifier(context.Background(), "1234")

		expected := uds.Outcome{RawHex: "7F 22 31", Message: "Error (Service 0x22): Request out of range"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
	})
}

func TestClientNoResponse(t *testing.T) {
	newClient := func() (*uds.Client, *testExchanger) {
		e := &testExchanger{err: uds.ErrNoResponse}
		return uds.NewClient(e, nil), e
	}

	t.Run("ReadMemoryFails", func(t *testing.T) {
		c, e := newClient()
		out := c.ReadMemory(context.Background(), "1000", 1)

		expected := uds.Outcome{RawHex: "7F 23 10", Message: "No response from ECU"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
		if len(e.requests) != 1 {
			t.Fatalf("want 1 transport call. got: %d.", len(e.requests))
		}
	})

	t.Run("ReadDataByIdentifierFails", func(t *testing.T) {
		c, _ := newClient()
		out := c.ReadDataByIdentifier(context.Background(), "F100")

		expected := uds.Outcome{RawHex: "7F 22 10", Message: "No response from ECU"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
	})

	t.Run("WriteMemoryAssumesSuccess", func(t *testing.T) {
		c, _ := newClient()
		out := c.WriteMemory(context.Background(), "1000", "AA")

		expected := uds.Outcome{Success: true, RawHex: "7D", Message: "Success (Service 0x3D): Write successful"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
	})

	t.Run("ECUResetAssumesSuccess", func(t *testing.T) {
		c, _ := newClient()
		out := c.ECUReset(context.Background())

		expected := uds.Outcome{Success: true, RawHex: "51", Message: "Success (Service 0x11): Reset successful"}
		if out != expected {
			t.Fatalf("want %+v. got: %+v.", expected, out)
		}
	})

	t.Run("ConnectionFailureTreatedAsAbsent", func(t *testing.T) {
		e := &testExchanger{err: errors.New("connecting to ECU: connection refused")}
		out := uds.NewClient(e, nil).ECUReset(context.Background())

		if !out.Success || out.RawHex != "51" {
			t.Fatalf("expected the reset fallback. got: %+v.", out)
		}
	})
}
