package uds

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Opener opens a new byte stream to the ECU. Each call makes exactly one attempt.
type Opener func(ctx context.Context) (io.ReadWriteCloser, error)

// TCPOpener returns an Opener that dials the ECU at the given host:port.
func TCPOpener(address string, timeout time.Duration) Opener {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, errors.Wrapf(err, "dialing '%s'", address)
		}
		return conn, nil
	}
}

const (
	// SerialDefaultBaudRate is the baud rate (bits/s) used when none is configured.
	SerialDefaultBaudRate int = 115200
	// SerialDataBits is the data bit setting (bits/word) used for serial connections.
	SerialDataBits int = 8
)

// SerialOpener returns an Opener for an ECU attached to a local serial port.
// The read timeout bounds the single read made per exchange.
func SerialOpener(portName string, baudRate int, readTimeout time.Duration) Opener {
	if baudRate <= 0 {
		baudRate = SerialDefaultBaudRate
	}
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		sp, err := serial.Open(portName, &serial.Mode{
			BaudRate: baudRate,
			DataBits: SerialDataBits,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "opening serial port '%s'", portName)
		}

		if err = sp.SetReadTimeout(readTimeout); err != nil {
			sp.Close()
			return nil, errors.Wrap(err, "setting serial port read timeout")
		}
		if err = sp.ResetInputBuffer(); err != nil {
			sp.Close()
			return nil, errors.Wrap(err, "resetting input buffer")
		}

		return sp, nil
	}
}

// SerialPort describes a serial port on the host.
type SerialPort struct {
	PortName    string
	Description string
	IsUSB       bool
	VendorID    string
	ProductID   string
}

// AvailablePorts returns all available serial ports on the current host.
func AvailablePorts() ([]SerialPort, error) {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	ports := make([]SerialPort, len(list))
	for i, p := range list {
		ports[i] = SerialPort{
			PortName:    p.Name,
			Description: p.Product,
			IsUSB:       p.IsUSB,
			VendorID:    p.VID,
			ProductID:   p.PID,
		}
	}

	return ports, nil
}
