// Package transport provides receiver.Port implementations for the two ways
// a PA1010D-class module is usually attached: a UART and an I2C register
// window.
package transport

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// SerialConfig describes the UART attachment. The module ships at 9600 baud.
type SerialConfig struct {
	Device string
	Baud   uint
}

// SerialPort adapts a UART to the receiver's Port contract: short-blocking
// reads that return whatever bytes have arrived.
type SerialPort struct {
	port io.ReadWriteCloser
}

func OpenSerial(cfg SerialConfig) (*SerialPort, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("transport: serial device is required")
	}
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:   cfg.Device,
		BaudRate:   cfg.Baud,
		DataBits:   8,
		StopBits:   1,
		ParityMode: serial.PARITY_NONE,
		// Return as soon as the line goes quiet instead of blocking for
		// a full buffer.
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Device, err)
	}
	return &SerialPort{port: port}, nil
}

func (p *SerialPort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *SerialPort) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *SerialPort) Close() error                { return p.port.Close() }
