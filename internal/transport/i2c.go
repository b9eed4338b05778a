package transport

// The PA1010D's I2C interface is a byte window at address 0x10: reads of up
// to 255 bytes drain the module's output FIFO, and the module pads with
// '\n' (0x0A) when it has nothing to say. Writes inject command sentences.

const (
	// DefaultI2CAddr is the PA1010D's fixed 7-bit address.
	DefaultI2CAddr = 0x10

	// i2cMaxChunk is the largest single read the module supports.
	i2cMaxChunk = 255

	idleFiller = '\n'
)

// wireDev is the slice of the I2C device surface the port needs; it lets
// tests substitute a scripted device.
type wireDev interface {
	Write(p []byte) error
	Read(p []byte) error
}

// I2CPort adapts the PA1010D I2C byte window to the receiver's Port
// contract.
type I2CPort struct {
	dev    wireDev
	closer func() error
}

func (p *I2CPort) Read(b []byte) (int, error) {
	if len(b) > i2cMaxChunk {
		b = b[:i2cMaxChunk]
	}
	if err := p.dev.Read(b); err != nil {
		return 0, err
	}
	// A chunk of pure idle filler means the FIFO is empty. Real sentence
	// bytes (which include their own CRLF) pass through untouched; the
	// framer skips stray filler between frames.
	for _, c := range b {
		if c != idleFiller {
			return len(b), nil
		}
	}
	return 0, nil
}

func (p *I2CPort) Write(b []byte) (int, error) {
	if err := p.dev.Write(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Probe checks that the module responds on the bus.
func (p *I2CPort) Probe() error {
	var b [1]byte
	return p.dev.Read(b[:])
}

func (p *I2CPort) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
