package transport

import (
	"fmt"

	"mtk3339/internal/i2c"
)

// I2CConfig describes the I2C attachment.
type I2CConfig struct {
	// Bus is the bus device path, e.g. /dev/i2c-1.
	Bus string
	// Addr is the module's 7-bit address; 0 means DefaultI2CAddr.
	Addr uint16
}

func OpenI2C(cfg I2CConfig) (*I2CPort, error) {
	if cfg.Bus == "" {
		return nil, fmt.Errorf("transport: i2c bus path is required")
	}
	if cfg.Addr == 0 {
		cfg.Addr = DefaultI2CAddr
	}

	bus, err := i2c.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Bus, err)
	}
	port := &I2CPort{dev: bus.Dev(cfg.Addr), closer: bus.Close}
	if err := port.Probe(); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("transport: no response at 0x%02X on %s: %w", cfg.Addr, cfg.Bus, err)
	}
	return port, nil
}
