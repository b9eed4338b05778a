//go:build linux

// Package led drives a fix-status LED as a digital output via the Linux
// GPIO character device. The core never touches pins itself; the monitor
// daemon maps FixQuality onto this.
package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

type LED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// Open claims the given BCM GPIO as an output, initially off.
func Open(pin int) (*LED, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("led: invalid gpio pin %d", pin)
	}

	// On Pi, line names are commonly "GPIO18", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("mtk3339-fix"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &LED{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("led: gpio line %q not found (or busy)", lineName)
}

func (l *LED) Set(on bool) error {
	if l == nil || l.line == nil {
		return fmt.Errorf("led: not initialized")
	}
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

func (l *LED) Close() error {
	if l == nil || l.line == nil {
		return nil
	}
	_ = l.line.SetValue(0)
	err := l.line.Close()
	l.line = nil
	if l.chip != nil {
		_ = l.chip.Close()
		l.chip = nil
	}
	return err
}
