//go:build !linux

package led

import "fmt"

type LED struct{}

func Open(pin int) (*LED, error) {
	return nil, fmt.Errorf("led: gpio unsupported on this platform")
}

func (l *LED) Set(on bool) error { return nil }
func (l *LED) Close() error      { return nil }
