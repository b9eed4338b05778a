package transport

import (
	"bytes"
	"errors"
	"testing"
)

// scriptDev plays back canned I2C read chunks and records writes.
type scriptDev struct {
	reads  [][]byte
	err    error
	writes [][]byte
}

func (d *scriptDev) Write(p []byte) error {
	if d.err != nil {
		return d.err
	}
	d.writes = append(d.writes, append([]byte(nil), p...))
	return nil
}

func (d *scriptDev) Read(p []byte) error {
	if d.err != nil {
		return d.err
	}
	var chunk []byte
	if len(d.reads) > 0 {
		chunk = d.reads[0]
		d.reads = d.reads[1:]
	}
	copy(p, chunk)
	// The module pads short responses with idle filler.
	for i := len(chunk); i < len(p); i++ {
		p[i] = idleFiller
	}
	return nil
}

func TestI2CPort_ReadPassesSentenceBytes(t *testing.T) {
	dev := &scriptDev{reads: [][]byte{[]byte("$GPGGA,1*00\r\n")}}
	port := &I2CPort{dev: dev}

	b := make([]byte, 32)
	n, err := port.Read(b)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != len(b) {
		t.Fatalf("n=%d want full chunk", n)
	}
	if !bytes.HasPrefix(b, []byte("$GPGGA")) {
		t.Fatalf("chunk=%q", b[:n])
	}
}

func TestI2CPort_IdleFillerReadsAsEmpty(t *testing.T) {
	dev := &scriptDev{} // nothing queued: every read is pure filler
	port := &I2CPort{dev: dev}

	b := make([]byte, 64)
	n, err := port.Read(b)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0 for idle filler", n)
	}
}

func TestI2CPort_ReadCappedAtModuleMax(t *testing.T) {
	dev := &scriptDev{reads: [][]byte{bytes.Repeat([]byte{'x'}, 512)}}
	port := &I2CPort{dev: dev}

	b := make([]byte, 512)
	n, err := port.Read(b)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != i2cMaxChunk {
		t.Fatalf("n=%d want %d", n, i2cMaxChunk)
	}
}

func TestI2CPort_WritePassthrough(t *testing.T) {
	dev := &scriptDev{}
	port := &I2CPort{dev: dev}

	frame := []byte("$PMTK220,1000*1F\r\n")
	n, err := port.Write(frame)
	if err != nil || n != len(frame) {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	if len(dev.writes) != 1 || !bytes.Equal(dev.writes[0], frame) {
		t.Fatalf("writes=%q", dev.writes)
	}
}

func TestI2CPort_BusErrorSurfaces(t *testing.T) {
	dev := &scriptDev{err: errors.New("i2c nack")}
	port := &I2CPort{dev: dev}

	if _, err := port.Read(make([]byte, 8)); err == nil {
		t.Fatalf("read must surface the bus error")
	}
	if err := port.Probe(); err == nil {
		t.Fatalf("probe must surface the bus error")
	}
	if _, err := port.Write([]byte("x")); err == nil {
		t.Fatalf("write must surface the bus error")
	}
}

func TestI2CPort_CloseWithoutCloser(t *testing.T) {
	port := &I2CPort{dev: &scriptDev{}}
	if err := port.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
