package receiver

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mtk3339/internal/nmea"
	"mtk3339/internal/pmtk"
)

// fakePort scripts the module side of the wire: each element of chunks is
// returned by one Read, then Reads return (0, nil) like an idle UART.
type fakePort struct {
	chunks  [][]byte
	readErr error
	writes  []string
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		err := p.readErr
		p.readErr = nil
		return 0, err
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	c := p.chunks[0]
	n := copy(b, c)
	if n < len(c) {
		p.chunks[0] = c[n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *fakePort) push(lines ...string) {
	p.chunks = append(p.chunks, []byte(strings.Join(lines, "")))
}

func line(payload string) string {
	return fmt.Sprintf("$%s*%02X\r\n", payload, nmea.Checksum(payload))
}

func newDevice(t *testing.T, port *fakePort, cfg Config) *Device {
	t.Helper()
	d, err := New(port, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestNew_NilPort(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Fatalf("New(nil) must fail")
	}
}

func TestUpdate_AggregatesFix(t *testing.T) {
	port := &fakePort{}
	port.push(
		line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		line("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	)
	d := newDevice(t, port, Config{})

	changed, err := d.Update()
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !changed {
		t.Fatalf("first fix must report changed")
	}
	if !d.HasFix() || d.FixQuality() != nmea.QualityGPS {
		t.Fatalf("fix=%v quality=%v", d.HasFix(), d.FixQuality())
	}
	lat, lon, ok := d.Location()
	if !ok || lat < 48.11 || lat > 48.12 || lon < 11.51 || lon > 11.52 {
		t.Fatalf("location=%v,%v,%v", lat, lon, ok)
	}
	snap := d.Snapshot()
	if snap.TimeUTC == nil || snap.SpeedKnots == nil {
		t.Fatalf("snapshot missing RMC fields: %+v", snap)
	}
	if !strings.HasPrefix(d.LastSentence(), "$GPRMC") {
		t.Fatalf("last sentence=%q", d.LastSentence())
	}

	// An idle cycle changes nothing.
	changed, err = d.Update()
	if err != nil || changed {
		t.Fatalf("idle cycle: changed=%v err=%v", changed, err)
	}
}

func TestQueryAccessors(t *testing.T) {
	port := &fakePort{}
	d := newDevice(t, port, Config{})

	// Nothing seen yet: every query reports absence.
	if _, ok := d.Altitude(); ok {
		t.Fatalf("altitude present before any sentence")
	}
	if _, ok := d.Speed(); ok {
		t.Fatalf("speed present before any sentence")
	}
	if _, ok := d.Course(); ok {
		t.Fatalf("course present before any sentence")
	}
	if d.Satellites() != nil {
		t.Fatalf("satellites present before any burst")
	}
	if p, h, v := d.DOP(); p != nil || h != nil || v != nil {
		t.Fatalf("dop present before any sentence")
	}
	if d.FixType() != nmea.FixNone {
		t.Fatalf("fix type=%v before any GSA", d.FixType())
	}

	port.push(
		line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		line("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
		line("GPGSA,A,3,08,,,,,,,,,,,,2.5,1.3,2.1"),
		line("GPGSV,1,1,02,07,17,049,30,08,62,140,35"),
	)
	if _, err := d.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	if alt, ok := d.Altitude(); !ok || alt != 545.4 {
		t.Fatalf("altitude=%v,%v", alt, ok)
	}
	if spd, ok := d.Speed(); !ok || spd != 22.4 {
		t.Fatalf("speed=%v,%v", spd, ok)
	}
	if crs, ok := d.Course(); !ok || crs != 84.4 {
		t.Fatalf("course=%v,%v", crs, ok)
	}
	if d.FixType() != nmea.Fix3D {
		t.Fatalf("fix type=%v", d.FixType())
	}
	p, h, v := d.DOP()
	if p == nil || *p != 2.5 || h == nil || *h != 1.3 || v == nil || *v != 2.1 {
		t.Fatalf("dop=%v,%v,%v", p, h, v)
	}
	sats := d.Satellites()
	if len(sats) != 2 || sats[0].PRN != 7 || sats[1].PRN != 8 {
		t.Fatalf("satellites=%+v", sats)
	}
	if sats[0].Used || !sats[1].Used {
		t.Fatalf("used flags=%+v", sats)
	}
}

func TestDistanceAndBearingTo(t *testing.T) {
	port := &fakePort{}
	d := newDevice(t, port, Config{})

	if _, ok := d.DistanceTo(48, 11); ok {
		t.Fatalf("distance computed before a position")
	}
	if _, ok := d.BearingTo(48, 11); ok {
		t.Fatalf("bearing computed before a position")
	}

	port.push(line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	if _, err := d.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	lat, lon, ok := d.Location()
	if !ok {
		t.Fatalf("no position after fix")
	}

	if dist, ok := d.DistanceTo(lat, lon); !ok || dist != 0 {
		t.Fatalf("self distance=%v,%v", dist, ok)
	}
	// One degree of latitude due north is about 111.2 km at bearing 0.
	dist, ok := d.DistanceTo(lat+1, lon)
	if !ok || dist < 110_000 || dist > 113_000 {
		t.Fatalf("distance=%v,%v", dist, ok)
	}
	bearing, ok := d.BearingTo(lat+1, lon)
	if !ok || bearing > 0.01 {
		t.Fatalf("bearing=%v,%v want due north", bearing, ok)
	}
}

func TestUpdate_SentenceSplitAcrossCycles(t *testing.T) {
	full := line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	port := &fakePort{}
	port.chunks = [][]byte{[]byte(full[:20])}
	d := newDevice(t, port, Config{})

	if changed, _ := d.Update(); changed {
		t.Fatalf("partial sentence must not change state")
	}
	port.chunks = [][]byte{[]byte(full[20:])}
	if changed, _ := d.Update(); !changed {
		t.Fatalf("completed sentence must change state")
	}
}

func TestUpdate_AckRoutedToEngineNotState(t *testing.T) {
	port := &fakePort{}
	d := newDevice(t, port, Config{})

	h, err := d.SetUpdateRate(time.Second)
	if err != nil {
		t.Fatalf("set update rate: %v", err)
	}
	if len(port.writes) != 1 || port.writes[0] != "$PMTK220,1000*1F\r\n" {
		t.Fatalf("writes=%q", port.writes)
	}
	if d.PendingCommands() != 1 {
		t.Fatalf("pending=%d", d.PendingCommands())
	}

	port.push(line("PMTK001,220,3"))
	changed, err := d.Update()
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if changed {
		t.Fatalf("an ack must not change navigation state")
	}
	if h.Status() != pmtk.StatusAcked || d.PendingCommands() != 0 {
		t.Fatalf("status=%v pending=%d", h.Status(), d.PendingCommands())
	}
}

func TestUpdate_RetriesThroughUpdateCycles(t *testing.T) {
	port := &fakePort{}
	d := newDevice(t, port, Config{AckCycles: 2})

	h, _ := d.SetUpdateRate(time.Second)
	for i := 0; i < 20 && !h.Done(); i++ {
		if _, err := d.Update(); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if h.Status() != pmtk.StatusFailed {
		t.Fatalf("status=%v want failed", h.Status())
	}
	if len(port.writes) != 4 {
		t.Fatalf("transmissions=%d want 4", len(port.writes))
	}
}

func TestUpdate_TransportErrorLeavesDeviceUsable(t *testing.T) {
	port := &fakePort{}
	port.push(line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	d := newDevice(t, port, Config{})
	if _, err := d.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	port.readErr = errors.New("i2c timeout")
	if _, err := d.Update(); err == nil {
		t.Fatalf("transport error must surface")
	}

	// State survives and the next cycle works again.
	if !d.HasFix() {
		t.Fatalf("state lost after transport error")
	}
	port.push(line("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K"))
	if changed, err := d.Update(); err != nil || !changed {
		t.Fatalf("recovery cycle: changed=%v err=%v", changed, err)
	}
}

func TestUpdate_DiagnosticsWired(t *testing.T) {
	var diag nmea.Counters
	port := &fakePort{}
	port.push(
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00\r\n",
		line("GPZDA,201530.00,04,07,2002,00,00"),
	)
	d := newDevice(t, port, Config{Diagnostics: &diag})
	if _, err := d.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if diag.BadChecksums != 1 || diag.Unknown != 1 {
		t.Fatalf("diag=%+v", diag)
	}
}

func TestColdStart_ResetsState(t *testing.T) {
	port := &fakePort{}
	port.push(line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	d := newDevice(t, port, Config{})
	d.Update()
	if !d.HasFix() {
		t.Fatalf("no fix before cold start")
	}

	h, err := d.ColdStart()
	if err != nil {
		t.Fatalf("cold start: %v", err)
	}
	if h.Status() != pmtk.StatusUnconfirmed {
		t.Fatalf("status=%v", h.Status())
	}
	if d.HasFix() {
		t.Fatalf("state survived cold start")
	}
	if got := port.writes[len(port.writes)-1]; got != "$PMTK103*30\r\n" {
		t.Fatalf("wire=%q", got)
	}
}

func TestHotStart_KeepsState(t *testing.T) {
	port := &fakePort{}
	port.push(line("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	d := newDevice(t, port, Config{})
	d.Update()

	if _, err := d.HotStart(); err != nil {
		t.Fatalf("hot start: %v", err)
	}
	if !d.HasFix() {
		t.Fatalf("hot start must not clear state")
	}
}

func TestSetUpdateRate_RejectsOutOfRange(t *testing.T) {
	d := newDevice(t, &fakePort{}, Config{})
	if _, err := d.SetUpdateRate(50 * time.Millisecond); err == nil {
		t.Fatalf("50ms must be rejected")
	}
	if _, err := d.SetUpdateRate(time.Minute); err == nil {
		t.Fatalf("60s must be rejected")
	}
}

func TestCancel(t *testing.T) {
	port := &fakePort{}
	d := newDevice(t, port, Config{})
	h, _ := d.SetOutput(pmtk.OutputMask{RMC: true, GGA: true})
	d.Cancel(h)
	if h.Status() != pmtk.StatusCancelled || d.PendingCommands() != 0 {
		t.Fatalf("status=%v pending=%d", h.Status(), d.PendingCommands())
	}
}
