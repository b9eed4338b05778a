// Package receiver ties the framing, decoding, aggregation and command
// layers together behind a single poll-driven device handle.
package receiver

import (
	"errors"
	"fmt"
	"io"
	"time"

	"mtk3339/internal/geo"
	"mtk3339/internal/nav"
	"mtk3339/internal/nmea"
	"mtk3339/internal/pmtk"
)

// Port is the byte-stream boundary to the module (UART or I2C register
// window). Read must not block for data: it returns whatever is available,
// possibly (0, nil). The device never assumes the returned chunks align
// with sentence boundaries.
type Port interface {
	io.Reader
	io.Writer
}

// Config tunes a Device. The zero value is usable.
type Config struct {
	// ReadChunk is the per-Read buffer size. Default 256.
	ReadChunk int
	// AckCycles is how many Update calls to wait for a command
	// acknowledgement before retransmitting. Default 10.
	AckCycles int
	// Diagnostics receives absorbed framing/decoding events. Optional.
	Diagnostics nmea.Diagnostics
	// Now supplies the update-time markers. Default time.Now.
	Now func() time.Time
}

// Device is the receiver facade. It owns the navigation state and the
// pending command set exclusively. It is not safe for concurrent use; one
// caller drives Update from its own loop.
type Device struct {
	port    Port
	diag    nmea.Diagnostics
	now     func() time.Time
	scanner *nmea.Scanner
	engine  *pmtk.Engine
	state   nav.State

	readBuf      []byte
	lastSentence string
}

func New(port Port, cfg Config) (*Device, error) {
	if port == nil {
		return nil, errors.New("receiver: port is nil")
	}
	if cfg.ReadChunk <= 0 {
		cfg.ReadChunk = 256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Device{
		port:    port,
		diag:    cfg.Diagnostics,
		now:     cfg.Now,
		scanner: nmea.NewScanner(cfg.Diagnostics),
		engine:  pmtk.NewEngine(cfg.AckCycles),
		readBuf: make([]byte, cfg.ReadChunk),
	}, nil
}

// Update runs one poll cycle: pull available bytes, frame and decode them,
// route acknowledgements to the command engine and everything else into the
// navigation state, then advance command retry timers. It never blocks; a
// cycle with no complete sentences is a no-op. The returned bool reports
// whether the published navigation state changed.
//
// A transport error aborts this cycle but leaves the device usable.
func (d *Device) Update() (bool, error) {
	for {
		n, err := d.port.Read(d.readBuf)
		if n > 0 {
			d.scanner.Feed(d.readBuf[:n])
		}
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("receiver: read: %w", err)
		}
		if n < len(d.readBuf) || err == io.EOF {
			break
		}
	}

	changed := false
	nowUTC := d.now().UTC()
	for d.scanner.Scan() {
		frame := d.scanner.Frame()
		d.lastSentence = frame.Raw()
		s := nmea.Decode(frame, d.diag)
		if ack, ok := s.(nmea.Ack); ok {
			d.engine.OnAck(ack)
			continue
		}
		if d.state.Apply(nowUTC, s) {
			changed = true
		}
	}

	if err := d.engine.Tick(d.port); err != nil {
		return changed, err
	}
	return changed, nil
}

// Snapshot returns a copy of the aggregated navigation state.
func (d *Device) Snapshot() nav.Snapshot { return d.state.Snapshot() }

// HasFix reports whether the receiver currently claims a position solution.
func (d *Device) HasFix() bool { return d.state.HasFix() }

// FixQuality returns the latest fix quality; callers may use it to drive a
// fix-status pin themselves.
func (d *Device) FixQuality() nmea.Quality { return d.state.FixQuality() }

// FixType returns the latest 2D/3D fix type.
func (d *Device) FixType() nmea.FixMode { return d.state.FixType() }

// Location returns the last known position in signed decimal degrees.
func (d *Device) Location() (latDeg, lonDeg float64, ok bool) {
	return d.state.Location()
}

// Altitude returns the last reported altitude above mean sea level, meters.
func (d *Device) Altitude() (meters float64, ok bool) { return d.state.Altitude() }

// Speed returns the last reported ground speed in knots.
func (d *Device) Speed() (knots float64, ok bool) { return d.state.Speed() }

// Course returns the last reported course over ground, degrees true.
func (d *Device) Course() (deg float64, ok bool) { return d.state.Course() }

// Satellites returns the last complete satellites-in-view set, sorted by
// PRN.
func (d *Device) Satellites() []nav.Satellite { return d.state.Satellites() }

// DOP returns the latest dilution-of-precision values; nil per missing
// value.
func (d *Device) DOP() (pdop, hdop, vdop *float64) { return d.state.DOP() }

// DistanceTo returns the great-circle distance in meters from the last
// known position to the given point. ok is false until a position has been
// seen.
func (d *Device) DistanceTo(latDeg, lonDeg float64) (meters float64, ok bool) {
	lat, lon, ok := d.state.Location()
	if !ok {
		return 0, false
	}
	return geo.DistanceMeters(lat, lon, latDeg, lonDeg), true
}

// BearingTo returns the initial great-circle bearing in degrees from the
// last known position to the given point.
func (d *Device) BearingTo(latDeg, lonDeg float64) (deg float64, ok bool) {
	lat, lon, ok := d.state.Location()
	if !ok {
		return 0, false
	}
	return geo.InitialBearingDeg(lat, lon, latDeg, lonDeg), true
}

// LastSentence returns the most recent validated frame, for debugging.
func (d *Device) LastSentence() string { return d.lastSentence }

// PendingCommands reports how many issued commands still await an
// acknowledgement.
func (d *Device) PendingCommands() int { return d.engine.PendingCount() }

// SetUpdateRate asks the module for a new fix interval.
func (d *Device) SetUpdateRate(interval time.Duration) (*pmtk.Handle, error) {
	cmd, err := pmtk.SetUpdateRate(int(interval / time.Millisecond))
	if err != nil {
		return nil, err
	}
	return d.engine.Issue(d.port, cmd)
}

// SetOutput selects which sentence types the module emits.
func (d *Device) SetOutput(mask pmtk.OutputMask) (*pmtk.Handle, error) {
	return d.engine.Issue(d.port, pmtk.SetOutput(mask))
}

// HotStart restarts the module using all stored navigation data.
func (d *Device) HotStart() (*pmtk.Handle, error) {
	return d.engine.Issue(d.port, pmtk.HotStart())
}

// WarmStart restarts the module without stored ephemeris.
func (d *Device) WarmStart() (*pmtk.Handle, error) {
	return d.engine.Issue(d.port, pmtk.WarmStart())
}

// ColdStart restarts the module from scratch and clears the aggregated
// navigation state, the one case where the state is replaced wholesale.
func (d *Device) ColdStart() (*pmtk.Handle, error) {
	h, err := d.engine.Issue(d.port, pmtk.ColdStart())
	if err != nil {
		return nil, err
	}
	d.state.Reset()
	return h, nil
}

// FullColdStart is ColdStart plus a reset of the module's own settings.
func (d *Device) FullColdStart() (*pmtk.Handle, error) {
	h, err := d.engine.Issue(d.port, pmtk.FullColdStart())
	if err != nil {
		return nil, err
	}
	d.state.Reset()
	return h, nil
}

// Cancel withdraws a pending command.
func (d *Device) Cancel(h *pmtk.Handle) { d.engine.Cancel(h) }
