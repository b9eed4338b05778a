// Package pmtk builds and tracks the MT3339 proprietary command protocol:
// commands go out as $PMTK<id>,<args>*hh\r\n and, for most ids, the chipset
// answers with a generic $PMTK001,<id>,<result> acknowledgement.
package pmtk

import (
	"fmt"
	"strconv"
	"strings"

	"mtk3339/internal/nmea"
)

// Kind identifies one supported command. The set is closed; anything else
// the chipset speaks is out of scope.
type Kind int

const (
	KindSetUpdateRate Kind = iota
	KindSetOutput
	KindHotStart
	KindWarmStart
	KindColdStart
	KindFullColdStart
)

func (k Kind) String() string {
	switch k {
	case KindSetUpdateRate:
		return "set-update-rate"
	case KindSetOutput:
		return "set-output"
	case KindHotStart:
		return "hot-start"
	case KindWarmStart:
		return "warm-start"
	case KindColdStart:
		return "cold-start"
	case KindFullColdStart:
		return "full-cold-start"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const (
	idAck           = 1
	idHotStart      = 101
	idWarmStart     = 102
	idColdStart     = 103
	idFullColdStart = 104
	idSetUpdateRate = 220
	idSetOutput     = 314
)

// Command is one encodable chipset command.
type Command struct {
	kind Kind
	id   int
	args []string
	ack  bool // false for start commands, which reset instead of acking
}

func (c Command) Kind() Kind { return c.kind }

// ID returns the three-digit PMTK command id.
func (c Command) ID() int { return c.id }

// ExpectsAck reports whether the chipset replies with PMTK001 for this
// command.
func (c Command) ExpectsAck() bool { return c.ack }

// Encode renders the full wire frame including checksum and CRLF.
func (c Command) Encode() []byte {
	payload := fmt.Sprintf("PMTK%03d", c.id)
	if len(c.args) > 0 {
		payload += "," + strings.Join(c.args, ",")
	}
	return []byte(fmt.Sprintf("$%s*%02X\r\n", payload, nmea.Checksum(payload)))
}

// SetUpdateRate sets the position fix interval. The chipset accepts 100 ms
// (10 Hz) through 10000 ms.
func SetUpdateRate(intervalMS int) (Command, error) {
	if intervalMS < 100 || intervalMS > 10000 {
		return Command{}, fmt.Errorf("pmtk: update interval %d ms out of range [100,10000]", intervalMS)
	}
	return Command{
		kind: KindSetUpdateRate,
		id:   idSetUpdateRate,
		args: []string{strconv.Itoa(intervalMS)},
		ack:  true,
	}, nil
}

// OutputMask selects which sentence types the receiver emits. A true field
// means "every fix"; false disables that sentence.
type OutputMask struct {
	GLL bool
	RMC bool
	VTG bool
	GGA bool
	GSA bool
	GSV bool
}

// SetOutput builds the PMTK314 sentence-output command for the mask.
func SetOutput(mask OutputMask) Command {
	// PMTK314 takes 19 per-sentence frequency dividers; the first six are
	// GLL, RMC, VTG, GGA, GSA, GSV. The rest are reserved or unsupported
	// on this chipset and stay 0.
	args := make([]string, 19)
	for i := range args {
		args[i] = "0"
	}
	set := func(i int, on bool) {
		if on {
			args[i] = "1"
		}
	}
	set(0, mask.GLL)
	set(1, mask.RMC)
	set(2, mask.VTG)
	set(3, mask.GGA)
	set(4, mask.GSA)
	set(5, mask.GSV)
	return Command{kind: KindSetOutput, id: idSetOutput, args: args, ack: true}
}

// HotStart restarts using all stored navigation data.
func HotStart() Command {
	return Command{kind: KindHotStart, id: idHotStart}
}

// WarmStart restarts without ephemeris.
func WarmStart() Command {
	return Command{kind: KindWarmStart, id: idWarmStart}
}

// ColdStart restarts without time, position, almanac or ephemeris.
func ColdStart() Command {
	return Command{kind: KindColdStart, id: idColdStart}
}

// FullColdStart additionally clears system and user settings, as after a
// power-on.
func FullColdStart() Command {
	return Command{kind: KindFullColdStart, id: idFullColdStart}
}

// Parse splits an encoded PMTK frame back into id and args. It is the
// inverse of Command.Encode and is handy for receiver simulators and tests;
// the checksum must be valid.
func Parse(frame string) (id int, args []string, err error) {
	frame = strings.TrimRight(frame, "\r\n")
	if !strings.HasPrefix(frame, "$PMTK") {
		return 0, nil, fmt.Errorf("pmtk: not a PMTK frame")
	}
	star := strings.LastIndexByte(frame, '*')
	if star < 0 || star+3 != len(frame) {
		return 0, nil, fmt.Errorf("pmtk: missing checksum")
	}
	payload := frame[1:star]
	want, perr := strconv.ParseUint(frame[star+1:], 16, 8)
	if perr != nil {
		return 0, nil, fmt.Errorf("pmtk: bad checksum: %v", perr)
	}
	if nmea.Checksum(payload) != byte(want) {
		return 0, nil, fmt.Errorf("pmtk: checksum mismatch")
	}
	parts := strings.Split(payload, ",")
	id, perr = strconv.Atoi(strings.TrimPrefix(parts[0], "PMTK"))
	if perr != nil {
		return 0, nil, fmt.Errorf("pmtk: bad command id %q", parts[0])
	}
	return id, parts[1:], nil
}
