package nmea

import "strings"

// MaxSentenceLen bounds the framing buffer. NMEA 0183 caps sentences at 82
// characters; the MT3339 stays well under that, but allow headroom for
// PMTK replies and multi-constellation talkers.
const MaxSentenceLen = 128

// Diagnostics receives framing and decoding events that are absorbed rather
// than returned as errors. All methods must be cheap and non-blocking.
type Diagnostics interface {
	// FrameOverflow is called when the framing buffer fills without a
	// terminator. dropped is the number of bytes discarded.
	FrameOverflow(dropped int)
	// ChecksumMismatch is called with the raw frame whose checksum failed.
	ChecksumMismatch(raw string)
	// UnknownSentence is called with the address field of a sentence that
	// has no recognized decoder.
	UnknownSentence(tag string)
	// FieldError is called when a recognized sentence carries a malformed
	// field and is downgraded to Unknown.
	FieldError(tag string, err error)
}

type nopDiagnostics struct{}

func (nopDiagnostics) FrameOverflow(int)        {}
func (nopDiagnostics) ChecksumMismatch(string)  {}
func (nopDiagnostics) UnknownSentence(string)   {}
func (nopDiagnostics) FieldError(string, error) {}

// Counters is a Diagnostics implementation that simply counts events.
type Counters struct {
	Overflows    int
	BadChecksums int
	Unknown      int
	FieldErrors  int
}

func (c *Counters) FrameOverflow(int)        { c.Overflows++ }
func (c *Counters) ChecksumMismatch(string)  { c.BadChecksums++ }
func (c *Counters) UnknownSentence(string)   { c.Unknown++ }
func (c *Counters) FieldError(string, error) { c.FieldErrors++ }

// Checksum returns the XOR of all bytes of payload, i.e. the NMEA checksum
// over the bytes strictly between '$' and '*'.
func Checksum(payload string) byte {
	var ck byte
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return ck
}

// Frame is a single validated sentence, without the line terminator.
// Its checksum has already been verified by the Scanner.
type Frame struct {
	raw string // "$GPGGA,...*47"
}

// Raw returns the frame as received, e.g. "$GPGGA,...*47".
func (f Frame) Raw() string { return f.raw }

// payload returns the bytes between '$' and '*'.
func (f Frame) payload() string {
	star := strings.LastIndexByte(f.raw, '*')
	return f.raw[1:star]
}

// Tag returns the address field (talker id + sentence type), e.g. "GPGGA".
func (f Frame) Tag() string {
	p := f.payload()
	if i := strings.IndexByte(p, ','); i >= 0 {
		return p[:i]
	}
	return p
}

// Fields returns the comma-separated fields after the address field. Empty
// strings mark fields the receiver left blank.
func (f Frame) Fields() []string {
	parts := strings.Split(f.payload(), ",")
	return parts[1:]
}

// Scanner extracts validated frames from a raw byte stream. Feed it chunks
// in any alignment; partial sentences are retained across calls. The usage
// mirrors bufio.Scanner:
//
//	sc.Feed(chunk)
//	for sc.Scan() {
//		frame := sc.Frame()
//	}
type Scanner struct {
	diag Diagnostics

	pending []byte

	buf     [MaxSentenceLen]byte
	n       int
	inFrame bool

	frame Frame
}

func NewScanner(diag Diagnostics) *Scanner {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	return &Scanner{diag: diag}
}

// Feed appends raw bytes for framing. The slice is copied; callers may reuse
// their read buffer.
func (s *Scanner) Feed(p []byte) {
	s.pending = append(s.pending, p...)
}

// Scan consumes pending bytes until a validated frame is found. It returns
// false when the pending bytes are exhausted; feeding more bytes makes it
// resumable.
func (s *Scanner) Scan() bool {
	for len(s.pending) > 0 {
		c := s.pending[0]
		s.pending = s.pending[1:]

		switch {
		case c == '$':
			// A '$' inside a frame means the previous sentence was
			// truncated; restart on the new one.
			s.buf[0] = '$'
			s.n = 1
			s.inFrame = true
		case !s.inFrame:
			// Noise between sentences (including I2C idle filler).
		case c == '\r' || c == '\n':
			raw := string(s.buf[:s.n])
			s.inFrame = false
			s.n = 0
			if s.accept(raw) {
				return true
			}
		default:
			if s.n >= MaxSentenceLen {
				s.diag.FrameOverflow(s.n)
				s.inFrame = false
				s.n = 0
				continue
			}
			s.buf[s.n] = c
			s.n++
		}
	}
	return false
}

// Frame returns the frame found by the last successful Scan.
func (s *Scanner) Frame() Frame { return s.frame }

// accept validates a terminated candidate frame and stores it on success.
func (s *Scanner) accept(raw string) bool {
	star := strings.IndexByte(raw, '*')
	if star < 0 || star != len(raw)-3 {
		// No checksum, or trailing junk after it: a fragment, not a
		// checksum failure.
		return false
	}
	if strings.IndexByte(raw[star+1:], '*') >= 0 {
		return false
	}
	hi, ok1 := hexVal(raw[star+1])
	lo, ok2 := hexVal(raw[star+2])
	if !ok1 || !ok2 {
		return false
	}
	want := hi<<4 | lo
	if Checksum(raw[1:star]) != want {
		s.diag.ChecksumMismatch(raw)
		return false
	}
	s.frame = Frame{raw: raw}
	return true
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
