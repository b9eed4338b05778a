package nmea

import "fmt"

// Sentence is one decoded NMEA sentence. The concrete type identifies the
// sentence kind; fields the receiver left blank are nil pointers, never zero
// values.
type Sentence interface {
	// Tag returns the full address field as received, e.g. "GPGGA" or
	// "PMTK001".
	Tag() string
}

// Quality is the GGA fix quality indicator.
type Quality int

const (
	QualityNoFix     Quality = 0
	QualityGPS       Quality = 1
	QualityDGPS      Quality = 2
	QualityEstimated Quality = 6
)

func (q Quality) String() string {
	switch q {
	case QualityNoFix:
		return "none"
	case QualityGPS:
		return "gps"
	case QualityDGPS:
		return "dgps"
	case QualityEstimated:
		return "estimated"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// FixMode is the GSA fix type.
type FixMode int

const (
	FixNone FixMode = 1
	Fix2D   FixMode = 2
	Fix3D   FixMode = 3
)

func (m FixMode) String() string {
	switch m {
	case FixNone:
		return "none"
	case Fix2D:
		return "2d"
	case Fix3D:
		return "3d"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// TimeOfDay is a UTC time-of-day from an hhmmss[.sss] field.
type TimeOfDay struct {
	Hour, Minute, Second, Millisecond int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// Date is a UTC date from a ddmmyy field. Years are mapped into 20xx.
type Date struct {
	Day, Month, Year int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// SatelliteInfo is one satellite entry from a GSV sentence.
type SatelliteInfo struct {
	PRN          int
	ElevationDeg *int // 0..90
	AzimuthDeg   *int // 0..359
	SNRDB        *int // nil while not tracking
}

// GGA: fix data (position, quality, satellites used, HDOP, altitude).
type GGA struct {
	Talker    string
	Time      *TimeOfDay
	LatDeg    *float64
	LonDeg    *float64
	Quality   *Quality
	NumSats   *int
	HDOP      *float64
	AltitudeM *float64
	GeoidSepM *float64
}

func (s GGA) Tag() string { return s.Talker + "GGA" }

// RMC: recommended minimum (position, speed, course, date/time, validity).
type RMC struct {
	Talker     string
	Time       *TimeOfDay
	Date       *Date
	Valid      bool // status field: A=valid, V=void
	LatDeg     *float64
	LonDeg     *float64
	SpeedKnots *float64
	CourseDeg  *float64
	MagVarDeg  *float64 // signed: east positive, west negative
}

func (s RMC) Tag() string { return s.Talker + "RMC" }

// GSA: DOP and PRNs of satellites used in the fix.
type GSA struct {
	Talker   string
	Auto     bool // selection mode: A=automatic, M=manual
	Mode     *FixMode
	UsedPRNs []int
	PDOP     *float64
	HDOP     *float64
	VDOP     *float64
}

func (s GSA) Tag() string { return s.Talker + "GSA" }

// GSV: one part of a satellites-in-view burst.
type GSV struct {
	Talker     string
	Total      int // sentences in this burst
	Index      int // 1-based index of this sentence
	InView     *int
	Satellites []SatelliteInfo // up to 4 per sentence
}

func (s GSV) Tag() string { return s.Talker + "GSV" }

// VTG: track made good and ground speed.
type VTG struct {
	Talker       string
	TrackTrueDeg *float64
	TrackMagDeg  *float64
	SpeedKnots   *float64
	SpeedKmh     *float64
}

func (s VTG) Tag() string { return s.Talker + "VTG" }

// GLL: geographic position and time.
type GLL struct {
	Talker string
	LatDeg *float64
	LonDeg *float64
	Time   *TimeOfDay
	Valid  bool
}

func (s GLL) Tag() string { return s.Talker + "GLL" }

// AckResult is the PMTK001 result code.
type AckResult int

const (
	AckInvalid     AckResult = 0
	AckUnsupported AckResult = 1
	AckFailed      AckResult = 2 // valid command, action failed
	AckOK          AckResult = 3
)

func (r AckResult) String() string {
	switch r {
	case AckInvalid:
		return "invalid"
	case AckUnsupported:
		return "unsupported"
	case AckFailed:
		return "failed"
	case AckOK:
		return "ok"
	}
	return fmt.Sprintf("ack(%d)", int(r))
}

// Ack is a PMTK001 acknowledgement for a proprietary command.
type Ack struct {
	Cmd    int // the PMTK command id being acknowledged
	Result AckResult
}

func (s Ack) Tag() string { return "PMTK001" }

// Unknown is a structurally valid sentence this decoder has no mapping for,
// or a recognized sentence downgraded because of a malformed field.
type Unknown struct {
	RawTag string
	// Err is non-nil when a recognized sentence was downgraded.
	Err error
}

func (s Unknown) Tag() string { return s.RawTag }
