// Package nav maintains the aggregated navigation state built from decoded
// NMEA sentences. Each field is independently absent until its source
// sentence type has been seen; the aggregator never fabricates values and
// never ages anything out itself; staleness is the caller's call, judged by
// the per-field update times.
package nav

import (
	"sort"
	"time"

	"mtk3339/internal/nmea"
)

// Satellite is one tracked satellite in the published set.
type Satellite struct {
	PRN          int
	ElevationDeg *int
	AzimuthDeg   *int
	SNRDB        *int
	Used         bool // PRN appears in the latest GSA used list
}

// State is the aggregated snapshot of the receiver. It is owned by exactly
// one caller (the receiver facade) and mutated in place via Apply.
type State struct {
	latDeg, lonDeg float64
	positionAt     time.Time

	altitudeM  float64
	altitudeAt time.Time

	speedKnots float64
	speedAt    time.Time

	courseDeg float64
	courseAt  time.Time

	magVarDeg float64
	magVarAt  time.Time

	quality   nmea.Quality
	qualityAt time.Time

	mode   nmea.FixMode
	modeAt time.Time

	pdop, hdop, vdop       float64
	pdopAt, hdopAt, vdopAt time.Time

	satsUsed   int
	satsUsedAt time.Time

	// Time-of-day and date arrive in separate sentences; the combined UTC
	// timestamp is only built once both halves are known.
	tod         nmea.TimeOfDay
	todKnown    bool
	date        nmea.Date
	dateKnown   bool
	timestamp   time.Time
	timestampAt time.Time

	satellites   map[int]Satellite
	satellitesAt time.Time
	usedPRNs     map[int]bool
	inView       int
	inViewAt     time.Time

	burst gsvBurst
}

// Snapshot is a read-only copy of the state. Nil pointers mark fields whose
// source sentence has not been seen since the last reset; the *At fields say
// when each group was last written.
type Snapshot struct {
	LatDeg     *float64
	LonDeg     *float64
	PositionAt time.Time

	AltitudeM  *float64
	AltitudeAt time.Time

	SpeedKnots *float64
	SpeedAt    time.Time

	CourseDeg *float64
	CourseAt  time.Time

	MagVarDeg *float64
	MagVarAt  time.Time

	Quality   *nmea.Quality
	QualityAt time.Time

	Mode   *nmea.FixMode
	ModeAt time.Time

	PDOP, HDOP, VDOP       *float64
	PDOPAt, HDOPAt, VDOPAt time.Time

	TimeUTC     *time.Time
	TimestampAt time.Time

	SatsUsed   *int
	SatsUsedAt time.Time

	SatsInView *int
	InViewAt   time.Time

	// Satellites is sorted by PRN.
	Satellites   []Satellite
	SatellitesAt time.Time
}

// Reset clears every field, as after a cold start.
func (st *State) Reset() {
	*st = State{}
}

// Snapshot copies the current state.
func (st *State) Snapshot() Snapshot {
	var out Snapshot
	if !st.positionAt.IsZero() {
		lat, lon := st.latDeg, st.lonDeg
		out.LatDeg, out.LonDeg = &lat, &lon
		out.PositionAt = st.positionAt
	}
	if !st.altitudeAt.IsZero() {
		v := st.altitudeM
		out.AltitudeM = &v
		out.AltitudeAt = st.altitudeAt
	}
	if !st.speedAt.IsZero() {
		v := st.speedKnots
		out.SpeedKnots = &v
		out.SpeedAt = st.speedAt
	}
	if !st.courseAt.IsZero() {
		v := st.courseDeg
		out.CourseDeg = &v
		out.CourseAt = st.courseAt
	}
	if !st.magVarAt.IsZero() {
		v := st.magVarDeg
		out.MagVarDeg = &v
		out.MagVarAt = st.magVarAt
	}
	if !st.qualityAt.IsZero() {
		v := st.quality
		out.Quality = &v
		out.QualityAt = st.qualityAt
	}
	if !st.modeAt.IsZero() {
		v := st.mode
		out.Mode = &v
		out.ModeAt = st.modeAt
	}
	if !st.pdopAt.IsZero() {
		v := st.pdop
		out.PDOP = &v
		out.PDOPAt = st.pdopAt
	}
	if !st.hdopAt.IsZero() {
		v := st.hdop
		out.HDOP = &v
		out.HDOPAt = st.hdopAt
	}
	if !st.vdopAt.IsZero() {
		v := st.vdop
		out.VDOP = &v
		out.VDOPAt = st.vdopAt
	}
	if !st.timestampAt.IsZero() {
		v := st.timestamp
		out.TimeUTC = &v
		out.TimestampAt = st.timestampAt
	}
	if !st.satsUsedAt.IsZero() {
		v := st.satsUsed
		out.SatsUsed = &v
		out.SatsUsedAt = st.satsUsedAt
	}
	if !st.inViewAt.IsZero() {
		v := st.inView
		out.SatsInView = &v
		out.InViewAt = st.inViewAt
	}
	if !st.satellitesAt.IsZero() {
		out.Satellites = st.sortedSatellites()
		out.SatellitesAt = st.satellitesAt
	}
	return out
}

func (st *State) sortedSatellites() []Satellite {
	out := make([]Satellite, 0, len(st.satellites))
	for _, s := range st.satellites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PRN < out[j].PRN })
	return out
}

// HasFix reports whether the receiver currently claims a position solution
// and a position has been seen.
func (st *State) HasFix() bool {
	if st.qualityAt.IsZero() || st.quality == nmea.QualityNoFix {
		return false
	}
	return !st.positionAt.IsZero()
}

// FixQuality returns the latest explicit fix quality, or QualityNoFix when
// none has been seen yet.
func (st *State) FixQuality() nmea.Quality {
	if st.qualityAt.IsZero() {
		return nmea.QualityNoFix
	}
	return st.quality
}

// FixType returns the latest GSA fix type, or FixNone when none has been
// seen yet.
func (st *State) FixType() nmea.FixMode {
	if st.modeAt.IsZero() {
		return nmea.FixNone
	}
	return st.mode
}

// Location returns the last known position. ok is false until a position
// sentence has been seen since the last reset.
func (st *State) Location() (latDeg, lonDeg float64, ok bool) {
	if st.positionAt.IsZero() {
		return 0, 0, false
	}
	return st.latDeg, st.lonDeg, true
}

// Altitude returns the last reported altitude above mean sea level.
func (st *State) Altitude() (meters float64, ok bool) {
	if st.altitudeAt.IsZero() {
		return 0, false
	}
	return st.altitudeM, true
}

// Speed returns the last reported ground speed.
func (st *State) Speed() (knots float64, ok bool) {
	if st.speedAt.IsZero() {
		return 0, false
	}
	return st.speedKnots, true
}

// Course returns the last reported course over ground, degrees true.
func (st *State) Course() (deg float64, ok bool) {
	if st.courseAt.IsZero() {
		return 0, false
	}
	return st.courseDeg, true
}

// Satellites returns the last complete satellites-in-view set, sorted by
// PRN, or nil before the first complete GSV burst.
func (st *State) Satellites() []Satellite {
	if st.satellitesAt.IsZero() {
		return nil
	}
	return st.sortedSatellites()
}

// DOP returns the latest dilution-of-precision values. Each is nil until a
// sentence has carried it.
func (st *State) DOP() (pdop, hdop, vdop *float64) {
	if !st.pdopAt.IsZero() {
		v := st.pdop
		pdop = &v
	}
	if !st.hdopAt.IsZero() {
		v := st.hdop
		hdop = &v
	}
	if !st.vdopAt.IsZero() {
		v := st.vdop
		vdop = &v
	}
	return pdop, hdop, vdop
}
