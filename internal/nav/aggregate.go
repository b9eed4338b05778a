package nav

import (
	"time"

	"mtk3339/internal/nmea"
)

// Apply merges one decoded sentence into the state. Only the fields the
// sentence carries are written; everything else is untouched. The return
// value reports whether the published state changed meaningfully (a rewrite
// of an identical value refreshes the field's update time but does not count
// as a change).
func (st *State) Apply(nowUTC time.Time, s nmea.Sentence) bool {
	switch s := s.(type) {
	case nmea.GGA:
		return st.applyGGA(nowUTC, s)
	case nmea.RMC:
		return st.applyRMC(nowUTC, s)
	case nmea.GSA:
		return st.applyGSA(nowUTC, s)
	case nmea.GSV:
		return st.applyGSV(nowUTC, s)
	case nmea.VTG:
		return st.applyVTG(nowUTC, s)
	case nmea.GLL:
		return st.applyGLL(nowUTC, s)
	}
	// Unknown and Ack sentences never touch navigation state.
	return false
}

func (st *State) applyGGA(now time.Time, g nmea.GGA) bool {
	changed := false
	changed = st.setPosition(now, g.LatDeg, g.LonDeg) || changed
	changed = setFloat(&st.altitudeM, &st.altitudeAt, g.AltitudeM, now) || changed
	changed = setFloat(&st.hdop, &st.hdopAt, g.HDOP, now) || changed
	changed = setInt(&st.satsUsed, &st.satsUsedAt, g.NumSats, now) || changed
	if g.Quality != nil {
		// An explicit quality value is always applied, including the
		// downgrade to NoFix; absence never downgrades.
		changed = st.qualityAt.IsZero() || st.quality != *g.Quality || changed
		st.quality = *g.Quality
		st.qualityAt = now
	}
	changed = st.setTimeOfDay(now, g.Time) || changed
	return changed
}

func (st *State) applyRMC(now time.Time, m nmea.RMC) bool {
	changed := st.setTimeOfDay(now, m.Time)
	changed = st.setDate(now, m.Date) || changed
	if !m.Valid {
		// Void fix: time and date are still trustworthy, position and
		// motion are not.
		return changed
	}
	changed = st.setPosition(now, m.LatDeg, m.LonDeg) || changed
	changed = setFloat(&st.speedKnots, &st.speedAt, m.SpeedKnots, now) || changed
	changed = setFloat(&st.courseDeg, &st.courseAt, m.CourseDeg, now) || changed
	changed = setFloat(&st.magVarDeg, &st.magVarAt, m.MagVarDeg, now) || changed
	return changed
}

func (st *State) applyGSA(now time.Time, g nmea.GSA) bool {
	changed := false
	if g.Mode != nil {
		changed = st.modeAt.IsZero() || st.mode != *g.Mode
		st.mode = *g.Mode
		st.modeAt = now
	}
	changed = setFloat(&st.pdop, &st.pdopAt, g.PDOP, now) || changed
	changed = setFloat(&st.hdop, &st.hdopAt, g.HDOP, now) || changed
	changed = setFloat(&st.vdop, &st.vdopAt, g.VDOP, now) || changed

	used := make(map[int]bool, len(g.UsedPRNs))
	for _, prn := range g.UsedPRNs {
		used[prn] = true
	}
	if !sameSet(st.usedPRNs, used) {
		st.usedPRNs = used
		// Re-mark the published satellite set.
		for prn, sat := range st.satellites {
			if sat.Used != used[prn] {
				sat.Used = used[prn]
				st.satellites[prn] = sat
				changed = true
			}
		}
	}
	return changed
}

func (st *State) applyVTG(now time.Time, v nmea.VTG) bool {
	changed := setFloat(&st.courseDeg, &st.courseAt, v.TrackTrueDeg, now)
	changed = setFloat(&st.speedKnots, &st.speedAt, v.SpeedKnots, now) || changed
	return changed
}

func (st *State) applyGLL(now time.Time, g nmea.GLL) bool {
	changed := st.setTimeOfDay(now, g.Time)
	if !g.Valid {
		return changed
	}
	return st.setPosition(now, g.LatDeg, g.LonDeg) || changed
}

// setPosition writes lat/lon as a pair; a sentence carrying only half a
// position is ignored (the decoder already rejects coordinate-without-
// hemisphere, this guards coordinate-pair mismatch).
func (st *State) setPosition(now time.Time, lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	changed := st.positionAt.IsZero() || st.latDeg != *lat || st.lonDeg != *lon
	st.latDeg = *lat
	st.lonDeg = *lon
	st.positionAt = now
	return changed
}

func (st *State) setTimeOfDay(now time.Time, t *nmea.TimeOfDay) bool {
	if t == nil {
		return false
	}
	st.tod = *t
	st.todKnown = true
	return st.rebuildTimestamp(now)
}

func (st *State) setDate(now time.Time, d *nmea.Date) bool {
	if d == nil {
		return false
	}
	st.date = *d
	st.dateKnown = true
	return st.rebuildTimestamp(now)
}

// rebuildTimestamp combines the last seen date and time-of-day. With only
// one half known nothing is published; the missing half is never invented.
func (st *State) rebuildTimestamp(now time.Time) bool {
	if !st.todKnown || !st.dateKnown {
		return false
	}
	ts := time.Date(st.date.Year, time.Month(st.date.Month), st.date.Day,
		st.tod.Hour, st.tod.Minute, st.tod.Second,
		st.tod.Millisecond*int(time.Millisecond), time.UTC)
	changed := st.timestampAt.IsZero() || !st.timestamp.Equal(ts)
	st.timestamp = ts
	st.timestampAt = now
	return changed
}

func setFloat(dst *float64, at *time.Time, v *float64, now time.Time) bool {
	if v == nil {
		return false
	}
	changed := at.IsZero() || *dst != *v
	*dst = *v
	*at = now
	return changed
}

func setInt(dst *int, at *time.Time, v *int, now time.Time) bool {
	if v == nil {
		return false
	}
	changed := at.IsZero() || *dst != *v
	*dst = *v
	*at = now
	return changed
}

func sameSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
