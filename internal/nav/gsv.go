package nav

import (
	"time"

	"mtk3339/internal/nmea"
)

// GSV bursts arrive as 1..N sentences, each with up to four satellites. The
// set under assembly is kept off to the side and only swapped into the
// published state once the final part arrives; a burst that restarts before
// completing is discarded whole, never merged partially.
type gsvBurst struct {
	total      int
	next       int // 1-based index expected next; 0 when idle
	inView     int
	inViewSeen bool // some part carried the in-view count
	sats       []nmea.SatelliteInfo
}

func (b *gsvBurst) reset() {
	*b = gsvBurst{}
}

func (st *State) applyGSV(now time.Time, g nmea.GSV) bool {
	b := &st.burst

	switch {
	case g.Index == 1:
		// A new burst always starts here, dropping any incomplete
		// predecessor.
		b.reset()
		b.total = g.Total
		b.next = 1
	case b.next == 0 || g.Total != b.total || g.Index != b.next:
		// Out-of-sequence part: drop the whole burst and wait for the
		// next part 1.
		b.reset()
		return false
	}

	if g.InView != nil {
		b.inView = *g.InView
		b.inViewSeen = true
	}
	b.sats = append(b.sats, g.Satellites...)
	b.next++

	if g.Index < g.Total {
		return false
	}

	// Final part: publish atomically.
	published := make(map[int]Satellite, len(b.sats))
	for _, si := range b.sats {
		published[si.PRN] = Satellite{
			PRN:          si.PRN,
			ElevationDeg: si.ElevationDeg,
			AzimuthDeg:   si.AzimuthDeg,
			SNRDB:        si.SNRDB,
			Used:         st.usedPRNs[si.PRN],
		}
	}
	inView, inViewSeen := b.inView, b.inViewSeen
	b.reset()

	changed := !sameSatellites(st.satellites, published)
	st.satellites = published
	st.satellitesAt = now

	// A burst with the in-view field blank throughout leaves the count
	// untouched rather than inventing a zero.
	if inViewSeen {
		changed = setIntValue(&st.inView, &st.inViewAt, inView, now) || changed
	}
	return changed
}

func setIntValue(dst *int, at *time.Time, v int, now time.Time) bool {
	changed := at.IsZero() || *dst != v
	*dst = v
	*at = now
	return changed
}

func sameSatellites(a, b map[int]Satellite) bool {
	if len(a) != len(b) {
		return false
	}
	for prn, sa := range a {
		sb, ok := b[prn]
		if !ok {
			return false
		}
		if sa.Used != sb.Used ||
			!sameIntPtr(sa.ElevationDeg, sb.ElevationDeg) ||
			!sameIntPtr(sa.AzimuthDeg, sb.AzimuthDeg) ||
			!sameIntPtr(sa.SNRDB, sb.SNRDB) {
			return false
		}
	}
	return true
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
