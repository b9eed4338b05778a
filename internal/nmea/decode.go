package nmea

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode turns a validated frame into a typed sentence. Recognized sentences
// with malformed fields are downgraded to Unknown (never partially
// populated); unrecognized address fields yield Unknown with a nil Err.
func Decode(f Frame, diag Diagnostics) Sentence {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	tag := f.Tag()

	if strings.HasPrefix(tag, "PMTK") {
		return decodeAck(f, tag, diag)
	}

	// Address field is talker id (2 chars) + sentence type (3 chars).
	// GPS-only modules say GPxxx, multi-constellation firmware GNxxx;
	// dispatch on the type alone.
	if len(tag) != 5 {
		diag.UnknownSentence(tag)
		return Unknown{RawTag: tag}
	}
	talker, typ := tag[:2], tag[2:]

	r := fieldReader{tag: tag, fields: f.Fields()}
	var s Sentence
	switch typ {
	case "GGA":
		s = decodeGGA(talker, &r)
	case "RMC":
		s = decodeRMC(talker, &r)
	case "GSA":
		s = decodeGSA(talker, &r)
	case "GSV":
		s = decodeGSV(talker, &r)
	case "VTG":
		s = decodeVTG(talker, &r)
	case "GLL":
		s = decodeGLL(talker, &r)
	default:
		diag.UnknownSentence(tag)
		return Unknown{RawTag: tag}
	}
	if r.err != nil {
		diag.FieldError(tag, r.err)
		return Unknown{RawTag: tag, Err: r.err}
	}
	return s
}

func decodeGGA(talker string, r *fieldReader) Sentence {
	g := GGA{Talker: talker}
	g.Time = r.timeOfDay(0)
	g.LatDeg = r.latLon(1, 2, 'N', 'S')
	g.LonDeg = r.latLon(3, 4, 'E', 'W')
	if q := r.intPtr(5); q != nil {
		quality := Quality(*q)
		g.Quality = &quality
	}
	g.NumSats = r.intPtr(6)
	g.HDOP = r.floatPtr(7)
	g.AltitudeM = r.floatPtr(8)
	g.GeoidSepM = r.floatPtr(10)
	return g
}

func decodeRMC(talker string, r *fieldReader) Sentence {
	m := RMC{Talker: talker}
	m.Time = r.timeOfDay(0)
	m.Valid = r.str(1) == "A"
	m.LatDeg = r.latLon(2, 3, 'N', 'S')
	m.LonDeg = r.latLon(4, 5, 'E', 'W')
	m.SpeedKnots = r.floatPtr(6)
	m.CourseDeg = r.floatPtr(7)
	m.Date = r.date(8)
	if v := r.floatPtr(9); v != nil {
		mv := *v
		if r.str(10) == "W" {
			mv = -mv
		}
		m.MagVarDeg = &mv
	}
	return m
}

func decodeGSA(talker string, r *fieldReader) Sentence {
	g := GSA{Talker: talker}
	g.Auto = r.str(0) == "A"
	if m := r.intPtr(1); m != nil {
		mode := FixMode(*m)
		g.Mode = &mode
	}
	for i := 2; i < 14; i++ {
		if prn := r.intPtr(i); prn != nil {
			g.UsedPRNs = append(g.UsedPRNs, *prn)
		}
	}
	g.PDOP = r.floatPtr(14)
	g.HDOP = r.floatPtr(15)
	g.VDOP = r.floatPtr(16)
	return g
}

func decodeGSV(talker string, r *fieldReader) Sentence {
	g := GSV{Talker: talker}
	g.Total = r.requiredInt(0)
	g.Index = r.requiredInt(1)
	g.InView = r.intPtr(2)
	if r.err == nil && (g.Total < 1 || g.Index < 1 || g.Index > g.Total) {
		r.fail(fmt.Errorf("gsv part %d of %d out of range", g.Index, g.Total))
	}
	// Up to four satellite blocks of PRN, elevation, azimuth, SNR.
	for base := 3; base < len(r.fields) && base < 19; base += 4 {
		prn := r.intPtr(base)
		if prn == nil {
			continue
		}
		g.Satellites = append(g.Satellites, SatelliteInfo{
			PRN:          *prn,
			ElevationDeg: r.intPtr(base + 1),
			AzimuthDeg:   r.intPtr(base + 2),
			SNRDB:        r.intPtr(base + 3),
		})
	}
	return g
}

func decodeVTG(talker string, r *fieldReader) Sentence {
	v := VTG{Talker: talker}
	v.TrackTrueDeg = r.floatPtr(0)
	v.TrackMagDeg = r.floatPtr(2)
	v.SpeedKnots = r.floatPtr(4)
	v.SpeedKmh = r.floatPtr(6)
	return v
}

func decodeGLL(talker string, r *fieldReader) Sentence {
	g := GLL{Talker: talker}
	g.LatDeg = r.latLon(0, 1, 'N', 'S')
	g.LonDeg = r.latLon(2, 3, 'E', 'W')
	g.Time = r.timeOfDay(4)
	g.Valid = r.str(5) == "A"
	return g
}

func decodeAck(f Frame, tag string, diag Diagnostics) Sentence {
	if tag != "PMTK001" {
		// Other PMTK replies (release strings, EPO status, ...) are not
		// part of the supported command subset.
		diag.UnknownSentence(tag)
		return Unknown{RawTag: tag}
	}
	r := fieldReader{tag: tag, fields: f.Fields()}
	a := Ack{}
	a.Cmd = r.requiredInt(0)
	a.Result = AckResult(r.requiredInt(1))
	if r.err != nil {
		diag.FieldError(tag, r.err)
		return Unknown{RawTag: tag, Err: r.err}
	}
	return a
}

// fieldReader reads positional fields, treating blank fields as absent and
// collecting the first malformed-field error. Indexes are relative to the
// first field after the address.
type fieldReader struct {
	tag    string
	fields []string
	err    error
}

func (r *fieldReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *fieldReader) str(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r *fieldReader) floatPtr(i int) *float64 {
	s := r.str(i)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(fmt.Errorf("%s field %d: bad number %q", r.tag, i+1, s))
		return nil
	}
	return &v
}

func (r *fieldReader) intPtr(i int) *int {
	s := r.str(i)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.fail(fmt.Errorf("%s field %d: bad integer %q", r.tag, i+1, s))
		return nil
	}
	return &v
}

func (r *fieldReader) requiredInt(i int) int {
	v := r.intPtr(i)
	if v == nil {
		r.fail(fmt.Errorf("%s field %d: missing required integer", r.tag, i+1))
		return 0
	}
	return *v
}

// latLon converts ddmm.mmmm/dddmm.mmmm plus a hemisphere field to signed
// decimal degrees. Both fields must be present to yield a value.
func (r *fieldReader) latLon(vi, hi int, pos, neg byte) *float64 {
	v := r.str(vi)
	h := r.str(hi)
	if v == "" && h == "" {
		return nil
	}
	if v == "" || h == "" {
		r.fail(fmt.Errorf("%s field %d: coordinate and hemisphere must both be present", r.tag, vi+1))
		return nil
	}
	if len(h) != 1 || (h[0] != pos && h[0] != neg) {
		r.fail(fmt.Errorf("%s field %d: bad hemisphere %q", r.tag, hi+1, h))
		return nil
	}

	dot := strings.IndexByte(v, '.')
	intPart := v
	if dot >= 0 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 {
		r.fail(fmt.Errorf("%s field %d: bad coordinate %q", r.tag, vi+1, v))
		return nil
	}
	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		r.fail(fmt.Errorf("%s field %d: bad coordinate %q", r.tag, vi+1, v))
		return nil
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins >= 60 {
		r.fail(fmt.Errorf("%s field %d: bad minutes %q", r.tag, vi+1, v))
		return nil
	}

	dec := float64(deg) + mins/60.0
	if h[0] == neg {
		dec = -dec
	}
	return &dec
}

func (r *fieldReader) timeOfDay(i int) *TimeOfDay {
	s := r.str(i)
	if s == "" {
		return nil
	}
	if len(s) < 6 {
		r.fail(fmt.Errorf("%s field %d: bad time %q", r.tag, i+1, s))
		return nil
	}
	hh, err1 := strconv.Atoi(s[0:2])
	mm, err2 := strconv.Atoi(s[2:4])
	secs, err3 := strconv.ParseFloat(s[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil ||
		hh > 23 || mm > 59 || secs >= 61 {
		r.fail(fmt.Errorf("%s field %d: bad time %q", r.tag, i+1, s))
		return nil
	}
	t := TimeOfDay{
		Hour:        hh,
		Minute:      mm,
		Second:      int(secs),
		Millisecond: int(secs*1000+0.5) % 1000,
	}
	return &t
}

func (r *fieldReader) date(i int) *Date {
	s := r.str(i)
	if s == "" {
		return nil
	}
	if len(s) != 6 {
		r.fail(fmt.Errorf("%s field %d: bad date %q", r.tag, i+1, s))
		return nil
	}
	dd, err1 := strconv.Atoi(s[0:2])
	mo, err2 := strconv.Atoi(s[2:4])
	yy, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil ||
		dd < 1 || dd > 31 || mo < 1 || mo > 12 {
		r.fail(fmt.Errorf("%s field %d: bad date %q", r.tag, i+1, s))
		return nil
	}
	d := Date{Day: dd, Month: mo, Year: 2000 + yy}
	return &d
}
