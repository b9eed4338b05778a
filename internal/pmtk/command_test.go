package pmtk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSetUpdateRate_Encode(t *testing.T) {
	c, err := SetUpdateRate(100)
	if err != nil {
		t.Fatalf("SetUpdateRate(100): %v", err)
	}
	if got := string(c.Encode()); got != "$PMTK220,100*2F\r\n" {
		t.Fatalf("encode=%q", got)
	}
	if !c.ExpectsAck() || c.ID() != 220 {
		t.Fatalf("cmd=%+v", c)
	}
}

func TestSetUpdateRate_Range(t *testing.T) {
	for _, ms := range []int{99, 0, -1, 10001} {
		if _, err := SetUpdateRate(ms); err == nil {
			t.Fatalf("SetUpdateRate(%d) must fail", ms)
		}
	}
	for _, ms := range []int{100, 1000, 10000} {
		if _, err := SetUpdateRate(ms); err != nil {
			t.Fatalf("SetUpdateRate(%d): %v", ms, err)
		}
	}
}

func TestSetOutput_Encode(t *testing.T) {
	c := SetOutput(OutputMask{RMC: true, GGA: true})
	got := string(c.Encode())
	want := "$PMTK314,0,1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0*28\r\n"
	if got != want {
		t.Fatalf("encode=%q want %q", got, want)
	}
}

func TestSetOutput_DividerOrder(t *testing.T) {
	// GLL,RMC,VTG,GGA,GSA,GSV occupy the first six divider slots.
	c := SetOutput(OutputMask{GLL: true, GSV: true})
	_, args, err := Parse(string(c.Encode()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(args) != 19 {
		t.Fatalf("args=%d want 19", len(args))
	}
	want := "1,0,0,0,0,1"
	if got := strings.Join(args[:6], ","); got != want {
		t.Fatalf("dividers=%q want %q", got, want)
	}
	for _, a := range args[6:] {
		if a != "0" {
			t.Fatalf("reserved divider set: %v", args)
		}
	}
}

func TestStartCommands(t *testing.T) {
	cases := []struct {
		cmd  Command
		want string
	}{
		{HotStart(), "$PMTK101*32\r\n"},
		{WarmStart(), "$PMTK102*31\r\n"},
		{ColdStart(), "$PMTK103*30\r\n"},
		{FullColdStart(), "$PMTK104*37\r\n"},
	}
	for _, c := range cases {
		if got := string(c.cmd.Encode()); got != c.want {
			t.Fatalf("%s: encode=%q want %q", c.cmd.Kind(), got, c.want)
		}
		if c.cmd.ExpectsAck() {
			t.Fatalf("%s: start commands reset instead of acking", c.cmd.Kind())
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []string{
		"$GPGGA,1*00\r\n",        // not PMTK
		"$PMTK220,100\r\n",       // no checksum
		"$PMTK220,100*FF\r\n",    // wrong checksum
		"$PMTKxyz*79\r\n",        // non-numeric id
		"$PMTK220,100*2F junk\n", // trailing junk
	}
	for _, c := range cases {
		if _, _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q) must fail", c)
		}
	}
}

func TestParse_InvertsEncode(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ms := rapid.IntRange(100, 10000).Draw(t, "ms")
		c, err := SetUpdateRate(ms)
		assert.NoError(t, err)

		id, args, err := Parse(string(c.Encode()))
		assert.NoError(t, err)
		assert.Equal(t, c.ID(), id)
		assert.Equal(t, c.args, args)
	})
}
