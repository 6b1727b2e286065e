package bcolor

import(
	"fmt"
	"strings"
)

// A Channel names one of the four photosites in a 2x2 Bayer quad. The
// two greens are kept distinct because cameras report a white balance
// gain for each.
type Channel int

const(
	ChanR Channel = iota
	ChanG0
	ChanG1
	ChanB
)

// A CFA identifies the Bayer mosaic layout of a sensor, i.e. which
// color each photosite in the repeating 2x2 quad records. The integer
// values match the raw converter's pattern codes.
type CFA int

const(
	RGGB CFA = iota + 1
	GRBG
	BGGR
	GBRG
)

// The 2x2 quad for each pattern, in the order (0,0) (1,0) (0,1) (1,1)
var cfaQuads = map[CFA][4]Channel{
	RGGB: {ChanR,  ChanG0, ChanG1, ChanB},
	GRBG: {ChanG0, ChanR,  ChanB,  ChanG1},
	BGGR: {ChanB,  ChanG0, ChanG1, ChanR},
	GBRG: {ChanG0, ChanB,  ChanR,  ChanG1},
}

func (c CFA)String() string {
	switch c {
	case RGGB: return "RGGB"
	case GRBG: return "GRBG"
	case BGGR: return "BGGR"
	case GBRG: return "GBRG"
	}
	return fmt.Sprintf("CFA(%d)", int(c))
}

func ParseCFA(s string) (CFA, error) {
	switch strings.ToUpper(s) {
	case "RGGB": return RGGB, nil
	case "GRBG": return GRBG, nil
	case "BGGR": return BGGR, nil
	case "GBRG": return GBRG, nil
	}
	return 0, fmt.Errorf("CFA pattern %q not recognized", s)
}

func (c CFA)Valid() bool {
	_, ok := cfaQuads[c]
	return ok
}

// ChannelAt says which Bayer channel the mosaic sample at (x,y) holds.
func (c CFA)ChannelAt(x, y int) Channel {
	return cfaQuads[c][(y&1)*2 + (x&1)]
}

func (ch Channel)String() string {
	switch ch {
	case ChanR:  return "R"
	case ChanG0: return "G0"
	case ChanG1: return "G1"
	case ChanB:  return "B"
	}
	return "?"
}
