package burst

import(
	"fmt"
	"io/ioutil"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/hdrburst/pkg/bcolor"
	"github.com/abworrall/hdrburst/pkg/finish"
)

/* Example config file ...

tilesize: 16
numpyramidlevels: 4
searchradiusperlevel: [8, 4, 2, 1]
noise:
  shot: 0.0001
  read: 0.000002
referencepolicy: sharpest
compression: 3.8
gain: 1.1
contrast: 1.0
camera:
  blacklevel: 256
  whitelevel: 4095
  cfa: GRBG
  whitebalance: [2.1, 1.0, 1.0, 1.6]

*/

// Config holds every pipeline parameter. It is plain data passed into
// ProcessBurst, never global state, so runs are reproducible.
type Config struct {
	// Alignment
	TileSize             int    // mosaic pixels per tile edge, power of two
	NumPyramidLevels     int
	SearchRadiusPerLevel []int  // coarsest level first

	// Merge
	Noise                NoiseModel

	// Reference selection
	ReferenceIndex       int
	ReferencePolicy      string // "index" (default) or "sharpest"

	// Finishing knobs, straight from the classic burst UIs
	Compression          float64 // dynamic range compression strength
	Gain                 float64 // brightness gain
	Contrast             float64 // local contrast boost
	ToneMapStrength      float64 // alias fed into Compression if set
	ChromaDenoiseRadius  int
	SharpenAmount        float64
	Tonemapper           string  // "" = built-in; or a mdouchement/hdr operator name
	ApplyGammaEncoding   bool

	// Runtime
	Workers              int     // 0 = NumCPU
	DumpGrids            bool    // write debug PNGs of pyramids / weights

	// Sensor description for frames loaded from disk. Frames built
	// in code carry their own Meta and never consult this.
	Camera               CameraProfile
}

func DefaultConfig() Config {
	return Config{
		TileSize:             16,
		NumPyramidLevels:     4,
		SearchRadiusPerLevel: []int{8, 4, 2, 1},
		Noise:                NoiseModel{Shot: 1.0e-4, Read: 2.0e-6},
		ReferencePolicy:      "index",
		Compression:          3.8,
		Gain:                 1.1,
		Contrast:             1.0,
		ChromaDenoiseRadius:  2,
		SharpenAmount:        0.5,
		ApplyGammaEncoding:   true,
		Camera:               DefaultCameraProfile(),
	}
}

func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}
	return NewConfigFromYaml(contents)
}

// NewConfigFromYaml layers the file over the defaults. Unrecognized
// options in the file are ignored.
func NewConfigFromYaml(b []byte) (Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config parse: %v", err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("(unmarshalable config: %v)", err)
	}
	return string(b)
}

// Finalize fills in derived values. Call once before Validate.
func (c *Config)Finalize() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ToneMapStrength > 0.0 {
		c.Compression = c.ToneMapStrength
	}
	if c.Camera.CFA == "" {
		c.Camera = DefaultCameraProfile()
	}
}

// Validate does every range check up front, so a bad parameter fails
// the run before any pixels get touched.
func (c Config)Validate() error {
	if c.TileSize < 4 || c.TileSize&(c.TileSize-1) != 0 {
		return ConfigurationError{What: fmt.Sprintf("tilesize %d must be a power of two >= 4", c.TileSize)}
	}
	if c.NumPyramidLevels < 1 {
		return ConfigurationError{What: fmt.Sprintf("numpyramidlevels %d must be >= 1", c.NumPyramidLevels)}
	}
	if len(c.SearchRadiusPerLevel) != c.NumPyramidLevels {
		return ConfigurationError{
			What: fmt.Sprintf("searchradiusperlevel has %d entries for %d pyramid levels",
				len(c.SearchRadiusPerLevel), c.NumPyramidLevels),
		}
	}
	for i, r := range c.SearchRadiusPerLevel {
		if r < 0 || r > 64 {
			return ConfigurationError{What: fmt.Sprintf("searchradiusperlevel[%d] = %d out of range [0,64]", i, r)}
		}
	}
	if !c.Noise.Valid() {
		return ConfigurationError{What: fmt.Sprintf("noise model %s: shot must be > 0, read >= 0", c.Noise)}
	}
	if c.ReferenceIndex < 0 {
		return ConfigurationError{What: fmt.Sprintf("referenceindex %d must be >= 0", c.ReferenceIndex)}
	}
	switch c.ReferencePolicy {
	case "", "index", "sharpest":
	default:
		return ConfigurationError{What: fmt.Sprintf("referencepolicy %q not recognized", c.ReferencePolicy)}
	}
	if c.Compression <= 0.0 || c.Gain <= 0.0 || c.Contrast < 0.0 {
		return ConfigurationError{What: fmt.Sprintf("compression %g / gain %g / contrast %g out of range", c.Compression, c.Gain, c.Contrast)}
	}
	if c.ChromaDenoiseRadius < 0 || c.SharpenAmount < 0.0 {
		return ConfigurationError{What: fmt.Sprintf("chromadenoiseradius %d / sharpenamount %g out of range", c.ChromaDenoiseRadius, c.SharpenAmount)}
	}
	if c.Tonemapper != "" && !validTonemapper(c.Tonemapper) {
		return ConfigurationError{What: fmt.Sprintf("tonemapper %q not recognized, have %s", c.Tonemapper, finish.ListTonemappers())}
	}
	if _, err := bcolor.ParseCFA(c.Camera.CFA); err != nil {
		return ConfigurationError{What: fmt.Sprintf("camera cfa: %v", err)}
	}
	return nil
}

func validTonemapper(name string) bool {
	for _, t := range finish.Tonemappers {
		if t == name { return true }
	}
	return false
}
