package burst

import(
	"fmt"
	"image"
	"image/color"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/hdrburst/pkg/bcolor"
	"github.com/abworrall/hdrburst/pkg/bmath"
)

// CameraProfile is the sensor description for frames loaded from
// disk, where the TIFF container carries none of it.
type CameraProfile struct {
	BlackLevel   int
	WhiteLevel   int
	CFA          string // RGGB, GRBG, BGGR or GBRG
	WhiteBalance bcolor.WhiteBalance
	CCM          bmath.Mat3 // row major; all zeroes = skip color correction
}

func DefaultCameraProfile() CameraProfile {
	return CameraProfile{
		WhiteLevel:   0xFFFF,
		CFA:          "RGGB",
		WhiteBalance: bcolor.NeutralWhiteBalance(),
	}
}

// A Burst is a set of frames plus their config, as loaded from disk.
type Burst struct {
	Frames []*Frame
	Config Config
}

func NewBurst() *Burst {
	return &Burst{Config: DefaultConfig()}
}

// Load walks the args, recursing into directories. Directory contents
// come back sorted, so frame order follows filename order.
func (b *Burst)Load(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := b.Load(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := b.LoadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

func (b *Burst)LoadFile(filename string) error {
	ext := filepath.Ext(filename)

	switch strings.ToLower(ext) {

	case ".tif", ".tiff":
		f, err := LoadTIFF(filename)
		if err != nil {
			return fmt.Errorf("loading %s as TIFF failed: %v", filename, err)
		}
		b.Frames = append(b.Frames, f)

	case ".yaml":
		cfg, err := LoadConfig(filename)
		if err != nil {
			return fmt.Errorf("loading %s as config YAML failed: %v", filename, err)
		}
		b.Config = cfg
		log.Printf("Loaded base configuration from %s\n", filename)
	}

	return nil
}

// Finalize stamps the config's camera profile and the burst order
// onto every frame. Call it once, after the last Load; until then a
// frame's Meta only has its ISO.
func (b *Burst)Finalize() error {
	if len(b.Frames) == 0 {
		return EmptyBurstError{}
	}

	b.Config.Finalize()
	cfa, err := bcolor.ParseCFA(b.Config.Camera.CFA)
	if err != nil {
		return ConfigurationError{What: fmt.Sprintf("camera cfa: %v", err)}
	}

	for i, f := range b.Frames {
		f.Meta.Index = i
		f.Meta.BlackLevel = b.Config.Camera.BlackLevel
		f.Meta.WhiteLevel = b.Config.Camera.WhiteLevel
		f.Meta.CFA = cfa
		f.Meta.WhiteBalance = b.Config.Camera.WhiteBalance
		f.Meta.CCM = b.Config.Camera.CCM
		if f.Meta.ISO <= 0 {
			f.Meta.ISO = 100
		}
		f.Meta.Gain = float64(f.Meta.ISO) / 100.0
		log.Printf("%s\n", f)
	}

	return nil
}

// LoadTIFF reads one 16-bit grayscale mosaic. ISO comes from EXIF
// when the file has it; plenty of intermediate TIFFs don't, and those
// default to base ISO.
func LoadTIFF(filename string) (*Frame, error) {
	f := &Frame{}

	if reader, err := os.Open(filename); err != nil {
		return nil, fmt.Errorf("open+r exif '%s': %v", filename, err)

	} else if ex, err := exif.Decode(reader); err != nil {
		log.Printf("no EXIF in %s, assuming ISO 100\n", filename)

	} else {
		if tag,err := ex.Get(exif.ISOSpeedRatings); err != nil {
			log.Printf("no EXIF ISO in %s, assuming ISO 100\n", filename)
		} else if val,err := tag.Int64(0); err != nil {
			return nil, fmt.Errorf("exif ISO '%s': %v", filename, err)
		} else {
			f.Meta.ISO = val
		}
	}

	// Re-open the file, now for the image data
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	img, err := tiff.Decode(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}

	bounds := img.Bounds()
	f.Width, f.Height = bounds.Dx(), bounds.Dy()
	f.Pix = make([]uint16, f.Width*f.Height)

	if gray, ok := img.(*image.Gray16); ok {
		for y:=0; y<f.Height; y++ {
			for x:=0; x<f.Width; x++ {
				f.Pix[y*f.Width+x] = gray.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
	} else {
		// Not the expected bilevel layout; grayscale-convert whatever
		// we got, which loses nothing on monochrome inputs.
		for y:=0; y<f.Height; y++ {
			for x:=0; x<f.Width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				f.Pix[y*f.Width+x] = g.Y
			}
		}
	}

	return f, nil
}
