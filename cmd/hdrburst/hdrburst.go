package main

import(
	"context"
	"flag"
	"image/png"
	"log"
	"os"
	"os/signal"

	"github.com/abworrall/hdrburst/pkg/burst"
	"github.com/abworrall/hdrburst/pkg/finish"
)

var(
	fVerbosity int
	fOutput string
	fTonemapper string
	fReferenceIndex int
	fReferencePolicy string
	fWorkers int
	fDumpGrids bool
	fNoGamma bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fOutput, "o", "merged.png", "output filename")

	flag.StringVar(&fTonemapper, "tonemapper", "", "\"\" for built-in, or one of "+finish.ListTonemappers())
	flag.IntVar(&fReferenceIndex, "ref", 0, "which frame to use as the merge reference")
	flag.StringVar(&fReferencePolicy, "refpolicy", "", "\"index\" or \"sharpest\"")
	flag.IntVar(&fWorkers, "workers", 0, "worker goroutines (0 = one per CPU)")
	flag.BoolVar(&fDumpGrids, "dumpgrids", false, "write debug PNGs of pyramids and merge weights")
	flag.BoolVar(&fNoGamma, "nogamma", false, "emit linear sRGB instead of gamma encoded")
	flag.Parse()

	log.Printf("hdrburst starting\n")
}

func main() {
	b := burst.NewBurst()
	if err := b.Load(flag.Args()...); err != nil {
		log.Fatal(err)
	}

	b.Config.Tonemapper = fTonemapper
	b.Config.ReferenceIndex = fReferenceIndex
	if fReferencePolicy != "" {
		b.Config.ReferencePolicy = fReferencePolicy
	}
	b.Config.Workers = fWorkers
	b.Config.DumpGrids = fDumpGrids
	b.Config.ApplyGammaEncoding = !fNoGamma

	if err := b.Finalize(); err != nil {
		log.Fatal(err)
	}

	if fVerbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", b.Config.AsYaml())
	}

	// Ctrl-C abandons the run cleanly between tiles.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	onProgress := func(stage string, fraction float64) {
		if fVerbosity > 0 {
			log.Printf("  %-10.10s %3.0f%%\n", stage, fraction*100.0)
		}
	}

	res, err := burst.ProcessBurst(ctx, b.Frames, b.Config, onProgress)
	if err != nil {
		log.Fatal(err)
	}

	writePNG(res, fOutput)
}

func writePNG(res *finish.Result, filename string) {
	f, err := os.Create(filename)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := png.Encode(f, res.Image); err != nil {
		log.Fatal(err)
	}

	log.Printf("wrote %s (%s)\n", filename, res.ColorSpace)
}
