package burst

import(
	"context"
	"fmt"
	"log"

	"github.com/abworrall/hdrburst/pkg/finish"
)

// ProcessBurst is the single entry point: raw frames in, finished
// image out. It holds no state between calls and does nothing beyond
// the returned image and the progress notifications, so two calls
// with the same inputs produce byte-identical output.
//
// Stages run in strict order - pyramid, align, merge, finish - with a
// barrier between each: a stage's inputs are always the previous
// stage's complete outputs. Cancellation is cooperative, checked
// between tiles and frames, and never returns a partial image.
func ProcessBurst(ctx context.Context, frames []*Frame, cfg Config, onProgress ProgressFunc) (*finish.Result, error) {
	if len(frames) == 0 {
		return nil, EmptyBurstError{}
	}

	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// All geometry checks happen before any expensive work.
	for _, f := range frames {
		if err := f.CheckGeometry(); err != nil {
			return nil, err
		}
	}
	for i, f := range frames {
		if !f.SameGeometry(frames[0]) {
			return nil, DimensionMismatchError{
				FrameIndex: i,
				Want:       fmt.Sprintf("%dx%d %s", frames[0].Width, frames[0].Height, frames[0].Meta.CFA),
				Got:        fmt.Sprintf("%dx%d %s", f.Width, f.Height, f.Meta.CFA),
			}
		}
	}
	if cfg.ReferencePolicy != "sharpest" && cfg.ReferenceIndex >= len(frames) {
		return nil, ConfigurationError{What: fmt.Sprintf("referenceindex %d for a burst of %d frames", cfg.ReferenceIndex, len(frames))}
	}

	// Stage 1: gray planes and pyramids, one per frame.
	pyramids := make([]Pyramid, len(frames))
	sharpness := make([]float64, len(frames)) // gradient energy, for the sharpest policy
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s stage: %w", StagePyramid, err)
		}
		gray := f.GrayPlane()
		sharpness[i] = gray.GradientEnergy()
		p, err := BuildPyramid(gray, cfg.NumPyramidLevels)
		if err != nil {
			return nil, fmt.Errorf("%s stage, frame %d: %w", StagePyramid, i, err)
		}
		pyramids[i] = p
		onProgress.emit(StagePyramid, float64(i+1)/float64(len(frames)))
	}

	refIdx := selectReference(cfg, sharpness)
	ref := frames[refIdx]
	log.Printf("process burst: %d frames, reference is frame %d (%s policy)\n", len(frames), refIdx, referencePolicy(cfg))

	if cfg.DumpGrids {
		for k, lvl := range pyramids[refIdx].Levels {
			lvl.ToImg(fmt.Sprintf("pyramid level %d", k), fmt.Sprintf("pyramid-%02d.png", k))
		}
	}

	// Stage 2: align each alternate frame against the reference. The
	// fields slice is indexed to match alts.
	alts := []*Frame{}
	altPyrs := []Pyramid{}
	altIdx := []int{} // position in the original burst, for messages
	for i, f := range frames {
		if i == refIdx { continue }
		alts = append(alts, f)
		altPyrs = append(altPyrs, pyramids[i])
		altIdx = append(altIdx, i)
	}

	fields := make([]MotionField, len(alts))
	for i := range alts {
		mf, degraded, err := Align(ctx, pyramids[refIdx], altPyrs[i], cfg, altIdx[i])
		if err != nil {
			return nil, fmt.Errorf("%s stage, frame %d: %w", StageAlign, altIdx[i], err)
		}
		if len(degraded) > 0 {
			log.Printf("align: frame %d, %d/%d tiles fell back to zero motion\n",
				altIdx[i], len(degraded), len(mf.Vecs))
		}
		fields[i] = mf
		onProgress.emit(StageAlign, float64(i+1)/float64(len(alts)))
	}
	if len(alts) == 0 {
		onProgress.emit(StageAlign, 1.0)
	}

	// Stage 3: merge.
	mosaic, weights, err := Merge(ctx, ref, alts, fields, cfg.Noise, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageMerge, err)
	}
	if cfg.DumpGrids {
		weights.ToImg("fused temporal weight", "merge-weights.png")
	}
	onProgress.emit(StageMerge, 1.0)

	// Stage 4: finish.
	res, err := finish.Finish(adaptMosaic(mosaic), finishOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageFinish, err)
	}
	onProgress.emit(StageFinish, 1.0)

	return res, nil
}

func referencePolicy(cfg Config) string {
	if cfg.ReferencePolicy == "sharpest" {
		return "sharpest"
	}
	return "index"
}

// selectReference implements the reference frame policy: either the
// configured index, or the frame with the most gradient energy (the
// one least smeared by handshake). Ties go to the earliest frame.
func selectReference(cfg Config, gradEnergy []float64) int {
	if cfg.ReferencePolicy != "sharpest" {
		return cfg.ReferenceIndex
	}
	best := 0
	for i:=1; i<len(gradEnergy); i++ {
		if gradEnergy[i] > gradEnergy[best] {
			best = i
		}
	}
	return best
}

func adaptMosaic(m *Mosaic) *finish.Mosaic {
	return &finish.Mosaic{
		Width:  m.Width,
		Height: m.Height,
		Pix:    m.Pix,
		Meta: finish.Meta{
			BlackLevel:   m.Meta.BlackLevel,
			WhiteLevel:   m.Meta.WhiteLevel,
			CFA:          m.Meta.CFA,
			WhiteBalance: m.Meta.WhiteBalance,
			CCM:          m.Meta.CCM,
		},
	}
}

func finishOptions(cfg Config) finish.Options {
	return finish.Options{
		Compression:         cfg.Compression,
		Gain:                cfg.Gain,
		Contrast:            cfg.Contrast,
		ChromaDenoiseRadius: cfg.ChromaDenoiseRadius,
		SharpenAmount:       cfg.SharpenAmount,
		Tonemapper:          cfg.Tonemapper,
		ApplyGammaEncoding:  cfg.ApplyGammaEncoding,
		DumpGrids:           cfg.DumpGrids,
	}
}
