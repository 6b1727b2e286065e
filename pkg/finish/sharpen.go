package finish

// sharpen is a plain unsharp mask on luminance, run after the chroma
// denoise so it cannot re-amplify the speckle we just removed.
func sharpen(img *rgbImage, amount float64) error {
	if amount <= 0.0 {
		return nil
	}

	Y := img.luminanceGrid()
	blurred := Y.Blur()

	Yout := Y.NewFromThis()
	for i := range Y.Values() {
		detail := Y.Values()[i] - blurred.Values()[i]
		v := Y.Values()[i] + amount*detail
		if v < 0.0 { v = 0.0 }
		Yout.Values()[i] = v
	}

	img.scaleByLuminanceRatio(&Y, &Yout)
	return nil
}
