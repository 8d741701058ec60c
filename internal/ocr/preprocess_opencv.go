//go:build opencv
// +build opencv

package ocr

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// PreprocessingEnabled reports whether images are cleaned before recognition.
const PreprocessingEnabled = true

// minWidth is the width below which scans are upscaled; Tesseract misreads
// small glyphs.
const minWidth = 1200

// Preprocess binarizes a scan: grayscale, upscale when small, histogram
// equalization, adaptive threshold and a light opening to drop speckles.
// The result is PNG encoded.
func Preprocess(imgData []byte) ([]byte, []string, error) {
	img, err := gocv.IMDecode(imgData, gocv.IMReadColor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, nil, fmt.Errorf("empty image")
	}

	var steps []string

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	steps = append(steps, "grayscale")

	if gray.Cols() < minWidth {
		scale := float64(minWidth) / float64(gray.Cols())
		scaled := gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		gray.Close()
		gray = scaled
		steps = append(steps, "upscaled")
	}

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	gocv.EqualizeHist(gray, &enhanced)
	steps = append(steps, "contrast_enhanced")

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(enhanced, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 31, 15)
	steps = append(steps, "binarized")

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 2, Y: 2})
	defer kernel.Close()
	cleaned := gocv.NewMat()
	defer cleaned.Close()
	gocv.MorphologyEx(binary, &cleaned, gocv.MorphOpen, kernel)
	steps = append(steps, "denoised")

	buf, err := gocv.IMEncode(gocv.PNGFileExt, cleaned)
	if err != nil {
		return nil, steps, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, steps, nil
}
