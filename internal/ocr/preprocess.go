//go:build !opencv
// +build !opencv

package ocr

// PreprocessingEnabled reports whether images are cleaned before recognition.
// Build with -tags opencv to enable it.
const PreprocessingEnabled = false

// Preprocess returns the image unchanged in builds without OpenCV.
func Preprocess(imgData []byte) ([]byte, []string, error) {
	return imgData, nil, nil
}
