//go:build !gocv
// +build !gocv

package detect

import (
	"context"
	"errors"
)

type ContourDetector struct {
	MinAreaRatio float64
	CannyLow     float32
	CannyHigh    float32
}

// NewContourDetector fails unless the binary was built with the gocv tag.
func NewContourDetector() (*ContourDetector, error) {
	return nil, errors.New("gocv build tag is not enabled")
}

func (d *ContourDetector) Classes() []string {
	return []string{"object"}
}

func (d *ContourDetector) Detect(ctx context.Context, imagePaths []string) ([][]RawObject, error) {
	_ = ctx
	_ = imagePaths
	return nil, errors.New("gocv build tag is not enabled")
}
