//go:build gocv
// +build gocv

package detect

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ContourDetector finds salient regions by edge contours. It is the built-in
// fallback model for deployments without a trained network and reports a
// single class.
type ContourDetector struct {
	MinAreaRatio float64
	CannyLow     float32
	CannyHigh    float32
}

func NewContourDetector() (*ContourDetector, error) {
	return &ContourDetector{
		MinAreaRatio: 0.001,
		CannyLow:     50,
		CannyHigh:    150,
	}, nil
}

func (d *ContourDetector) Classes() []string {
	return []string{"object"}
}

func (d *ContourDetector) Detect(ctx context.Context, imagePaths []string) ([][]RawObject, error) {
	out := make([][]RawObject, 0, len(imagePaths))
	for _, path := range imagePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		objects, err := d.detectOne(path)
		if err != nil {
			return nil, err
		}
		out = append(out, objects)
	}
	return out, nil
}

func (d *ContourDetector) detectOne(path string) ([]RawObject, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode image %s", path)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.GaussianBlur(gray, &blur, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blur, &edges, d.CannyLow, d.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minArea := float64(mat.Cols()*mat.Rows()) * d.MinAreaRatio
	objects := make([]RawObject, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		rect := gocv.BoundingRect(c)
		if float64(rect.Dx()*rect.Dy()) < minArea {
			continue
		}
		polygon := make([]float64, 0, 2*c.Size())
		for j := 0; j < c.Size(); j++ {
			pt := c.At(j)
			polygon = append(polygon, float64(pt.X), float64(pt.Y))
		}
		objects = append(objects, RawObject{
			Bounds:  [4]float64{float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y)},
			Score:   1.0,
			Class:   0,
			Polygon: [][]float64{polygon},
		})
	}
	return objects, nil
}
