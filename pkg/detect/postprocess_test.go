package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBox(t *testing.T) {
	box := normalizeBox([4]float64{10, 20, 60, 40}, imageSize{width: 100, height: 50})
	assert.Equal(t, Box{TopX: 0.1, TopY: 0.4, BottomX: 0.6, BottomY: 0.8}, box)
}

func TestNormalizePolygons(t *testing.T) {
	segments := [][]float64{
		{10, 10, 50, 10, 50, 25},
		{0, 0, 10, 10},
		{0, 0},
	}
	got := normalizePolygons(segments, imageSize{width: 100, height: 50})
	// segments with fewer than three points are dropped
	assert.Equal(t, [][]float64{{0.1, 0.2, 0.5, 0.2, 0.5, 0.5}}, got)
}

func TestClassName(t *testing.T) {
	classes := []string{"cat", "dog"}
	assert.Equal(t, "dog", className(classes, 1))
	assert.Equal(t, "7", className(classes, 7))
	assert.Equal(t, "-1", className(classes, -1))
}

func TestProcessInstanceSegmentationDropsEmptyPolygons(t *testing.T) {
	raw := [][]RawObject{{
		{Bounds: [4]float64{0, 0, 50, 25}, Score: 0.9, Class: 0, Polygon: [][]float64{{0, 0, 50, 0, 50, 25}}},
		{Bounds: [4]float64{0, 0, 10, 10}, Score: 0.8, Class: 1, Polygon: [][]float64{{0, 0, 10, 10}}},
	}}
	out := processInstanceSegmentation(raw, []imageSize{{width: 100, height: 50}}, []string{"cat", "dog"})
	assert.Len(t, out, 1)
	assert.Len(t, out[0].Boxes, 1)
	assert.Equal(t, "cat", out[0].Boxes[0].Label)
	assert.Equal(t, [][]float64{{0, 0, 0.5, 0, 0.5, 0.5}}, out[0].Boxes[0].Polygon)
}

func TestProcessObjectDetectionKeepsAllBoxes(t *testing.T) {
	raw := [][]RawObject{
		{
			{Bounds: [4]float64{0, 0, 50, 25}, Score: 0.9, Class: 0},
			{Bounds: [4]float64{25, 0, 100, 50}, Score: 0.5, Class: 1},
		},
		{},
	}
	sizes := []imageSize{{width: 100, height: 50}, {width: 10, height: 10}}
	out := processObjectDetection(raw, sizes, []string{"cat", "dog"})
	assert.Len(t, out, 2)
	assert.Len(t, out[0].Boxes, 2)
	assert.Empty(t, out[1].Boxes)
	assert.Equal(t, Box{TopX: 0.25, TopY: 0, BottomX: 1, BottomY: 1}, out[0].Boxes[1].Box)
	assert.Nil(t, out[0].Boxes[0].Polygon)
}
