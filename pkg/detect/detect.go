package detect

import (
	"context"
	"fmt"
)

// TaskType selects how raw detector output is post-processed.
type TaskType string

const (
	TaskObjectDetection      TaskType = "object-detection"
	TaskInstanceSegmentation TaskType = "instance-segmentation"
)

func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(s); t {
	case TaskObjectDetection, TaskInstanceSegmentation:
		return t, nil
	default:
		return "", fmt.Errorf("invalid task type %q", s)
	}
}

// Box is a bounding box in fractions of the original image dimensions.
type Box struct {
	TopX    float64 `json:"topX"`
	TopY    float64 `json:"topY"`
	BottomX float64 `json:"bottomX"`
	BottomY float64 `json:"bottomY"`
}

// Detection is one detected object. Polygon is populated for instance
// segmentation only: flat x0,y0,x1,y1,... lists, one per segment, in
// fractions of the image dimensions.
type Detection struct {
	Box     Box         `json:"box"`
	Label   string      `json:"label"`
	Score   float64     `json:"score"`
	Polygon [][]float64 `json:"polygon,omitempty"`
}

// ImagePrediction is the output row for one input image.
type ImagePrediction struct {
	Boxes []Detection `json:"boxes"`
}

// RawObject is one detection as the delegated detector reports it, in pixel
// coordinates of the decoded image.
type RawObject struct {
	// Bounds is x0, y0, x1, y1.
	Bounds [4]float64
	Score  float64
	Class  int
	// Polygon segments as flat pixel x,y pairs, instance segmentation only.
	Polygon [][]float64
}

// Detector is the delegated detection model. Detect runs one batched call
// over already materialized image files; batching strategy is the detector's
// internal concern.
type Detector interface {
	Classes() []string
	Detect(ctx context.Context, imagePaths []string) ([][]RawObject, error)
}
