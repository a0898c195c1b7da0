package detect

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"time"

	// decoders for the formats clients commonly send
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"mlregistry.io/assetx/pkg/errors"
)

// Input is one request row. Image may be raw bytes, a base64 string or an
// http(s) URL string.
type Input struct {
	Image any `json:"image"`
}

type imageSize struct {
	width  int
	height int
}

// Wrapper runs a Detector over a batch of images and normalizes its pixel
// space output into fractional coordinates.
type Wrapper struct {
	task       TaskType
	detector   Detector
	httpClient *http.Client
}

func NewWrapper(task TaskType, detector Detector) (*Wrapper, error) {
	switch task {
	case TaskObjectDetection, TaskInstanceSegmentation:
	default:
		return nil, errors.NewUserInputError(fmt.Sprintf("unsupported task type %q", task))
	}
	if detector == nil {
		return nil, errors.NewLoadError(stderrors.New("no detector model loaded"))
	}
	return &Wrapper{
		task:       task,
		detector:   detector,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (w *Wrapper) Task() TaskType {
	return w.task
}

// Predict materializes each input image to a temporary file, runs a single
// batched Detect call and post-processes the raw output. The temporary files
// live only for the duration of the call.
func (w *Wrapper) Predict(ctx context.Context, inputs []Input) ([]ImagePrediction, error) {
	if len(inputs) == 0 {
		return []ImagePrediction{}, nil
	}
	tmpdir, err := os.MkdirTemp("", "detect-")
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(tmpdir)

	paths := make([]string, 0, len(inputs))
	sizes := make([]imageSize, 0, len(inputs))
	for i, input := range inputs {
		data, err := w.normalizeImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewUserInputError(fmt.Sprintf("image %d: decode: %v", i, err))
		}
		path := filepath.Join(tmpdir, fmt.Sprintf("image-%d.%s", i, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, errors.NewInternalError(fmt.Errorf("image %d: write temp file: %w", i, err))
		}
		paths = append(paths, path)
		sizes = append(sizes, imageSize{width: cfg.Width, height: cfg.Height})
	}

	raw, err := w.detector.Detect(ctx, paths)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("detector: %w", err))
	}
	if len(raw) != len(inputs) {
		return nil, errors.NewInternalError(fmt.Errorf("detector returned %d results for %d images", len(raw), len(inputs)))
	}

	classes := w.detector.Classes()
	switch w.task {
	case TaskInstanceSegmentation:
		return processInstanceSegmentation(raw, sizes, classes), nil
	default:
		return processObjectDetection(raw, sizes, classes), nil
	}
}
