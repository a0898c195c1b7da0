package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlregistry.io/assetx/pkg/detect"
	"mlregistry.io/assetx/pkg/errors"
)

type staticDetector struct {
	results [][]detect.RawObject
}

func (d *staticDetector) Classes() []string {
	return []string{"object"}
}

func (d *staticDetector) Detect(ctx context.Context, imagePaths []string) ([][]detect.RawObject, error) {
	return d.results, nil
}

func newTestHandler(t *testing.T, results [][]detect.RawObject) http.Handler {
	t.Helper()
	wrapper, err := detect.NewWrapper(detect.TaskObjectDetection, &staticDetector{results: results})
	require.NoError(t, err)
	return NewServer(wrapper).route(MaxBytesRead)
}

func encodePNG(t *testing.T, width, height int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestScore(t *testing.T) {
	handler := newTestHandler(t, [][]detect.RawObject{{
		{Bounds: [4]float64{10, 10, 60, 35}, Score: 0.9, Class: 0},
	}})

	body, err := json.Marshal(ScoreRequest{Inputs: []detect.Input{{Image: encodePNG(t, 100, 50)}}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/score", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := ScoreResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Predictions, 1)
	require.Len(t, resp.Predictions[0].Boxes, 1)
	box := resp.Predictions[0].Boxes[0]
	assert.Equal(t, detect.Box{TopX: 0.1, TopY: 0.2, BottomX: 0.6, BottomY: 0.7}, box.Box)
	assert.Equal(t, "object", box.Label)
}

func TestScoreBadBody(t *testing.T) {
	handler := newTestHandler(t, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/score", bytes.NewReader([]byte("{not json"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreBadImage(t *testing.T) {
	handler := newTestHandler(t, nil)
	body, err := json.Marshal(ScoreRequest{Inputs: []detect.Input{{Image: "definitely not base64 !!!"}}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/score", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	info := errors.ErrorInfo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, errors.ErrCodeUserInput, info.Code)
}

func TestScoreEmptyBatch(t *testing.T) {
	handler := newTestHandler(t, nil)
	body, err := json.Marshal(ScoreRequest{})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/score", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := ScoreResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Predictions)
}
